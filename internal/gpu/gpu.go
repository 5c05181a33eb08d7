// Package gpu probes for a usable WebGPU adapter.
package gpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/customop/internal/tensor"
)

// ErrNativeLibrary is reported when the wgpu native library cannot be loaded.
var ErrNativeLibrary = errors.New("webgpu: native library not available")

// Status describes one device.
type Status struct {
	Device    tensor.Device
	Available bool
	Reason    string // set when unavailable
}

var probeOnce = sync.OnceValues(probe)

// Available reports whether a WebGPU adapter can be acquired. The probe
// runs once per process.
func Available() (bool, error) {
	return probeOnce()
}

// Devices reports the devices operators can be dispatched to.
func Devices() []Status {
	out := []Status{
		{Device: tensor.CPU, Available: true},
		{Device: tensor.Meta, Available: true},
	}
	gpu := Status{Device: tensor.WebGPU}
	ok, err := Available()
	gpu.Available = ok
	if err != nil {
		gpu.Reason = err.Error()
	}
	return append(out, gpu)
}

func probe() (available bool, err error) {
	// wgpu panics when the native library is missing.
	defer func() {
		if r := recover(); r != nil {
			available = false
			err = fmt.Errorf("%w: %v", ErrNativeLibrary, r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false, fmt.Errorf("webgpu: request adapter: %w", err)
	}
	adapter.Release()
	return true, nil
}
