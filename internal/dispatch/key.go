package dispatch

import (
	"fmt"
	"slices"

	"github.com/born-ml/customop/internal/tensor"
)

// Key selects which kernel of an operator runs.
type Key int

// Dispatch keys. CPU and WebGPU are concrete backends; BackendSelect runs
// factory kernels that take no tensor input; Meta computes output metadata
// only; Autograd is the differentiability layer in front of everything else.
const (
	CPU Key = iota
	WebGPU
	BackendSelect
	Meta
	Autograd
)

func (k Key) String() string {
	switch k {
	case CPU:
		return "CPU"
	case WebGPU:
		return "WebGPU"
	case BackendSelect:
		return "BackendSelect"
	case Meta:
		return "Meta"
	case Autograd:
		return "Autograd"
	default:
		return fmt.Sprintf("Key(%d)", int(k))
	}
}

// Affine is anything with an optional backend affinity.
type Affine interface {
	Affinity() (tensor.Device, bool)
}

// backendPriority lists backends from most to least preferred.
var backendPriority = []tensor.Device{tensor.WebGPU, tensor.CPU}

// BackendKey maps a device to its dispatch key.
func BackendKey(d tensor.Device) (Key, bool) {
	switch d {
	case tensor.CPU:
		return CPU, true
	case tensor.WebGPU:
		return WebGPU, true
	default:
		return 0, false
	}
}

// ResolveBackend picks the highest-priority backend among the observed
// affinities. It reports false when none of them is a dispatchable backend.
func ResolveBackend(devices []tensor.Device) (tensor.Device, bool) {
	for _, d := range backendPriority {
		if slices.Contains(devices, d) {
			return d, true
		}
	}
	return 0, false
}

// Affinities collects the affinities of every tensor reachable from args.
func Affinities(args []any) []tensor.Device {
	var out []tensor.Device
	for _, t := range tensor.Collect(args) {
		var a Affine = t
		if d, ok := a.Affinity(); ok {
			out = append(out, d)
		}
	}
	return out
}
