package tensor

import (
	"fmt"
	"strings"
)

// Device represents where a tensor's data lives and where kernels run.
type Device int

// Supported compute devices.
//
// Meta tensors carry shape and dtype but no storage; they route calls to
// shape-only kernels.
const (
	CPU Device = iota
	CUDA
	Vulkan
	Metal
	WebGPU
	Meta
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case CUDA:
		return "CUDA"
	case Vulkan:
		return "Vulkan"
	case Metal:
		return "Metal"
	case WebGPU:
		return "WebGPU"
	case Meta:
		return "Meta"
	default:
		return "Unknown"
	}
}

// ParseDevice parses a device name case-insensitively ("cpu", "webgpu", ...).
func ParseDevice(s string) (Device, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cpu":
		return CPU, nil
	case "cuda":
		return CUDA, nil
	case "vulkan":
		return Vulkan, nil
	case "metal":
		return Metal, nil
	case "webgpu":
		return WebGPU, nil
	case "meta":
		return Meta, nil
	default:
		return 0, fmt.Errorf("unknown device %q", s)
	}
}
