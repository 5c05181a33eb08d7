// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public array value that custom operators
// consume and produce.
//
// A Tensor has a shape, a data type, a device and, unless it lives on the
// Meta device, host storage. Its device is its backend affinity: dispatch
// picks a kernel from the devices of an operator's tensor arguments.
//
// Example:
//
//	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, tensor.CPU)
//	meta := x.To(tensor.Meta) // same shape, no data
package tensor

import (
	"github.com/born-ml/customop/internal/symbolic"
	"github.com/born-ml/customop/internal/tensor"
)

// Type aliases for public API

// DType is a constraint for tensor element types.
// Supported types: float32, float64, int32, int64, uint8, bool.
type DType = tensor.DType

// DataType represents the element type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Uint8   DataType = tensor.Uint8
	Bool    DataType = tensor.Bool
)

// Device represents where tensor data resides and kernels run.
type Device = tensor.Device

// Device constants. Only CPU and WebGPU have kernels; Meta selects
// shape-only execution.
const (
	CPU    Device = tensor.CPU
	CUDA   Device = tensor.CUDA
	Vulkan Device = tensor.Vulkan
	Metal  Device = tensor.Metal
	WebGPU Device = tensor.WebGPU
	Meta   Device = tensor.Meta
)

// Shape represents concrete tensor dimensions.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Tensor is the array value passed to operators.
type Tensor = tensor.Tensor

// Scalar is a number passed where a schema declares Scalar.
type Scalar = tensor.Scalar

// Optional is a value that may be absent, used for T? arguments.
type Optional[T any] = tensor.Optional[T]

// New allocates a zero-filled tensor. Meta tensors get no storage.
func New(shape Shape, dtype DataType, device Device) (*Tensor, error) {
	return tensor.New(shape, dtype, device)
}

// FromSlice creates a tensor from a Go slice.
//
// Example:
//
//	x, err := tensor.FromSlice([]int64{1, 2, 3}, tensor.Shape{3}, tensor.CPU)
func FromSlice[T DType](data []T, shape Shape, device Device) (*Tensor, error) {
	return tensor.FromSlice(data, shape, device)
}

// Empty creates a storage-less tensor whose dimensions may be symbolic.
func Empty(dims []symbolic.Int, dtype DataType, device Device) *Tensor {
	return tensor.Empty(dims, dtype, device)
}

// Some wraps a present optional value.
func Some[T any](v T) Optional[T] {
	return tensor.Some(v)
}

// None is an absent optional value.
func None[T any]() Optional[T] {
	return tensor.None[T]()
}

// IntScalar returns an integer Scalar.
func IntScalar(v int64) Scalar {
	return tensor.IntScalar(v)
}

// FloatScalar returns a floating-point Scalar.
func FloatScalar(v float64) Scalar {
	return tensor.FloatScalar(v)
}

// ParseDevice parses a device name such as "cpu" or "webgpu".
func ParseDevice(s string) (Device, error) {
	return tensor.ParseDevice(s)
}

// ParseDataType parses a data type name such as "float32".
func ParseDataType(s string) (DataType, error) {
	return tensor.ParseDataType(s)
}
