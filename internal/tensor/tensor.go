package tensor

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/born-ml/customop/internal/symbolic"
)

// Tensor is the array value that participates in operator dispatch.
//
// A tensor either owns host storage (CPU and WebGPU tensors created from data)
// or carries metadata only (Meta tensors and tensors produced by shape-only
// kernels, whose dimensions may be symbolic).
type Tensor struct {
	buf          []byte
	dims         []symbolic.Int
	dtype        DataType
	device       Device
	requiresGrad bool
}

// New allocates a zero-filled tensor. Meta tensors get no storage.
func New(shape Shape, dtype DataType, device Device) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	t := &Tensor{
		dims:   shape.Dims(),
		dtype:  dtype,
		device: device,
	}
	if device != Meta {
		t.buf = make([]byte, shape.NumElements()*dtype.Size())
	}
	return t, nil
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice[T DType](data []T, shape Shape, device Device) (*Tensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	if device == Meta {
		return nil, fmt.Errorf("cannot copy data to a %s tensor", Meta)
	}

	var dummy T
	t, err := New(shape, inferDataType(dummy), device)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		//nolint:gosec // byte view of the source slice for a single copy
		src := unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(t.buf))
		copy(t.buf, src)
	}
	return t, nil
}

// Empty creates a tensor with no storage. Dimensions may be symbolic.
func Empty(dims []symbolic.Int, dtype DataType, device Device) *Tensor {
	return &Tensor{
		dims:   append([]symbolic.Int(nil), dims...),
		dtype:  dtype,
		device: device,
	}
}

// Dims returns the tensor's dimensions, possibly symbolic.
func (t *Tensor) Dims() []symbolic.Int {
	return t.dims
}

// Dim returns the number of dimensions.
func (t *Tensor) Dim() int {
	return len(t.dims)
}

// Shape returns the concrete shape.
// Panics if any dimension is symbolic.
func (t *Tensor) Shape() Shape {
	s, ok := StaticShape(t.dims)
	if !ok {
		panic(fmt.Sprintf("tensor has symbolic shape %s", t.formatDims()))
	}
	return s
}

// NumElements returns the total number of elements.
// Panics if any dimension is symbolic.
func (t *Tensor) NumElements() int {
	return t.Shape().NumElements()
}

// DType returns the tensor's data type.
func (t *Tensor) DType() DataType {
	return t.dtype
}

// Device returns the tensor's compute device.
func (t *Tensor) Device() Device {
	return t.device
}

// Affinity reports the backend this tensor's data is bound to.
// Every tensor has one; the boolean exists for values that might not.
func (t *Tensor) Affinity() (Device, bool) {
	return t.device, true
}

// HasStorage reports whether the tensor holds data.
func (t *Tensor) HasStorage() bool {
	return t.buf != nil
}

// To returns a copy of the tensor tagged with another device.
// Storage stays on the host; copying to Meta drops it.
func (t *Tensor) To(device Device) *Tensor {
	out := &Tensor{
		dims:   append([]symbolic.Int(nil), t.dims...),
		dtype:  t.dtype,
		device: device,
	}
	if device != Meta && t.buf != nil {
		out.buf = append([]byte(nil), t.buf...)
	}
	return out
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32 or it has no storage.
func (t *Tensor) AsFloat32() []float32 {
	t.mustView(Float32)
	if len(t.buf) == 0 {
		return []float32{}
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&t.buf[0])), t.NumElements())
}

// AsFloat64 interprets the data as []float64.
func (t *Tensor) AsFloat64() []float64 {
	t.mustView(Float64)
	if len(t.buf) == 0 {
		return []float64{}
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*float64)(unsafe.Pointer(&t.buf[0])), t.NumElements())
}

// AsInt32 interprets the data as []int32.
func (t *Tensor) AsInt32() []int32 {
	t.mustView(Int32)
	if len(t.buf) == 0 {
		return []int32{}
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*int32)(unsafe.Pointer(&t.buf[0])), t.NumElements())
}

// AsInt64 interprets the data as []int64.
func (t *Tensor) AsInt64() []int64 {
	t.mustView(Int64)
	if len(t.buf) == 0 {
		return []int64{}
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*int64)(unsafe.Pointer(&t.buf[0])), t.NumElements())
}

// AsUint8 interprets the data as []uint8.
func (t *Tensor) AsUint8() []uint8 {
	t.mustView(Uint8)
	return t.buf
}

// AsBool interprets the data as []bool.
func (t *Tensor) AsBool() []bool {
	t.mustView(Bool)
	if len(t.buf) == 0 {
		return []bool{}
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*bool)(unsafe.Pointer(&t.buf[0])), t.NumElements())
}

func (t *Tensor) mustView(dtype DataType) {
	if t.dtype != dtype {
		panic(fmt.Sprintf("tensor dtype is %s, not %s", t.dtype, dtype))
	}
	if t.buf == nil {
		panic(fmt.Sprintf("%s tensor has no storage", t.device))
	}
}

// RequireGrad marks this tensor for gradient computation.
// Returns the tensor itself for method chaining.
func (t *Tensor) RequireGrad() *Tensor {
	t.requiresGrad = true
	return t
}

// RequiresGrad returns true if this tensor requires gradient computation.
func (t *Tensor) RequiresGrad() bool {
	return t.requiresGrad
}

// Detach returns a tensor that shares the same data but doesn't track gradients.
func (t *Tensor) Detach() *Tensor {
	return &Tensor{
		buf:    t.buf, // Share data (zero-copy)
		dims:   t.dims,
		dtype:  t.dtype,
		device: t.device,
	}
}

// String returns a human-readable representation of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor[%s]%s on %s", t.dtype, t.formatDims(), t.device)
}

func (t *Tensor) formatDims() string {
	parts := make([]string, len(t.dims))
	for i, d := range t.dims {
		parts[i] = d.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
