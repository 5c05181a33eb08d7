package tensor

import (
	"fmt"

	"github.com/born-ml/customop/internal/symbolic"
)

// Shape represents the concrete dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid (all dimensions >= 0).
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim < 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be >= 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// Dims converts the shape to static symbolic dimensions.
func (s Shape) Dims() []symbolic.Int {
	dims := make([]symbolic.Int, len(s))
	for i, d := range s {
		dims[i] = symbolic.Const(d)
	}
	return dims
}

// StaticShape converts dimensions back to a Shape.
// It returns false if any dimension is symbolic.
func StaticShape(dims []symbolic.Int) (Shape, bool) {
	s := make(Shape, len(dims))
	for i, d := range dims {
		v, ok := d.Static()
		if !ok {
			return nil, false
		}
		s[i] = int(v)
	}
	return s, true
}
