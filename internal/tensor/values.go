package tensor

import (
	"fmt"
	"strconv"
)

// Scalar is a number passed to an operator outside a tensor.
type Scalar struct {
	f     float64
	i     int64
	isInt bool
}

// IntScalar returns an integral Scalar.
func IntScalar(v int64) Scalar {
	return Scalar{i: v, f: float64(v), isInt: true}
}

// FloatScalar returns a floating-point Scalar.
func FloatScalar(v float64) Scalar {
	return Scalar{f: v}
}

// IsInt reports whether the scalar holds an integer.
func (s Scalar) IsInt() bool {
	return s.isInt
}

// Int returns the integer value (truncated for floating scalars).
func (s Scalar) Int() int64 {
	if s.isInt {
		return s.i
	}
	return int64(s.f)
}

// Float returns the value as float64.
func (s Scalar) Float() float64 {
	return s.f
}

func (s Scalar) String() string {
	if s.isInt {
		return strconv.FormatInt(s.i, 10)
	}
	return strconv.FormatFloat(s.f, 'g', -1, 64)
}

// Optional is a value that may be absent.
// The zero value is absent.
type Optional[T any] struct {
	Value T
	Valid bool
}

// Some returns a present Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Valid: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Valid
}

func (o Optional[T]) String() string {
	if !o.Valid {
		return "None"
	}
	return fmt.Sprint(o.Value)
}

// Walk calls fn for every tensor reachable from v, including tensors nested
// in optional and sequence positions and in []any argument lists.
// Walking stops early when fn returns false; Walk then returns false.
func Walk(v any, fn func(*Tensor) bool) bool {
	switch x := v.(type) {
	case *Tensor:
		if x != nil {
			return fn(x)
		}
	case Optional[*Tensor]:
		if x.Valid && x.Value != nil {
			return fn(x.Value)
		}
	case []*Tensor:
		for _, t := range x {
			if t != nil && !fn(t) {
				return false
			}
		}
	case []Optional[*Tensor]:
		for _, o := range x {
			if o.Valid && o.Value != nil && !fn(o.Value) {
				return false
			}
		}
	case []any:
		for _, item := range x {
			if !Walk(item, fn) {
				return false
			}
		}
	}
	return true
}

// Collect returns every tensor reachable from args, in argument order.
func Collect(args []any) []*Tensor {
	var out []*Tensor
	Walk(args, func(t *Tensor) bool {
		out = append(out, t)
		return true
	})
	return out
}

// AnyRequiresGrad reports whether any tensor reachable from args requires
// gradient tracking.
func AnyRequiresGrad(args []any) bool {
	found := false
	Walk(args, func(t *Tensor) bool {
		found = t.RequiresGrad()
		return !found
	})
	return found
}
