// Package symbolic provides symbolic integer sizes for shape-only execution.
//
// An abstract kernel that cannot know an output size without looking at data
// (the number of non-zero elements, say) asks the ambient Env for an unbacked
// Size: a token standing for a non-negative integer that will only be known
// when a concrete kernel runs. The Env records a value range per token.
package symbolic

import (
	"errors"
	"fmt"
	"strconv"
)

// Common errors.
var (
	ErrEmptyRange   = errors.New("symbolic: empty value range")
	ErrForeignSize  = errors.New("symbolic: size belongs to a different environment")
	ErrNegativeSize = errors.New("symbolic: size bound is negative")
)

// Int is an integer that is either statically known or symbolic.
type Int interface {
	// Static returns the concrete value and true, or false for a symbolic value.
	Static() (int64, bool)
	String() string
}

// Const is a statically known Int.
type Const int64

// Static implements Int.
func (c Const) Static() (int64, bool) {
	return int64(c), true
}

func (c Const) String() string {
	return strconv.FormatInt(int64(c), 10)
}

// Size is an unbacked symbolic size minted by an Env.
// It is owned by the environment that created it.
type Size struct {
	id   int
	name string
	env  Env
}

// Static implements Int. An unbacked size never has a static value.
func (s *Size) Static() (int64, bool) {
	return 0, false
}

// Name returns the token name, e.g. "u0".
func (s *Size) Name() string {
	return s.name
}

// Env returns the environment that minted the size.
func (s *Size) Env() Env {
	return s.env
}

func (s *Size) String() string {
	return s.name
}

// Bound is an optional inclusive upper bound. The zero value is unbounded.
type Bound struct {
	Value int64
	Set   bool
}

// Upto returns a set Bound.
func Upto(v int64) Bound {
	return Bound{Value: v, Set: true}
}

// Unbounded returns an unset Bound.
func Unbounded() Bound {
	return Bound{}
}

// Range is an inclusive value range [Min, Max]; Max may be unbounded.
type Range struct {
	Min int64
	Max Bound
}

// Contains reports whether v lies in the range.
func (r Range) Contains(v int64) bool {
	if v < r.Min {
		return false
	}
	return !r.Max.Set || v <= r.Max.Value
}

// Intersect returns the intersection of two ranges.
func (r Range) Intersect(other Range) (Range, error) {
	out := Range{Min: max(r.Min, other.Min), Max: r.Max}
	switch {
	case !out.Max.Set:
		out.Max = other.Max
	case other.Max.Set && other.Max.Value < out.Max.Value:
		out.Max = other.Max
	}
	if out.Max.Set && out.Max.Value < out.Min {
		return Range{}, fmt.Errorf("%w: %s and %s", ErrEmptyRange, r, other)
	}
	return out, nil
}

func (r Range) String() string {
	if !r.Max.Set {
		return fmt.Sprintf("[%d, inf]", r.Min)
	}
	return fmt.Sprintf("[%d, %d]", r.Min, r.Max.Value)
}

// Env is the symbolic-execution environment consulted by abstract kernels.
type Env interface {
	// AllowDynamicOutputShapes reports whether kernels may produce outputs
	// whose sizes depend on input data.
	AllowDynamicOutputShapes() bool
	// NewUnbackedSize mints a fresh unbacked size.
	NewUnbackedSize() *Size
	// ConstrainRange records [min, max] as a hard constraint on s.
	ConstrainRange(s *Size, min int64, max Bound) error
}
