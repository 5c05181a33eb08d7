// Package ops is a small library of custom operators built on customop.
// Each operator exercises a different binding pathway: backend kernels,
// abstract kernels with data-dependent shapes, multiple outputs, and
// factory kernels that take no tensor input.
package ops

import (
	"errors"
	"fmt"

	"github.com/born-ml/customop/internal/customop"
)

// Operator names.
const (
	NonzeroName = "born::nonzero"
	LinearName  = "born::linear"
	MinMaxName  = "born::minmax"
	ArangeName  = "born::arange"
	EncodeName  = "text::encode"
)

// Kernel errors.
var (
	ErrShape         = errors.New("shape mismatch")
	ErrDType         = errors.New("unsupported dtype")
	ErrEmpty         = errors.New("empty input")
	ErrTooFewNonzero = errors.New("nonzero requires at least 2 non-zero elements")
)

// Library holds the registered operators.
type Library struct {
	Nonzero *customop.Operator
	Linear  *customop.Operator
	MinMax  *customop.Operator
	Arange  *customop.Operator
	Encode  *customop.Operator
}

// Operators returns the library's operators in registration order.
func (l *Library) Operators() []*customop.Operator {
	return []*customop.Operator{l.Nonzero, l.Linear, l.MinMax, l.Arange, l.Encode}
}

// Option configures Register.
type Option func(*options)

type options struct {
	loadEncoding EncodingLoader
}

// WithEncodingLoader replaces the tiktoken loader used by text::encode.
func WithEncodingLoader(l EncodingLoader) Option {
	return func(o *options) {
		o.loadEncoding = l
	}
}

// Register defines every operator in r and binds its kernels. On failure the
// operators defined so far are destroyed again.
func Register(r *customop.Registry, opts ...Option) (*Library, error) {
	o := options{loadEncoding: TiktokenLoader}
	for _, opt := range opts {
		opt(&o)
	}

	lib := &Library{}
	steps := []struct {
		name string
		dst  **customop.Operator
		fn   func(*customop.Registry) (*customop.Operator, error)
	}{
		{NonzeroName, &lib.Nonzero, registerNonzero},
		{LinearName, &lib.Linear, registerLinear},
		{MinMaxName, &lib.MinMax, registerMinMax},
		{ArangeName, &lib.Arange, registerArange},
		{EncodeName, &lib.Encode, func(r *customop.Registry) (*customop.Operator, error) {
			return registerEncode(r, newEncoder(o.loadEncoding))
		}},
	}

	var done []*customop.Operator
	for _, step := range steps {
		op, err := step.fn(r)
		if err != nil {
			for _, d := range done {
				_ = d.Destroy()
			}
			return nil, fmt.Errorf("register %s: %w", step.name, err)
		}
		*step.dst = op
		done = append(done, op)
	}
	return lib, nil
}

// box adapts a single-output typed kernel to the boxed calling convention.
func box(out any, err error) ([]any, error) {
	if err != nil {
		return nil, err
	}
	return []any{out}, nil
}
