package ops

import (
	"fmt"

	"github.com/born-ml/customop/internal/customop"
	"github.com/born-ml/customop/internal/schema"
	"github.com/born-ml/customop/internal/symbolic"
	"github.com/born-ml/customop/internal/tensor"
)

func registerNonzero(r *customop.Registry) (*customop.Operator, error) {
	proto, err := schema.FromFunc("nonzero", nonzero, "x")
	if err != nil {
		return nil, err
	}
	op, err := r.Define(NonzeroName, proto)
	if err != nil {
		return nil, err
	}
	if err := op.Impl(func(args []any) ([]any, error) {
		return box(nonzero(args[0].(*tensor.Tensor)))
	}, "cpu", "webgpu"); err != nil {
		return nil, err
	}
	if err := op.ImplAbstract(nonzeroAbstract); err != nil {
		return nil, err
	}
	return op, nil
}

// nonzero returns the indices of the non-zero elements of x as an int64
// tensor of shape [nnz, x.Dim()], in row-major order.
func nonzero(x *tensor.Tensor) (*tensor.Tensor, error) {
	shape := x.Shape()
	var flat []int
	switch x.DType() {
	case tensor.Float32:
		for i, v := range x.AsFloat32() {
			if v != 0 {
				flat = append(flat, i)
			}
		}
	case tensor.Int64:
		for i, v := range x.AsInt64() {
			if v != 0 {
				flat = append(flat, i)
			}
		}
	default:
		return nil, fmt.Errorf("%w: nonzero on %s", ErrDType, x.DType())
	}
	if len(flat) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewNonzero, len(flat))
	}

	ndim := len(shape)
	out := make([]int64, 0, len(flat)*ndim)
	idx := make([]int64, ndim)
	for _, f := range flat {
		for d := ndim - 1; d >= 0; d-- {
			idx[d] = int64(f % shape[d])
			f /= shape[d]
		}
		out = append(out, idx...)
	}
	return tensor.FromSlice(out, tensor.Shape{len(flat), ndim}, x.Device())
}

// nonzeroAbstract describes the output of nonzero without reading data. The
// row count depends on the data, so it is a fresh unbacked size bounded by
// the number of elements when that is known.
func nonzeroAbstract(args []any) ([]any, error) {
	x := args[0].(*tensor.Tensor)
	var opts []customop.SizeOption
	if shape, ok := tensor.StaticShape(x.Dims()); ok {
		opts = append(opts, customop.WithMax(symbolic.Const(shape.NumElements())))
	}
	nnz, err := customop.CreateUnbackedSize(opts...)
	if err != nil {
		return nil, err
	}
	dims := []symbolic.Int{nnz, symbolic.Const(x.Dim())}
	return []any{tensor.Empty(dims, tensor.Int64, x.Device())}, nil
}
