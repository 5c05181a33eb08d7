package ops

import (
	"fmt"

	"github.com/born-ml/customop/internal/customop"
	"github.com/born-ml/customop/internal/schema"
	"github.com/born-ml/customop/internal/tensor"
)

func registerMinMax(r *customop.Registry) (*customop.Operator, error) {
	proto, err := schema.FromFunc("minmax", minmax, "x")
	if err != nil {
		return nil, err
	}
	op, err := r.Define(MinMaxName, proto)
	if err != nil {
		return nil, err
	}
	if err := op.Impl(func(args []any) ([]any, error) {
		lo, hi, err := minmax(args[0].(*tensor.Tensor))
		if err != nil {
			return nil, err
		}
		return []any{lo, hi}, nil
	}, "cpu"); err != nil {
		return nil, err
	}
	if err := op.ImplAbstract(func(args []any) ([]any, error) {
		x := args[0].(*tensor.Tensor)
		lo := tensor.Empty(tensor.Shape{1}.Dims(), x.DType(), x.Device())
		hi := tensor.Empty(tensor.Shape{1}.Dims(), x.DType(), x.Device())
		return []any{lo, hi}, nil
	}); err != nil {
		return nil, err
	}
	return op, nil
}

// minmax returns the smallest and largest element of a float32 tensor as
// one-element tensors.
func minmax(x *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, error) {
	if x.DType() != tensor.Float32 {
		return nil, nil, fmt.Errorf("%w: minmax on %s", ErrDType, x.DType())
	}
	data := x.AsFloat32()
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("%w: minmax of an empty tensor", ErrEmpty)
	}
	lo, hi := data[0], data[0]
	for _, v := range data[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	loT, err := tensor.FromSlice([]float32{lo}, tensor.Shape{1}, x.Device())
	if err != nil {
		return nil, nil, err
	}
	hiT, err := tensor.FromSlice([]float32{hi}, tensor.Shape{1}, x.Device())
	if err != nil {
		return nil, nil, err
	}
	return loT, hiT, nil
}
