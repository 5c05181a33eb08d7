package ops

import (
	"fmt"

	"github.com/born-ml/customop/internal/customop"
	"github.com/born-ml/customop/internal/schema"
	"github.com/born-ml/customop/internal/symbolic"
	"github.com/born-ml/customop/internal/tensor"
)

const linearSchema = "(Tensor x, Tensor weight, Tensor? bias) -> Tensor"

func registerLinear(r *customop.Registry) (*customop.Operator, error) {
	proto := schema.Func("linear", schema.In("x", nil), schema.In("weight", nil), schema.In("bias", nil))
	op, err := r.DefineManual(LinearName, linearSchema, proto)
	if err != nil {
		return nil, err
	}
	if err := op.Impl(func(args []any) ([]any, error) {
		return box(linear(args[0].(*tensor.Tensor), args[1].(*tensor.Tensor), args[2].(tensor.Optional[*tensor.Tensor])))
	}, "cpu"); err != nil {
		return nil, err
	}
	if err := op.ImplAbstract(linearAbstract); err != nil {
		return nil, err
	}
	return op, nil
}

// linear computes x @ weight^T + bias for x [n, in], weight [out, in] and
// an optional bias [out].
func linear(x, weight *tensor.Tensor, bias tensor.Optional[*tensor.Tensor]) (*tensor.Tensor, error) {
	if _, err := linearDims(x, weight, bias); err != nil {
		return nil, err
	}
	if x.DType() != tensor.Float32 || weight.DType() != tensor.Float32 {
		return nil, fmt.Errorf("%w: linear expects float32, got %s and %s", ErrDType, x.DType(), weight.DType())
	}

	n, in := x.Shape()[0], x.Shape()[1]
	out := weight.Shape()[0]
	xs, ws := x.AsFloat32(), weight.AsFloat32()
	var bs []float32
	if b, ok := bias.Get(); ok {
		if b.DType() != tensor.Float32 {
			return nil, fmt.Errorf("%w: linear bias is %s", ErrDType, b.DType())
		}
		bs = b.AsFloat32()
	}

	y := make([]float32, n*out)
	for i := range n {
		for j := range out {
			var acc float32
			for k := range in {
				acc += xs[i*in+k] * ws[j*in+k]
			}
			if bs != nil {
				acc += bs[j]
			}
			y[i*out+j] = acc
		}
	}
	return tensor.FromSlice(y, tensor.Shape{n, out}, x.Device())
}

// linearDims checks operand ranks and the shared inner dimension and returns
// the output dimensions. Symbolic dimensions are accepted as-is.
func linearDims(x, weight *tensor.Tensor, bias tensor.Optional[*tensor.Tensor]) ([]symbolic.Int, error) {
	if x.Dim() != 2 || weight.Dim() != 2 {
		return nil, fmt.Errorf("%w: linear expects 2-d x and weight, got %d-d and %d-d", ErrShape, x.Dim(), weight.Dim())
	}
	xd, wd := x.Dims(), weight.Dims()
	if !sameDim(xd[1], wd[1]) {
		return nil, fmt.Errorf("%w: linear inner dimensions %s and %s differ", ErrShape, xd[1], wd[1])
	}
	if b, ok := bias.Get(); ok {
		if b.Dim() != 1 || !sameDim(b.Dims()[0], wd[0]) {
			return nil, fmt.Errorf("%w: linear bias must be [%s]", ErrShape, wd[0])
		}
	}
	return []symbolic.Int{xd[0], wd[0]}, nil
}

// sameDim is false only when both dimensions are static and differ.
func sameDim(a, b symbolic.Int) bool {
	av, aok := a.Static()
	bv, bok := b.Static()
	return !aok || !bok || av == bv
}

func linearAbstract(args []any) ([]any, error) {
	x, weight := args[0].(*tensor.Tensor), args[1].(*tensor.Tensor)
	dims, err := linearDims(x, weight, args[2].(tensor.Optional[*tensor.Tensor]))
	if err != nil {
		return nil, err
	}
	return []any{tensor.Empty(dims, x.DType(), x.Device())}, nil
}
