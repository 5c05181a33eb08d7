package ops

import (
	"fmt"
	"reflect"

	"github.com/born-ml/customop/internal/customop"
	"github.com/born-ml/customop/internal/schema"
	"github.com/born-ml/customop/internal/tensor"
)

func registerArange(r *customop.Registry) (*customop.Operator, error) {
	proto := schema.Func("arange",
		schema.In("n", reflect.TypeFor[int64]()),
		schema.KwOnly("dtype", reflect.TypeFor[tensor.DataType]()),
		schema.KwOnly("device", reflect.TypeFor[tensor.Device]()),
	).Returning(reflect.TypeFor[*tensor.Tensor]())
	op, err := r.Define(ArangeName, proto)
	if err != nil {
		return nil, err
	}
	if err := op.ImplFactory(func(args []any) ([]any, error) {
		return box(arange(args[0].(int64), args[1].(tensor.DataType), args[2].(tensor.Device)))
	}); err != nil {
		return nil, err
	}
	return op, nil
}

// arange returns [0, 1, ..., n-1] with the given dtype on device. A Meta
// device yields the shape only.
func arange(n int64, dtype tensor.DataType, device tensor.Device) (*tensor.Tensor, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: arange length %d", ErrShape, n)
	}
	shape := tensor.Shape{int(n)}
	if device == tensor.Meta {
		return tensor.New(shape, dtype, device)
	}
	switch dtype {
	case tensor.Float32:
		return tensor.FromSlice(ramp[float32](n), shape, device)
	case tensor.Float64:
		return tensor.FromSlice(ramp[float64](n), shape, device)
	case tensor.Int32:
		return tensor.FromSlice(ramp[int32](n), shape, device)
	case tensor.Int64:
		return tensor.FromSlice(ramp[int64](n), shape, device)
	default:
		return nil, fmt.Errorf("%w: arange of %s", ErrDType, dtype)
	}
}

func ramp[T float32 | float64 | int32 | int64](n int64) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = T(i)
	}
	return out
}
