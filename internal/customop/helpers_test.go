package customop

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/customop/internal/dispatch"
	"github.com/born-ml/customop/internal/schema"
	"github.com/born-ml/customop/internal/tensor"
)

var (
	tensorType   = reflect.TypeFor[*tensor.Tensor]()
	optionalType = reflect.TypeFor[tensor.Optional[*tensor.Tensor]]()
	listType     = reflect.TypeFor[[]*tensor.Tensor]()
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(dispatch.New())
	t.Cleanup(r.Clear)
	return r
}

// unaryProto is name(Tensor x) -> Tensor.
func unaryProto(name string) *schema.Prototype {
	return schema.Func(name, schema.In("x", tensorType)).Returning(tensorType)
}

func defineUnary(t *testing.T, r *Registry, qualname, name string) *Operator {
	t.Helper()
	op, err := r.Define(qualname, unaryProto(name))
	require.NoError(t, err)
	return op
}

func cpuTensor(t *testing.T, data ...float32) *tensor.Tensor {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape{len(data)}, tensor.CPU)
	require.NoError(t, err)
	return x
}

func metaTensor(t *testing.T, shape ...int) *tensor.Tensor {
	t.Helper()
	x, err := tensor.New(tensor.Shape(shape), tensor.Float32, tensor.Meta)
	require.NoError(t, err)
	return x
}

// identity echoes its first argument and counts calls.
func identity(calls *int) dispatch.Kernel {
	return func(args []any) ([]any, error) {
		*calls++
		return []any{args[0]}, nil
	}
}

// scale returns x * k on the device of x.
func scale(k float32) dispatch.Kernel {
	return func(args []any) ([]any, error) {
		x := args[0].(*tensor.Tensor)
		src := x.AsFloat32()
		dst := make([]float32, len(src))
		for i, v := range src {
			dst[i] = v * k
		}
		out, err := tensor.FromSlice(dst, x.Shape(), x.Device())
		if err != nil {
			return nil, err
		}
		return []any{out}, nil
	}
}
