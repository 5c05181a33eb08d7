package customop

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/customop/internal/dispatch"
	"github.com/born-ml/customop/internal/logging"
	"github.com/born-ml/customop/internal/schema"
	"github.com/born-ml/customop/internal/symbolic"
	"github.com/born-ml/customop/internal/tensor"
)

func TestImpl_Backends(t *testing.T) {
	r := newRegistry(t)
	op := defineUnary(t, r, "mylib::foo", "foo")

	var calls int
	require.NoError(t, op.Impl(identity(&calls), "CPU", " webgpu "))
	keys, err := op.Keys()
	require.NoError(t, err)
	assert.Equal(t, []dispatch.Key{dispatch.CPU, dispatch.WebGPU, dispatch.Autograd}, keys)
}

func TestImpl_UnsupportedBackendIsAtomic(t *testing.T) {
	r := newRegistry(t)
	op := defineUnary(t, r, "mylib::foo", "foo")

	err := op.Impl(identity(new(int)), "cpu", "cuda")
	assert.ErrorIs(t, err, ErrUnsupportedBackend)
	assert.ErrorIs(t, err, ErrBinding)

	keys, err := op.Keys()
	require.NoError(t, err)
	assert.Equal(t, []dispatch.Key{dispatch.Autograd}, keys, "cpu must not be bound")

	assert.ErrorIs(t, op.Impl(identity(new(int))), ErrUnsupportedBackend)
	assert.ErrorIs(t, op.Impl(nil, "cpu"), ErrBinding)
}

func TestCall_BackendPriority(t *testing.T) {
	r := newRegistry(t)
	op, err := r.Define("mylib::add", schema.Func("add",
		schema.In("a", tensorType),
		schema.In("b", optionalType),
	).Returning(tensorType))
	require.NoError(t, err)

	var cpuCalls, gpuCalls int
	require.NoError(t, op.Impl(identity(&cpuCalls), "cpu"))
	require.NoError(t, op.Impl(identity(&gpuCalls), "webgpu"))

	x := cpuTensor(t, 1, 2)
	_, err = op.Call(x, tensor.None[*tensor.Tensor]())
	require.NoError(t, err)
	assert.Equal(t, 1, cpuCalls)
	assert.Equal(t, 0, gpuCalls)

	_, err = op.Call(x, tensor.Some(x.To(tensor.WebGPU)))
	require.NoError(t, err)
	assert.Equal(t, 1, cpuCalls)
	assert.Equal(t, 1, gpuCalls)
}

func TestCall_BadArguments(t *testing.T) {
	r := newRegistry(t)
	op := defineUnary(t, r, "mylib::foo", "foo")
	require.NoError(t, op.Impl(identity(new(int)), "cpu"))

	_, err := op.Call()
	assert.ErrorIs(t, err, ErrBadArguments)
	assert.ErrorIs(t, err, ErrInvocation)

	_, err = op.Call(int64(1))
	assert.ErrorIs(t, err, ErrBadArguments)

	_, err = op.Call(cpuTensor(t, 1).To(tensor.WebGPU))
	assert.ErrorIs(t, err, ErrNoKernel)
}

func TestImplFactory(t *testing.T) {
	r := newRegistry(t)
	op, err := r.Define("mylib::full", schema.Func("full",
		schema.In("n", reflect.TypeFor[int64]()),
		schema.In("value", reflect.TypeFor[float64]()),
		schema.KwOnly("device", reflect.TypeFor[tensor.Device]()),
	).Returning(tensorType))
	require.NoError(t, err)
	require.NoError(t, op.Impl(identity(new(int)), "cpu"))

	_, err = op.Call(int64(3), 1.5, tensor.WebGPU)
	assert.ErrorIs(t, err, ErrNoKernel, "without tensor inputs only the factory kernel applies")

	require.NoError(t, op.ImplFactory(func(args []any) ([]any, error) {
		n, v, dev := args[0].(int64), float32(args[1].(float64)), args[2].(tensor.Device)
		data := make([]float32, n)
		for i := range data {
			data[i] = v
		}
		out, err := tensor.FromSlice(data, tensor.Shape{int(n)}, dev)
		return []any{out}, err
	}))

	out, err := op.CallOne(int64(3), 1.5, tensor.WebGPU)
	require.NoError(t, err)
	assert.Equal(t, tensor.WebGPU, out.Device())
	assert.Equal(t, []float32{1.5, 1.5, 1.5}, out.AsFloat32())
}

func TestImplAbstract_Duplicate(t *testing.T) {
	for _, backends := range [][]string{nil, {"cpu"}, {"cpu", "webgpu"}} {
		t.Run(fmt.Sprintf("%d backends", len(backends)), func(t *testing.T) {
			r := newRegistry(t)
			op := defineUnary(t, r, "mylib::foo", "foo")
			if len(backends) > 0 {
				require.NoError(t, op.Impl(identity(new(int)), backends...))
			}
			require.NoError(t, op.ImplAbstract(identity(new(int))))
			first, ok := op.AbstractImpl()
			require.True(t, ok)
			assert.Contains(t, first.Location, "operator_test.go:")

			err := op.ImplAbstract(identity(new(int)))
			assert.ErrorIs(t, err, ErrDuplicateAbstractImpl)
			assert.ErrorIs(t, err, ErrBinding)

			var dup *DuplicateAbstractImplError
			require.True(t, errors.As(err, &dup))
			assert.Equal(t, "mylib::foo", dup.Operator)
			assert.Equal(t, first.Location, dup.Previous)
			assert.Contains(t, dup.Attempted, "operator_test.go:")
			assert.NotEqual(t, dup.Previous, dup.Attempted)

			kept, _ := op.AbstractImpl()
			assert.Equal(t, first.Location, kept.Location)
		})
	}
}

func TestCall_MetaPathway(t *testing.T) {
	r := newRegistry(t)
	op := defineUnary(t, r, "mylib::foo", "foo")

	var cpuCalls int
	require.NoError(t, op.Impl(identity(&cpuCalls), "cpu"))
	require.NoError(t, op.ImplAbstract(func(args []any) ([]any, error) {
		x := args[0].(*tensor.Tensor)
		return []any{tensor.Empty(x.Dims(), x.DType(), x.Device())}, nil
	}))

	out, err := op.CallOne(metaTensor(t, 4, 5))
	require.NoError(t, err)
	assert.Equal(t, tensor.Meta, out.Device())
	assert.Equal(t, tensor.Shape{4, 5}, out.Shape())
	assert.Equal(t, 0, cpuCalls)
	assert.Equal(t, 0, ContextDepth())
}

func TestCall_MetaPathwayCannotCreateSizes(t *testing.T) {
	r := newRegistry(t)
	op := defineUnary(t, r, "mylib::nonzero", "nonzero")
	require.NoError(t, op.ImplAbstract(func(args []any) ([]any, error) {
		n, err := CreateUnbackedSize()
		if err != nil {
			return nil, err
		}
		return []any{tensor.Empty([]symbolic.Int{n}, tensor.Int64, tensor.Meta)}, nil
	}))

	_, err := op.Call(metaTensor(t, 3))
	assert.ErrorIs(t, err, ErrShapeOnlyContextHasNoSymbolicSizes)
	assert.ErrorIs(t, err, ErrInvocation)
	assert.Contains(t, err.Error(), "mylib::nonzero")
	assert.Contains(t, err.Error(), "operator_test.go:")
	assert.Equal(t, 0, ContextDepth())
}

func TestCallAbstract_Errors(t *testing.T) {
	r := newRegistry(t)
	op := defineUnary(t, r, "mylib::foo", "foo")

	_, err := op.CallAbstract(symbolic.NewShapeEnv(), metaTensor(t, 2))
	assert.ErrorIs(t, err, ErrNoAbstractImpl)

	require.NoError(t, op.ImplAbstract(func([]any) ([]any, error) { return nil, nil }))
	_, err = op.CallAbstract(symbolic.NewShapeEnv(), "not a tensor")
	assert.ErrorIs(t, err, ErrBadArguments)

	_, err = op.CallAbstract(symbolic.NewShapeEnv(), metaTensor(t, 2))
	assert.ErrorIs(t, err, ErrBadResults)
	assert.Equal(t, 0, ContextDepth())
}

func TestCallAbstract_RejectsGradInputs(t *testing.T) {
	r := newRegistry(t)
	op := defineUnary(t, r, "mylib::foo", "foo")
	var calls int
	require.NoError(t, op.ImplAbstract(identity(&calls)))

	x := metaTensor(t, 3).RequireGrad()
	_, err := op.CallAbstract(symbolic.NewShapeEnv(), x)
	assert.ErrorIs(t, err, ErrAutogradNotImplemented)
	assert.ErrorIs(t, err, ErrInvocation)
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, ContextDepth())

	_, err = op.Call(x)
	assert.ErrorIs(t, err, ErrAutogradNotImplemented)

	_, err = op.CallAbstract(symbolic.NewShapeEnv(), x.Detach())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestImpl_RepeatedBackendBindsOnce(t *testing.T) {
	var buf bytes.Buffer
	r := NewRegistry(nil, WithLogger(logging.New(&buf, slog.LevelWarn, false)))
	t.Cleanup(r.Clear)
	op := defineUnary(t, r, "mylib::foo", "foo")

	var calls int
	require.NoError(t, op.Impl(identity(&calls), "cpu", "CPU", " cpu"))
	keys, err := op.Keys()
	require.NoError(t, err)
	assert.Equal(t, []dispatch.Key{dispatch.CPU, dispatch.Autograd}, keys)
	assert.NotContains(t, buf.String(), "overriding kernel")

	require.NoError(t, op.Impl(identity(&calls), "cpu"))
	assert.Contains(t, buf.String(), "overriding kernel")
}
