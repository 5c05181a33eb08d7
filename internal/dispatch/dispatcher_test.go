package dispatch

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/customop/internal/schema"
	"github.com/born-ml/customop/internal/tensor"
)

func unary(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Parse("f(Tensor x, Tensor? y) -> Tensor")
	require.NoError(t, err)
	return s
}

func onDevice(t *testing.T, d tensor.Device) *tensor.Tensor {
	t.Helper()
	x, err := tensor.New(tensor.Shape{2}, tensor.Float32, d)
	require.NoError(t, err)
	return x
}

// tagged returns a kernel that records its key and echoes the first input.
func tagged(key Key, seen *[]Key) Kernel {
	return func(args []any) ([]any, error) {
		*seen = append(*seen, key)
		return []any{args[0]}, nil
	}
}

func TestResolveBackend(t *testing.T) {
	tests := []struct {
		name    string
		devices []tensor.Device
		want    tensor.Device
		ok      bool
	}{
		{"cpu only", []tensor.Device{tensor.CPU}, tensor.CPU, true},
		{"webgpu only", []tensor.Device{tensor.WebGPU}, tensor.WebGPU, true},
		{"webgpu outranks cpu", []tensor.Device{tensor.CPU, tensor.WebGPU}, tensor.WebGPU, true},
		{"order does not matter", []tensor.Device{tensor.WebGPU, tensor.CPU}, tensor.WebGPU, true},
		{"unsupported", []tensor.Device{tensor.CUDA}, 0, false},
		{"empty", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveBackend(tt.devices)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDefineFind(t *testing.T) {
	d := New()
	h, err := d.Define("ns::f", unary(t))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, h.ID())

	_, err = d.Define("ns::f", unary(t))
	assert.ErrorIs(t, err, ErrAlreadyDefined)

	found, err := d.Find("ns::f")
	require.NoError(t, err)
	assert.Same(t, h, found)
	assert.Equal(t, []string{"ns::f"}, d.Names())

	_, err = d.Find("ns::g")
	assert.ErrorIs(t, err, ErrNotDefined)
}

func TestCall_BackendPriority(t *testing.T) {
	d := New()
	h, err := d.Define("ns::f", unary(t))
	require.NoError(t, err)

	var seen []Key
	require.NoError(t, d.Impl(h, CPU, tagged(CPU, &seen)))

	// Only the lower-priority backend is present.
	_, err = d.Call(h, []any{onDevice(t, tensor.CPU), tensor.None[*tensor.Tensor]()})
	require.NoError(t, err)

	// Both backends are present: the higher one must win, even through an
	// optional argument.
	require.NoError(t, d.Impl(h, WebGPU, tagged(WebGPU, &seen)))
	_, err = d.Call(h, []any{onDevice(t, tensor.CPU), tensor.Some(onDevice(t, tensor.WebGPU))})
	require.NoError(t, err)

	assert.Equal(t, []Key{CPU, WebGPU}, seen)
}

func TestCall_MetaAndFactory(t *testing.T) {
	d := New()
	h, err := d.Define("ns::f", unary(t))
	require.NoError(t, err)
	var seen []Key
	require.NoError(t, d.Impl(h, CPU, tagged(CPU, &seen)))
	require.NoError(t, d.Impl(h, Meta, tagged(Meta, &seen)))

	_, err = d.Call(h, []any{onDevice(t, tensor.CPU), tensor.Some(onDevice(t, tensor.Meta))})
	require.NoError(t, err)
	assert.Equal(t, []Key{Meta}, seen)

	s, err := schema.Parse("g(SymInt n) -> Tensor")
	require.NoError(t, err)
	g, err := d.Define("ns::g", s)
	require.NoError(t, err)

	_, err = d.Call(g, []any{int64(3)})
	assert.ErrorIs(t, err, ErrNoKernel)

	require.NoError(t, d.Impl(g, BackendSelect, func(args []any) ([]any, error) {
		return []any{onDevice(t, tensor.CPU)}, nil
	}))
	out, err := d.Call(g, []any{int64(3)})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestCall_AutogradExclusion(t *testing.T) {
	d := New()
	h, err := d.Define("ns::f", unary(t))
	require.NoError(t, err)

	var seen []Key
	require.NoError(t, d.Impl(h, CPU, tagged(CPU, &seen)))
	require.NoError(t, d.Impl(h, Autograd, func(args []any) ([]any, error) {
		seen = append(seen, Autograd)
		defer d.ExcludeAutograd()()
		return d.Call(h, args)
	}))

	_, err = d.Call(h, []any{onDevice(t, tensor.CPU), tensor.None[*tensor.Tensor]()})
	require.NoError(t, err)
	assert.Equal(t, []Key{Autograd, CPU}, seen)
	assert.False(t, d.AutogradExcluded())
}

func TestCall_Errors(t *testing.T) {
	d := New()
	h, err := d.Define("ns::f", unary(t))
	require.NoError(t, err)
	x := onDevice(t, tensor.CPU)

	_, err = d.Call(h, []any{x})
	assert.ErrorIs(t, err, ErrBadArguments)

	_, err = d.Call(h, []any{x, x})
	assert.ErrorIs(t, err, ErrBadArguments, "bare tensor for an optional slot")

	_, err = d.Call(h, []any{x, tensor.None[*tensor.Tensor]()})
	assert.ErrorIs(t, err, ErrNoKernel)

	_, err = d.Call(h, []any{onDevice(t, tensor.CUDA), tensor.None[*tensor.Tensor]()})
	assert.ErrorIs(t, err, ErrNoKernel)

	require.NoError(t, d.Impl(h, CPU, func([]any) ([]any, error) { return nil, nil }))
	_, err = d.Call(h, []any{x, tensor.None[*tensor.Tensor]()})
	assert.ErrorIs(t, err, ErrBadResults)

	boom := errors.New("boom")
	require.NoError(t, d.Impl(h, CPU, func([]any) ([]any, error) { return nil, boom }))
	_, err = d.Call(h, []any{x, tensor.None[*tensor.Tensor]()})
	assert.ErrorIs(t, err, boom)

	assert.ErrorIs(t, d.Impl(h, CPU, nil), ErrNilKernel)
}

func TestUndefine(t *testing.T) {
	d := New()
	h, err := d.Define("ns::f", unary(t))
	require.NoError(t, err)
	require.NoError(t, d.Impl(h, CPU, func(args []any) ([]any, error) { return []any{args[0]}, nil }))
	assert.Equal(t, []Key{CPU}, d.Keys(h))

	d.Undefine(h)
	assert.False(t, h.Defined())
	assert.Empty(t, d.Keys(h))

	_, err = d.Call(h, []any{onDevice(t, tensor.CPU), tensor.None[*tensor.Tensor]()})
	assert.ErrorIs(t, err, ErrNotDefined)
	assert.Contains(t, err.Error(), h.ID().String())
	assert.ErrorIs(t, d.Impl(h, CPU, tagged(CPU, new([]Key))), ErrNotDefined)

	again, err := d.Define("ns::f", unary(t))
	require.NoError(t, err)
	assert.NotEqual(t, h.ID(), again.ID())
}
