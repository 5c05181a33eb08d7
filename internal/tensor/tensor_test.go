package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/customop/internal/symbolic"
)

func TestFromSlice(t *testing.T) {
	x, err := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, CPU)
	require.NoError(t, err)

	assert.Equal(t, Shape{2, 3}, x.Shape())
	assert.Equal(t, Float32, x.DType())
	assert.Equal(t, CPU, x.Device())
	assert.Equal(t, 6, x.NumElements())
	assert.True(t, x.HasStorage())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, x.AsFloat32())
}

func TestFromSlice_Errors(t *testing.T) {
	_, err := FromSlice([]float32{1, 2, 3}, Shape{2, 2}, CPU)
	assert.Error(t, err)

	_, err = FromSlice([]int64{1, 2}, Shape{2}, Meta)
	assert.Error(t, err)
}

func TestNew_Meta(t *testing.T) {
	x, err := New(Shape{4, 5}, Float32, Meta)
	require.NoError(t, err)
	assert.False(t, x.HasStorage())
	assert.Equal(t, Shape{4, 5}, x.Shape())
	assert.Panics(t, func() { x.AsFloat32() })
}

func TestNew_ZeroElements(t *testing.T) {
	x, err := New(Shape{0, 2}, Int64, CPU)
	require.NoError(t, err)
	assert.Empty(t, x.AsInt64())
}

func TestEmpty_SymbolicDims(t *testing.T) {
	env := symbolic.NewShapeEnv()
	u0 := env.NewUnbackedSize()

	x := Empty([]symbolic.Int{u0, symbolic.Const(2)}, Int64, CPU)
	assert.Equal(t, 2, x.Dim())
	assert.False(t, x.HasStorage())
	assert.Equal(t, "Tensor[int64][u0 2] on CPU", x.String())

	_, ok := StaticShape(x.Dims())
	assert.False(t, ok)
	assert.Panics(t, func() { x.Shape() })
}

func TestTo(t *testing.T) {
	x, err := FromSlice([]int64{1, 2, 3}, Shape{3}, CPU)
	require.NoError(t, err)

	gpu := x.To(WebGPU)
	assert.Equal(t, WebGPU, gpu.Device())
	assert.Equal(t, []int64{1, 2, 3}, gpu.AsInt64())

	gpu.AsInt64()[0] = 9
	assert.Equal(t, int64(1), x.AsInt64()[0], "To must copy storage")

	meta := x.To(Meta)
	assert.False(t, meta.HasStorage())
	assert.Equal(t, Shape{3}, meta.Shape())
}

func TestAffinity(t *testing.T) {
	x, err := New(Shape{1}, Float32, WebGPU)
	require.NoError(t, err)
	d, ok := x.Affinity()
	assert.True(t, ok)
	assert.Equal(t, WebGPU, d)
}

func TestRequireGradAndDetach(t *testing.T) {
	x, err := FromSlice([]float32{1}, Shape{1}, CPU)
	require.NoError(t, err)
	assert.False(t, x.RequiresGrad())

	x.RequireGrad()
	assert.True(t, x.RequiresGrad())

	d := x.Detach()
	assert.False(t, d.RequiresGrad())
	d.AsFloat32()[0] = 5
	assert.Equal(t, float32(5), x.AsFloat32()[0], "Detach shares storage")
}

func TestParseDevice(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Device
	}{
		{"cpu", CPU},
		{"WebGPU", WebGPU},
		{" meta ", Meta},
	} {
		d, err := ParseDevice(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, d)
	}
	_, err := ParseDevice("tpu")
	assert.Error(t, err)
}

func TestParseDataType(t *testing.T) {
	dt, err := ParseDataType("Int64")
	require.NoError(t, err)
	assert.Equal(t, Int64, dt)
	assert.Equal(t, 8, dt.Size())

	_, err = ParseDataType("complex64")
	assert.Error(t, err)
}
