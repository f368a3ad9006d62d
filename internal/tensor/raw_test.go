package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRaw(t *testing.T) {
	raw, err := NewRaw(Shape{1, 2, 2, 3}, Float32, CPU)
	require.NoError(t, err)

	assert.Equal(t, 12, raw.NumElements())
	assert.Equal(t, 48, raw.ByteSize())
	assert.Equal(t, 4, raw.Rank())
	assert.Equal(t, 3, raw.Dim(3))
	assert.Equal(t, []int{12, 6, 3, 1}, raw.Strides())
	assert.Equal(t, Float32, raw.DType())
	assert.Equal(t, CPU, raw.Device())
}

func TestNewRawInvalidShape(t *testing.T) {
	_, err := NewRaw(Shape{2, 0}, Float32, CPU)
	assert.Error(t, err)
}

func TestRawTensorDimOutOfRange(t *testing.T) {
	raw, err := NewRaw(Shape{2, 3}, Float32, CPU)
	require.NoError(t, err)

	assert.Panics(t, func() { raw.Dim(2) })
	assert.Panics(t, func() { raw.Dim(-1) })
}

func TestRawTensorAsFloat32(t *testing.T) {
	raw, _ := NewRaw(Shape{3, 2}, Float32, CPU)
	data := raw.AsFloat32()
	require.Len(t, data, 6)

	// Modify and verify zero-copy
	data[0] = 42
	assert.Equal(t, float32(42), raw.AsFloat32()[0])
	assert.Panics(t, func() { raw.AsFloat64() })
}

func TestFromSlice(t *testing.T) {
	src := []float64{1, 2, 3, 4}
	raw, err := FromSlice(src, Shape{2, 2}, CPU)
	require.NoError(t, err)
	assert.Equal(t, Float64, raw.DType())

	// FromSlice copies
	src[0] = 100
	assert.Equal(t, []float64{1, 2, 3, 4}, View[float64](raw))

	_, err = FromSlice([]float32{1, 2, 3}, Shape{2, 2}, CPU)
	assert.Error(t, err)
}

func TestLikeAndSameStorage(t *testing.T) {
	a, err := FromSlice([]float32{1, 2, 3}, Shape{3}, GPU)
	require.NoError(t, err)

	b := Like(a)
	assert.True(t, a.Shape().Equal(b.Shape()))
	assert.Equal(t, a.DType(), b.DType())
	assert.Equal(t, GPU, b.Device())
	assert.Equal(t, []float32{0, 0, 0}, b.AsFloat32())

	assert.True(t, a.SameStorage(a))
	assert.False(t, a.SameStorage(b))
	assert.False(t, a.SameStorage(nil))
}

func TestShapeKey(t *testing.T) {
	assert.Equal(t, "1x8x8x3", Shape{1, 8, 8, 3}.Key())
	assert.Equal(t, "scalar", Shape{}.Key())
}

func TestParseDevice(t *testing.T) {
	tests := []struct {
		in   string
		want Device
	}{
		{"cpu", CPU},
		{"", CPU},
		{"SIMD", SIMD},
		{"neon", SIMD},
		{"gpu", GPU},
		{"opencl", GPU},
	}
	for _, tt := range tests {
		got, err := ParseDevice(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseDevice("tpu")
	assert.Error(t, err)
}

func TestParseDataType(t *testing.T) {
	dt, err := ParseDataType("half")
	require.NoError(t, err)
	assert.Equal(t, Float16, dt)
	assert.Equal(t, 2, dt.Size())

	dt, err = ParseDataType("float32")
	require.NoError(t, err)
	assert.Equal(t, Float32, dt)

	_, err = ParseDataType("int8")
	assert.Error(t, err)
}
