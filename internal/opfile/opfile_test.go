package opfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/opengine/internal/ops"
	"github.com/born-ml/opengine/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const relu6 = `
name: relu6
type: Activation
device: simd
args:
  activation: RELUX
  max_limit: 6.5
  axes: [0, 2]
  scales: [1, 0.5]
inputs:
  - name: x
    shape: [1, 2, 2, 1]
    data: [-1, 2, 7, 0.5]
outputs:
  - name: y
    shape: [1, 2, 2, 1]
    expect: [0, 2, 6.5, 0.5]
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(relu6))
	require.NoError(t, err)

	assert.Equal(t, "Activation", f.Type)
	dev, err := f.TargetDevice(tensor.CPU)
	require.NoError(t, err)
	assert.Equal(t, tensor.SIMD, dev)

	dtype, err := f.ElementType()
	require.NoError(t, err)
	assert.Equal(t, tensor.Float32, dtype)
}

func TestFile_Def(t *testing.T) {
	f, err := Parse([]byte(relu6))
	require.NoError(t, err)

	def, err := f.Def()
	require.NoError(t, err)
	assert.Equal(t, "relu6", def.Name)
	assert.Equal(t, []string{"x"}, def.Inputs)
	assert.Equal(t, []string{"y"}, def.Outputs)
	assert.Equal(t, tensor.Float32, def.DType)

	require.Len(t, def.Args, 4)
	names := make([]string, len(def.Args))
	for i, a := range def.Args {
		names[i] = a.Name
	}
	assert.Equal(t, []string{"activation", "axes", "max_limit", "scales"}, names)

	assert.Equal(t, "RELUX", def.GetArgString(ops.ArgActivation, ""))
	assert.InDelta(t, 6.5, def.GetArgFloat(ops.ArgMaxLimit, 0), 1e-6)
	assert.Equal(t, []int64{0, 2}, def.GetArgInts("axes"))
	assert.Equal(t, []float32{1, 0.5}, def.GetArgFloats("scales"))
}

func TestFile_Tensors(t *testing.T) {
	f, err := Parse([]byte(relu6))
	require.NoError(t, err)

	inputs, outputs, err := f.Tensors(tensor.SIMD)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	require.Len(t, outputs, 1)

	assert.Equal(t, []float32{-1, 2, 7, 0.5}, inputs[0].AsFloat32())
	assert.Equal(t, tensor.Shape{1, 2, 2, 1}, outputs[0].Shape())
	assert.Equal(t, tensor.SIMD, outputs[0].Device())
	assert.Equal(t, []float32{0, 0, 0, 0}, outputs[0].AsFloat32())
}

func TestFile_TensorsFloat64(t *testing.T) {
	f, err := Parse([]byte(`
type: Activation
dtype: float64
inputs:
  - name: x
    shape: [2]
    data: [0.25, -3]
outputs:
  - name: y
    shape: [2]
`))
	require.NoError(t, err)

	inputs, _, err := f.Tensors(tensor.CPU)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, -3}, inputs[0].AsFloat64())
	assert.Equal(t, []float64{0.25, -3}, Values(inputs[0]))
}

func TestFile_Check(t *testing.T) {
	f, err := Parse([]byte(relu6))
	require.NoError(t, err)

	good, err := tensor.FromSlice([]float32{0, 2, 6.5, 0.5}, tensor.Shape{1, 2, 2, 1}, tensor.CPU)
	require.NoError(t, err)
	assert.Empty(t, f.Check([]*tensor.RawTensor{good}))

	bad, err := tensor.FromSlice([]float32{0, 2, 7, 0.5}, tensor.Shape{1, 2, 2, 1}, tensor.CPU)
	require.NoError(t, err)
	mismatches := f.Check([]*tensor.RawTensor{bad})
	require.Len(t, mismatches, 1)
	assert.Equal(t, Mismatch{Output: "y", Index: 2, Got: 7, Want: 6.5}, mismatches[0])
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing type":    "outputs: [{name: y, shape: [1]}]",
		"no outputs":      "type: Activation",
		"bad dtype":       "type: Activation\ndtype: int8\noutputs: [{name: y, shape: [1]}]",
		"short data":      "type: Activation\ninputs: [{name: x, shape: [2, 2], data: [1, 2]}]\noutputs: [{name: y, shape: [1]}]",
		"bad shape":       "type: Activation\ninputs: [{name: x, shape: [0], data: []}]\noutputs: [{name: y, shape: [1]}]",
		"shapeless out":   "type: Activation\noutputs: [{name: y}]",
		"short expect":    "type: Activation\noutputs: [{name: y, shape: [3], expect: [1]}]",
		"not yaml object": "- 1\n- 2",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidFile)
		})
	}
}

func TestFile_DefRejectsNestedArgs(t *testing.T) {
	f, err := Parse([]byte("type: Activation\nargs:\n  nested: {a: 1}\noutputs: [{name: y, shape: [1]}]"))
	require.NoError(t, err)

	_, err = f.Def()
	assert.ErrorIs(t, err, ErrInvalidFile)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relu6.yaml")
	require.NoError(t, os.WriteFile(path, []byte(relu6), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "relu6", f.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
