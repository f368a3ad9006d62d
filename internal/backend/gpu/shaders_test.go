package gpu

import (
	"strings"
	"testing"

	"github.com/born-ml/opengine/internal/kernels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivationDefines(t *testing.T) {
	tests := []struct {
		kind kernels.ActivationKind
		want []string
	}{
		{kernels.None, nil},
		{kernels.ReLU, []string{"USE_RELU"}},
		{kernels.BoundedReLU, []string{"USE_RELUX"}},
		{kernels.ParametricReLU, []string{"USE_PRELU"}},
		{kernels.Tanh, []string{"USE_TANH"}},
		{kernels.Sigmoid, []string{"USE_SIGMOID"}},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			got, err := ActivationDefines(tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			kind, err := activationKindOf(got)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)
		})
	}

	_, err := ActivationDefines(kernels.ActivationKind(42))
	assert.ErrorIs(t, err, kernels.ErrUnknownActivation)
}

func TestShaderSource(t *testing.T) {
	code, err := ShaderSource(ProgramActivation, 128, "USE_RELUX")
	require.NoError(t, err)
	assert.Contains(t, code, "@workgroup_size(128)")
	assert.Contains(t, code, "min(max(x, 0.0), params.limit)")
	assert.NotContains(t, code, "{{")

	code, err = ShaderSource(ProgramActivation, 256)
	require.NoError(t, err)
	assert.Contains(t, code, "result[idx] = x;")

	code, err = ShaderSource(ProgramLSTMCell, 64)
	require.NoError(t, err)
	assert.Contains(t, code, "@workgroup_size(64)")
	assert.Equal(t, 8, strings.Count(code, "@binding("))

	_, err = ShaderSource(ProgramLSTMCell, 64, "USE_RELU")
	assert.Error(t, err)
	_, err = ShaderSource("softmax", 64)
	assert.Error(t, err)
}

func TestShaderSource_EveryKind(t *testing.T) {
	for kind := kernels.None; kind <= kernels.Sigmoid; kind++ {
		defines, err := ActivationDefines(kind)
		require.NoError(t, err)
		code, err := ShaderSource(ProgramActivation, 256, defines...)
		require.NoError(t, err, kind.String())
		assert.NotContains(t, code, placeholderActivation, kind.String())
		assert.Contains(t, code, "result[idx]", kind.String())
	}
}
