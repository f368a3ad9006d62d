package gpu

import (
	"context"
	"errors"
	"testing"

	"github.com/born-ml/opengine/internal/future"
	"github.com/born-ml/opengine/internal/kernels"
	"github.com/born-ml/opengine/internal/parallel"
	"github.com/born-ml/opengine/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTensor(t *testing.T, data []float32, shape ...int) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.FromSlice(data, tensor.Shape(shape), tensor.GPU)
	require.NoError(t, err)
	return r
}

func ramp(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i-n/2) * 0.25
	}
	return out
}

func TestActivation_MatchesHost(t *testing.T) {
	rt := newTestRuntime(t)
	kinds := []kernels.ActivationKind{kernels.None, kernels.ReLU, kernels.BoundedReLU, kernels.Tanh, kernels.Sigmoid}

	for _, kind := range kinds {
		t.Run(kind.String(), func(t *testing.T) {
			data := ramp(300)
			input := mustTensor(t, data, 1, 10, 10, 3)
			output := tensor.Like(input)

			act, err := NewActivation(rt, kind, 2)
			require.NoError(t, err)

			var fut future.Future
			require.NoError(t, act.Compute(context.Background(), input, nil, output, &fut))
			require.NoError(t, fut.Wait(context.Background()))

			want := make([]float32, len(data))
			require.NoError(t, kernels.DoActivation(data, want, kind, 2, parallel.Sequential()))
			assert.InDeltaSlice(t, want, output.AsFloat32(), 1e-6)
		})
	}
}

func TestActivation_PReLU(t *testing.T) {
	rt := newTestRuntime(t)
	act, err := NewActivation(rt, kernels.ParametricReLU, 0)
	require.NoError(t, err)

	input := mustTensor(t, []float32{-1, -2, 3, 4, -5, -6}, 1, 1, 2, 3)
	alpha := mustTensor(t, []float32{0.1, 0.2, 0.3}, 3)
	output := tensor.Like(input)

	var fut future.Future
	require.NoError(t, act.Compute(context.Background(), input, alpha, output, &fut))
	require.NoError(t, fut.Wait(context.Background()))
	assert.InDeltaSlice(t, []float32{-0.1, -0.4, 3, 4, -1.0, -1.8}, output.AsFloat32(), 1e-6)

	err = act.Compute(context.Background(), input, nil, output, &fut)
	assert.ErrorIs(t, err, kernels.ErrMissingInput)

	wrong := mustTensor(t, []float32{0.1, 0.2}, 2)
	err = act.Compute(context.Background(), input, wrong, output, &fut)
	assert.ErrorIs(t, err, kernels.ErrShapeMismatch)

	flat := mustTensor(t, []float32{-1, 1}, 2)
	err = act.Compute(context.Background(), flat, alpha, tensor.Like(flat), &fut)
	assert.ErrorIs(t, err, kernels.ErrShapeMismatch)
}

func TestActivation_RebuildsOncePerShape(t *testing.T) {
	rt := newTestRuntime(t)
	act, err := NewActivation(rt, kernels.ReLU, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, act.Builds())

	run := func(shape ...int) {
		input := mustTensor(t, ramp(tensor.Shape(shape).NumElements()), shape...)
		var fut future.Future
		require.NoError(t, act.Compute(context.Background(), input, nil, tensor.Like(input), &fut))
		require.NoError(t, fut.Wait(context.Background()))
	}

	run(1, 8, 8, 3)
	run(1, 8, 8, 3)
	assert.Equal(t, 1, act.Builds())
	assert.Equal(t, "activation_RELU_1x8x8x3", act.TuningKey())

	run(1, 16, 16, 3)
	assert.Equal(t, 2, act.Builds())
	assert.Equal(t, "activation_RELU_1x16x16x3", act.TuningKey())

	run(1, 16, 16, 3)
	assert.Equal(t, 2, act.Builds())

	// Program variants are shared through the runtime cache.
	assert.Equal(t, int64(1), rt.Compiles())
}

func TestActivation_ComputeIsAsync(t *testing.T) {
	release := make(chan struct{})
	rt := newTestRuntime(t, WithDispatchFault(func(*Dispatch) error {
		<-release
		return nil
	}))
	act, err := NewActivation(rt, kernels.Sigmoid, 0)
	require.NoError(t, err)

	input := mustTensor(t, []float32{0, 0, 0, 0}, 1, 1, 2, 2)
	output := tensor.Like(input)

	var fut future.Future
	require.NoError(t, act.Compute(context.Background(), input, nil, output, &fut))
	assert.False(t, fut.Done())
	assert.NotNil(t, fut.Event())

	close(release)
	require.NoError(t, fut.Wait(context.Background()))
	assert.True(t, fut.Done())
	assert.InDeltaSlice(t, []float32{0.5, 0.5, 0.5, 0.5}, output.AsFloat32(), 1e-6)

	stats, ok := fut.Stats()
	require.True(t, ok)
	assert.False(t, stats.Finished.IsZero())
}

func TestActivation_BuildFailureStaysUnbound(t *testing.T) {
	fail := true
	rt := newTestRuntime(t, WithBuildFailure(func(string) error {
		if fail {
			return errors.New("compiler crashed")
		}
		return nil
	}))
	act, err := NewActivation(rt, kernels.Tanh, 0)
	require.NoError(t, err)

	input := mustTensor(t, []float32{1, 2}, 2)
	output := tensor.Like(input)
	var fut future.Future

	err = act.Compute(context.Background(), input, nil, output, &fut)
	assert.ErrorIs(t, err, ErrDeviceFailure)
	assert.Equal(t, 0, act.Builds())
	assert.Nil(t, fut.Event())

	fail = false
	require.NoError(t, act.Compute(context.Background(), input, nil, output, &fut))
	require.NoError(t, fut.Wait(context.Background()))
	assert.Equal(t, 1, act.Builds())
}

func TestActivation_RejectsNonFloat32(t *testing.T) {
	rt := newTestRuntime(t)
	act, err := NewActivation(rt, kernels.ReLU, 0)
	require.NoError(t, err)

	input, err := tensor.FromSlice([]float64{1, 2}, tensor.Shape{2}, tensor.GPU)
	require.NoError(t, err)
	err = act.Compute(context.Background(), input, nil, tensor.Like(input), nil)
	assert.ErrorIs(t, err, kernels.ErrUnsupportedElementType)

	half, err := tensor.NewRaw(tensor.Shape{2}, tensor.Float16, tensor.GPU)
	require.NoError(t, err)
	err = act.Compute(context.Background(), half, nil, tensor.Like(half), nil)
	assert.ErrorIs(t, err, kernels.ErrUnsupportedElementType)
}

func TestNewActivation_Errors(t *testing.T) {
	_, err := NewActivation(nil, kernels.ReLU, 0)
	assert.ErrorIs(t, err, ErrUnavailable)

	rt := newTestRuntime(t)
	_, err = NewActivation(rt, kernels.ActivationKind(99), 0)
	assert.ErrorIs(t, err, kernels.ErrUnknownActivation)
}

func TestActivation_FailedCallClearsFuture(t *testing.T) {
	rt := newTestRuntime(t)
	act, err := NewActivation(rt, kernels.ReLU, 0)
	require.NoError(t, err)

	input := mustTensor(t, ramp(8), 1, 2, 2, 2)
	output := tensor.Like(input)
	var fut future.Future
	require.NoError(t, act.Compute(context.Background(), input, nil, output, &fut))
	require.NoError(t, fut.Wait(context.Background()))
	require.NotNil(t, fut.Event())

	require.NoError(t, rt.Close())
	err = act.Compute(context.Background(), input, nil, output, &fut)
	assert.ErrorIs(t, err, ErrDeviceFailure)
	assert.Nil(t, fut.Event())
}
