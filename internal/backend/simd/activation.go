// Package simd implements the SIMD backend: host activations vectorized
// with go-highway lanes and split across goroutines by internal/parallel.
package simd

import (
	"context"
	"fmt"

	"github.com/born-ml/opengine/internal/future"
	"github.com/born-ml/opengine/internal/kernels"
	"github.com/born-ml/opengine/internal/parallel"
	"github.com/born-ml/opengine/internal/tensor"
)

// Activation applies an activation synchronously with vector instructions.
// Results match the Generic backend within rounding; Tanh and Sigmoid use a
// polynomial exp.
type Activation struct {
	kind  kernels.ActivationKind
	limit float64
	par   parallel.Config
}

// NewActivation creates a vectorized activation. limit is the BoundedReLU
// ceiling.
func NewActivation(kind kernels.ActivationKind, limit float64, cfg parallel.Config) (*Activation, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %s", kernels.ErrUnknownActivation, kind)
	}
	return &Activation{kind: kind, limit: limit, par: cfg}, nil
}

// Kind returns the activation kind.
func (a *Activation) Kind() kernels.ActivationKind {
	return a.kind
}

// Compute writes activation(input) to output; fut is left complete.
func (a *Activation) Compute(_ context.Context, input, alpha, output *tensor.RawTensor, fut *future.Future) error {
	fut.Set(nil)
	if input == nil || output == nil {
		return fmt.Errorf("activation: %w: input or output", kernels.ErrMissingInput)
	}
	dt := output.DType()
	if input.DType() != dt {
		return fmt.Errorf("activation: %w: input %s, output %s", kernels.ErrUnsupportedElementType, input.DType(), dt)
	}
	if input.NumElements() != output.NumElements() {
		return fmt.Errorf("activation: %w: input %v, output %v", kernels.ErrShapeMismatch, input.Shape(), output.Shape())
	}

	var channels int
	if a.kind == kernels.ParametricReLU {
		if alpha == nil {
			return fmt.Errorf("activation: %w: alpha", kernels.ErrMissingInput)
		}
		_, c, _, err := kernels.NHWCExtents(output.Shape())
		if err != nil {
			return fmt.Errorf("activation: %w", err)
		}
		if alpha.DType() != dt {
			return fmt.Errorf("activation: %w: alpha %s, output %s", kernels.ErrUnsupportedElementType, alpha.DType(), dt)
		}
		if alpha.NumElements() != c {
			return fmt.Errorf("activation: %w: alpha has %d values for %d channels", kernels.ErrShapeMismatch, alpha.NumElements(), c)
		}
		channels = c
	}

	var err error
	switch dt {
	case tensor.Float32:
		err = run(a, input.AsFloat32(), output.AsFloat32(), alphaOf[float32](alpha), channels, float32(a.limit))
	case tensor.Float64:
		err = run(a, input.AsFloat64(), output.AsFloat64(), alphaOf[float64](alpha), channels, a.limit)
	default:
		err = fmt.Errorf("%w: %s", kernels.ErrUnsupportedElementType, dt)
	}
	if err != nil {
		return fmt.Errorf("activation: %w", err)
	}
	return nil
}

func alphaOf[T tensor.Float](alpha *tensor.RawTensor) []T {
	if alpha == nil {
		return nil
	}
	return tensor.View[T](alpha)
}

func run[T tensor.Float](a *Activation, in, out, alpha []T, channels int, limit T) error {
	n := len(out)
	switch a.kind {
	case kernels.None:
		if n > 0 && &in[0] != &out[0] {
			copy(out, in)
		}
	case kernels.ReLU:
		parallel.ForRange(n, func(s, e int) { reluVec(in[s:e], out[s:e]) }, a.par)
	case kernels.BoundedReLU:
		parallel.ForRange(n, func(s, e int) { boundedReLUVec(in[s:e], out[s:e], limit) }, a.par)
	case kernels.Tanh:
		parallel.ForRange(n, func(s, e int) { tanhVec(in[s:e], out[s:e]) }, a.par)
	case kernels.Sigmoid:
		parallel.ForRange(n, func(s, e int) { sigmoidVec(in[s:e], out[s:e]) }, a.par)
	case kernels.ParametricReLU:
		parallel.For(n/channels, func(p int) {
			base := p * channels
			preluRowVec(in[base:base+channels], out[base:base+channels], alpha)
		}, a.par)
	default:
		return fmt.Errorf("%w: %s", kernels.ErrUnknownActivation, a.kind)
	}
	return nil
}
