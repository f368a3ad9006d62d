package cpu

import (
	"context"
	"fmt"

	"github.com/born-ml/opengine/internal/future"
	"github.com/born-ml/opengine/internal/kernels"
	"github.com/born-ml/opengine/internal/parallel"
	"github.com/born-ml/opengine/internal/tensor"
)

// Activation applies an activation synchronously on the host.
type Activation struct {
	kind  kernels.ActivationKind
	limit float64
	par   parallel.Config
}

// NewActivation creates a host activation. limit is the BoundedReLU ceiling.
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

// Compute writes activation(input) to output. ParametricReLU needs alpha and
// an NHWC output. The work is done on return, so fut is left complete.
func (a *Activation) Compute(_ context.Context, input, alpha, output *tensor.RawTensor, fut *future.Future) error {
	fut.Set(nil)
	if input == nil || output == nil {
		return fmt.Errorf("activation: %w: input or output", kernels.ErrMissingInput)
	}

	if a.kind == kernels.ParametricReLU {
		if alpha == nil {
			return fmt.Errorf("activation: %w: alpha", kernels.ErrMissingInput)
		}
		outer, channels, inner, err := kernels.NHWCExtents(output.Shape())
		if err != nil {
			return fmt.Errorf("activation: %w", err)
		}
		if input.NumElements() != output.NumElements() {
			return fmt.Errorf("activation: %w: input %v, output %v", kernels.ErrShapeMismatch, input.Shape(), output.Shape())
		}
		if err := kernels.ApplyPReLU(input, alpha, output, outer, channels, inner, a.par); err != nil {
			return fmt.Errorf("activation: %w", err)
		}
		return nil
	}

	if err := kernels.ApplyActivation(input, output, a.kind, a.limit, a.par); err != nil {
		return fmt.Errorf("activation: %w", err)
	}
	return nil
}
