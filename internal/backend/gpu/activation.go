package gpu

import (
	"context"
	"fmt"

	"github.com/born-ml/opengine/internal/future"
	"github.com/born-ml/opengine/internal/kernels"
	"github.com/born-ml/opengine/internal/logging"
	"github.com/born-ml/opengine/internal/tensor"
)

// Activation runs an activation as a device program. Calls on one instance
// must be serialized by the caller.
type Activation struct {
	kind   kernels.ActivationKind
	limit  float32
	kernel boundKernel
}

// NewActivation prepares an activation of kind for rt. limit is used by
// BoundedReLU only.
func NewActivation(rt Runtime, kind kernels.ActivationKind, limit float32) (*Activation, error) {
	if rt == nil {
		return nil, fmt.Errorf("%w: nil runtime", ErrUnavailable)
	}
	defines, err := ActivationDefines(kind)
	if err != nil {
		return nil, err
	}
	prefix := "activation_" + kind.String() + "_"
	return &Activation{
		kind:  kind,
		limit: limit,
		kernel: boundKernel{
			rt:      rt,
			name:    ProgramActivation,
			defines: defines,
			prefix:  prefix,
			log:     logging.Component("gpu").WithField("op", "activation"),
		},
	}, nil
}

// Kind returns the activation kind.
func (a *Activation) Kind() kernels.ActivationKind { return a.kind }

// Builds returns how many times the kernel was (re)built.
func (a *Activation) Builds() int { return a.kernel.builds }

// TuningKey returns the key of the currently bound configuration.
func (a *Activation) TuningKey() string { return a.kernel.tuningKey }

// Compute enqueues the activation of input into output and attaches the
// completion event to fut. It returns once the command is queued; output is
// valid only after fut completes without error. alpha is required for
// ParametricReLU, with one value per channel of an NHWC output.
func (a *Activation) Compute(_ context.Context, input, alpha, output *tensor.RawTensor, fut *future.Future) error {
	fut.Set(nil)
	if input == nil || output == nil {
		return fmt.Errorf("activation: %w: input or output", kernels.ErrMissingInput)
	}
	if input.DType() != tensor.Float32 || output.DType() != tensor.Float32 {
		return fmt.Errorf("activation: %w: gpu computes float32, got %s -> %s",
			kernels.ErrUnsupportedElementType, input.DType(), output.DType())
	}
	n := output.NumElements()
	if input.NumElements() != n {
		return fmt.Errorf("activation: %w: input %v, output %v", kernels.ErrShapeMismatch, input.Shape(), output.Shape())
	}

	alphaData := []float32{0}
	channels := 1
	if a.kind == kernels.ParametricReLU {
		if alpha == nil {
			return fmt.Errorf("activation: %w: alpha", kernels.ErrMissingInput)
		}
		_, c, _, err := kernels.NHWCExtents(output.Shape())
		if err != nil {
			return fmt.Errorf("activation: %w", err)
		}
		channels = c
		if alpha.DType() != tensor.Float32 {
			return fmt.Errorf("activation: %w: alpha is %s", kernels.ErrUnsupportedElementType, alpha.DType())
		}
		if alpha.NumElements() != channels {
			return fmt.Errorf("activation: %w: alpha has %d values for %d channels",
				kernels.ErrShapeMismatch, alpha.NumElements(), channels)
		}
		alphaData = alpha.AsFloat32()
	}

	if err := a.kernel.bind(input.Shape(), n); err != nil {
		return fmt.Errorf("activation: %w", err)
	}

	ev, err := a.kernel.rt.Enqueue(Dispatch{
		Program: a.kernel.program,
		Label:   a.kernel.tuningKey,
		Inputs:  [][]float32{input.AsFloat32(), alphaData},
		Outputs: [][]float32{output.AsFloat32()},
		Params:  ActivationParams(n, channels, a.limit),
		Global:  a.kernel.global,
		Local:   a.kernel.local,
	})
	if err != nil {
		return fmt.Errorf("activation: %w", err)
	}
	fut.Set(ev)
	return nil
}
