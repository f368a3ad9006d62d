package ops

import (
	"context"
	"fmt"

	"github.com/born-ml/opengine/internal/backend/cpu"
	"github.com/born-ml/opengine/internal/backend/gpu"
	"github.com/born-ml/opengine/internal/backend/simd"
	"github.com/born-ml/opengine/internal/future"
	"github.com/born-ml/opengine/internal/kernels"
	"github.com/born-ml/opengine/internal/tensor"
)

// OpActivation is the registered name of the activation operator.
const OpActivation = "Activation"

// ActivationKernel is the per-device activation implementation.
type ActivationKernel interface {
	Compute(ctx context.Context, input, alpha, output *tensor.RawTensor, fut *future.Future) error
}

var (
	_ ActivationKernel = (*cpu.Activation)(nil)
	_ ActivationKernel = (*simd.Activation)(nil)
	_ ActivationKernel = (*gpu.Activation)(nil)
)

// ActivationOp applies an elementwise or channelwise activation.
// Inputs: x and, for PRELU, alpha. Outputs: y.
type ActivationOp struct {
	def    *OperatorDef
	kind   kernels.ActivationKind
	kernel ActivationKernel
}

// NewActivationOp reads the "activation" and "max_limit" arguments and
// builds the kernel for the selected device.
func NewActivationOp(c *ConstructContext) (Operator, error) {
	name := c.Def.GetArgString(ArgActivation, kernels.None.String())
	kind, err := kernels.ParseActivation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfiguration, OpActivation, err)
	}
	limit := c.Def.GetArgFloat(ArgMaxLimit, 0)

	var kernel ActivationKernel
	switch c.Device {
	case tensor.CPU:
		kernel, err = cpu.New(c.Parallel).NewActivation(kind, float64(limit))
	case tensor.SIMD:
		kernel, err = simd.NewActivation(kind, float64(limit), c.Parallel)
	case tensor.GPU:
		if c.Runtime == nil {
			return nil, fmt.Errorf("%w: %s on GPU needs a runtime", ErrInvalidConfiguration, OpActivation)
		}
		kernel, err = gpu.NewActivation(c.Runtime, kind, limit)
	default:
		return nil, fmt.Errorf("%w: %s on %s", ErrNotImplemented, OpActivation, c.Device)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfiguration, OpActivation, err)
	}
	return &ActivationOp{def: c.Def, kind: kind, kernel: kernel}, nil
}

// Def implements Operator.
func (op *ActivationOp) Def() *OperatorDef { return op.def }

// Kind returns the activation kind.
func (op *ActivationOp) Kind() kernels.ActivationKind { return op.kind }

// Kernel returns the device kernel.
func (op *ActivationOp) Kernel() ActivationKernel { return op.kernel }

// Run implements Operator.
func (op *ActivationOp) Run(c *OpContext) error {
	input := c.input(0)
	if input == nil || len(c.Outputs) == 0 || c.Outputs[0] == nil {
		return fmt.Errorf("%s: %w: needs an input and an output", OpActivation, ErrMissingRequiredInput)
	}
	return op.kernel.Compute(c.ctx(), input, c.input(1), c.Outputs[0], c.Future)
}
