package ops

import (
	"fmt"

	"github.com/born-ml/opengine/internal/backend/gpu"
	"github.com/born-ml/opengine/internal/tensor"
)

// OpLSTMCell is the registered name of the LSTM cell operator.
const OpLSTMCell = "LSTMCell"

// LSTMCellOp runs one LSTM step on the GPU.
// Inputs: input, pre_output, weight, bias, pre_cell. Outputs: cell, output.
type LSTMCellOp struct {
	def    *OperatorDef
	kernel *gpu.LSTMCell
}

// NewLSTMCellOp reads the forget bias from "scalar_input" (default 0).
// Only image memory has an implementation.
func NewLSTMCellOp(c *ConstructContext) (Operator, error) {
	if c.Device != tensor.GPU {
		return nil, fmt.Errorf("%w: %s on %s", ErrNotImplemented, OpLSTMCell, c.Device)
	}
	if c.Runtime == nil {
		return nil, fmt.Errorf("%w: %s needs a GPU runtime", ErrInvalidConfiguration, OpLSTMCell)
	}
	if mem := c.Runtime.MemoryType(); mem != gpu.MemoryImage {
		return nil, fmt.Errorf("%w: %s with %s memory", ErrNotImplemented, OpLSTMCell, mem)
	}

	forgetBias := c.Def.GetArgFloat(ArgScalarInput, 0)
	kernel, err := gpu.NewLSTMCell(c.Runtime, forgetBias)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfiguration, OpLSTMCell, err)
	}
	return &LSTMCellOp{def: c.Def, kernel: kernel}, nil
}

// Def implements Operator.
func (op *LSTMCellOp) Def() *OperatorDef { return op.def }

// Kernel returns the device kernel.
func (op *LSTMCellOp) Kernel() *gpu.LSTMCell { return op.kernel }

// Run implements Operator.
func (op *LSTMCellOp) Run(c *OpContext) error {
	if len(c.Inputs) != 5 || len(c.Outputs) != 2 {
		return fmt.Errorf("%s: %w: needs 5 inputs and 2 outputs, got %d and %d",
			OpLSTMCell, ErrMissingRequiredInput, len(c.Inputs), len(c.Outputs))
	}
	in, out := c.Inputs, c.Outputs
	return op.kernel.Compute(c.ctx(), in[0], in[1], in[2], in[3], in[4], out[0], out[1], c.Future)
}
