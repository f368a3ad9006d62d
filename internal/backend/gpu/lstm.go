package gpu

import (
	"context"
	"fmt"

	"github.com/born-ml/opengine/internal/future"
	"github.com/born-ml/opengine/internal/kernels"
	"github.com/born-ml/opengine/internal/logging"
	"github.com/born-ml/opengine/internal/tensor"
)

// LSTMCell is the device kernel for one LSTM step. It owns the compiled
// program for the whole gate computation; recurrence state is passed in.
type LSTMCell struct {
	forgetBias float32
	kernel     boundKernel
}

// NewLSTMCell prepares an LSTM cell kernel with the given forget bias.
func NewLSTMCell(rt Runtime, forgetBias float32) (*LSTMCell, error) {
	if rt == nil {
		return nil, fmt.Errorf("%w: nil runtime", ErrUnavailable)
	}
	return &LSTMCell{
		forgetBias: forgetBias,
		kernel: boundKernel{
			rt:     rt,
			name:   ProgramLSTMCell,
			prefix: "lstmcell_",
			log:    logging.Component("gpu").WithField("op", "lstmcell"),
		},
	}, nil
}

// ForgetBias returns the bias added to the forget gate.
func (l *LSTMCell) ForgetBias() float32 { return l.forgetBias }

// Builds returns how many times the kernel was (re)built.
func (l *LSTMCell) Builds() int { return l.kernel.builds }

// Compute enqueues one step:
//
//	input [batch, in], preOutput [batch, units], weight [in+units, 4*units],
//	bias [4*units], preCell [batch, units] -> cell, output [batch, units]
func (l *LSTMCell) Compute(_ context.Context, input, preOutput, weight, bias, preCell, cell, output *tensor.RawTensor, fut *future.Future) error {
	fut.Set(nil)
	all := []*tensor.RawTensor{input, preOutput, weight, bias, preCell, cell, output}
	for i, t := range all {
		if t == nil {
			return fmt.Errorf("lstmcell: %w: tensor %d", kernels.ErrMissingInput, i)
		}
		if t.DType() != tensor.Float32 {
			return fmt.Errorf("lstmcell: %w: tensor %d is %s", kernels.ErrUnsupportedElementType, i, t.DType())
		}
	}
	if input.Rank() != 2 || preOutput.Rank() != 2 {
		return fmt.Errorf("lstmcell: %w: input %v and previous output %v must be rank 2",
			kernels.ErrShapeMismatch, input.Shape(), preOutput.Shape())
	}
	dims := kernels.LSTMDims{Batch: input.Dim(0), InputSize: input.Dim(1), Units: preOutput.Dim(1)}
	if preOutput.Dim(0) != dims.Batch {
		return fmt.Errorf("lstmcell: %w: batch %d vs %d", kernels.ErrShapeMismatch, preOutput.Dim(0), dims.Batch)
	}
	err := dims.Validate(input.NumElements(), preOutput.NumElements(), weight.NumElements(),
		bias.NumElements(), preCell.NumElements(), cell.NumElements(), output.NumElements())
	if err != nil {
		return fmt.Errorf("lstmcell: %w", err)
	}

	n := dims.Batch * dims.Units
	if err := l.kernel.bind(tensor.Shape{dims.Batch, dims.InputSize, dims.Units}, n); err != nil {
		return fmt.Errorf("lstmcell: %w", err)
	}

	ev, err := l.kernel.rt.Enqueue(Dispatch{
		Program: l.kernel.program,
		Label:   l.kernel.tuningKey,
		Inputs: [][]float32{
			input.AsFloat32(), preOutput.AsFloat32(), weight.AsFloat32(),
			bias.AsFloat32(), preCell.AsFloat32(),
		},
		Outputs: [][]float32{cell.AsFloat32(), output.AsFloat32()},
		Params:  LSTMParams(dims, l.forgetBias),
		Global:  l.kernel.global,
		Local:   l.kernel.local,
	})
	if err != nil {
		return fmt.Errorf("lstmcell: %w", err)
	}
	fut.Set(ev)
	return nil
}
