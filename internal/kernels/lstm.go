package kernels

import (
	"fmt"

	"github.com/born-ml/opengine/internal/parallel"
	"github.com/born-ml/opengine/internal/tensor"
)

// LSTMDims describes the extents of one LSTM cell step.
type LSTMDims struct {
	Batch     int
	InputSize int
	Units     int
}

// Gate blocks inside the 4*Units gate vector.
const (
	gateInput = iota
	gateCell
	gateForget
	gateOutput
	numGates
)

// Validate checks buffer lengths against d:
//
//	input     [Batch, InputSize]
//	preOutput [Batch, Units]
//	weight    [InputSize+Units, 4*Units]
//	bias      [4*Units]
//	preCell   [Batch, Units]
//	cell      [Batch, Units]
//	output    [Batch, Units]
func (d LSTMDims) Validate(input, preOutput, weight, bias, preCell, cell, output int) error {
	if d.Batch <= 0 || d.InputSize <= 0 || d.Units <= 0 {
		return fmt.Errorf("%w: lstm dims %+v", ErrShapeMismatch, d)
	}
	state := d.Batch * d.Units
	checks := []struct {
		name      string
		got, want int
	}{
		{"input", input, d.Batch * d.InputSize},
		{"pre_output", preOutput, state},
		{"weight", weight, (d.InputSize + d.Units) * numGates * d.Units},
		{"bias", bias, numGates * d.Units},
		{"pre_cell", preCell, state},
		{"cell", cell, state},
		{"output", output, state},
	}
	for _, c := range checks {
		if c.got != c.want {
			return fmt.Errorf("%w: lstm %s has %d elements, want %d", ErrShapeMismatch, c.name, c.got, c.want)
		}
	}
	return nil
}

// LSTMCell computes one LSTM step on the host:
//
//	gates  = [input, preOutput] @ weight + bias
//	i, j, f, o = split(gates, 4)
//	cell   = sigmoid(f + forgetBias)*preCell + sigmoid(i)*tanh(j)
//	output = sigmoid(o) * tanh(cell)
//
// It is the reference for device LSTM programs.
func LSTMCell[T tensor.Float](input, preOutput, weight, bias, preCell, cell, output []T, d LSTMDims, forgetBias T, cfg parallel.Config) error {
	if err := d.Validate(len(input), len(preOutput), len(weight), len(bias), len(preCell), len(cell), len(output)); err != nil {
		return err
	}

	units := d.Units
	width := numGates * units
	parallel.ForRange(d.Batch*units, func(start, end int) {
		var gates [numGates]T
		for k := start; k < end; k++ {
			b, u := k/units, k%units
			for g := range gates {
				gates[g] = bias[g*units+u]
			}
			x := input[b*d.InputSize : (b+1)*d.InputSize]
			for i, v := range x {
				row := weight[i*width:]
				for g := range gates {
					gates[g] += v * row[g*units+u]
				}
			}
			h := preOutput[b*units : (b+1)*units]
			for i, v := range h {
				row := weight[(d.InputSize+i)*width:]
				for g := range gates {
					gates[g] += v * row[g*units+u]
				}
			}

			ig := SigmoidOf(gates[gateInput])
			jg := TanhOf(gates[gateCell])
			fg := SigmoidOf(gates[gateForget] + forgetBias)
			og := SigmoidOf(gates[gateOutput])

			c := fg*preCell[k] + ig*jg
			cell[k] = c
			output[k] = og * TanhOf(c)
		}
	}, cfg)
	return nil
}
