package kernels

import (
	"math"
	"testing"

	"github.com/born-ml/opengine/internal/parallel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sigmoid64(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// referenceLSTM recomputes one step with math.Tanh and explicit gate slicing.
func referenceLSTM(input, preOutput, weight, bias, preCell []float64, d LSTMDims, forgetBias float64) (cell, output []float64) {
	u := d.Units
	cell = make([]float64, d.Batch*u)
	output = make([]float64, d.Batch*u)
	for b := 0; b < d.Batch; b++ {
		concat := append(append([]float64{}, input[b*d.InputSize:(b+1)*d.InputSize]...), preOutput[b*u:(b+1)*u]...)
		gates := make([]float64, 4*u)
		for g := range gates {
			gates[g] = bias[g]
			for r, v := range concat {
				gates[g] += v * weight[r*4*u+g]
			}
		}
		for k := 0; k < u; k++ {
			i := sigmoid64(gates[k])
			j := math.Tanh(gates[u+k])
			f := sigmoid64(gates[2*u+k] + forgetBias)
			o := sigmoid64(gates[3*u+k])
			c := f*preCell[b*u+k] + i*j
			cell[b*u+k] = c
			output[b*u+k] = o * math.Tanh(c)
		}
	}
	return cell, output
}

func fill(n int, seed float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(seed+float64(i)*0.37) * 0.8
	}
	return out
}

func TestLSTMCell_MatchesReference(t *testing.T) {
	d := LSTMDims{Batch: 2, InputSize: 3, Units: 4}
	input := fill(d.Batch*d.InputSize, 0.1)
	preOutput := fill(d.Batch*d.Units, 1.3)
	weight := fill((d.InputSize+d.Units)*4*d.Units, 2.7)
	bias := fill(4*d.Units, 4.2)
	preCell := fill(d.Batch*d.Units, 5.9)

	cell := make([]float64, d.Batch*d.Units)
	output := make([]float64, d.Batch*d.Units)
	cfg := parallel.Config{Enabled: true, NumWorkers: 2, MinChunkSize: 1}
	require.NoError(t, LSTMCell(input, preOutput, weight, bias, preCell, cell, output, d, 1.0, cfg))

	wantCell, wantOut := referenceLSTM(input, preOutput, weight, bias, preCell, d, 1.0)
	assert.InDeltaSlice(t, wantCell, cell, 1e-9)
	assert.InDeltaSlice(t, wantOut, output, 1e-9)
}

func TestLSTMCell_ZeroWeights(t *testing.T) {
	// All gates are sigmoid(0)=0.5 and tanh(0)=0, so cell = 0.5*preCell.
	d := LSTMDims{Batch: 1, InputSize: 2, Units: 2}
	cell := make([]float32, 2)
	output := make([]float32, 2)
	err := LSTMCell(
		[]float32{1, 2}, []float32{3, 4},
		make([]float32, (2+2)*8), make([]float32, 8),
		[]float32{2, -4}, cell, output, d, 0, parallel.Sequential())
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float32{1, -2}, cell, eps)
	assert.InDelta(t, 0.5*math.Tanh(1), float64(output[0]), eps)
	assert.InDelta(t, 0.5*math.Tanh(-2), float64(output[1]), eps)
}

func TestLSTMDims_Validate(t *testing.T) {
	d := LSTMDims{Batch: 1, InputSize: 2, Units: 3}
	assert.NoError(t, d.Validate(2, 3, 60, 12, 3, 3, 3))
	assert.ErrorIs(t, d.Validate(2, 3, 59, 12, 3, 3, 3), ErrShapeMismatch)
	assert.ErrorIs(t, LSTMDims{}.Validate(0, 0, 0, 0, 0, 0, 0), ErrShapeMismatch)
}
