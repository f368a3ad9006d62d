package kernels

import (
	"fmt"
	"math"

	"github.com/born-ml/opengine/internal/parallel"
	"github.com/born-ml/opengine/internal/tensor"
)

// ActivationKind enumerates the supported nonlinearities.
type ActivationKind int

// Activation kinds. The zero value is None.
const (
	None ActivationKind = iota
	ReLU
	BoundedReLU
	ParametricReLU
	Tanh
	Sigmoid
)

var activationNames = [...]string{
	None:           "NOOP",
	ReLU:           "RELU",
	BoundedReLU:    "RELUX",
	ParametricReLU: "PRELU",
	Tanh:           "TANH",
	Sigmoid:        "SIGMOID",
}

// String returns the textual attribute encoding of the kind.
func (k ActivationKind) String() string {
	if k < 0 || int(k) >= len(activationNames) {
		return fmt.Sprintf("ActivationKind(%d)", int(k))
	}
	return activationNames[k]
}

// Valid reports whether k is one of the declared kinds.
func (k ActivationKind) Valid() bool {
	return k >= None && k <= Sigmoid
}

// ParseActivation resolves an operator attribute string. Matching is exact:
// "NOOP", "RELU", "RELUX", "PRELU", "TANH" or "SIGMOID".
func ParseActivation(s string) (ActivationKind, error) {
	for k, name := range activationNames {
		if name == s {
			return ActivationKind(k), nil
		}
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownActivation, s)
}

// SigmoidOf returns 1 / (1 + exp(-x)).
func SigmoidOf[T tensor.Float](x T) T {
	return T(1 / (1 + math.Exp(-float64(x))))
}

// TanhOf returns (1 - e) / (1 + e) with e = exp(-2x).
// When e overflows the quotient's limit, -1, is returned.
func TanhOf[T tensor.Float](x T) T {
	e := math.Exp(-2 * float64(x))
	if math.IsInf(e, 1) {
		return -1
	}
	return T((1 - e) / (1 + e))
}

// DoActivation applies kind to every element of input and writes output.
// len(output) is the element count; input and output may alias.
// ParametricReLU is channelwise and must go through PReLU instead.
func DoActivation[T tensor.Float](input, output []T, kind ActivationKind, limit T, cfg parallel.Config) error {
	n := len(output)
	if len(input) < n {
		return fmt.Errorf("%w: input has %d elements, output %d", ErrShapeMismatch, len(input), n)
	}
	input = input[:n]

	switch kind {
	case None:
		if n > 0 && &input[0] != &output[0] {
			copy(output, input)
		}
	case ReLU:
		parallel.ForRange(n, func(start, end int) {
			for i := start; i < end; i++ {
				output[i] = max(input[i], 0)
			}
		}, cfg)
	case BoundedReLU:
		parallel.ForRange(n, func(start, end int) {
			for i := start; i < end; i++ {
				output[i] = min(max(input[i], 0), limit)
			}
		}, cfg)
	case Tanh:
		parallel.ForRange(n, func(start, end int) {
			for i := start; i < end; i++ {
				output[i] = TanhOf(input[i])
			}
		}, cfg)
	case Sigmoid:
		parallel.ForRange(n, func(start, end int) {
			for i := start; i < end; i++ {
				output[i] = SigmoidOf(input[i])
			}
		}, cfg)
	case ParametricReLU:
		return fmt.Errorf("%w: %s is channelwise, use PReLU", ErrUnknownActivation, kind)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownActivation, kind)
	}
	return nil
}

// ApplyActivation is the runtime-typed form of DoActivation.
// Both tensors must share dtype and element count; half precision is rejected.
func ApplyActivation(input, output *tensor.RawTensor, kind ActivationKind, limit float64, cfg parallel.Config) error {
	if input.DType() != output.DType() {
		return fmt.Errorf("%w: input %s, output %s", ErrUnsupportedElementType, input.DType(), output.DType())
	}
	if input.NumElements() != output.NumElements() {
		return fmt.Errorf("%w: input %v, output %v", ErrShapeMismatch, input.Shape(), output.Shape())
	}

	switch output.DType() {
	case tensor.Float32:
		return DoActivation(input.AsFloat32(), output.AsFloat32(), kind, float32(limit), cfg)
	case tensor.Float64:
		return DoActivation(input.AsFloat64(), output.AsFloat64(), kind, limit, cfg)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedElementType, output.DType())
	}
}
