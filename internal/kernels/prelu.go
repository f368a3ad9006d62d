package kernels

import (
	"fmt"

	"github.com/born-ml/opengine/internal/parallel"
	"github.com/born-ml/opengine/internal/tensor"
)

// PReLU applies the parametric ReLU over an outer x channels x inner index
// space, linearized as (o*channels+c)*inner + i. Negative inputs are scaled
// by alpha[c]; others pass through.
func PReLU[T tensor.Float](input []T, outer, channels, inner int, alpha, output []T, cfg parallel.Config) error {
	n := outer * channels * inner
	if outer < 0 || channels < 0 || inner < 0 {
		return fmt.Errorf("%w: negative extent %dx%dx%d", ErrShapeMismatch, outer, channels, inner)
	}
	if len(input) < n || len(output) < n {
		return fmt.Errorf("%w: need %d elements, input has %d, output %d", ErrShapeMismatch, n, len(input), len(output))
	}
	if len(alpha) != channels {
		return fmt.Errorf("%w: alpha has %d elements, want %d channels", ErrShapeMismatch, len(alpha), channels)
	}

	parallel.ForBatch(outer, channels, func(o, c int) {
		a := alpha[c]
		base := (o*channels + c) * inner
		for i := base; i < base+inner; i++ {
			if x := input[i]; x < 0 {
				output[i] = x * a
			} else {
				output[i] = x
			}
		}
	}, cfg)
	return nil
}

// ApplyPReLU is the runtime-typed form of PReLU.
func ApplyPReLU(input, alpha, output *tensor.RawTensor, outer, channels, inner int, cfg parallel.Config) error {
	dt := output.DType()
	if input.DType() != dt || alpha.DType() != dt {
		return fmt.Errorf("%w: input %s, alpha %s, output %s", ErrUnsupportedElementType, input.DType(), alpha.DType(), dt)
	}

	switch dt {
	case tensor.Float32:
		return PReLU(input.AsFloat32(), outer, channels, inner, alpha.AsFloat32(), output.AsFloat32(), cfg)
	case tensor.Float64:
		return PReLU(input.AsFloat64(), outer, channels, inner, alpha.AsFloat64(), output.AsFloat64(), cfg)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedElementType, dt)
	}
}

// NHWCExtents splits an NHWC shape into the PReLU index space:
// outer = N*H*W, channels = C, inner = 1.
func NHWCExtents(shape tensor.Shape) (outer, channels, inner int, err error) {
	if len(shape) != 4 {
		return 0, 0, 0, fmt.Errorf("%w: prelu needs an NHWC shape, got %v", ErrShapeMismatch, shape)
	}
	return shape[0] * shape[1] * shape[2], shape[3], 1, nil
}
