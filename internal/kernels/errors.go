package kernels

import "errors"

var (
	// ErrUnknownActivation is returned for activation kinds or names that
	// the elementwise kernel does not handle.
	ErrUnknownActivation = errors.New("unknown activation type")

	// ErrUnsupportedElementType is returned when a kernel receives a dtype
	// it cannot compute in, such as half precision.
	ErrUnsupportedElementType = errors.New("unsupported element type")

	// ErrShapeMismatch is returned when buffer lengths disagree with the
	// requested index space.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrMissingInput is returned when a required input tensor is nil,
	// such as the alpha tensor of a parametric ReLU.
	ErrMissingInput = errors.New("missing required input")
)
