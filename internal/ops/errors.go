package ops

import (
	"errors"

	"github.com/born-ml/opengine/internal/kernels"
)

var (
	// ErrInvalidConfiguration is returned at construction for bad operator
	// arguments, such as an unknown activation name.
	ErrInvalidConfiguration = errors.New("invalid operator configuration")

	// ErrNotImplemented is returned at construction when an operator has no
	// implementation for the selected device or memory model.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnregistered is returned when no creator matches an operator key.
	ErrUnregistered = errors.New("operator not registered")

	// ErrDuplicateRegistration is returned when a key is registered twice.
	ErrDuplicateRegistration = errors.New("operator already registered")

	// ErrMissingRequiredInput is returned at run time when a required tensor
	// is absent.
	ErrMissingRequiredInput = kernels.ErrMissingInput
)
