// Package tensor provides the tensor types consumed by operator kernels.
package tensor

import (
	"fmt"
	"strings"
)

// Float is the constraint for element types the numeric kernels accept.
// Half precision is a storage type only and has no Go arithmetic type.
type Float interface {
	float32 | float64
}

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types for tensors.
const (
	Float32 DataType = iota
	Float64
	Float16
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32:
		return 4
	case Float64:
		return 8
	case Float16:
		return 2
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Float16:
		return "float16"
	default:
		return "unknown"
	}
}

// ParseDataType resolves a textual element type ("float32", "half", ...).
func ParseDataType(s string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "float32", "float", "f32":
		return Float32, nil
	case "float64", "double", "f64":
		return Float64, nil
	case "float16", "half", "f16":
		return Float16, nil
	default:
		return 0, fmt.Errorf("unknown data type %q (expected float32, float64, or float16)", s)
	}
}

// DataTypeOf returns the DataType matching the type parameter T.
func DataTypeOf[T Float]() DataType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	default:
		return Float64
	}
}
