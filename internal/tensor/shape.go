package tensor

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Shape holds tensor dimensions, outermost first. Activation inputs are
// NHWC; LSTM inputs are [batch, features].
type Shape []int

// NumElements returns the element count; a rank-0 shape holds one.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate reports the first non-positive dimension.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	return slices.Equal(s, other)
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	return slices.Clone(s)
}

// ComputeStrides returns row-major strides.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// Key renders the shape as a compact cache key fragment, e.g. "1x8x8x3".
func (s Shape) Key() string {
	if len(s) == 0 {
		return "scalar"
	}
	var b strings.Builder
	for i, dim := range s {
		if i > 0 {
			b.WriteByte('x')
		}
		b.WriteString(strconv.Itoa(dim))
	}
	return b.String()
}
