// Package kernels holds the device-independent numeric kernels behind the
// activation and recurrent-cell operators.
//
// Kernels are pure functions over typed slices. They allocate nothing,
// never retain their arguments, and split work with internal/parallel over
// disjoint index ranges, so they are safe to call from any backend.
//
// Tanh is evaluated as
//
//	e = exp(-2x); (1 - e) / (1 + e)
//
// rather than with math.Tanh. Every backend (portable loops, SIMD lanes and
// GPU programs) uses the same formulation so results agree across devices.
package kernels
