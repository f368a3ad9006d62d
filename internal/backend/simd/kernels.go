package simd

import (
	"github.com/ajroetker/go-highway/hwy"
	hwymath "github.com/ajroetker/go-highway/hwy/contrib/math"
	"github.com/born-ml/opengine/internal/kernels"
	"github.com/born-ml/opengine/internal/tensor"
)

// Each kernel runs full vectors over the front of the range and finishes
// the remainder with the scalar formula from internal/kernels.

// expCeiling bounds the argument of exp in tanh so e stays finite.
func expCeiling[T tensor.Float]() T {
	var zero T
	if _, ok := any(zero).(float32); ok {
		return 80
	}
	return 700
}

func reluVec[T tensor.Float](in, out []T) {
	lanes := hwy.MaxLanes[T]()
	zero := hwy.Zero[T]()
	i := 0
	for ; i+lanes <= len(out); i += lanes {
		hwy.Store(hwy.Max(hwy.Load(in[i:]), zero), out[i:])
	}
	for ; i < len(out); i++ {
		out[i] = max(in[i], 0)
	}
}

func boundedReLUVec[T tensor.Float](in, out []T, limit T) {
	lanes := hwy.MaxLanes[T]()
	zero := hwy.Zero[T]()
	ceil := hwy.Set(limit)
	i := 0
	for ; i+lanes <= len(out); i += lanes {
		hwy.Store(hwy.Min(hwy.Max(hwy.Load(in[i:]), zero), ceil), out[i:])
	}
	for ; i < len(out); i++ {
		out[i] = min(max(in[i], 0), limit)
	}
}

// tanhVec computes (1 - e) / (1 + e) with e = exp(-2x).
func tanhVec[T tensor.Float](in, out []T) {
	lanes := hwy.MaxLanes[T]()
	one := hwy.Set(T(1))
	minusTwo := hwy.Set(T(-2))
	ceil := hwy.Set(expCeiling[T]())
	i := 0
	for ; i+lanes <= len(out); i += lanes {
		e := hwymath.BaseExpVec(hwy.Min(hwy.Mul(hwy.Load(in[i:]), minusTwo), ceil))
		hwy.Store(hwy.Div(hwy.Sub(one, e), hwy.Add(one, e)), out[i:])
	}
	for ; i < len(out); i++ {
		out[i] = kernels.TanhOf(in[i])
	}
}

func sigmoidVec[T tensor.Float](in, out []T) {
	lanes := hwy.MaxLanes[T]()
	one := hwy.Set(T(1))
	i := 0
	for ; i+lanes <= len(out); i += lanes {
		e := hwymath.BaseExpVec(hwy.Neg(hwy.Load(in[i:])))
		hwy.Store(hwy.Div(one, hwy.Add(one, e)), out[i:])
	}
	for ; i < len(out); i++ {
		out[i] = kernels.SigmoidOf(in[i])
	}
}

// preluRowVec applies PReLU to one NHWC pixel: len(alpha) channels.
func preluRowVec[T tensor.Float](in, out, alpha []T) {
	lanes := hwy.MaxLanes[T]()
	zero := hwy.Zero[T]()
	c := 0
	for ; c+lanes <= len(alpha); c += lanes {
		x := hwy.Load(in[c:])
		neg := hwy.LessThan(x, zero)
		hwy.Store(hwy.IfThenElse(neg, hwy.Mul(x, hwy.Load(alpha[c:])), x), out[c:])
	}
	for ; c < len(alpha); c++ {
		if x := in[c]; x < 0 {
			out[c] = x * alpha[c]
		} else {
			out[c] = x
		}
	}
}
