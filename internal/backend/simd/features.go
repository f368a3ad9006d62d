package simd

import (
	"runtime"

	"github.com/ajroetker/go-highway/hwy"
	"golang.org/x/sys/cpu"
)

// Features lists the vector extensions the host CPU reports.
func Features() []string {
	var out []string
	add := func(ok bool, name string) {
		if ok {
			out = append(out, name)
		}
	}
	switch runtime.GOARCH {
	case "amd64", "386":
		add(cpu.X86.HasSSE2, "sse2")
		add(cpu.X86.HasSSE41, "sse4.1")
		add(cpu.X86.HasAVX, "avx")
		add(cpu.X86.HasAVX2, "avx2")
		add(cpu.X86.HasFMA, "fma")
		add(cpu.X86.HasAVX512F, "avx512f")
	case "arm64":
		add(cpu.ARM64.HasASIMD, "neon")
		add(cpu.ARM64.HasASIMDHP, "neon-fp16")
		add(cpu.ARM64.HasSVE, "sve")
		add(cpu.ARM64.HasSVE2, "sve2")
	}
	return out
}

// Lanes returns how many float32 and float64 values one vector holds.
func Lanes() (f32, f64 int) {
	return hwy.MaxLanes[float32](), hwy.MaxLanes[float64]()
}
