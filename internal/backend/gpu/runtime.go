// Package gpu implements the asynchronous GPU backend: a command-queue
// runtime abstraction, its software and WebGPU implementations, and the
// device-resident activation and LSTM-cell kernels built on top of it.
package gpu

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/born-ml/opengine/internal/future"
)

var (
	// ErrDeviceFailure wraps program build and enqueue failures.
	ErrDeviceFailure = errors.New("gpu: device failure")

	// ErrUnavailable is returned when a runtime cannot be opened in this build
	// or on this machine.
	ErrUnavailable = errors.New("gpu: runtime unavailable")
)

// MemoryType is the storage model a runtime uses for device tensors.
type MemoryType int

// Memory models. Image-backed memory is the default.
const (
	MemoryImage MemoryType = iota
	MemoryBuffer
)

// String returns the configuration spelling of the memory type.
func (m MemoryType) String() string {
	switch m {
	case MemoryImage:
		return "image"
	case MemoryBuffer:
		return "buffer"
	default:
		return "unknown"
	}
}

// ParseMemoryType resolves "image" or "buffer".
func ParseMemoryType(s string) (MemoryType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image", "":
		return MemoryImage, nil
	case "buffer":
		return MemoryBuffer, nil
	default:
		return 0, fmt.Errorf("unknown gpu memory type %q (expected image or buffer)", s)
	}
}

// Program is a compiled device program.
type Program interface {
	// Key identifies the program and its build options in the runtime cache.
	Key() string
	// MaxWorkGroupSize is the largest local size the program can dispatch with.
	MaxWorkGroupSize() uint32
}

// Dispatch is one kernel launch. Bindings are laid out as Inputs, then
// Outputs, then one uniform block holding Params.
type Dispatch struct {
	Program Program
	Label   string
	Inputs  [][]float32
	Outputs [][]float32
	Params  []uint32
	Global  uint32 // global work items, a multiple of Local
	Local   uint32 // work-group size
}

// F32 encodes a float parameter as a uniform word.
func F32(v float32) uint32 {
	return math.Float32bits(v)
}

// Runtime is a device command queue. Commands run in enqueue order.
type Runtime interface {
	Name() string
	MemoryType() MemoryType
	// BuildProgram compiles (or returns the cached) program name with defines.
	BuildProgram(name string, defines ...string) (Program, error)
	// Enqueue schedules d and returns without waiting for it.
	Enqueue(d Dispatch) (*future.Event, error)
	// Finish waits for every command enqueued so far.
	Finish(ctx context.Context) error
	Close() error
}

// RoundUp returns the smallest multiple of local that is >= n.
func RoundUp(n, local uint32) uint32 {
	if local == 0 {
		return n
	}
	return (n + local - 1) / local * local
}

// validateDispatch checks the launch geometry against the program limits.
func validateDispatch(d *Dispatch) error {
	if d.Program == nil {
		return fmt.Errorf("%w: dispatch %q has no program", ErrDeviceFailure, d.Label)
	}
	if d.Local == 0 || d.Local > d.Program.MaxWorkGroupSize() {
		return fmt.Errorf("%w: local size %d outside [1, %d] for %s",
			ErrDeviceFailure, d.Local, d.Program.MaxWorkGroupSize(), d.Program.Key())
	}
	if d.Global%d.Local != 0 {
		return fmt.Errorf("%w: global size %d is not a multiple of local size %d", ErrDeviceFailure, d.Global, d.Local)
	}
	return nil
}

// programKey builds the cache key for name and its defines.
func programKey(name string, defines []string) string {
	if len(defines) == 0 {
		return name
	}
	return name + " -D" + strings.Join(defines, " -D")
}
