//go:build !windows

package gpu

import (
	"context"
	"fmt"

	"github.com/born-ml/opengine/internal/future"
)

// WebGPURuntime is only available on windows builds.
type WebGPURuntime struct{}

// NewWebGPURuntime always fails on this platform.
func NewWebGPURuntime(...Option) (*WebGPURuntime, error) {
	return nil, fmt.Errorf("%w: webgpu runtime is not built for this platform", ErrUnavailable)
}

func (*WebGPURuntime) Name() string           { return "webgpu" }
func (*WebGPURuntime) MemoryType() MemoryType { return MemoryImage }

func (*WebGPURuntime) BuildProgram(string, ...string) (Program, error) {
	return nil, ErrUnavailable
}

func (*WebGPURuntime) Enqueue(Dispatch) (*future.Event, error) {
	return nil, ErrUnavailable
}

func (*WebGPURuntime) Finish(context.Context) error { return ErrUnavailable }
func (*WebGPURuntime) Close() error                 { return nil }
