package gpu

import (
	"fmt"
	"strings"
)

// Runtime names accepted by Open.
const (
	RuntimeSoftware = "software"
	RuntimeWebGPU   = "webgpu"
)

var (
	_ Runtime = (*SoftwareRuntime)(nil)
	_ Runtime = (*WebGPURuntime)(nil)
)

// Open creates the runtime called name.
func Open(name string, opts ...Option) (Runtime, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case RuntimeSoftware, "":
		return NewSoftwareRuntime(opts...), nil
	case RuntimeWebGPU:
		rt, err := NewWebGPURuntime(opts...)
		if err != nil {
			return nil, err
		}
		return rt, nil
	default:
		return nil, fmt.Errorf("%w: unknown runtime %q (expected %s or %s)", ErrUnavailable, name, RuntimeSoftware, RuntimeWebGPU)
	}
}

// Available reports whether the runtime called name can be opened here.
// Opening webgpu probes the native library, so the probe runtime is closed
// straight away.
func Available(name string) bool {
	rt, err := Open(name, WithQueueDepth(1))
	if err != nil {
		return false
	}
	_ = rt.Close()
	return true
}
