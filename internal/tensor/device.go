package tensor

import (
	"fmt"
	"strings"
)

// Device selects the backend that executes an operator.
type Device int

// Supported compute devices.
const (
	CPU  Device = iota // portable host loops
	SIMD               // vectorized host loops
	GPU                // asynchronous command queue
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case SIMD:
		return "SIMD"
	case GPU:
		return "GPU"
	default:
		return "Unknown"
	}
}

// ParseDevice resolves a device tag from configuration or CLI input.
// "neon" is accepted as an alias for SIMD.
func ParseDevice(s string) (Device, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cpu", "generic", "":
		return CPU, nil
	case "simd", "neon":
		return SIMD, nil
	case "gpu", "opencl", "webgpu":
		return GPU, nil
	default:
		return 0, fmt.Errorf("unknown device %q (expected cpu, simd, or gpu)", s)
	}
}

// Devices returns all device tags in declaration order.
func Devices() []Device {
	return []Device{CPU, SIMD, GPU}
}
