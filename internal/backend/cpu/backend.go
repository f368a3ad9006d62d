// Package cpu implements the Generic backend: portable host loops split
// across goroutines by internal/parallel.
package cpu

import (
	"github.com/born-ml/opengine/internal/kernels"
	"github.com/born-ml/opengine/internal/parallel"
	"github.com/born-ml/opengine/internal/tensor"
)

// CPUBackend builds host operator kernels that share one parallel config.
type CPUBackend struct {
	device tensor.Device
	par    parallel.Config
}

// New creates a new CPU backend.
func New(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
		par:    cfg,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Parallel returns the loop-splitting configuration.
func (cpu *CPUBackend) Parallel() parallel.Config {
	return cpu.par
}

// NewActivation returns an activation kernel of kind running on this backend.
func (cpu *CPUBackend) NewActivation(kind kernels.ActivationKind, limit float64) (*Activation, error) {
	return NewActivation(kind, limit, cpu.par)
}
