package gpu

import (
	"github.com/born-ml/opengine/internal/tensor"
	"github.com/sirupsen/logrus"
)

// boundKernel caches the program and launch geometry a kernel was last built
// for. It is valid only for inputs of the recorded shape.
type boundKernel struct {
	rt      Runtime
	name    string
	defines []string
	prefix  string
	log     *logrus.Entry

	bound     bool
	shape     tensor.Shape
	program   Program
	local     uint32
	global    uint32
	tuningKey string
	builds    int
}

// bind makes the kernel valid for shape with n work items, rebuilding only
// when shape differs from the cached one. A failed build leaves it unbound.
func (k *boundKernel) bind(shape tensor.Shape, n int) error {
	if k.bound && k.shape.Equal(shape) {
		return nil
	}
	k.bound = false

	prog, err := k.rt.BuildProgram(k.name, k.defines...)
	if err != nil {
		return err
	}
	k.program = prog
	k.local = prog.MaxWorkGroupSize()
	k.global = RoundUp(uint32(n), k.local)
	k.tuningKey = k.prefix + shape.Key()
	k.shape = shape.Clone()
	k.bound = true
	k.builds++

	k.log.WithFields(logrus.Fields{
		"program":    prog.Key(),
		"shape":      shape.Key(),
		"tuning_key": k.tuningKey,
		"local":      k.local,
	}).Debug("kernel rebound")
	return nil
}
