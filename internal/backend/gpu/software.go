package gpu

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/born-ml/opengine/internal/future"
	"github.com/sirupsen/logrus"
)

// softwareProgram is a built program executed by its host kernel.
type softwareProgram struct {
	key     string
	name    string
	defines []string
	maxWG   uint32
	host    hostKernel
}

func (p *softwareProgram) Key() string              { return p.key }
func (p *softwareProgram) MaxWorkGroupSize() uint32 { return p.maxWG }

// SoftwareRuntime runs device programs on the host behind an asynchronous,
// in-order command queue. It keeps the full device contract: a program
// cache, build failures, work-group limits and event timing.
type SoftwareRuntime struct {
	opts options

	mu       sync.RWMutex
	programs map[string]*softwareProgram
	compiles atomic.Int64

	queue *commandQueue
}

// NewSoftwareRuntime starts a software runtime.
func NewSoftwareRuntime(opts ...Option) *SoftwareRuntime {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	r := &SoftwareRuntime{
		opts:     o,
		programs: make(map[string]*softwareProgram),
	}
	r.queue = newCommandQueue(o.queueDepth, r.exec, o.log.WithField("runtime", "software"))
	o.log.WithFields(logrus.Fields{
		"memory":         o.memory.String(),
		"max_work_group": o.maxWorkGroup,
		"queue_depth":    o.queueDepth,
	}).Debug("software runtime started")
	return r
}

// Name implements Runtime.
func (r *SoftwareRuntime) Name() string { return "software" }

// MemoryType implements Runtime.
func (r *SoftwareRuntime) MemoryType() MemoryType { return r.opts.memory }

// Compiles returns how many programs were built (cache misses).
func (r *SoftwareRuntime) Compiles() int64 { return r.compiles.Load() }

// BuildProgram implements Runtime.
func (r *SoftwareRuntime) BuildProgram(name string, defines ...string) (Program, error) {
	key := programKey(name, defines)

	r.mu.RLock()
	if p, ok := r.programs[key]; ok {
		r.mu.RUnlock()
		return p, nil
	}
	r.mu.RUnlock()

	src, ok := programSources[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown program %q", ErrDeviceFailure, name)
	}
	if err := src.defines(defines); err != nil {
		return nil, fmt.Errorf("%w: build %s: %w", ErrDeviceFailure, key, err)
	}
	if r.opts.buildFailure != nil {
		if err := r.opts.buildFailure(key); err != nil {
			r.opts.log.WithError(err).WithField("program", key).Error("program build failed")
			return nil, fmt.Errorf("%w: build %s: %w", ErrDeviceFailure, key, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.programs[key]; ok {
		return p, nil
	}
	p := &softwareProgram{
		key:     key,
		name:    name,
		defines: append([]string(nil), defines...),
		maxWG:   r.opts.maxWorkGroup,
		host:    src.host,
	}
	r.programs[key] = p
	r.compiles.Add(1)
	r.opts.log.WithField("program", key).Debug("program built")
	return p, nil
}

// Enqueue implements Runtime.
func (r *SoftwareRuntime) Enqueue(d Dispatch) (*future.Event, error) {
	if err := validateDispatch(&d); err != nil {
		return nil, err
	}
	if _, ok := d.Program.(*softwareProgram); !ok {
		return nil, fmt.Errorf("%w: program %s was not built by the software runtime", ErrDeviceFailure, d.Program.Key())
	}
	return r.queue.submit(d)
}

func (r *SoftwareRuntime) exec(d *Dispatch) error {
	if r.opts.dispatchFault != nil {
		if err := r.opts.dispatchFault(d); err != nil {
			return err
		}
	}
	p := d.Program.(*softwareProgram)
	return p.host(p.defines, d, r.opts.parallel)
}

// Finish implements Runtime.
func (r *SoftwareRuntime) Finish(ctx context.Context) error {
	return r.queue.finish(ctx)
}

// Close drains the queue and stops the worker.
func (r *SoftwareRuntime) Close() error {
	r.queue.close()
	r.opts.log.Debug("software runtime closed")
	return nil
}
