//go:build windows

package gpu

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"unsafe"

	"github.com/born-ml/opengine/internal/future"
	"github.com/go-webgpu/webgpu/wgpu"
)

// webgpuProgram is a compiled WGSL compute pipeline.
type webgpuProgram struct {
	key      string
	maxWG    uint32
	shader   *wgpu.ShaderModule
	pipeline *wgpu.ComputePipeline
}

func (p *webgpuProgram) Key() string              { return p.key }
func (p *webgpuProgram) MaxWorkGroupSize() uint32 { return p.maxWG }

// WebGPURuntime dispatches programs as WGSL compute passes on one device
// queue. Host buffers are uploaded per command and outputs copied back
// before the command's event completes.
type WebGPURuntime struct {
	opts options

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	wq       *wgpu.Queue

	mu       sync.RWMutex
	programs map[string]*webgpuProgram

	queue *commandQueue
}

// NewWebGPURuntime opens the default high-performance adapter.
func NewWebGPURuntime(opts ...Option) (rt *WebGPURuntime, err error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	// The native library panics when it cannot be loaded.
	defer func() {
		if r := recover(); r != nil {
			rt = nil
			err = fmt.Errorf("%w: webgpu native library not available: %v", ErrUnavailable, r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: request adapter: %w", ErrUnavailable, err)
	}
	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: request device: %w", ErrUnavailable, err)
	}
	wq := device.GetQueue()
	if wq == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: device has no queue", ErrUnavailable)
	}

	rt = &WebGPURuntime{
		opts:     o,
		instance: instance,
		adapter:  adapter,
		device:   device,
		wq:       wq,
		programs: make(map[string]*webgpuProgram),
	}
	rt.queue = newCommandQueue(o.queueDepth, rt.exec, o.log.WithField("runtime", "webgpu"))
	o.log.WithField("memory", o.memory.String()).Info("webgpu runtime started")
	return rt, nil
}

// Name implements Runtime.
func (r *WebGPURuntime) Name() string { return "webgpu" }

// MemoryType implements Runtime.
func (r *WebGPURuntime) MemoryType() MemoryType { return r.opts.memory }

// BuildProgram compiles the WGSL for name and caches its pipeline.
func (r *WebGPURuntime) BuildProgram(name string, defines ...string) (p Program, err error) {
	key := programKey(name, defines)

	r.mu.RLock()
	if cached, ok := r.programs[key]; ok {
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	if r.opts.buildFailure != nil {
		if err := r.opts.buildFailure(key); err != nil {
			return nil, fmt.Errorf("%w: build %s: %w", ErrDeviceFailure, key, err)
		}
	}
	code, err := ShaderSource(name, r.opts.maxWorkGroup, defines...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceFailure, err)
	}

	defer func() {
		if rec := recover(); rec != nil {
			p = nil
			err = fmt.Errorf("%w: build %s: %v", ErrDeviceFailure, key, rec)
			r.opts.log.WithField("program", key).Error(err)
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.programs[key]; ok {
		return cached, nil
	}
	shader := r.device.CreateShaderModuleWGSL(code)
	pipeline := r.device.CreateComputePipelineSimple(nil, shader, "main")
	prog := &webgpuProgram{key: key, maxWG: r.opts.maxWorkGroup, shader: shader, pipeline: pipeline}
	r.programs[key] = prog
	r.opts.log.WithField("program", key).Debug("program built")
	return prog, nil
}

// Enqueue implements Runtime.
func (r *WebGPURuntime) Enqueue(d Dispatch) (*future.Event, error) {
	if err := validateDispatch(&d); err != nil {
		return nil, err
	}
	if _, ok := d.Program.(*webgpuProgram); !ok {
		return nil, fmt.Errorf("%w: program %s was not built by the webgpu runtime", ErrDeviceFailure, d.Program.Key())
	}
	return r.queue.submit(d)
}

// Finish implements Runtime.
func (r *WebGPURuntime) Finish(ctx context.Context) error {
	return r.queue.finish(ctx)
}

// Close drains the queue and releases every device object.
func (r *WebGPURuntime) Close() error {
	r.queue.close()

	r.mu.Lock()
	defer r.mu.Unlock()
	for key, p := range r.programs {
		p.pipeline.Release()
		p.shader.Release()
		delete(r.programs, key)
	}
	r.wq.Release()
	r.device.Release()
	r.adapter.Release()
	r.instance.Release()
	r.opts.log.Info("webgpu runtime closed")
	return nil
}

func (r *WebGPURuntime) exec(d *Dispatch) error {
	p := d.Program.(*webgpuProgram)

	var entries []wgpu.BindGroupEntry
	binding := uint32(0)
	for _, in := range d.Inputs {
		buf, size := r.upload(in, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
		defer buf.Release()
		entries = append(entries, wgpu.BufferBindingEntry(binding, buf, 0, size))
		binding++
	}
	outputs := make([]*wgpu.Buffer, len(d.Outputs))
	for i, out := range d.Outputs {
		size := byteSize(out)
		buf := r.device.CreateBuffer(&wgpu.BufferDescriptor{
			Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
			Size:  size,
		})
		defer buf.Release()
		outputs[i] = buf
		entries = append(entries, wgpu.BufferBindingEntry(binding, buf, 0, size))
		binding++
	}
	uniform, usize := r.uniform(d.Params)
	defer uniform.Release()
	entries = append(entries, wgpu.BufferBindingEntry(binding, uniform, 0, usize))

	bindGroup := r.device.CreateBindGroupSimple(p.pipeline.GetBindGroupLayout(0), entries)
	defer bindGroup.Release()

	encoder := r.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(d.Global/d.Local, 1, 1)
	pass.End()
	r.wq.Submit(encoder.Finish(nil))

	for i, buf := range outputs {
		if err := r.readInto(buf, d.Outputs[i]); err != nil {
			return fmt.Errorf("read %s output %d: %w", d.Label, i, err)
		}
	}
	return nil
}

// upload copies host data into a new mapped-at-creation buffer.
// Empty slices still get a 4-byte buffer so the binding stays valid.
func (r *WebGPURuntime) upload(data []float32, usage wgpu.BufferUsage) (*wgpu.Buffer, uint64) {
	size := byteSize(data)
	buf := r.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	//nolint:gosec // mapped range is exactly size bytes
	mapped := unsafe.Slice((*float32)(buf.GetMappedRange(0, size)), size/4)
	copy(mapped, data)
	buf.Unmap()
	return buf, size
}

// uniform packs params into a 16-byte aligned uniform buffer.
func (r *WebGPURuntime) uniform(params []uint32) (*wgpu.Buffer, uint64) {
	size := (uint64(len(params))*4 + 15) &^ 15
	if size == 0 {
		size = 16
	}
	raw := make([]byte, size)
	for i, w := range params {
		binary.LittleEndian.PutUint32(raw[i*4:], w)
	}
	buf := r.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	//nolint:gosec // mapped range is exactly size bytes
	copy(unsafe.Slice((*byte)(buf.GetMappedRange(0, size)), size), raw)
	buf.Unmap()
	return buf, size
}

// readInto copies a storage buffer back to dst through a staging buffer.
func (r *WebGPURuntime) readInto(src *wgpu.Buffer, dst []float32) error {
	size := byteSize(dst)
	staging := r.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := r.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	r.wq.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(r.device, wgpu.MapModeRead, 0, size); err != nil {
		return fmt.Errorf("map staging buffer: %w", err)
	}
	//nolint:gosec // mapped range is exactly size bytes
	mapped := unsafe.Slice((*float32)(staging.GetMappedRange(0, size)), size/4)
	copy(dst, mapped)
	staging.Unmap()
	return nil
}

func byteSize(data []float32) uint64 {
	return uint64(max(len(data), 1)) * uint64(unsafe.Sizeof(float32(0)))
}

