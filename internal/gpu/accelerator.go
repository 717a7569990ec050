//go:build !nogpu

package gpu

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framepipe"
	"github.com/gogpu/framepipe/julia"
)

// pipeline is one compiled compute kernel with its layouts.
type pipeline struct {
	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	compute    hal.ComputePipeline
}

// Accelerator runs the julia kernels as wgpu compute shaders.
// It implements the julia.Accelerator interface.
type Accelerator struct {
	mu  sync.Mutex
	ctx *Context

	mapPipe       pipeline
	stepPipe      pipeline
	colorizePipe  pipeline
	incrementPipe pipeline

	ready bool
}

var _ julia.Accelerator = (*Accelerator)(nil)

func (a *Accelerator) Name() string { return "wgpu" }

// Context returns the backend context, for allocating device buffers on
// the same device the kernels run on. Nil before Init succeeds.
func (a *Accelerator) Context() *Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ctx
}

// Init opens the GPU device and compiles the four kernels.
func (a *Accelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, err := NewContext()
	if err != nil {
		return err
	}
	a.ctx = ctx
	if err := a.createPipelines(); err != nil {
		a.destroyPipelines()
		a.ctx.Close()
		a.ctx = nil
		return err
	}
	a.ready = true
	return nil
}

// UseProvider switches the accelerator to a shared device from an
// external provider and recompiles the kernels on it.
func (a *Accelerator) UseProvider(provider any) error {
	ctx, err := NewContextFromProvider(provider)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.destroyPipelines()
	if a.ctx != nil {
		a.ctx.Close()
	}
	a.ctx = ctx
	if err := a.createPipelines(); err != nil {
		a.ready = false
		return fmt.Errorf("gpu: create pipelines on shared device: %w", err)
	}
	a.ready = true
	return nil
}

func (a *Accelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.destroyPipelines()
	if a.ctx != nil {
		a.ctx.Close()
		a.ctx = nil
	}
	a.ready = false
}

// Uniform blocks. Field order and padding match the WGSL structs.
type mapParamsU struct {
	Width, Height uint32
	MinX, MaxX    float32
	MinY, MaxY    float32
	_pad0, _pad1  uint32
}

type stepParamsU struct {
	Width, Height  uint32
	MaxIterations  uint32
	_pad0          uint32
	CRe, CIm       float32
	BoundaryRadius float32
	_pad1          uint32
}

type colorizeParamsU struct {
	PixelCount, OutWords uint32
	BPP                  uint32
	RedOff               uint32
	GreenOff, BlueOff    uint32
	_pad0, _pad1         uint32
}

type incParamsU struct {
	Words               uint32
	_pad0, _pad1, _pad2 uint32
}

func structBytes(ptr unsafe.Pointer, size uintptr) []byte {
	return unsafe.Slice((*byte)(ptr), size) //nolint:gosec // fixed-layout uniform block
}

// MapGrid dispatches the coordinate-mapping kernel.
func (a *Accelerator) MapGrid(dst framepipe.Buffer, width, height uint32, p julia.Params, stream framepipe.Stream) error {
	out, ds, err := a.dispatchTargets(dst, stream)
	if err != nil {
		return err
	}
	u := mapParamsU{
		Width: width, Height: height,
		MinX: p.MinX, MaxX: p.MaxX,
		MinY: p.MinY, MaxY: p.MaxY,
	}
	return a.dispatch(a.mapPipe, ds,
		structBytes(unsafe.Pointer(&u), unsafe.Sizeof(u)),
		nil, out,
		(width+7)/8, (height+7)/8)
}

// Step dispatches the escape-time kernel.
func (a *Accelerator) Step(dst, src framepipe.Buffer, width, height uint32, p julia.Params, angle float32, stream framepipe.Stream) error {
	out, ds, err := a.dispatchTargets(dst, stream)
	if err != nil {
		return err
	}
	in, err := deviceBuffer(src)
	if err != nil {
		return err
	}
	cRe, cIm := julia.Seed(p, angle)
	u := stepParamsU{
		Width: width, Height: height,
		MaxIterations:  p.MaxIterations,
		CRe:            cRe,
		CIm:            cIm,
		BoundaryRadius: p.BoundaryRadius,
	}
	return a.dispatch(a.stepPipe, ds,
		structBytes(unsafe.Pointer(&u), unsafe.Sizeof(u)),
		in, out,
		(width+7)/8, (height+7)/8)
}

// Colorize dispatches the shading kernel.
func (a *Accelerator) Colorize(dst, src framepipe.Buffer, layout framepipe.PixelLayout, p julia.Params, stream framepipe.Stream) error {
	out, ds, err := a.dispatchTargets(dst, stream)
	if err != nil {
		return err
	}
	in, err := deviceBuffer(src)
	if err != nil {
		return err
	}
	pixels := uint32(layout.PixelCount())
	outWords := (pixels*layout.BytesPerPixel + 3) / 4
	u := colorizeParamsU{
		PixelCount: pixels,
		OutWords:   outWords,
		BPP:        layout.BytesPerPixel,
		RedOff:     layout.RedOffset,
		GreenOff:   layout.GreenOffset,
		BlueOff:    layout.BlueOffset,
	}
	return a.dispatch(a.colorizePipe, ds,
		structBytes(unsafe.Pointer(&u), unsafe.Sizeof(u)),
		in, out,
		(outWords+63)/64, 1)
}

// Increment dispatches the byte-increment kernel over n bytes.
func (a *Accelerator) Increment(dst, src framepipe.Buffer, n uint64, stream framepipe.Stream) error {
	out, ds, err := a.dispatchTargets(dst, stream)
	if err != nil {
		return err
	}
	in, err := deviceBuffer(src)
	if err != nil {
		return err
	}
	words := uint32((n + 3) / 4)
	u := incParamsU{Words: words}
	return a.dispatch(a.incrementPipe, ds,
		structBytes(unsafe.Pointer(&u), unsafe.Sizeof(u)),
		in, out,
		(words+63)/64, 1)
}

// dispatchTargets validates the destination buffer and stream belong to
// this backend.
func (a *Accelerator) dispatchTargets(dst framepipe.Buffer, stream framepipe.Stream) (*Buffer, *Stream, error) {
	a.mu.Lock()
	ready := a.ready
	a.mu.Unlock()
	if !ready {
		return nil, nil, ErrNoGPU
	}
	out, err := deviceBuffer(dst)
	if err != nil {
		return nil, nil, err
	}
	ds, err := deviceStream(stream)
	if err != nil {
		return nil, nil, err
	}
	return out, ds, nil
}

// dispatch encodes one compute pass: uniform buffer, bind group, one
// Dispatch call, and a submit whose fence is parked on the stream. The
// uniform buffer and bind group are released when the stream syncs.
func (a *Accelerator) dispatch(p pipeline, stream *Stream, uniform []byte, in, out *Buffer, gx, gy uint32) error {
	ub, err := a.ctx.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "framepipe_params",
		Size:  uint64(len(uniform)),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: create uniform buffer: %w", err)
	}
	a.ctx.queue.WriteBuffer(ub, 0, uniform)

	entries := []gputypes.BindGroupEntry{
		{Binding: 0, Resource: gputypes.BufferBinding{Buffer: ub.NativeHandle(), Offset: 0, Size: uint64(len(uniform))}},
	}
	binding := uint32(1)
	if in != nil {
		entries = append(entries, gputypes.BindGroupEntry{
			Binding: binding,
			Resource: gputypes.BufferBinding{
				Buffer: in.buf.NativeHandle(), Offset: 0, Size: in.size,
			},
		})
		binding++
	}
	entries = append(entries, gputypes.BindGroupEntry{
		Binding: binding,
		Resource: gputypes.BufferBinding{
			Buffer: out.buf.NativeHandle(), Offset: 0, Size: out.size,
		},
	})

	bg, err := a.ctx.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "framepipe_bind",
		Layout:  p.bindLayout,
		Entries: entries,
	})
	if err != nil {
		a.ctx.device.DestroyBuffer(ub)
		return fmt.Errorf("gpu: create bind group: %w", err)
	}
	cleanup := func() {
		a.ctx.device.DestroyBindGroup(bg)
		a.ctx.device.DestroyBuffer(ub)
	}

	encoder, err := a.ctx.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "framepipe_encoder"})
	if err != nil {
		cleanup()
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("framepipe_kernel"); err != nil {
		cleanup()
		return fmt.Errorf("gpu: begin encoding: %w", err)
	}
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "framepipe_pass"})
	pass.SetPipeline(p.compute)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(gx, gy, 1)
	pass.End()
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		cleanup()
		return fmt.Errorf("gpu: end encoding: %w", err)
	}

	return a.ctx.submit(cmdBuf, stream, cleanup)
}

// createPipelines compiles the four kernels. Map binds two buffers
// (uniform + output), the rest bind three.
func (a *Accelerator) createPipelines() error {
	var err error
	if a.mapPipe, err = a.createPipeline("julia_map", mapShaderWGSL, false); err != nil {
		return err
	}
	if a.stepPipe, err = a.createPipeline("julia_step", stepShaderWGSL, true); err != nil {
		return err
	}
	if a.colorizePipe, err = a.createPipeline("julia_colorize", colorizeShaderWGSL, true); err != nil {
		return err
	}
	if a.incrementPipe, err = a.createPipeline("julia_increment", incrementShaderWGSL, true); err != nil {
		return err
	}
	return nil
}

func (a *Accelerator) createPipeline(label, wgsl string, hasInput bool) (pipeline, error) {
	var p pipeline

	spirv, err := compileShader(label, wgsl)
	if err != nil {
		return p, err
	}
	p.shader, err = a.ctx.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return p, fmt.Errorf("gpu: create %s shader module: %w", label, err)
	}

	entries := []gputypes.BindGroupLayoutEntry{
		{Binding: 0, Visibility: gputypes.ShaderStageCompute,
			Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
	}
	binding := uint32(1)
	if hasInput {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding: binding, Visibility: gputypes.ShaderStageCompute,
			Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}})
		binding++
	}
	entries = append(entries, gputypes.BindGroupLayoutEntry{
		Binding: binding, Visibility: gputypes.ShaderStageCompute,
		Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}})

	p.bindLayout, err = a.ctx.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label + "_bind_layout",
		Entries: entries,
	})
	if err != nil {
		return p, fmt.Errorf("gpu: create %s bind group layout: %w", label, err)
	}
	p.pipeLayout, err = a.ctx.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: label + "_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return p, fmt.Errorf("gpu: create %s pipeline layout: %w", label, err)
	}
	p.compute, err = a.ctx.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: label + "_pipeline", Layout: p.pipeLayout,
		Compute: hal.ComputeState{Module: p.shader, EntryPoint: "main"},
	})
	if err != nil {
		return p, fmt.Errorf("gpu: create %s compute pipeline: %w", label, err)
	}
	return p, nil
}

func (a *Accelerator) destroyPipelines() {
	if a.ctx == nil || a.ctx.device == nil {
		return
	}
	for _, p := range []pipeline{a.mapPipe, a.stepPipe, a.colorizePipe, a.incrementPipe} {
		if p.compute != nil {
			a.ctx.device.DestroyComputePipeline(p.compute)
		}
		if p.pipeLayout != nil {
			a.ctx.device.DestroyPipelineLayout(p.pipeLayout)
		}
		if p.bindLayout != nil {
			a.ctx.device.DestroyBindGroupLayout(p.bindLayout)
		}
		if p.shader != nil {
			a.ctx.device.DestroyShaderModule(p.shader)
		}
	}
	a.mapPipe, a.stepPipe, a.colorizePipe, a.incrementPipe = pipeline{}, pipeline{}, pipeline{}, pipeline{}
}
