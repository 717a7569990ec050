//go:build !nogpu

// Package gpu registers the wgpu compute accelerator for device-domain
// frame processing.
//
// Import this package to run the julia kernels as compute shaders on
// device-resident buffers. The accelerator uses wgpu/hal and compiles
// its kernels from WGSL through naga at startup.
//
// If GPU initialization fails (no Vulkan available), the registration
// is silently skipped and only host-domain frames can be processed.
//
// Usage:
//
//	import _ "github.com/gogpu/framepipe/gpu" // enable device kernels
package gpu

import (
	"errors"
	"sync"

	"github.com/gogpu/framepipe"
	gpuimpl "github.com/gogpu/framepipe/internal/gpu"
	"github.com/gogpu/framepipe/julia"
)

var (
	mu    sync.Mutex
	accel *gpuimpl.Accelerator
)

func init() {
	a := &gpuimpl.Accelerator{}
	if err := julia.RegisterAccelerator(a); err != nil {
		framepipe.Logger().Warn("GPU accelerator not available", "err", err)
		return
	}
	mu.Lock()
	accel = a
	mu.Unlock()
}

// ErrNotRegistered is returned by the device helpers when the
// accelerator failed to initialize at import time.
var ErrNotRegistered = errors.New("gpu: accelerator not registered")

func registered() (*gpuimpl.Accelerator, error) {
	mu.Lock()
	defer mu.Unlock()
	if accel == nil {
		return nil, ErrNotRegistered
	}
	return accel, nil
}

// SetDeviceProvider switches the accelerator to a shared GPU device
// from an external provider. This avoids creating a separate GPU
// instance when the host application already owns one.
//
// The provider must additionally expose HAL access (HalDevice and
// HalQueue). Call this before allocating device buffers or streams.
func SetDeviceProvider(provider framepipe.DeviceHandle) error {
	a, err := registered()
	if err != nil {
		return err
	}
	return a.UseProvider(provider)
}

// NewStream creates a device execution queue. Kernel invocations
// against buffers allocated on this stream are serialized on it;
// Sync blocks until everything enqueued so far has completed.
func NewStream() (framepipe.Stream, error) {
	a, err := registered()
	if err != nil {
		return nil, err
	}
	ctx := a.Context()
	if ctx == nil {
		return nil, ErrNotRegistered
	}
	return gpuimpl.NewStream(ctx), nil
}

// NewBuffer allocates a device-domain buffer bound to stream, which
// must have been created by NewStream.
func NewBuffer(stream framepipe.Stream, size uint64) (framepipe.Buffer, error) {
	a, err := registered()
	if err != nil {
		return nil, err
	}
	ctx := a.Context()
	if ctx == nil {
		return nil, ErrNotRegistered
	}
	ds, ok := stream.(*gpuimpl.Stream)
	if !ok {
		return nil, gpuimpl.ErrNotDeviceStream
	}
	return gpuimpl.NewBuffer(ctx, ds, size, "framepipe_frame")
}

// AdaptFrame uploads a host-domain frame into device memory on the
// given stream. The returned frame carries the same header and
// geometry; its buffer reports the device domain, so downstream
// kernels run as compute shaders.
func AdaptFrame(stream framepipe.Stream, f *framepipe.Frame) (*framepipe.Frame, error) {
	src, ok := f.Buffer.(framepipe.HostBytes)
	if !ok {
		return nil, errors.New("gpu: frame buffer is not host-resident")
	}
	buf, err := NewBuffer(stream, f.SizeInBytes())
	if err != nil {
		return nil, err
	}
	if err := buf.Upload(src.Bytes()); err != nil {
		return nil, err
	}
	out := *f
	out.Buffer = buf
	return &out, nil
}

// RetrieveFrame downloads a device-domain frame back into host memory.
// Download synchronizes the frame's stream first, so every kernel
// enqueued against the buffer has completed before the copy.
func RetrieveFrame(f *framepipe.Frame) (*framepipe.Frame, error) {
	if f.Buffer.Domain() != framepipe.DomainDevice {
		return nil, errors.New("gpu: frame buffer is not device-resident")
	}
	host := make([]byte, f.SizeInBytes())
	if err := f.Buffer.Download(host); err != nil {
		return nil, err
	}
	stream := framepipe.NewHostStream()
	buf, err := framepipe.NewHostBuffer(f.SizeInBytes(), stream)
	if err != nil {
		return nil, err
	}
	if err := buf.Upload(host); err != nil {
		return nil, err
	}
	out := *f
	out.Buffer = buf
	return &out, nil
}
