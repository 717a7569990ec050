//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/framepipe"
)

// Device errors.
var (
	// ErrNoGPU is returned when no usable adapter is available.
	ErrNoGPU = errors.New("gpu: no GPU adapter available")

	// ErrNotDeviceBuffer is returned when a kernel receives a buffer
	// that does not belong to this backend.
	ErrNotDeviceBuffer = errors.New("gpu: buffer is not a wgpu device buffer")

	// ErrNotDeviceStream is returned when a kernel receives a stream
	// that does not belong to this backend.
	ErrNotDeviceStream = errors.New("gpu: stream is not a wgpu device stream")
)

// fenceTimeout bounds how long Sync waits for enqueued work.
const fenceTimeout = 5 * time.Second

// Context owns the wgpu instance, device, and queue shared by all
// device-domain buffers and streams of this backend.
type Context struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	// external is true when the device came from a provider; such
	// resources are not destroyed on Close.
	external bool
}

// NewContext opens a GPU device: Vulkan backend, preferring a discrete
// adapter, then integrated, then whatever is first.
func NewContext() (*Context, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not registered", ErrNoGPU)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("gpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoGPU
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("gpu: open device: %w", err)
	}

	framepipe.Logger().Info("GPU device opened", "adapter", selected.Info.Name)
	return &Context{instance: instance, device: openDev.Device, queue: openDev.Queue}, nil
}

// NewContextFromProvider wraps a shared device exposed by an external
// provider implementing HalDevice() any and HalQueue() any.
func NewContextFromProvider(provider any) (*Context, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("gpu: provider HalQueue is not hal.Queue")
	}
	return &Context{device: device, queue: queue, external: true}, nil
}

// Close releases the device and instance unless they are shared.
func (c *Context) Close() {
	if c.external {
		c.device = nil
		c.queue = nil
		c.instance = nil
		return
	}
	if c.device != nil {
		c.device.Destroy()
		c.device = nil
		c.queue = nil
	}
	if c.instance != nil {
		c.instance.Destroy()
		c.instance = nil
	}
}

// submit sends one command buffer to the queue with a fresh fence and
// hands the fence to the stream for deferred completion.
func (c *Context) submit(cmdBuf hal.CommandBuffer, stream *Stream, cleanup func()) error {
	fence, err := c.device.CreateFence()
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		return fmt.Errorf("gpu: create fence: %w", err)
	}
	if err := c.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		c.device.DestroyFence(fence)
		if cleanup != nil {
			cleanup()
		}
		return fmt.Errorf("gpu: submit: %w", err)
	}
	c.device.FreeCommandBuffer(cmdBuf)
	stream.track(fence, cleanup)
	return nil
}
