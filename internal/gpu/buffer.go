//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framepipe"
)

// Buffer is a device-resident storage buffer bound to one stream.
type Buffer struct {
	ctx    *Context
	stream *Stream
	buf    hal.Buffer
	size   uint64
}

var _ framepipe.Buffer = (*Buffer)(nil)

// NewBuffer allocates a device-domain storage buffer on the stream's
// context. Storage usage plus both copy directions covers every kernel
// and the host transfer paths.
func NewBuffer(ctx *Context, stream *Stream, size uint64, label string) (*Buffer, error) {
	if size == 0 {
		return nil, framepipe.ErrZeroSizeBuffer
	}
	// Align to 4 bytes for copies and u32 shader access.
	alignedSize := (size + 3) &^ uint64(3)

	buf, err := ctx.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  alignedSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create buffer: %w", err)
	}
	return &Buffer{ctx: ctx, stream: stream, buf: buf, size: alignedSize}, nil
}

func (b *Buffer) Size() uint64                    { return b.size }
func (b *Buffer) Domain() framepipe.MemoryDomain  { return framepipe.DomainDevice }
func (b *Buffer) Stream() framepipe.Stream        { return b.stream }
func (b *Buffer) Alloc(size uint64) (framepipe.Buffer, error) {
	return NewBuffer(b.ctx, b.stream, size, "framepipe_frame")
}

// Upload copies host bytes into device memory through the queue, which
// orders the write against already-enqueued work.
func (b *Buffer) Upload(src []byte) error {
	if uint64(len(src)) > b.size {
		return fmt.Errorf("%w: upload %d bytes into %d", framepipe.ErrBufferTooSmall, len(src), b.size)
	}
	b.ctx.queue.WriteBuffer(b.buf, 0, src)
	return nil
}

// Download waits for enqueued work on the buffer's stream, copies the
// buffer into a staging buffer, and reads it back to the host.
func (b *Buffer) Download(dst []byte) error {
	if uint64(len(dst)) > b.size {
		return fmt.Errorf("%w: download %d bytes from %d", framepipe.ErrBufferTooSmall, len(dst), b.size)
	}
	if err := b.stream.Sync(); err != nil {
		return err
	}

	n := (uint64(len(dst)) + 3) &^ uint64(3)
	staging, err := b.ctx.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "framepipe_staging",
		Size:  n,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: create staging buffer: %w", err)
	}
	defer b.ctx.device.DestroyBuffer(staging)

	encoder, err := b.ctx.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "framepipe_readback"})
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("readback"); err != nil {
		return fmt.Errorf("gpu: begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(b.buf, staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: n},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("gpu: end encoding: %w", err)
	}

	if err := b.ctx.submit(cmdBuf, b.stream, nil); err != nil {
		return err
	}
	if err := b.stream.Sync(); err != nil {
		return err
	}

	readback := make([]byte, n)
	if err := b.ctx.queue.ReadBuffer(staging, 0, readback); err != nil {
		return fmt.Errorf("gpu: readback: %w", err)
	}
	copy(dst, readback)
	return nil
}

// Destroy releases the device buffer. Frames normally drop buffers on
// the Go heap and let the context own device memory lifetime, but
// long-running sources recycling buffers can release them eagerly.
func (b *Buffer) Destroy() {
	if b.buf != nil {
		b.ctx.device.DestroyBuffer(b.buf)
		b.buf = nil
	}
}

// deviceBuffer extracts the backend buffer from a framepipe.Buffer.
func deviceBuffer(buf framepipe.Buffer) (*Buffer, error) {
	db, ok := buf.(*Buffer)
	if !ok {
		return nil, ErrNotDeviceBuffer
	}
	return db, nil
}

// deviceStream extracts the backend stream from a framepipe.Stream.
func deviceStream(stream framepipe.Stream) (*Stream, error) {
	ds, ok := stream.(*Stream)
	if !ok {
		return nil, ErrNotDeviceStream
	}
	return ds, nil
}
