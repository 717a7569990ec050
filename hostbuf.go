package framepipe

import (
	"errors"
	"fmt"
)

// Host buffer errors.
var (
	// ErrBufferTooSmall is returned when a copy would overrun a buffer.
	ErrBufferTooSmall = errors.New("framepipe: buffer too small")

	// ErrZeroSizeBuffer is returned when allocating an empty buffer.
	ErrZeroSizeBuffer = errors.New("framepipe: buffer size must be greater than zero")
)

// hostStream is the execution queue for host-domain buffers. Host work
// runs synchronously at enqueue time, so Sync has nothing to wait for.
type hostStream struct{}

func (hostStream) Sync() error { return nil }

// NewHostStream returns an execution queue for host-domain buffers.
func NewHostStream() Stream { return hostStream{} }

// hostBuffer is a Buffer backed by ordinary host memory.
type hostBuffer struct {
	data   []byte
	stream Stream
}

var (
	_ Buffer    = (*hostBuffer)(nil)
	_ HostBytes = (*hostBuffer)(nil)
)

// NewHostBuffer allocates a host-domain buffer of the given size attached
// to the given stream. A nil stream gets a fresh host stream.
func NewHostBuffer(size uint64, stream Stream) (Buffer, error) {
	if size == 0 {
		return nil, ErrZeroSizeBuffer
	}
	if stream == nil {
		stream = NewHostStream()
	}
	return &hostBuffer{data: make([]byte, size), stream: stream}, nil
}

func (b *hostBuffer) Size() uint64         { return uint64(len(b.data)) }
func (b *hostBuffer) Domain() MemoryDomain { return DomainHost }
func (b *hostBuffer) Stream() Stream       { return b.stream }
func (b *hostBuffer) Bytes() []byte        { return b.data }

func (b *hostBuffer) Alloc(size uint64) (Buffer, error) {
	return NewHostBuffer(size, b.stream)
}

func (b *hostBuffer) Upload(src []byte) error {
	if len(src) > len(b.data) {
		return fmt.Errorf("%w: upload %d bytes into %d", ErrBufferTooSmall, len(src), len(b.data))
	}
	copy(b.data, src)
	return nil
}

func (b *hostBuffer) Download(dst []byte) error {
	if len(dst) > len(b.data) {
		return fmt.Errorf("%w: download %d bytes from %d", ErrBufferTooSmall, len(dst), len(b.data))
	}
	copy(dst, b.data)
	return nil
}
