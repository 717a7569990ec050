package framepipe

import "fmt"

// MemoryDomain identifies where a buffer's bytes live.
type MemoryDomain int

const (
	// DomainHost is ordinary host-accessible memory.
	DomainHost MemoryDomain = iota

	// DomainDevice is device-resident memory (GPU). Host access requires
	// an explicit Download through the buffer's execution queue.
	DomainDevice
)

// String returns the string representation of MemoryDomain.
func (d MemoryDomain) String() string {
	switch d {
	case DomainHost:
		return "host"
	case DomainDevice:
		return "device"
	default:
		return fmt.Sprintf("Unknown(%d)", int(d))
	}
}

// Stream is an ordered execution queue for device-side work. Operations
// enqueued on the same stream complete in submission order; nothing is
// guaranteed across streams.
//
// The host implementation executes work synchronously, so Sync is a no-op
// that always succeeds.
type Stream interface {
	// Sync blocks until all work submitted to the stream has completed.
	Sync() error
}

// Buffer is a frame's pixel storage. A buffer is bound to one memory
// domain and one execution queue for its whole lifetime.
//
// Ownership follows the frame that carries the buffer: a stage owns the
// inbound buffer only for the duration of its callback, and transfers the
// outbound buffer downstream when it publishes. Implementations are not
// required to tolerate concurrent access.
type Buffer interface {
	// Size returns the buffer length in bytes.
	Size() uint64

	// Domain returns the memory domain the bytes live in.
	Domain() MemoryDomain

	// Stream returns the execution queue the buffer is attached to.
	Stream() Stream

	// Alloc allocates a fresh sibling buffer of the given size in the
	// same memory domain, attached to the same execution queue. Stages
	// use this to build output buffers without knowing the backend,
	// which is what keeps a device-resident stream on the device.
	Alloc(size uint64) (Buffer, error)

	// Upload copies host bytes into the buffer. len(src) must not exceed
	// the buffer size. For device buffers the copy is enqueued on the
	// buffer's stream.
	Upload(src []byte) error

	// Download copies the buffer into host bytes, waiting for any
	// enqueued work on the buffer's stream to complete first.
	// len(dst) must not exceed the buffer size.
	Download(dst []byte) error
}

// HostBytes is implemented by host-domain buffers that can expose their
// backing slice directly. CPU kernels use it to read and write pixels
// without a copy.
type HostBytes interface {
	// Bytes returns the backing slice. The caller must respect the
	// owning frame's ownership rules.
	Bytes() []byte
}
