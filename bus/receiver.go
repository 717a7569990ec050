package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/gogpu/framepipe"
)

// ErrReceiverClosed is returned when receiving from a closed receiver.
var ErrReceiverClosed = errors.New("bus: receiver closed")

// Receiver consumes frames from a DropOld subscription. It holds at most
// one frame: a publish while a frame is pending replaces it, so Next
// always yields the latest frame the bus saw.
//
// Receiver is safe for concurrent use, though a subscription normally
// has a single consumer.
type Receiver struct {
	mu     sync.Mutex
	frame  *framepipe.Frame
	ready  chan struct{}
	closed bool
}

func newReceiver() *Receiver {
	return &Receiver{ready: make(chan struct{}, 1)}
}

// replace stores a frame, discarding any pending one. It reports whether
// a pending frame was discarded.
func (r *Receiver) replace(f *framepipe.Frame) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	replaced := r.frame != nil
	r.frame = f
	select {
	case r.ready <- struct{}{}:
	default:
	}
	return replaced
}

// Next blocks until a frame is available or the context is done.
// The returned frame is owned by the caller.
func (r *Receiver) Next(ctx context.Context) (*framepipe.Frame, error) {
	for {
		if f, ok, err := r.take(); err != nil {
			return nil, err
		} else if ok {
			return f, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case _, open := <-r.ready:
			if !open {
				// Drain a final frame published before close.
				if f, ok, _ := r.take(); ok {
					return f, nil
				}
				return nil, ErrReceiverClosed
			}
		}
	}
}

// TryNext returns the pending frame without blocking. The second result
// is false when no frame is pending.
func (r *Receiver) TryNext() (*framepipe.Frame, bool) {
	f, ok, _ := r.take()
	return f, ok
}

// take removes and returns the pending frame.
func (r *Receiver) take() (*framepipe.Frame, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frame != nil {
		f := r.frame
		r.frame = nil
		return f, true, nil
	}
	if r.closed {
		return nil, false, ErrReceiverClosed
	}
	return nil, false, nil
}

// close marks the receiver closed and wakes any blocked Next.
func (r *Receiver) close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()
	close(r.ready)
}
