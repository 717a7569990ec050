//go:build !nogpu

package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framepipe"
)

// Stream is an execution queue for device work. Kernel invocations only
// enqueue: each dispatch is submitted to the wgpu queue with a fence,
// and the fence is parked here together with the per-dispatch resource
// cleanup. Sync waits for every parked fence in submission order and
// then releases the resources.
type Stream struct {
	ctx *Context

	mu      sync.Mutex
	pending []pendingWork
}

// pendingWork is one submitted dispatch awaiting completion.
type pendingWork struct {
	fence   hal.Fence
	cleanup func()
}

var _ framepipe.Stream = (*Stream)(nil)

// NewStream creates an execution queue on the context. All streams of a
// context share the underlying wgpu queue, which preserves submission
// order across them; per-stream bookkeeping only scopes completion
// waits and resource lifetime.
func NewStream(ctx *Context) *Stream {
	return &Stream{ctx: ctx}
}

// track parks a submitted fence and its cleanup until Sync.
func (s *Stream) track(fence hal.Fence, cleanup func()) {
	s.mu.Lock()
	s.pending = append(s.pending, pendingWork{fence: fence, cleanup: cleanup})
	s.mu.Unlock()
}

// Sync blocks until all enqueued work has completed, then releases the
// per-dispatch resources.
func (s *Stream) Sync() error {
	s.mu.Lock()
	work := s.pending
	s.pending = nil
	s.mu.Unlock()

	var firstErr error
	for _, w := range work {
		ok, err := s.ctx.device.Wait(w.fence, 1, fenceTimeout)
		if firstErr == nil {
			if err != nil {
				firstErr = fmt.Errorf("gpu: wait for fence: %w", err)
			} else if !ok {
				firstErr = fmt.Errorf("gpu: fence wait timed out")
			}
		}
		s.ctx.device.DestroyFence(w.fence)
		if w.cleanup != nil {
			w.cleanup()
		}
	}
	return firstErr
}
