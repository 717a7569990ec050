package julia

import (
	"errors"
	"sync"

	"github.com/gogpu/framepipe"
)

// ErrNoAccelerator is returned when a kernel receives device-domain
// buffers and no accelerator is registered. Device memory cannot be
// touched by the CPU kernels, and downloading it would break the
// pipeline's no-copy contract, so this is an invocation failure rather
// than a silent fallback.
var ErrNoAccelerator = errors.New("julia: device buffers require a registered accelerator")

// Accelerator executes the julia kernels on device-domain buffers.
//
// Implementations are provided by GPU backend packages. Users opt in via
// blank import:
//
//	import _ "github.com/gogpu/framepipe/gpu" // enables wgpu compute
//
// Every method only enqueues work on the given execution queue; callers
// that need completion wait on the stream.
type Accelerator interface {
	// Name returns the accelerator name (e.g., "wgpu").
	Name() string

	// Init initializes GPU resources. Called once during registration.
	Init() error

	// Close releases GPU resources.
	Close()

	// MapGrid writes per-pixel complex-plane coordinates into dst.
	MapGrid(dst framepipe.Buffer, width, height uint32, p Params, stream framepipe.Stream) error

	// Step runs the escape-time iteration over the coordinate field in
	// src, writing normalized escape counts into dst.
	Step(dst, src framepipe.Buffer, width, height uint32, p Params, angle float32, stream framepipe.Stream) error

	// Colorize converts the scalar field in src into 8-bit color in dst
	// through the layout's channel offsets.
	Colorize(dst, src framepipe.Buffer, layout framepipe.PixelLayout, p Params, stream framepipe.Stream) error

	// Increment writes src+1 into dst, byte-wise.
	Increment(dst, src framepipe.Buffer, n uint64, stream framepipe.Stream) error
}

var (
	accelMu sync.RWMutex
	accel   Accelerator
)

// RegisterAccelerator registers a device accelerator for the julia
// kernels.
//
// Only one accelerator can be registered; subsequent calls replace the
// previous one. The accelerator's Init() method is called during
// registration. If Init() fails, the accelerator is not registered and
// the error is returned.
func RegisterAccelerator(a Accelerator) error {
	if a == nil {
		return errors.New("julia: nil accelerator")
	}
	if err := a.Init(); err != nil {
		return err
	}

	accelMu.Lock()
	defer accelMu.Unlock()
	if accel != nil {
		accel.Close()
	}
	accel = a
	framepipe.Logger().Info("julia accelerator registered", "name", a.Name())
	return nil
}

// UnregisterAccelerator removes and closes the registered accelerator.
// Device-domain invocations fail with ErrNoAccelerator afterward.
func UnregisterAccelerator() {
	accelMu.Lock()
	defer accelMu.Unlock()
	if accel != nil {
		accel.Close()
		accel = nil
	}
}

// accelerator returns the registered accelerator, or nil.
func accelerator() Accelerator {
	accelMu.RLock()
	defer accelMu.RUnlock()
	return accel
}

// hostBytes extracts the backing slice of a host-domain buffer.
// The second result is false for device-domain buffers.
func hostBytes(buf framepipe.Buffer) ([]byte, bool) {
	if buf.Domain() != framepipe.DomainHost {
		return nil, false
	}
	hb, ok := buf.(framepipe.HostBytes)
	if !ok {
		return nil, false
	}
	return hb.Bytes(), true
}
