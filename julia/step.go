package julia

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/framepipe"
)

// stepTransform runs the escape-time iteration over a coordinate field.
type stepTransform struct {
	params Params
}

var (
	_ framepipe.Transform   = (*stepTransform)(nil)
	_ framepipe.FrameBinder = (*stepTransform)(nil)
)

// NewStep returns the transform that computes the julia set proper: for
// every coordinate pair it iterates z = z*z + c until the squared
// magnitude crosses the boundary radius or MaxIterations is reached, and
// emits the normalized escape count. The seed constant c rotates one
// degree per frame, which is what animates the set.
//
// The transform binds from the raw frame descriptor and requires
// coordinate-pair input (32FC2), as produced by NewMap.
func NewStep(p Params) framepipe.Transform {
	return &stepTransform{params: p}
}

func (t *stepTransform) Name() string { return "julia-step" }

// Bind satisfies Transform but the stage always prefers BindFrame.
func (t *stepTransform) Bind(layout framepipe.PixelLayout) (framepipe.Kernel, error) {
	return t.BindFrame(layout.Encoding, layout.RowStep, layout.Width, layout.Height)
}

func (t *stepTransform) BindFrame(encoding framepipe.Encoding, rowStep, width, height uint32) (framepipe.Kernel, error) {
	if encoding != framepipe.EncodingFloat32x2 {
		return nil, fmt.Errorf("julia: step requires %q input, got %q",
			framepipe.EncodingFloat32x2, encoding)
	}
	return &stepKernel{
		params: t.params,
		width:  width,
		height: height,
	}, nil
}

// stepKernel is a stepTransform bound to a fixed geometry. The frame
// counter lives on the kernel; OnFrame is serialized per stage, so no
// locking is needed.
type stepKernel struct {
	params  Params
	width   uint32
	height  uint32
	counter uint64
}

func (k *stepKernel) OutputEncoding() framepipe.Encoding { return framepipe.EncodingFloat32 }
func (k *stepKernel) OutputBytesPerPixel() uint32        { return 4 }

// nextAngle advances the per-frame phase: one degree per frame,
// wrapping at a full turn.
func (k *stepKernel) nextAngle() float32 {
	angle := float32(k.counter%360) * math.Pi / 180.0
	k.counter++
	return angle
}

func (k *stepKernel) Invoke(dst, src framepipe.Buffer, stream framepipe.Stream) error {
	angle := k.nextAngle()

	if dst.Domain() == framepipe.DomainDevice {
		a := accelerator()
		if a == nil {
			return ErrNoAccelerator
		}
		return a.Step(dst, src, k.width, k.height, k.params, angle, stream)
	}

	in, ok := hostBytes(src)
	if !ok {
		return ErrNoAccelerator
	}
	out, ok := hostBytes(dst)
	if !ok {
		return ErrNoAccelerator
	}

	p := k.params
	cRe, cIm := Seed(p, angle)

	pixels := uint64(k.width) * uint64(k.height)
	for i := uint64(0); i < pixels; i++ {
		zRe := math.Float32frombits(binary.LittleEndian.Uint32(in[i*8:]))
		zIm := math.Float32frombits(binary.LittleEndian.Uint32(in[i*8+4:]))

		var iter uint32
		for iter < p.MaxIterations && zRe*zRe+zIm*zIm < p.BoundaryRadius {
			zRe, zIm = zRe*zRe-zIm*zIm+cRe, 2*zRe*zIm+cIm
			iter++
		}

		v := float32(iter) / float32(p.MaxIterations)
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return nil
}
