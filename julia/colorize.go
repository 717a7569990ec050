package julia

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/framepipe"
)

// colorizeTransform converts scalar samples into 8-bit color through a
// channel layout resolved lazily from the stream's encoding tag.
type colorizeTransform struct {
	params Params
}

var _ framepipe.Transform = (*colorizeTransform)(nil)

// NewColorize returns the transform that turns normalized escape counts
// into color. The channel layout is bound from the first frame's
// encoding tag: an rgb8 stream gets red-first pixels, a bgr8 stream
// blue-first, a mono8 stream single-byte shades.
func NewColorize(p Params) framepipe.Transform {
	return &colorizeTransform{params: p}
}

func (t *colorizeTransform) Name() string { return "julia-colorize" }

func (t *colorizeTransform) Bind(layout framepipe.PixelLayout) (framepipe.Kernel, error) {
	return &colorizeKernel{params: t.params, layout: layout}, nil
}

// colorizeToTransform is NewColorize with an explicit target layout,
// for streams whose tag already says 32FC1 rather than carrying the
// desired color encoding.
type colorizeToTransform struct {
	params Params
	target framepipe.Encoding
}

var (
	_ framepipe.Transform   = (*colorizeToTransform)(nil)
	_ framepipe.FrameBinder = (*colorizeToTransform)(nil)
)

// NewColorizeTo returns a colorize transform bound to an explicit target
// encoding instead of the stream tag. The inbound stream must carry
// scalar samples (32FC1), as produced by NewStep.
func NewColorizeTo(p Params, target framepipe.Encoding) framepipe.Transform {
	return &colorizeToTransform{params: p, target: target}
}

func (t *colorizeToTransform) Name() string { return "julia-colorize" }

func (t *colorizeToTransform) Bind(layout framepipe.PixelLayout) (framepipe.Kernel, error) {
	return t.BindFrame(layout.Encoding, layout.RowStep, layout.Width, layout.Height)
}

func (t *colorizeToTransform) BindFrame(encoding framepipe.Encoding, rowStep, width, height uint32) (framepipe.Kernel, error) {
	if encoding != framepipe.EncodingFloat32 {
		return nil, fmt.Errorf("julia: colorize requires %q input, got %q",
			framepipe.EncodingFloat32, encoding)
	}
	layout, err := framepipe.ResolveLayout(t.target, 0, width, height)
	if err != nil {
		return nil, err
	}
	layout.RowStep = width * layout.BytesPerPixel
	return &colorizeKernel{params: t.params, layout: layout}, nil
}

// colorizeKernel writes color through the bound channel offsets, so the
// hot path never re-derives them.
type colorizeKernel struct {
	params Params
	layout framepipe.PixelLayout
}

func (k *colorizeKernel) OutputEncoding() framepipe.Encoding { return k.layout.Encoding }
func (k *colorizeKernel) OutputBytesPerPixel() uint32        { return k.layout.BytesPerPixel }

func (k *colorizeKernel) Invoke(dst, src framepipe.Buffer, stream framepipe.Stream) error {
	if dst.Domain() == framepipe.DomainDevice {
		a := accelerator()
		if a == nil {
			return ErrNoAccelerator
		}
		return a.Colorize(dst, src, k.layout, k.params, stream)
	}

	in, ok := hostBytes(src)
	if !ok {
		return ErrNoAccelerator
	}
	out, ok := hostBytes(dst)
	if !ok {
		return ErrNoAccelerator
	}

	l := k.layout
	pixels := l.PixelCount()
	bpp := uint64(l.BytesPerPixel)
	for i := uint64(0); i < pixels; i++ {
		v := math.Float32frombits(binary.LittleEndian.Uint32(in[i*4:]))
		r, g, b := shadePixel(v)

		p := out[i*bpp:]
		if l.BytesPerPixel == 1 {
			p[0] = r
			continue
		}
		p[l.RedOffset] = r
		p[l.GreenOffset] = g
		p[l.BlueOffset] = b
	}
	return nil
}

// shadePixel maps a normalized escape count to a color: red tracks the
// count, blue its complement, green a parabola peaking mid-range.
// Interior points (v == 1) come out red, fast escapes blue.
func shadePixel(v float32) (r, g, b uint8) {
	switch {
	case v < 0:
		v = 0
	case v > 1:
		v = 1
	}
	s := uint32(v * 255)
	r = uint8(s)
	g = uint8(s * (255 - s) * 4 / 255)
	b = uint8(255 - s)
	return r, g, b
}
