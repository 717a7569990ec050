package julia

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/framepipe"
)

// mapTransform projects the pixel grid onto the complex plane.
type mapTransform struct {
	params Params
}

var _ framepipe.Transform = (*mapTransform)(nil)

// NewMap returns a transform that emits each pixel's complex-plane
// coordinates as a float32 pair. The binding uses only the frame
// geometry; channel offsets play no role.
func NewMap(p Params) framepipe.Transform {
	return &mapTransform{params: p}
}

func (t *mapTransform) Name() string { return "julia-map" }

func (t *mapTransform) Bind(layout framepipe.PixelLayout) (framepipe.Kernel, error) {
	return &mapKernel{
		params: t.params,
		width:  layout.Width,
		height: layout.Height,
	}, nil
}

// mapKernel is a mapTransform bound to a fixed geometry.
type mapKernel struct {
	params Params
	width  uint32
	height uint32
}

func (k *mapKernel) OutputEncoding() framepipe.Encoding { return framepipe.EncodingFloat32x2 }
func (k *mapKernel) OutputBytesPerPixel() uint32        { return 8 }

func (k *mapKernel) Invoke(dst, src framepipe.Buffer, stream framepipe.Stream) error {
	if dst.Domain() == framepipe.DomainDevice {
		a := accelerator()
		if a == nil {
			return ErrNoAccelerator
		}
		return a.MapGrid(dst, k.width, k.height, k.params, stream)
	}

	out, ok := hostBytes(dst)
	if !ok {
		return ErrNoAccelerator
	}
	_ = src // the coordinate field depends only on the grid

	p := k.params
	dx := (p.MaxX - p.MinX) / float32(maxu(k.width-1, 1))
	dy := (p.MaxY - p.MinY) / float32(maxu(k.height-1, 1))
	for y := uint32(0); y < k.height; y++ {
		im := p.MinY + dy*float32(y)
		row := out[uint64(y)*uint64(k.width)*8:]
		for x := uint32(0); x < k.width; x++ {
			re := p.MinX + dx*float32(x)
			binary.LittleEndian.PutUint32(row[x*8:], math.Float32bits(re))
			binary.LittleEndian.PutUint32(row[x*8+4:], math.Float32bits(im))
		}
	}
	return nil
}

func maxu(v, lo uint32) uint32 {
	if v < lo {
		return lo
	}
	return v
}
