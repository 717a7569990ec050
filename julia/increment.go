package julia

import "github.com/gogpu/framepipe"

// incrementTransform adds one to every byte of the frame.
type incrementTransform struct{}

var _ framepipe.Transform = (*incrementTransform)(nil)

// NewIncrement returns the trivial transform: output = input + 1,
// byte-wise with wraparound. It preserves the stream's encoding and
// element size, and exists mainly to measure pipeline overhead against a
// kernel that does almost no work.
func NewIncrement() framepipe.Transform {
	return incrementTransform{}
}

func (incrementTransform) Name() string { return "increment" }

func (incrementTransform) Bind(layout framepipe.PixelLayout) (framepipe.Kernel, error) {
	return &incrementKernel{layout: layout}, nil
}

type incrementKernel struct {
	layout framepipe.PixelLayout
}

func (k *incrementKernel) OutputEncoding() framepipe.Encoding { return k.layout.Encoding }
func (k *incrementKernel) OutputBytesPerPixel() uint32        { return k.layout.BytesPerPixel }

func (k *incrementKernel) Invoke(dst, src framepipe.Buffer, stream framepipe.Stream) error {
	l := k.layout
	rowBytes := uint64(l.Width) * uint64(l.BytesPerPixel)

	if dst.Domain() == framepipe.DomainDevice {
		a := accelerator()
		if a == nil {
			return ErrNoAccelerator
		}
		return a.Increment(dst, src, rowBytes*uint64(l.Height), stream)
	}

	in, ok := hostBytes(src)
	if !ok {
		return ErrNoAccelerator
	}
	out, ok := hostBytes(dst)
	if !ok {
		return ErrNoAccelerator
	}

	// The input row step may carry padding; the output is tight.
	for y := uint64(0); y < uint64(l.Height); y++ {
		srcRow := in[y*uint64(l.RowStep):]
		dstRow := out[y*rowBytes:]
		for i := uint64(0); i < rowBytes; i++ {
			dstRow[i] = srcRow[i] + 1
		}
	}
	return nil
}
