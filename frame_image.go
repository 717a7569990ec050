package framepipe

import (
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"
)

// FrameFromImage converts an image into a host-domain frame with the
// given encoding. Supported encodings are rgb8, bgr8, and mono8; any
// other tag returns a *UnsupportedEncodingError.
//
// The source image is converted through RGBA, so any image.Image works.
func FrameFromImage(img image.Image, encoding Encoding) (*Frame, error) {
	bounds := img.Bounds()
	width := uint32(bounds.Dx())
	height := uint32(bounds.Dy())

	layout, err := ResolveLayout(encoding, 0, width, height)
	if err != nil {
		return nil, err
	}
	rowStep := width * layout.BytesPerPixel
	layout.RowStep = rowStep

	frame, err := NewFrame(width, height, rowStep, encoding)
	if err != nil {
		return nil, err
	}

	// Normalize to RGBA once, then pack through the layout offsets.
	rgba := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	xdraw.Draw(rgba, rgba.Bounds(), img, bounds.Min, xdraw.Src)

	data := frame.Buffer.(HostBytes).Bytes()
	packRGBA(data, rgba, layout)
	return frame, nil
}

// packRGBA writes rgba pixels into data through the layout's channel
// offsets. Single-channel layouts get the luma approximation
// (r+2g+b)/4, which stays in integer math.
func packRGBA(data []byte, rgba *image.RGBA, layout PixelLayout) {
	w, h := int(layout.Width), int(layout.Height)
	for y := 0; y < h; y++ {
		src := rgba.Pix[y*rgba.Stride:]
		dst := data[y*int(layout.RowStep):]
		for x := 0; x < w; x++ {
			r := src[x*4+0]
			g := src[x*4+1]
			b := src[x*4+2]
			p := dst[x*int(layout.BytesPerPixel):]
			if layout.BytesPerPixel == 1 {
				p[0] = uint8((uint32(r) + 2*uint32(g) + uint32(b)) / 4)
				continue
			}
			p[layout.RedOffset] = r
			p[layout.GreenOffset] = g
			p[layout.BlueOffset] = b
		}
	}
}

// Image converts the frame into an image.Image. Device-domain buffers are
// downloaded first, which waits on the frame's execution queue; this is
// the explicit host-copy boundary, never crossed implicitly by stages.
//
// rgb8 and bgr8 produce *image.RGBA, mono8 produces *image.Gray.
func (f *Frame) Image() (image.Image, error) {
	layout, err := ResolveLayout(f.Encoding, f.RowStep, f.Width, f.Height)
	if err != nil {
		return nil, err
	}

	data, err := hostViewOf(f.Buffer)
	if err != nil {
		return nil, err
	}

	w, h := int(f.Width), int(f.Height)
	if layout.BytesPerPixel == 1 {
		img := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+w], data[y*int(f.RowStep):])
		}
		return img, nil
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := data[y*int(f.RowStep):]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			p := src[x*int(layout.BytesPerPixel):]
			dst[x*4+0] = p[layout.RedOffset]
			dst[x*4+1] = p[layout.GreenOffset]
			dst[x*4+2] = p[layout.BlueOffset]
			dst[x*4+3] = 0xff
		}
	}
	return img, nil
}

// ScaleFrame resizes a frame to the given dimensions using bilinear
// interpolation, returning a new host-domain frame with the same
// encoding. Useful for adapting a source to a pipeline's expected
// geometry before the first frame binds the layout.
func ScaleFrame(f *Frame, width, height uint32) (*Frame, error) {
	src, err := f.Image()
	if err != nil {
		return nil, err
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	scaled, err := FrameFromImage(dst, f.Encoding)
	if err != nil {
		return nil, err
	}
	scaled.Header = f.Header
	return scaled, nil
}

// hostViewOf returns the frame bytes on the host: the backing slice for
// host buffers, a downloaded copy for device buffers.
func hostViewOf(buf Buffer) ([]byte, error) {
	if hb, ok := buf.(HostBytes); ok {
		return hb.Bytes(), nil
	}
	data := make([]byte, buf.Size())
	if err := buf.Download(data); err != nil {
		return nil, fmt.Errorf("framepipe: download for host view: %w", err)
	}
	return data, nil
}
