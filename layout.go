package framepipe

import "fmt"

// UnsupportedEncodingError is returned by ResolveLayout when a frame's
// encoding tag is not one of the supported forms. It carries the offending
// tag so callers can report what actually arrived.
//
// No layout can be derived for such a stream, so a stage treats this as
// fatal for the stream: it logs once and produces no output.
type UnsupportedEncodingError struct {
	// Encoding is the tag that could not be resolved.
	Encoding Encoding
}

func (e *UnsupportedEncodingError) Error() string {
	return fmt.Sprintf("framepipe: unsupported encoding %q", string(e.Encoding))
}

// Channel identifies a logical color channel within a pixel.
type Channel int

// Logical channels addressed by a PixelLayout.
const (
	ChannelRed Channel = iota
	ChannelGreen
	ChannelBlue
)

// String returns the channel name.
func (c Channel) String() string {
	switch c {
	case ChannelRed:
		return "red"
	case ChannelGreen:
		return "green"
	case ChannelBlue:
		return "blue"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// PixelLayout describes how a frame's pixels are laid out in memory:
// per-channel byte offsets within a pixel, the pixel size, and the frame
// geometry the layout was derived from.
//
// A PixelLayout is immutable once resolved. A stage resolves it exactly
// once per stream, on the first frame, and the per-frame hot path reads it
// without re-deriving or re-validating anything.
type PixelLayout struct {
	// RedOffset is the byte offset of the red sample within a pixel.
	RedOffset uint32

	// GreenOffset is the byte offset of the green sample within a pixel.
	GreenOffset uint32

	// BlueOffset is the byte offset of the blue sample within a pixel.
	BlueOffset uint32

	// BytesPerPixel is the pixel size in bytes (the color step).
	// Every channel offset is strictly less than BytesPerPixel.
	BytesPerPixel uint32

	// RowStep is the length of a row in bytes, as declared by the frame.
	RowStep uint32

	// Width is the frame width in pixels.
	Width uint32

	// Height is the frame height in pixels.
	Height uint32

	// Encoding is the source encoding the layout was derived from.
	Encoding Encoding
}

// ChannelOffset returns the byte offset of a logical channel.
// For single-channel layouts all channels alias the one sample.
func (l PixelLayout) ChannelOffset(c Channel) uint32 {
	switch c {
	case ChannelGreen:
		return l.GreenOffset
	case ChannelBlue:
		return l.BlueOffset
	default:
		return l.RedOffset
	}
}

// PixelCount returns the number of pixels in the frame geometry.
func (l PixelLayout) PixelCount() uint64 {
	return uint64(l.Width) * uint64(l.Height)
}

// Matches reports whether a frame's encoding and geometry agree with the
// layout. Used by stages to detect mid-stream shape changes.
func (l PixelLayout) Matches(f *Frame) bool {
	return f.Encoding == l.Encoding &&
		f.Width == l.Width &&
		f.Height == l.Height &&
		f.RowStep == l.RowStep
}

// ResolveLayout derives a PixelLayout from an encoding tag and the raw
// frame geometry. It is pure and deterministic: the same inputs always
// produce the same layout, and no state is touched. In the happy path a
// stage calls it at most once per stream.
//
// Supported encodings:
//   - rgb8:  offsets {red:0, green:1, blue:2}, 3 bytes per pixel
//   - bgr8:  offsets {blue:0, green:1, red:2}, 3 bytes per pixel
//   - mono8: all channels alias offset 0, 1 byte per pixel
//
// Any other tag returns a *UnsupportedEncodingError and a zero layout.
func ResolveLayout(encoding Encoding, rowStep, width, height uint32) (PixelLayout, error) {
	layout := PixelLayout{
		RowStep:  rowStep,
		Width:    width,
		Height:   height,
		Encoding: encoding,
	}

	switch encoding {
	case EncodingRGB8:
		layout.RedOffset = 0
		layout.GreenOffset = 1
		layout.BlueOffset = 2
		layout.BytesPerPixel = 3
	case EncodingBGR8:
		layout.BlueOffset = 0
		layout.GreenOffset = 1
		layout.RedOffset = 2
		layout.BytesPerPixel = 3
	case EncodingMono8:
		layout.RedOffset = 0
		layout.GreenOffset = 0
		layout.BlueOffset = 0
		layout.BytesPerPixel = 1
	default:
		return PixelLayout{}, &UnsupportedEncodingError{Encoding: encoding}
	}

	return layout, nil
}
