package framepipe

// Encoding identifies how color samples are packed into a pixel: channel
// order and bit depth. The tags follow the conventional image transport
// names, so frames arriving from an external source carry tags the
// resolver understands directly.
type Encoding string

// Supported input encodings. Any other tag fails layout resolution.
const (
	// EncodingRGB8 is three 8-bit channels, red first.
	EncodingRGB8 Encoding = "rgb8"

	// EncodingBGR8 is three 8-bit channels, blue first.
	EncodingBGR8 Encoding = "bgr8"

	// EncodingMono8 is a single 8-bit channel.
	EncodingMono8 Encoding = "mono8"
)

// Output encodings produced by transform kernels.
const (
	// EncodingFloat32 is one 32-bit float sample per pixel.
	EncodingFloat32 Encoding = "32FC1"

	// EncodingFloat32x2 is two 32-bit float samples per pixel,
	// used for packed coordinate pairs.
	EncodingFloat32x2 Encoding = "32FC2"
)

// String returns the encoding tag.
func (e Encoding) String() string { return string(e) }
