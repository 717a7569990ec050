package framepipe

// Transform builds kernels. Binding is the one-time dynamic-dispatch
// point of a stage: the transform captures the resolved PixelLayout and
// its own configuration into a Kernel, so the per-frame hot path never
// branches on the encoding again.
type Transform interface {
	// Name returns a short name for logging.
	Name() string

	// Bind fixes the transform to a resolved layout and returns the
	// kernel the stage will invoke for every frame of the stream.
	Bind(layout PixelLayout) (Kernel, error)
}

// FrameBinder is an optional interface for transforms that bind from the
// raw inbound frame descriptor instead of a resolved channel layout.
// Transforms over scalar sample fields (the julia step, an explicitly
// targeted colorize) implement it, since no channel layout exists for
// float encodings. A stage prefers BindFrame over Bind when the
// transform provides it.
type FrameBinder interface {
	// BindFrame fixes the transform to the inbound frame shape.
	BindFrame(encoding Encoding, rowStep, width, height uint32) (Kernel, error)
}

// Kernel is a transform bound to a fixed pixel layout.
//
// Invoke writes a full-frame transformed output into dst given the input
// buffer src, using the execution queue stream. Both buffers must cover
// the pixel count of the bound layout; that is the caller's
// responsibility and is not re-checked per frame. Invoke only enqueues
// work when the stream is asynchronous; completion ordering belongs to
// the execution queue.
type Kernel interface {
	// OutputEncoding returns the encoding of frames the kernel produces.
	OutputEncoding() Encoding

	// OutputBytesPerPixel returns the output element size, used by the
	// stage to compute the outbound row step and buffer size.
	OutputBytesPerPixel() uint32

	// Invoke transforms src into dst on the given execution queue.
	Invoke(dst, src Buffer, stream Stream) error
}
