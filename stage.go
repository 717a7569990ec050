package framepipe

import "fmt"

// Publisher accepts outbound frames. Publish takes ownership of the
// frame: the caller must not touch it afterward.
//
// The bus package provides a topic-backed implementation; tests typically
// use a PublisherFunc that captures frames.
type Publisher interface {
	Publish(*Frame)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(*Frame)

// Publish calls f.
func (f PublisherFunc) Publish(frame *Frame) { f(frame) }

// GeometryError describes a frame whose encoding or geometry disagrees
// with the layout the stage bound on first contact.
type GeometryError struct {
	// Bound is the layout derived from the first frame.
	Bound PixelLayout

	// Encoding, Width, Height, RowStep describe the offending frame.
	Encoding Encoding
	Width    uint32
	Height   uint32
	RowStep  uint32
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf(
		"framepipe: frame %q %dx%d step %d does not match bound layout %q %dx%d step %d",
		e.Encoding, e.Width, e.Height, e.RowStep,
		e.Bound.Encoding, e.Bound.Width, e.Bound.Height, e.Bound.RowStep)
}

// MismatchPolicy selects what a stage does with frames that disagree with
// the bound layout.
type MismatchPolicy int

const (
	// MismatchDrop rejects the frame: log a warning, produce no output.
	// This is the default. Silently running the stale layout over data
	// of a different shape would misinterpret it.
	MismatchDrop MismatchPolicy = iota

	// MismatchRebind re-resolves the layout and re-binds the kernel for
	// the new shape, then processes the frame normally.
	MismatchRebind
)

// String returns the string representation of MismatchPolicy.
func (p MismatchPolicy) String() string {
	switch p {
	case MismatchDrop:
		return "drop"
	case MismatchRebind:
		return "rebind"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

// StageOption configures a Stage during creation.
type StageOption func(*stageOptions)

// stageOptions holds optional configuration for Stage creation.
type stageOptions struct {
	name     string
	mismatch MismatchPolicy
}

// WithStageName sets the name the stage uses in log output.
// Defaults to the transform's name.
func WithStageName(name string) StageOption {
	return func(o *stageOptions) { o.name = name }
}

// WithMismatchPolicy sets how the stage treats frames whose encoding or
// geometry differs from the layout bound on first contact.
// Defaults to MismatchDrop.
func WithMismatchPolicy(p MismatchPolicy) StageOption {
	return func(o *stageOptions) { o.mismatch = p }
}

// binding is the bound half of the stage state machine. Layout and kernel
// are set together, so a bound layout without a bound kernel cannot exist.
type binding struct {
	layout PixelLayout
	kernel Kernel
}

// Stage applies one transform to a stream of frames.
//
// A stage is a two-state machine. It starts uninitialized; the first
// inbound frame resolves a PixelLayout from the frame's encoding and
// geometry and binds the transform's kernel to it. Every frame after that
// reuses the binding: the hot path allocates an output buffer in the
// inbound frame's memory domain, invokes the kernel, and hands the result
// to the publisher.
//
// Processing is fire and forget: OnFrame returns nothing, and failures
// surface as the stage producing no output. If the first frame's encoding
// cannot be resolved, the stream is dead — the stage logs the error once
// and drops everything that follows, since no layout can ever be bound.
//
// A Stage is not reentrant. The caller must serialize OnFrame invocations
// for a given instance; the pipeline package does this. After binding,
// the layout and kernel are immutable and read without locking.
type Stage struct {
	transform Transform
	publisher Publisher
	opts      stageOptions

	// bound is nil while the stage is uninitialized.
	bound *binding

	// dead is set when layout resolution fails; the stream can never
	// produce output after that.
	dead bool
}

// NewStage creates a stage that runs transform and forwards results to
// publisher.
func NewStage(transform Transform, publisher Publisher, opts ...StageOption) *Stage {
	o := stageOptions{mismatch: MismatchDrop}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = transform.Name()
	}
	return &Stage{
		transform: transform,
		publisher: publisher,
		opts:      o,
	}
}

// Name returns the stage's log name.
func (s *Stage) Name() string { return s.opts.name }

// Bound reports whether the stage has bound a layout and kernel.
func (s *Stage) Bound() bool { return s.bound != nil }

// Layout returns the bound layout. The second result is false while the
// stage is uninitialized.
func (s *Stage) Layout() (PixelLayout, bool) {
	if s.bound == nil {
		return PixelLayout{}, false
	}
	return s.bound.layout, true
}

// OnFrame processes one inbound frame.
//
// The stage owns in only for the duration of the call and retains no
// reference to it or its buffer afterward. The outbound frame is owned by
// the publisher once forwarded.
func (s *Stage) OnFrame(in *Frame) {
	if s.dead {
		return
	}

	switch {
	case s.bound == nil:
		if err := s.bind(in); err != nil {
			// No layout can ever be derived for this stream.
			s.dead = true
			Logger().Error("stage binding failed, stream is dead",
				"stage", s.opts.name, "err", err)
			return
		}
	case !s.bound.layout.Matches(in):
		gerr := &GeometryError{
			Bound:    s.bound.layout,
			Encoding: in.Encoding,
			Width:    in.Width,
			Height:   in.Height,
			RowStep:  in.RowStep,
		}
		if s.opts.mismatch == MismatchDrop {
			Logger().Warn("frame dropped",
				"stage", s.opts.name, "err", gerr)
			return
		}
		Logger().Warn("rebinding stage for new frame shape",
			"stage", s.opts.name, "err", gerr)
		if err := s.bind(in); err != nil {
			s.dead = true
			Logger().Error("stage rebinding failed, stream is dead",
				"stage", s.opts.name, "err", err)
			return
		}
	}

	out, err := s.newOutput(in)
	if err != nil {
		Logger().Warn("output allocation failed, frame dropped",
			"stage", s.opts.name, "err", err)
		return
	}

	if err := s.bound.kernel.Invoke(out.Buffer, in.Buffer, out.Buffer.Stream()); err != nil {
		// Never forward a partially written frame.
		Logger().Warn("kernel invocation failed, frame dropped",
			"stage", s.opts.name, "err", err)
		return
	}

	s.publisher.Publish(out)
}

// bind resolves the layout from the frame and binds the kernel,
// transitioning the stage to the bound state.
//
// Transforms that implement FrameBinder bind from the raw frame
// descriptor; everything else goes through ResolveLayout.
func (s *Stage) bind(in *Frame) error {
	var (
		layout PixelLayout
		kernel Kernel
		err    error
	)
	if fb, ok := s.transform.(FrameBinder); ok {
		kernel, err = fb.BindFrame(in.Encoding, in.RowStep, in.Width, in.Height)
		if err != nil {
			return fmt.Errorf("bind %s: %w", s.transform.Name(), err)
		}
		// Descriptor-only layout: enough for the Matches check.
		layout = PixelLayout{
			RowStep:  in.RowStep,
			Width:    in.Width,
			Height:   in.Height,
			Encoding: in.Encoding,
		}
	} else {
		layout, err = ResolveLayout(in.Encoding, in.RowStep, in.Width, in.Height)
		if err != nil {
			return err
		}
		kernel, err = s.transform.Bind(layout)
		if err != nil {
			return fmt.Errorf("bind %s: %w", s.transform.Name(), err)
		}
	}
	s.bound = &binding{layout: layout, kernel: kernel}
	Logger().Info("stage bound",
		"stage", s.opts.name,
		"encoding", in.Encoding,
		"width", in.Width, "height", in.Height,
		"out_encoding", kernel.OutputEncoding())
	return nil
}

// newOutput builds the outbound frame: same header identity and
// dimensions, the kernel's output encoding, row step recomputed for the
// output element size, and a fresh buffer in the inbound frame's memory
// domain on the same execution queue.
func (s *Stage) newOutput(in *Frame) (*Frame, error) {
	bpp := s.bound.kernel.OutputBytesPerPixel()
	rowStep := in.Width * bpp
	buf, err := in.Buffer.Alloc(uint64(in.Height) * uint64(rowStep))
	if err != nil {
		return nil, err
	}
	return &Frame{
		Header:   in.Header,
		Width:    in.Width,
		Height:   in.Height,
		RowStep:  rowStep,
		Encoding: s.bound.kernel.OutputEncoding(),
		Buffer:   buf,
	}, nil
}
