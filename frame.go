package framepipe

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Header carries a frame's identity metadata. A stage copies the inbound
// header onto its output unchanged, so timestamps and coordinate frames
// survive every hop of the pipeline.
type Header struct {
	// ID uniquely identifies the frame across the process.
	ID uuid.UUID

	// Stamp is the acquisition time of the underlying data.
	Stamp time.Time

	// FrameID names the coordinate frame the data is associated with.
	FrameID string

	// Seq is the position of the frame within its stream.
	Seq uint64
}

// Frame is one image in a stream: geometry, encoding, and a pixel buffer
// with its memory domain and execution queue.
//
// Ownership is a move contract. A Frame delivered to a stage belongs to
// that stage only for the duration of the callback; a Frame handed to a
// publisher belongs to the downstream consumer, and the sender must not
// touch it afterward. Frames are never shared between owners.
type Frame struct {
	// Header is the identity metadata.
	Header Header

	// Width is the image width in pixels.
	Width uint32

	// Height is the image height in pixels.
	Height uint32

	// RowStep is the length of a row in bytes.
	RowStep uint32

	// Encoding identifies the pixel format of Buffer.
	Encoding Encoding

	// Buffer holds the pixel data.
	Buffer Buffer
}

// NewFrame allocates a frame with a fresh host-domain buffer sized
// height*rowStep, a new ID, and the given geometry.
func NewFrame(width, height, rowStep uint32, encoding Encoding) (*Frame, error) {
	if width == 0 || height == 0 || rowStep == 0 {
		return nil, fmt.Errorf("framepipe: invalid frame geometry %dx%d step %d", width, height, rowStep)
	}
	buf, err := NewHostBuffer(uint64(height)*uint64(rowStep), nil)
	if err != nil {
		return nil, err
	}
	return &Frame{
		Header:   Header{ID: uuid.New(), Stamp: time.Now()},
		Width:    width,
		Height:   height,
		RowStep:  rowStep,
		Encoding: encoding,
		Buffer:   buf,
	}, nil
}

// SizeInBytes returns the frame's pixel data size, height*rowStep.
func (f *Frame) SizeInBytes() uint64 {
	return uint64(f.Height) * uint64(f.RowStep)
}
