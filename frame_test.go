package framepipe

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewFrame(t *testing.T) {
	f, err := NewFrame(640, 480, 1920, EncodingRGB8)
	if err != nil {
		t.Fatalf("NewFrame() error: %v", err)
	}

	if f.Width != 640 || f.Height != 480 || f.RowStep != 1920 {
		t.Errorf("geometry = %dx%d step %d", f.Width, f.Height, f.RowStep)
	}
	if f.Encoding != EncodingRGB8 {
		t.Errorf("encoding = %q, want rgb8", f.Encoding)
	}
	if f.Buffer == nil {
		t.Fatal("Buffer is nil")
	}
	if f.Buffer.Size() != 480*1920 {
		t.Errorf("buffer size %d, want %d", f.Buffer.Size(), 480*1920)
	}
	if f.Buffer.Domain() != DomainHost {
		t.Errorf("buffer domain %v, want host", f.Buffer.Domain())
	}
	if f.Header.ID == uuid.Nil {
		t.Error("frame ID not assigned")
	}
	if f.Header.Stamp.IsZero() {
		t.Error("frame stamp not assigned")
	}
}

func TestNewFrameIDsUnique(t *testing.T) {
	a, err := NewFrame(8, 8, 24, EncodingRGB8)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewFrame(8, 8, 24, EncodingRGB8)
	if err != nil {
		t.Fatal(err)
	}
	if a.Header.ID == b.Header.ID {
		t.Error("two frames share an ID")
	}
}

func TestNewFrameInvalidGeometry(t *testing.T) {
	tests := []struct {
		name                   string
		width, height, rowStep uint32
	}{
		{"zero width", 0, 480, 1920},
		{"zero height", 640, 0, 1920},
		{"zero row step", 640, 480, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFrame(tt.width, tt.height, tt.rowStep, EncodingRGB8); err == nil {
				t.Error("NewFrame() succeeded, want error")
			}
		})
	}
}

func TestFrameSizeInBytes(t *testing.T) {
	f := &Frame{Height: 480, RowStep: 1920}
	if got := f.SizeInBytes(); got != 480*1920 {
		t.Errorf("SizeInBytes() = %d, want %d", got, 480*1920)
	}
}
