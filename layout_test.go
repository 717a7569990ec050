package framepipe

import (
	"errors"
	"strings"
	"testing"
)

func TestResolveLayout(t *testing.T) {
	tests := []struct {
		name     string
		encoding Encoding
		want     PixelLayout
	}{
		{
			name:     "rgb8",
			encoding: EncodingRGB8,
			want: PixelLayout{
				RedOffset: 0, GreenOffset: 1, BlueOffset: 2,
				BytesPerPixel: 3,
			},
		},
		{
			name:     "bgr8",
			encoding: EncodingBGR8,
			want: PixelLayout{
				BlueOffset: 0, GreenOffset: 1, RedOffset: 2,
				BytesPerPixel: 3,
			},
		},
		{
			name:     "mono8",
			encoding: EncodingMono8,
			want: PixelLayout{
				RedOffset: 0, GreenOffset: 0, BlueOffset: 0,
				BytesPerPixel: 1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveLayout(tt.encoding, 1920, 640, 480)
			if err != nil {
				t.Fatalf("ResolveLayout(%q) error: %v", tt.encoding, err)
			}

			tt.want.RowStep = 1920
			tt.want.Width = 640
			tt.want.Height = 480
			tt.want.Encoding = tt.encoding
			if got != tt.want {
				t.Errorf("ResolveLayout(%q) = %+v, want %+v", tt.encoding, got, tt.want)
			}
		})
	}
}

func TestResolveLayoutUnsupported(t *testing.T) {
	for _, enc := range []Encoding{"yuv422", "rgba8", "", "RGB8"} {
		_, err := ResolveLayout(enc, 0, 64, 64)
		if err == nil {
			t.Fatalf("ResolveLayout(%q) succeeded, want error", enc)
		}

		var ue *UnsupportedEncodingError
		if !errors.As(err, &ue) {
			t.Fatalf("ResolveLayout(%q) error %T, want *UnsupportedEncodingError", enc, err)
		}
		if ue.Encoding != enc {
			t.Errorf("UnsupportedEncodingError.Encoding = %q, want %q", ue.Encoding, enc)
		}
		if !strings.Contains(err.Error(), string(enc)) && enc != "" {
			t.Errorf("error %q does not name the encoding %q", err, enc)
		}
	}
}

func TestResolveLayoutDeterministic(t *testing.T) {
	a, err := ResolveLayout(EncodingBGR8, 2400, 800, 600)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ResolveLayout(EncodingBGR8, 2400, 800, 600)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("same inputs resolved differently: %+v vs %+v", a, b)
	}
}

func TestChannelOffset(t *testing.T) {
	l, err := ResolveLayout(EncodingBGR8, 0, 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if got := l.ChannelOffset(ChannelRed); got != 2 {
		t.Errorf("ChannelOffset(red) = %d, want 2", got)
	}
	if got := l.ChannelOffset(ChannelGreen); got != 1 {
		t.Errorf("ChannelOffset(green) = %d, want 1", got)
	}
	if got := l.ChannelOffset(ChannelBlue); got != 0 {
		t.Errorf("ChannelOffset(blue) = %d, want 0", got)
	}
}

func TestChannelString(t *testing.T) {
	tests := []struct {
		c    Channel
		want string
	}{
		{ChannelRed, "red"},
		{ChannelGreen, "green"},
		{ChannelBlue, "blue"},
		{Channel(42), "Unknown(42)"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("Channel(%d).String() = %q, want %q", int(tt.c), got, tt.want)
		}
	}
}

func TestLayoutMatches(t *testing.T) {
	l, err := ResolveLayout(EncodingRGB8, 192, 64, 48)
	if err != nil {
		t.Fatal(err)
	}

	base := func() *Frame {
		f, err := NewFrame(64, 48, 192, EncodingRGB8)
		if err != nil {
			t.Fatal(err)
		}
		return f
	}

	f := base()
	if !l.Matches(f) {
		t.Error("Matches() = false for identical geometry")
	}

	f = base()
	f.Encoding = EncodingBGR8
	if l.Matches(f) {
		t.Error("Matches() = true for different encoding")
	}

	f = base()
	f.Width = 32
	if l.Matches(f) {
		t.Error("Matches() = true for different width")
	}

	f = base()
	f.RowStep = 256
	if l.Matches(f) {
		t.Error("Matches() = true for different row step")
	}
}

func TestPixelCount(t *testing.T) {
	l := PixelLayout{Width: 1920, Height: 1080}
	if got := l.PixelCount(); got != 1920*1080 {
		t.Errorf("PixelCount() = %d, want %d", got, 1920*1080)
	}
}
