package framepipe

import (
	"image"
	"image/color"
	"testing"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x * 17), G: uint8(y * 31), B: uint8((x + y) * 7), A: 0xff,
			})
		}
	}
	return img
}

func TestFrameFromImageRGB8(t *testing.T) {
	img := testImage(4, 3)
	f, err := FrameFromImage(img, EncodingRGB8)
	if err != nil {
		t.Fatalf("FrameFromImage() error: %v", err)
	}

	if f.Width != 4 || f.Height != 3 || f.RowStep != 12 {
		t.Errorf("geometry = %dx%d step %d, want 4x3 step 12", f.Width, f.Height, f.RowStep)
	}

	data := f.Buffer.(HostBytes).Bytes()
	// Pixel (2,1): r=34, g=31, b=21.
	p := data[1*12+2*3:]
	if p[0] != 34 || p[1] != 31 || p[2] != 21 {
		t.Errorf("pixel (2,1) = %v, want [34 31 21]", p[:3])
	}
}

func TestFrameFromImageBGR8SwapsChannels(t *testing.T) {
	img := testImage(2, 1)
	f, err := FrameFromImage(img, EncodingBGR8)
	if err != nil {
		t.Fatal(err)
	}
	data := f.Buffer.(HostBytes).Bytes()
	// Pixel (1,0): r=17, g=0, b=7, stored blue-first.
	if data[3] != 7 || data[4] != 0 || data[5] != 17 {
		t.Errorf("pixel (1,0) = %v, want [7 0 17]", data[3:6])
	}
}

func TestFrameFromImageMono8(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 100, G: 200, B: 60, A: 0xff})
	f, err := FrameFromImage(img, EncodingMono8)
	if err != nil {
		t.Fatal(err)
	}
	data := f.Buffer.(HostBytes).Bytes()
	if want := uint8((100 + 2*200 + 60) / 4); data[0] != want {
		t.Errorf("mono sample = %d, want %d", data[0], want)
	}
}

func TestFrameFromImageUnsupported(t *testing.T) {
	if _, err := FrameFromImage(testImage(2, 2), "yuv422"); err == nil {
		t.Error("FrameFromImage(yuv422) succeeded, want error")
	}
}

func TestFrameImageRoundTrip(t *testing.T) {
	for _, enc := range []Encoding{EncodingRGB8, EncodingBGR8} {
		t.Run(string(enc), func(t *testing.T) {
			src := testImage(5, 4)
			f, err := FrameFromImage(src, enc)
			if err != nil {
				t.Fatal(err)
			}
			got, err := f.Image()
			if err != nil {
				t.Fatalf("Image() error: %v", err)
			}
			rgba, ok := got.(*image.RGBA)
			if !ok {
				t.Fatalf("Image() returned %T, want *image.RGBA", got)
			}
			for y := 0; y < 4; y++ {
				for x := 0; x < 5; x++ {
					if rgba.RGBAAt(x, y) != src.RGBAAt(x, y) {
						t.Fatalf("pixel (%d,%d) = %v, want %v",
							x, y, rgba.RGBAAt(x, y), src.RGBAAt(x, y))
					}
				}
			}
		})
	}
}

func TestFrameImageMono(t *testing.T) {
	f, err := NewFrame(3, 2, 3, EncodingMono8)
	if err != nil {
		t.Fatal(err)
	}
	data := f.Buffer.(HostBytes).Bytes()
	for i := range data {
		data[i] = uint8(i * 40)
	}

	img, err := f.Image()
	if err != nil {
		t.Fatal(err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("Image() returned %T, want *image.Gray", img)
	}
	if gray.GrayAt(2, 1).Y != 200 {
		t.Errorf("gray (2,1) = %d, want 200", gray.GrayAt(2, 1).Y)
	}
}

func TestScaleFrame(t *testing.T) {
	f, err := FrameFromImage(testImage(8, 8), EncodingRGB8)
	if err != nil {
		t.Fatal(err)
	}
	f.Header.FrameID = "camera"

	scaled, err := ScaleFrame(f, 4, 4)
	if err != nil {
		t.Fatalf("ScaleFrame() error: %v", err)
	}
	if scaled.Width != 4 || scaled.Height != 4 {
		t.Errorf("scaled geometry %dx%d, want 4x4", scaled.Width, scaled.Height)
	}
	if scaled.Encoding != EncodingRGB8 {
		t.Errorf("scaled encoding %q, want rgb8", scaled.Encoding)
	}
	if scaled.Header != f.Header {
		t.Error("scaled frame lost the source header")
	}
}
