// Command framepipe renders an animated julia set through the frame
// pipeline and saves the last frame as a PNG.
//
// It wires the canonical chain: a synthetic camera publishes tagged
// frames, the map stage resolves per-pixel complex coordinates, the
// step stage iterates the escape-time kernel with a seed that rotates
// one degree per frame, and the colorize stage shades the result back
// into 8-bit color.
//
// With -device the camera frames are uploaded to GPU memory first, so
// every kernel in the chain runs as a compute shader and only the final
// frame is downloaded.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log"
	"os"
	"time"

	"github.com/gogpu/framepipe"
	"github.com/gogpu/framepipe/bus"
	"github.com/gogpu/framepipe/gpu"
	"github.com/gogpu/framepipe/julia"
	"github.com/gogpu/framepipe/pipeline"
)

func main() {
	var (
		width    = flag.Int("width", 800, "frame width")
		height   = flag.Int("height", 600, "frame height")
		frames   = flag.Int("frames", 90, "frames to run")
		encoding = flag.String("encoding", "rgb8", "output encoding (rgb8, bgr8, mono8)")
		output   = flag.String("output", "julia.png", "output file")
		device   = flag.Bool("device", false, "run kernels on the GPU")
		timeout  = flag.Duration("timeout", 30*time.Second, "overall deadline")
	)
	flag.Parse()

	if err := run(*width, *height, *frames, framepipe.Encoding(*encoding), *output, *device, *timeout); err != nil {
		log.Fatalf("framepipe: %v", err)
	}
}

func run(width, height, frames int, encoding framepipe.Encoding, output string, device bool, timeout time.Duration) error {
	layout, err := framepipe.ResolveLayout(encoding, 0, uint32(width), uint32(height))
	if err != nil {
		return err
	}
	rowStep := uint32(width) * layout.BytesPerPixel

	params := julia.DefaultParams()

	b := bus.New()
	defer b.Close()

	p := pipeline.New(b)
	if err := p.AddStage("map", julia.NewMap(params), "camera", "coords"); err != nil {
		return err
	}
	if err := p.AddStage("julia", julia.NewStep(params), "coords", "samples"); err != nil {
		return err
	}
	if err := p.AddStage("colorize", julia.NewColorizeTo(params, encoding), "samples", "color"); err != nil {
		return err
	}

	sink, err := b.Subscribe("color", "sink")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	var stream framepipe.Stream
	if device {
		stream, err = gpu.NewStream()
		if err != nil {
			return fmt.Errorf("device mode: %w", err)
		}
	}

	go func() {
		for i := 0; i < frames; i++ {
			f, err := framepipe.NewFrame(uint32(width), uint32(height), rowStep, encoding)
			if err != nil {
				framepipe.Logger().Error("camera frame", "err", err)
				return
			}
			f.Header.Seq = uint64(i)
			f.Header.FrameID = "camera"
			if device {
				f, err = gpu.AdaptFrame(stream, f)
				if err != nil {
					framepipe.Logger().Error("upload frame", "err", err)
					return
				}
			}
			b.Publish("camera", f)
		}
	}()

	// The bus keeps only the latest frame per subscriber, so wait for
	// the output whose sequence number marks the end of the run.
	last, err := collect(ctx, sink, uint64(frames-1))
	cancel()
	if err != nil {
		return err
	}
	<-done

	if device {
		last, err = gpu.RetrieveFrame(last)
		if err != nil {
			return err
		}
	}

	img, err := last.Image()
	if err != nil {
		return err
	}
	out, err := os.Create(output)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := png.Encode(out, img); err != nil {
		return err
	}

	log.Printf("saved %s (%dx%d, %s, seq %d)", output, last.Width, last.Height, last.Encoding, last.Header.Seq)
	return nil
}

// collect reads frames from the sink until one carries the final
// sequence number, returning it. Earlier frames may be dropped by the
// latest-wins policy; the final one is always delivered.
func collect(ctx context.Context, sink *bus.Receiver, lastSeq uint64) (*framepipe.Frame, error) {
	for {
		f, err := sink.Next(ctx)
		if err != nil {
			return nil, err
		}
		if f.Header.Seq >= lastSeq {
			return f, nil
		}
	}
}
