package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gogpu/framepipe"
	"github.com/gogpu/framepipe/bus"
	"github.com/gogpu/framepipe/julia"
)

func TestAddStageDuplicateName(t *testing.T) {
	b := bus.New()
	defer b.Close()
	p := New(b)

	if err := p.AddStage("map", julia.NewMap(julia.DefaultParams()), "in", "out"); err != nil {
		t.Fatalf("AddStage() error: %v", err)
	}
	if err := p.AddStage("map", julia.NewMap(julia.DefaultParams()), "in", "out"); err == nil {
		t.Error("duplicate AddStage() succeeded, want error")
	}
}

func TestRunTwice(t *testing.T) {
	b := bus.New()
	defer b.Close()
	p := New(b)
	if err := p.AddStage("map", julia.NewMap(julia.DefaultParams()), "in", "out"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	// Wait for the first Run to take the running flag.
	deadline := time.After(time.Second)
	for {
		p.mu.Lock()
		running := p.running
		p.mu.Unlock()
		if running {
			break
		}
		select {
		case <-deadline:
			t.Fatal("pipeline never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if err := p.Run(ctx); !errors.Is(err, ErrRunning) {
		t.Errorf("second Run() = %v, want ErrRunning", err)
	}
	if err := p.AddStage("late", julia.NewMap(julia.DefaultParams()), "in", "out"); !errors.Is(err, ErrRunning) {
		t.Errorf("AddStage() while running = %v, want ErrRunning", err)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	const width, height = 16, 12

	b := bus.New()
	defer b.Close()

	params := julia.DefaultParams()
	p := New(b)
	if err := p.AddStage("map", julia.NewMap(params), "camera", "coords"); err != nil {
		t.Fatal(err)
	}
	if err := p.AddStage("julia", julia.NewStep(params), "coords", "samples"); err != nil {
		t.Fatal(err)
	}
	if err := p.AddStage("colorize", julia.NewColorizeTo(params, framepipe.EncodingRGB8), "samples", "color"); err != nil {
		t.Fatal(err)
	}

	sink, err := b.Subscribe("color", "sink")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	src, err := framepipe.NewFrame(width, height, width*3, framepipe.EncodingRGB8)
	if err != nil {
		t.Fatal(err)
	}
	src.Header.FrameID = "camera"
	src.Header.Seq = 42
	b.Publish("camera", src)

	out, err := sink.Next(ctx)
	if err != nil {
		t.Fatalf("no output frame: %v", err)
	}
	cancel()
	<-done

	if out.Width != width || out.Height != height {
		t.Errorf("output geometry %dx%d, want %dx%d", out.Width, out.Height, width, height)
	}
	if out.Encoding != framepipe.EncodingRGB8 {
		t.Errorf("output encoding %q, want rgb8", out.Encoding)
	}
	if out.RowStep != width*3 {
		t.Errorf("output row step %d, want %d", out.RowStep, width*3)
	}
	if out.Header.Seq != 42 || out.Header.FrameID != "camera" {
		t.Errorf("header not preserved: %+v", out.Header)
	}
	if out.Header.ID != src.Header.ID {
		t.Error("frame identity lost across the pipeline")
	}

	// The shading always saturates one of red or blue per pixel, so the
	// output cannot be all zeros.
	data := out.Buffer.(framepipe.HostBytes).Bytes()
	var nonzero bool
	for _, v := range data {
		if v != 0 {
			nonzero = true
			break
		}
	}
	if !nonzero {
		t.Error("output frame is all zeros")
	}
}

func TestPipelineStopsOnBusClose(t *testing.T) {
	b := bus.New()
	p := New(b)
	if err := p.AddStage("map", julia.NewMap(julia.DefaultParams()), "camera", "coords"); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	b.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() still blocked after bus close")
	}
}
