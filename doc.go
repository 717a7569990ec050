// Package framepipe provides a streaming image-processing pipeline for Go.
//
// # Overview
//
// framepipe models a pipeline as a chain of stages. Each stage receives
// frames of pixel data, lazily derives a per-stream pixel layout from the
// first observed frame, and applies a transform kernel to every subsequent
// frame, forwarding the result downstream without copying the pixel buffer
// back to host memory when it already resides on the GPU.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/framepipe"
//	    "github.com/gogpu/framepipe/julia"
//	)
//
//	// A stage that colorizes scalar samples into 8-bit color.
//	stage := framepipe.NewStage(julia.NewColorize(julia.DefaultParams()), publisher)
//
//	// Feed frames; the first one binds the layout and kernel.
//	stage.OnFrame(frame)
//
// # Architecture
//
// The library is organized into:
//   - Public API: Frame, Encoding, PixelLayout, Buffer, Stage
//   - julia: the julia-set transform family (map, step, colorize, increment)
//   - bus: in-process frame transport with depth-1 subscriptions
//   - pipeline: runs stages as serialized bus subscribers
//   - gpu: optional wgpu compute backend (blank import to enable)
//
// # Memory Domains
//
// Buffers carry a memory domain (host or device) and an execution queue.
// A stage allocates its output in the same domain as its input, so a
// GPU-resident stream stays on the GPU across every stage. CPU kernels are
// always available; importing the gpu package accelerates device-domain
// buffers with wgpu compute shaders.
//
// # Concurrency
//
// A Stage is not reentrant. The hosting transport must serialize OnFrame
// calls per stage; the pipeline package does exactly that.
package framepipe

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
