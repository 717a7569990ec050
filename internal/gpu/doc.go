// Package gpu implements the wgpu compute backend for framepipe.
//
// It provides device-domain buffers and streams backed by wgpu/hal, and
// an accelerator running the julia kernels as WGSL compute shaders. The
// public entry point is the framepipe/gpu package; this package is
// internal so the hal surface never leaks into the API.
package gpu
