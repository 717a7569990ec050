// Package julia provides the julia-set transform family for framepipe.
//
// The transforms mirror the classic accelerated-pipeline layout:
//
//   - Map: projects the pixel grid onto a region of the complex plane,
//     producing a coordinate pair per pixel.
//   - Step: runs the julia escape-time iteration over a coordinate field,
//     animated by a per-frame angle, producing a scalar per pixel.
//   - Colorize: converts scalar samples into 8-bit color through a bound
//     channel layout.
//   - Increment: adds one to every byte; the trivial transform used to
//     measure pipeline overhead.
//
// CPU kernels are always available and operate on host-domain buffers
// without copying. Device-domain buffers are dispatched through a
// registered Accelerator; import the framepipe/gpu package to register
// the wgpu compute backend.
package julia
