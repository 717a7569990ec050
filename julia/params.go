package julia

import "math"

// Params configures the julia-set computation. A Params value is read-only
// for the lifetime of any kernel bound with it.
type Params struct {
	// MinX, MaxX bound the real axis of the mapped region.
	MinX, MaxX float32

	// MinY, MaxY bound the imaginary axis of the mapped region.
	MinY, MaxY float32

	// StartX, StartY scale the animated seed constant: the per-frame
	// seed is (StartX*cos(angle), StartY*sin(angle)).
	StartX, StartY float32

	// BoundaryRadius is the squared-magnitude escape threshold.
	BoundaryRadius float32

	// MaxIterations bounds the escape-time iteration.
	MaxIterations uint32
}

// Seed returns the iteration constant c for a given phase angle, in
// radians: (StartX*cos(angle), StartY*sin(angle)).
func Seed(p Params, angle float32) (re, im float32) {
	re = p.StartX * float32(math.Cos(float64(angle)))
	im = p.StartY * float32(math.Sin(float64(angle)))
	return re, im
}

// DefaultParams returns the conventional julia-set parameters: the
// ±2.5 × ±1.5 window, seed magnitude 0.7885, escape radius 16, and
// 50 iterations.
func DefaultParams() Params {
	return Params{
		MinX: -2.5, MaxX: 2.5,
		MinY: -1.5, MaxY: 1.5,
		StartX: 0.7885, StartY: 0.7885,
		BoundaryRadius: 16.0,
		MaxIterations:  50,
	}
}
