// Package filters holds the recursive filters and numerical integrators
// applied to aligned sensor signals.
package filters

import (
	"math"
)

// LowPass is a single-pole recursive low-pass filter.
//
// A LowPass keeps its last output and must not be shared between
// goroutines.
type LowPass struct {
	wn float64
	a0 float64
	b1 float64
	y  []float64
}

// NewLowPass returns a low-pass filter with cutoff wn, expressed in the
// same units as the caller's sample rate.
func NewLowPass(wn float64) *LowPass {
	x := math.Exp(-2 * math.Pi * wn)
	return &LowPass{wn: wn, a0: 1 - x, b1: x}
}

// Cutoff returns wn.
func (f *LowPass) Cutoff() float64 { return f.wn }

// Apply filters in and returns the output. Each call starts from a fresh
// output buffer:
//
//	y[0] = (1-x)·in[0]
//	y[n] = x·y[n-1] + (1-x)·in[n]
func (f *LowPass) Apply(in []float64) []float64 {
	f.y = make([]float64, len(in))
	if len(in) == 0 {
		return f.Output()
	}
	f.y[0] = f.a0 * in[0]
	for i := 1; i < len(in); i++ {
		f.y[i] = f.b1*f.y[i-1] + f.a0*in[i]
	}
	return f.Output()
}

// Output returns a copy of the last Apply result.
func (f *LowPass) Output() []float64 { return append([]float64(nil), f.y...) }

// HighPass is a single-pole recursive high-pass filter.
//
// A HighPass keeps its last output and must not be shared between
// goroutines.
type HighPass struct {
	wn float64
	a0 float64
	a1 float64
	b1 float64
	y  []float64
}

// NewHighPass returns a high-pass filter with cutoff wn.
func NewHighPass(wn float64) *HighPass {
	x := math.Exp(-2 * math.Pi * wn)
	return &HighPass{wn: wn, a0: (1 + x) / 2, a1: -(1 + x) / 2, b1: x}
}

// Cutoff returns wn.
func (f *HighPass) Cutoff() float64 { return f.wn }

// Apply filters in and returns the output:
//
//	y[0] = ((1+x)/2)·in[0]
//	y[n] = x·y[n-1] + ((1+x)/2)·in[n] - ((1+x)/2)·in[n-1]
func (f *HighPass) Apply(in []float64) []float64 {
	f.y = make([]float64, len(in))
	if len(in) == 0 {
		return f.Output()
	}
	f.y[0] = f.a0 * in[0]
	for i := 1; i < len(in); i++ {
		f.y[i] = f.b1*f.y[i-1] + f.a0*in[i] + f.a1*in[i-1]
	}
	return f.Output()
}

// Output returns a copy of the last Apply result.
func (f *HighPass) Output() []float64 { return append([]float64(nil), f.y...) }
