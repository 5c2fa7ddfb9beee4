package filters

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidMethod is returned for an integration method outside Methods.
var ErrInvalidMethod = errors.New("invalid integration method")

// Method selects the Riemann-sum kernel.
type Method string

const (
	Trapezoidal Method = "trapezoidal"
	Midpoint    Method = "midpoint"
	Left        Method = "left"
	Right       Method = "right"
	Upper       Method = "upper"
	Lower       Method = "lower"
)

// Methods lists every recognised method in declaration order.
var Methods = []Method{Trapezoidal, Midpoint, Left, Right, Upper, Lower}

// ParseMethod returns the Method named s.
func ParseMethod(s string) (Method, error) {
	for _, m := range Methods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q, want one of %v", ErrInvalidMethod, s, Methods)
}

// IntegralRiemann integrates a signal recursively: each output row is the
// previous row plus a kernel applied to a window of delta+1 input rows.
//
// The cumulative buffer is instance state, so an IntegralRiemann must not
// be shared between goroutines.
type IntegralRiemann struct {
	kernel *mat.Dense
	buffer *mat.Dense
}

// NewIntegralRiemann returns an integrator with an empty buffer.
func NewIntegralRiemann() *IntegralRiemann {
	return &IntegralRiemann{}
}

// Integrate integrates the columns of x (samples × features). dt is either a
// single time step or one step per window position. The result has
// rows(x)-delta+1 rows; the first is always zero.
func (r *IntegralRiemann) Integrate(x *mat.Dense, dt []float64, delta int, method Method) (*mat.Dense, error) {
	if x == nil {
		return nil, errors.New("integrate: nil input")
	}
	if delta < 1 {
		return nil, fmt.Errorf("integrate: window delta must be at least 1, got %d", delta)
	}
	if method == Trapezoidal && delta != 1 {
		return nil, fmt.Errorf("integrate: %s needs delta 1, got %d", method, delta)
	}
	if !validMethod(method) {
		return nil, fmt.Errorf("%w: %q, want one of %v", ErrInvalidMethod, method, Methods)
	}

	n, c := x.Dims()
	if c == 0 {
		return nil, errors.New("integrate: input has no columns")
	}
	steps := max(n-delta, 0)
	if len(dt) != 1 && len(dt) < steps {
		return nil, fmt.Errorf("integrate: have %d time steps for %d windows", len(dt), steps)
	}

	r.buffer = mat.NewDense(steps+1, c, nil)
	var acc mat.Dense
	for i := 0; i < steps; i++ {
		step := dt[0]
		if len(dt) > 1 {
			step = dt[i]
		}
		r.kernel = kernel(method, step, delta)

		window := x.Slice(i, i+delta+1, 0, c)
		acc.Mul(r.kernel, window)
		for j := 0; j < c; j++ {
			r.buffer.Set(i+1, j, r.buffer.At(i, j)+acc.At(0, j))
		}
	}
	return mat.DenseCopyOf(r.buffer), nil
}

// Buffer returns a copy of the last Integrate result, or nil.
func (r *IntegralRiemann) Buffer() *mat.Dense {
	if r.buffer == nil {
		return nil
	}
	return mat.DenseCopyOf(r.buffer)
}

func validMethod(m Method) bool {
	for _, v := range Methods {
		if v == m {
			return true
		}
	}
	return false
}

// kernel builds the 1×(delta+1) weight row for method. Upper and lower sums
// are not defined for sampled data and contribute nothing.
func kernel(method Method, dt float64, delta int) *mat.Dense {
	k := mat.NewDense(1, delta+1, nil)
	switch method {
	case Trapezoidal:
		k.Set(0, 0, dt/2)
		k.Set(0, 1, dt/2)
	case Left:
		k.Set(0, 0, dt)
	case Right:
		k.Set(0, 1, dt)
	case Midpoint:
		if delta%2 == 0 {
			k.Set(0, delta/2, dt)
		} else {
			k.Set(0, delta/2, dt/2)
			k.Set(0, delta/2+1, dt/2)
		}
	}
	return k
}
