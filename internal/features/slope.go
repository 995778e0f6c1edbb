package features

import (
	"fmt"
	"math"
)

// RollingSlope computes the OLS slope of y against x = 0..window-1 over a
// trailing window at every position. The first window-1 outputs are NaN;
// window > len(y) yields an all-NaN slice (degenerate, not an error);
// window < 2 is a configuration error.
//
// The naive computation is O(N·window). Because the window x-coordinates are
// a fixed integer sequence, the denominator Σ(x-x̄)² is a constant, and the
// numerator cross-term can be advanced in O(1) per step from the incoming
// and departing y values plus the analytically known x-mean x̄(i) =
// i - (window-1)/2. The result matches a direct per-window OLS fit to
// floating-point tolerance.
//
// The recurrence assumes uniformly spaced, gap-free bars; with gaps in the
// upstream data the outputs are not true time-weighted slopes.
func RollingSlope(y []float64, window int) ([]float64, error) {
	if window < 2 {
		return nil, fmt.Errorf("%w: %d (need >= 2)", ErrInvalidWindow, window)
	}

	n := len(y)
	slope := make([]float64, n)
	for i := range slope {
		slope[i] = math.NaN()
	}
	if window > n {
		return slope, nil
	}

	// Constant denominator over x = 0..window-1.
	xMean0 := float64(window-1) / 2
	denom := 0.0
	for k := 0; k < window; k++ {
		d := float64(k) - xMean0
		denom += d * d
	}

	// Direct pass over the first full window seeds the running mean and
	// cross-term.
	yMean := 0.0
	for k := 0; k < window; k++ {
		yMean += y[k]
	}
	yMean /= float64(window)

	c := 0.0
	for k := 0; k < window; k++ {
		c += (float64(k) - xMean0) * (y[k] - yMean)
	}
	slope[window-1] = c / denom

	for i := window - 1; i < n-1; i++ {
		dy := y[i+1] - y[i+1-window]
		yMean += dy / float64(window)
		// x-mean of the window ending at i+1.
		xm := float64(i+1) - xMean0
		c += dy +
			(float64(i+1)-xm)*(y[i+1]-yMean) -
			(float64(i+1-window)-xm)*(y[i+1-window]-yMean)
		slope[i+1] = c / denom
	}
	return slope, nil
}
