package features

import (
	"fmt"
	"math"
)

// RollingZScore standardizes y against its trailing-window mean and sample
// standard deviation: z = (x - μ) / σ. Positions with fewer than minPeriods
// observations, zero variance, or non-finite results collapse to 0, so the
// output is always fully defined. minPeriods <= 0 selects the default
// window/4 (at least 1). window < 2 is a configuration error.
func RollingZScore(y []float64, window, minPeriods int) ([]float64, error) {
	if window < 2 {
		return nil, fmt.Errorf("%w: %d (need >= 2)", ErrInvalidWindow, window)
	}
	if minPeriods <= 0 {
		minPeriods = window / 4
		if minPeriods < 1 {
			minPeriods = 1
		}
	}

	out := make([]float64, len(y))
	var sum, sumSq float64
	for i, v := range y {
		sum += v
		sumSq += v * v
		if i >= window {
			old := y[i-window]
			sum -= old
			sumSq -= old * old
		}

		count := i + 1
		if count > window {
			count = window
		}
		if count < minPeriods || count < 2 {
			continue // out[i] stays 0
		}

		mean := sum / float64(count)
		variance := (sumSq - float64(count)*mean*mean) / float64(count-1)
		if variance <= 0 {
			continue
		}
		z := (v - mean) / math.Sqrt(variance)
		if math.IsNaN(z) || math.IsInf(z, 0) {
			continue
		}
		out[i] = z
	}
	return out, nil
}
