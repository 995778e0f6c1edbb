package features

import "math"

// LogSeries returns the elementwise natural log of y.
func LogSeries(y []float64) []float64 {
	return logSlice(y)
}

// LagLogReturns computes log-returns of a close series over a fixed bar
// offset. offset >= 0 looks into the past: r[i] = ln c[i] - ln c[i-offset],
// with a NaN prefix of offset bars. offset < 0 looks into the future (label
// construction, deliberate lookahead): r[i] = ln c[i+|offset|] - ln c[i],
// with a NaN tail.
func LagLogReturns(closes []float64, offset int) []float64 {
	n := len(closes)
	logClose := logSlice(closes)
	out := make([]float64, n)

	if offset >= 0 {
		for i := 0; i < n; i++ {
			if i < offset {
				out[i] = math.NaN()
				continue
			}
			out[i] = logClose[i] - logClose[i-offset]
		}
		return out
	}

	k := -offset
	for i := 0; i < n; i++ {
		if i+k >= n {
			out[i] = math.NaN()
			continue
		}
		out[i] = logClose[i+k] - logClose[i]
	}
	return out
}
