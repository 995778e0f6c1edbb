package features

// NextPow2 returns the smallest power of two >= n. NextPow2(0) is 0.
func NextPow2(n int) int {
	if n <= 0 {
		return 0
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// padEdge extends values to size by repeating the last element.
// Returns a copy even when no padding is needed.
func padEdge(values []float64, size int) []float64 {
	out := make([]float64, size)
	copy(out, values)
	if len(values) == 0 {
		return out
	}
	last := values[len(values)-1]
	for i := len(values); i < size; i++ {
		out[i] = last
	}
	return out
}
