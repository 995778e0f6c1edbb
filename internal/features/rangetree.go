// Package features provides the numeric kernels of the lab: the segment-tree
// barrier scan (TP/SL realized log-return), the incremental rolling OLS
// slope, and the supplementary rolling z-score and lagged log-return
// transforms. All functions are pure: they allocate their own buffers, hold
// no state between calls, and are safe to run concurrently across
// instruments.
package features

// RangeTree is a complete binary tree over a float64 series, stored as a
// flat buffer of size 2M where M = NextPow2(N). Leaves occupy [M, 2M) and
// hold the input values edge-padded from N to M; every internal node i in
// [1, M) holds combine(nodes[2i], nodes[2i+1]); index 0 is unused. The flat
// layout keeps parent/child moves pure index arithmetic (i>>1, 2i, 2i+1).
//
// The tree deliberately exposes only the raw buffer and leaf offset rather
// than a generic range-query API: its single consumer is the directional
// first-touch scan in ScanBarriers.
type RangeTree struct {
	nodes []float64
	mid   int // leaf offset; leaves occupy [mid, 2*mid)
}

// BuildMaxTree builds a RangeTree whose internal nodes hold subtree maxima.
func BuildMaxTree(values []float64) *RangeTree {
	return build(values, func(a, b float64) float64 {
		if a > b {
			return a
		}
		return b
	})
}

// BuildMinTree builds a RangeTree whose internal nodes hold subtree minima.
func BuildMinTree(values []float64) *RangeTree {
	return build(values, func(a, b float64) float64 {
		if a < b {
			return a
		}
		return b
	})
}

func build(values []float64, combine func(a, b float64) float64) *RangeTree {
	m := NextPow2(len(values))
	t := &RangeTree{
		nodes: make([]float64, 2*m),
		mid:   m,
	}
	copy(t.nodes[m:], padEdge(values, m))

	// Fill internal levels bottom-up, each level derived pairwise from the
	// one below until the root at index 1.
	for level := m >> 1; level > 0; level >>= 1 {
		for i := level; i < 2*level; i++ {
			t.nodes[i] = combine(t.nodes[2*i], t.nodes[2*i+1])
		}
	}
	return t
}

// Leaf returns the buffer index of the leaf holding values[i].
func (t *RangeTree) Leaf(i int) int {
	return i + t.mid
}

// Mid returns the leaf offset M (the padded series length).
func (t *RangeTree) Mid() int {
	return t.mid
}

// At returns the node value at buffer index i.
func (t *RangeTree) At(i int) float64 {
	return t.nodes[i]
}

// Len returns the buffer size 2M.
func (t *RangeTree) Len() int {
	return len(t.nodes)
}
