package features

import (
	"fmt"
	"math"
)

// barrierEpsilon compensates for floating-point error at exact threshold
// touches: a bar whose high equals the TP level within 1e-12 counts as a
// touch (round toward trigger).
const barrierEpsilon = 1e-12

// NoExit marks an entry whose barriers are never touched within the
// available horizon; the matching LogReturn is NaN.
const NoExit = -1

// BarrierConfig holds the fractional barrier distances for a scan.
// TPFrac = 0.05 places the take-profit 5% above the entry close; SLFrac =
// 0.05 places the stop-loss 5% below it.
type BarrierConfig struct {
	TPFrac float64
	SLFrac float64
}

// Validate checks that the fractions produce finite log thresholds.
func (c BarrierConfig) Validate() error {
	if c.TPFrac <= -1 {
		return fmt.Errorf("%w: tp_frac %g <= -1", ErrInvalidBarrier, c.TPFrac)
	}
	if c.SLFrac >= 1 {
		return fmt.Errorf("%w: sl_frac %g >= 1", ErrInvalidBarrier, c.SLFrac)
	}
	return nil
}

// BarrierScan holds per-bar results of a barrier scan. Both slices have the
// input length. Bars that are not entries, and entries with no barrier
// touch, carry ExitIndex = NoExit and LogReturn = NaN.
type BarrierScan struct {
	ExitIndex []int
	LogReturn []float64
}

// ScanBarriers computes, for every bar where entries is true, the first
// future bar whose high crosses the take-profit threshold or whose low
// crosses the stop-loss threshold, and the log-return realized by exiting at
// that bar's close.
//
// The scan works in log space over arrays edge-padded to the next power of
// two: a max-tree over log-high and a min-tree over log-low answer "can this
// suffix contain a touch" in O(log N) per entry via an ascend-then-descend
// walk, instead of a linear forward scan per entry. Padded bars repeat the
// last real bar, so a touch found in the padded region collapses onto the
// last real index after clamping.
//
// Inputs must be time-ordered and gap-free; bars with high < low are not
// rejected, they just make the result meaningless for those entries.
func ScanBarriers(closes, highs, lows []float64, entries []bool, cfg BarrierConfig) (*BarrierScan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := len(closes)
	if len(highs) != n || len(lows) != n || len(entries) != n {
		return nil, fmt.Errorf("%w: close=%d high=%d low=%d entries=%d",
			ErrLengthMismatch, n, len(highs), len(lows), len(entries))
	}

	scan := &BarrierScan{
		ExitIndex: make([]int, n),
		LogReturn: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		scan.ExitIndex[i] = NoExit
		scan.LogReturn[i] = math.NaN()
	}
	if n == 0 {
		return scan, nil
	}

	closeLog := make([]float64, n)
	for i, v := range closes {
		closeLog[i] = math.Log(v)
	}
	maxHigh := BuildMaxTree(logSlice(highs))
	minLow := BuildMinTree(logSlice(lows))

	tpLog := math.Log(1 + cfg.TPFrac)
	slLog := math.Log(1 - cfg.SLFrac)

	for e := 0; e < n; e++ {
		if !entries[e] {
			continue
		}
		exit := scanFrom(e, closeLog[e]+tpLog, closeLog[e]+slLog, maxHigh, minLow)
		if exit == NoExit {
			continue
		}
		if exit > n-1 {
			exit = n - 1
		}
		scan.ExitIndex[e] = exit
		scan.LogReturn[e] = closeLog[exit] - closeLog[e]
	}
	return scan, nil
}

// scanFrom finds the first index after entry whose subtree touches either
// threshold, or NoExit. maxHigh and minLow are built over the same padded
// length, so index arithmetic is shared.
func scanFrom(entry int, tp, sl float64, maxHigh, minLow *RangeTree) int {
	touches := func(i int) bool {
		return maxHigh.nodes[i] > tp-barrierEpsilon || minLow.nodes[i] < sl+barrierEpsilon
	}

	// Ascend: walk from the leaf just after the entry toward the root,
	// visiting the minimal set of sibling subtrees covering the suffix.
	cur := maxHigh.Leaf(entry) + 1
	if cur >= len(maxHigh.nodes) {
		return NoExit // entry is the last padded bar, no future leaves
	}
	for !touches(cur) {
		// cur == 2^k - 1 is the rightmost node of its level: the whole
		// remaining horizon is exhausted.
		if cur&(cur+1) == 0 {
			return NoExit
		}
		if cur&1 == 1 {
			// Right child: the parent would re-include the already
			// excluded left sibling, so step right instead.
			cur++
		} else {
			cur >>= 1
		}
	}

	// Descend: the flagged subtree contains the first touch. Prefer the
	// left child when it triggers; otherwise the touch is in the right one.
	for cur < maxHigh.mid {
		cur <<= 1
		if !touches(cur) {
			cur++
		}
	}
	return cur - maxHigh.mid
}

func logSlice(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Log(v)
	}
	return out
}
