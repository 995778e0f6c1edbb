package features

import "errors"

// Configuration errors surfaced to the caller. Degenerate inputs (empty
// series, window longer than the series, no entries) are not errors.
var (
	// ErrInvalidWindow is returned when a rolling window is too small to
	// define the statistic.
	ErrInvalidWindow = errors.New("invalid rolling window")

	// ErrInvalidBarrier is returned when TP/SL fractions produce
	// nonsensical log thresholds.
	ErrInvalidBarrier = errors.New("invalid barrier fractions")

	// ErrLengthMismatch is returned when parallel input arrays differ in length.
	ErrLengthMismatch = errors.New("input arrays must have equal length")
)
