package ingestion

import (
	"errors"
	"sort"

	"ohlc-feature-lab/internal/domain"
)

// ErrInvalidOrdering is returned when candles are not strictly ordered by timestamp.
var ErrInvalidOrdering = errors.New("candles are not in deterministic order")

// SortCandles orders candles by (timestamp_ms ASC). The barrier and rolling
// kernels require this ordering.
func SortCandles(candles []*domain.Candle) {
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].TimestampMs < candles[j].TimestampMs
	})
}

// DedupCandles removes candles that repeat an earlier timestamp, keeping the
// first occurrence. Input must already be sorted.
func DedupCandles(candles []*domain.Candle) []*domain.Candle {
	if len(candles) < 2 {
		return candles
	}

	out := candles[:1]
	for _, c := range candles[1:] {
		if c.TimestampMs != out[len(out)-1].TimestampMs {
			out = append(out, c)
		}
	}
	return out
}

// ValidateCandleOrdering checks that candles are strictly ascending by
// timestamp. Returns ErrInvalidOrdering if not.
func ValidateCandleOrdering(candles []*domain.Candle) error {
	for i := 1; i < len(candles); i++ {
		if candles[i-1].TimestampMs >= candles[i].TimestampMs {
			return ErrInvalidOrdering
		}
	}
	return nil
}
