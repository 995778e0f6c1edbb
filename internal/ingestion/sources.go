package ingestion

import (
	"context"

	"ohlc-feature-lab/internal/domain"
)

// CandleSource provides historical candles for an instrument.
type CandleSource interface {
	// Fetch returns candles for the instrument within [from, to] (inclusive).
	// A zero to means no upper bound.
	Fetch(ctx context.Context, instrumentID string, from, to int64) ([]*domain.Candle, error)
}
