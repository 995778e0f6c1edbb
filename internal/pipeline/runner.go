package pipeline

import (
	"context"
	"fmt"
	"math"

	"ohlc-feature-lab/internal/domain"
	"ohlc-feature-lab/internal/ingestion"
	"ohlc-feature-lab/internal/storage"
)

// Runner computes requested features for one instrument at a time and
// persists the resulting points.
type Runner struct {
	candleStore  storage.CandleStore
	featureStore storage.FeatureStore
}

// NewRunner creates a new feature runner.
func NewRunner(candleStore storage.CandleStore, featureStore storage.FeatureStore) *Runner {
	return &Runner{
		candleStore:  candleStore,
		featureStore: featureStore,
	}
}

// ComputeInstrument loads the instrument's candles, evaluates every request
// and stores the points in one bulk insert. Returns the number of points
// written. An instrument with no candles is a no-op.
func (r *Runner) ComputeInstrument(ctx context.Context, instrumentID string, requests []domain.FeatureRequest) (int, error) {
	candles, err := r.candleStore.GetByInstrumentID(ctx, instrumentID)
	if err != nil {
		return 0, fmt.Errorf("load candles: %w", err)
	}
	if len(candles) == 0 {
		return 0, nil
	}

	if err := ingestion.ValidateCandleOrdering(candles); err != nil {
		return 0, fmt.Errorf("candles for %s: %w", instrumentID, err)
	}

	n := len(candles)
	timestamps := make([]int64, n)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, c := range candles {
		timestamps[i] = c.TimestampMs
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	var points []*domain.FeaturePoint
	for _, req := range requests {
		values, err := ComputeFeature(req, closes, highs, lows)
		if err != nil {
			return 0, fmt.Errorf("compute %s: %w", req.Name(), err)
		}
		points = append(points, toPoints(instrumentID, req.Name(), timestamps, values)...)
	}

	if err := r.featureStore.InsertBulk(ctx, points); err != nil {
		return 0, fmt.Errorf("store feature points: %w", err)
	}

	return len(points), nil
}

// toPoints converts a value series into feature points. Non-finite values
// become points with a nil value.
func toPoints(instrumentID, feature string, timestamps []int64, values []float64) []*domain.FeaturePoint {
	points := make([]*domain.FeaturePoint, len(values))
	for i, v := range values {
		p := &domain.FeaturePoint{
			InstrumentID: instrumentID,
			Feature:      feature,
			TimestampMs:  timestamps[i],
		}
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			value := v
			p.Value = &value
		}
		points[i] = p
	}
	return points
}
