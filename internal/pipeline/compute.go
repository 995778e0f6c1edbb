package pipeline

import (
	"fmt"

	"ohlc-feature-lab/internal/domain"
	"ohlc-feature-lab/internal/features"
)

// ComputeFeature evaluates one feature request over candle arrays and returns
// one value per bar. Undefined positions (warmup, no barrier exit) are NaN.
func ComputeFeature(req domain.FeatureRequest, closes, highs, lows []float64) ([]float64, error) {
	switch req.Kind {
	case domain.FeatureKindTPSLLogReturn:
		cfg := features.BarrierConfig{TPFrac: req.TPFrac, SLFrac: req.SLFrac}

		// Every bar is an entry; the scan resolves each one independently
		entries := make([]bool, len(closes))
		for i := range entries {
			entries[i] = true
		}

		scan, err := features.ScanBarriers(closes, highs, lows, entries, cfg)
		if err != nil {
			return nil, err
		}
		return scan.LogReturn, nil

	case domain.FeatureKindSlope:
		series, err := sourceSeries(req, closes)
		if err != nil {
			return nil, err
		}
		return features.RollingSlope(series, req.Window)

	case domain.FeatureKindZScore:
		series, err := sourceSeries(req, closes)
		if err != nil {
			return nil, err
		}
		return features.RollingZScore(series, req.Window, req.MinPeriods)

	case domain.FeatureKindLogReturn:
		return features.LagLogReturns(closes, req.Offset), nil
	}

	return nil, fmt.Errorf("unknown feature kind %q", req.Kind)
}

// sourceSeries resolves the input series for slope and zscore requests.
func sourceSeries(req domain.FeatureRequest, closes []float64) ([]float64, error) {
	switch req.Source {
	case "", domain.SourceClose:
		return closes, nil
	case domain.SourceLogClose:
		return features.LogSeries(closes), nil
	}
	return nil, fmt.Errorf("unknown feature source %q", req.Source)
}
