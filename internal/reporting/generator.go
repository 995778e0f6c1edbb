package reporting

import (
	"context"
	"math"
	"sort"
	"time"

	"ohlc-feature-lab/internal/domain"
	"ohlc-feature-lab/internal/storage"
)

// recentRunLimit caps how many runs appear in the report.
const recentRunLimit = 10

// Generator produces reports from stored data.
type Generator struct {
	instrumentStore storage.InstrumentStore
	candleStore     storage.CandleStore
	featureStore    storage.FeatureStore
	runStore        storage.ComputeRunStore
	features        []string
	now             func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. features lists the feature
// names to summarize per instrument.
func NewGenerator(
	instrumentStore storage.InstrumentStore,
	candleStore storage.CandleStore,
	featureStore storage.FeatureStore,
	runStore storage.ComputeRunStore,
	features []string,
) *Generator {
	return &Generator{
		instrumentStore: instrumentStore,
		candleStore:     candleStore,
		featureStore:    featureStore,
		runStore:        runStore,
		features:        features,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete feature report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	instruments, err := g.instrumentStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	dataSummary, err := g.generateDataSummary(ctx, instruments)
	if err != nil {
		return nil, err
	}

	summaries, err := g.generateFeatureSummaries(ctx, instruments)
	if err != nil {
		return nil, err
	}

	recentRuns, err := g.generateRecentRuns(ctx)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt:      g.now(),
		InstrumentCount:  len(instruments),
		FeatureCount:     len(g.features),
		DataSummary:      *dataSummary,
		FeatureSummaries: summaries,
		RecentRuns:       recentRuns,
	}, nil
}

// generateDataSummary computes candle coverage across all instruments.
func (g *Generator) generateDataSummary(ctx context.Context, instruments []*domain.Instrument) (*DataSummary, error) {
	totalCandles := 0
	var dateRangeStart, dateRangeEnd int64
	first := true

	for _, ins := range instruments {
		candles, err := g.candleStore.GetByInstrumentID(ctx, ins.InstrumentID)
		if err != nil {
			return nil, err
		}
		totalCandles += len(candles)
		if len(candles) == 0 {
			continue
		}

		// Candles are ordered by timestamp ASC.
		start := candles[0].TimestampMs
		end := candles[len(candles)-1].TimestampMs
		if first || start < dateRangeStart {
			dateRangeStart = start
		}
		if first || end > dateRangeEnd {
			dateRangeEnd = end
		}
		first = false
	}

	return &DataSummary{
		TotalInstruments: len(instruments),
		TotalCandles:     totalCandles,
		DateRangeStart:   dateRangeStart,
		DateRangeEnd:     dateRangeEnd,
	}, nil
}

// generateFeatureSummaries builds one row per (instrument, feature) pair.
func (g *Generator) generateFeatureSummaries(ctx context.Context, instruments []*domain.Instrument) ([]FeatureSummaryRow, error) {
	var rows []FeatureSummaryRow

	for _, ins := range instruments {
		for _, feature := range g.features {
			points, err := g.featureStore.GetByInstrumentFeature(ctx, ins.InstrumentID, feature)
			if err != nil {
				return nil, err
			}
			if len(points) == 0 {
				continue
			}
			rows = append(rows, summarize(ins.InstrumentID, feature, points))
		}
	}

	// Sort by (instrument_id, feature)
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].InstrumentID != rows[j].InstrumentID {
			return rows[i].InstrumentID < rows[j].InstrumentID
		}
		return rows[i].Feature < rows[j].Feature
	})

	return rows, nil
}

// generateRecentRuns lists the most recent compute runs, newest first.
func (g *Generator) generateRecentRuns(ctx context.Context) ([]RunRow, error) {
	runs, err := g.runStore.GetRecent(ctx, recentRunLimit)
	if err != nil {
		return nil, err
	}

	rows := make([]RunRow, len(runs))
	for i, run := range runs {
		rows[i] = RunRow{
			RunID:         run.RunID,
			Status:        run.Status,
			StartedAtMs:   run.StartedAtMs,
			Instruments:   run.Instruments,
			PointsWritten: run.PointsWritten,
		}
	}
	return rows, nil
}

// summarize aggregates one feature series. Undefined points count toward
// Points but not toward the value statistics.
func summarize(instrumentID, feature string, points []*domain.FeaturePoint) FeatureSummaryRow {
	defined := make([]float64, 0, len(points))
	for _, p := range points {
		if p.Value != nil {
			defined = append(defined, *p.Value)
		}
	}

	row := FeatureSummaryRow{
		InstrumentID: instrumentID,
		Feature:      feature,
		Points:       len(points),
		Defined:      len(defined),
		Coverage:     float64(len(defined)) / float64(len(points)),
		FirstMs:      points[0].TimestampMs,
		LastMs:       points[len(points)-1].TimestampMs,
	}
	if len(defined) == 0 {
		return row
	}

	sort.Float64s(defined)
	sum := 0.0
	for _, v := range defined {
		sum += v
	}
	row.Mean = sum / float64(len(defined))
	row.Median = quantile(defined, 0.5)
	row.P10 = quantile(defined, 0.10)
	row.P90 = quantile(defined, 0.90)
	row.Min = defined[0]
	row.Max = defined[len(defined)-1]
	return row
}

// quantile computes the q-th quantile of sorted values using linear
// interpolation between closest ranks.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
