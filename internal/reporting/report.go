package reporting

import "time"

// Report summarizes the feature store contents after a compute run.
type Report struct {
	// Metadata
	GeneratedAt     time.Time
	InstrumentCount int
	FeatureCount    int

	// Data Summary
	DataSummary DataSummary

	// Feature Summaries (sorted by instrument_id, feature)
	FeatureSummaries []FeatureSummaryRow

	// Recent compute runs, newest first
	RecentRuns []RunRow
}

// DataSummary describes the candle data the features were computed from.
type DataSummary struct {
	TotalInstruments int
	TotalCandles     int
	DateRangeStart   int64 // Unix ms
	DateRangeEnd     int64 // Unix ms
}

// FeatureSummaryRow aggregates one (instrument, feature) series.
type FeatureSummaryRow struct {
	InstrumentID string
	Feature      string
	Points       int
	Defined      int     // points carrying a value
	Coverage     float64 // Defined / Points
	Mean         float64
	Median       float64
	P10          float64
	P90          float64
	Min          float64
	Max          float64
	FirstMs      int64 // timestamp of the first point (ms)
	LastMs       int64 // timestamp of the last point (ms)
}

// RunRow lists one compute run.
type RunRow struct {
	RunID         string
	Status        string
	StartedAtMs   int64
	Instruments   int
	PointsWritten int
}
