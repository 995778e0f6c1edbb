package storage

import (
	"context"

	"ohlc-feature-lab/internal/domain"
)

// InstrumentStore provides access to instruments storage.
type InstrumentStore interface {
	// Insert adds a new instrument. Returns ErrDuplicateKey if instrument_id exists.
	Insert(ctx context.Context, ins *domain.Instrument) error

	// GetByID retrieves an instrument by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, instrumentID string) (*domain.Instrument, error)

	// GetAll retrieves all instruments, ordered by instrument_id ASC.
	GetAll(ctx context.Context) ([]*domain.Instrument, error)
}

// CandleStore provides access to candles storage.
type CandleStore interface {
	// InsertBulk adds multiple candles. Fails entire batch on duplicate
	// (instrument_id, timestamp_ms).
	InsertBulk(ctx context.Context, candles []*domain.Candle) error

	// GetByInstrumentID retrieves all candles for an instrument, ordered by timestamp ASC.
	GetByInstrumentID(ctx context.Context, instrumentID string) ([]*domain.Candle, error)

	// GetByTimeRange retrieves candles for an instrument within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, instrumentID string, start, end int64) ([]*domain.Candle, error)
}

// FeatureStore provides access to feature_points storage.
type FeatureStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate
	// (instrument_id, feature, timestamp_ms).
	InsertBulk(ctx context.Context, points []*domain.FeaturePoint) error

	// GetByInstrumentFeature retrieves all points for an (instrument, feature)
	// pair, ordered by timestamp ASC.
	GetByInstrumentFeature(ctx context.Context, instrumentID, feature string) ([]*domain.FeaturePoint, error)

	// GetByTimeRange retrieves points for an (instrument, feature) pair within
	// [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, instrumentID, feature string, start, end int64) ([]*domain.FeaturePoint, error)
}

// ComputeRunStore provides access to compute_runs storage.
type ComputeRunStore interface {
	// Insert adds a new run record. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.ComputeRun) error

	// Complete finalizes a run: sets completion timestamp, status, counters
	// and the optional error message. Returns ErrNotFound if run_id does not exist.
	Complete(ctx context.Context, run *domain.ComputeRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.ComputeRun, error)

	// GetRecent retrieves the most recent runs, newest first.
	GetRecent(ctx context.Context, limit int) ([]*domain.ComputeRun, error)
}
