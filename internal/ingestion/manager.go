package ingestion

import (
	"context"

	"ohlc-feature-lab/internal/storage"
)

// Manager orchestrates ingestion from sources to storage.
// It enforces deterministic ordering and uses the storage layer for
// duplicate rejection.
type Manager struct {
	source      CandleSource
	candleStore storage.CandleStore
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	Source      CandleSource
	CandleStore storage.CandleStore
}

// NewManager creates a new ingestion manager with the provided source and store.
func NewManager(opts ManagerOptions) *Manager {
	return &Manager{
		source:      opts.Source,
		candleStore: opts.CandleStore,
	}
}

// IngestCandles fetches candles from the source and stores them.
// Candles are sorted by timestamp and deduplicated before insert; the batch
// must be strictly ascending afterwards. Returns count of ingested candles.
// Duplicates against existing rows are rejected by the storage layer
// (ErrDuplicateKey).
func (m *Manager) IngestCandles(ctx context.Context, instrumentID string, from, to int64) (int, error) {
	if m.source == nil || m.candleStore == nil {
		return 0, nil
	}

	candles, err := m.source.Fetch(ctx, instrumentID, from, to)
	if err != nil {
		return 0, err
	}

	if len(candles) == 0 {
		return 0, nil
	}

	SortCandles(candles)
	candles = DedupCandles(candles)
	if err := ValidateCandleOrdering(candles); err != nil {
		return 0, err
	}

	if err := m.candleStore.InsertBulk(ctx, candles); err != nil {
		return 0, err
	}

	return len(candles), nil
}
