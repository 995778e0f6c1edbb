package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ohlc-feature-lab/internal/domain"
	"ohlc-feature-lab/internal/storage"
)

// CandleStore is an in-memory implementation of storage.CandleStore.
type CandleStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Candle // keyed by (instrument_id, timestamp_ms)
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{
		data: make(map[string]*domain.Candle),
	}
}

var _ storage.CandleStore = (*CandleStore)(nil)

// candleKey generates a unique key for a candle.
func candleKey(instrumentID string, timestampMs int64) string {
	return fmt.Sprintf("%s|%d", instrumentID, timestampMs)
}

// InsertBulk adds multiple candles. Fails entire batch on duplicate.
func (s *CandleStore) InsertBulk(_ context.Context, candles []*domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: detect duplicates against existing data and within the batch.
	batchKeys := make(map[string]struct{}, len(candles))
	for _, c := range candles {
		if c == nil || c.InstrumentID == "" {
			return storage.ErrInvalidInput
		}
		key := candleKey(c.InstrumentID, c.TimestampMs)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all.
	for _, c := range candles {
		candleCopy := *c
		s.data[candleKey(c.InstrumentID, c.TimestampMs)] = &candleCopy
	}

	return nil
}

// GetByInstrumentID retrieves all candles for an instrument, ordered by timestamp ASC.
func (s *CandleStore) GetByInstrumentID(_ context.Context, instrumentID string) ([]*domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Candle
	for _, c := range s.data {
		if c.InstrumentID == instrumentID {
			candleCopy := *c
			result = append(result, &candleCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

// GetByTimeRange retrieves candles for an instrument within [start, end] (inclusive).
func (s *CandleStore) GetByTimeRange(_ context.Context, instrumentID string, start, end int64) ([]*domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Candle
	for _, c := range s.data {
		if c.InstrumentID == instrumentID && c.TimestampMs >= start && c.TimestampMs <= end {
			candleCopy := *c
			result = append(result, &candleCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}
