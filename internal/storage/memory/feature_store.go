package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ohlc-feature-lab/internal/domain"
	"ohlc-feature-lab/internal/storage"
)

// FeatureStore is an in-memory implementation of storage.FeatureStore.
type FeatureStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FeaturePoint // keyed by (instrument_id, feature, timestamp_ms)
}

// NewFeatureStore creates a new in-memory feature store.
func NewFeatureStore() *FeatureStore {
	return &FeatureStore{
		data: make(map[string]*domain.FeaturePoint),
	}
}

var _ storage.FeatureStore = (*FeatureStore)(nil)

// featureKey generates a unique key for a feature point.
func featureKey(instrumentID, feature string, timestampMs int64) string {
	return fmt.Sprintf("%s|%s|%d", instrumentID, feature, timestampMs)
}

// InsertBulk adds multiple points. Fails entire batch on duplicate.
func (s *FeatureStore) InsertBulk(_ context.Context, points []*domain.FeaturePoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.InstrumentID == "" || p.Feature == "" {
			return storage.ErrInvalidInput
		}
		key := featureKey(p.InstrumentID, p.Feature, p.TimestampMs)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range points {
		pointCopy := *p
		if p.Value != nil {
			v := *p.Value
			pointCopy.Value = &v
		}
		s.data[featureKey(p.InstrumentID, p.Feature, p.TimestampMs)] = &pointCopy
	}

	return nil
}

// GetByInstrumentFeature retrieves all points for an (instrument, feature)
// pair, ordered by timestamp ASC.
func (s *FeatureStore) GetByInstrumentFeature(_ context.Context, instrumentID, feature string) ([]*domain.FeaturePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FeaturePoint
	for _, p := range s.data {
		if p.InstrumentID == instrumentID && p.Feature == feature {
			result = append(result, copyPoint(p))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

// GetByTimeRange retrieves points for an (instrument, feature) pair within
// [start, end] (inclusive).
func (s *FeatureStore) GetByTimeRange(_ context.Context, instrumentID, feature string, start, end int64) ([]*domain.FeaturePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FeaturePoint
	for _, p := range s.data {
		if p.InstrumentID == instrumentID && p.Feature == feature &&
			p.TimestampMs >= start && p.TimestampMs <= end {
			result = append(result, copyPoint(p))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

func copyPoint(p *domain.FeaturePoint) *domain.FeaturePoint {
	pointCopy := *p
	if p.Value != nil {
		v := *p.Value
		pointCopy.Value = &v
	}
	return &pointCopy
}
