package clickhouse

import (
	"context"
	"fmt"

	"ohlc-feature-lab/internal/domain"
	"ohlc-feature-lab/internal/storage"
)

// FeatureStore implements storage.FeatureStore using ClickHouse.
type FeatureStore struct {
	conn *Conn
}

// NewFeatureStore creates a new FeatureStore.
func NewFeatureStore(conn *Conn) *FeatureStore {
	return &FeatureStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FeatureStore = (*FeatureStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate
// (instrument_id, feature, timestamp_ms).
func (s *FeatureStore) InsertBulk(ctx context.Context, points []*domain.FeaturePoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		instrumentID string
		feature      string
		timestampMs  int64
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		k := key{p.InstrumentID, p.Feature, p.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.InstrumentID, p.Feature, p.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO feature_points (
			instrument_id, feature, timestamp_ms, value
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		// Pass nil directly for the Nullable value column
		err = batch.Append(
			p.InstrumentID, p.Feature, uint64(p.TimestampMs), p.Value,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByInstrumentFeature retrieves all points for an (instrument, feature) pair,
// ordered by timestamp ASC.
func (s *FeatureStore) GetByInstrumentFeature(ctx context.Context, instrumentID, feature string) ([]*domain.FeaturePoint, error) {
	query := `
		SELECT instrument_id, feature, timestamp_ms, value
		FROM feature_points
		WHERE instrument_id = ? AND feature = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, instrumentID, feature)
	if err != nil {
		return nil, fmt.Errorf("query by instrument feature: %w", err)
	}
	defer rows.Close()

	return scanFeaturePoints(rows)
}

// GetByTimeRange retrieves points for an (instrument, feature) pair within
// [start, end] (inclusive).
func (s *FeatureStore) GetByTimeRange(ctx context.Context, instrumentID, feature string, start, end int64) ([]*domain.FeaturePoint, error) {
	query := `
		SELECT instrument_id, feature, timestamp_ms, value
		FROM feature_points
		WHERE instrument_id = ? AND feature = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, instrumentID, feature, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanFeaturePoints(rows)
}

// exists checks if a point with the given key exists.
func (s *FeatureStore) exists(ctx context.Context, instrumentID, feature string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM feature_points
		WHERE instrument_id = ? AND feature = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, instrumentID, feature, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanFeaturePoints scans multiple rows.
func scanFeaturePoints(rows chRows) ([]*domain.FeaturePoint, error) {
	var points []*domain.FeaturePoint

	for rows.Next() {
		var p domain.FeaturePoint
		var timestampMs uint64

		err := rows.Scan(&p.InstrumentID, &p.Feature, &timestampMs, &p.Value)
		if err != nil {
			return nil, fmt.Errorf("scan feature point row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature point rows: %w", err)
	}

	return points, nil
}
