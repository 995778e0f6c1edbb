package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ohlc-feature-lab/internal/domain"
	"ohlc-feature-lab/internal/storage"
)

// InstrumentStore implements storage.InstrumentStore using PostgreSQL.
type InstrumentStore struct {
	pool *Pool
}

// NewInstrumentStore creates a new InstrumentStore.
func NewInstrumentStore(pool *Pool) *InstrumentStore {
	return &InstrumentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.InstrumentStore = (*InstrumentStore)(nil)

// Insert adds a new instrument. Returns ErrDuplicateKey if instrument_id exists.
func (s *InstrumentStore) Insert(ctx context.Context, ins *domain.Instrument) error {
	query := `
		INSERT INTO instruments (
			instrument_id, base_asset, quote_asset, exchange, created_at_ms
		) VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query,
		ins.InstrumentID,
		ins.BaseAsset,
		ins.QuoteAsset,
		ins.Exchange,
		ins.CreatedAtMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert instrument: %w", err)
	}
	return nil
}

// GetByID retrieves an instrument by its ID. Returns ErrNotFound if not exists.
func (s *InstrumentStore) GetByID(ctx context.Context, instrumentID string) (*domain.Instrument, error) {
	query := `
		SELECT instrument_id, base_asset, quote_asset, exchange, created_at_ms
		FROM instruments
		WHERE instrument_id = $1
	`

	row := s.pool.QueryRow(ctx, query, instrumentID)
	ins, err := scanInstrument(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get instrument by id: %w", err)
	}
	return ins, nil
}

// GetAll retrieves all instruments, ordered by instrument_id ASC.
func (s *InstrumentStore) GetAll(ctx context.Context) ([]*domain.Instrument, error) {
	query := `
		SELECT instrument_id, base_asset, quote_asset, exchange, created_at_ms
		FROM instruments
		ORDER BY instrument_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all instruments: %w", err)
	}
	defer rows.Close()

	var instruments []*domain.Instrument
	for rows.Next() {
		ins, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instrument row: %w", err)
		}
		instruments = append(instruments, ins)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instrument rows: %w", err)
	}
	return instruments, nil
}

// scanInstrument scans a single row.
func scanInstrument(row pgx.Row) (*domain.Instrument, error) {
	var ins domain.Instrument
	err := row.Scan(
		&ins.InstrumentID,
		&ins.BaseAsset,
		&ins.QuoteAsset,
		&ins.Exchange,
		&ins.CreatedAtMs,
	)
	if err != nil {
		return nil, err
	}
	return &ins, nil
}
