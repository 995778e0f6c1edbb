package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ohlc-feature-lab/internal/domain"
	"ohlc-feature-lab/internal/storage"
)

// ComputeRunStore implements storage.ComputeRunStore using PostgreSQL.
type ComputeRunStore struct {
	pool *Pool
}

// NewComputeRunStore creates a new ComputeRunStore.
func NewComputeRunStore(pool *Pool) *ComputeRunStore {
	return &ComputeRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ComputeRunStore = (*ComputeRunStore)(nil)

// Insert adds a new run record. Returns ErrDuplicateKey if run_id exists.
func (s *ComputeRunStore) Insert(ctx context.Context, run *domain.ComputeRun) error {
	query := `
		INSERT INTO compute_runs (
			run_id, started_at_ms, completed_at_ms, status,
			instruments, features, points_written, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		run.RunID,
		run.StartedAtMs,
		run.CompletedAtMs,
		run.Status,
		run.Instruments,
		run.Features,
		run.PointsWritten,
		run.Error,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert compute run: %w", err)
	}
	return nil
}

// Complete finalizes a run record. Returns ErrNotFound if run_id does not exist.
func (s *ComputeRunStore) Complete(ctx context.Context, run *domain.ComputeRun) error {
	query := `
		UPDATE compute_runs
		SET completed_at_ms = $2, status = $3, instruments = $4,
		    features = $5, points_written = $6, error = $7
		WHERE run_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		run.RunID,
		run.CompletedAtMs,
		run.Status,
		run.Instruments,
		run.Features,
		run.PointsWritten,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("complete compute run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ComputeRunStore) GetByID(ctx context.Context, runID string) (*domain.ComputeRun, error) {
	query := `
		SELECT run_id, started_at_ms, completed_at_ms, status,
		       instruments, features, points_written, error
		FROM compute_runs
		WHERE run_id = $1
	`

	row := s.pool.QueryRow(ctx, query, runID)
	run, err := scanComputeRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get compute run by id: %w", err)
	}
	return run, nil
}

// GetRecent retrieves the most recent runs, newest first.
func (s *ComputeRunStore) GetRecent(ctx context.Context, limit int) ([]*domain.ComputeRun, error) {
	query := `
		SELECT run_id, started_at_ms, completed_at_ms, status,
		       instruments, features, points_written, error
		FROM compute_runs
		ORDER BY started_at_ms DESC, run_id DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent compute runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.ComputeRun
	for rows.Next() {
		run, err := scanComputeRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan compute run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compute run rows: %w", err)
	}
	return runs, nil
}

// scanComputeRun scans a single row.
func scanComputeRun(row pgx.Row) (*domain.ComputeRun, error) {
	var run domain.ComputeRun
	err := row.Scan(
		&run.RunID,
		&run.StartedAtMs,
		&run.CompletedAtMs,
		&run.Status,
		&run.Instruments,
		&run.Features,
		&run.PointsWritten,
		&run.Error,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
