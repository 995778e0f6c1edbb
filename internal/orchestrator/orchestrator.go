// Package orchestrator coordinates full compute runs: instruments are loaded,
// features are computed per instrument by a bounded worker pool, and the run
// is recorded in the compute_runs table.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ohlc-feature-lab/internal/domain"
	"ohlc-feature-lab/internal/idhash"
	"ohlc-feature-lab/internal/observability"
	"ohlc-feature-lab/internal/pipeline"
	"ohlc-feature-lab/internal/storage"
)

// DefaultWorkers is the worker pool size when none is configured.
const DefaultWorkers = 4

// Orchestrator coordinates the feature compute pipeline across instruments.
type Orchestrator struct {
	instrumentStore storage.InstrumentStore
	candleStore     storage.CandleStore
	featureStore    storage.FeatureStore
	runStore        storage.ComputeRunStore

	requests []domain.FeatureRequest
	workers  int

	log     zerolog.Logger
	metrics *observability.Metrics
	clock   func() time.Time
}

// Options for creating an Orchestrator.
type Options struct {
	InstrumentStore storage.InstrumentStore
	CandleStore     storage.CandleStore
	FeatureStore    storage.FeatureStore
	RunStore        storage.ComputeRunStore

	Requests []domain.FeatureRequest
	Workers  int

	Logger  zerolog.Logger
	Metrics *observability.Metrics // optional
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &Orchestrator{
		instrumentStore: opts.InstrumentStore,
		candleStore:     opts.CandleStore,
		featureStore:    opts.FeatureStore,
		runStore:        opts.RunStore,
		requests:        opts.Requests,
		workers:         workers,
		log:             opts.Logger,
		metrics:         opts.Metrics,
		clock:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock for deterministic run records.
func (o *Orchestrator) WithClock(clock func() time.Time) *Orchestrator {
	o.clock = clock
	return o
}

// RunResult contains results from one compute run.
type RunResult struct {
	RunID         string
	Instruments   int
	PointsWritten int
	Errors        []string
}

// Run executes one full compute run. Instrument failures are collected, not
// fatal; the run record reflects the first failure message if any.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	startedAt := o.clock()

	instruments, err := o.instrumentStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load instruments: %w", err)
	}

	ids := make([]string, len(instruments))
	for i, ins := range instruments {
		ids[i] = ins.InstrumentID
	}
	featureNames := make([]string, len(o.requests))
	for i, req := range o.requests {
		featureNames[i] = req.Name()
	}

	run := &domain.ComputeRun{
		RunID:       idhash.ComputeRunID(startedAt.UnixMilli(), ids, featureNames),
		StartedAtMs: startedAt.UnixMilli(),
		Status:      domain.RunStatusRunning,
		Features:    featureNames,
	}
	if err := o.runStore.Insert(ctx, run); err != nil {
		return nil, fmt.Errorf("record run start: %w", err)
	}

	o.log.Info().
		Str("run_id", run.RunID).
		Int("instruments", len(instruments)).
		Strs("features", featureNames).
		Int("workers", o.workers).
		Msg("compute run started")

	points, errs := o.computeAll(ctx, ids)

	completedAt := o.clock().UnixMilli()
	run.CompletedAtMs = &completedAt
	run.Instruments = len(instruments)
	run.PointsWritten = points
	run.Status = domain.RunStatusCompleted
	if len(errs) > 0 {
		run.Status = domain.RunStatusFailed
		first := errs[0]
		run.Error = &first
	}
	if err := o.runStore.Complete(ctx, run); err != nil {
		return nil, fmt.Errorf("record run completion: %w", err)
	}

	if o.metrics != nil {
		o.metrics.RunsTotal.WithLabelValues(run.Status).Inc()
		if run.Status == domain.RunStatusCompleted {
			o.metrics.LastSuccessfulRun.Set(float64(completedAt) / 1000)
		}
	}

	o.log.Info().
		Str("run_id", run.RunID).
		Str("status", run.Status).
		Int("points_written", points).
		Int("errors", len(errs)).
		Msg("compute run finished")

	return &RunResult{
		RunID:         run.RunID,
		Instruments:   len(instruments),
		PointsWritten: points,
		Errors:        errs,
	}, nil
}

// computeAll fans instruments out to a bounded worker pool.
func (o *Orchestrator) computeAll(ctx context.Context, instrumentIDs []string) (int, []string) {
	runner := pipeline.NewRunner(o.candleStore, o.featureStore)

	jobs := make(chan string)
	var mu sync.Mutex
	var totalPoints int
	var errs []string

	var wg sync.WaitGroup
	for w := 0; w < o.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				start := o.clock()
				points, err := runner.ComputeInstrument(ctx, id, o.requests)

				if o.metrics != nil {
					o.metrics.ComputeDuration.WithLabelValues(id).
						Observe(o.clock().Sub(start).Seconds())
				}

				mu.Lock()
				if err != nil {
					errs = append(errs, fmt.Sprintf("compute %s: %v", id, err))
					mu.Unlock()

					if o.metrics != nil {
						o.metrics.ComputeErrors.WithLabelValues("instrument").Inc()
					}
					o.log.Error().Err(err).Str("instrument", id).Msg("instrument compute failed")
					continue
				}
				totalPoints += points
				mu.Unlock()

				if o.metrics != nil {
					o.metrics.InstrumentsComputed.Inc()
				}
				o.log.Debug().Str("instrument", id).Int("points", points).Msg("instrument computed")
			}
		}()
	}

	for _, id := range instrumentIDs {
		select {
		case jobs <- id:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			mu.Lock()
			defer mu.Unlock()
			return totalPoints, append(errs, ctx.Err().Error())
		}
	}
	close(jobs)
	wg.Wait()

	return totalPoints, errs
}
