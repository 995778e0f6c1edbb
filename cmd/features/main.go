// Package main runs one feature compute pass over all registered instruments.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"ohlc-feature-lab/internal/config"
	"ohlc-feature-lab/internal/logging"
	"ohlc-feature-lab/internal/observability"
	"ohlc-feature-lab/internal/orchestrator"
	"ohlc-feature-lab/internal/pipeline"
	"ohlc-feature-lab/internal/storage"
	chstore "ohlc-feature-lab/internal/storage/clickhouse"
	"ohlc-feature-lab/internal/storage/memory"
	"ohlc-feature-lab/internal/storage/migrations"
	pgstore "ohlc-feature-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	m := observability.NewMetrics("")
	if cfg.Metrics.Enabled {
		startMetricsServer(cfg, log)
	}

	instrumentStore, candleStore, featureStore, runStore, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open stores")
	}
	defer closeStores()

	if cfg.Storage.Backend == "memory" {
		// Memory backend has nothing registered yet; seed demo data.
		if err := pipeline.LoadFixtures(ctx, instrumentStore, candleStore); err != nil {
			log.Fatal().Err(err).Msg("load fixtures")
		}
	}

	orch := orchestrator.New(orchestrator.Options{
		InstrumentStore: instrumentStore,
		CandleStore:     candleStore,
		FeatureStore:    featureStore,
		RunStore:        runStore,
		Requests:        cfg.Compute.Features,
		Workers:         cfg.Compute.Workers,
		Logger:          log,
		Metrics:         m,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("compute run")
	}

	log.Info().
		Str("run_id", result.RunID).
		Int("instruments", result.Instruments).
		Int("points_written", result.PointsWritten).
		Int("errors", len(result.Errors)).
		Msg("compute run finished")
	for _, e := range result.Errors {
		log.Warn().Str("error", e).Msg("instrument failed")
	}
	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}

// startMetricsServer exposes Prometheus metrics and a health endpoint.
func startMetricsServer(cfg *config.Config, log zerolog.Logger) {
	path := cfg.Metrics.Path
	if path == "" {
		path = "/metrics"
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle(path, observability.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("starting metrics server")
		if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server")
		}
	}()
}

// openStores builds the configured storage backend. The returned closer is
// safe to call once.
func openStores(ctx context.Context, cfg *config.Config) (
	storage.InstrumentStore,
	storage.CandleStore,
	storage.FeatureStore,
	storage.ComputeRunStore,
	func(),
	error,
) {
	if cfg.Storage.Backend == "memory" {
		return memory.NewInstrumentStore(), memory.NewCandleStore(),
			memory.NewFeatureStore(), memory.NewComputeRunStore(),
			func() {}, nil
	}

	pgPool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.ApplyPostgres(ctx, pgPool); err != nil {
		pgPool.Close()
		return nil, nil, nil, nil, nil, fmt.Errorf("apply postgres migrations: %w", err)
	}

	chConn, err := chstore.NewConn(ctx, cfg.Storage.ClickHouseDSN)
	if err != nil {
		pgPool.Close()
		return nil, nil, nil, nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	if err := migrations.ApplyClickHouse(ctx, chConn); err != nil {
		pgPool.Close()
		chConn.Close()
		return nil, nil, nil, nil, nil, fmt.Errorf("apply clickhouse migrations: %w", err)
	}

	closer := func() {
		pgPool.Close()
		if err := chConn.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing clickhouse: %v\n", err)
		}
	}

	return pgstore.NewInstrumentStore(pgPool), chstore.NewCandleStore(chConn),
		chstore.NewFeatureStore(chConn), pgstore.NewComputeRunStore(pgPool),
		closer, nil
}
