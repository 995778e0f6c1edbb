// Package main generates the feature summary report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"ohlc-feature-lab/internal/config"
	"ohlc-feature-lab/internal/logging"
	"ohlc-feature-lab/internal/orchestrator"
	"ohlc-feature-lab/internal/pipeline"
	"ohlc-feature-lab/internal/reporting"
	"ohlc-feature-lab/internal/storage"
	chstore "ohlc-feature-lab/internal/storage/clickhouse"
	"ohlc-feature-lab/internal/storage/memory"
	"ohlc-feature-lab/internal/storage/migrations"
	pgstore "ohlc-feature-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration")
	outputDir := flag.String("output-dir", "", "Output directory (overrides report.output_dir)")
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

	dir := cfg.Report.OutputDir
	if *outputDir != "" {
		dir = *outputDir
	}
	if dir == "" {
		dir = "docs"
	}

	ctx := context.Background()

	instrumentStore, candleStore, featureStore, runStore, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open stores")
	}
	defer closeStores()

	// Memory backend starts empty, so seed demo data and compute once before
	// reporting.
	if cfg.Storage.Backend == "memory" {
		if err := pipeline.LoadFixtures(ctx, instrumentStore, candleStore); err != nil {
			log.Fatal().Err(err).Msg("load fixtures")
		}
		orch := orchestrator.New(orchestrator.Options{
			InstrumentStore: instrumentStore,
			CandleStore:     candleStore,
			FeatureStore:    featureStore,
			RunStore:        runStore,
			Requests:        cfg.Compute.Features,
			Workers:         cfg.Compute.Workers,
			Logger:          log,
		})
		if _, err := orch.Run(ctx); err != nil {
			log.Fatal().Err(err).Msg("compute run")
		}
	}

	featureNames := make([]string, len(cfg.Compute.Features))
	for i, req := range cfg.Compute.Features {
		featureNames[i] = req.Name()
	}

	gen := reporting.NewGenerator(instrumentStore, candleStore, featureStore, runStore, featureNames)
	report, err := gen.Generate(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("generate report")
	}

	if err := reporting.WriteFiles(dir, report); err != nil {
		log.Fatal().Err(err).Msg("write report files")
	}

	log.Info().
		Int("instruments", report.InstrumentCount).
		Int("summaries", len(report.FeatureSummaries)).
		Msg("report generated")
	fmt.Println("Report generated successfully:")
	fmt.Printf("  - %s\n", filepath.Join(dir, reporting.MarkdownFileName))
	fmt.Printf("  - %s\n", filepath.Join(dir, reporting.CSVFileName))
}

// openStores builds the configured storage backend.
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
