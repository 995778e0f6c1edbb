// Package main loads historical candles from CSV files into storage.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"ohlc-feature-lab/internal/config"
	"ohlc-feature-lab/internal/domain"
	"ohlc-feature-lab/internal/ingestion"
	"ohlc-feature-lab/internal/logging"
	"ohlc-feature-lab/internal/observability"
	"ohlc-feature-lab/internal/storage"
	chstore "ohlc-feature-lab/internal/storage/clickhouse"
	"ohlc-feature-lab/internal/storage/memory"
	"ohlc-feature-lab/internal/storage/migrations"
	pgstore "ohlc-feature-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration")
	csvPath := flag.String("csv", "", "Path to CSV candle file (timestamp_ms,open,high,low,close,volume)")
	instrument := flag.String("instrument", "", "Instrument ID, e.g. BTC-USDT")
	exchange := flag.String("exchange", "binance", "Exchange the candles come from")
	from := flag.Int64("from", 0, "Start timestamp (ms), 0 for unbounded")
	to := flag.Int64("to", 0, "End timestamp (ms), 0 for unbounded")
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

	if *csvPath == "" || *instrument == "" {
		log.Fatal().Msg("--csv and --instrument are required")
	}

	ctx := context.Background()
	m := observability.NewMetrics("")

	instrumentStore, candleStore, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open stores")
	}
	defer closeStores()

	// Register the instrument if it is not known yet.
	if err := registerInstrument(ctx, instrumentStore, *instrument, *exchange); err != nil {
		log.Fatal().Err(err).Str("instrument", *instrument).Msg("register instrument")
	}

	manager := ingestion.NewManager(ingestion.ManagerOptions{
		Source:      ingestion.NewCSVCandleSource(*csvPath),
		CandleStore: candleStore,
	})

	count, err := manager.IngestCandles(ctx, *instrument, *from, *to)
	if err != nil {
		m.IngestionErrors.WithLabelValues("ingest").Inc()
		log.Fatal().Err(err).Str("instrument", *instrument).Msg("ingest candles")
	}
	m.CandlesIngested.WithLabelValues(*instrument).Add(float64(count))

	log.Info().
		Str("instrument", *instrument).
		Str("csv", *csvPath).
		Int("candles", count).
		Msg("ingestion finished")
}

// registerInstrument inserts the instrument, deriving base and quote assets
// from the ID. Existing registrations are left untouched.
func registerInstrument(ctx context.Context, store storage.InstrumentStore, instrumentID, exchange string) error {
	base, quote := splitInstrumentID(instrumentID)
	err := store.Insert(ctx, &domain.Instrument{
		InstrumentID: instrumentID,
		BaseAsset:    base,
		QuoteAsset:   quote,
		Exchange:     exchange,
		CreatedAtMs:  time.Now().UnixMilli(),
	})
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil
	}
	return err
}

// splitInstrumentID splits "BTC-USDT" into base and quote. IDs without a
// separator keep the whole ID as the base asset.
func splitInstrumentID(instrumentID string) (string, string) {
	parts := strings.SplitN(instrumentID, "-", 2)
	if len(parts) != 2 {
		return instrumentID, ""
	}
	return parts[0], parts[1]
}

// openStores builds the instrument and candle stores for the configured
// backend.
func openStores(ctx context.Context, cfg *config.Config) (
	storage.InstrumentStore,
	storage.CandleStore,
	func(),
	error,
) {
	if cfg.Storage.Backend == "memory" {
		return memory.NewInstrumentStore(), memory.NewCandleStore(), func() {}, nil
	}

	pgPool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.ApplyPostgres(ctx, pgPool); err != nil {
		pgPool.Close()
		return nil, nil, nil, fmt.Errorf("apply postgres migrations: %w", err)
	}

	chConn, err := chstore.NewConn(ctx, cfg.Storage.ClickHouseDSN)
	if err != nil {
		pgPool.Close()
		return nil, nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	if err := migrations.ApplyClickHouse(ctx, chConn); err != nil {
		pgPool.Close()
		chConn.Close()
		return nil, nil, nil, fmt.Errorf("apply clickhouse migrations: %w", err)
	}

	closer := func() {
		pgPool.Close()
		if err := chConn.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing clickhouse: %v\n", err)
		}
	}

	return pgstore.NewInstrumentStore(pgPool), chstore.NewCandleStore(chConn), closer, nil
}
