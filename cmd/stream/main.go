// Package main streams live candles from the websocket feed into storage.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

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

const (
	flushInterval = 5 * time.Second
	flushBatch    = 100
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

	if cfg.Feed.WebSocketURL == "" {
		log.Fatal().Msg("feed.websocket_url is required")
	}
	if len(cfg.Feed.Instruments) == 0 {
		log.Fatal().Msg("feed.instruments is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	candleStore, closeStores, err := openCandleStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open stores")
	}
	defer closeStores()

	feedCfg := ingestion.DefaultFeedConfig()
	if cfg.Feed.ReconnectDelay > 0 {
		feedCfg.ReconnectDelay = cfg.Feed.ReconnectDelay
	}
	if cfg.Feed.PingInterval > 0 {
		feedCfg.PingInterval = cfg.Feed.PingInterval
	}

	client, err := ingestion.NewFeedClient(ctx, cfg.Feed.WebSocketURL, &feedCfg)
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.Feed.WebSocketURL).Msg("connect to feed")
	}
	defer client.Close()

	candles, err := client.Subscribe(ctx, cfg.Feed.Instruments)
	if err != nil {
		log.Fatal().Err(err).Msg("subscribe")
	}
	log.Info().Strs("instruments", cfg.Feed.Instruments).Msg("streaming candles")

	streamCandles(ctx, log, m, candleStore, candles)
}

// streamCandles drains the feed channel, persisting candles in small batches.
// The remaining batch is flushed on shutdown.
func streamCandles(
	ctx context.Context,
	log zerolog.Logger,
	m *observability.Metrics,
	candleStore storage.CandleStore,
	candles <-chan domain.Candle,
) {
	batch := make([]*domain.Candle, 0, flushBatch)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := persistBatch(ctx, candleStore, batch); err != nil {
			m.IngestionErrors.WithLabelValues("stream_insert").Inc()
			log.Error().Err(err).Int("candles", len(batch)).Msg("persist batch")
		} else {
			log.Debug().Int("candles", len(batch)).Msg("batch persisted")
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case c, ok := <-candles:
			if !ok {
				flush()
				return
			}
			candle := c
			batch = append(batch, &candle)
			m.CandlesStreamed.Inc()
			m.LastCandleSeen.Set(float64(candle.TimestampMs) / 1000)
			if len(batch) >= flushBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// persistBatch sorts and dedups before insert. Duplicates against existing
// rows happen after feed reconnects and are not an error.
func persistBatch(ctx context.Context, candleStore storage.CandleStore, batch []*domain.Candle) error {
	candles := make([]*domain.Candle, len(batch))
	copy(candles, batch)
	ingestion.SortCandles(candles)
	candles = ingestion.DedupCandles(candles)

	err := candleStore.InsertBulk(ctx, candles)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil
	}
	return err
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

// openCandleStore builds the candle store for the configured backend.
func openCandleStore(ctx context.Context, cfg *config.Config) (storage.CandleStore, func(), error) {
	if cfg.Storage.Backend == "memory" {
		return memory.NewCandleStore(), func() {}, nil
	}

	pgPool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.ApplyPostgres(ctx, pgPool); err != nil {
		pgPool.Close()
		return nil, nil, fmt.Errorf("apply postgres migrations: %w", err)
	}

	chConn, err := chstore.NewConn(ctx, cfg.Storage.ClickHouseDSN)
	if err != nil {
		pgPool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	if err := migrations.ApplyClickHouse(ctx, chConn); err != nil {
		pgPool.Close()
		chConn.Close()
		return nil, nil, fmt.Errorf("apply clickhouse migrations: %w", err)
	}

	closer := func() {
		pgPool.Close()
		if err := chConn.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing clickhouse: %v\n", err)
		}
	}

	return chstore.NewCandleStore(chConn), closer, nil
}
