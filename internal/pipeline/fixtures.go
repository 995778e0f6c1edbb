package pipeline

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"ohlc-feature-lab/internal/domain"
	"ohlc-feature-lab/internal/storage"
)

// LoadFixtures populates stores with deterministic demo data: a handful of
// instruments with random-walk candles. Useful for trying the pipeline
// without live ingestion.
func LoadFixtures(
	ctx context.Context,
	instrumentStore storage.InstrumentStore,
	candleStore storage.CandleStore,
) error {
	instruments := []*domain.Instrument{
		{
			InstrumentID: "BTC-USDT",
			BaseAsset:    "BTC",
			QuoteAsset:   "USDT",
			Exchange:     "binance",
			CreatedAtMs:  1704067200000, // 2024-01-01 00:00:00 UTC
		},
		{
			InstrumentID: "ETH-USDT",
			BaseAsset:    "ETH",
			QuoteAsset:   "USDT",
			Exchange:     "binance",
			CreatedAtMs:  1704067200000,
		},
		{
			InstrumentID: "SOL-USDT",
			BaseAsset:    "SOL",
			QuoteAsset:   "USDT",
			Exchange:     "binance",
			CreatedAtMs:  1704067200000,
		},
	}

	seeds := map[string]int64{"BTC-USDT": 1, "ETH-USDT": 2, "SOL-USDT": 3}
	starts := map[string]float64{"BTC-USDT": 42000, "ETH-USDT": 2300, "SOL-USDT": 100}

	for _, ins := range instruments {
		if err := instrumentStore.Insert(ctx, ins); err != nil {
			return fmt.Errorf("insert fixture instrument %s: %w", ins.InstrumentID, err)
		}

		candles := GenerateCandles(ins.InstrumentID, 512, ins.CreatedAtMs, 60_000,
			starts[ins.InstrumentID], seeds[ins.InstrumentID])
		if err := candleStore.InsertBulk(ctx, candles); err != nil {
			return fmt.Errorf("insert fixture candles %s: %w", ins.InstrumentID, err)
		}
	}

	return nil
}

// GenerateCandles produces n random-walk candles starting at startMs with the
// given bar interval. The walk is deterministic for a given seed.
func GenerateCandles(instrumentID string, n int, startMs, stepMs int64, startPrice float64, seed int64) []*domain.Candle {
	rng := rand.New(rand.NewSource(seed))

	candles := make([]*domain.Candle, n)
	price := startPrice
	for i := 0; i < n; i++ {
		// Log-normal step keeps prices positive
		open := price
		close := open * math.Exp(rng.NormFloat64()*0.01)
		high := math.Max(open, close) * math.Exp(math.Abs(rng.NormFloat64())*0.005)
		low := math.Min(open, close) * math.Exp(-math.Abs(rng.NormFloat64())*0.005)

		candles[i] = &domain.Candle{
			InstrumentID: instrumentID,
			TimestampMs:  startMs + int64(i)*stepMs,
			Open:         open,
			High:         high,
			Low:          low,
			Close:        close,
			Volume:       1 + math.Abs(rng.NormFloat64())*10,
		}
		price = close
	}
	return candles
}
