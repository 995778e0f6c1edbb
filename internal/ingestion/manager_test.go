package ingestion

import (
	"context"
	"errors"
	"testing"

	"ohlc-feature-lab/internal/domain"
	"ohlc-feature-lab/internal/storage"
	"ohlc-feature-lab/internal/storage/memory"
)

// staticSource returns a fixed candle slice.
type staticSource struct {
	candles []*domain.Candle
	err     error
}

func (s *staticSource) Fetch(_ context.Context, _ string, _, _ int64) ([]*domain.Candle, error) {
	return s.candles, s.err
}

func TestManager_IngestCandles(t *testing.T) {
	store := memory.NewCandleStore()
	source := &staticSource{candles: []*domain.Candle{
		candleAt(3000),
		candleAt(1000),
		candleAt(2000),
	}}

	m := NewManager(ManagerOptions{Source: source, CandleStore: store})

	count, err := m.IngestCandles(context.Background(), "BTC-USDT", 0, 0)
	if err != nil {
		t.Fatalf("IngestCandles failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 ingested candles, got %d", count)
	}

	stored, err := store.GetByInstrumentID(context.Background(), "BTC-USDT")
	if err != nil {
		t.Fatalf("GetByInstrumentID failed: %v", err)
	}
	for i := 1; i < len(stored); i++ {
		if stored[i-1].TimestampMs >= stored[i].TimestampMs {
			t.Errorf("Stored candles not ordered at %d", i)
		}
	}
}

func TestManager_IngestCandles_DedupsSource(t *testing.T) {
	store := memory.NewCandleStore()
	source := &staticSource{candles: []*domain.Candle{
		candleAt(1000),
		candleAt(1000),
		candleAt(2000),
	}}

	m := NewManager(ManagerOptions{Source: source, CandleStore: store})

	count, err := m.IngestCandles(context.Background(), "BTC-USDT", 0, 0)
	if err != nil {
		t.Fatalf("IngestCandles failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 candles after dedup, got %d", count)
	}
}

func TestManager_IngestCandles_DuplicateAgainstStore(t *testing.T) {
	store := memory.NewCandleStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.Candle{candleAt(1000)}); err != nil {
		t.Fatalf("Seed insert failed: %v", err)
	}

	source := &staticSource{candles: []*domain.Candle{candleAt(1000)}}
	m := NewManager(ManagerOptions{Source: source, CandleStore: store})

	_, err := m.IngestCandles(ctx, "BTC-USDT", 0, 0)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestManager_IngestCandles_SourceError(t *testing.T) {
	sourceErr := errors.New("feed unavailable")
	m := NewManager(ManagerOptions{
		Source:      &staticSource{err: sourceErr},
		CandleStore: memory.NewCandleStore(),
	})

	_, err := m.IngestCandles(context.Background(), "BTC-USDT", 0, 0)
	if !errors.Is(err, sourceErr) {
		t.Errorf("Expected source error, got %v", err)
	}
}

func TestManager_IngestCandles_NilDeps(t *testing.T) {
	m := NewManager(ManagerOptions{})
	count, err := m.IngestCandles(context.Background(), "BTC-USDT", 0, 0)
	if err != nil || count != 0 {
		t.Errorf("Expected no-op, got count=%d err=%v", count, err)
	}
}
