package memory

import (
	"context"
	"errors"
	"testing"

	"ohlc-feature-lab/internal/domain"
	"ohlc-feature-lab/internal/storage"
)

func TestCandleStore_InsertBulkAndGet(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()

	candles := []*domain.Candle{
		{InstrumentID: "BTC-USDT", TimestampMs: 2000, Open: 101, High: 103, Low: 100, Close: 102, Volume: 5},
		{InstrumentID: "BTC-USDT", TimestampMs: 1000, Open: 100, High: 102, Low: 99, Close: 101, Volume: 3},
		{InstrumentID: "ETH-USDT", TimestampMs: 1000, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 20},
	}

	if err := store.InsertBulk(ctx, candles); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByInstrumentID(ctx, "BTC-USDT")
	if err != nil {
		t.Fatalf("GetByInstrumentID failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 candles, got %d", len(result))
	}
	// Ordered by timestamp ASC regardless of insert order.
	if result[0].TimestampMs != 1000 || result[1].TimestampMs != 2000 {
		t.Errorf("Candles not ordered by timestamp: %d, %d", result[0].TimestampMs, result[1].TimestampMs)
	}
}

func TestCandleStore_DuplicateKey(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()

	candles := []*domain.Candle{
		{InstrumentID: "BTC-USDT", TimestampMs: 1000, Close: 100},
	}

	if err := store.InsertBulk(ctx, candles); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	err := store.InsertBulk(ctx, candles)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestCandleStore_IntraBatchDuplicate(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()

	candles := []*domain.Candle{
		{InstrumentID: "BTC-USDT", TimestampMs: 1000, Close: 100},
		{InstrumentID: "BTC-USDT", TimestampMs: 1000, Close: 101},
	}

	err := store.InsertBulk(ctx, candles)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}

	// Verify nothing was inserted.
	result, _ := store.GetByInstrumentID(ctx, "BTC-USDT")
	if len(result) != 0 {
		t.Errorf("Expected empty store after failed batch, got %d candles", len(result))
	}
}

func TestCandleStore_GetByTimeRange(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()

	var candles []*domain.Candle
	for ts := int64(1000); ts <= 5000; ts += 1000 {
		candles = append(candles, &domain.Candle{InstrumentID: "BTC-USDT", TimestampMs: ts, Close: 100})
	}
	if err := store.InsertBulk(ctx, candles); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByTimeRange(ctx, "BTC-USDT", 2000, 4000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(result) != 3 {
		t.Errorf("Expected 3 candles in [2000,4000], got %d", len(result))
	}
}

func TestCandleStore_EmptyInsert(t *testing.T) {
	store := NewCandleStore()
	if err := store.InsertBulk(context.Background(), nil); err != nil {
		t.Errorf("Empty insert should succeed, got %v", err)
	}
}
