package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ohlc-feature-lab/internal/domain"
	"ohlc-feature-lab/internal/storage"
)

func TestCandleStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCandleStore(conn)
	ctx := context.Background()

	// Empty insert is a no-op
	err := store.InsertBulk(ctx, nil)
	assert.NoError(t, err)

	candles := []*domain.Candle{
		{
			InstrumentID: "BTC-USDT",
			TimestampMs:  1000,
			Open:         100.0,
			High:         105.0,
			Low:          99.0,
			Close:        103.0,
			Volume:       12.5,
		},
	}

	err = store.InsertBulk(ctx, candles)
	require.NoError(t, err)

	got, err := store.GetByInstrumentID(ctx, "BTC-USDT")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "BTC-USDT", got[0].InstrumentID)
	assert.Equal(t, int64(1000), got[0].TimestampMs)
	assert.Equal(t, 100.0, got[0].Open)
	assert.Equal(t, 105.0, got[0].High)
	assert.Equal(t, 99.0, got[0].Low)
	assert.Equal(t, 103.0, got[0].Close)
	assert.Equal(t, 12.5, got[0].Volume)
}

func TestCandleStore_InsertBulk_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCandleStore(conn)
	ctx := context.Background()

	candles := []*domain.Candle{
		{InstrumentID: "BTC-USDT", TimestampMs: 1000, Open: 100, High: 105, Low: 99, Close: 103, Volume: 1},
	}

	err := store.InsertBulk(ctx, candles)
	require.NoError(t, err)

	err = store.InsertBulk(ctx, candles)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestCandleStore_InsertBulk_IntraBatchDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCandleStore(conn)
	ctx := context.Background()

	candles := []*domain.Candle{
		{InstrumentID: "BTC-USDT", TimestampMs: 1000, Open: 100, High: 105, Low: 99, Close: 103, Volume: 1},
		{InstrumentID: "BTC-USDT", TimestampMs: 1000, Open: 101, High: 106, Low: 98, Close: 104, Volume: 2},
	}

	err := store.InsertBulk(ctx, candles)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Nothing from the failed batch is visible
	got, err := store.GetByInstrumentID(ctx, "BTC-USDT")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCandleStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCandleStore(conn)
	ctx := context.Background()

	var candles []*domain.Candle
	for i := 0; i < 5; i++ {
		candles = append(candles, &domain.Candle{
			InstrumentID: "BTC-USDT",
			TimestampMs:  int64(1000 + i*1000),
			Open:         100,
			High:         101,
			Low:          99,
			Close:        100,
			Volume:       1,
		})
	}
	require.NoError(t, store.InsertBulk(ctx, candles))

	// Inclusive on both ends
	got, err := store.GetByTimeRange(ctx, "BTC-USDT", 2000, 4000)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(2000), got[0].TimestampMs)
	assert.Equal(t, int64(4000), got[2].TimestampMs)

	// Other instruments are not included
	got, err = store.GetByTimeRange(ctx, "ETH-USDT", 0, 10000)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCandleStore_OrderedByTimestamp(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCandleStore(conn)
	ctx := context.Background()

	candles := []*domain.Candle{
		{InstrumentID: "BTC-USDT", TimestampMs: 3000, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1},
		{InstrumentID: "BTC-USDT", TimestampMs: 1000, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1},
		{InstrumentID: "BTC-USDT", TimestampMs: 2000, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1},
	}
	require.NoError(t, store.InsertBulk(ctx, candles))

	got, err := store.GetByInstrumentID(ctx, "BTC-USDT")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].TimestampMs, got[i].TimestampMs)
	}
}
