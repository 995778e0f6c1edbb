package domain

// Candle represents one closed OHLCV bar for an instrument.
// Corresponds to candles table in ClickHouse.
type Candle struct {
	InstrumentID string  // instrument identifier
	TimestampMs  int64   // bar open time, Unix timestamp in milliseconds
	Open         float64 // first trade price in the bar
	High         float64 // highest trade price in the bar
	Low          float64 // lowest trade price in the bar
	Close        float64 // last trade price in the bar
	Volume       float64 // base-asset volume in the bar
}
