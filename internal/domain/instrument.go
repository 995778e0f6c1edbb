package domain

// Instrument represents a tradeable instrument registered with the lab.
// Corresponds to instruments table in PostgreSQL.
type Instrument struct {
	InstrumentID string // PRIMARY KEY, e.g. "BTC-USDT"
	BaseAsset    string // e.g. "BTC"
	QuoteAsset   string // e.g. "USDT"
	Exchange     string // venue identifier, e.g. "binance"
	CreatedAtMs  int64  // record creation timestamp (ms)
}
