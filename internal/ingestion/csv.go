package ingestion

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"ohlc-feature-lab/internal/domain"
)

// csvHeader is the required column order for candle CSV files.
var csvHeader = []string{"timestamp_ms", "open", "high", "low", "close", "volume"}

// CSVCandleSource reads candles for an instrument from a CSV file.
type CSVCandleSource struct {
	path string
}

// NewCSVCandleSource creates a source backed by the given file.
func NewCSVCandleSource(path string) *CSVCandleSource {
	return &CSVCandleSource{path: path}
}

// Compile-time interface check.
var _ CandleSource = (*CSVCandleSource)(nil)

// Fetch reads all candles from the file and filters to [from, to].
func (s *CSVCandleSource) Fetch(_ context.Context, instrumentID string, from, to int64) ([]*domain.Candle, error) {
	all, err := LoadCandlesCSV(s.path, instrumentID)
	if err != nil {
		return nil, err
	}

	var candles []*domain.Candle
	for _, c := range all {
		if c.TimestampMs < from {
			continue
		}
		if to > 0 && c.TimestampMs > to {
			continue
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// LoadCandlesCSV parses a candle CSV file. The first row must be the header
// timestamp_ms,open,high,low,close,volume. Parse errors carry the line number.
func LoadCandlesCSV(path, instrumentID string) ([]*domain.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candle csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(csvHeader)

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, col := range csvHeader {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected csv header column %d: got %q, want %q", i, header[i], col)
		}
	}

	var candles []*domain.Candle
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		c, err := parseCandleRecord(record, instrumentID)
		if err != nil {
			return nil, fmt.Errorf("parse csv line %d: %w", line, err)
		}
		candles = append(candles, c)
	}

	return candles, nil
}

// parseCandleRecord converts one CSV record into a candle.
func parseCandleRecord(record []string, instrumentID string) (*domain.Candle, error) {
	timestampMs, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("timestamp_ms: %w", err)
	}

	fields := [5]float64{}
	for i, name := range []string{"open", "high", "low", "close", "volume"} {
		v, err := strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		fields[i] = v
	}

	return &domain.Candle{
		InstrumentID: instrumentID,
		TimestampMs:  timestampMs,
		Open:         fields[0],
		High:         fields[1],
		Low:          fields[2],
		Close:        fields[3],
		Volume:       fields[4],
	}, nil
}
