package reporting

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ohlc-feature-lab/internal/domain"
	"ohlc-feature-lab/internal/storage/memory"
)

func setupTestData(t *testing.T) (*memory.InstrumentStore, *memory.CandleStore, *memory.FeatureStore, *memory.ComputeRunStore) {
	ctx := context.Background()

	instrumentStore := memory.NewInstrumentStore()
	candleStore := memory.NewCandleStore()
	featureStore := memory.NewFeatureStore()
	runStore := memory.NewComputeRunStore()

	instruments := []*domain.Instrument{
		{InstrumentID: "BTC-USDT", BaseAsset: "BTC", QuoteAsset: "USDT", Exchange: "binance", CreatedAtMs: 1000000},
		{InstrumentID: "ETH-USDT", BaseAsset: "ETH", QuoteAsset: "USDT", Exchange: "binance", CreatedAtMs: 1000000},
	}
	for _, ins := range instruments {
		if err := instrumentStore.Insert(ctx, ins); err != nil {
			t.Fatalf("Insert instrument failed: %v", err)
		}
	}

	candles := []*domain.Candle{
		{InstrumentID: "BTC-USDT", TimestampMs: 1000, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 10},
		{InstrumentID: "BTC-USDT", TimestampMs: 2000, Open: 100.5, High: 102, Low: 100, Close: 101, Volume: 12},
		{InstrumentID: "BTC-USDT", TimestampMs: 3000, Open: 101, High: 103, Low: 100.5, Close: 102, Volume: 9},
		{InstrumentID: "ETH-USDT", TimestampMs: 2000, Open: 50, High: 51, Low: 49, Close: 50.5, Volume: 100},
		{InstrumentID: "ETH-USDT", TimestampMs: 4000, Open: 50.5, High: 52, Low: 50, Close: 51, Volume: 90},
	}
	if err := candleStore.InsertBulk(ctx, candles); err != nil {
		t.Fatalf("InsertBulk candles failed: %v", err)
	}

	val := func(v float64) *float64 { return &v }
	points := []*domain.FeaturePoint{
		{InstrumentID: "BTC-USDT", Feature: "close_slope(3)", TimestampMs: 1000, Value: nil},
		{InstrumentID: "BTC-USDT", Feature: "close_slope(3)", TimestampMs: 2000, Value: val(1.0)},
		{InstrumentID: "BTC-USDT", Feature: "close_slope(3)", TimestampMs: 3000, Value: val(3.0)},
		{InstrumentID: "ETH-USDT", Feature: "close_slope(3)", TimestampMs: 2000, Value: val(2.0)},
	}
	if err := featureStore.InsertBulk(ctx, points); err != nil {
		t.Fatalf("InsertBulk points failed: %v", err)
	}

	runs := []*domain.ComputeRun{
		{RunID: "run-1", StartedAtMs: 5000, Status: domain.RunStatusCompleted, Instruments: 2, PointsWritten: 4},
		{RunID: "run-2", StartedAtMs: 6000, Status: domain.RunStatusFailed, Instruments: 2, PointsWritten: 0},
	}
	for _, run := range runs {
		if err := runStore.Insert(ctx, run); err != nil {
			t.Fatalf("Insert run failed: %v", err)
		}
	}

	return instrumentStore, candleStore, featureStore, runStore
}

func TestGenerateReport(t *testing.T) {
	instrumentStore, candleStore, featureStore, runStore := setupTestData(t)

	gen := NewGenerator(instrumentStore, candleStore, featureStore, runStore, []string{"close_slope(3)"}).
		WithClock(func() time.Time { return time.Unix(0, 0).UTC() })

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.InstrumentCount != 2 {
		t.Errorf("InstrumentCount = %d, want 2", report.InstrumentCount)
	}
	if report.FeatureCount != 1 {
		t.Errorf("FeatureCount = %d, want 1", report.FeatureCount)
	}
	if report.DataSummary.TotalCandles != 5 {
		t.Errorf("TotalCandles = %d, want 5", report.DataSummary.TotalCandles)
	}
	if report.DataSummary.DateRangeStart != 1000 {
		t.Errorf("DateRangeStart = %d, want 1000", report.DataSummary.DateRangeStart)
	}
	if report.DataSummary.DateRangeEnd != 4000 {
		t.Errorf("DateRangeEnd = %d, want 4000", report.DataSummary.DateRangeEnd)
	}

	if len(report.FeatureSummaries) != 2 {
		t.Fatalf("FeatureSummaries count = %d, want 2", len(report.FeatureSummaries))
	}

	// Rows sorted by instrument_id; BTC first.
	btc := report.FeatureSummaries[0]
	if btc.InstrumentID != "BTC-USDT" {
		t.Fatalf("first summary instrument = %s, want BTC-USDT", btc.InstrumentID)
	}
	if btc.Points != 3 || btc.Defined != 2 {
		t.Errorf("BTC points/defined = %d/%d, want 3/2", btc.Points, btc.Defined)
	}
	if got, want := btc.Coverage, 2.0/3.0; abs(got-want) > 1e-12 {
		t.Errorf("BTC coverage = %v, want %v", got, want)
	}
	if got, want := btc.Mean, 2.0; abs(got-want) > 1e-12 {
		t.Errorf("BTC mean = %v, want %v", got, want)
	}
	if got, want := btc.Median, 2.0; abs(got-want) > 1e-12 {
		t.Errorf("BTC median = %v, want %v", got, want)
	}
	if btc.Min != 1.0 || btc.Max != 3.0 {
		t.Errorf("BTC min/max = %v/%v, want 1/3", btc.Min, btc.Max)
	}

	eth := report.FeatureSummaries[1]
	if eth.Defined != 1 || eth.Mean != 2.0 || eth.Median != 2.0 {
		t.Errorf("ETH summary = %+v, want single defined value 2.0", eth)
	}

	if len(report.RecentRuns) != 2 {
		t.Fatalf("RecentRuns count = %d, want 2", len(report.RecentRuns))
	}
	// Newest first.
	if report.RecentRuns[0].RunID != "run-2" {
		t.Errorf("first run = %s, want run-2", report.RecentRuns[0].RunID)
	}
	if report.RecentRuns[1].Status != domain.RunStatusCompleted {
		t.Errorf("second run status = %s, want COMPLETED", report.RecentRuns[1].Status)
	}
}

func TestGenerateEmptyStores(t *testing.T) {
	gen := NewGenerator(
		memory.NewInstrumentStore(),
		memory.NewCandleStore(),
		memory.NewFeatureStore(),
		memory.NewComputeRunStore(),
		[]string{"close_slope(3)"},
	)

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.InstrumentCount != 0 || len(report.FeatureSummaries) != 0 || len(report.RecentRuns) != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
}

func TestRenderCSV(t *testing.T) {
	summaries := []FeatureSummaryRow{
		{InstrumentID: "BTC-USDT", Feature: "close_slope(3)", Points: 3, Defined: 2, Coverage: 0.666667, Mean: 2, Median: 2, P10: 1.2, P90: 2.8, Min: 1, Max: 3},
	}

	out := RenderCSV(summaries)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "instrument_id,feature,points,defined,coverage") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "BTC-USDT,close_slope(3),3,2,") {
		t.Errorf("unexpected row: %s", lines[1])
	}
}

func TestRenderMarkdown(t *testing.T) {
	instrumentStore, candleStore, featureStore, runStore := setupTestData(t)

	gen := NewGenerator(instrumentStore, candleStore, featureStore, runStore, []string{"close_slope(3)"}).
		WithClock(func() time.Time { return time.Unix(0, 0).UTC() })

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)
	for _, want := range []string{
		"# Feature Report",
		"## Data Summary",
		"| Total Candles | 5 |",
		"## Feature Summaries",
		"| BTC-USDT | close_slope(3) |",
		"## Recent Runs",
		"| run-2 | FAILED |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestWriteFiles(t *testing.T) {
	instrumentStore, candleStore, featureStore, runStore := setupTestData(t)

	gen := NewGenerator(instrumentStore, candleStore, featureStore, runStore, []string{"close_slope(3)"}).
		WithClock(func() time.Time { return time.Unix(0, 0).UTC() })

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	dir := t.TempDir()
	if err := WriteFiles(dir, report); err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}

	md, err := os.ReadFile(filepath.Join(dir, MarkdownFileName))
	if err != nil {
		t.Fatalf("read markdown: %v", err)
	}
	if !strings.Contains(string(md), "# Feature Report") {
		t.Error("markdown file missing report header")
	}

	csvOut, err := os.ReadFile(filepath.Join(dir, CSVFileName))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if !strings.HasPrefix(string(csvOut), "instrument_id,feature,") {
		t.Error("csv file missing header")
	}
}

func TestQuantileInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}

	if got := quantile(sorted, 0.5); abs(got-2.5) > 1e-12 {
		t.Errorf("median = %v, want 2.5", got)
	}
	if got := quantile(sorted, 0); got != 1 {
		t.Errorf("q0 = %v, want 1", got)
	}
	if got := quantile(sorted, 1); got != 4 {
		t.Errorf("q1 = %v, want 4", got)
	}
	if got := quantile([]float64{7}, 0.9); got != 7 {
		t.Errorf("single-element quantile = %v, want 7", got)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
