package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Feature Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Instruments: %d | Features: %d\n\n", r.InstrumentCount, r.FeatureCount))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Instruments | %d |\n", r.DataSummary.TotalInstruments))
	sb.WriteString(fmt.Sprintf("| Total Candles | %d |\n", r.DataSummary.TotalCandles))
	sb.WriteString(fmt.Sprintf("| Date Range Start (ms) | %d |\n", r.DataSummary.DateRangeStart))
	sb.WriteString(fmt.Sprintf("| Date Range End (ms) | %d |\n", r.DataSummary.DateRangeEnd))
	sb.WriteString("\n")

	// Feature Summaries
	sb.WriteString("## Feature Summaries\n\n")
	if len(r.FeatureSummaries) > 0 {
		sb.WriteString("| Instrument | Feature | Points | Defined | Coverage | Mean | Median | P10 | P90 | Min | Max |\n")
		sb.WriteString("|------------|---------|--------|---------|----------|------|--------|-----|-----|-----|-----|\n")
		for _, s := range r.FeatureSummaries {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f |\n",
				s.InstrumentID, s.Feature,
				s.Points, s.Defined, s.Coverage, s.Mean, s.Median,
				s.P10, s.P90, s.Min, s.Max))
		}
	} else {
		sb.WriteString("No feature summaries available.\n")
	}
	sb.WriteString("\n")

	// Recent Runs
	sb.WriteString("## Recent Runs\n\n")
	if len(r.RecentRuns) > 0 {
		sb.WriteString("| Run | Status | Started (ms) | Instruments | Points |\n")
		sb.WriteString("|-----|--------|--------------|-------------|--------|\n")
		for _, run := range r.RecentRuns {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d |\n",
				run.RunID, run.Status, run.StartedAtMs, run.Instruments, run.PointsWritten))
		}
	} else {
		sb.WriteString("No compute runs recorded.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
