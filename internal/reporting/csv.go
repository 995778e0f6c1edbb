package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders feature summaries as CSV string.
func RenderCSV(summaries []FeatureSummaryRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("instrument_id,feature,points,defined,coverage,")
	sb.WriteString("mean,median,p10,p90,min,max,first_ms,last_ms\n")

	// Rows
	for _, s := range summaries {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%d,%d\n",
			s.InstrumentID,
			s.Feature,
			s.Points,
			s.Defined,
			s.Coverage,
			s.Mean,
			s.Median,
			s.P10,
			s.P90,
			s.Min,
			s.Max,
			s.FirstMs,
			s.LastMs,
		))
	}

	return sb.String()
}
