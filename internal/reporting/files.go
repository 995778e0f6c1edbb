package reporting

import (
	"fmt"
	"os"
	"path/filepath"
)

// Output file names within the report directory.
const (
	MarkdownFileName = "REPORT.md"
	CSVFileName      = "feature_summaries.csv"
)

// WriteFiles renders the report and writes both output files into dir,
// creating it if needed.
func WriteFiles(dir string, r *Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	mdPath := filepath.Join(dir, MarkdownFileName)
	if err := os.WriteFile(mdPath, []byte(RenderMarkdown(r)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", MarkdownFileName, err)
	}

	csvPath := filepath.Join(dir, CSVFileName)
	if err := os.WriteFile(csvPath, []byte(RenderCSV(r.FeatureSummaries)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", CSVFileName, err)
	}

	return nil
}
