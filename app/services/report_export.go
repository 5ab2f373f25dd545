package services

import (
	"fmt"
	"strconv"
	"time"

	"github.com/amirphl/quote-core/analysis"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the analysis workbook
const (
	SummarySheet         = "Summary"
	PatternsSheet        = "Patterns"
	RecommendationsSheet = "Recommendations"
)

// ExportAnalysisReport renders a report as an xlsx workbook with summary, pattern and recommendation sheets
func ExportAnalysisReport(tenantID string, report analysis.Report) ([]byte, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	xl.SetSheetName(xl.GetSheetName(0), SummarySheet)
	summary := [][]any{
		{"tenant_id", tenantID},
		{"window_start", formatTime(report.Window.Start)},
		{"window_end", formatTime(report.Window.End)},
		{"total_extractions", report.TotalExtractions},
		{"failure_count", report.FailureCount},
		{"pattern_count", len(report.Groups)},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := xl.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	if _, err := xl.NewSheet(PatternsSheet); err != nil {
		return nil, err
	}
	header := []string{"field_name", "bucket", "count", "average_confidence", "score", "severity", "cause", "fix_category", "first_seen", "last_seen"}
	if err := xl.SetSheetRow(PatternsSheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, g := range report.Groups {
		record := []any{
			g.FieldName,
			string(g.Bucket),
			g.Count,
			roundTo(g.AverageConfidence, 4),
			roundTo(g.Score, 4),
			string(g.Severity),
			string(g.Cause),
			string(g.FixCategory),
			formatTime(g.FirstSeen),
			formatTime(g.LastSeen),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := xl.SetSheetRow(PatternsSheet, cell, &record); err != nil {
			return nil, fmt.Errorf("failed to write pattern row: %w", err)
		}
	}

	if _, err := xl.NewSheet(RecommendationsSheet); err != nil {
		return nil, err
	}
	header = []string{"rank", "field_name", "bucket", "severity", "score", "affected_extractions", "fix_category", "description"}
	if err := xl.SetSheetRow(RecommendationsSheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, r := range report.Recommendations {
		record := []any{
			r.Rank,
			r.FieldName,
			string(r.Bucket),
			string(r.Severity),
			roundTo(r.Score, 4),
			r.AffectedExtractions,
			string(r.FixCategory),
			r.Description,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := xl.SetSheetRow(RecommendationsSheet, cell, &record); err != nil {
			return nil, fmt.Errorf("failed to write recommendation row: %w", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func roundTo(v float64, places int) float64 {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	return f
}
