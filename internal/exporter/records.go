package exporter

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"fnopulse/internal/config"
	"fnopulse/pkg/contracts/domain"
)

// RecordHeaders returns the canonical summary column order.
func RecordHeaders() []string {
	headers := make([]string, len(domain.SummaryColumns))
	copy(headers, domain.SummaryColumns)
	return headers
}

// RecordToRow converts a record into RecordHeaders order. Unknown ratios
// become empty cells.
func RecordToRow(r domain.MarketRecord) []string {
	return []string{
		r.Date,
		r.Symbol,
		formatInt(r.CEVolume),
		formatInt(r.PEVolume),
		formatInt(r.CEOpenInterest),
		formatInt(r.PEOpenInterest),
		formatInt(r.CEOIChange),
		formatInt(r.PEOIChange),
		formatFloat(r.CETurnover),
		formatFloat(r.PETurnover),
		formatInt(r.CEContracts),
		formatInt(r.PEContracts),
		formatRatio(r.PCROpenInterest),
		formatRatio(r.PCRVolume),
	}
}

// RecordsToRows converts records in order.
func RecordsToRows(records []domain.MarketRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, RecordToRow(r))
	}
	return rows
}

// SummaryExporter lays out the bhavcopy output tree:
//
//	raw/options_YYYYMMDD.csv
//	summaries/summary_YYYYMMDD.csv
//	combined_summary.csv
type SummaryExporter struct {
	csvWriter *CSVWriter
}

// NewSummaryExporter writes below outputDir.
func NewSummaryExporter(csvWriter *CSVWriter) *SummaryExporter {
	return &SummaryExporter{csvWriter: csvWriter}
}

func stamp(date time.Time) string {
	return date.Format("20060102")
}

// ExportRaw writes the filtered option contracts for one day as received.
func (e *SummaryExporter) ExportRaw(date time.Time, header []string, rows [][]string) (string, error) {
	name := filepath.Join(config.RawDirName, fmt.Sprintf("options_%s.csv", stamp(date)))
	path, err := e.csvWriter.WriteSimpleCSV(name, header, rows)
	if err != nil {
		return "", fmt.Errorf("failed to write raw options for %s: %w", stamp(date), err)
	}
	return path, nil
}

// ExportDay writes one day's per-symbol summary.
func (e *SummaryExporter) ExportDay(date time.Time, records []domain.MarketRecord) (string, error) {
	name := filepath.Join(config.SummariesDirName, fmt.Sprintf("summary_%s.csv", stamp(date)))
	path, err := e.csvWriter.WriteSimpleCSV(name, RecordHeaders(), RecordsToRows(records))
	if err != nil {
		return "", fmt.Errorf("failed to write summary for %s: %w", stamp(date), err)
	}
	return path, nil
}

// ExportCombined writes every record ordered by date then symbol. The
// input slice is not modified.
func (e *SummaryExporter) ExportCombined(records []domain.MarketRecord) (string, error) {
	sorted := make([]domain.MarketRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date == sorted[j].Date {
			return sorted[i].Symbol < sorted[j].Symbol
		}
		return sorted[i].Date < sorted[j].Date
	})

	path, err := e.csvWriter.WriteSimpleCSV(config.CombinedSummaryCSV, RecordHeaders(), RecordsToRows(sorted))
	if err != nil {
		return "", fmt.Errorf("failed to write combined summary: %w", err)
	}
	return path, nil
}
