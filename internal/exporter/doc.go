// Package exporter writes options summaries to CSV and Excel.
//
// CSVWriter resolves relative paths against a base directory and supports
// append mode and an optional UTF-8 BOM. StreamWriter wraps any io.Writer,
// which lets HTTP handlers stream a download without a temporary file.
//
// SummaryExporter produces the bhavcopy output tree:
//
//	raw/options_20240102.csv
//	summaries/summary_20240102.csv
//	combined_summary.csv
//
// RecordToRow and RecordHeaders define the summary file layout; unknown
// put-call ratios are written as empty cells so the file reads back as nil.
//
// SnapshotXLSX renders the dashboard table for one date as a workbook.
package exporter
