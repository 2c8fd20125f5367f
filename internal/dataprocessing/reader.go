package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"fnopulse/pkg/contracts/domain"
)

// ErrNoHeader is returned when the input has no header row.
var ErrNoHeader = errors.New("summary file has no header row")

const utf8BOM = "\uFEFF"

// ReadStats describes the shape of a parsed summary file.
type ReadStats struct {
	Rows           int      `json:"rows"`
	BlankLines     int      `json:"blank_lines"`
	RaggedRows     int      `json:"ragged_rows"`
	Header         []string `json:"header"`
	MissingColumns []string `json:"missing_columns,omitempty"`
	ExtraColumns   []string `json:"extra_columns,omitempty"`
}

// ReadRows parses a delimited summary file whose first row is the header.
// Whitespace-only lines are skipped. Short rows leave trailing columns
// absent and surplus cells are dropped.
func ReadRows(r io.Reader) ([]domain.RawRow, ReadStats, error) {
	var stats ReadStats

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, stats, ErrNoHeader
	}
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		if i == 0 {
			header[i] = strings.TrimPrefix(header[i], utf8BOM)
		}
		header[i] = strings.TrimSpace(header[i])
	}
	if isBlank(header) {
		return nil, stats, ErrNoHeader
	}
	stats.Header = header
	stats.MissingColumns, stats.ExtraColumns = compareHeader(header)

	var rows []domain.RawRow
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("failed to read row %d: %w", stats.Rows+stats.BlankLines+2, err)
		}
		if isBlank(fields) {
			stats.BlankLines++
			continue
		}
		if len(fields) != len(header) {
			stats.RaggedRows++
		}

		row := make(domain.RawRow, len(header))
		for i, name := range header {
			if i >= len(fields) {
				break
			}
			if name == "" {
				continue
			}
			row[name] = fields[i]
		}
		rows = append(rows, row)
		stats.Rows++
	}

	return rows, stats, nil
}

func isBlank(fields []string) bool {
	return len(fields) == 1 && strings.TrimSpace(fields[0]) == ""
}

func compareHeader(header []string) (missing, extra []string) {
	present := make(map[string]struct{}, len(header))
	for _, h := range header {
		present[h] = struct{}{}
		if _, ok := knownColumns[h]; !ok && h != "" {
			extra = append(extra, h)
		}
	}
	for _, c := range domain.SummaryColumns {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing, extra
}
