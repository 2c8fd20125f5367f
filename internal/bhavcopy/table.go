package bhavcopy

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrEmptyFile is returned when an archive entry has no header row.
var ErrEmptyFile = errors.New("bhavcopy file is empty")

// Table is a parsed bhavcopy CSV. Header names are trimmed; cells are kept
// as received.
type Table struct {
	Header []string
	Rows   [][]string
}

// ParseTable reads a whole CSV file. Rows may be ragged.
func ParseTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	t := &Table{Header: make([]string, len(header))}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		t.Header[i] = strings.TrimSpace(h)
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(t.Rows)+2, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Len is the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// FindColumn returns the index of the first candidate present in the
// header, or -1. Each candidate is tried exactly before case-insensitively.
func (t *Table) FindColumn(candidates ...string) int {
	for _, c := range candidates {
		for i, h := range t.Header {
			if h == c {
				return i
			}
		}
		for i, h := range t.Header {
			if strings.EqualFold(h, c) {
				return i
			}
		}
	}
	return -1
}

// Cell returns the trimmed value at col, or "" when the row is short.
func (t *Table) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// Where returns a table holding the rows keep accepts. The header is shared.
func (t *Table) Where(keep func(row []string) bool) *Table {
	out := &Table{Header: t.Header, Rows: make([][]string, 0, len(t.Rows))}
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}
