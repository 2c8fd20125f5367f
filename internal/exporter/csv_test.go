package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fnopulse/internal/shared/testutil"
)

func newTestWriter(t *testing.T) (*CSVWriter, string) {
	t.Helper()
	dir := t.TempDir()
	logger, _ := testutil.NewTestLogger(t)
	return NewCSVWriter(dir, logger), dir
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	tests := []struct {
		name    string
		options WriteOptions
		wantBOM bool
	}{
		{
			name:    "plain",
			options: WriteOptions{Headers: []string{"A", "B"}, Records: [][]string{{"1", "2"}}},
		},
		{
			name:    "with BOM",
			options: WriteOptions{Headers: []string{"A", "B"}, Records: [][]string{{"1", "2"}}, BOMPrefix: true},
			wantBOM: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, dir := newTestWriter(t)

			path, err := w.WriteCSV(filepath.Join("nested", "out.csv"), tt.options)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, "nested", "out.csv"), path)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBOM, bytes.HasPrefix(data, utf8BOM))
			assert.Equal(t, [][]string{{"A", "B"}, {"1", "2"}}, readCSV(t, path))
		})
	}
}

func TestCSVWriter_Append(t *testing.T) {
	w, _ := newTestWriter(t)

	path, err := w.WriteSimpleCSV("summary.csv", []string{"Date", "Symbol"}, [][]string{{"2024-01-01", "NIFTY"}})
	require.NoError(t, err)

	_, err = w.AppendToCSV("summary.csv", [][]string{{"2024-01-02", "NIFTY"}})
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"2024-01-02", "NIFTY"}, rows[2])
}

func TestCSVWriter_AbsolutePath(t *testing.T) {
	w, _ := newTestWriter(t)
	abs := filepath.Join(t.TempDir(), "abs.csv")

	path, err := w.WriteSimpleCSV(abs, []string{"A"}, nil)
	require.NoError(t, err)
	assert.Equal(t, abs, path)
}

func TestCSVWriter_Errors(t *testing.T) {
	w, dir := newTestWriter(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blocker"), nil, 0644))

	_, err := w.WriteSimpleCSV(filepath.Join("blocker", "x.csv"), []string{"A"}, nil)
	assert.Error(t, err)

	_, err = w.CreateStreamWriter(filepath.Join("blocker", "y.csv"), []string{"A"})
	assert.Error(t, err)
}

func TestStreamWriter(t *testing.T) {
	t.Run("to buffer", func(t *testing.T) {
		var buf bytes.Buffer
		stream, err := NewStreamWriter(&buf, []string{"Symbol", "PCR_OI"}, false)
		require.NoError(t, err)
		require.NoError(t, stream.WriteRecord([]string{"NIFTY", "1.2"}))
		require.NoError(t, stream.WriteRecord([]string{"TCS, LTD", ""}))
		require.NoError(t, stream.Close())

		assert.Equal(t, "Symbol,PCR_OI\nNIFTY,1.2\n\"TCS, LTD\",\n", buf.String())
	})

	t.Run("to file", func(t *testing.T) {
		w, dir := newTestWriter(t)
		stream, err := w.CreateStreamWriter("stream.csv", []string{"A"})
		require.NoError(t, err)
		for i := 0; i < 100; i++ {
			require.NoError(t, stream.WriteRecord([]string{strings.Repeat("x", i%5)}))
		}
		require.NoError(t, stream.Close())

		data, err := os.ReadFile(filepath.Join(dir, "stream.csv"))
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, utf8BOM))
		assert.Len(t, readCSV(t, filepath.Join(dir, "stream.csv")), 101)
	})
}
