package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
}

func TestNewDiscovery(t *testing.T) {
	basePath := "/test/base"
	discovery := NewDiscovery(basePath)

	assert.NotNil(t, discovery)
	assert.Equal(t, basePath, discovery.basePath)
}

func TestParseSummaryName(t *testing.T) {
	tests := []struct {
		name   string
		want   time.Time
		wantOK bool
	}{
		{name: "summary_20240710.csv", want: date("2024-07-10"), wantOK: true},
		{name: "summary_20240710.CSV", want: date("2024-07-10"), wantOK: true},
		{name: "summary_2024071.csv"},
		{name: "summary_20241340.csv"},
		{name: "summary_.csv"},
		{name: "options_20240710.csv"},
		{name: "combined_summary.csv"},
		{name: "summary_20240710.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseSummaryName(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindCSVFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, filepath.Join(tmpDir, "out"), map[string]string{
		"a.csv":    "x",
		"b.CSV":    "x",
		"c.xlsx":   "x",
		"notes.md": "x",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "out", "nested.csv"), 0755))

	files, err := NewDiscovery(tmpDir).FindCSVFiles("out")
	require.NoError(t, err)

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
		assert.Equal(t, filepath.Join(tmpDir, "out", f.Name), f.Path)
	}
	assert.ElementsMatch(t, []string{"a.csv", "b.CSV"}, names)
}

func TestFindCSVFiles_MissingDirectory(t *testing.T) {
	_, err := NewDiscovery(t.TempDir()).FindCSVFiles("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read directory")
}

func TestFindSummaries(t *testing.T) {
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, "summaries")
	writeFiles(t, dir, map[string]string{
		"summary_20240712.csv": "Date,Symbol\n",
		"summary_20240710.csv": "Date,Symbol\n",
		"summary_20240711.csv": "",
		"combined_summary.csv": "Date,Symbol\n",
		"options_20240710.csv": "Date,Symbol\n",
	})

	tests := []struct {
		name string
		dir  string
	}{
		{name: "relative to base", dir: "summaries"},
		{name: "absolute", dir: dir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summaries, err := NewDiscovery(tmpDir).FindSummaries(tt.dir)
			require.NoError(t, err)
			require.Len(t, summaries, 2)

			assert.Equal(t, "summary_20240710.csv", summaries[0].Name)
			assert.Equal(t, date("2024-07-10"), summaries[0].Date)
			assert.Equal(t, "summary_20240712.csv", summaries[1].Name)
		})
	}
}

func TestFilterSummariesByDateRange(t *testing.T) {
	summaries := []SummaryFile{
		{Date: date("2024-07-08")},
		{Date: date("2024-07-09")},
		{Date: date("2024-07-10")},
		{Date: date("2024-07-11")},
	}

	tests := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{name: "open range", want: 4},
		{name: "inclusive bounds", start: date("2024-07-09"), end: date("2024-07-10"), want: 2},
		{name: "start only", start: date("2024-07-10"), want: 2},
		{name: "end only", end: date("2024-07-08"), want: 1},
		{name: "nothing in range", start: date("2024-08-01"), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, FilterSummariesByDateRange(summaries, tt.start, tt.end), tt.want)
		})
	}
}

func TestGetLatestSummary(t *testing.T) {
	_, ok := GetLatestSummary(nil)
	assert.False(t, ok)

	latest, ok := GetLatestSummary([]SummaryFile{
		{FileInfo: FileInfo{Name: "b"}, Date: date("2024-07-11")},
		{FileInfo: FileInfo{Name: "c"}, Date: date("2024-07-09")},
	})
	require.True(t, ok)
	assert.Equal(t, "b", latest.Name)
}
