package exporter

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"fnopulse/internal/dataprocessing"
	"fnopulse/internal/shared/testutil"
	"fnopulse/pkg/contracts/domain"
)

func sampleRecords() []domain.MarketRecord {
	return []domain.MarketRecord{
		{
			Date: "2024-01-02", Symbol: "RELIANCE",
			CEVolume: 500, PEVolume: 200, CEOpenInterest: 3000, PEOpenInterest: 1500,
			CEOIChange: -50, PEOIChange: 20, CETurnover: 52500000.5, PETurnover: 2e7,
			CEContracts: 5, PEContracts: 2,
			PCROpenInterest: domain.Float64(0.5), PCRVolume: domain.Float64(0.4),
		},
		{
			Date: "2024-01-01", Symbol: "NIFTY",
			CEVolume: 1000, PEVolume: 0, CEOpenInterest: 0, PEOpenInterest: 10,
			CETurnover: 1e7, PETurnover: 0,
			CEContracts: 10, PCRVolume: domain.Float64(0),
		},
	}
}

func TestRecordToRow(t *testing.T) {
	records := sampleRecords()

	assert.Equal(t, domain.SummaryColumns, RecordHeaders())
	assert.Equal(t, []string{
		"2024-01-02", "RELIANCE", "500", "200", "3000", "1500", "-50", "20",
		"52500000.5", "20000000", "5", "2", "0.5", "0.4",
	}, RecordToRow(records[0]))

	row := RecordToRow(records[1])
	assert.Equal(t, "", row[12], "unknown PCR_OI is an empty cell")
	assert.Equal(t, "0", row[13], "zero PCR_Volume is kept")
	assert.Len(t, RecordsToRows(records), 2)
}

func TestRecordHeadersIsACopy(t *testing.T) {
	h := RecordHeaders()
	h[0] = "changed"
	assert.Equal(t, domain.ColDate, domain.SummaryColumns[0])
}

func TestSummaryExporter(t *testing.T) {
	w, dir := newTestWriter(t)
	exp := NewSummaryExporter(w)
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	rawPath, err := exp.ExportRaw(day, []string{"TckrSymb", "OptnTp"}, [][]string{{"NIFTY", "CE"}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "raw", "options_20240102.csv"), rawPath)

	dayPath, err := exp.ExportDay(day, sampleRecords()[:1])
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "summaries", "summary_20240102.csv"), dayPath)

	records := sampleRecords()
	combinedPath, err := exp.ExportCombined(records)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "combined_summary.csv"), combinedPath)
	assert.Equal(t, "RELIANCE", records[0].Symbol, "input order untouched")

	rows := readCSV(t, combinedPath)
	require.Len(t, rows, 3)
	assert.Equal(t, "NIFTY", rows[1][1], "sorted by date first")

	data, err := os.ReadFile(combinedPath)
	require.NoError(t, err)
	assert.False(t, bytes.HasPrefix(data, utf8BOM))
}

// A written summary must read back to the same records through the
// dashboard's own reader and normalizer.
func TestSummaryFileReadsBack(t *testing.T) {
	w, _ := newTestWriter(t)
	exp := NewSummaryExporter(w)

	path, err := exp.ExportCombined(sampleRecords())
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, stats, err := dataprocessing.ReadRows(f)
	require.NoError(t, err)
	assert.Empty(t, stats.MissingColumns)

	logger, _ := testutil.NewTestLogger(t)
	got := dataprocessing.NewNormalizer(logger).NormalizeAll(rows)
	require.Len(t, got, 2)

	want := sampleRecords()
	assert.Equal(t, want[1].Symbol, got[0].Symbol)
	assert.Nil(t, got[0].PCROpenInterest)
	require.NotNil(t, got[0].PCRVolume)
	assert.Equal(t, 0.0, *got[0].PCRVolume)
	assert.Equal(t, want[0].CETurnover, got[1].CETurnover)
	assert.Equal(t, want[0].CEOIChange, got[1].CEOIChange)
}

func TestSnapshotXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SnapshotXLSX(&buf, "2024-01-02", sampleRecords()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	sheet := SnapshotSheetName("2024-01-02")
	assert.Equal(t, []string{sheet}, f.GetSheetList())

	tests := []struct {
		cell string
		want string
	}{
		{"C1", "Volume"},
		{"E1", "Open Interest"},
		{"K1", "PCR"},
		{"A2", "#"},
		{"B2", "Symbol"},
		{"K2", "OI"},
		{"A3", "1"},
		{"B3", "RELIANCE"},
		{"C3", "500"},
		{"M3", string(domain.CompactBullish)},
		{"B4", "NIFTY"},
		{"K4", ""},
		{"M4", ""},
	}
	for _, tt := range tests {
		got, err := f.GetCellValue(sheet, tt.cell)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.cell)
	}

	merged, err := f.GetMergeCells(sheet)
	require.NoError(t, err)
	assert.Len(t, merged, 5)
}

func TestSnapshotXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SnapshotXLSX(&buf, "2024-01-05", nil))
	assert.NotZero(t, buf.Len())
}
