package dataprocessing

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fnopulse/pkg/contracts/domain"
)

func TestNormalizer_Normalize(t *testing.T) {
	tests := []struct {
		name  string
		row   domain.RawRow
		check func(t *testing.T, rec domain.MarketRecord)
	}{
		{
			name: "partial row with empty cells",
			row: domain.RawRow{
				"Date": "2024-03-07", "Symbol": "TCS",
				"CE_Volume": "1000", "PE_Volume": "800",
				"CE_OI": "", "PE_OI": "500",
				"PCR_OI": "0.8", "PCR_Volume": "",
			},
			check: func(t *testing.T, rec domain.MarketRecord) {
				assert.Equal(t, "2024-03-07", rec.Date)
				assert.Equal(t, "TCS", rec.Symbol)
				assert.Equal(t, int64(1000), rec.CEVolume)
				assert.Equal(t, int64(800), rec.PEVolume)
				assert.Equal(t, int64(0), rec.CEOpenInterest)
				assert.Equal(t, int64(500), rec.PEOpenInterest)
				require.NotNil(t, rec.PCROpenInterest)
				assert.InDelta(t, 0.8, *rec.PCROpenInterest, 1e-9)
				assert.Nil(t, rec.PCRVolume)
			},
		},
		{
			name: "non numeric counts become zero",
			row: domain.RawRow{
				"Date": "2024-03-07", "Symbol": "INFY",
				"CE_Volume": "abc", "PE_Volume": "NaN", "CE_Turnover": "1e400",
				"CE_OI_Change": "-250",
			},
			check: func(t *testing.T, rec domain.MarketRecord) {
				assert.Equal(t, int64(0), rec.CEVolume)
				assert.Equal(t, int64(0), rec.PEVolume)
				assert.Equal(t, float64(0), rec.CETurnover)
				assert.Equal(t, int64(-250), rec.CEOIChange)
			},
		},
		{
			name: "zero ratio stays distinct from unknown",
			row:  domain.RawRow{"Symbol": "SBIN", "PCR_OI": "0", "PCR_Volume": "  "},
			check: func(t *testing.T, rec domain.MarketRecord) {
				require.NotNil(t, rec.PCROpenInterest)
				assert.Equal(t, 0.0, *rec.PCROpenInterest)
				assert.Nil(t, rec.PCRVolume)
			},
		},
		{
			name: "malformed ratio fails closed",
			row:  domain.RawRow{"Symbol": "SBIN", "PCR_OI": "1.2.3", "PCR_Volume": "inf"},
			check: func(t *testing.T, rec domain.MarketRecord) {
				assert.Nil(t, rec.PCROpenInterest)
				assert.Nil(t, rec.PCRVolume)
			},
		},
		{
			name: "whitespace and decimals in counts",
			row: domain.RawRow{
				"CE_Volume": " 1200 ", "PE_Contracts": "12.9", "PE_Turnover": "1234.56",
			},
			check: func(t *testing.T, rec domain.MarketRecord) {
				assert.Equal(t, int64(1200), rec.CEVolume)
				assert.Equal(t, int64(12), rec.PEContracts)
				assert.InDelta(t, 1234.56, rec.PETurnover, 1e-9)
			},
		},
		{
			name: "extra columns pass through",
			row:  domain.RawRow{"Symbol": "TCS", "Expiry": "28-Mar-2024", "Note": ""},
			check: func(t *testing.T, rec domain.MarketRecord) {
				assert.Equal(t, map[string]string{"Expiry": "28-Mar-2024", "Note": ""}, rec.Extra)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNormalizer(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
			tt.check(t, n.Normalize(tt.row))
		})
	}
}

func TestNormalizer_Idempotent(t *testing.T) {
	row := domain.RawRow{
		"Date": "2024-03-07", "Symbol": "TCS", "CE_Volume": "x",
		"PCR_OI": "1.1", "Extra": "y",
	}
	n := NewNormalizer(nil)

	first := n.Normalize(row)
	second := n.Normalize(row)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, n.Stats().Rows)
}

func TestNormalizer_Stats(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	n := NewNormalizer(logger)

	n.NormalizeAll([]domain.RawRow{
		{"Symbol": "A", "CE_Volume": "oops", "PCR_OI": "bad", "Series": "X"},
		{"Symbol": "B", "CE_Volume": "10", "PCR_OI": "0.9"},
	})

	stats := n.Stats()
	assert.Equal(t, 2, stats.Rows)
	assert.Equal(t, 1, stats.Coerced[domain.ColCEVolume])
	assert.Equal(t, 1, stats.RatioRejected[domain.ColPCROI])
	assert.Equal(t, 1, stats.ExtraColumns["Series"])
	assert.Equal(t, 2, stats.Missing[domain.ColPEVolume])
	assert.Equal(t, 2, stats.TotalCoerced())
	assert.Contains(t, buf.String(), "unparsable ratio treated as unknown")

	// Returned stats are a copy.
	stats.Coerced[domain.ColCEVolume] = 99
	assert.Equal(t, 1, n.Stats().Coerced[domain.ColCEVolume])
}
