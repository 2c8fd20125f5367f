package dataprocessing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRows(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantRows  int
		wantBlank int
		wantErr   error
		check     func(t *testing.T, stats ReadStats)
	}{
		{
			name:     "header and two rows",
			input:    "Date,Symbol,CE_Volume\n2024-03-07,TCS,1000\n2024-03-07,INFY,900\n",
			wantRows: 2,
		},
		{
			name:      "blank lines are skipped",
			input:     "Date,Symbol\n\n2024-03-07,TCS\n   \n2024-03-07,INFY\n",
			wantRows:  2,
			wantBlank: 1,
		},
		{
			name:     "byte order mark stripped from header",
			input:    "\uFEFFDate,Symbol\n2024-03-07,TCS\n",
			wantRows: 1,
			check: func(t *testing.T, stats ReadStats) {
				assert.Equal(t, "Date", stats.Header[0])
			},
		},
		{
			name:     "ragged rows are counted",
			input:    "Date,Symbol,CE_Volume\n2024-03-07,TCS\n2024-03-07,INFY,1,2\n",
			wantRows: 2,
			check: func(t *testing.T, stats ReadStats) {
				assert.Equal(t, 2, stats.RaggedRows)
			},
		},
		{
			name:     "missing and extra columns reported",
			input:    "Date,Symbol,Series\n2024-03-07,TCS,EQ\n",
			wantRows: 1,
			check: func(t *testing.T, stats ReadStats) {
				assert.Equal(t, []string{"Series"}, stats.ExtraColumns)
				assert.Contains(t, stats.MissingColumns, "PCR_OI")
				assert.NotContains(t, stats.MissingColumns, "Symbol")
			},
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: ErrNoHeader,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, stats, err := ReadRows(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, rows, tt.wantRows)
			assert.Equal(t, tt.wantRows, stats.Rows)
			assert.Equal(t, tt.wantBlank, stats.BlankLines)
			if tt.check != nil {
				tt.check(t, stats)
			}
		})
	}
}

func TestReadRows_ShortRowLeavesColumnsAbsent(t *testing.T) {
	rows, _, err := ReadRows(strings.NewReader("Date,Symbol,PCR_OI\n2024-03-07,TCS\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, ok := rows[0]["PCR_OI"]
	assert.False(t, ok)
	assert.Equal(t, "TCS", rows[0]["Symbol"])
}

func TestReadRows_QuotedFields(t *testing.T) {
	rows, _, err := ReadRows(strings.NewReader("Symbol,Note\nTCS,\"a, b\"\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a, b", rows[0]["Note"])
}
