package bhavcopy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-02-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("10-02-2025")
	assert.Error(t, err)
}

func TestTradingDays(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		want     []string
	}{
		{"spans a weekend", "2025-02-07", "2025-02-11", []string{"2025-02-07", "2025-02-10", "2025-02-11"}},
		{"single weekday", "2025-02-10", "2025-02-10", []string{"2025-02-10"}},
		{"weekend only", "2025-02-08", "2025-02-09", nil},
		{"reversed range", "2025-02-11", "2025-02-07", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, d := range TradingDays(day(tt.from), day(tt.to)) {
				got = append(got, d.Format(DateLayout))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLastTradingDay(t *testing.T) {
	tests := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2025, 2, 8, 18, 30, 0, 0, time.UTC), "2025-02-07"},
		{time.Date(2025, 2, 9, 9, 0, 0, 0, time.UTC), "2025-02-07"},
		{time.Date(2025, 2, 10, 23, 59, 0, 0, time.UTC), "2025-02-10"},
	}

	for _, tt := range tests {
		t.Run(tt.now.Weekday().String(), func(t *testing.T) {
			assert.Equal(t, tt.want, LastTradingDay(tt.now).Format(DateLayout))
		})
	}
}
