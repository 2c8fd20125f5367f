package exporter

import (
	"strconv"
)

// formatFloat writes the shortest representation that round-trips.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// formatRatio leaves unknown ratios empty.
func formatRatio(p *float64) string {
	if p == nil {
		return ""
	}
	return formatFloat(*p)
}
