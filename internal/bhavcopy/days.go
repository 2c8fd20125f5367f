package bhavcopy

import (
	"fmt"
	"time"
)

// DateLayout is the command line and summary date format.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TradingDays lists the weekdays from from to to inclusive. Exchange
// holidays are not known here; they surface as ErrNoData on download.
func TradingDays(from, to time.Time) []time.Time {
	from, to = midnight(from), midnight(to)
	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			days = append(days, d)
		}
	}
	return days
}

// LastTradingDay rolls a weekend date back to the preceding Friday.
func LastTradingDay(now time.Time) time.Time {
	d := midnight(now)
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, -2)
	}
	return d
}
