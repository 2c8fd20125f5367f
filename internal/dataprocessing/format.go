package dataprocessing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Placeholder is rendered for values that cannot be shown.
const Placeholder = "-"

const (
	crore = 1e7
	lakh  = 1e5
)

// ErrMalformedDate is returned for dates that are not YYYY-MM-DD.
var ErrMalformedDate = errors.New("malformed date")

var indianPrinter = message.NewPrinter(language.MustParse("en-IN"))

func fixed(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

func invalid(n float64) bool {
	return math.IsNaN(n) || math.IsInf(n, 0)
}

// GroupIndian renders n with Indian digit grouping and up to three decimals.
func GroupIndian(n float64) string {
	return indianPrinter.Sprintf("%v", number.Decimal(n, number.MaxFractionDigits(3)))
}

func magnitude(n float64) string {
	switch abs := math.Abs(n); {
	case abs >= crore:
		return fixed(n/crore, 2) + " Cr"
	case abs >= lakh:
		return fixed(n/lakh, 1) + " L"
	default:
		return GroupIndian(n)
	}
}

// FormatMagnitude abbreviates large counts: crores with two decimals,
// lakhs with one, smaller values digit-grouped.
func FormatMagnitude(n float64) string {
	if invalid(n) {
		return Placeholder
	}
	return magnitude(n)
}

// FormatChange is FormatMagnitude with a leading "+" for positive values.
func FormatChange(n float64) string {
	if invalid(n) {
		return Placeholder
	}
	if n > 0 {
		return "+" + magnitude(n)
	}
	return magnitude(n)
}

// FormatCrore renders a rupee amount in crores, switching to thousands of
// crores from 1000 Cr upwards.
func FormatCrore(n float64) string {
	if invalid(n) {
		return Placeholder
	}
	val := n / crore
	if math.Abs(val) >= 1000 {
		return "₹" + fixed(val/1000, 1) + "K Cr"
	}
	return "₹" + fixed(val, 1) + " Cr"
}

// FormatRatio renders a ratio with two decimals.
func FormatRatio(pcr *float64) string {
	if pcr == nil || invalid(*pcr) {
		return Placeholder
	}
	return fixed(*pcr, 2)
}

// ChangePercent is the change from prev to curr as a percentage of |prev|,
// rounded to one decimal. It is nil when either side is zero.
func ChangePercent(curr, prev float64) *float64 {
	if curr == 0 || prev == 0 || invalid(curr) || invalid(prev) {
		return nil
	}
	pct := (curr - prev) / math.Abs(prev) * 100
	rounded, err := strconv.ParseFloat(fixed(pct, 1), 64)
	if err != nil {
		return nil
	}
	return &rounded
}

// FormatPercentChange renders a ChangePercent result as "+12.5% vs prev".
// A nil change renders as "".
func FormatPercentChange(pct *float64) string {
	if pct == nil {
		return ""
	}
	prefix := ""
	if *pct > 0 {
		prefix = "+"
	}
	return prefix + fixed(*pct, 1) + "% vs prev"
}

// FormatDateShort renders YYYY-MM-DD as "<day> <Mon>", e.g. "7 Mar".
func FormatDateShort(d string) (string, error) {
	t, err := time.Parse(time.DateOnly, d)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedDate, d)
	}
	return fmt.Sprintf("%d %s", t.Day(), t.Format("Jan")), nil
}
