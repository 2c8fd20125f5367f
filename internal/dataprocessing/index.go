package dataprocessing

import (
	"sort"

	"fnopulse/pkg/contracts/domain"
)

// LatestAlias selects the most recent date wherever a date is accepted.
const LatestAlias = "latest"

// Index holds a loaded record set with date and symbol lookups built once
// at construction. It is read-only afterwards and safe for concurrent use.
type Index struct {
	records  []domain.MarketRecord
	byDate   map[string][]int
	bySymbol map[string][]int
	dates    []string
	symbols  []string
}

// NewIndex builds an index over records, keeping their order.
func NewIndex(records []domain.MarketRecord) *Index {
	idx := &Index{
		records:  make([]domain.MarketRecord, len(records)),
		byDate:   make(map[string][]int),
		bySymbol: make(map[string][]int),
	}
	copy(idx.records, records)

	for i, rec := range idx.records {
		if _, ok := idx.byDate[rec.Date]; !ok {
			idx.dates = append(idx.dates, rec.Date)
		}
		idx.byDate[rec.Date] = append(idx.byDate[rec.Date], i)

		if _, ok := idx.bySymbol[rec.Symbol]; !ok {
			idx.symbols = append(idx.symbols, rec.Symbol)
		}
		idx.bySymbol[rec.Symbol] = append(idx.bySymbol[rec.Symbol], i)
	}
	sort.Strings(idx.dates)
	sort.Strings(idx.symbols)

	// History slices are kept in date order; equal dates keep insertion order.
	for _, positions := range idx.bySymbol {
		sort.SliceStable(positions, func(a, b int) bool {
			return idx.records[positions[a]].Date < idx.records[positions[b]].Date
		})
	}

	return idx
}

// Len returns the number of records.
func (x *Index) Len() int {
	return len(x.records)
}

// Dates returns the unique dates in ascending order.
func (x *Index) Dates() []string {
	out := make([]string, len(x.dates))
	copy(out, x.dates)
	return out
}

// Symbols returns the unique symbols in ascending order.
func (x *Index) Symbols() []string {
	out := make([]string, len(x.symbols))
	copy(out, x.symbols)
	return out
}

// LatestDate returns the last date, or false when the index is empty.
func (x *Index) LatestDate() (string, bool) {
	if len(x.dates) == 0 {
		return "", false
	}
	return x.dates[len(x.dates)-1], true
}

// ResolveDate maps "" and "latest" to the latest date and returns any other
// value unchanged. The bool is false only when the latest date was asked
// for and the index is empty.
func (x *Index) ResolveDate(date string) (string, bool) {
	if date == "" || date == LatestAlias {
		return x.LatestDate()
	}
	return date, true
}

// RecordsOn returns the records for date in load order. Unknown dates
// yield an empty slice.
func (x *Index) RecordsOn(date string) []domain.MarketRecord {
	return x.collect(x.byDate[date])
}

// History returns the records for symbol in ascending date order. Unknown
// symbols yield an empty slice.
func (x *Index) History(symbol string) []domain.MarketRecord {
	return x.collect(x.bySymbol[symbol])
}

// Lookup finds the record for symbol on date.
func (x *Index) Lookup(date, symbol string) (domain.MarketRecord, bool) {
	for _, i := range x.byDate[date] {
		if x.records[i].Symbol == symbol {
			return x.records[i], true
		}
	}
	return domain.MarketRecord{}, false
}

func (x *Index) collect(positions []int) []domain.MarketRecord {
	out := make([]domain.MarketRecord, 0, len(positions))
	for _, i := range positions {
		out = append(out, x.records[i])
	}
	return out
}
