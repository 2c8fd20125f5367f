package dataprocessing

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"fnopulse/pkg/contracts/domain"
)

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// DefaultSortKey is the table's initial ordering column.
const DefaultSortKey = domain.ColCEVolume

// TableQuery selects and orders the rows of a snapshot table.
type TableQuery struct {
	SortKey   string
	Direction string
	Search    string
}

type sortValue func(domain.MarketRecord) float64

func ratioValue(p *float64) float64 {
	if p == nil {
		return math.Inf(-1)
	}
	return *p
}

var numericSortKeys = map[string]sortValue{
	domain.ColCEVolume:    func(r domain.MarketRecord) float64 { return float64(r.CEVolume) },
	domain.ColPEVolume:    func(r domain.MarketRecord) float64 { return float64(r.PEVolume) },
	domain.ColCEOI:        func(r domain.MarketRecord) float64 { return float64(r.CEOpenInterest) },
	domain.ColPEOI:        func(r domain.MarketRecord) float64 { return float64(r.PEOpenInterest) },
	domain.ColCEOIChange:  func(r domain.MarketRecord) float64 { return float64(r.CEOIChange) },
	domain.ColPEOIChange:  func(r domain.MarketRecord) float64 { return float64(r.PEOIChange) },
	domain.ColCETurnover:  func(r domain.MarketRecord) float64 { return r.CETurnover },
	domain.ColPETurnover:  func(r domain.MarketRecord) float64 { return r.PETurnover },
	domain.ColCEContracts: func(r domain.MarketRecord) float64 { return float64(r.CEContracts) },
	domain.ColPEContracts: func(r domain.MarketRecord) float64 { return float64(r.PEContracts) },
	domain.ColPCROI:       func(r domain.MarketRecord) float64 { return ratioValue(r.PCROpenInterest) },
	domain.ColPCRVolume:   func(r domain.MarketRecord) float64 { return ratioValue(r.PCRVolume) },
}

// SortKeys lists every column the table can be ordered by.
func SortKeys() []string {
	keys := make([]string, 0, len(numericSortKeys)+1)
	keys = append(keys, domain.ColSymbol)
	for k := range numericSortKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys[1:])
	return keys
}

// IsSortKey reports whether key names a sortable column.
func IsSortKey(key string) bool {
	if key == domain.ColSymbol {
		return true
	}
	_, ok := numericSortKeys[key]
	return ok
}

// Table filters records by a case-insensitive symbol substring and orders
// them by the requested column. Unknown ratios sort below every number.
// The input slice is not modified.
func Table(records []domain.MarketRecord, q TableQuery) ([]domain.MarketRecord, error) {
	key := q.SortKey
	if key == "" {
		key = DefaultSortKey
	}
	dir := strings.ToLower(q.Direction)
	if dir == "" {
		dir = SortDesc
	}
	if dir != SortAsc && dir != SortDesc {
		return nil, fmt.Errorf("unknown sort direction %q", q.Direction)
	}
	if !IsSortKey(key) {
		return nil, fmt.Errorf("unknown sort key %q", key)
	}

	out := make([]domain.MarketRecord, 0, len(records))
	needle := strings.ToUpper(strings.TrimSpace(q.Search))
	for _, r := range records {
		if needle == "" || strings.Contains(strings.ToUpper(r.Symbol), needle) {
			out = append(out, r)
		}
	}

	asc := dir == SortAsc
	if key == domain.ColSymbol {
		sort.SliceStable(out, func(i, j int) bool {
			if asc {
				return out[i].Symbol < out[j].Symbol
			}
			return out[i].Symbol > out[j].Symbol
		})
		return out, nil
	}

	value := numericSortKeys[key]
	sort.SliceStable(out, func(i, j int) bool {
		a, b := value(out[i]), value(out[j])
		if asc {
			return a < b
		}
		return a > b
	})
	return out, nil
}
