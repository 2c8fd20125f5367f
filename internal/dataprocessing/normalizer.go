package dataprocessing

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"fnopulse/pkg/contracts/domain"
)

// countColumns are the required integer columns. Absent or unparsable
// values become zero.
var countColumns = []string{
	domain.ColCEVolume, domain.ColPEVolume,
	domain.ColCEOI, domain.ColPEOI,
	domain.ColCEOIChange, domain.ColPEOIChange,
	domain.ColCEContracts, domain.ColPEContracts,
}

// amountColumns are the required decimal columns.
var amountColumns = []string{domain.ColCETurnover, domain.ColPETurnover}

// ratioColumns are nullable; they are never coerced to zero.
var ratioColumns = []string{domain.ColPCROI, domain.ColPCRVolume}

var knownColumns = func() map[string]struct{} {
	m := make(map[string]struct{}, len(domain.SummaryColumns))
	for _, c := range domain.SummaryColumns {
		m[c] = struct{}{}
	}
	return m
}()

// NormalizeStats counts what the normalizer had to repair.
type NormalizeStats struct {
	Rows int `json:"rows"`
	// Missing counts required numeric cells that were absent or empty.
	Missing map[string]int `json:"missing"`
	// Coerced counts required numeric cells that were present but unparsable.
	Coerced map[string]int `json:"coerced"`
	// RatioRejected counts non-empty ratio cells that failed to parse.
	RatioRejected map[string]int `json:"ratio_rejected"`
	// ExtraColumns counts rows carrying each unrecognized column.
	ExtraColumns map[string]int `json:"extra_columns"`
}

// TotalCoerced returns the number of present-but-invalid cells, ratios included.
func (s NormalizeStats) TotalCoerced() int {
	n := 0
	for _, v := range s.Coerced {
		n += v
	}
	for _, v := range s.RatioRejected {
		n += v
	}
	return n
}

func newNormalizeStats() NormalizeStats {
	return NormalizeStats{
		Missing:       make(map[string]int),
		Coerced:       make(map[string]int),
		RatioRejected: make(map[string]int),
		ExtraColumns:  make(map[string]int),
	}
}

func (s NormalizeStats) clone() NormalizeStats {
	c := newNormalizeStats()
	c.Rows = s.Rows
	for k, v := range s.Missing {
		c.Missing[k] = v
	}
	for k, v := range s.Coerced {
		c.Coerced[k] = v
	}
	for k, v := range s.RatioRejected {
		c.RatioRejected[k] = v
	}
	for k, v := range s.ExtraColumns {
		c.ExtraColumns[k] = v
	}
	return c
}

// Normalizer converts raw rows into typed records. The output for a given
// row never depends on previous calls; only the diagnostic counters carry state.
type Normalizer struct {
	logger *slog.Logger

	mu    sync.Mutex
	stats NormalizeStats
}

// NewNormalizer creates a normalizer with fresh counters.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		logger: logger.With(slog.String("component", "normalizer")),
		stats:  newNormalizeStats(),
	}
}

// Normalize converts one raw row.
func (n *Normalizer) Normalize(row domain.RawRow) domain.MarketRecord {
	rec := domain.MarketRecord{
		Date:   row[domain.ColDate],
		Symbol: row[domain.ColSymbol],
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.stats.Rows++

	counts := make(map[string]int64, len(countColumns))
	for _, col := range countColumns {
		counts[col] = n.countCell(row, col)
	}
	rec.CEVolume = counts[domain.ColCEVolume]
	rec.PEVolume = counts[domain.ColPEVolume]
	rec.CEOpenInterest = counts[domain.ColCEOI]
	rec.PEOpenInterest = counts[domain.ColPEOI]
	rec.CEOIChange = counts[domain.ColCEOIChange]
	rec.PEOIChange = counts[domain.ColPEOIChange]
	rec.CEContracts = counts[domain.ColCEContracts]
	rec.PEContracts = counts[domain.ColPEContracts]

	rec.CETurnover = n.amountCell(row, domain.ColCETurnover)
	rec.PETurnover = n.amountCell(row, domain.ColPETurnover)

	rec.PCROpenInterest = n.ratioCell(row, domain.ColPCROI)
	rec.PCRVolume = n.ratioCell(row, domain.ColPCRVolume)

	for k, v := range row {
		if _, ok := knownColumns[k]; ok {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]string)
		}
		rec.Extra[k] = v
		n.stats.ExtraColumns[k]++
	}

	return rec
}

// NormalizeAll converts rows in order.
func (n *Normalizer) NormalizeAll(rows []domain.RawRow) []domain.MarketRecord {
	out := make([]domain.MarketRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, n.Normalize(row))
	}
	return out
}

// Stats returns a copy of the counters.
func (n *Normalizer) Stats() NormalizeStats {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stats.clone()
}

// countCell must be called with n.mu held.
func (n *Normalizer) countCell(row domain.RawRow, col string) int64 {
	raw := strings.TrimSpace(row[col])
	if raw == "" {
		n.stats.Missing[col]++
		return 0
	}
	f, ok := parseFinite(raw)
	if !ok || f > math.MaxInt64 || f < math.MinInt64 {
		n.stats.Coerced[col]++
		n.logger.Debug("numeric cell coerced to zero",
			slog.String("column", col),
			slog.String("value", raw),
			slog.String("symbol", row[domain.ColSymbol]),
			slog.String("date", row[domain.ColDate]))
		return 0
	}
	return int64(f)
}

// amountCell must be called with n.mu held.
func (n *Normalizer) amountCell(row domain.RawRow, col string) float64 {
	raw := strings.TrimSpace(row[col])
	if raw == "" {
		n.stats.Missing[col]++
		return 0
	}
	f, ok := parseFinite(raw)
	if !ok {
		n.stats.Coerced[col]++
		n.logger.Debug("numeric cell coerced to zero",
			slog.String("column", col),
			slog.String("value", raw),
			slog.String("symbol", row[domain.ColSymbol]),
			slog.String("date", row[domain.ColDate]))
		return 0
	}
	return f
}

// ratioCell must be called with n.mu held.
func (n *Normalizer) ratioCell(row domain.RawRow, col string) *float64 {
	raw := strings.TrimSpace(row[col])
	if raw == "" {
		return nil
	}
	f, ok := parseFinite(raw)
	if !ok {
		n.stats.RatioRejected[col]++
		n.logger.Warn("unparsable ratio treated as unknown",
			slog.String("column", col),
			slog.String("value", raw),
			slog.String("symbol", row[domain.ColSymbol]),
			slog.String("date", row[domain.ColDate]))
		return nil
	}
	return &f
}

func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
