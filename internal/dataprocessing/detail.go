package dataprocessing

import (
	"fnopulse/pkg/contracts/domain"
)

// ChartPoint is one date of a symbol's trend series. Turnover is in crores.
type ChartPoint struct {
	Date         string   `json:"date"`
	Label        string   `json:"label"`
	CEOI         int64    `json:"ce_oi"`
	PEOI         int64    `json:"pe_oi"`
	CEVolume     int64    `json:"ce_volume"`
	PEVolume     int64    `json:"pe_volume"`
	CETurnoverCr float64  `json:"ce_turnover_cr"`
	PETurnoverCr float64  `json:"pe_turnover_cr"`
	PCROI        *float64 `json:"pcr_oi"`
	PCRVolume    *float64 `json:"pcr_volume"`
}

// SymbolDetail is everything the per-symbol view shows.
type SymbolDetail struct {
	Symbol     string `json:"symbol"`
	ActiveDate string `json:"active_date"`
	// HistoryDays is zero when the symbol has never traded; every other
	// field is then empty.
	HistoryDays int `json:"history_days"`

	Latest   *domain.MarketRecord `json:"latest,omitempty"`
	Previous *domain.MarketRecord `json:"previous,omitempty"`

	AveragePCR        *float64         `json:"average_pcr"`
	Sentiment         domain.Sentiment `json:"sentiment"`
	CEVolumeChangePct *float64         `json:"ce_volume_change_pct"`
	CEOIChangePct     *float64         `json:"ce_oi_change_pct"`

	Series []ChartPoint `json:"series"`
}

// AveragePCR is the mean PCR-OI over records that carry one, or nil.
func AveragePCR(history []domain.MarketRecord) *float64 {
	var sum float64
	var n int
	for _, r := range history {
		if r.PCROpenInterest != nil {
			sum += *r.PCROpenInterest
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return domain.Float64(sum / float64(n))
}

// BuildDetail derives the per-symbol view from a chronological history.
//
// Latest is the record on activeDate when there is one, otherwise the last
// history entry. Day-over-day changes compare Latest against the second to
// last history entry.
func BuildDetail(symbol, activeDate string, history []domain.MarketRecord) *SymbolDetail {
	d := &SymbolDetail{
		Symbol:      symbol,
		ActiveDate:  activeDate,
		HistoryDays: len(history),
		Sentiment:   ClassifySentiment(nil),
		Series:      make([]ChartPoint, 0, len(history)),
	}
	if len(history) == 0 {
		return d
	}

	latest := history[len(history)-1]
	for _, r := range history {
		if r.Date == activeDate {
			latest = r
			break
		}
	}
	d.Latest = &latest

	if len(history) >= 2 {
		prev := history[len(history)-2]
		d.Previous = &prev
		d.CEVolumeChangePct = ChangePercent(float64(latest.CEVolume), float64(prev.CEVolume))
		d.CEOIChangePct = ChangePercent(float64(latest.CEOpenInterest), float64(prev.CEOpenInterest))
	}

	d.AveragePCR = AveragePCR(history)
	d.Sentiment = ClassifySentiment(d.AveragePCR)

	for _, r := range history {
		label, err := FormatDateShort(r.Date)
		if err != nil {
			label = r.Date
		}
		d.Series = append(d.Series, ChartPoint{
			Date:         r.Date,
			Label:        label,
			CEOI:         r.CEOpenInterest,
			PEOI:         r.PEOpenInterest,
			CEVolume:     r.CEVolume,
			PEVolume:     r.PEVolume,
			CETurnoverCr: r.CETurnover / crore,
			PETurnoverCr: r.PETurnover / crore,
			PCROI:        r.PCROpenInterest,
			PCRVolume:    r.PCRVolume,
		})
	}

	return d
}
