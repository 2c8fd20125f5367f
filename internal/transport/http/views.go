package http

import (
	"fmt"

	"fnopulse/internal/dataprocessing"
	"fnopulse/pkg/contracts/domain"
)

// Market tones of the headline put-call ratio.
const (
	ToneBearish = "bearish"
	ToneNeutral = "neutral"
	ToneBullish = "bullish"
	ToneUnknown = ""
)

// MarketTone bands the market-wide ratio for the summary banner. The bands
// differ from the per-symbol classifier.
func MarketTone(pcr *float64) string {
	switch {
	case pcr == nil:
		return ToneUnknown
	case *pcr > 1:
		return ToneBearish
	case *pcr > 0.7:
		return ToneNeutral
	default:
		return ToneBullish
	}
}

// SummaryFormatted holds display strings for the summary banner.
type SummaryFormatted struct {
	DateLabel       string `json:"date_label"`
	MarketPCR       string `json:"market_pcr"`
	MarketTone      string `json:"market_tone"`
	TotalCEVolume   string `json:"total_ce_volume"`
	TotalPEVolume   string `json:"total_pe_volume"`
	TotalCETurnover string `json:"total_ce_turnover"`
	TotalPETurnover string `json:"total_pe_turnover"`
}

// SummaryView is the summary banner payload.
type SummaryView struct {
	*domain.DerivedSnapshot
	Formatted SummaryFormatted `json:"formatted"`
}

func dateLabel(date string) string {
	if date == "" {
		return dataprocessing.Placeholder
	}
	label, err := dataprocessing.FormatDateShort(date)
	if err != nil {
		return date
	}
	return label
}

// NewSummaryView formats s for display.
func NewSummaryView(s *domain.DerivedSnapshot) SummaryView {
	f := s
	if f == nil {
		f = &domain.DerivedSnapshot{}
	}
	return SummaryView{
		DerivedSnapshot: s,
		Formatted: SummaryFormatted{
			DateLabel:       dateLabel(f.Date),
			MarketPCR:       dataprocessing.FormatRatio(f.MarketPCR),
			MarketTone:      MarketTone(f.MarketPCR),
			TotalCEVolume:   dataprocessing.FormatMagnitude(float64(f.TotalCEVolume)),
			TotalPEVolume:   dataprocessing.FormatMagnitude(float64(f.TotalPEVolume)),
			TotalCETurnover: dataprocessing.FormatCrore(f.TotalCETurnover),
			TotalPETurnover: dataprocessing.FormatCrore(f.TotalPETurnover),
		},
	}
}

// SidePair is one CE/PE column group of the table.
type SidePair struct {
	CE string `json:"ce"`
	PE string `json:"pe"`
}

// RatioPair is the PCR column group of the table.
type RatioPair struct {
	OI     string `json:"oi"`
	Volume string `json:"volume"`
}

// TableCells are the formatted cells of one table row.
type TableCells struct {
	Volume       SidePair  `json:"volume"`
	OpenInterest SidePair  `json:"open_interest"`
	OIChange     SidePair  `json:"oi_change"`
	Turnover     SidePair  `json:"turnover"`
	PCR          RatioPair `json:"pcr"`
}

// TableRow is one ranked row of the dashboard table.
type TableRow struct {
	Rank      int                     `json:"rank"`
	Record    domain.MarketRecord     `json:"record"`
	Cells     TableCells              `json:"cells"`
	Sentiment domain.CompactSentiment `json:"sentiment"`
	PCRClass  domain.PCRClass         `json:"pcr_class"`
}

// TableView is a sorted and filtered snapshot table.
type TableView struct {
	Date      string     `json:"date"`
	SortKey   string     `json:"sort"`
	Direction string     `json:"dir"`
	Search    string     `json:"q,omitempty"`
	Count     int        `json:"count"`
	Rows      []TableRow `json:"rows"`
}

// NewTableRow formats r at position rank (1-based).
func NewTableRow(rank int, r domain.MarketRecord) TableRow {
	return TableRow{
		Rank:   rank,
		Record: r,
		Cells: TableCells{
			Volume: SidePair{
				CE: dataprocessing.FormatMagnitude(float64(r.CEVolume)),
				PE: dataprocessing.FormatMagnitude(float64(r.PEVolume)),
			},
			OpenInterest: SidePair{
				CE: dataprocessing.FormatMagnitude(float64(r.CEOpenInterest)),
				PE: dataprocessing.FormatMagnitude(float64(r.PEOpenInterest)),
			},
			OIChange: SidePair{
				CE: dataprocessing.FormatChange(float64(r.CEOIChange)),
				PE: dataprocessing.FormatChange(float64(r.PEOIChange)),
			},
			Turnover: SidePair{
				CE: dataprocessing.FormatCrore(r.CETurnover),
				PE: dataprocessing.FormatCrore(r.PETurnover),
			},
			PCR: RatioPair{
				OI:     dataprocessing.FormatRatio(r.PCROpenInterest),
				Volume: dataprocessing.FormatRatio(r.PCRVolume),
			},
		},
		Sentiment: dataprocessing.CompactSentimentOf(r.PCROpenInterest),
		PCRClass:  dataprocessing.PCRClassOf(r.PCROpenInterest),
	}
}

// NewTableView ranks and formats rows already in display order.
func NewTableView(snap domain.Snapshot, q dataprocessing.TableQuery) TableView {
	rows := make([]TableRow, 0, len(snap.Records))
	for i, r := range snap.Records {
		rows = append(rows, NewTableRow(i+1, r))
	}
	return TableView{
		Date:      snap.Date,
		SortKey:   q.SortKey,
		Direction: q.Direction,
		Search:    q.Search,
		Count:     len(rows),
		Rows:      rows,
	}
}

// StatCard is one headline figure of the symbol view.
type StatCard struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Sub   string `json:"sub,omitempty"`
}

// DetailView is the per-symbol payload.
type DetailView struct {
	*dataprocessing.SymbolDetail
	Cards          []StatCard `json:"cards"`
	SentimentCard  StatCard   `json:"sentiment_card"`
	ActiveDateText string     `json:"active_date_label"`
}

func magnitudeOf(r *domain.MarketRecord, f func(domain.MarketRecord) int64) string {
	if r == nil {
		return dataprocessing.Placeholder
	}
	return dataprocessing.FormatMagnitude(float64(f(*r)))
}

func croreOf(r *domain.MarketRecord, f func(domain.MarketRecord) float64) string {
	if r == nil {
		return dataprocessing.Placeholder
	}
	return dataprocessing.FormatCrore(f(*r))
}

// NewDetailView builds the stat cards for d.
func NewDetailView(d *dataprocessing.SymbolDetail) DetailView {
	latest := d.Latest
	cards := []StatCard{
		{
			Label: "CE Volume",
			Value: magnitudeOf(latest, func(r domain.MarketRecord) int64 { return r.CEVolume }),
			Sub:   dataprocessing.FormatPercentChange(d.CEVolumeChangePct),
		},
		{
			Label: "PE Volume",
			Value: magnitudeOf(latest, func(r domain.MarketRecord) int64 { return r.PEVolume }),
		},
		{
			Label: "CE OI",
			Value: magnitudeOf(latest, func(r domain.MarketRecord) int64 { return r.CEOpenInterest }),
			Sub:   dataprocessing.FormatPercentChange(d.CEOIChangePct),
		},
		{
			Label: "PE OI",
			Value: magnitudeOf(latest, func(r domain.MarketRecord) int64 { return r.PEOpenInterest }),
		},
		{
			Label: "CE Turnover",
			Value: croreOf(latest, func(r domain.MarketRecord) float64 { return r.CETurnover }),
		},
		{
			Label: "PE Turnover",
			Value: croreOf(latest, func(r domain.MarketRecord) float64 { return r.PETurnover }),
		},
	}

	var latestPCR *float64
	if latest != nil {
		latestPCR = latest.PCROpenInterest
	}
	sentiment := StatCard{
		Label: "Sentiment",
		Value: string(d.Sentiment.Label),
		Sub: fmt.Sprintf("PCR %s avg / %s latest",
			dataprocessing.FormatRatio(d.AveragePCR), dataprocessing.FormatRatio(latestPCR)),
	}

	return DetailView{
		SymbolDetail:   d,
		Cards:          cards,
		SentimentCard:  sentiment,
		ActiveDateText: dateLabel(d.ActiveDate),
	}
}
