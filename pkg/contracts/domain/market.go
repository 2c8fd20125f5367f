package domain

// Column names recognized in the daily options summary CSV.
// Matching is exact and case-sensitive.
const (
	ColDate        = "Date"
	ColSymbol      = "Symbol"
	ColCEVolume    = "CE_Volume"
	ColPEVolume    = "PE_Volume"
	ColCEOI        = "CE_OI"
	ColPEOI        = "PE_OI"
	ColCEOIChange  = "CE_OI_Change"
	ColPEOIChange  = "PE_OI_Change"
	ColCETurnover  = "CE_Turnover"
	ColPETurnover  = "PE_Turnover"
	ColCEContracts = "CE_Contracts"
	ColPEContracts = "PE_Contracts"
	ColPCROI       = "PCR_OI"
	ColPCRVolume   = "PCR_Volume"
)

// SummaryColumns is the canonical column order of a summary file.
var SummaryColumns = []string{
	ColDate, ColSymbol,
	ColCEVolume, ColPEVolume,
	ColCEOI, ColPEOI,
	ColCEOIChange, ColPEOIChange,
	ColCETurnover, ColPETurnover,
	ColCEContracts, ColPEContracts,
	ColPCROI, ColPCRVolume,
}

// RawRow is one untyped row keyed by header name.
type RawRow map[string]string

// MarketRecord is the options activity of one symbol on one trading date.
//
// Every numeric field is populated after normalization; only the two
// put-call ratios may be nil, and nil means "unknown", never zero.
// Records are treated as immutable once built.
type MarketRecord struct {
	// Date is YYYY-MM-DD; lexicographic order equals chronological order.
	Date   string `json:"date" csv:"Date"`
	Symbol string `json:"symbol" csv:"Symbol"`

	CEVolume       int64 `json:"ce_volume" csv:"CE_Volume"`
	PEVolume       int64 `json:"pe_volume" csv:"PE_Volume"`
	CEOpenInterest int64 `json:"ce_oi" csv:"CE_OI"`
	PEOpenInterest int64 `json:"pe_oi" csv:"PE_OI"`
	CEOIChange     int64 `json:"ce_oi_change" csv:"CE_OI_Change"`
	PEOIChange     int64 `json:"pe_oi_change" csv:"PE_OI_Change"`

	// Turnover is in rupees.
	CETurnover float64 `json:"ce_turnover" csv:"CE_Turnover"`
	PETurnover float64 `json:"pe_turnover" csv:"PE_Turnover"`

	CEContracts int64 `json:"ce_contracts" csv:"CE_Contracts"`
	PEContracts int64 `json:"pe_contracts" csv:"PE_Contracts"`

	PCROpenInterest *float64 `json:"pcr_oi" csv:"PCR_OI"`
	PCRVolume       *float64 `json:"pcr_volume" csv:"PCR_Volume"`

	// Extra holds source columns outside the typed model, untouched.
	Extra map[string]string `json:"extra,omitempty" csv:"-"`
}

// Snapshot is every record sharing one date.
type Snapshot struct {
	Date    string         `json:"date"`
	Records []MarketRecord `json:"records"`
}

// DerivedSnapshot holds the cross-sectional aggregates of one snapshot.
//
// BullishCount+NeutralCount+BearishCount always equals Total. Records with
// an unknown PCR-OI land in NeutralCount.
type DerivedSnapshot struct {
	Date         string `json:"date"`
	Total        int    `json:"total"`
	BullishCount int    `json:"bullish_count"`
	NeutralCount int    `json:"neutral_count"`
	BearishCount int    `json:"bearish_count"`

	// MarketPCR is total PE volume over total CE volume; nil when CE volume is zero.
	MarketPCR *float64 `json:"market_pcr"`

	TotalCEVolume   int64   `json:"total_ce_volume"`
	TotalPEVolume   int64   `json:"total_pe_volume"`
	TotalCETurnover float64 `json:"total_ce_turnover"`
	TotalPETurnover float64 `json:"total_pe_turnover"`

	// TopActive is at most five records ranked by CE volume, ties in input order.
	TopActive []MarketRecord `json:"top_active"`
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	return &v
}
