package domain

// SentimentLabel is the detailed sentiment band of a put-call ratio.
type SentimentLabel string

const (
	SentimentUnknown         SentimentLabel = "N/A"
	SentimentStrongBearish   SentimentLabel = "Strong Bearish"
	SentimentModerateBearish SentimentLabel = "Moderate Bearish"
	SentimentNeutral         SentimentLabel = "Neutral"
	SentimentBullish         SentimentLabel = "Bullish"
)

// ContrarianSublabel marks extreme put-call ratios.
const ContrarianSublabel = "Contrarian Bullish?"

// Sentiment is the full classification of a ratio, with display tags.
type Sentiment struct {
	Label      SentimentLabel `json:"label"`
	Sublabel   string         `json:"sublabel,omitempty"`
	Contrarian bool           `json:"contrarian"`
	Color      string         `json:"color"`
	Background string         `json:"background"`
}

// CompactSentiment is the short badge form of a sentiment band.
type CompactSentiment string

const (
	CompactNone    CompactSentiment = ""
	CompactBearish CompactSentiment = "Bearish"
	CompactModBear CompactSentiment = "Mod Bear"
	CompactNeutral CompactSentiment = "Neutral"
	CompactBullish CompactSentiment = "Bullish"
)

// PCRClass is the style tag attached to a ratio cell.
type PCRClass string

const (
	PCRClassNone         PCRClass = ""
	PCRClassBearish      PCRClass = "pcr-bearish"
	PCRClassModerateBear PCRClass = "pcr-mod-bearish"
	PCRClassNeutral      PCRClass = "pcr-neutral"
	PCRClassBullish      PCRClass = "pcr-bullish"
)
