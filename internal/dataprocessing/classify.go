package dataprocessing

import (
	"math"

	"fnopulse/pkg/contracts/domain"
)

// Sentiment band bounds. Every comparison is a strict greater-than, so a
// ratio sitting exactly on a bound belongs to the less bearish band.
const (
	NeutralAbove         = 0.7
	ModerateBearishAbove = 1.0
	StrongBearishAbove   = 1.3
	ContrarianAbove      = 1.5
)

// Snapshot bucket bounds used by Summarize.
const (
	BullishSummaryBelow = 0.7
	BearishSummaryAbove = 1.3
)

type band int

const (
	bandUnknown band = iota
	bandBullish
	bandNeutral
	bandModerateBearish
	bandStrongBearish
)

// classify is the single place the band bounds are evaluated, so detailed
// and compact views cannot disagree.
func classify(pcr *float64) band {
	switch {
	case pcr == nil || math.IsNaN(*pcr):
		return bandUnknown
	case *pcr > StrongBearishAbove:
		return bandStrongBearish
	case *pcr > ModerateBearishAbove:
		return bandModerateBearish
	case *pcr > NeutralAbove:
		return bandNeutral
	default:
		return bandBullish
	}
}

// ClassifySentiment maps a put-call ratio to its detailed sentiment.
func ClassifySentiment(pcr *float64) domain.Sentiment {
	switch classify(pcr) {
	case bandStrongBearish:
		s := domain.Sentiment{
			Label:      domain.SentimentStrongBearish,
			Color:      "text-red-400",
			Background: "bg-red-500/10",
		}
		if *pcr > ContrarianAbove {
			s.Contrarian = true
			s.Sublabel = domain.ContrarianSublabel
		}
		return s
	case bandModerateBearish:
		return domain.Sentiment{
			Label:      domain.SentimentModerateBearish,
			Color:      "text-orange-400",
			Background: "bg-orange-500/10",
		}
	case bandNeutral:
		return domain.Sentiment{
			Label:      domain.SentimentNeutral,
			Color:      "text-yellow-400",
			Background: "bg-yellow-500/10",
		}
	case bandBullish:
		return domain.Sentiment{
			Label:      domain.SentimentBullish,
			Color:      "text-emerald-400",
			Background: "bg-emerald-500/10",
		}
	default:
		return domain.Sentiment{
			Label:      domain.SentimentUnknown,
			Color:      "text-slate-400",
			Background: "bg-slate-800",
		}
	}
}

// CompactSentimentOf returns the badge form. Unknown ratios yield "".
func CompactSentimentOf(pcr *float64) domain.CompactSentiment {
	switch classify(pcr) {
	case bandStrongBearish:
		return domain.CompactBearish
	case bandModerateBearish:
		return domain.CompactModBear
	case bandNeutral:
		return domain.CompactNeutral
	case bandBullish:
		return domain.CompactBullish
	default:
		return domain.CompactNone
	}
}

// PCRClassOf returns the style tag of a ratio cell. Unknown ratios yield "".
func PCRClassOf(pcr *float64) domain.PCRClass {
	switch classify(pcr) {
	case bandStrongBearish:
		return domain.PCRClassBearish
	case bandModerateBearish:
		return domain.PCRClassModerateBear
	case bandNeutral:
		return domain.PCRClassNeutral
	case bandBullish:
		return domain.PCRClassBullish
	default:
		return domain.PCRClassNone
	}
}
