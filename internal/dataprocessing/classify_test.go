package dataprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"fnopulse/pkg/contracts/domain"
)

func TestClassifySentiment(t *testing.T) {
	tests := []struct {
		name       string
		pcr        *float64
		label      domain.SentimentLabel
		contrarian bool
		compact    domain.CompactSentiment
		class      domain.PCRClass
	}{
		{"unknown", nil, domain.SentimentUnknown, false, domain.CompactNone, domain.PCRClassNone},
		{"not a number", domain.Float64(math.NaN()), domain.SentimentUnknown, false, domain.CompactNone, domain.PCRClassNone},
		{"zero", domain.Float64(0), domain.SentimentBullish, false, domain.CompactBullish, domain.PCRClassBullish},
		{"bullish bound", domain.Float64(0.7), domain.SentimentBullish, false, domain.CompactBullish, domain.PCRClassBullish},
		{"just above bullish", domain.Float64(0.71), domain.SentimentNeutral, false, domain.CompactNeutral, domain.PCRClassNeutral},
		{"neutral bound", domain.Float64(1.0), domain.SentimentNeutral, false, domain.CompactNeutral, domain.PCRClassNeutral},
		{"moderate", domain.Float64(1.2), domain.SentimentModerateBearish, false, domain.CompactModBear, domain.PCRClassModerateBear},
		{"moderate bound", domain.Float64(1.3), domain.SentimentModerateBearish, false, domain.CompactModBear, domain.PCRClassModerateBear},
		{"strong", domain.Float64(1.4), domain.SentimentStrongBearish, false, domain.CompactBearish, domain.PCRClassBearish},
		{"contrarian bound", domain.Float64(1.5), domain.SentimentStrongBearish, false, domain.CompactBearish, domain.PCRClassBearish},
		{"contrarian", domain.Float64(1.6), domain.SentimentStrongBearish, true, domain.CompactBearish, domain.PCRClassBearish},
		{"infinite", domain.Float64(math.Inf(1)), domain.SentimentStrongBearish, true, domain.CompactBearish, domain.PCRClassBearish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ClassifySentiment(tt.pcr)
			assert.Equal(t, tt.label, s.Label)
			assert.Equal(t, tt.contrarian, s.Contrarian)
			if tt.contrarian {
				assert.Equal(t, domain.ContrarianSublabel, s.Sublabel)
			} else {
				assert.Empty(t, s.Sublabel)
			}
			assert.NotEmpty(t, s.Color)
			assert.NotEmpty(t, s.Background)

			assert.Equal(t, tt.compact, CompactSentimentOf(tt.pcr))
			assert.Equal(t, tt.class, PCRClassOf(tt.pcr))
		})
	}
}

func TestClassifySentiment_Totality(t *testing.T) {
	for v := -1.0; v <= 3.0; v += 0.01 {
		pcr := v
		label := ClassifySentiment(&pcr).Label
		assert.NotEqual(t, domain.SentimentUnknown, label, "pcr %v", pcr)
		assert.NotEqual(t, domain.CompactNone, CompactSentimentOf(&pcr), "pcr %v", pcr)
	}
}
