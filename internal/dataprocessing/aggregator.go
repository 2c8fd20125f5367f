package dataprocessing

import (
	"sort"

	"fnopulse/pkg/contracts/domain"
)

// TopActiveLimit caps DerivedSnapshot.TopActive.
const TopActiveLimit = 5

// Summarize computes the aggregates of one snapshot. It returns nil for an
// empty snapshot.
//
// The bucket bounds here are strict on both sides (below 0.7, above 1.3),
// so a ratio of exactly 0.7 counts as neutral even though ClassifySentiment
// labels it bullish. Records without PCR-OI fall into the neutral count.
func Summarize(date string, records []domain.MarketRecord) *domain.DerivedSnapshot {
	if len(records) == 0 {
		return nil
	}

	snap := &domain.DerivedSnapshot{
		Date:  date,
		Total: len(records),
	}

	for _, r := range records {
		if pcr := r.PCROpenInterest; pcr != nil {
			switch {
			case *pcr < BullishSummaryBelow:
				snap.BullishCount++
			case *pcr > BearishSummaryAbove:
				snap.BearishCount++
			}
		}
		snap.TotalCEVolume += r.CEVolume
		snap.TotalPEVolume += r.PEVolume
		snap.TotalCETurnover += r.CETurnover
		snap.TotalPETurnover += r.PETurnover
	}
	snap.NeutralCount = snap.Total - snap.BullishCount - snap.BearishCount

	if snap.TotalCEVolume > 0 {
		snap.MarketPCR = domain.Float64(float64(snap.TotalPEVolume) / float64(snap.TotalCEVolume))
	}

	snap.TopActive = TopByCEVolume(records, TopActiveLimit)
	return snap
}

// TopByCEVolume returns up to n records ordered by descending CE volume.
// Ties keep their input order.
func TopByCEVolume(records []domain.MarketRecord, n int) []domain.MarketRecord {
	sorted := make([]domain.MarketRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CEVolume > sorted[j].CEVolume
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
