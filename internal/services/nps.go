package services

import (
	"math"

	"pulseboard/internal/models"
)

// ComputeNPS computes the Net Promoter Score breakdown for a list of 0-10
// ratings. Scores >= 9 count as promoters, 7-8 as passives, <= 6 as
// detractors; the final score is promoter% minus detractor%, rounded to one
// decimal. Returns nil for an empty list - a missing measurement must never
// be reported as a measured zero.
func ComputeNPS(scores []int) *models.NpsResult {
	if len(scores) == 0 {
		return nil
	}

	var promoters, passives, detractors int
	for _, score := range scores {
		switch {
		case score >= 9:
			promoters++
		case score >= 7:
			passives++
		default:
			detractors++
		}
	}

	total := len(scores)
	promoterPct := round1(100 * float64(promoters) / float64(total))
	passivePct := round1(100 * float64(passives) / float64(total))
	detractorPct := round1(100 * float64(detractors) / float64(total))

	return &models.NpsResult{
		Total:        total,
		Promoters:    promoters,
		Passives:     passives,
		Detractors:   detractors,
		PromoterPct:  promoterPct,
		PassivePct:   passivePct,
		DetractorPct: detractorPct,
		Score:        round1(100*float64(promoters)/float64(total) - 100*float64(detractors)/float64(total)),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
