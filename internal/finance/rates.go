// Package finance resolves rate cards, computes entry costs, and aggregates
// them into finance exports and invoice bundles.
package finance

import (
	"time"

	"github.com/tempora-ai/be-timesheets/internal/domain"
)

// ResolveEffectiveRate picks the one rate card applying to an entry at the
// given instant.
//
// Precedence is strict: project match beats client match beats the
// developer's default card regardless of recency. Only within a tier does the
// latest EffectiveFrom win. Exact EffectiveFrom ties are a data-quality
// issue; whichever card comes first in the input is kept. Returns nil when no
// card matches, which excludes the entry from costed output.
func ResolveEffectiveRate(entry domain.TimeEntry, cards []domain.RateCard, at time.Time) *domain.RateCard {
	var effective []domain.RateCard
	for _, card := range cards {
		if !card.IsActive {
			continue
		}
		if card.EffectiveFrom.After(at) {
			continue
		}
		if card.EffectiveTo != nil && card.EffectiveTo.Before(at) {
			continue
		}
		effective = append(effective, card)
	}

	if match := latestIn(effective, func(c domain.RateCard) bool {
		return c.ProjectID != nil && *c.ProjectID == entry.ProjectID
	}); match != nil {
		return match
	}

	if match := latestIn(effective, func(c domain.RateCard) bool {
		return c.ClientID != nil && *c.ClientID == entry.ClientID
	}); match != nil {
		return match
	}

	return latestIn(effective, func(c domain.RateCard) bool {
		return c.DeveloperID != nil && *c.DeveloperID == entry.DeveloperID &&
			c.ProjectID == nil && c.ClientID == nil
	})
}

// latestIn returns the matching card with the latest EffectiveFrom, or nil.
func latestIn(cards []domain.RateCard, matches func(domain.RateCard) bool) *domain.RateCard {
	var best *domain.RateCard
	for i := range cards {
		if !matches(cards[i]) {
			continue
		}
		if best == nil || cards[i].EffectiveFrom.After(best.EffectiveFrom) {
			best = &cards[i]
		}
	}
	return best
}
