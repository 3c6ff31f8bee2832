// Package policy holds the pure time-entry rules: duration rounding and
// bounds, interval overlap, and the status transition table with its guards.
package policy

import (
	"math"
	"time"

	"github.com/tempora-ai/be-timesheets/internal/domain"
	"github.com/tempora-ai/be-timesheets/internal/errors"
)

// maxEntryMinutes caps an entry at 24 hours.
const maxEntryMinutes = 1440

// RoundDuration rounds minutes to the nearest multiple of interval using
// round-half-up. Interval zero disables rounding.
func RoundDuration(minutes int, interval domain.RoundingInterval) int {
	if interval == domain.NoRounding {
		return minutes
	}
	return int(math.Round(float64(minutes)/float64(interval))) * int(interval)
}

// CalculateDuration returns the absolute elapsed wall-clock minutes between
// two instants. time.Time subtraction measures true elapsed time, so the
// result is correct across DST transitions.
func CalculateDuration(start, end time.Time) int {
	d := end.Sub(start)
	if d < 0 {
		d = -d
	}
	return int(d / time.Minute)
}

// ValidateDuration checks the entry interval invariants: end after start and
// at most 24 hours.
func ValidateDuration(start, end time.Time) error {
	if !end.After(start) {
		return errors.InvalidInput("endAt", "End time must be after start time")
	}
	if CalculateDuration(start, end) > maxEntryMinutes {
		return errors.InvalidInput("endAt", "Time entry cannot exceed 24 hours")
	}
	return nil
}

// DetectOverlap reports whether two entries' intervals share any instant.
// Bounds are exclusive: an entry ending exactly when another starts does not
// overlap it.
func DetectOverlap(a, b domain.TimeEntry) bool {
	return a.StartAt.Before(b.EndAt) && b.StartAt.Before(a.EndAt)
}

// OverlapPair identifies two overlapping entries by id.
type OverlapPair struct {
	EntryAID string
	EntryBID string
}

// FindOverlaps returns every pairwise overlap among the entries, following
// input iteration order (i < j).
func FindOverlaps(entries []domain.TimeEntry) []OverlapPair {
	var pairs []OverlapPair
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if DetectOverlap(entries[i], entries[j]) {
				pairs = append(pairs, OverlapPair{
					EntryAID: entries[i].ID,
					EntryBID: entries[j].ID,
				})
			}
		}
	}
	return pairs
}
