// Package locks implements period-lock scope matching and conflict checks.
//
// Two different overlap rules apply on purpose. Locks versus entries/periods
// use inclusive bounds so a period boundary instant (midnight, typically) is
// unambiguously locked. Locks versus other locks at creation use exclusive
// bounds so adjacent, touching locks on the same scope can coexist.
package locks

import (
	"fmt"
	"time"

	"github.com/tempora-ai/be-timesheets/internal/domain"
	"github.com/tempora-ai/be-timesheets/internal/errors"
)

// MatchesScope reports whether the lock covers the entry's project or client.
// Either match is sufficient: a client-level lock affects entries across all
// of that client's projects.
func MatchesScope(lock domain.TimeLock, entry domain.TimeEntry) bool {
	if lock.ProjectID != nil && *lock.ProjectID == entry.ProjectID {
		return true
	}
	if lock.ClientID != nil && *lock.ClientID == entry.ClientID {
		return true
	}
	return false
}

// overlapsInclusive is the lock-versus-interval test: boundary instants count.
func overlapsInclusive(lock domain.TimeLock, start, end time.Time) bool {
	return !start.After(lock.PeriodEnd) && !end.Before(lock.PeriodStart)
}

// CheckEntryConflict returns the first active lock covering the entry's scope
// and interval, or nil. Tie-break is input order.
func CheckEntryConflict(entry domain.TimeEntry, allLocks []domain.TimeLock) *domain.TimeLock {
	for i := range allLocks {
		lock := &allLocks[i]
		if !lock.IsActive {
			continue
		}
		if MatchesScope(*lock, entry) && overlapsInclusive(*lock, entry.StartAt, entry.EndAt) {
			return lock
		}
	}
	return nil
}

// CheckPeriodConflict runs the same test against an arbitrary period. A lock
// matches when its project or client equals the corresponding non-nil
// argument.
func CheckPeriodConflict(start, end time.Time, projectID, clientID *string, allLocks []domain.TimeLock) *domain.TimeLock {
	for i := range allLocks {
		lock := &allLocks[i]
		if !lock.IsActive {
			continue
		}
		matches := false
		if projectID != nil && lock.ProjectID != nil && *lock.ProjectID == *projectID {
			matches = true
		}
		if clientID != nil && lock.ClientID != nil && *lock.ClientID == *clientID {
			matches = true
		}
		if matches && overlapsInclusive(*lock, start, end) {
			return lock
		}
	}
	return nil
}

// IsPeriodLocked reports whether any active lock intersects the interval,
// regardless of scope. Used for timesheet-level submission checks where the
// period is not tied to a single project.
func IsPeriodLocked(start, end time.Time, allLocks []domain.TimeLock) bool {
	for _, lock := range allLocks {
		if lock.IsActive && overlapsInclusive(lock, start, end) {
			return true
		}
	}
	return false
}

// sameScope reports whether two locks target the same project or same client.
func sameScope(a, b domain.TimeLock) bool {
	if a.ProjectID != nil && b.ProjectID != nil && *a.ProjectID == *b.ProjectID {
		return true
	}
	if a.ClientID != nil && b.ClientID != nil && *a.ClientID == *b.ClientID {
		return true
	}
	return false
}

// ValidateLock checks a candidate lock's shape: exactly one scope key and a
// non-empty period.
func ValidateLock(lock domain.TimeLock) error {
	hasProject := lock.ProjectID != nil && *lock.ProjectID != ""
	hasClient := lock.ClientID != nil && *lock.ClientID != ""
	if hasProject == hasClient {
		return errors.InvalidInput("scope", "Lock must target exactly one of projectId or clientId")
	}
	if !lock.PeriodEnd.After(lock.PeriodStart) {
		return errors.InvalidInput("periodEnd", "Lock period end must be after period start")
	}
	return nil
}

// ValidateOverlap rejects a candidate lock that overlaps an active lock on
// the same scope. The test uses exclusive bounds: locks touching exactly at a
// boundary coexist.
func ValidateOverlap(newLock domain.TimeLock, existing []domain.TimeLock) error {
	for _, lock := range existing {
		if !lock.IsActive || !sameScope(newLock, lock) {
			continue
		}
		if newLock.PeriodStart.Before(lock.PeriodEnd) && lock.PeriodStart.Before(newLock.PeriodEnd) {
			return errors.Conflict(fmt.Sprintf(
				"Lock period overlaps existing lock %s (%s to %s)",
				lock.ID,
				lock.PeriodStart.Format(time.RFC3339),
				lock.PeriodEnd.Format(time.RFC3339),
			))
		}
	}
	return nil
}

// AffectedEntries returns the entries a lock would cover, for previewing a
// lock's cascade before creating it.
func AffectedEntries(lock domain.TimeLock, entries []domain.TimeEntry) []domain.TimeEntry {
	var affected []domain.TimeEntry
	for _, entry := range entries {
		if MatchesScope(lock, entry) && overlapsInclusive(lock, entry.StartAt, entry.EndAt) {
			affected = append(affected, entry)
		}
	}
	return affected
}
