package locks

import (
	"time"

	"github.com/tempora-ai/be-timesheets/internal/domain"
)

// Manager holds an in-memory lock collection with query helpers. It is a
// convenience layer with no persistence; the caller owns the instance and
// must serialize concurrent access externally.
type Manager struct {
	locks []domain.TimeLock
}

// NewManager creates a Manager seeded with the given locks.
func NewManager(initial ...domain.TimeLock) *Manager {
	m := &Manager{}
	m.locks = append(m.locks, initial...)
	return m
}

// Add validates the lock against the current collection and appends it.
func (m *Manager) Add(lock domain.TimeLock) error {
	if err := ValidateLock(lock); err != nil {
		return err
	}
	if err := ValidateOverlap(lock, m.locks); err != nil {
		return err
	}
	m.locks = append(m.locks, lock)
	return nil
}

// Remove deletes the lock with the given id, reporting whether it existed.
func (m *Manager) Remove(id string) bool {
	for i := range m.locks {
		if m.locks[i].ID == id {
			m.locks = append(m.locks[:i], m.locks[i+1:]...)
			return true
		}
	}
	return false
}

// All returns the full collection.
func (m *Manager) All() []domain.TimeLock {
	out := make([]domain.TimeLock, len(m.locks))
	copy(out, m.locks)
	return out
}

// Active returns the active locks.
func (m *Manager) Active() []domain.TimeLock {
	var out []domain.TimeLock
	for _, lock := range m.locks {
		if lock.IsActive {
			out = append(out, lock)
		}
	}
	return out
}

// ByProject returns locks targeting the given project.
func (m *Manager) ByProject(projectID string) []domain.TimeLock {
	var out []domain.TimeLock
	for _, lock := range m.locks {
		if lock.ProjectID != nil && *lock.ProjectID == projectID {
			out = append(out, lock)
		}
	}
	return out
}

// ByClient returns locks targeting the given client.
func (m *Manager) ByClient(clientID string) []domain.TimeLock {
	var out []domain.TimeLock
	for _, lock := range m.locks {
		if lock.ClientID != nil && *lock.ClientID == clientID {
			out = append(out, lock)
		}
	}
	return out
}

// InDateRange returns locks whose period intersects [start, end] inclusively.
func (m *Manager) InDateRange(start, end time.Time) []domain.TimeLock {
	var out []domain.TimeLock
	for _, lock := range m.locks {
		if overlapsInclusive(lock, start, end) {
			out = append(out, lock)
		}
	}
	return out
}

// IsEntryLocked reports whether an active lock covers the entry.
func (m *Manager) IsEntryLocked(entry domain.TimeEntry) bool {
	return CheckEntryConflict(entry, m.locks) != nil
}

// IsPeriodLocked reports whether any active lock intersects the interval.
func (m *Manager) IsPeriodLocked(start, end time.Time) bool {
	return IsPeriodLocked(start, end, m.locks)
}
