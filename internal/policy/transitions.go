package policy

import (
	"github.com/tempora-ai/be-timesheets/internal/domain"
	"github.com/tempora-ai/be-timesheets/internal/errors"
)

// allowedTransitions is the exhaustive lifecycle table. There are no implicit
// self-loops; BILLED is terminal.
var allowedTransitions = map[domain.EntryStatus][]domain.EntryStatus{
	domain.StatusDraft:     {domain.StatusSubmitted},
	domain.StatusSubmitted: {domain.StatusApproved, domain.StatusRejected},
	domain.StatusApproved:  {domain.StatusLocked, domain.StatusRejected},
	domain.StatusRejected:  {domain.StatusDraft, domain.StatusSubmitted},
	domain.StatusLocked:    {domain.StatusBilled},
	domain.StatusBilled:    {},
}

// ValidateStatusTransition is the authoritative transition check, independent
// of the convenience guards below.
func ValidateStatusTransition(from, to domain.EntryStatus) error {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return nil
		}
	}
	return errors.InvalidStatusTransition(string(from), string(to))
}

// CanTransition reports whether the transition is allowed.
func CanTransition(from, to domain.EntryStatus) bool {
	return ValidateStatusTransition(from, to) == nil
}

// CanEditTimeEntry reports whether an entry's fields may still be edited.
func CanEditTimeEntry(status domain.EntryStatus) bool {
	return status == domain.StatusDraft || status == domain.StatusRejected
}

// CanSubmitTimeEntry reports whether an entry may be submitted for approval.
// Rejected entries may be resubmitted directly.
func CanSubmitTimeEntry(status domain.EntryStatus) bool {
	return status == domain.StatusDraft || status == domain.StatusRejected
}

// CanApproveTimeEntry reports whether an entry may be approved.
func CanApproveTimeEntry(status domain.EntryStatus) bool {
	return status == domain.StatusSubmitted
}

// CanRejectTimeEntry reports whether an entry may be rejected. Approved
// entries can still be rejected until they are locked.
func CanRejectTimeEntry(status domain.EntryStatus) bool {
	return status == domain.StatusSubmitted || status == domain.StatusApproved
}

// CanLockTimeEntry reports whether an entry may be locked for billing.
func CanLockTimeEntry(status domain.EntryStatus) bool {
	return status == domain.StatusApproved
}

// CanBillTimeEntry reports whether an entry may be billed.
func CanBillTimeEntry(status domain.EntryStatus) bool {
	return status == domain.StatusLocked
}
