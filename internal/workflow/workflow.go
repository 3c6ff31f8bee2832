// Package workflow applies guarded status transitions to batches of time
// entries and produces the audit records for each transition.
//
// Batch semantics are fail-fast: entries are validated independently, and the
// first entry that fails a guard or lock check aborts the whole call with no
// partial results. Nothing is persisted here; callers store the returned
// entities and audit records.
package workflow

import (
	"github.com/google/uuid"

	"github.com/tempora-ai/be-timesheets/internal/domain"
	"github.com/tempora-ai/be-timesheets/internal/errors"
	"github.com/tempora-ai/be-timesheets/internal/locks"
	"github.com/tempora-ai/be-timesheets/internal/policy"
)

// Result carries the updated entries and the audit records of one batch call.
type Result struct {
	Entries   []domain.TimeEntry `json:"entries"`
	AuditLogs []domain.AuditLog  `json:"auditLogs"`
}

// TimesheetResult carries an updated timesheet and the audit records of its
// submission.
type TimesheetResult struct {
	Timesheet domain.Timesheet  `json:"timesheet"`
	AuditLogs []domain.AuditLog `json:"auditLogs"`
}

const entityTimeEntry = "TimeEntry"

func auditRecord(entry domain.TimeEntry, action domain.AuditAction, ctx domain.WorkflowContext, metadata map[string]interface{}) domain.AuditLog {
	return domain.AuditLog{
		ID:         uuid.NewString(),
		EntityType: entityTimeEntry,
		EntityID:   entry.ID,
		Action:     action,
		UserID:     ctx.UserID,
		Metadata:   metadata,
		CreatedAt:  ctx.Timestamp,
	}
}

// SubmitTimeEntries moves draft or rejected entries to SUBMITTED. Entries
// falling inside an active lock period cannot be submitted.
func SubmitTimeEntries(entries []domain.TimeEntry, ctx domain.WorkflowContext, activeLocks []domain.TimeLock) (*Result, error) {
	result := &Result{}
	for _, entry := range entries {
		if !policy.CanSubmitTimeEntry(entry.Status) {
			return nil, errors.InvalidStatusTransition(string(entry.Status), string(domain.StatusSubmitted))
		}
		if locks.IsPeriodLocked(entry.StartAt, entry.EndAt, activeLocks) {
			return nil, errors.PeriodLocked(entry.StartAt, entry.EndAt)
		}

		previous := entry.Status
		entry.Status = domain.StatusSubmitted
		entry.UpdatedAt = ctx.Timestamp

		result.Entries = append(result.Entries, entry)
		result.AuditLogs = append(result.AuditLogs, auditRecord(entry, domain.ActionSubmit, ctx, map[string]interface{}{
			"previousStatus": string(previous),
			"newStatus":      string(domain.StatusSubmitted),
		}))
	}
	return result, nil
}

// ApproveTimeEntries moves submitted entries to APPROVED.
func ApproveTimeEntries(entries []domain.TimeEntry, ctx domain.WorkflowContext, activeLocks []domain.TimeLock) (*Result, error) {
	result := &Result{}
	for _, entry := range entries {
		if !policy.CanApproveTimeEntry(entry.Status) {
			return nil, errors.InvalidStatusTransition(string(entry.Status), string(domain.StatusApproved))
		}
		if locks.IsPeriodLocked(entry.StartAt, entry.EndAt, activeLocks) {
			return nil, errors.PeriodLocked(entry.StartAt, entry.EndAt)
		}

		previous := entry.Status
		entry.Status = domain.StatusApproved
		entry.ApprovedBy = &ctx.UserID
		approvedAt := ctx.Timestamp
		entry.ApprovedAt = &approvedAt
		entry.UpdatedAt = ctx.Timestamp

		result.Entries = append(result.Entries, entry)
		result.AuditLogs = append(result.AuditLogs, auditRecord(entry, domain.ActionApprove, ctx, map[string]interface{}{
			"previousStatus": string(previous),
			"newStatus":      string(domain.StatusApproved),
		}))
	}
	return result, nil
}

// RejectTimeEntries moves submitted or approved entries to REJECTED. A reason
// is required. Rejection never re-opens billing, so no lock check applies.
func RejectTimeEntries(entries []domain.TimeEntry, ctx domain.WorkflowContext, reason string) (*Result, error) {
	if reason == "" {
		return nil, errors.InvalidInput("reason", "Rejection reason is required")
	}

	result := &Result{}
	for _, entry := range entries {
		if !policy.CanRejectTimeEntry(entry.Status) {
			return nil, errors.InvalidStatusTransition(string(entry.Status), string(domain.StatusRejected))
		}

		previous := entry.Status
		entry.Status = domain.StatusRejected
		entry.RejectedBy = &ctx.UserID
		rejectedAt := ctx.Timestamp
		entry.RejectedAt = &rejectedAt
		entry.RejectionReason = &reason
		entry.UpdatedAt = ctx.Timestamp

		result.Entries = append(result.Entries, entry)
		result.AuditLogs = append(result.AuditLogs, auditRecord(entry, domain.ActionReject, ctx, map[string]interface{}{
			"previousStatus": string(previous),
			"newStatus":      string(domain.StatusRejected),
			"reason":         reason,
		}))
	}
	return result, nil
}

// LockTimeEntries moves approved entries to LOCKED.
func LockTimeEntries(entries []domain.TimeEntry, ctx domain.WorkflowContext, reason *string) (*Result, error) {
	result := &Result{}
	for _, entry := range entries {
		if !policy.CanLockTimeEntry(entry.Status) {
			return nil, errors.InvalidStatusTransition(string(entry.Status), string(domain.StatusLocked))
		}

		previous := entry.Status
		entry.Status = domain.StatusLocked
		lockedAt := ctx.Timestamp
		entry.LockedAt = &lockedAt
		entry.UpdatedAt = ctx.Timestamp

		metadata := map[string]interface{}{
			"previousStatus": string(previous),
			"newStatus":      string(domain.StatusLocked),
		}
		if reason != nil {
			metadata["reason"] = *reason
		}

		result.Entries = append(result.Entries, entry)
		result.AuditLogs = append(result.AuditLogs, auditRecord(entry, domain.ActionLock, ctx, metadata))
	}
	return result, nil
}

// BillTimeEntries moves locked entries to BILLED and stamps the invoice id.
func BillTimeEntries(entries []domain.TimeEntry, ctx domain.WorkflowContext, invoiceID string) (*Result, error) {
	if invoiceID == "" {
		return nil, errors.InvalidInput("invoiceId", "Invoice id is required")
	}

	result := &Result{}
	for _, entry := range entries {
		// Billing is gated on the literal locked state, not a shared guard.
		if entry.Status != domain.StatusLocked {
			return nil, errors.InvalidStatusTransition(string(entry.Status), string(domain.StatusBilled))
		}

		previous := entry.Status
		entry.Status = domain.StatusBilled
		billedAt := ctx.Timestamp
		entry.BilledAt = &billedAt
		entry.InvoiceID = &invoiceID
		entry.UpdatedAt = ctx.Timestamp

		result.Entries = append(result.Entries, entry)
		result.AuditLogs = append(result.AuditLogs, auditRecord(entry, domain.ActionBill, ctx, map[string]interface{}{
			"previousStatus": string(previous),
			"newStatus":      string(domain.StatusBilled),
			"invoiceId":      invoiceID,
		}))
	}
	return result, nil
}

// SubmitTimesheet submits every draft entry of a timesheet after checking the
// timesheet's own period against active locks. Non-draft entries pass through
// unchanged. One audit record is emitted per submitted entry plus one
// timesheet-level record carrying the counts.
func SubmitTimesheet(timesheet domain.Timesheet, ctx domain.WorkflowContext, activeLocks []domain.TimeLock) (*TimesheetResult, error) {
	if locks.IsPeriodLocked(timesheet.PeriodStart, timesheet.PeriodEnd, activeLocks) {
		return nil, errors.PeriodLocked(timesheet.PeriodStart, timesheet.PeriodEnd)
	}

	var drafts []domain.TimeEntry
	for _, entry := range timesheet.Entries {
		if entry.Status == domain.StatusDraft {
			drafts = append(drafts, entry)
		}
	}

	result := &TimesheetResult{Timesheet: timesheet}

	submitted, err := SubmitTimeEntries(drafts, ctx, activeLocks)
	if err != nil {
		return nil, err
	}

	// Merge submitted entries back into the timesheet's entry list.
	updatedByID := make(map[string]domain.TimeEntry, len(submitted.Entries))
	for _, entry := range submitted.Entries {
		updatedByID[entry.ID] = entry
	}
	merged := make([]domain.TimeEntry, 0, len(timesheet.Entries))
	for _, entry := range timesheet.Entries {
		if updated, ok := updatedByID[entry.ID]; ok {
			merged = append(merged, updated)
		} else {
			merged = append(merged, entry)
		}
	}

	result.Timesheet.Entries = merged
	result.Timesheet.Status = domain.StatusSubmitted
	result.Timesheet.UpdatedAt = ctx.Timestamp
	result.AuditLogs = append(result.AuditLogs, submitted.AuditLogs...)
	result.AuditLogs = append(result.AuditLogs, domain.AuditLog{
		ID:         uuid.NewString(),
		EntityType: "Timesheet",
		EntityID:   timesheet.ID,
		Action:     domain.ActionSubmit,
		UserID:     ctx.UserID,
		Metadata: map[string]interface{}{
			"submittedCount": len(submitted.Entries),
			"totalEntries":   len(timesheet.Entries),
		},
		CreatedAt: ctx.Timestamp,
	})

	return result, nil
}
