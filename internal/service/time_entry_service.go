package service

import (
	"context"
	"time"

	"github.com/tempora-ai/be-timesheets/internal/domain"
	"github.com/tempora-ai/be-timesheets/internal/logger"
	"github.com/tempora-ai/be-timesheets/internal/policy"
	"github.com/tempora-ai/be-timesheets/internal/repository"
	"github.com/tempora-ai/be-timesheets/internal/workflow"
)

// EntryRepository is the persistence surface the entry service needs.
type EntryRepository interface {
	Create(ctx context.Context, entry *domain.TimeEntry) error
	GetByID(ctx context.Context, id string) (*domain.TimeEntry, error)
	FindByIDs(ctx context.Context, ids []string) ([]domain.TimeEntry, error)
	List(ctx context.Context, filter repository.EntryFilter) ([]domain.TimeEntry, error)
	FindOverlapping(ctx context.Context, developerID string, start, end time.Time, excludeID string) ([]domain.TimeEntry, error)
	SaveWorkflowResult(ctx context.Context, entries []domain.TimeEntry, auditLogs []domain.AuditLog) error
}

// LockReader supplies the active lock set for workflow checks.
type LockReader interface {
	FindActive(ctx context.Context) ([]domain.TimeLock, error)
}

// AuditReader reads an entity's audit trail.
type AuditReader interface {
	GetByEntity(ctx context.Context, entityType, entityID string) ([]domain.AuditLog, error)
}

// EventPublisher publishes workflow events. Implementations must be
// non-fatal: publish failures are logged, never returned.
type EventPublisher interface {
	PublishEntryEvent(ctx context.Context, eventType, entryID, actorID string, payload map[string]interface{})
}

// TimeEntryService handles time entry business logic and persists the
// workflow engine's output.
type TimeEntryService struct {
	entries EntryRepository
	locks   LockReader
	audit   AuditReader
	events  EventPublisher
	log     *logger.Logger
}

// NewTimeEntryService creates a new TimeEntryService. events may be nil when
// event publishing is disabled.
func NewTimeEntryService(
	entries EntryRepository,
	locks LockReader,
	audit AuditReader,
	events EventPublisher,
	log *logger.Logger,
) *TimeEntryService {
	return &TimeEntryService{
		entries: entries,
		locks:   locks,
		audit:   audit,
		events:  events,
		log:     log,
	}
}

// CreateTimeEntryRequest represents a create time entry request.
type CreateTimeEntryRequest struct {
	ProjectID   string
	TaskID      *string
	DeveloperID string
	ClientID    string
	StartAt     time.Time
	EndAt       time.Time
	Billable    bool
	Category    string
	Tags        []string
}

// CreateTimeEntry validates the interval and creates a draft entry. Overlaps
// with the developer's existing entries are logged, not rejected; the
// approver sees them during review.
func (s *TimeEntryService) CreateTimeEntry(ctx context.Context, req *CreateTimeEntryRequest) (*domain.TimeEntry, error) {
	if err := policy.ValidateDuration(req.StartAt, req.EndAt); err != nil {
		return nil, err
	}

	entry := &domain.TimeEntry{
		ProjectID:       req.ProjectID,
		TaskID:          req.TaskID,
		DeveloperID:     req.DeveloperID,
		ClientID:        req.ClientID,
		StartAt:         req.StartAt,
		EndAt:           req.EndAt,
		DurationMinutes: policy.CalculateDuration(req.StartAt, req.EndAt),
		Billable:        req.Billable,
		Category:        req.Category,
		Tags:            req.Tags,
		Status:          domain.StatusDraft,
	}

	overlapping, err := s.entries.FindOverlapping(ctx, req.DeveloperID, req.StartAt, req.EndAt, "")
	if err != nil {
		return nil, err
	}
	if len(overlapping) > 0 {
		s.log.Warn().
			Str("developer_id", req.DeveloperID).
			Int("overlap_count", len(overlapping)).
			Msg("New time entry overlaps existing entries")
	}

	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("entry_id", entry.ID).
		Str("project_id", entry.ProjectID).
		Str("developer_id", entry.DeveloperID).
		Int("duration_minutes", entry.DurationMinutes).
		Bool("billable", entry.Billable).
		Msg("Time entry created")

	return entry, nil
}

// GetTimeEntry retrieves one entry.
func (s *TimeEntryService) GetTimeEntry(ctx context.Context, id string) (*domain.TimeEntry, error) {
	return s.entries.GetByID(ctx, id)
}

// ListTimeEntries lists entries matching the filter.
func (s *TimeEntryService) ListTimeEntries(ctx context.Context, filter repository.EntryFilter) ([]domain.TimeEntry, error) {
	return s.entries.List(ctx, filter)
}

// GetAuditTrail returns an entry's audit trail oldest-first.
func (s *TimeEntryService) GetAuditTrail(ctx context.Context, entryID string) ([]domain.AuditLog, error) {
	return s.audit.GetByEntity(ctx, "TimeEntry", entryID)
}

// SubmitTimeEntries submits a batch of entries.
func (s *TimeEntryService) SubmitTimeEntries(ctx context.Context, ids []string, wfCtx domain.WorkflowContext) ([]domain.TimeEntry, error) {
	batch, activeLocks, err := s.loadBatch(ctx, ids, true)
	if err != nil {
		return nil, err
	}

	result, err := workflow.SubmitTimeEntries(batch, wfCtx, activeLocks)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, result, "entry_submitted", wfCtx)
}

// ApproveTimeEntries approves a batch of entries.
func (s *TimeEntryService) ApproveTimeEntries(ctx context.Context, ids []string, wfCtx domain.WorkflowContext) ([]domain.TimeEntry, error) {
	batch, activeLocks, err := s.loadBatch(ctx, ids, true)
	if err != nil {
		return nil, err
	}

	result, err := workflow.ApproveTimeEntries(batch, wfCtx, activeLocks)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, result, "entry_approved", wfCtx)
}

// RejectTimeEntries rejects a batch of entries with a reason.
func (s *TimeEntryService) RejectTimeEntries(ctx context.Context, ids []string, wfCtx domain.WorkflowContext, reason string) ([]domain.TimeEntry, error) {
	batch, _, err := s.loadBatch(ctx, ids, false)
	if err != nil {
		return nil, err
	}

	result, err := workflow.RejectTimeEntries(batch, wfCtx, reason)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, result, "entry_rejected", wfCtx)
}

// LockTimeEntries locks a batch of approved entries for billing.
func (s *TimeEntryService) LockTimeEntries(ctx context.Context, ids []string, wfCtx domain.WorkflowContext, reason *string) ([]domain.TimeEntry, error) {
	batch, _, err := s.loadBatch(ctx, ids, false)
	if err != nil {
		return nil, err
	}

	result, err := workflow.LockTimeEntries(batch, wfCtx, reason)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, result, "entry_locked", wfCtx)
}

// BillTimeEntries bills a batch of locked entries against an invoice.
func (s *TimeEntryService) BillTimeEntries(ctx context.Context, ids []string, wfCtx domain.WorkflowContext, invoiceID string) ([]domain.TimeEntry, error) {
	batch, _, err := s.loadBatch(ctx, ids, false)
	if err != nil {
		return nil, err
	}

	result, err := workflow.BillTimeEntries(batch, wfCtx, invoiceID)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, result, "entry_billed", wfCtx)
}

// SubmitTimesheet submits every draft entry in a developer's period.
func (s *TimeEntryService) SubmitTimesheet(ctx context.Context, developerID string, periodStart, periodEnd time.Time, wfCtx domain.WorkflowContext) (*workflow.TimesheetResult, error) {
	entries, err := s.entries.List(ctx, repository.EntryFilter{
		DeveloperID: &developerID,
		From:        &periodStart,
		To:          &periodEnd,
	})
	if err != nil {
		return nil, err
	}
	activeLocks, err := s.locks.FindActive(ctx)
	if err != nil {
		return nil, err
	}

	timesheet := domain.Timesheet{
		ID:          developerID + ":" + periodStart.UTC().Format("2006-01-02"),
		DeveloperID: developerID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Status:      domain.StatusDraft,
		Entries:     entries,
	}

	result, err := workflow.SubmitTimesheet(timesheet, wfCtx, activeLocks)
	if err != nil {
		return nil, err
	}

	if err := s.entries.SaveWorkflowResult(ctx, result.Timesheet.Entries, result.AuditLogs); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("developer_id", developerID).
		Str("timesheet_id", result.Timesheet.ID).
		Int("entry_count", len(result.Timesheet.Entries)).
		Msg("Timesheet submitted")

	return result, nil
}

// loadBatch fetches the batch and, when needed, the active lock set.
func (s *TimeEntryService) loadBatch(ctx context.Context, ids []string, withLocks bool) ([]domain.TimeEntry, []domain.TimeLock, error) {
	batch, err := s.entries.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	if !withLocks {
		return batch, nil, nil
	}
	activeLocks, err := s.locks.FindActive(ctx)
	if err != nil {
		return nil, nil, err
	}
	return batch, activeLocks, nil
}

// persist stores a workflow result and publishes one event per entry.
func (s *TimeEntryService) persist(ctx context.Context, result *workflow.Result, eventType string, wfCtx domain.WorkflowContext) ([]domain.TimeEntry, error) {
	if err := s.entries.SaveWorkflowResult(ctx, result.Entries, result.AuditLogs); err != nil {
		return nil, err
	}

	for _, entry := range result.Entries {
		if s.events != nil {
			s.events.PublishEntryEvent(ctx, eventType, entry.ID, wfCtx.UserID, map[string]interface{}{
				"projectId":   entry.ProjectID,
				"developerId": entry.DeveloperID,
				"status":      string(entry.Status),
			})
		}
	}

	s.log.Info().
		Str("event", eventType).
		Str("user_id", wfCtx.UserID).
		Int("entry_count", len(result.Entries)).
		Msg("Workflow batch applied")

	return result.Entries, nil
}
