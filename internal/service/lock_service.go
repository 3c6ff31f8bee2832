package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tempora-ai/be-timesheets/internal/domain"
	"github.com/tempora-ai/be-timesheets/internal/locks"
	"github.com/tempora-ai/be-timesheets/internal/logger"
	"github.com/tempora-ai/be-timesheets/internal/repository"
)

// LockRepository is the persistence surface the lock service needs.
type LockRepository interface {
	Create(ctx context.Context, lock *domain.TimeLock) error
	GetByID(ctx context.Context, id string) (*domain.TimeLock, error)
	FindActive(ctx context.Context) ([]domain.TimeLock, error)
	List(ctx context.Context) ([]domain.TimeLock, error)
	Deactivate(ctx context.Context, id, unlockedBy string, at time.Time) error
}

// AuditWriter appends audit records outside the entry workflow.
type AuditWriter interface {
	Append(ctx context.Context, logs []domain.AuditLog) error
}

// LockService manages billing period locks.
type LockService struct {
	locks   LockRepository
	entries EntryRepository
	audit   AuditWriter
	log     *logger.Logger
}

// NewLockService creates a new LockService.
func NewLockService(locksRepo LockRepository, entries EntryRepository, audit AuditWriter, log *logger.Logger) *LockService {
	return &LockService{
		locks:   locksRepo,
		entries: entries,
		audit:   audit,
		log:     log,
	}
}

// CreateLockRequest represents a create lock request.
type CreateLockRequest struct {
	ProjectID   *string
	ClientID    *string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Reason      string
}

// CreateLock validates and persists a new period lock. The new lock must not
// overlap an existing active lock on the same scope.
func (s *LockService) CreateLock(ctx context.Context, req *CreateLockRequest, wfCtx domain.WorkflowContext) (*domain.TimeLock, error) {
	lock := domain.TimeLock{
		ID:          uuid.NewString(),
		ProjectID:   req.ProjectID,
		ClientID:    req.ClientID,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		Reason:      req.Reason,
		LockedBy:    wfCtx.UserID,
		LockedAt:    wfCtx.Timestamp,
		IsActive:    true,
	}

	if err := locks.ValidateLock(lock); err != nil {
		return nil, err
	}

	existing, err := s.locks.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	if err := locks.ValidateOverlap(lock, existing); err != nil {
		return nil, err
	}

	if err := s.locks.Create(ctx, &lock); err != nil {
		return nil, err
	}

	if err := s.appendLockAudit(ctx, lock.ID, domain.ActionLock, wfCtx, map[string]interface{}{
		"periodStart": lock.PeriodStart,
		"periodEnd":   lock.PeriodEnd,
		"reason":      lock.Reason,
	}); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("lock_id", lock.ID).
		Time("period_start", lock.PeriodStart).
		Time("period_end", lock.PeriodEnd).
		Str("locked_by", wfCtx.UserID).
		Msg("Period lock created")

	return &lock, nil
}

// Unlock deactivates a lock. Already-billed entries inside the period are
// unaffected; the lock simply stops guarding new workflow actions.
func (s *LockService) Unlock(ctx context.Context, id string, wfCtx domain.WorkflowContext) error {
	if err := s.locks.Deactivate(ctx, id, wfCtx.UserID, wfCtx.Timestamp); err != nil {
		return err
	}

	if err := s.appendLockAudit(ctx, id, domain.ActionUnlock, wfCtx, nil); err != nil {
		return err
	}

	s.log.Info().
		Str("lock_id", id).
		Str("unlocked_by", wfCtx.UserID).
		Msg("Period lock released")

	return nil
}

// GetLock retrieves one lock.
func (s *LockService) GetLock(ctx context.Context, id string) (*domain.TimeLock, error) {
	return s.locks.GetByID(ctx, id)
}

// ListLocks lists all locks, active and released.
func (s *LockService) ListLocks(ctx context.Context) ([]domain.TimeLock, error) {
	return s.locks.List(ctx)
}

// AffectedEntries previews which entries a lock covers. Useful before
// creating a lock to see what would be frozen.
func (s *LockService) AffectedEntries(ctx context.Context, lock domain.TimeLock) ([]domain.TimeEntry, error) {
	entries, err := s.entries.List(ctx, repository.EntryFilter{
		ProjectID: lock.ProjectID,
		ClientID:  lock.ClientID,
	})
	if err != nil {
		return nil, err
	}
	return locks.AffectedEntries(lock, entries), nil
}

func (s *LockService) appendLockAudit(ctx context.Context, lockID string, action domain.AuditAction, wfCtx domain.WorkflowContext, metadata map[string]interface{}) error {
	return s.audit.Append(ctx, []domain.AuditLog{{
		ID:         uuid.NewString(),
		EntityType: "TimeLock",
		EntityID:   lockID,
		Action:     action,
		UserID:     wfCtx.UserID,
		Metadata:   metadata,
		CreatedAt:  wfCtx.Timestamp,
	}})
}
