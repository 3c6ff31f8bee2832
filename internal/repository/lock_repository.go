package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tempora-ai/be-timesheets/internal/database"
	"github.com/tempora-ai/be-timesheets/internal/domain"
	"github.com/tempora-ai/be-timesheets/internal/errors"
)

const lockColumns = `
	id, project_id, client_id, period_start, period_end, reason,
	locked_by, locked_at, unlocked_by, unlocked_at, is_active`

// LockRepository handles time lock persistence. Locks are deactivated, never
// deleted.
type LockRepository struct {
	db *database.DB
}

// NewLockRepository creates a new LockRepository.
func NewLockRepository(db *database.DB) *LockRepository {
	return &LockRepository{db: db}
}

// Create inserts an active lock.
func (r *LockRepository) Create(ctx context.Context, lock *domain.TimeLock) error {
	if lock.ID == "" {
		lock.ID = uuid.NewString()
	}

	query := `
		INSERT INTO time_locks (id, project_id, client_id, period_start, period_end,
		                        reason, locked_by, locked_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
	`

	if _, err := r.db.Exec(ctx, query,
		lock.ID, lock.ProjectID, lock.ClientID,
		lock.PeriodStart, lock.PeriodEnd,
		lock.Reason, lock.LockedBy, lock.LockedAt,
	); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create time lock")
	}
	lock.IsActive = true
	return nil
}

// GetByID fetches one lock.
func (r *LockRepository) GetByID(ctx context.Context, id string) (*domain.TimeLock, error) {
	query := `SELECT` + lockColumns + ` FROM time_locks WHERE id = $1`

	lock, err := scanLock(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NotFound("time_lock", id)
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get time lock")
	}
	return lock, nil
}

// FindActive returns all active locks ordered by period start, so conflict
// checks see a stable input order.
func (r *LockRepository) FindActive(ctx context.Context) ([]domain.TimeLock, error) {
	query := `SELECT` + lockColumns + ` FROM time_locks WHERE is_active ORDER BY period_start`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to find active locks")
	}
	defer rows.Close()

	return scanLocks(rows)
}

// List returns all locks ordered by period start.
func (r *LockRepository) List(ctx context.Context) ([]domain.TimeLock, error) {
	query := `SELECT` + lockColumns + ` FROM time_locks ORDER BY period_start`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list locks")
	}
	defer rows.Close()

	return scanLocks(rows)
}

// Deactivate unlocks a lock, recording who and when.
func (r *LockRepository) Deactivate(ctx context.Context, id, unlockedBy string, at time.Time) error {
	query := `
		UPDATE time_locks
		SET is_active = FALSE, unlocked_by = $2, unlocked_at = $3
		WHERE id = $1 AND is_active
	`

	tag, err := r.db.Exec(ctx, query, id, unlockedBy, at)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to deactivate time lock")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("time_lock", id)
	}
	return nil
}

func scanLock(sc rowScanner) (*domain.TimeLock, error) {
	lock := &domain.TimeLock{}
	err := sc.Scan(
		&lock.ID,
		&lock.ProjectID,
		&lock.ClientID,
		&lock.PeriodStart,
		&lock.PeriodEnd,
		&lock.Reason,
		&lock.LockedBy,
		&lock.LockedAt,
		&lock.UnlockedBy,
		&lock.UnlockedAt,
		&lock.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return lock, nil
}

func scanLocks(rows pgx.Rows) ([]domain.TimeLock, error) {
	var locks []domain.TimeLock
	for rows.Next() {
		lock, err := scanLock(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan time lock")
		}
		locks = append(locks, *lock)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read time locks")
	}
	return locks, nil
}
