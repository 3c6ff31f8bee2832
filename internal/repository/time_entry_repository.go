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

const timeEntryColumns = `
	id, project_id, task_id, developer_id, client_id,
	start_at, end_at, duration_minutes, billable, category, tags, status,
	approved_by, approved_at, rejected_by, rejected_at, rejection_reason,
	locked_at, billed_at, invoice_id, created_at, updated_at`

// TimeEntryRepository handles time entry persistence.
type TimeEntryRepository struct {
	db *database.DB
}

// NewTimeEntryRepository creates a new TimeEntryRepository.
func NewTimeEntryRepository(db *database.DB) *TimeEntryRepository {
	return &TimeEntryRepository{db: db}
}

// Create inserts a new entry, assigning its id and timestamps.
func (r *TimeEntryRepository) Create(ctx context.Context, entry *domain.TimeEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Tags == nil {
		entry.Tags = []string{}
	}

	query := `
		INSERT INTO time_entries (id, project_id, task_id, developer_id, client_id,
		                          start_at, end_at, duration_minutes, billable,
		                          category, tags, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		entry.ID,
		entry.ProjectID,
		entry.TaskID,
		entry.DeveloperID,
		entry.ClientID,
		entry.StartAt,
		entry.EndAt,
		entry.DurationMinutes,
		entry.Billable,
		entry.Category,
		entry.Tags,
		entry.Status,
	).Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create time entry")
	}
	return nil
}

// GetByID fetches one entry.
func (r *TimeEntryRepository) GetByID(ctx context.Context, id string) (*domain.TimeEntry, error) {
	query := `SELECT` + timeEntryColumns + ` FROM time_entries WHERE id = $1`

	entry, err := scanTimeEntry(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NotFound("time_entry", id)
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get time entry")
	}
	return entry, nil
}

// FindByIDs fetches the given entries, preserving nothing about order.
// Returns NotFound when any id is missing so workflow batches never operate
// on a silently shrunken set.
func (r *TimeEntryRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.TimeEntry, error) {
	query := `SELECT` + timeEntryColumns + ` FROM time_entries WHERE id = ANY($1)`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to query time entries")
	}
	defer rows.Close()

	entries, err := scanTimeEntries(rows)
	if err != nil {
		return nil, err
	}

	if len(entries) != len(ids) {
		found := make(map[string]bool, len(entries))
		for _, e := range entries {
			found[e.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, errors.NotFound("time_entry", id)
			}
		}
	}
	return entries, nil
}

// EntryFilter narrows List results. Nil fields match everything.
type EntryFilter struct {
	DeveloperID *string
	ProjectID   *string
	ClientID    *string
	Status      *domain.EntryStatus
	From        *time.Time
	To          *time.Time
}

// List returns entries matching the filter, newest start first.
func (r *TimeEntryRepository) List(ctx context.Context, filter EntryFilter) ([]domain.TimeEntry, error) {
	query := `SELECT` + timeEntryColumns + `
		FROM time_entries
		WHERE ($1::text IS NULL OR developer_id = $1)
		  AND ($2::text IS NULL OR project_id = $2)
		  AND ($3::text IS NULL OR client_id = $3)
		  AND ($4::text IS NULL OR status = $4)
		  AND ($5::timestamptz IS NULL OR start_at >= $5)
		  AND ($6::timestamptz IS NULL OR start_at <= $6)
		ORDER BY start_at DESC
	`

	rows, err := r.db.Query(ctx, query,
		filter.DeveloperID, filter.ProjectID, filter.ClientID,
		filter.Status, filter.From, filter.To)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list time entries")
	}
	defer rows.Close()

	return scanTimeEntries(rows)
}

// FindOverlapping returns a developer's entries intersecting [start, end)
// with exclusive bounds, excluding the given entry id when non-empty.
func (r *TimeEntryRepository) FindOverlapping(ctx context.Context, developerID string, start, end time.Time, excludeID string) ([]domain.TimeEntry, error) {
	query := `SELECT` + timeEntryColumns + `
		FROM time_entries
		WHERE developer_id = $1
		  AND start_at < $3
		  AND end_at > $2
		  AND ($4 = '' OR id <> $4)
		ORDER BY start_at
	`

	rows, err := r.db.Query(ctx, query, developerID, start, end, excludeID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to find overlapping entries")
	}
	defer rows.Close()

	return scanTimeEntries(rows)
}

// Update persists the mutable fields of an entry.
func (r *TimeEntryRepository) Update(ctx context.Context, entry *domain.TimeEntry) error {
	tag, err := r.db.Exec(ctx, updateEntrySQL, entryUpdateArgs(entry)...)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update time entry")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("time_entry", entry.ID)
	}
	return nil
}

// SaveWorkflowResult persists updated entries and their audit records in one
// transaction, so a workflow call's output is stored all-or-nothing.
func (r *TimeEntryRepository) SaveWorkflowResult(ctx context.Context, entries []domain.TimeEntry, auditLogs []domain.AuditLog) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		for i := range entries {
			if err := updateEntryTx(ctx, tx, &entries[i]); err != nil {
				return err
			}
		}
		return appendAuditLogsTx(ctx, tx, auditLogs)
	})
}

const updateEntrySQL = `
	UPDATE time_entries
	SET start_at = $2, end_at = $3, duration_minutes = $4, billable = $5,
	    category = $6, tags = $7, status = $8,
	    approved_by = $9, approved_at = $10,
	    rejected_by = $11, rejected_at = $12, rejection_reason = $13,
	    locked_at = $14, billed_at = $15, invoice_id = $16,
	    updated_at = $17
	WHERE id = $1
`

func entryUpdateArgs(entry *domain.TimeEntry) []any {
	return []any{
		entry.ID,
		entry.StartAt, entry.EndAt, entry.DurationMinutes, entry.Billable,
		entry.Category, entry.Tags, entry.Status,
		entry.ApprovedBy, entry.ApprovedAt,
		entry.RejectedBy, entry.RejectedAt, entry.RejectionReason,
		entry.LockedAt, entry.BilledAt, entry.InvoiceID,
		entry.UpdatedAt,
	}
}

func updateEntryTx(ctx context.Context, tx pgx.Tx, entry *domain.TimeEntry) error {
	tag, err := tx.Exec(ctx, updateEntrySQL, entryUpdateArgs(entry)...)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update time entry")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("time_entry", entry.ID)
	}
	return nil
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTimeEntry(sc rowScanner) (*domain.TimeEntry, error) {
	entry := &domain.TimeEntry{}
	err := sc.Scan(
		&entry.ID,
		&entry.ProjectID,
		&entry.TaskID,
		&entry.DeveloperID,
		&entry.ClientID,
		&entry.StartAt,
		&entry.EndAt,
		&entry.DurationMinutes,
		&entry.Billable,
		&entry.Category,
		&entry.Tags,
		&entry.Status,
		&entry.ApprovedBy,
		&entry.ApprovedAt,
		&entry.RejectedBy,
		&entry.RejectedAt,
		&entry.RejectionReason,
		&entry.LockedAt,
		&entry.BilledAt,
		&entry.InvoiceID,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func scanTimeEntries(rows pgx.Rows) ([]domain.TimeEntry, error) {
	var entries []domain.TimeEntry
	for rows.Next() {
		entry, err := scanTimeEntry(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan time entry")
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read time entries")
	}
	return entries, nil
}
