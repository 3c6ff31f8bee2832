package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/tempora-ai/be-timesheets/internal/database"
	"github.com/tempora-ai/be-timesheets/internal/domain"
	"github.com/tempora-ai/be-timesheets/internal/errors"
)

// AuditLogRepository appends and reads immutable audit records. Append is the
// only mutation exposed.
type AuditLogRepository struct {
	db *database.DB
}

// NewAuditLogRepository creates a new AuditLogRepository.
func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Append inserts the given records.
func (r *AuditLogRepository) Append(ctx context.Context, logs []domain.AuditLog) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		return appendAuditLogsTx(ctx, tx, logs)
	})
}

func appendAuditLogsTx(ctx context.Context, tx pgx.Tx, logs []domain.AuditLog) error {
	query := `
		INSERT INTO audit_logs (id, entity_type, entity_id, action, user_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, log := range logs {
		var metadataJSON []byte
		if log.Metadata != nil {
			var err error
			metadataJSON, err = json.Marshal(log.Metadata)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal audit metadata")
			}
		}

		if _, err := tx.Exec(ctx, query,
			log.ID, log.EntityType, log.EntityID,
			log.Action, log.UserID, metadataJSON, log.CreatedAt,
		); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to append audit log")
		}
	}
	return nil
}

// GetByEntity returns an entity's audit trail oldest-first.
func (r *AuditLogRepository) GetByEntity(ctx context.Context, entityType, entityID string) ([]domain.AuditLog, error) {
	query := `
		SELECT id, entity_type, entity_id, action, user_id, metadata, created_at
		FROM audit_logs
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get audit log")
	}
	defer rows.Close()

	var logs []domain.AuditLog
	for rows.Next() {
		var log domain.AuditLog
		var metadataJSON []byte
		if err := rows.Scan(
			&log.ID, &log.EntityType, &log.EntityID,
			&log.Action, &log.UserID, &metadataJSON, &log.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan audit log")
		}
		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &log.Metadata); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal audit metadata")
			}
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read audit logs")
	}
	return logs, nil
}
