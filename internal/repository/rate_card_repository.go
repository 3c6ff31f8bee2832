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

const rateCardColumns = `
	id, developer_id, project_id, client_id, hourly_rate, currency,
	effective_from, effective_to, is_active, created_at, updated_at`

// RateCardRepository handles rate card persistence. Cards are created and
// edited here but never mutated by the finance engine.
type RateCardRepository struct {
	db *database.DB
}

// NewRateCardRepository creates a new RateCardRepository.
func NewRateCardRepository(db *database.DB) *RateCardRepository {
	return &RateCardRepository{db: db}
}

// Create inserts a rate card.
func (r *RateCardRepository) Create(ctx context.Context, card *domain.RateCard) error {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}

	query := `
		INSERT INTO rate_cards (id, developer_id, project_id, client_id,
		                        hourly_rate, currency, effective_from, effective_to, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		card.ID, card.DeveloperID, card.ProjectID, card.ClientID,
		card.HourlyRate, card.Currency, card.EffectiveFrom, card.EffectiveTo, card.IsActive,
	).Scan(&card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create rate card")
	}
	return nil
}

// GetByID fetches one rate card.
func (r *RateCardRepository) GetByID(ctx context.Context, id string) (*domain.RateCard, error) {
	query := `SELECT` + rateCardColumns + ` FROM rate_cards WHERE id = $1`

	card, err := scanRateCard(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NotFound("rate_card", id)
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get rate card")
	}
	return card, nil
}

// FindEffective returns active cards whose effective window contains the
// given instant. Resolution precedence happens in the finance package; this
// only narrows the candidate set.
func (r *RateCardRepository) FindEffective(ctx context.Context, at time.Time) ([]domain.RateCard, error) {
	query := `SELECT` + rateCardColumns + `
		FROM rate_cards
		WHERE is_active
		  AND effective_from <= $1
		  AND (effective_to IS NULL OR effective_to >= $1)
		ORDER BY effective_from DESC
	`

	rows, err := r.db.Query(ctx, query, at)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to find effective rate cards")
	}
	defer rows.Close()

	return scanRateCards(rows)
}

// List returns every rate card, newest effective window first.
func (r *RateCardRepository) List(ctx context.Context) ([]domain.RateCard, error) {
	query := `SELECT` + rateCardColumns + ` FROM rate_cards ORDER BY effective_from DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list rate cards")
	}
	defer rows.Close()

	return scanRateCards(rows)
}

func scanRateCard(sc rowScanner) (*domain.RateCard, error) {
	card := &domain.RateCard{}
	err := sc.Scan(
		&card.ID,
		&card.DeveloperID,
		&card.ProjectID,
		&card.ClientID,
		&card.HourlyRate,
		&card.Currency,
		&card.EffectiveFrom,
		&card.EffectiveTo,
		&card.IsActive,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return card, nil
}

func scanRateCards(rows pgx.Rows) ([]domain.RateCard, error) {
	var cards []domain.RateCard
	for rows.Next() {
		card, err := scanRateCard(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan rate card")
		}
		cards = append(cards, *card)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read rate cards")
	}
	return cards, nil
}
