package service

import (
	"context"
	"time"

	"github.com/tempora-ai/be-timesheets/internal/domain"
	"github.com/tempora-ai/be-timesheets/internal/finance"
	"github.com/tempora-ai/be-timesheets/internal/logger"
	"github.com/tempora-ai/be-timesheets/internal/repository"
)

// RateCardRepository is the persistence surface the finance service needs.
type RateCardRepository interface {
	Create(ctx context.Context, card *domain.RateCard) error
	GetByID(ctx context.Context, id string) (*domain.RateCard, error)
	FindEffective(ctx context.Context, at time.Time) ([]domain.RateCard, error)
	List(ctx context.Context) ([]domain.RateCard, error)
}

// FinanceService produces billing exports and invoice bundles.
type FinanceService struct {
	entries EntryRepository
	rates   RateCardRepository
	log     *logger.Logger
}

// NewFinanceService creates a new FinanceService.
func NewFinanceService(entries EntryRepository, rates RateCardRepository, log *logger.Logger) *FinanceService {
	return &FinanceService{
		entries: entries,
		rates:   rates,
		log:     log,
	}
}

// CreateRateCard persists a new rate card.
func (s *FinanceService) CreateRateCard(ctx context.Context, card *domain.RateCard) (*domain.RateCard, error) {
	if err := s.rates.Create(ctx, card); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("rate_card_id", card.ID).
		Float64("hourly_rate", card.HourlyRate).
		Str("currency", card.Currency).
		Msg("Rate card created")

	return card, nil
}

// ListRateCards lists all rate cards.
func (s *FinanceService) ListRateCards(ctx context.Context) ([]domain.RateCard, error) {
	return s.rates.List(ctx)
}

// ExportRequest describes a billing export query.
type ExportRequest struct {
	From               time.Time
	To                 time.Time
	ProjectID          *string
	ClientID           *string
	IncludeNonBillable bool
	RoundingInterval   domain.RoundingInterval
	At                 time.Time // rate resolution instant, zero = now
}

// GenerateExport builds a billing export for the requested period. Rates are
// resolved as of req.At.
func (s *FinanceService) GenerateExport(ctx context.Context, req *ExportRequest) (*finance.Export, error) {
	at := req.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	entries, err := s.entries.List(ctx, repository.EntryFilter{
		ProjectID: req.ProjectID,
		ClientID:  req.ClientID,
		From:      &req.From,
		To:        &req.To,
	})
	if err != nil {
		return nil, err
	}

	cards, err := s.rates.FindEffective(ctx, at)
	if err != nil {
		return nil, err
	}

	export := finance.GenerateExport(entries, cards, finance.ExportOptions{
		IncludeNonBillable: req.IncludeNonBillable,
		RoundingInterval:   req.RoundingInterval,
		At:                 at,
	})

	s.log.Info().
		Time("from", req.From).
		Time("to", req.To).
		Int("entry_count", len(export.Entries)).
		Float64("total_cost", export.Summary.TotalCost).
		Msg("Billing export generated")

	return export, nil
}

// BuildInvoice assembles an invoice bundle for a client over a period. It
// maps costs only; marking the entries billed is a separate workflow step.
func (s *FinanceService) BuildInvoice(ctx context.Context, clientID, invoiceID string, from, to time.Time) (*finance.InvoiceBundle, error) {
	entries, err := s.entries.List(ctx, repository.EntryFilter{
		ClientID: &clientID,
		From:     &from,
		To:       &to,
	})
	if err != nil {
		return nil, err
	}

	at := time.Now().UTC()
	cards, err := s.rates.FindEffective(ctx, at)
	if err != nil {
		return nil, err
	}

	costs := finance.CalculateEntryCosts(entries, cards, domain.FifteenMinutes, at)
	bundle := finance.MapToInvoice(entries, costs, invoiceID, clientID)

	s.log.Info().
		Str("client_id", clientID).
		Str("invoice_id", invoiceID).
		Int("entry_count", len(bundle.Entries)).
		Msg("Invoice bundle built")

	return bundle, nil
}
