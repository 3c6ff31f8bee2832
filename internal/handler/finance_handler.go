package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/tempora-ai/be-timesheets/internal/domain"
	"github.com/tempora-ai/be-timesheets/internal/errors"
	"github.com/tempora-ai/be-timesheets/internal/service"
)

type createRateCardRequest struct {
	DeveloperID   *string    `json:"developerId,omitempty"`
	ProjectID     *string    `json:"projectId,omitempty"`
	ClientID      *string    `json:"clientId,omitempty"`
	HourlyRate    float64    `json:"hourlyRate"`
	Currency      string     `json:"currency"`
	EffectiveFrom time.Time  `json:"effectiveFrom"`
	EffectiveTo   *time.Time `json:"effectiveTo,omitempty"`
}

// RatesCollection dispatches POST (create) and GET (list) on the rate card
// collection.
func (h *HTTPHandler) RatesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createRateCard(w, r)
	case http.MethodGet:
		h.listRateCards(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HTTPHandler) createRateCard(w http.ResponseWriter, r *http.Request) {
	var req createRateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.InvalidInput("body", "Invalid request body"))
		return
	}
	if req.HourlyRate <= 0 {
		respondError(w, errors.InvalidInput("hourlyRate", "Hourly rate must be positive"))
		return
	}
	if len(req.Currency) != 3 {
		respondError(w, errors.InvalidInput("currency", "Currency must be a 3-letter ISO code"))
		return
	}

	card, err := h.finance.CreateRateCard(r.Context(), &domain.RateCard{
		DeveloperID:   req.DeveloperID,
		ProjectID:     req.ProjectID,
		ClientID:      req.ClientID,
		HourlyRate:    req.HourlyRate,
		Currency:      req.Currency,
		EffectiveFrom: req.EffectiveFrom,
		EffectiveTo:   req.EffectiveTo,
		IsActive:      true,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, card)
}

func (h *HTTPHandler) listRateCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.finance.ListRateCards(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rateCards": cards,
		"total":     len(cards),
	})
}

// GenerateExport handles billing export HTTP requests
func (h *HTTPHandler) GenerateExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		respondError(w, errors.InvalidInput("from", "Must be RFC 3339"))
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		respondError(w, errors.InvalidInput("to", "Must be RFC 3339"))
		return
	}

	req := &service.ExportRequest{From: from, To: to}

	if v := r.URL.Query().Get("project_id"); v != "" {
		req.ProjectID = &v
	}
	if v := r.URL.Query().Get("client_id"); v != "" {
		req.ClientID = &v
	}
	if v := r.URL.Query().Get("include_non_billable"); v != "" {
		req.IncludeNonBillable, _ = strconv.ParseBool(v)
	}
	if v := r.URL.Query().Get("rounding_minutes"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, errors.InvalidInput("rounding_minutes", "Must be an integer"))
			return
		}
		req.RoundingInterval = domain.RoundingInterval(minutes)
	}

	export, err := h.finance.GenerateExport(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, export)
}

type buildInvoiceRequest struct {
	ClientID  string    `json:"clientId"`
	InvoiceID string    `json:"invoiceId"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
}

// BuildInvoice handles invoice bundle HTTP requests
func (h *HTTPHandler) BuildInvoice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req buildInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.InvalidInput("body", "Invalid request body"))
		return
	}
	if req.ClientID == "" {
		respondError(w, errors.InvalidInput("clientId", "Client ID is required"))
		return
	}
	if req.InvoiceID == "" {
		respondError(w, errors.InvalidInput("invoiceId", "Invoice ID is required"))
		return
	}

	bundle, err := h.finance.BuildInvoice(r.Context(), req.ClientID, req.InvoiceID, req.From, req.To)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, bundle)
}
