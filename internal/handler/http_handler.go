package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tempora-ai/be-timesheets/internal/domain"
	"github.com/tempora-ai/be-timesheets/internal/errors"
	"github.com/tempora-ai/be-timesheets/internal/logger"
	"github.com/tempora-ai/be-timesheets/internal/repository"
	"github.com/tempora-ai/be-timesheets/internal/service"
)

// HTTPHandler handles HTTP requests
type HTTPHandler struct {
	entries   *service.TimeEntryService
	locks     *service.LockService
	finance   *service.FinanceService
	jwtSecret []byte
	log       *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(
	entries *service.TimeEntryService,
	locks *service.LockService,
	finance *service.FinanceService,
	jwtSecret []byte,
	log *logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		entries:   entries,
		locks:     locks,
		finance:   finance,
		jwtSecret: jwtSecret,
		log:       log,
	}
}

// Routes builds the service mux with authentication and role checks applied.
func (h *HTTPHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/api/v1/entries", h.Authenticate(h.EntriesCollection))
	mux.HandleFunc("/api/v1/entries/get", h.Authenticate(h.GetEntry))
	mux.HandleFunc("/api/v1/entries/audit", h.Authenticate(h.GetEntryAudit))
	mux.HandleFunc("/api/v1/entries/submit", h.Authenticate(h.SubmitEntries))
	mux.HandleFunc("/api/v1/entries/approve", h.RequireRole(h.ApproveEntries, RoleManager, RoleAdmin))
	mux.HandleFunc("/api/v1/entries/reject", h.RequireRole(h.RejectEntries, RoleManager, RoleAdmin))
	mux.HandleFunc("/api/v1/entries/lock", h.RequireRole(h.LockEntries, RoleAdmin))
	mux.HandleFunc("/api/v1/entries/bill", h.RequireRole(h.BillEntries, RoleAdmin))
	mux.HandleFunc("/api/v1/timesheets/submit", h.Authenticate(h.SubmitTimesheet))

	mux.HandleFunc("/api/v1/locks", h.RequireRole(h.LocksCollection, RoleAdmin))
	mux.HandleFunc("/api/v1/locks/unlock", h.RequireRole(h.UnlockPeriod, RoleAdmin))
	mux.HandleFunc("/api/v1/locks/affected", h.RequireRole(h.PreviewAffectedEntries, RoleManager, RoleAdmin))

	mux.HandleFunc("/api/v1/rates", h.RequireRole(h.RatesCollection, RoleAdmin))
	mux.HandleFunc("/api/v1/export", h.RequireRole(h.GenerateExport, RoleManager, RoleAdmin))
	mux.HandleFunc("/api/v1/invoices/build", h.RequireRole(h.BuildInvoice, RoleAdmin))

	return mux
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, errors.HTTPStatus(err), map[string]string{
		"code":    errors.CodeOf(err),
		"message": err.Error(),
	})
}

// workflowContext builds the actor context from the request claims.
func workflowContext(r *http.Request) domain.WorkflowContext {
	claims := ClaimsFromContext(r.Context())
	return domain.WorkflowContext{
		UserID:    claims.UserID,
		UserRole:  claims.Role,
		Timestamp: time.Now().UTC(),
	}
}

type createEntryRequest struct {
	ProjectID   string    `json:"projectId"`
	TaskID      *string   `json:"taskId,omitempty"`
	ClientID    string    `json:"clientId"`
	StartAt     time.Time `json:"startAt"`
	EndAt       time.Time `json:"endAt"`
	Billable    bool      `json:"billable"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags,omitempty"`
	DeveloperID string    `json:"developerId,omitempty"`
}

// EntriesCollection dispatches POST (create) and GET (list) on the entries
// collection.
func (h *HTTPHandler) EntriesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createEntry(w, r)
	case http.MethodGet:
		h.listEntries(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HTTPHandler) createEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.InvalidInput("body", "Invalid request body"))
		return
	}

	claims := ClaimsFromContext(r.Context())
	developerID := req.DeveloperID
	if developerID == "" || claims.Role == RoleDeveloper {
		// Developers only book time for themselves.
		developerID = claims.UserID
	}

	entry, err := h.entries.CreateTimeEntry(r.Context(), &service.CreateTimeEntryRequest{
		ProjectID:   req.ProjectID,
		TaskID:      req.TaskID,
		DeveloperID: developerID,
		ClientID:    req.ClientID,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		Billable:    req.Billable,
		Category:    req.Category,
		Tags:        req.Tags,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, entry)
}

func (h *HTTPHandler) listEntries(w http.ResponseWriter, r *http.Request) {
	filter := repository.EntryFilter{}

	if v := r.URL.Query().Get("project_id"); v != "" {
		filter.ProjectID = &v
	}
	if v := r.URL.Query().Get("client_id"); v != "" {
		filter.ClientID = &v
	}
	if v := r.URL.Query().Get("developer_id"); v != "" {
		filter.DeveloperID = &v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := domain.EntryStatus(v)
		filter.Status = &status
	}
	if v := r.URL.Query().Get("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, errors.InvalidInput("from", "Must be RFC 3339"))
			return
		}
		filter.From = &from
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, errors.InvalidInput("to", "Must be RFC 3339"))
			return
		}
		filter.To = &to
	}

	entries, err := h.entries.ListTimeEntries(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   len(entries),
	})
}

// GetEntry handles get entry HTTP requests
func (h *HTTPHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		respondError(w, errors.InvalidInput("id", "Entry ID is required"))
		return
	}

	entry, err := h.entries.GetTimeEntry(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, entry)
}

// GetEntryAudit handles entry audit trail HTTP requests
func (h *HTTPHandler) GetEntryAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		respondError(w, errors.InvalidInput("id", "Entry ID is required"))
		return
	}

	logs, err := h.entries.GetAuditTrail(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"auditLogs": logs})
}

type batchRequest struct {
	EntryIDs  []string `json:"entryIds"`
	Reason    string   `json:"reason,omitempty"`
	InvoiceID string   `json:"invoiceId,omitempty"`
}

func decodeBatch(w http.ResponseWriter, r *http.Request) (*batchRequest, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.InvalidInput("body", "Invalid request body"))
		return nil, false
	}
	if len(req.EntryIDs) == 0 {
		respondError(w, errors.InvalidInput("entryIds", "At least one entry ID is required"))
		return nil, false
	}

	return &req, true
}

// SubmitEntries handles submit batch HTTP requests
func (h *HTTPHandler) SubmitEntries(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBatch(w, r)
	if !ok {
		return
	}

	entries, err := h.entries.SubmitTimeEntries(r.Context(), req.EntryIDs, workflowContext(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// ApproveEntries handles approve batch HTTP requests
func (h *HTTPHandler) ApproveEntries(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBatch(w, r)
	if !ok {
		return
	}

	entries, err := h.entries.ApproveTimeEntries(r.Context(), req.EntryIDs, workflowContext(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// RejectEntries handles reject batch HTTP requests
func (h *HTTPHandler) RejectEntries(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBatch(w, r)
	if !ok {
		return
	}

	entries, err := h.entries.RejectTimeEntries(r.Context(), req.EntryIDs, workflowContext(r), req.Reason)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// LockEntries handles lock batch HTTP requests
func (h *HTTPHandler) LockEntries(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBatch(w, r)
	if !ok {
		return
	}

	var reason *string
	if req.Reason != "" {
		reason = &req.Reason
	}

	entries, err := h.entries.LockTimeEntries(r.Context(), req.EntryIDs, workflowContext(r), reason)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// BillEntries handles bill batch HTTP requests
func (h *HTTPHandler) BillEntries(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBatch(w, r)
	if !ok {
		return
	}

	entries, err := h.entries.BillTimeEntries(r.Context(), req.EntryIDs, workflowContext(r), req.InvoiceID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

type submitTimesheetRequest struct {
	DeveloperID string    `json:"developerId,omitempty"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
}

// SubmitTimesheet handles timesheet submission HTTP requests
func (h *HTTPHandler) SubmitTimesheet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req submitTimesheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.InvalidInput("body", "Invalid request body"))
		return
	}

	claims := ClaimsFromContext(r.Context())
	developerID := req.DeveloperID
	if developerID == "" || claims.Role == RoleDeveloper {
		developerID = claims.UserID
	}

	result, err := h.entries.SubmitTimesheet(r.Context(), developerID, req.PeriodStart, req.PeriodEnd, workflowContext(r))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
