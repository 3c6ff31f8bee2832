package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tempora-ai/be-timesheets/internal/domain"
	"github.com/tempora-ai/be-timesheets/internal/errors"
	"github.com/tempora-ai/be-timesheets/internal/service"
)

type createLockRequest struct {
	ProjectID   *string   `json:"projectId,omitempty"`
	ClientID    *string   `json:"clientId,omitempty"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
	Reason      string    `json:"reason"`
}

// LocksCollection dispatches POST (create) and GET (list) on the locks
// collection.
func (h *HTTPHandler) LocksCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createLock(w, r)
	case http.MethodGet:
		h.listLocks(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HTTPHandler) createLock(w http.ResponseWriter, r *http.Request) {
	var req createLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.InvalidInput("body", "Invalid request body"))
		return
	}

	lock, err := h.locks.CreateLock(r.Context(), &service.CreateLockRequest{
		ProjectID:   req.ProjectID,
		ClientID:    req.ClientID,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		Reason:      req.Reason,
	}, workflowContext(r))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, lock)
}

func (h *HTTPHandler) listLocks(w http.ResponseWriter, r *http.Request) {
	locks, err := h.locks.ListLocks(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"locks": locks,
		"total": len(locks),
	})
}

// UnlockPeriod handles unlock HTTP requests
func (h *HTTPHandler) UnlockPeriod(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		LockID string `json:"lockId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.InvalidInput("body", "Invalid request body"))
		return
	}
	if req.LockID == "" {
		respondError(w, errors.InvalidInput("lockId", "Lock ID is required"))
		return
	}

	if err := h.locks.Unlock(r.Context(), req.LockID, workflowContext(r)); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "unlocked"})
}

// PreviewAffectedEntries handles lock preview HTTP requests: which entries
// would the proposed lock freeze.
func (h *HTTPHandler) PreviewAffectedEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.InvalidInput("body", "Invalid request body"))
		return
	}

	entries, err := h.locks.AffectedEntries(r.Context(), domain.TimeLock{
		ProjectID:   req.ProjectID,
		ClientID:    req.ClientID,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		IsActive:    true,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   len(entries),
	})
}
