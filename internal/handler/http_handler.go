// Package handler exposes the approval decision API over HTTP.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/praxishq/be-pm-approvals/internal/errors"
	"github.com/praxishq/be-pm-approvals/internal/logger"
	"github.com/praxishq/be-pm-approvals/internal/service"
)

// firmHeader carries the tenant id resolved by the upstream auth middleware.
const firmHeader = "X-Firm-ID"

// HTTPHandler handles approval HTTP requests.
type HTTPHandler struct {
	service  *service.DecisionService
	timeline *service.TimelineService
	log      *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(service *service.DecisionService, timeline *service.TimelineService, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, timeline: timeline, log: log}
}

// RegisterRoutes mounts the approval API on the router.
func (h *HTTPHandler) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/approvals", h.SubmitApproval).Methods(http.MethodPost)
	api.HandleFunc("/approvals", h.ListApprovals).Methods(http.MethodGet)
	api.HandleFunc("/approvals/bulk-approve", h.BulkApprove).Methods(http.MethodPost)
	api.HandleFunc("/approvals/{id}", h.GetApproval).Methods(http.MethodGet)
	api.HandleFunc("/approvals/{id}/approve", h.ApproveRequest).Methods(http.MethodPost)
	api.HandleFunc("/approvals/{id}/reject", h.RejectRequest).Methods(http.MethodPost)
	api.HandleFunc("/matters/{matterId}/timeline", h.MatterTimeline).Methods(http.MethodGet)
}

// SubmitApproval queues a new approval request.
func (h *HTTPHandler) SubmitApproval(w http.ResponseWriter, r *http.Request) {
	firmID := r.Header.Get(firmHeader)
	if firmID == "" {
		http.Error(w, "Firm ID is required", http.StatusBadRequest)
		return
	}

	var req service.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.FirmID = firmID

	a, err := h.service.Submit(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, a)
}

// ListApprovals returns the firm's approvals, newest first.
func (h *HTTPHandler) ListApprovals(w http.ResponseWriter, r *http.Request) {
	firmID := r.Header.Get(firmHeader)
	if firmID == "" {
		http.Error(w, "Firm ID is required", http.StatusBadRequest)
		return
	}

	var status *string
	if s := r.URL.Query().Get("status"); s != "" {
		status = &s
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	approvals, total, err := h.service.List(r.Context(), firmID, status, pageSize, (page-1)*pageSize)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"approvals": approvals,
		"total":     total,
		"page":      page,
		"pageSize":  pageSize,
	})
}

// GetApproval returns one approval.
func (h *HTTPHandler) GetApproval(w http.ResponseWriter, r *http.Request) {
	firmID := r.Header.Get(firmHeader)
	if firmID == "" {
		http.Error(w, "Firm ID is required", http.StatusBadRequest)
		return
	}

	a, err := h.service.Get(r.Context(), firmID, mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, a)
}

// decisionRequest is the body of approve/reject calls.
type decisionRequest struct {
	DecidedBy string  `json:"decidedBy"`
	Reason    *string `json:"reason,omitempty"`
}

// ApproveRequest approves an approval and executes its action.
func (h *HTTPHandler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	firmID := r.Header.Get(firmHeader)
	if firmID == "" {
		http.Error(w, "Firm ID is required", http.StatusBadRequest)
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	a, err := h.service.Approve(r.Context(), firmID, mux.Vars(r)["id"], req.DecidedBy, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, a)
}

// RejectRequest rejects an approval without executing anything.
func (h *HTTPHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	firmID := r.Header.Get(firmHeader)
	if firmID == "" {
		http.Error(w, "Firm ID is required", http.StatusBadRequest)
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	a, err := h.service.Reject(r.Context(), firmID, mux.Vars(r)["id"], req.DecidedBy, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, a)
}

// bulkApproveRequest is the body of bulk approve calls.
type bulkApproveRequest struct {
	ApprovalIDs []string `json:"approvalIds"`
	DecidedBy   string   `json:"decidedBy"`
	Reason      *string  `json:"reason,omitempty"`
}

// BulkApprove approves a batch of approvals, reporting per-id results.
func (h *HTTPHandler) BulkApprove(w http.ResponseWriter, r *http.Request) {
	firmID := r.Header.Get(firmHeader)
	if firmID == "" {
		http.Error(w, "Firm ID is required", http.StatusBadRequest)
		return
	}

	var req bulkApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.ApprovalIDs) == 0 {
		http.Error(w, "approvalIds must be non-empty", http.StatusBadRequest)
		return
	}

	results := h.service.BulkApprove(r.Context(), firmID, req.ApprovalIDs, req.DecidedBy, req.Reason)
	h.writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// MatterTimeline returns a matter's activity feed, oldest first.
func (h *HTTPHandler) MatterTimeline(w http.ResponseWriter, r *http.Request) {
	firmID := r.Header.Get(firmHeader)
	if firmID == "" {
		http.Error(w, "Firm ID is required", http.StatusBadRequest)
		return
	}

	matterID := mux.Vars(r)["matterId"]
	events, err := h.timeline.MatterTimeline(r.Context(), firmID, matterID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"matterId": matterID,
		"events":   events,
	})
}

// ── response helpers ──────────────────────────────────────────────────────────

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Warn().Err(err).Msg("failed to encode response body")
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.CodeOf(err) {
	case errors.ErrCodeValidation:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeConflict:
		status = http.StatusConflict
	case errors.ErrCodeUnauthorized:
		status = http.StatusForbidden
	}
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("internal error")
	}
	http.Error(w, err.Error(), status)
}
