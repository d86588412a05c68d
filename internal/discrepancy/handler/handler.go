package handler

import (
	"net/http"

	"github.com/fekuna/vialtrack-service/internal/auth"
	"github.com/fekuna/vialtrack-service/internal/discrepancy"
	"github.com/fekuna/vialtrack-service/internal/discrepancy/dto"
	"github.com/fekuna/vialtrack-service/internal/pkg/httpx"
	"github.com/gorilla/mux"
)

var createDiscrepancySchema = httpx.MustCompileSchema("create-discrepancy", `{
	"type": "object",
	"required": ["type", "description"],
	"properties": {
		"vial_id": {"type": ["string", "null"]},
		"type": {"enum": ["COUNT_MISMATCH", "EXPIRED_ACTIVE", "BEYOND_USE_EXCEEDED", "OTHER"]},
		"description": {"type": "string", "minLength": 1, "maxLength": 1000}
	}
}`)

var updateStatusSchema = httpx.MustCompileSchema("update-discrepancy-status", `{
	"type": "object",
	"required": ["status"],
	"properties": {
		"status": {"enum": ["OPEN", "INVESTIGATING", "RESOLVED", "DISMISSED"]},
		"notes": {"type": ["string", "null"], "maxLength": 1000}
	}
}`)

type DiscrepancyHandler struct {
	uc discrepancy.UseCase
}

func NewDiscrepancyHandler(uc discrepancy.UseCase) *DiscrepancyHandler {
	return &DiscrepancyHandler{uc: uc}
}

func (h *DiscrepancyHandler) Register(r *mux.Router) {
	r.HandleFunc("/discrepancies", h.ListDiscrepancies).Methods(http.MethodGet)
	r.HandleFunc("/discrepancies", h.CreateDiscrepancy).Methods(http.MethodPost)
	r.HandleFunc("/discrepancies/detect", h.Detect).Methods(http.MethodPost)
	r.HandleFunc("/discrepancies/{id}/status", h.UpdateStatus).Methods(http.MethodPost)
}

type createDiscrepancyRequest struct {
	VialID      *string `json:"vial_id"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
}

func (h *DiscrepancyHandler) CreateDiscrepancy(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())

	var req createDiscrepancyRequest
	if err := httpx.Decode(r, createDiscrepancySchema, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if req.VialID != nil && *req.VialID == "" {
		req.VialID = nil
	}

	d, err := h.uc.CreateDiscrepancy(r.Context(), &dto.CreateDiscrepancyInput{
		AccountID:   user.AccountID,
		UserID:      user.UserID,
		VialID:      req.VialID,
		Type:        req.Type,
		Description: req.Description,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]interface{}{"discrepancy": d})
}

type updateStatusRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

func (h *DiscrepancyHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())

	var req updateStatusRequest
	if err := httpx.Decode(r, updateStatusSchema, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	d, err := h.uc.UpdateStatus(r.Context(), &dto.UpdateStatusInput{
		ID:        mux.Vars(r)["id"],
		AccountID: user.AccountID,
		UserID:    user.UserID,
		Status:    req.Status,
		Notes:     req.Notes,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"discrepancy": d})
}

func (h *DiscrepancyHandler) Detect(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())
	res, err := h.uc.Detect(r.Context(), user.AccountID, user.UserID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *DiscrepancyHandler) ListDiscrepancies(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())
	q := r.URL.Query()
	discrepancies, err := h.uc.ListDiscrepancies(r.Context(), &dto.DiscrepancyFilters{
		AccountID: user.AccountID,
		Status:    q.Get("status"),
		Type:      q.Get("type"),
		VialID:    q.Get("vial_id"),
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"discrepancies": discrepancies})
}
