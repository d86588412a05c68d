package handler

import (
	"net/http"

	"github.com/fekuna/vialtrack-service/internal/auth"
	"github.com/fekuna/vialtrack-service/internal/pkg/httpx"
	"github.com/fekuna/vialtrack-service/internal/usage"
	"github.com/fekuna/vialtrack-service/internal/usage/dto"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

var recordUsageSchema = httpx.MustCompileSchema("record-usage", `{
	"type": "object",
	"required": ["vial_id", "quantity_used"],
	"properties": {
		"vial_id": {"type": "string", "minLength": 1},
		"provider_id": {"type": ["string", "null"]},
		"quantity_used": {"type": "number"},
		"patient_ref": {"type": ["string", "null"], "maxLength": 64},
		"treatment_area": {"type": ["string", "null"], "maxLength": 120},
		"notes": {"type": ["string", "null"], "maxLength": 1000}
	}
}`)

type UsageHandler struct {
	uc usage.UseCase
}

func NewUsageHandler(uc usage.UseCase) *UsageHandler {
	return &UsageHandler{uc: uc}
}

func (h *UsageHandler) Register(r *mux.Router) {
	r.HandleFunc("/usage", h.ListUsage).Methods(http.MethodGet)
	r.HandleFunc("/usage", h.RecordUsage).Methods(http.MethodPost)
}

type recordUsageRequest struct {
	VialID        string          `json:"vial_id"`
	ProviderID    *string         `json:"provider_id"`
	QuantityUsed  decimal.Decimal `json:"quantity_used"`
	PatientRef    *string         `json:"patient_ref"`
	TreatmentArea *string         `json:"treatment_area"`
	Notes         *string         `json:"notes"`
}

func (h *UsageHandler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())

	var req recordUsageRequest
	if err := httpx.Decode(r, recordUsageSchema, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if req.ProviderID != nil && *req.ProviderID == "" {
		req.ProviderID = nil
	}

	log, err := h.uc.RecordUsage(r.Context(), &dto.RecordUsageInput{
		AccountID:     user.AccountID,
		UserID:        user.UserID,
		VialID:        req.VialID,
		ProviderID:    req.ProviderID,
		QuantityUsed:  req.QuantityUsed,
		PatientRef:    req.PatientRef,
		TreatmentArea: req.TreatmentArea,
		Notes:         req.Notes,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]interface{}{"usage_log": log})
}

func (h *UsageHandler) ListUsage(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())
	q := r.URL.Query()
	filters := &dto.UsageFilters{
		AccountID:  user.AccountID,
		VialID:     q.Get("vial_id"),
		ProviderID: q.Get("provider_id"),
	}

	var err error
	if filters.From, err = httpx.QueryTime(r, "from"); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if filters.To, err = httpx.QueryTime(r, "to"); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if filters.Limit, err = httpx.QueryInt(r, "limit", dto.DefaultLimit); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	logs, err := h.uc.ListUsage(r.Context(), filters)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"usage_logs": logs})
}
