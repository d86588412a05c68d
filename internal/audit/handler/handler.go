package handler

import (
	"net/http"

	"github.com/fekuna/vialtrack-service/internal/audit"
	"github.com/fekuna/vialtrack-service/internal/audit/dto"
	"github.com/fekuna/vialtrack-service/internal/auth"
	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/pkg/httpx"
	"github.com/gorilla/mux"
)

type AuditHandler struct {
	uc audit.UseCase
}

func NewAuditHandler(uc audit.UseCase) *AuditHandler {
	return &AuditHandler{uc: uc}
}

func (h *AuditHandler) Register(r *mux.Router) {
	r.HandleFunc("/audit", h.List).Methods(http.MethodGet)
}

type listResponse struct {
	Logs     []model.AuditLog `json:"logs"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())
	q := r.URL.Query()

	filters := &dto.AuditFilters{
		AccountID:  user.AccountID,
		Action:     model.AuditAction(q.Get("action")),
		EntityType: model.EntityType(q.Get("entity_type")),
		EntityID:   q.Get("entity_id"),
		ActorType:  model.ActorType(q.Get("actor_type")),
		UserID:     q.Get("user_id"),
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
	if filters.Page, err = httpx.QueryInt(r, "page", 1); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if filters.PageSize, err = httpx.QueryInt(r, "page_size", dto.DefaultPageSize); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	logs, total, err := h.uc.List(r.Context(), filters)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, listResponse{
		Logs:     logs,
		Total:    total,
		Page:     filters.Page,
		PageSize: filters.PageSize,
	})
}
