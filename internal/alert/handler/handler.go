package handler

import (
	"net/http"

	"github.com/fekuna/vialtrack-service/internal/alert"
	"github.com/fekuna/vialtrack-service/internal/auth"
	"github.com/fekuna/vialtrack-service/internal/pkg/httpx"
	"github.com/gorilla/mux"
)

type AlertHandler struct {
	uc alert.UseCase
}

func NewAlertHandler(uc alert.UseCase) *AlertHandler {
	return &AlertHandler{uc: uc}
}

func (h *AlertHandler) Register(r *mux.Router) {
	r.HandleFunc("/alerts", h.Dashboard).Methods(http.MethodGet)
}

func (h *AlertHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())
	d, err := h.uc.Dashboard(r.Context(), user.AccountID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"dashboard": d})
}
