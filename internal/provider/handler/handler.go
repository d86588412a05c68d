package handler

import (
	"net/http"

	"github.com/fekuna/vialtrack-service/internal/auth"
	"github.com/fekuna/vialtrack-service/internal/pkg/httpx"
	"github.com/fekuna/vialtrack-service/internal/provider"
	"github.com/fekuna/vialtrack-service/internal/provider/dto"
	"github.com/gorilla/mux"
)

var createProviderSchema = httpx.MustCompileSchema("create-provider", `{
	"type": "object",
	"required": ["name", "initials"],
	"properties": {
		"name": {"type": "string", "minLength": 1, "maxLength": 120},
		"initials": {"type": "string", "minLength": 1, "maxLength": 5},
		"email": {"type": "string", "maxLength": 254}
	}
}`)

type ProviderHandler struct {
	uc provider.UseCase
}

func NewProviderHandler(uc provider.UseCase) *ProviderHandler {
	return &ProviderHandler{uc: uc}
}

func (h *ProviderHandler) Register(r *mux.Router) {
	r.HandleFunc("/providers", h.ListProviders).Methods(http.MethodGet)
	r.HandleFunc("/providers", h.CreateProvider).Methods(http.MethodPost)
	r.HandleFunc("/providers/{id}/deactivate", h.DeactivateProvider).Methods(http.MethodPost)
}

type createProviderRequest struct {
	Name     string `json:"name"`
	Initials string `json:"initials"`
	Email    string `json:"email"`
}

func (h *ProviderHandler) CreateProvider(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())

	var req createProviderRequest
	if err := httpx.Decode(r, createProviderSchema, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	p, err := h.uc.CreateProvider(r.Context(), &dto.CreateProviderInput{
		AccountID: user.AccountID,
		UserID:    user.UserID,
		Name:      req.Name,
		Initials:  req.Initials,
		Email:     req.Email,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]interface{}{"provider": p})
}

func (h *ProviderHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())
	activeOnly := r.URL.Query().Get("all") != "true"

	providers, err := h.uc.ListProviders(r.Context(), user.AccountID, activeOnly)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"providers": providers})
}

func (h *ProviderHandler) DeactivateProvider(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())
	p, err := h.uc.DeactivateProvider(r.Context(), &dto.DeactivateProviderInput{
		ID:        mux.Vars(r)["id"],
		AccountID: user.AccountID,
		UserID:    user.UserID,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"provider": p})
}
