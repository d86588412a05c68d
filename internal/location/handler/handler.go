package handler

import (
	"net/http"

	"github.com/fekuna/vialtrack-service/internal/auth"
	"github.com/fekuna/vialtrack-service/internal/location"
	"github.com/fekuna/vialtrack-service/internal/location/dto"
	"github.com/fekuna/vialtrack-service/internal/pkg/httpx"
	"github.com/gorilla/mux"
)

var createLocationSchema = httpx.MustCompileSchema("create-location", `{
	"type": "object",
	"required": ["name", "type"],
	"properties": {
		"name": {"type": "string", "minLength": 1, "maxLength": 120},
		"type": {"enum": ["FRIDGE", "CABINET", "ROOM", "STORAGE", "OTHER"]}
	}
}`)

type LocationHandler struct {
	uc location.UseCase
}

func NewLocationHandler(uc location.UseCase) *LocationHandler {
	return &LocationHandler{uc: uc}
}

func (h *LocationHandler) Register(r *mux.Router) {
	r.HandleFunc("/locations", h.ListLocations).Methods(http.MethodGet)
	r.HandleFunc("/locations", h.CreateLocation).Methods(http.MethodPost)
}

type createLocationRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (h *LocationHandler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())

	var req createLocationRequest
	if err := httpx.Decode(r, createLocationSchema, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	l, err := h.uc.CreateLocation(r.Context(), &dto.CreateLocationInput{
		AccountID: user.AccountID,
		UserID:    user.UserID,
		Name:      req.Name,
		Type:      req.Type,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]interface{}{"location": l})
}

func (h *LocationHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())
	locations, err := h.uc.ListLocations(r.Context(), user.AccountID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"locations": locations})
}
