package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fekuna/vialtrack-service/internal/auth"
	"github.com/fekuna/vialtrack-service/internal/pkg/apperror"
	"github.com/fekuna/vialtrack-service/internal/pkg/httpx"
	"github.com/fekuna/vialtrack-service/internal/vial"
	"github.com/fekuna/vialtrack-service/internal/vial/dto"
	"github.com/gorilla/mux"
)

var intakeSchema = httpx.MustCompileSchema("intake", `{
	"type": "object",
	"required": ["vials"],
	"properties": {
		"vials": {
			"type": "array",
			"minItems": 1,
			"maxItems": 50,
			"items": {
				"type": "object",
				"required": ["product_id", "lot_number", "expiration_date", "quantity"],
				"properties": {
					"product_id": {"type": "string", "minLength": 1},
					"lot_number": {"type": "string", "minLength": 1, "maxLength": 64},
					"expiration_date": {"type": "string", "minLength": 10},
					"quantity": {"type": "integer", "minimum": 1, "maximum": 100},
					"location_id": {"type": ["string", "null"]}
				}
			}
		}
	}
}`)

var changeStatusSchema = httpx.MustCompileSchema("change-status", `{
	"type": "object",
	"required": ["status", "reason"],
	"properties": {
		"status": {"enum": ["ACTIVE", "EXPIRED", "DISPOSED", "QUARANTINED"]},
		"reason": {"type": "string", "minLength": 1, "maxLength": 500}
	}
}`)

var moveVialSchema = httpx.MustCompileSchema("move-vial", `{
	"type": "object",
	"required": ["location_id"],
	"properties": {
		"location_id": {"type": ["string", "null"]}
	}
}`)

type VialHandler struct {
	uc vial.UseCase
}

func NewVialHandler(uc vial.UseCase) *VialHandler {
	return &VialHandler{uc: uc}
}

func (h *VialHandler) Register(r *mux.Router) {
	r.HandleFunc("/inventory", h.ListInventory).Methods(http.MethodGet)
	r.HandleFunc("/inventory/export", h.ExportInventory).Methods(http.MethodGet)
	r.HandleFunc("/inventory/intake", h.Intake).Methods(http.MethodPost)
	r.HandleFunc("/vials/{id}", h.GetVial).Methods(http.MethodGet)
	r.HandleFunc("/vials/{id}/label", h.Label).Methods(http.MethodGet)
	r.HandleFunc("/vials/{id}/status", h.ChangeStatus).Methods(http.MethodPost)
	r.HandleFunc("/vials/{id}/open", h.OpenVial).Methods(http.MethodPost)
	r.HandleFunc("/vials/{id}/location", h.MoveVial).Methods(http.MethodPut)
}

type intakeEntryRequest struct {
	ProductID      string  `json:"product_id"`
	LotNumber      string  `json:"lot_number"`
	ExpirationDate string  `json:"expiration_date"`
	Quantity       int     `json:"quantity"`
	LocationID     *string `json:"location_id"`
}

type intakeRequest struct {
	Vials []intakeEntryRequest `json:"vials"`
}

func (h *VialHandler) Intake(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())

	var req intakeRequest
	if err := httpx.Decode(r, intakeSchema, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	entries := make([]dto.IntakeEntry, 0, len(req.Vials))
	for i, v := range req.Vials {
		exp, err := parseDate(v.ExpirationDate)
		if err != nil {
			httpx.WriteError(w, r, apperror.Validation(fmt.Sprintf("vials[%d]: expiration date must be YYYY-MM-DD", i)))
			return
		}
		entries = append(entries, dto.IntakeEntry{
			ProductID:      v.ProductID,
			LotNumber:      v.LotNumber,
			ExpirationDate: exp,
			Quantity:       v.Quantity,
			LocationID:     v.LocationID,
		})
	}

	vials, err := h.uc.Intake(r.Context(), user.AccountID, user.UserID, entries)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"vials_created": len(vials),
		"vials":         vials,
	})
}

func (h *VialHandler) ListInventory(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())
	filters, err := parseFilters(r, user.AccountID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	vials, total, err := h.uc.ListVials(r.Context(), filters)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	summary, err := h.uc.Summary(r.Context(), user.AccountID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"vials":     vials,
		"total":     total,
		"page":      filters.Page,
		"page_size": filters.PageSize,
		"summary":   summary,
	})
}

func (h *VialHandler) ExportInventory(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())
	filters, err := parseFilters(r, user.AccountID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.uc.Export(r.Context(), filters, &buf); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	filename := fmt.Sprintf("inventory-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *VialHandler) GetVial(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())
	v, err := h.uc.GetVial(r.Context(), user.AccountID, mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"vial": v})
}

func (h *VialHandler) Label(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())
	label, err := h.uc.Label(r.Context(), user.AccountID, mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"label": label})
}

type changeStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (h *VialHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())

	var req changeStatusRequest
	if err := httpx.Decode(r, changeStatusSchema, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	v, err := h.uc.ChangeStatus(r.Context(), &dto.ChangeStatusInput{
		AccountID: user.AccountID,
		UserID:    user.UserID,
		VialID:    mux.Vars(r)["id"],
		Status:    req.Status,
		Reason:    req.Reason,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"vial": v})
}

func (h *VialHandler) OpenVial(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())
	v, err := h.uc.OpenVial(r.Context(), user.AccountID, user.UserID, mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"vial": v})
}

type moveVialRequest struct {
	LocationID *string `json:"location_id"`
}

func (h *VialHandler) MoveVial(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())

	var req moveVialRequest
	if err := httpx.Decode(r, moveVialSchema, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	v, err := h.uc.MoveVial(r.Context(), &dto.MoveVialInput{
		AccountID:  user.AccountID,
		UserID:     user.UserID,
		VialID:     mux.Vars(r)["id"],
		LocationID: req.LocationID,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"vial": v})
}

func parseFilters(r *http.Request, accountID string) (*dto.VialFilters, error) {
	q := r.URL.Query()
	filters := &dto.VialFilters{
		AccountID:  accountID,
		Status:     q.Get("status"),
		ProductID:  q.Get("product_id"),
		LocationID: q.Get("location_id"),
		LotNumber:  q.Get("search"),
	}
	var err error
	if filters.ExpiringWithinDays, err = httpx.QueryIntPtr(r, "expiring"); err != nil {
		return nil, err
	}
	if filters.Page, err = httpx.QueryInt(r, "page", 1); err != nil {
		return nil, err
	}
	if filters.PageSize, err = httpx.QueryInt(r, "page_size", dto.DefaultPageSize); err != nil {
		return nil, err
	}
	return filters, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

