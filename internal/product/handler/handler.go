package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fekuna/vialtrack-service/internal/auth"
	"github.com/fekuna/vialtrack-service/internal/pkg/httpx"
	"github.com/fekuna/vialtrack-service/internal/product"
	"github.com/fekuna/vialtrack-service/internal/product/dto"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

var createProductSchema = httpx.MustCompileSchema("create-product", `{
	"type": "object",
	"required": ["name", "brand", "category", "unit_type", "units_per_vial"],
	"properties": {
		"name": {"type": "string", "minLength": 1, "maxLength": 120},
		"brand": {"type": "string", "minLength": 1, "maxLength": 120},
		"category": {"enum": ["NEUROTOXIN", "FILLER", "BIOSTIMULATOR", "SKINCARE", "OTHER"]},
		"unit_type": {"enum": ["UNITS", "ML", "MG"]},
		"units_per_vial": {"type": "number", "exclusiveMinimum": 0},
		"reorder_threshold": {"type": "integer", "minimum": 0},
		"beyond_use_hours": {"type": "integer", "minimum": 1},
		"cost_per_vial": {"type": "number", "minimum": 0}
	}
}`)

var updateProductSchema = httpx.MustCompileSchema("update-product", `{
	"type": "object",
	"minProperties": 1,
	"properties": {
		"name": {"type": "string", "minLength": 1, "maxLength": 120},
		"brand": {"type": "string", "minLength": 1, "maxLength": 120},
		"category": {"enum": ["NEUROTOXIN", "FILLER", "BIOSTIMULATOR", "SKINCARE", "OTHER"]},
		"reorder_threshold": {"type": "integer", "minimum": 0},
		"beyond_use_hours": {"type": ["integer", "null"], "minimum": 1},
		"cost_per_vial": {"type": "number", "minimum": 0},
		"is_active": {"type": "boolean"}
	}
}`)

type ProductHandler struct {
	uc product.UseCase
}

func NewProductHandler(uc product.UseCase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

func (h *ProductHandler) Register(r *mux.Router) {
	r.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet)
	r.HandleFunc("/products", h.CreateProduct).Methods(http.MethodPost)
	r.HandleFunc("/products/{id}", h.GetProduct).Methods(http.MethodGet)
	r.HandleFunc("/products/{id}", h.UpdateProduct).Methods(http.MethodPut)
}

type createProductRequest struct {
	Name             string           `json:"name"`
	Brand            string           `json:"brand"`
	Category         string           `json:"category"`
	UnitType         string           `json:"unit_type"`
	UnitsPerVial     decimal.Decimal  `json:"units_per_vial"`
	ReorderThreshold *int             `json:"reorder_threshold"`
	BeyondUseHours   *int             `json:"beyond_use_hours"`
	CostPerVial      *decimal.Decimal `json:"cost_per_vial"`
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())

	var req createProductRequest
	if err := httpx.Decode(r, createProductSchema, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	p, err := h.uc.CreateProduct(r.Context(), &dto.CreateProductInput{
		AccountID:        user.AccountID,
		UserID:           user.UserID,
		Name:             req.Name,
		Brand:            req.Brand,
		Category:         req.Category,
		UnitType:         req.UnitType,
		UnitsPerVial:     req.UnitsPerVial,
		ReorderThreshold: req.ReorderThreshold,
		BeyondUseHours:   req.BeyondUseHours,
		CostPerVial:      req.CostPerVial,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]interface{}{"product": p})
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())
	p, err := h.uc.GetProduct(r.Context(), user.AccountID, mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"product": p})
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())
	filters := &dto.ProductFilters{
		AccountID: user.AccountID,
		Category:  r.URL.Query().Get("category"),
	}
	// Only active products unless ?all=true.
	if r.URL.Query().Get("all") != "true" {
		active := true
		filters.IsActive = &active
	}

	products, err := h.uc.ListProducts(r.Context(), filters)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"products": products})
}

type updateProductRequest struct {
	Name             *string          `json:"name"`
	Brand            *string          `json:"brand"`
	Category         *string          `json:"category"`
	ReorderThreshold *int             `json:"reorder_threshold"`
	BeyondUseHours   nullableInt      `json:"beyond_use_hours"`
	CostPerVial      *decimal.Decimal `json:"cost_per_vial"`
	IsActive         *bool            `json:"is_active"`
}

// nullableInt distinguishes an absent field from an explicit null.
type nullableInt struct {
	Set   bool
	Value *int
}

func (n *nullableInt) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		return nil
	}
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())

	var req updateProductRequest
	if err := httpx.Decode(r, updateProductSchema, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	p, err := h.uc.UpdateProduct(r.Context(), &dto.UpdateProductInput{
		ID:               mux.Vars(r)["id"],
		AccountID:        user.AccountID,
		UserID:           user.UserID,
		Name:             req.Name,
		Brand:            req.Brand,
		Category:         req.Category,
		ReorderThreshold: req.ReorderThreshold,
		BeyondUseHours:   req.BeyondUseHours.Value,
		ClearBeyondUse:   req.BeyondUseHours.Set && req.BeyondUseHours.Value == nil,
		CostPerVial:      req.CostPerVial,
		IsActive:         req.IsActive,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"product": p})
}
