package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

type ProductCategory string

const (
	CategoryNeurotoxin    ProductCategory = "NEUROTOXIN"
	CategoryFiller        ProductCategory = "FILLER"
	CategoryBiostimulator ProductCategory = "BIOSTIMULATOR"
	CategorySkincare      ProductCategory = "SKINCARE"
	CategoryOther         ProductCategory = "OTHER"
)

func (c ProductCategory) Valid() bool {
	switch c {
	case CategoryNeurotoxin, CategoryFiller, CategoryBiostimulator, CategorySkincare, CategoryOther:
		return true
	}
	return false
}

type UnitType string

const (
	UnitUnits UnitType = "UNITS"
	UnitML    UnitType = "ML"
	UnitMG    UnitType = "MG"
)

func (u UnitType) Valid() bool {
	switch u {
	case UnitUnits, UnitML, UnitMG:
		return true
	}
	return false
}

// Label is the lower-case unit name used in messages and labels.
func (u UnitType) Label() string {
	return strings.ToLower(string(u))
}

// DefaultReorderThreshold applies when a product is created without one.
const DefaultReorderThreshold = 2

type Product struct {
	BaseModel
	AccountID        string           `db:"account_id" json:"account_id"`
	Name             string           `db:"name" json:"name"`
	Brand            string           `db:"brand" json:"brand"`
	Category         ProductCategory  `db:"category" json:"category"`
	UnitType         UnitType         `db:"unit_type" json:"unit_type"`
	UnitsPerVial     decimal.Decimal  `db:"units_per_vial" json:"units_per_vial"`
	ReorderThreshold int              `db:"reorder_threshold" json:"reorder_threshold"`
	BeyondUseHours   *int             `db:"beyond_use_hours" json:"beyond_use_hours"`
	CostPerVial      *decimal.Decimal `db:"cost_per_vial" json:"cost_per_vial"`
	IsActive         bool             `db:"is_active" json:"is_active"`
}
