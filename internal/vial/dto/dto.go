package dto

import (
	"time"

	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/shopspring/decimal"
)

const (
	DefaultPageSize       = 50
	MaxPageSize           = 200
	MaxExpiringWithinDays = 365
)

// VialFilters selects vials within one account. ExpiringWithinDays forces
// status ACTIVE and restricts to now < expiration <= now+days. A PageSize of
// zero returns every match.
type VialFilters struct {
	AccountID          string
	Status             string
	ProductID          string
	LocationID         string
	LotNumber          string
	ExpiringWithinDays *int
	Now                time.Time
	Page               int
	PageSize           int
}

func (f *VialFilters) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
}

// ActiveStock aggregates the ACTIVE vials of one product.
type ActiveStock struct {
	ProductID      string          `db:"product_id"`
	ActiveVials    int             `db:"active_vials"`
	TotalRemaining decimal.Decimal `db:"total_remaining"`
}

type ProductSummary struct {
	Product        model.Product   `json:"product"`
	ActiveVials    int             `json:"active_vials"`
	TotalRemaining decimal.Decimal `json:"total_remaining"`
	LowStock       bool            `json:"low_stock"`
}

// Label is the printable payload for one vial.
type Label struct {
	VialID            string           `json:"vial_id"`
	ProductName       string           `json:"product_name"`
	Brand             string           `json:"brand"`
	LotNumber         string           `json:"lot_number"`
	ExpirationDate    time.Time        `json:"expiration_date"`
	RemainingQuantity decimal.Decimal  `json:"remaining_quantity"`
	InitialQuantity   decimal.Decimal  `json:"initial_quantity"`
	UnitLabel         string           `json:"unit_label"`
	Status            model.VialStatus `json:"status"`
	LocationName      *string          `json:"location_name"`
	ReceivedAt        time.Time        `json:"received_at"`
	OpenedAt          *time.Time       `json:"opened_at"`
	BeyondUseExpiry   *time.Time       `json:"beyond_use_expiry"`
}
