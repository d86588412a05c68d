package dto

import "github.com/shopspring/decimal"

type CreateProductInput struct {
	AccountID        string
	UserID           string
	Name             string
	Brand            string
	Category         string
	UnitType         string
	UnitsPerVial     decimal.Decimal
	ReorderThreshold *int
	BeyondUseHours   *int
	CostPerVial      *decimal.Decimal
}

// UpdateProductInput is a partial update; nil fields are left unchanged.
type UpdateProductInput struct {
	ID               string
	AccountID        string
	UserID           string
	Name             *string
	Brand            *string
	Category         *string
	ReorderThreshold *int
	BeyondUseHours   *int
	ClearBeyondUse   bool
	CostPerVial      *decimal.Decimal
	IsActive         *bool
}
