package usecase

import (
	"github.com/fekuna/vialtrack-service/internal/pkg/apperror"
	"github.com/shopspring/decimal"
)

// Column bounds: units_per_vial is NUMERIC(12,3), cost_per_vial NUMERIC(12,2).
const (
	fillScale = 3
	costScale = 2
)

var (
	maxFill = decimal.New(1, 9)
	maxCost = decimal.New(1, 10)
)

func validateFill(unitsPerVial decimal.Decimal) error {
	if unitsPerVial.Sign() <= 0 {
		return apperror.Validation("units per vial must be greater than 0")
	}
	if !unitsPerVial.Equal(unitsPerVial.Round(fillScale)) {
		return apperror.Validation("units per vial allows at most 3 decimal places")
	}
	if unitsPerVial.GreaterThanOrEqual(maxFill) {
		return apperror.Validation("units per vial is too large")
	}
	return nil
}

func validateSettings(reorderThreshold int, beyondUseHours *int, costPerVial *decimal.Decimal) error {
	if reorderThreshold < 0 {
		return apperror.Validation("reorder threshold must not be negative")
	}
	if beyondUseHours != nil && *beyondUseHours <= 0 {
		return apperror.Validation("beyond-use hours must be greater than 0")
	}
	if costPerVial != nil {
		switch {
		case costPerVial.Sign() < 0:
			return apperror.Validation("cost per vial must not be negative")
		case !costPerVial.Equal(costPerVial.Round(costScale)):
			return apperror.Validation("cost per vial allows at most 2 decimal places")
		case costPerVial.GreaterThanOrEqual(maxCost):
			return apperror.Validation("cost per vial is too large")
		}
	}
	return nil
}
