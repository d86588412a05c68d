package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200

	MaxPatientRef    = 64
	MaxTreatmentArea = 120
	MaxNotes         = 1000
)

type RecordUsageInput struct {
	AccountID     string
	UserID        string
	VialID        string
	ProviderID    *string
	QuantityUsed  decimal.Decimal
	PatientRef    *string
	TreatmentArea *string
	Notes         *string
}

type UsageFilters struct {
	AccountID  string
	VialID     string
	ProviderID string
	From       *time.Time
	To         *time.Time
	Limit      int
}

func (f *UsageFilters) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
}
