package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type UsageLog struct {
	ID               string          `db:"id" json:"id"`
	AccountID        string          `db:"account_id" json:"account_id"`
	VialID           string          `db:"vial_id" json:"vial_id"`
	ProviderID       *string         `db:"provider_id" json:"provider_id"`
	LoggedByID       string          `db:"logged_by_id" json:"logged_by_id"`
	QuantityUsed     decimal.Decimal `db:"quantity_used" json:"quantity_used"`
	PatientReference *string         `db:"patient_reference" json:"patient_reference"`
	TreatmentArea    *string         `db:"treatment_area" json:"treatment_area"`
	Notes            *string         `db:"notes" json:"notes"`
	UsedAt           time.Time       `db:"used_at" json:"used_at"`

	Vial         *Vial     `db:"-" json:"vial,omitempty"`
	Provider     *Provider `db:"-" json:"provider,omitempty"`
	LoggedByName string    `db:"-" json:"logged_by_name,omitempty"`
}
