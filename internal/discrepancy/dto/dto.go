package dto

import "github.com/fekuna/vialtrack-service/internal/model"

const (
	MaxDescription = 1000
	MaxNotes       = 1000
)

type CreateDiscrepancyInput struct {
	AccountID   string
	UserID      string
	VialID      *string
	Type        string
	Description string
}

type UpdateStatusInput struct {
	ID        string
	AccountID string
	UserID    string
	Status    string
	Notes     *string
}

type DiscrepancyFilters struct {
	AccountID string
	Status    string
	Type      string
	VialID    string
}

// DetectResult summarizes one detection pass.
type DetectResult struct {
	Created           []model.Discrepancy `json:"created"`
	ExpiredActive     int                 `json:"expired_active"`
	BeyondUseExceeded int                 `json:"beyond_use_exceeded"`
	Skipped           int                 `json:"skipped"`
}
