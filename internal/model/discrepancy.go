package model

import "time"

type DiscrepancyType string

const (
	DiscrepancyCountMismatch     DiscrepancyType = "COUNT_MISMATCH"
	DiscrepancyExpiredActive     DiscrepancyType = "EXPIRED_ACTIVE"
	DiscrepancyBeyondUseExceeded DiscrepancyType = "BEYOND_USE_EXCEEDED"
	DiscrepancyOther             DiscrepancyType = "OTHER"
)

func (t DiscrepancyType) Valid() bool {
	switch t {
	case DiscrepancyCountMismatch, DiscrepancyExpiredActive, DiscrepancyBeyondUseExceeded, DiscrepancyOther:
		return true
	}
	return false
}

type DiscrepancyStatus string

const (
	DiscrepancyOpen          DiscrepancyStatus = "OPEN"
	DiscrepancyInvestigating DiscrepancyStatus = "INVESTIGATING"
	DiscrepancyResolved      DiscrepancyStatus = "RESOLVED"
	DiscrepancyDismissed     DiscrepancyStatus = "DISMISSED"
)

func (s DiscrepancyStatus) Valid() bool {
	switch s {
	case DiscrepancyOpen, DiscrepancyInvestigating, DiscrepancyResolved, DiscrepancyDismissed:
		return true
	}
	return false
}

// IsOpen reports whether the discrepancy still needs attention.
func (s DiscrepancyStatus) IsOpen() bool {
	switch s {
	case DiscrepancyOpen, DiscrepancyInvestigating:
		return true
	case DiscrepancyResolved, DiscrepancyDismissed:
		return false
	}
	return false
}

func (s DiscrepancyStatus) CanTransitionTo(target DiscrepancyStatus) bool {
	switch s {
	case DiscrepancyOpen:
		switch target {
		case DiscrepancyInvestigating, DiscrepancyResolved, DiscrepancyDismissed:
			return true
		case DiscrepancyOpen:
			return false
		}
	case DiscrepancyInvestigating:
		switch target {
		case DiscrepancyResolved, DiscrepancyDismissed:
			return true
		case DiscrepancyOpen, DiscrepancyInvestigating:
			return false
		}
	case DiscrepancyResolved, DiscrepancyDismissed:
		return false
	}
	return false
}

// TransitionAction is the audit action recorded when moving to s.
func (s DiscrepancyStatus) TransitionAction() AuditAction {
	switch s {
	case DiscrepancyResolved, DiscrepancyDismissed:
		return AuditDiscrepancyResolved
	case DiscrepancyOpen:
		return AuditDiscrepancyCreated
	case DiscrepancyInvestigating:
		return AuditDiscrepancyUpdated
	}
	return AuditDiscrepancyUpdated
}

type Discrepancy struct {
	ID              string            `db:"id" json:"id"`
	AccountID       string            `db:"account_id" json:"account_id"`
	VialID          *string           `db:"vial_id" json:"vial_id"`
	Type            DiscrepancyType   `db:"type" json:"type"`
	Description     string            `db:"description" json:"description"`
	Status          DiscrepancyStatus `db:"status" json:"status"`
	ResolutionNotes *string           `db:"resolution_notes" json:"resolution_notes"`
	CreatedByID     *string           `db:"created_by_id" json:"created_by_id"`
	ResolvedByID    *string           `db:"resolved_by_id" json:"resolved_by_id"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	ResolvedAt      *time.Time        `db:"resolved_at" json:"resolved_at"`
}
