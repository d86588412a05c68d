package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type VialStatus string

const (
	VialActive      VialStatus = "ACTIVE"
	VialDepleted    VialStatus = "DEPLETED"
	VialExpired     VialStatus = "EXPIRED"
	VialDisposed    VialStatus = "DISPOSED"
	VialQuarantined VialStatus = "QUARANTINED"
)

func (s VialStatus) Valid() bool {
	switch s {
	case VialActive, VialDepleted, VialExpired, VialDisposed, VialQuarantined:
		return true
	}
	return false
}

// IsTerminal reports whether no operation may ever move the vial out of s.
func (s VialStatus) IsTerminal() bool {
	switch s {
	case VialDepleted, VialDisposed:
		return true
	case VialActive, VialExpired, VialQuarantined:
		return false
	}
	return false
}

// CanTransitionTo reports whether a manual status change from s to target is
// allowed. DEPLETED is only ever reached through usage.
func (s VialStatus) CanTransitionTo(target VialStatus) bool {
	switch s {
	case VialActive:
		switch target {
		case VialDisposed, VialQuarantined, VialExpired:
			return true
		case VialActive, VialDepleted:
			return false
		}
	case VialQuarantined:
		switch target {
		case VialDisposed, VialExpired, VialActive:
			return true
		case VialQuarantined, VialDepleted:
			return false
		}
	case VialDepleted, VialDisposed, VialExpired:
		return false
	}
	return false
}

// TransitionAction is the audit action recorded for a manual change to s.
func (s VialStatus) TransitionAction() AuditAction {
	switch s {
	case VialDisposed:
		return AuditVialDisposed
	case VialQuarantined:
		return AuditVialQuarantined
	case VialExpired:
		return AuditVialExpired
	case VialActive:
		return AuditVialReleased
	case VialDepleted:
		return AuditVialDepleted
	}
	return AuditAdjustmentMade
}

type Vial struct {
	BaseModel
	AccountID         string          `db:"account_id" json:"account_id"`
	ProductID         string          `db:"product_id" json:"product_id"`
	LocationID        *string         `db:"location_id" json:"location_id"`
	LotNumber         string          `db:"lot_number" json:"lot_number"`
	ExpirationDate    time.Time       `db:"expiration_date" json:"expiration_date"`
	InitialQuantity   decimal.Decimal `db:"initial_quantity" json:"initial_quantity"`
	RemainingQuantity decimal.Decimal `db:"remaining_quantity" json:"remaining_quantity"`
	Status            VialStatus      `db:"status" json:"status"`
	StatusReason      *string         `db:"status_reason" json:"status_reason"`
	OpenedAt          *time.Time      `db:"opened_at" json:"opened_at"`
	DepletedAt        *time.Time      `db:"depleted_at" json:"depleted_at"`

	Product  *Product  `db:"-" json:"product,omitempty"`
	Location *Location `db:"-" json:"location,omitempty"`
}

// ApplyUsage decrements the remaining quantity by qty, clamping at zero, and
// marks the vial DEPLETED when nothing is left. Callers check sufficiency and
// status first; this only does the arithmetic.
func (v *Vial) ApplyUsage(qty decimal.Decimal, now time.Time) (depleted bool) {
	remaining := v.RemainingQuantity.Sub(qty)
	if remaining.Sign() <= 0 {
		remaining = decimal.Zero
	}
	v.RemainingQuantity = remaining
	if v.OpenedAt == nil {
		opened := now
		v.OpenedAt = &opened
	}
	if remaining.IsZero() {
		v.Status = VialDepleted
		v.DepletedAt = &now
		depleted = true
	}
	v.UpdatedAt = now
	return depleted
}

// BeyondUseExpiry is opened_at plus the product's beyond-use window, or nil
// when the vial is unopened or the product has no window.
func (v *Vial) BeyondUseExpiry() *time.Time {
	if v.OpenedAt == nil || v.Product == nil || v.Product.BeyondUseHours == nil {
		return nil
	}
	t := v.OpenedAt.Add(time.Duration(*v.Product.BeyondUseHours) * time.Hour)
	return &t
}

var (
	errNegativeRemaining = errors.New("remaining quantity is negative")
	errOverfilled        = errors.New("remaining quantity exceeds initial quantity")
	errDepletedNotEmpty  = errors.New("depleted vial has remaining quantity")
	errEmptyNotDepleted  = errors.New("empty vial is not depleted")
)

// CheckInvariants verifies the ledger invariants that must hold for every
// stored vial.
func (v *Vial) CheckInvariants() error {
	if v.RemainingQuantity.Sign() < 0 {
		return errNegativeRemaining
	}
	if v.RemainingQuantity.GreaterThan(v.InitialQuantity) {
		return errOverfilled
	}
	if v.Status == VialDepleted && !v.RemainingQuantity.IsZero() {
		return errDepletedNotEmpty
	}
	if v.Status == VialActive && v.RemainingQuantity.IsZero() {
		return errEmptyNotDepleted
	}
	return nil
}
