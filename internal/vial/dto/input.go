package dto

import "time"

const (
	MaxIntakeEntries  = 50
	MaxIntakeQuantity = 100
	MaxLotNumber      = 64
	MaxReasonLength   = 500
)

type IntakeEntry struct {
	ProductID      string
	LotNumber      string
	ExpirationDate time.Time
	Quantity       int
	LocationID     *string
}

type ChangeStatusInput struct {
	AccountID string
	UserID    string
	VialID    string
	Status    string
	Reason    string
}

type MoveVialInput struct {
	AccountID  string
	UserID     string
	VialID     string
	LocationID *string
}
