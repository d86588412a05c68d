package model

import "time"

type LocationType string

const (
	LocationFridge  LocationType = "FRIDGE"
	LocationCabinet LocationType = "CABINET"
	LocationRoom    LocationType = "ROOM"
	LocationStorage LocationType = "STORAGE"
	LocationOther   LocationType = "OTHER"
)

func (t LocationType) Valid() bool {
	switch t {
	case LocationFridge, LocationCabinet, LocationRoom, LocationStorage, LocationOther:
		return true
	}
	return false
}

// DefaultLocationName is created for every new account.
const DefaultLocationName = "Main Storage"

type Location struct {
	ID        string       `db:"id" json:"id"`
	AccountID string       `db:"account_id" json:"account_id"`
	Name      string       `db:"name" json:"name"`
	Type      LocationType `db:"type" json:"type"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

type Provider struct {
	ID        string    `db:"id" json:"id"`
	AccountID string    `db:"account_id" json:"account_id"`
	Name      string    `db:"name" json:"name"`
	Initials  string    `db:"initials" json:"initials"`
	Email     *string   `db:"email" json:"email"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
