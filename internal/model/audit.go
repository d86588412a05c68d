package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type AuditAction string

const (
	AuditVialReceived        AuditAction = "VIAL_RECEIVED"
	AuditVialOpened          AuditAction = "VIAL_OPENED"
	AuditVialDepleted        AuditAction = "VIAL_DEPLETED"
	AuditVialDisposed        AuditAction = "VIAL_DISPOSED"
	AuditVialQuarantined     AuditAction = "VIAL_QUARANTINED"
	AuditVialExpired         AuditAction = "VIAL_EXPIRED"
	AuditVialReleased        AuditAction = "VIAL_RELEASED"
	AuditUsageLogged         AuditAction = "USAGE_LOGGED"
	AuditUsageEdited         AuditAction = "USAGE_EDITED"
	AuditUsageDeleted        AuditAction = "USAGE_DELETED"
	AuditAdjustmentMade      AuditAction = "ADJUSTMENT_MADE"
	AuditDiscrepancyCreated  AuditAction = "DISCREPANCY_CREATED"
	AuditDiscrepancyUpdated  AuditAction = "DISCREPANCY_UPDATED"
	AuditDiscrepancyResolved AuditAction = "DISCREPANCY_RESOLVED"
	AuditUserCreated         AuditAction = "USER_CREATED"
	AuditUserUpdated         AuditAction = "USER_UPDATED"
	AuditUserDeleted         AuditAction = "USER_DELETED"
	AuditSettingsChanged     AuditAction = "SETTINGS_CHANGED"
	AuditLogin               AuditAction = "LOGIN"
	AuditLogout              AuditAction = "LOGOUT"
	AuditPasswordReset       AuditAction = "PASSWORD_RESET"
)

func (a AuditAction) Valid() bool {
	switch a {
	case AuditVialReceived, AuditVialOpened, AuditVialDepleted, AuditVialDisposed,
		AuditVialQuarantined, AuditVialExpired, AuditVialReleased,
		AuditUsageLogged, AuditUsageEdited, AuditUsageDeleted,
		AuditAdjustmentMade,
		AuditDiscrepancyCreated, AuditDiscrepancyUpdated, AuditDiscrepancyResolved,
		AuditUserCreated, AuditUserUpdated, AuditUserDeleted,
		AuditSettingsChanged,
		AuditLogin, AuditLogout, AuditPasswordReset:
		return true
	}
	return false
}

type EntityType string

const (
	EntityVial        EntityType = "VIAL"
	EntityUsage       EntityType = "USAGE"
	EntityProduct     EntityType = "PRODUCT"
	EntityLocation    EntityType = "LOCATION"
	EntityProvider    EntityType = "PROVIDER"
	EntityDiscrepancy EntityType = "DISCREPANCY"
	EntityUser        EntityType = "USER"
	EntityAccount     EntityType = "ACCOUNT"
)

func (e EntityType) Valid() bool {
	switch e {
	case EntityVial, EntityUsage, EntityProduct, EntityLocation, EntityProvider,
		EntityDiscrepancy, EntityUser, EntityAccount:
		return true
	}
	return false
}

type ActorType string

const (
	ActorUser   ActorType = "USER"
	ActorSystem ActorType = "SYSTEM"
)

func (a ActorType) Valid() bool {
	switch a {
	case ActorUser, ActorSystem:
		return true
	}
	return false
}

// Metadata is a structured JSON payload stored as JSONB.
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("metadata: unsupported source type")
	}
	out := Metadata{}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

type AuditLog struct {
	ID          string      `db:"id" json:"id"`
	AccountID   string      `db:"account_id" json:"account_id"`
	Action      AuditAction `db:"action" json:"action"`
	EntityType  EntityType  `db:"entity_type" json:"entity_type"`
	EntityID    *string     `db:"entity_id" json:"entity_id"`
	ActorType   ActorType   `db:"actor_type" json:"actor_type"`
	UserID      *string     `db:"user_id" json:"user_id"`
	Description string      `db:"description" json:"description"`
	Metadata    Metadata    `db:"metadata" json:"metadata"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}
