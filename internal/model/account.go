package model

import "time"

type Plan string

const (
	PlanTrial        Plan = "TRIAL"
	PlanStarter      Plan = "STARTER"
	PlanProfessional Plan = "PROFESSIONAL"
	PlanEnterprise   Plan = "ENTERPRISE"
)

type SubscriptionStatus string

const (
	SubscriptionTrial    SubscriptionStatus = "TRIAL"
	SubscriptionActive   SubscriptionStatus = "ACTIVE"
	SubscriptionPastDue  SubscriptionStatus = "PAST_DUE"
	SubscriptionCanceled SubscriptionStatus = "CANCELED"
)

// TrialPeriod is how long a new account stays on the trial plan.
const TrialPeriod = 14 * 24 * time.Hour

type Account struct {
	BaseModel
	ClinicName         string             `db:"clinic_name" json:"clinic_name"`
	Plan               Plan               `db:"plan" json:"plan"`
	SubscriptionStatus SubscriptionStatus `db:"subscription_status" json:"subscription_status"`
	TrialEndsAt        *time.Time         `db:"trial_ends_at" json:"trial_ends_at"`
}

type UserRole string

const (
	RoleOwner UserRole = "OWNER"
	RoleAdmin UserRole = "ADMIN"
	RoleStaff UserRole = "STAFF"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleStaff:
		return true
	}
	return false
}

// CanManageUsers reports whether the role may create or change other users.
func (r UserRole) CanManageUsers() bool {
	switch r {
	case RoleOwner, RoleAdmin:
		return true
	case RoleStaff:
		return false
	}
	return false
}

type User struct {
	BaseModel
	AccountID    string   `db:"account_id" json:"account_id"`
	Email        string   `db:"email" json:"email"`
	PasswordHash string   `db:"password_hash" json:"-"`
	Name         string   `db:"name" json:"name"`
	Role         UserRole `db:"role" json:"role"`
	IsActive     bool     `db:"is_active" json:"is_active"`
}
