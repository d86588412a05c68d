package dto

import (
	"time"

	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/shopspring/decimal"
)

// ExpiringVial is an ACTIVE vial close to (or past) its expiration date.
type ExpiringVial struct {
	VialID            string          `json:"vial_id"`
	ProductName       string          `json:"product_name"`
	LotNumber         string          `json:"lot_number"`
	ExpirationDate    time.Time       `json:"expiration_date"`
	DaysUntilExpiry   int             `json:"days_until_expiry"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
}

type BeyondUseVial struct {
	VialID          string    `json:"vial_id"`
	ProductName     string    `json:"product_name"`
	LotNumber       string    `json:"lot_number"`
	OpenedAt        time.Time `json:"opened_at"`
	BeyondUseExpiry time.Time `json:"beyond_use_expiry"`
}

type LowStockProduct struct {
	ProductID        string `json:"product_id"`
	Name             string `json:"name"`
	Brand            string `json:"brand"`
	ActiveVials      int    `json:"active_vials"`
	ReorderThreshold int    `json:"reorder_threshold"`
}

type ExpiringBuckets struct {
	Within7Days  int `json:"within_7_days"`
	Within14Days int `json:"within_8_to_14_days"`
	Within30Days int `json:"within_15_to_30_days"`
}

type Dashboard struct {
	ActiveVials       int               `json:"active_vials"`
	Expiring          ExpiringBuckets   `json:"expiring"`
	ExpiringVials     []ExpiringVial    `json:"expiring_vials"`
	ExpiredActive     []ExpiringVial    `json:"expired_active"`
	BeyondUseExceeded []BeyondUseVial   `json:"beyond_use_exceeded"`
	OpenDiscrepancies int               `json:"open_discrepancies"`
	RecentUsage       []model.UsageLog  `json:"recent_usage"`
	LowStock          []LowStockProduct `json:"low_stock"`
	GeneratedAt       time.Time         `json:"generated_at"`
}
