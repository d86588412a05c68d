package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/pkg/postgres"
	"github.com/fekuna/vialtrack-service/internal/usage/dto"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, u *model.UsageLog) error {
	query := `
        INSERT INTO usage_logs (
            id, account_id, vial_id, provider_id, logged_by_id, quantity_used,
            patient_reference, treatment_area, notes, used_at
        )
        VALUES (
            :id, :account_id, :vial_id, :provider_id, :logged_by_id, :quantity_used,
            :patient_reference, :treatment_area, :notes, :used_at
        )
    `
	if _, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, u); err != nil {
		return fmt.Errorf("insert usage log: %w", err)
	}
	return nil
}

type usageRow struct {
	model.UsageLog
	VialLotNumber         string          `db:"vial_lot_number"`
	VialProductID         string          `db:"vial_product_id"`
	VialStatus            string          `db:"vial_status"`
	VialRemainingQuantity decimal.Decimal `db:"vial_remaining_quantity"`
	ProductName           string          `db:"product_name"`
	ProductBrand          string          `db:"product_brand"`
	ProductUnitType       string          `db:"product_unit_type"`
	ProviderName          *string         `db:"provider_name"`
	ProviderInitials      *string         `db:"provider_initials"`
	LoggedByName          *string         `db:"logged_by_name"`
}

func (r *usageRow) toModel() model.UsageLog {
	u := r.UsageLog
	u.Vial = &model.Vial{
		BaseModel:         model.BaseModel{ID: r.VialID},
		AccountID:         r.AccountID,
		ProductID:         r.VialProductID,
		LotNumber:         r.VialLotNumber,
		Status:            model.VialStatus(r.VialStatus),
		RemainingQuantity: r.VialRemainingQuantity,
		Product: &model.Product{
			BaseModel: model.BaseModel{ID: r.VialProductID},
			AccountID: r.AccountID,
			Name:      r.ProductName,
			Brand:     r.ProductBrand,
			UnitType:  model.UnitType(r.ProductUnitType),
		},
	}
	if r.ProviderID != nil && r.ProviderName != nil {
		u.Provider = &model.Provider{ID: *r.ProviderID, AccountID: r.AccountID, Name: *r.ProviderName}
		if r.ProviderInitials != nil {
			u.Provider.Initials = *r.ProviderInitials
		}
	}
	if r.LoggedByName != nil {
		u.LoggedByName = *r.LoggedByName
	}
	return u
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.UsageFilters) ([]model.UsageLog, error) {
	if (f.VialID != "" && !postgres.ValidID(f.VialID)) || (f.ProviderID != "" && !postgres.ValidID(f.ProviderID)) {
		return []model.UsageLog{}, nil
	}

	conditions := []string{"u.account_id = :account_id"}
	args := map[string]interface{}{"account_id": f.AccountID}

	if f.VialID != "" {
		conditions = append(conditions, "u.vial_id = :vial_id")
		args["vial_id"] = f.VialID
	}
	if f.ProviderID != "" {
		conditions = append(conditions, "u.provider_id = :provider_id")
		args["provider_id"] = f.ProviderID
	}
	if f.From != nil {
		conditions = append(conditions, "u.used_at >= :from")
		args["from"] = *f.From
	}
	if f.To != nil {
		conditions = append(conditions, "u.used_at <= :to")
		args["to"] = *f.To
	}

	query := `
        SELECT u.id, u.account_id, u.vial_id, u.provider_id, u.logged_by_id, u.quantity_used,
               u.patient_reference, u.treatment_area, u.notes, u.used_at,
               v.lot_number AS vial_lot_number, v.product_id AS vial_product_id,
               v.status AS vial_status, v.remaining_quantity AS vial_remaining_quantity,
               p.name AS product_name, p.brand AS product_brand, p.unit_type AS product_unit_type,
               pr.name AS provider_name, pr.initials AS provider_initials,
               usr.name AS logged_by_name
        FROM usage_logs u
        JOIN vials v ON v.id = u.vial_id
        JOIN products p ON p.id = v.product_id
        LEFT JOIN providers pr ON pr.id = u.provider_id
        LEFT JOIN users usr ON usr.id = u.logged_by_id
        WHERE ` + strings.Join(conditions, " AND ") + `
        ORDER BY u.used_at DESC, u.id DESC` + fmt.Sprintf(" LIMIT %d", f.Limit)

	rows := []usageRow{}
	if err := postgres.NamedSelect(ctx, postgres.Conn(ctx, r.DB), &rows, query, args); err != nil {
		return nil, fmt.Errorf("list usage logs: %w", err)
	}

	logs := make([]model.UsageLog, 0, len(rows))
	for i := range rows {
		logs = append(logs, rows[i].toModel())
	}
	return logs, nil
}
