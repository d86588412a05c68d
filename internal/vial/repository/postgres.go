package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/pkg/postgres"
	"github.com/fekuna/vialtrack-service/internal/vial/dto"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// insertChunk keeps a batch insert under the driver's parameter limit.
const insertChunk = 500

const selectVials = `
    SELECT v.id, v.account_id, v.product_id, v.location_id, v.lot_number, v.expiration_date,
           v.initial_quantity, v.remaining_quantity, v.status, v.status_reason,
           v.opened_at, v.depleted_at, v.created_at, v.updated_at,
           p.name AS product_name, p.brand AS product_brand, p.category AS product_category,
           p.unit_type AS product_unit_type, p.units_per_vial AS product_units_per_vial,
           p.reorder_threshold AS product_reorder_threshold,
           p.beyond_use_hours AS product_beyond_use_hours, p.is_active AS product_is_active,
           l.name AS location_name, l.type AS location_type
    FROM vials v
    JOIN products p ON p.id = v.product_id
    LEFT JOIN locations l ON l.id = v.location_id`

type vialRow struct {
	model.Vial
	ProductName             string          `db:"product_name"`
	ProductBrand            string          `db:"product_brand"`
	ProductCategory         string          `db:"product_category"`
	ProductUnitType         string          `db:"product_unit_type"`
	ProductUnitsPerVial     decimal.Decimal `db:"product_units_per_vial"`
	ProductReorderThreshold int             `db:"product_reorder_threshold"`
	ProductBeyondUseHours   *int            `db:"product_beyond_use_hours"`
	ProductIsActive         bool            `db:"product_is_active"`
	LocationName            *string         `db:"location_name"`
	LocationType            *string         `db:"location_type"`
}

func (r *vialRow) toModel() model.Vial {
	v := r.Vial
	v.Product = &model.Product{
		BaseModel:        model.BaseModel{ID: r.ProductID},
		AccountID:        r.AccountID,
		Name:             r.ProductName,
		Brand:            r.ProductBrand,
		Category:         model.ProductCategory(r.ProductCategory),
		UnitType:         model.UnitType(r.ProductUnitType),
		UnitsPerVial:     r.ProductUnitsPerVial,
		ReorderThreshold: r.ProductReorderThreshold,
		BeyondUseHours:   r.ProductBeyondUseHours,
		IsActive:         r.ProductIsActive,
	}
	if r.LocationID != nil && r.LocationName != nil {
		v.Location = &model.Location{
			ID:        *r.LocationID,
			AccountID: r.AccountID,
			Name:      *r.LocationName,
		}
		if r.LocationType != nil {
			v.Location.Type = model.LocationType(*r.LocationType)
		}
	}
	return v
}

func toModels(rows []vialRow) []model.Vial {
	vials := make([]model.Vial, 0, len(rows))
	for i := range rows {
		vials = append(vials, rows[i].toModel())
	}
	return vials
}

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) CreateBatch(ctx context.Context, vials []model.Vial) error {
	query := `
        INSERT INTO vials (
            id, account_id, product_id, location_id, lot_number, expiration_date,
            initial_quantity, remaining_quantity, status, status_reason,
            opened_at, depleted_at, created_at, updated_at
        )
        VALUES (
            :id, :account_id, :product_id, :location_id, :lot_number, :expiration_date,
            :initial_quantity, :remaining_quantity, :status, :status_reason,
            :opened_at, :depleted_at, :created_at, :updated_at
        )
    `
	db := postgres.Conn(ctx, r.DB)
	for start := 0; start < len(vials); start += insertChunk {
		end := start + insertChunk
		if end > len(vials) {
			end = len(vials)
		}
		if _, err := db.NamedExecContext(ctx, query, vials[start:end]); err != nil {
			return fmt.Errorf("insert vials: %w", err)
		}
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, accountID, id string) (*model.Vial, error) {
	return r.findOne(ctx, selectVials+` WHERE v.id = $1 AND v.account_id = $2`, id, accountID)
}

func (r *PGRepository) FindByIDForUpdate(ctx context.Context, accountID, id string) (*model.Vial, error) {
	return r.findOne(ctx, selectVials+` WHERE v.id = $1 AND v.account_id = $2 FOR UPDATE OF v`, id, accountID)
}

func (r *PGRepository) findOne(ctx context.Context, query string, id, accountID string) (*model.Vial, error) {
	if !postgres.ValidID(id) {
		return nil, nil
	}
	var row vialRow
	if err := postgres.Conn(ctx, r.DB).GetContext(ctx, &row, query, id, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find vial: %w", err)
	}
	v := row.toModel()
	return &v, nil
}

func (r *PGRepository) Update(ctx context.Context, v *model.Vial) error {
	query := `
        UPDATE vials
        SET location_id = :location_id,
            remaining_quantity = :remaining_quantity,
            status = :status,
            status_reason = :status_reason,
            opened_at = :opened_at,
            depleted_at = :depleted_at,
            updated_at = :updated_at
        WHERE id = :id AND account_id = :account_id
    `
	res, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, v)
	if err != nil {
		return fmt.Errorf("update vial: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n != 1 {
		return fmt.Errorf("update vial %s: %d rows affected", v.ID, n)
	}
	return nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.VialFilters) ([]model.Vial, int, error) {
	if (f.ProductID != "" && !postgres.ValidID(f.ProductID)) || (f.LocationID != "" && !postgres.ValidID(f.LocationID)) {
		return []model.Vial{}, 0, nil
	}
	conditions := []string{"v.account_id = :account_id"}
	args := map[string]interface{}{"account_id": f.AccountID}

	if f.ExpiringWithinDays != nil {
		conditions = append(conditions,
			"v.status = :status",
			"v.expiration_date > :now",
			"v.expiration_date <= :until",
		)
		args["status"] = model.VialActive
		args["now"] = f.Now
		args["until"] = f.Now.AddDate(0, 0, *f.ExpiringWithinDays)
	} else if f.Status != "" {
		conditions = append(conditions, "v.status = :status")
		args["status"] = f.Status
	}
	if f.ProductID != "" {
		conditions = append(conditions, "v.product_id = :product_id")
		args["product_id"] = f.ProductID
	}
	if f.LocationID != "" {
		conditions = append(conditions, "v.location_id = :location_id")
		args["location_id"] = f.LocationID
	}
	if f.LotNumber != "" {
		conditions = append(conditions, "v.lot_number ILIKE :lot_number")
		args["lot_number"] = "%" + escapeLike(f.LotNumber) + "%"
	}

	whereClause := " WHERE " + strings.Join(conditions, " AND ")
	db := postgres.Conn(ctx, r.DB)

	// Count
	var count int
	if err := postgres.NamedGet(ctx, db, &count, "SELECT count(*) FROM vials v"+whereClause, args); err != nil {
		return nil, 0, fmt.Errorf("count vials: %w", err)
	}

	// List
	query := selectVials + whereClause + " ORDER BY v.expiration_date ASC, v.created_at DESC, v.id ASC"
	if f.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (f.Page-1)*f.PageSize)
	}

	rows := []vialRow{}
	if err := postgres.NamedSelect(ctx, db, &rows, query, args); err != nil {
		return nil, 0, fmt.Errorf("list vials: %w", err)
	}
	return toModels(rows), count, nil
}

func (r *PGRepository) FindActive(ctx context.Context, accountID string) ([]model.Vial, error) {
	rows := []vialRow{}
	query := selectVials + ` WHERE v.account_id = $1 AND v.status = $2 ORDER BY v.expiration_date ASC, v.created_at DESC`
	if err := postgres.Conn(ctx, r.DB).SelectContext(ctx, &rows, query, accountID, model.VialActive); err != nil {
		return nil, fmt.Errorf("list active vials: %w", err)
	}
	return toModels(rows), nil
}

func (r *PGRepository) SummarizeActive(ctx context.Context, accountID string) ([]dto.ActiveStock, error) {
	stock := []dto.ActiveStock{}
	query := `
        SELECT product_id, count(*) AS active_vials, COALESCE(sum(remaining_quantity), 0) AS total_remaining
        FROM vials
        WHERE account_id = $1 AND status = $2
        GROUP BY product_id
    `
	if err := postgres.Conn(ctx, r.DB).SelectContext(ctx, &stock, query, accountID, model.VialActive); err != nil {
		return nil, fmt.Errorf("summarize vials: %w", err)
	}
	return stock, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
