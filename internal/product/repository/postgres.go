package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/pkg/postgres"
	"github.com/fekuna/vialtrack-service/internal/product/dto"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, p *model.Product) error {
	query := `
        INSERT INTO products (
            id, account_id, name, brand, category, unit_type, units_per_vial,
            reorder_threshold, beyond_use_hours, cost_per_vial, is_active,
            created_at, updated_at
        )
        VALUES (
            :id, :account_id, :name, :brand, :category, :unit_type, :units_per_vial,
            :reorder_threshold, :beyond_use_hours, :cost_per_vial, :is_active,
            :created_at, :updated_at
        )
    `
	if _, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *PGRepository) Update(ctx context.Context, p *model.Product) error {
	query := `
        UPDATE products
        SET name = :name,
            brand = :brand,
            category = :category,
            reorder_threshold = :reorder_threshold,
            beyond_use_hours = :beyond_use_hours,
            cost_per_vial = :cost_per_vial,
            is_active = :is_active,
            updated_at = :updated_at
        WHERE id = :id AND account_id = :account_id
    `
	if _, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, accountID, id string) (*model.Product, error) {
	if !postgres.ValidID(id) {
		return nil, nil
	}
	var p model.Product
	query := `SELECT * FROM products WHERE id = $1 AND account_id = $2 LIMIT 1`
	err := postgres.Conn(ctx, r.DB).GetContext(ctx, &p, query, id, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return &p, nil
}

func (r *PGRepository) FindByIDs(ctx context.Context, accountID string, ids []string) ([]model.Product, error) {
	products := []model.Product{}
	ids = postgres.ValidIDs(ids)
	if len(ids) == 0 {
		return products, nil
	}
	query := `SELECT * FROM products WHERE account_id = $1 AND id = ANY($2)`
	if err := postgres.Conn(ctx, r.DB).SelectContext(ctx, &products, query, accountID, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	return products, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ProductFilters) ([]model.Product, error) {
	conditions := []string{"account_id = :account_id"}
	args := map[string]interface{}{"account_id": f.AccountID}

	if f.Category != "" {
		conditions = append(conditions, "category = :category")
		args["category"] = f.Category
	}
	if f.IsActive != nil {
		conditions = append(conditions, "is_active = :is_active")
		args["is_active"] = *f.IsActive
	}

	query := "SELECT * FROM products WHERE " + strings.Join(conditions, " AND ") + " ORDER BY name ASC"
	products := []model.Product{}
	if err := postgres.NamedSelect(ctx, postgres.Conn(ctx, r.DB), &products, query, args); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}
