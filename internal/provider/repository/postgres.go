package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/pkg/postgres"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, p *model.Provider) error {
	query := `
        INSERT INTO providers (id, account_id, name, initials, email, is_active, created_at)
        VALUES (:id, :account_id, :name, :initials, :email, :is_active, :created_at)
    `
	if _, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("insert provider: %w", err)
	}
	return nil
}

func (r *PGRepository) Update(ctx context.Context, p *model.Provider) error {
	query := `
        UPDATE providers
        SET name = :name, initials = :initials, email = :email, is_active = :is_active
        WHERE id = :id AND account_id = :account_id
    `
	if _, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("update provider: %w", err)
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, accountID, id string) (*model.Provider, error) {
	if !postgres.ValidID(id) {
		return nil, nil
	}
	var p model.Provider
	query := `SELECT * FROM providers WHERE id = $1 AND account_id = $2 LIMIT 1`
	if err := postgres.Conn(ctx, r.DB).GetContext(ctx, &p, query, id, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find provider: %w", err)
	}
	return &p, nil
}

func (r *PGRepository) FindAll(ctx context.Context, accountID string, activeOnly bool) ([]model.Provider, error) {
	providers := []model.Provider{}
	query := `SELECT * FROM providers WHERE account_id = $1`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY name ASC`
	if err := postgres.Conn(ctx, r.DB).SelectContext(ctx, &providers, query, accountID); err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	return providers, nil
}
