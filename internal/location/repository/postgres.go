package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/pkg/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, l *model.Location) error {
	query := `
        INSERT INTO locations (id, account_id, name, type, created_at)
        VALUES (:id, :account_id, :name, :type, :created_at)
    `
	if _, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, l); err != nil {
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, accountID, id string) (*model.Location, error) {
	if !postgres.ValidID(id) {
		return nil, nil
	}
	var l model.Location
	query := `SELECT * FROM locations WHERE id = $1 AND account_id = $2 LIMIT 1`
	if err := postgres.Conn(ctx, r.DB).GetContext(ctx, &l, query, id, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find location: %w", err)
	}
	return &l, nil
}

func (r *PGRepository) FindByIDs(ctx context.Context, accountID string, ids []string) ([]model.Location, error) {
	locations := []model.Location{}
	ids = postgres.ValidIDs(ids)
	if len(ids) == 0 {
		return locations, nil
	}
	query := `SELECT * FROM locations WHERE account_id = $1 AND id = ANY($2)`
	if err := postgres.Conn(ctx, r.DB).SelectContext(ctx, &locations, query, accountID, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find locations: %w", err)
	}
	return locations, nil
}

func (r *PGRepository) FindAll(ctx context.Context, accountID string) ([]model.Location, error) {
	locations := []model.Location{}
	query := `SELECT * FROM locations WHERE account_id = $1 ORDER BY name ASC`
	if err := postgres.Conn(ctx, r.DB).SelectContext(ctx, &locations, query, accountID); err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return locations, nil
}
