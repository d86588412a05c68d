package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/vialtrack-service/internal/discrepancy/dto"
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

func (r *PGRepository) Create(ctx context.Context, d *model.Discrepancy) error {
	query := `
        INSERT INTO discrepancies (
            id, account_id, vial_id, type, description, status, resolution_notes,
            created_by_id, resolved_by_id, created_at, resolved_at
        )
        VALUES (
            :id, :account_id, :vial_id, :type, :description, :status, :resolution_notes,
            :created_by_id, :resolved_by_id, :created_at, :resolved_at
        )
    `
	if _, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("insert discrepancy: %w", err)
	}
	return nil
}

func (r *PGRepository) Update(ctx context.Context, d *model.Discrepancy) error {
	query := `
        UPDATE discrepancies
        SET status = :status,
            resolution_notes = :resolution_notes,
            resolved_by_id = :resolved_by_id,
            resolved_at = :resolved_at
        WHERE id = :id AND account_id = :account_id
    `
	if _, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("update discrepancy: %w", err)
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, accountID, id string) (*model.Discrepancy, error) {
	return r.findOne(ctx, `SELECT * FROM discrepancies WHERE id = $1 AND account_id = $2`, id, accountID)
}

func (r *PGRepository) FindByIDForUpdate(ctx context.Context, accountID, id string) (*model.Discrepancy, error) {
	return r.findOne(ctx, `SELECT * FROM discrepancies WHERE id = $1 AND account_id = $2 FOR UPDATE`, id, accountID)
}

func (r *PGRepository) findOne(ctx context.Context, query, id, accountID string) (*model.Discrepancy, error) {
	if !postgres.ValidID(id) {
		return nil, nil
	}
	var d model.Discrepancy
	if err := postgres.Conn(ctx, r.DB).GetContext(ctx, &d, query, id, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find discrepancy: %w", err)
	}
	return &d, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.DiscrepancyFilters) ([]model.Discrepancy, error) {
	if f.VialID != "" && !postgres.ValidID(f.VialID) {
		return []model.Discrepancy{}, nil
	}

	conditions := []string{"account_id = :account_id"}
	args := map[string]interface{}{"account_id": f.AccountID}

	if f.Status != "" {
		conditions = append(conditions, "status = :status")
		args["status"] = f.Status
	}
	if f.Type != "" {
		conditions = append(conditions, "type = :type")
		args["type"] = f.Type
	}
	if f.VialID != "" {
		conditions = append(conditions, "vial_id = :vial_id")
		args["vial_id"] = f.VialID
	}

	query := "SELECT * FROM discrepancies WHERE " + strings.Join(conditions, " AND ") + " ORDER BY created_at DESC, id DESC"
	discrepancies := []model.Discrepancy{}
	if err := postgres.NamedSelect(ctx, postgres.Conn(ctx, r.DB), &discrepancies, query, args); err != nil {
		return nil, fmt.Errorf("list discrepancies: %w", err)
	}
	return discrepancies, nil
}

func (r *PGRepository) OpenVialIDs(ctx context.Context, accountID string, t model.DiscrepancyType) (map[string]bool, error) {
	var ids []string
	query := `
        SELECT DISTINCT vial_id FROM discrepancies
        WHERE account_id = $1 AND type = $2 AND vial_id IS NOT NULL
          AND status IN ($3, $4)
    `
	err := postgres.Conn(ctx, r.DB).SelectContext(ctx, &ids, query,
		accountID, t, model.DiscrepancyOpen, model.DiscrepancyInvestigating)
	if err != nil {
		return nil, fmt.Errorf("list open discrepancy vials: %w", err)
	}

	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *PGRepository) CountOpen(ctx context.Context, accountID string) (int, error) {
	var count int
	query := `SELECT count(*) FROM discrepancies WHERE account_id = $1 AND status IN ($2, $3)`
	err := postgres.Conn(ctx, r.DB).GetContext(ctx, &count, query,
		accountID, model.DiscrepancyOpen, model.DiscrepancyInvestigating)
	if err != nil {
		return 0, fmt.Errorf("count open discrepancies: %w", err)
	}
	return count, nil
}

func (r *PGRepository) LockAccount(ctx context.Context, accountID string) error {
	_, err := postgres.Conn(ctx, r.DB).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "discrepancy-detect:"+accountID)
	if err != nil {
		return fmt.Errorf("lock account for detection: %w", err)
	}
	return nil
}
