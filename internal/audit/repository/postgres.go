package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/fekuna/vialtrack-service/internal/audit/dto"
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

func (r *PGRepository) Insert(ctx context.Context, l *model.AuditLog) error {
	query := `
        INSERT INTO audit_logs (
            id, account_id, action, entity_type, entity_id, actor_type,
            user_id, description, metadata, created_at
        )
        VALUES (
            :id, :account_id, :action, :entity_type, :entity_id, :actor_type,
            :user_id, :description, :metadata, :created_at
        )
    `
	if _, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, l); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.AuditFilters) ([]model.AuditLog, int, error) {
	conditions := []string{"account_id = :account_id"}
	args := map[string]interface{}{"account_id": f.AccountID}

	if f.Action != "" {
		conditions = append(conditions, "action = :action")
		args["action"] = f.Action
	}
	if f.EntityType != "" {
		conditions = append(conditions, "entity_type = :entity_type")
		args["entity_type"] = f.EntityType
	}
	if f.EntityID != "" {
		conditions = append(conditions, "entity_id = :entity_id")
		args["entity_id"] = f.EntityID
	}
	if f.ActorType != "" {
		conditions = append(conditions, "actor_type = :actor_type")
		args["actor_type"] = f.ActorType
	}
	if f.UserID != "" {
		conditions = append(conditions, "CAST(user_id AS TEXT) = :user_id")
		args["user_id"] = f.UserID
	}
	if f.From != nil {
		conditions = append(conditions, "created_at >= :from")
		args["from"] = *f.From
	}
	if f.To != nil {
		conditions = append(conditions, "created_at <= :to")
		args["to"] = *f.To
	}
	whereClause := " WHERE " + strings.Join(conditions, " AND ")
	db := postgres.Conn(ctx, r.DB)

	// Count
	var count int
	if err := postgres.NamedGet(ctx, db, &count, "SELECT count(*) FROM audit_logs"+whereClause, args); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	// List
	query := "SELECT * FROM audit_logs" + whereClause + " ORDER BY created_at DESC, id DESC"
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (f.Page-1)*f.PageSize)

	logs := []model.AuditLog{}
	if err := postgres.NamedSelect(ctx, db, &logs, query, args); err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, count, nil
}
