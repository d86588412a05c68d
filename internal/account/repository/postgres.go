package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fekuna/vialtrack-service/internal/account"
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

func (r *PGRepository) CreateAccount(ctx context.Context, a *model.Account) error {
	query := `
        INSERT INTO accounts (id, clinic_name, plan, subscription_status, trial_ends_at, created_at, updated_at)
        VALUES (:id, :clinic_name, :plan, :subscription_status, :trial_ends_at, :created_at, :updated_at)
    `
	if _, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *PGRepository) FindAccountByID(ctx context.Context, id string) (*model.Account, error) {
	if !postgres.ValidID(id) {
		return nil, nil
	}
	var a model.Account
	err := postgres.Conn(ctx, r.DB).GetContext(ctx, &a, `SELECT * FROM accounts WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &a, nil
}

func (r *PGRepository) CreateUser(ctx context.Context, u *model.User) error {
	query := `
        INSERT INTO users (id, account_id, email, password_hash, name, role, is_active, created_at, updated_at)
        VALUES (:id, :account_id, :email, :password_hash, :name, :role, :is_active, :created_at, :updated_at)
    `
	if _, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, u); err != nil {
		if postgres.IsUniqueViolation(err) {
			return account.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PGRepository) FindUserByID(ctx context.Context, accountID, id string) (*model.User, error) {
	if !postgres.ValidID(id) {
		return nil, nil
	}
	return r.findUser(ctx, `SELECT * FROM users WHERE id = $1 AND account_id = $2`, id, accountID)
}

func (r *PGRepository) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findUser(ctx, `SELECT * FROM users WHERE email = $1`, email)
}

func (r *PGRepository) findUser(ctx context.Context, query string, args ...interface{}) (*model.User, error) {
	var u model.User
	if err := postgres.Conn(ctx, r.DB).GetContext(ctx, &u, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (r *PGRepository) FindUsers(ctx context.Context, accountID string) ([]model.User, error) {
	users := []model.User{}
	query := `SELECT * FROM users WHERE account_id = $1 ORDER BY created_at, id`
	if err := postgres.Conn(ctx, r.DB).SelectContext(ctx, &users, query, accountID); err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	return users, nil
}
