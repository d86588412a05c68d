package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/fekuna/vialtrack-service/internal/account"
	"github.com/fekuna/vialtrack-service/internal/model"
)

type AccountRepository struct {
	s *Store
}

func (r *AccountRepository) CreateAccount(_ context.Context, a *model.Account) error {
	return r.s.write(func(t *tables) error {
		t.accounts[a.ID] = *a
		return nil
	})
}

func (r *AccountRepository) FindAccountByID(_ context.Context, id string) (*model.Account, error) {
	var out *model.Account
	r.s.read(func(t *tables) {
		if a, ok := t.accounts[id]; ok {
			out = &a
		}
	})
	return out, nil
}

func (r *AccountRepository) CreateUser(_ context.Context, u *model.User) error {
	return r.s.write(func(t *tables) error {
		for _, existing := range t.users {
			if strings.EqualFold(existing.Email, u.Email) {
				return account.ErrEmailTaken
			}
		}
		t.users[u.ID] = *u
		return nil
	})
}

func (r *AccountRepository) FindUserByID(_ context.Context, accountID, id string) (*model.User, error) {
	var out *model.User
	r.s.read(func(t *tables) {
		if u, ok := t.users[id]; ok && u.AccountID == accountID {
			out = &u
		}
	})
	return out, nil
}

func (r *AccountRepository) FindUserByEmail(_ context.Context, email string) (*model.User, error) {
	var out *model.User
	r.s.read(func(t *tables) {
		for _, u := range t.users {
			if u.Email == email {
				u := u
				out = &u
				return
			}
		}
	})
	return out, nil
}

func (r *AccountRepository) FindUsers(_ context.Context, accountID string) ([]model.User, error) {
	users := []model.User{}
	r.s.read(func(t *tables) {
		for _, u := range t.users {
			if u.AccountID == accountID {
				users = append(users, u)
			}
		}
	})
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}
