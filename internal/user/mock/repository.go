package usermock

import (
	"context"

	"github.com/openkcm/identity-provider/internal/serviceerr"
	"github.com/openkcm/identity-provider/internal/user"
)

type RepositoryOption func(*Repository)

type Repository struct {
	byID    map[string]user.User
	byEmail map[string]user.User

	createErr, findErr error
}

func WithUser(u user.User) RepositoryOption {
	return func(r *Repository) {
		r.byID[u.ID] = u
		r.byEmail[u.Email] = u
	}
}
func WithCreateError(err error) RepositoryOption {
	return func(r *Repository) { r.createErr = err }
}
func WithFindError(err error) RepositoryOption {
	return func(r *Repository) { r.findErr = err }
}

var _ = user.Repository(&Repository{})

func NewInMemRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		byID:    make(map[string]user.User),
		byEmail: make(map[string]user.User),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Repository) Create(_ context.Context, u user.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.byEmail[u.Email]; ok {
		return serviceerr.ErrConflict
	}
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u
	return nil
}

func (r *Repository) FindByID(_ context.Context, id string) (user.User, error) {
	if r.findErr != nil {
		return user.User{}, r.findErr
	}
	if u, ok := r.byID[id]; ok {
		return u, nil
	}
	return user.User{}, serviceerr.ErrNotFound
}

func (r *Repository) FindByEmail(_ context.Context, email string) (user.User, error) {
	if r.findErr != nil {
		return user.User{}, r.findErr
	}
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return user.User{}, serviceerr.ErrNotFound
}
