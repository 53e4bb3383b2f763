package challengemock

import (
	"context"

	"github.com/openkcm/identity-provider/internal/challenge"
	"github.com/openkcm/identity-provider/internal/serviceerr"
)

type RepositoryOption func(*Repository)

type Repository struct {
	challenges map[string]challenge.Challenge

	storeErr, loadErr, deleteErr error
}

func WithChallenge(ch challenge.Challenge) RepositoryOption {
	return func(r *Repository) { r.challenges[ch.Identity] = ch }
}
func WithStoreError(err error) RepositoryOption {
	return func(r *Repository) { r.storeErr = err }
}
func WithLoadError(err error) RepositoryOption {
	return func(r *Repository) { r.loadErr = err }
}
func WithDeleteError(err error) RepositoryOption {
	return func(r *Repository) { r.deleteErr = err }
}

var _ = challenge.Repository(&Repository{})

func NewInMemRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		challenges: make(map[string]challenge.Challenge),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Repository) StoreChallenge(_ context.Context, ch challenge.Challenge) error {
	if r.storeErr != nil {
		return r.storeErr
	}
	r.challenges[ch.Identity] = ch
	return nil
}

func (r *Repository) LoadChallenge(_ context.Context, identity string) (challenge.Challenge, error) {
	if r.loadErr != nil {
		return challenge.Challenge{}, r.loadErr
	}
	if ch, ok := r.challenges[identity]; ok {
		return ch, nil
	}
	return challenge.Challenge{}, serviceerr.ErrNotFound
}

func (r *Repository) DeleteChallenge(_ context.Context, identity string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.challenges[identity]; !ok {
		return serviceerr.ErrNotFound
	}
	delete(r.challenges, identity)
	return nil
}
