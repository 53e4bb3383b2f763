package challengevalkey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/identity-provider/internal/challenge"
	"github.com/openkcm/identity-provider/internal/kvstore"
)

const objectTypeChallenge = "challenge"

var (
	ErrStoreChallenge = errors.New("setting challenge into storage")
	ErrGetChallenge   = errors.New("getting challenge from store")
)

type Repository struct {
	store *kvstore.Store
}

var _ = challenge.Repository(&Repository{})

func NewRepository(valkeyClient valkey.Client, prefix string) *Repository {
	return &Repository{
		store: kvstore.New(valkeyClient, prefix),
	}
}

func (r *Repository) StoreChallenge(ctx context.Context, ch challenge.Challenge) error {
	duration := time.Until(ch.ExpiresAt)
	if err := r.store.Set(ctx, objectTypeChallenge, ch.Identity, ch, duration); err != nil {
		return errors.Join(ErrStoreChallenge, err)
	}

	return nil
}

func (r *Repository) LoadChallenge(ctx context.Context, identity string) (challenge.Challenge, error) {
	var ch challenge.Challenge
	if err := r.store.Get(ctx, objectTypeChallenge, identity, &ch); err != nil {
		return challenge.Challenge{}, errors.Join(ErrGetChallenge, err)
	}

	return ch, nil
}

func (r *Repository) DeleteChallenge(ctx context.Context, identity string) error {
	if err := r.store.Destroy(ctx, objectTypeChallenge, identity); err != nil {
		return fmt.Errorf("deleting challenge from store: %w", err)
	}

	return nil
}
