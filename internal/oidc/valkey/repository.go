package oidcvalkey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/identity-provider/internal/kvstore"
	"github.com/openkcm/identity-provider/internal/oidc"
	"github.com/openkcm/identity-provider/internal/serviceerr"
)

const (
	objectTypeAuthCode    = "authCode"
	objectTypeAccessToken = "accessToken"
)

var (
	ErrStoreCode  = errors.New("setting authorization code into storage")
	ErrGetCode    = errors.New("getting authorization code from store")
	ErrStoreToken = errors.New("setting access token into storage")
	ErrGetToken   = errors.New("getting access token from store")
)

// Repository keeps authorization codes and access tokens in valkey,
// expiry enforced through per-key TTLs.
type Repository struct {
	store *kvstore.Store
}

var _ = oidc.CodeRepository(&Repository{})
var _ = oidc.TokenRepository(&Repository{})

func NewRepository(valkeyClient valkey.Client, prefix string) *Repository {
	return &Repository{
		store: kvstore.New(valkeyClient, prefix),
	}
}

func (r *Repository) StoreCode(ctx context.Context, code oidc.AuthorizationCode) error {
	duration := time.Until(code.ExpiresAt)
	if err := r.store.Set(ctx, objectTypeAuthCode, code.Code, code, duration); err != nil {
		return errors.Join(ErrStoreCode, err)
	}

	return nil
}

func (r *Repository) LoadCode(ctx context.Context, code string) (oidc.AuthorizationCode, error) {
	var stored oidc.AuthorizationCode
	if err := r.store.Get(ctx, objectTypeAuthCode, code, &stored); err != nil {
		return oidc.AuthorizationCode{}, errors.Join(ErrGetCode, err)
	}

	return stored, nil
}

func (r *Repository) DeleteCode(ctx context.Context, code string) error {
	taken, err := r.store.Take(ctx, objectTypeAuthCode, code)
	if err != nil {
		return fmt.Errorf("deleting authorization code from store: %w", err)
	}
	if !taken {
		return serviceerr.ErrNotFound
	}

	return nil
}

func (r *Repository) StoreToken(ctx context.Context, token oidc.AccessToken) error {
	duration := time.Until(token.ExpiresAt)
	if err := r.store.Set(ctx, objectTypeAccessToken, token.Token, token, duration); err != nil {
		return errors.Join(ErrStoreToken, err)
	}

	return nil
}

func (r *Repository) LoadToken(ctx context.Context, token string) (oidc.AccessToken, error) {
	var stored oidc.AccessToken
	if err := r.store.Get(ctx, objectTypeAccessToken, token, &stored); err != nil {
		return oidc.AccessToken{}, errors.Join(ErrGetToken, err)
	}

	return stored, nil
}
