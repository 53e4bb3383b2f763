package oidcmock

import (
	"context"
	"time"

	"github.com/openkcm/identity-provider/internal/oidc"
	"github.com/openkcm/identity-provider/internal/serviceerr"
)

type RepositoryOption func(*Repository)

// Repository is an in-memory code and token store. Expiry is checked on
// read so tests can backdate ExpiresAt.
type Repository struct {
	codes  map[string]oidc.AuthorizationCode
	tokens map[string]oidc.AccessToken

	storeCodeErr, loadCodeErr, deleteCodeErr error
	storeTokenErr, loadTokenErr              error
}

func WithCode(code oidc.AuthorizationCode) RepositoryOption {
	return func(r *Repository) { r.codes[code.Code] = code }
}
func WithToken(token oidc.AccessToken) RepositoryOption {
	return func(r *Repository) { r.tokens[token.Token] = token }
}
func WithStoreCodeError(err error) RepositoryOption {
	return func(r *Repository) { r.storeCodeErr = err }
}
func WithLoadCodeError(err error) RepositoryOption {
	return func(r *Repository) { r.loadCodeErr = err }
}
func WithDeleteCodeError(err error) RepositoryOption {
	return func(r *Repository) { r.deleteCodeErr = err }
}
func WithStoreTokenError(err error) RepositoryOption {
	return func(r *Repository) { r.storeTokenErr = err }
}
func WithLoadTokenError(err error) RepositoryOption {
	return func(r *Repository) { r.loadTokenErr = err }
}

var _ = oidc.CodeRepository(&Repository{})
var _ = oidc.TokenRepository(&Repository{})

func NewInMemRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		codes:  make(map[string]oidc.AuthorizationCode),
		tokens: make(map[string]oidc.AccessToken),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Repository) StoreCode(_ context.Context, code oidc.AuthorizationCode) error {
	if r.storeCodeErr != nil {
		return r.storeCodeErr
	}
	r.codes[code.Code] = code
	return nil
}

func (r *Repository) LoadCode(_ context.Context, code string) (oidc.AuthorizationCode, error) {
	if r.loadCodeErr != nil {
		return oidc.AuthorizationCode{}, r.loadCodeErr
	}
	stored, ok := r.codes[code]
	if !ok || time.Now().After(stored.ExpiresAt) {
		return oidc.AuthorizationCode{}, serviceerr.ErrNotFound
	}
	return stored, nil
}

func (r *Repository) DeleteCode(_ context.Context, code string) error {
	if r.deleteCodeErr != nil {
		return r.deleteCodeErr
	}
	if _, ok := r.codes[code]; !ok {
		return serviceerr.ErrNotFound
	}
	delete(r.codes, code)
	return nil
}

func (r *Repository) StoreToken(_ context.Context, token oidc.AccessToken) error {
	if r.storeTokenErr != nil {
		return r.storeTokenErr
	}
	r.tokens[token.Token] = token
	return nil
}

func (r *Repository) LoadToken(_ context.Context, token string) (oidc.AccessToken, error) {
	if r.loadTokenErr != nil {
		return oidc.AccessToken{}, r.loadTokenErr
	}
	stored, ok := r.tokens[token]
	if !ok || time.Now().After(stored.ExpiresAt) {
		return oidc.AccessToken{}, serviceerr.ErrNotFound
	}
	return stored, nil
}
