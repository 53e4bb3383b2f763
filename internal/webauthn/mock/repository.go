package webauthnmock

import (
	"context"

	"github.com/openkcm/identity-provider/internal/serviceerr"
	"github.com/openkcm/identity-provider/internal/webauthn"
)

type RepositoryOption func(*Repository)

type Repository struct {
	credentials map[string]webauthn.RegisteredCredential

	storeErr, loadErr, listErr, deleteErr error
}

func WithCredential(cred webauthn.RegisteredCredential) RepositoryOption {
	return func(r *Repository) { r.credentials[cred.CredentialID] = cred }
}
func WithStoreError(err error) RepositoryOption {
	return func(r *Repository) { r.storeErr = err }
}
func WithLoadError(err error) RepositoryOption {
	return func(r *Repository) { r.loadErr = err }
}
func WithListError(err error) RepositoryOption {
	return func(r *Repository) { r.listErr = err }
}
func WithDeleteError(err error) RepositoryOption {
	return func(r *Repository) { r.deleteErr = err }
}

var _ = webauthn.Repository(&Repository{})

func NewInMemRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		credentials: make(map[string]webauthn.RegisteredCredential),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Repository) StoreCredential(_ context.Context, cred webauthn.RegisteredCredential) error {
	if r.storeErr != nil {
		return r.storeErr
	}
	r.credentials[cred.CredentialID] = cred
	return nil
}

func (r *Repository) LoadCredential(_ context.Context, credentialID string) (webauthn.RegisteredCredential, error) {
	if r.loadErr != nil {
		return webauthn.RegisteredCredential{}, r.loadErr
	}
	if cred, ok := r.credentials[credentialID]; ok {
		return cred, nil
	}
	return webauthn.RegisteredCredential{}, serviceerr.ErrNotFound
}

func (r *Repository) ListByIdentity(_ context.Context, identity string) ([]webauthn.RegisteredCredential, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var creds []webauthn.RegisteredCredential
	for _, cred := range r.credentials {
		if cred.Identity == identity {
			creds = append(creds, cred)
		}
	}
	return creds, nil
}

func (r *Repository) ListAllCredentials(_ context.Context) ([]webauthn.RegisteredCredential, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	creds := make([]webauthn.RegisteredCredential, 0, len(r.credentials))
	for _, cred := range r.credentials {
		creds = append(creds, cred)
	}
	return creds, nil
}

func (r *Repository) DeleteCredential(_ context.Context, cred webauthn.RegisteredCredential) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.credentials[cred.CredentialID]; !ok {
		return serviceerr.ErrNotFound
	}
	delete(r.credentials, cred.CredentialID)
	return nil
}
