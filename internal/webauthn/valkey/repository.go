package webauthnvalkey

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/identity-provider/internal/kvstore"
	"github.com/openkcm/identity-provider/internal/webauthn"
)

const (
	objectTypePasskey      = "passkey"
	objectTypePasskeyOwner = "passkeyOwner"
)

var (
	ErrStoreCredential = errors.New("setting credential into storage")
	ErrGetCredential   = errors.New("getting credential from store")
	ErrListCredentials = errors.New("listing credentials from store")
)

// Repository keys each credential twice: under its credential id for
// assertion lookups and under an identity-derived owner key for
// allow-list scans. Credentials carry no TTL.
type Repository struct {
	store *kvstore.Store
}

var _ = webauthn.Repository(&Repository{})

func NewRepository(valkeyClient valkey.Client, prefix string) *Repository {
	return &Repository{
		store: kvstore.New(valkeyClient, prefix),
	}
}

func (r *Repository) StoreCredential(ctx context.Context, cred webauthn.RegisteredCredential) error {
	var errs []error
	if err := r.store.Set(ctx, objectTypePasskey, cred.CredentialID, cred, 0); err != nil {
		errs = append(errs, err)
	}
	if err := r.store.Set(ctx, objectTypePasskeyOwner, ownerKey(cred), cred, 0); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		if err := r.DeleteCredential(ctx, cred); err != nil {
			return errors.Join(append(errs, err)...)
		}
		return errors.Join(ErrStoreCredential, errors.Join(errs...))
	}

	return nil
}

func (r *Repository) LoadCredential(ctx context.Context, credentialID string) (webauthn.RegisteredCredential, error) {
	var cred webauthn.RegisteredCredential
	if err := r.store.Get(ctx, objectTypePasskey, credentialID, &cred); err != nil {
		return webauthn.RegisteredCredential{}, errors.Join(ErrGetCredential, err)
	}

	return cred, nil
}

func (r *Repository) ListByIdentity(ctx context.Context, identity string) ([]webauthn.RegisteredCredential, error) {
	var creds []webauthn.RegisteredCredential
	if err := kvstore.ScanObjects(ctx, r.store, objectTypePasskeyOwner, ownerPattern(identity), &creds); err != nil {
		return nil, errors.Join(ErrListCredentials, err)
	}

	return creds, nil
}

func (r *Repository) ListAllCredentials(ctx context.Context) ([]webauthn.RegisteredCredential, error) {
	var creds []webauthn.RegisteredCredential
	if err := kvstore.ScanObjects(ctx, r.store, objectTypePasskeyOwner, "*", &creds); err != nil {
		return nil, errors.Join(ErrListCredentials, err)
	}

	return creds, nil
}

func (r *Repository) DeleteCredential(ctx context.Context, cred webauthn.RegisteredCredential) error {
	if err := r.store.Destroy(ctx, objectTypePasskey, cred.CredentialID); err != nil {
		return fmt.Errorf("deleting credential from store: %w", err)
	}
	if err := r.store.Destroy(ctx, objectTypePasskeyOwner, ownerKey(cred)); err != nil {
		return fmt.Errorf("deleting credential owner index from store: %w", err)
	}

	return nil
}

// ownerKey derives the owner index entry for a credential. Both
// segments are base64url encoded so an identity or credential id can
// never collide with the separator or smuggle MATCH metacharacters
// into a scan. The separator is outside the base64url alphabet.
func ownerKey(cred webauthn.RegisteredCredential) string {
	return encodeSegment(cred.Identity) + "." + encodeSegment(cred.CredentialID)
}

// ownerPattern builds the MATCH pattern selecting exactly the owner
// index entries of one identity.
func ownerPattern(identity string) string {
	return encodeSegment(identity) + ".*"
}

func encodeSegment(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}
