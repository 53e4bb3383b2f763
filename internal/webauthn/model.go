// Package webauthn implements the passkey registration and
// authentication ceremonies: challenge handling, origin checks and
// assertion signature verification against stored public keys.
package webauthn

import (
	"context"
	"time"
)

// RegisteredCredential is a passkey bound to an identity. PublicKey is
// the base64url-encoded SubjectPublicKeyInfo exported by the browser at
// registration time; Algorithm is the COSE identifier recorded with it.
type RegisteredCredential struct {
	CredentialID string    `json:"credentialId"`
	Identity     string    `json:"identity"`
	PublicKey    string    `json:"publicKey"`
	Algorithm    int64     `json:"algorithm"`
	Transports   []string  `json:"transports"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Repository stores registered credentials keyed by credential id and
// indexed by owning identity. A user may hold several credentials;
// registrations are never auto-deleted.
type Repository interface {
	StoreCredential(ctx context.Context, cred RegisteredCredential) error
	LoadCredential(ctx context.Context, credentialID string) (RegisteredCredential, error)
	ListByIdentity(ctx context.Context, identity string) ([]RegisteredCredential, error)
	ListAllCredentials(ctx context.Context) ([]RegisteredCredential, error)
	DeleteCredential(ctx context.Context, cred RegisteredCredential) error
}

// RegistrationCredential is the browser's PublicKeyCredential from a
// create() ceremony, with binary members base64url-encoded.
type RegistrationCredential struct {
	ID       string              `json:"id"`
	RawID    string              `json:"rawId"`
	Type     string              `json:"type"`
	Response AttestationResponse `json:"response"`
}

type AttestationResponse struct {
	ClientDataJSON     string   `json:"clientDataJSON"`
	AttestationObject  string   `json:"attestationObject,omitempty"`
	PublicKey          string   `json:"publicKey"`
	PublicKeyAlgorithm int64    `json:"publicKeyAlgorithm"`
	Transports         []string `json:"transports,omitempty"`
}

// AuthenticationCredential is the browser's PublicKeyCredential from a
// get() ceremony.
type AuthenticationCredential struct {
	ID       string            `json:"id"`
	RawID    string            `json:"rawId"`
	Type     string            `json:"type"`
	Response AssertionResponse `json:"response"`
}

type AssertionResponse struct {
	ClientDataJSON    string `json:"clientDataJSON"`
	AuthenticatorData string `json:"authenticatorData"`
	Signature         string `json:"signature"`
	UserHandle        string `json:"userHandle,omitempty"`
}
