package webauthn

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/identity-provider/internal/challenge"
	"github.com/openkcm/identity-provider/internal/config"
	"github.com/openkcm/identity-provider/internal/serviceerr"
)

const authenticationChallengeSize = 16

// Authenticator drives the authentication ceremony: Begin builds the
// allow-list of known credentials, Finish verifies the assertion.
type Authenticator struct {
	challenges  *challenge.Store
	credentials Repository
	rp          config.RelyingParty
}

func NewAuthenticator(challenges *challenge.Store, credentials Repository, rp config.RelyingParty) *Authenticator {
	return &Authenticator{
		challenges:  challenges,
		credentials: credentials,
		rp:          rp,
	}
}

func (a *Authenticator) BeginAuthentication(ctx context.Context, identity string) (RequestOptions, error) {
	creds, err := a.credentials.ListByIdentity(ctx, identity)
	if err != nil {
		return RequestOptions{}, fmt.Errorf("listing credentials: %w", err)
	}
	if len(creds) == 0 {
		return RequestOptions{}, serviceerr.ErrNoPasskeyRegistered
	}

	ch, err := a.challenges.Issue(ctx, identity, authenticationChallengeSize)
	if err != nil {
		return RequestOptions{}, fmt.Errorf("issuing authentication challenge: %w", err)
	}

	allowed := make([]CredentialDescriptor, 0, len(creds))
	for _, cred := range creds {
		allowed = append(allowed, CredentialDescriptor{
			ID:         cred.CredentialID,
			Type:       credentialTypePublicKey,
			Transports: cred.Transports,
		})
	}

	return RequestOptions{
		AllowCredentials: allowed,
		Challenge:        ch.Value,
		RPID:             a.rp.ID,
		Timeout:          a.rp.Timeout,
		UserVerification: "preferred",
	}, nil
}

// FinishAuthentication verifies the assertion end to end. It returns
// the credential that signed on success; failures keep their distinct
// causes for logging while callers surface a uniform result.
func (a *Authenticator) FinishAuthentication(ctx context.Context, identity string, cred AuthenticationCredential) (RegisteredCredential, error) {
	clientData, clientDataRaw, err := decodeClientData(cred.Response.ClientDataJSON)
	if err != nil {
		return RegisteredCredential{}, err
	}

	if err := a.challenges.Match(ctx, identity, clientData.Challenge); err != nil {
		return RegisteredCredential{}, err
	}

	if !strings.Contains(clientData.Origin, a.rp.ID) {
		return RegisteredCredential{}, serviceerr.ErrOriginMismatch
	}

	stored, err := a.credentials.LoadCredential(ctx, cred.ID)
	if err != nil {
		if errors.Is(err, serviceerr.ErrNotFound) {
			return RegisteredCredential{}, serviceerr.ErrPasskeyNotFound
		}

		return RegisteredCredential{}, fmt.Errorf("loading credential: %w", err)
	}
	if stored.Identity != identity {
		return RegisteredCredential{}, serviceerr.ErrPasskeyNotFound
	}

	publicKeyDER, err := base64.RawURLEncoding.DecodeString(stored.PublicKey)
	if err != nil {
		return RegisteredCredential{}, fmt.Errorf("decoding stored public key: %w", err)
	}
	authenticatorData, err := base64.RawURLEncoding.DecodeString(cred.Response.AuthenticatorData)
	if err != nil {
		return RegisteredCredential{}, fmt.Errorf("decoding authenticator data: %w", err)
	}
	sig, err := base64.RawURLEncoding.DecodeString(cred.Response.Signature)
	if err != nil {
		return RegisteredCredential{}, fmt.Errorf("decoding signature: %w", err)
	}

	if err := verifyAssertion(stored.Algorithm, publicKeyDER, authenticatorData, clientDataRaw, sig); err != nil {
		if errors.Is(err, serviceerr.ErrUnsupportedAlgorithm) || errors.Is(err, serviceerr.ErrSignatureInvalid) {
			return RegisteredCredential{}, err
		}

		return RegisteredCredential{}, errors.Join(serviceerr.ErrSignatureInvalid, err)
	}

	if err := a.challenges.Delete(ctx, identity); err != nil {
		return RegisteredCredential{}, err
	}

	slogctx.Info(ctx, "passkey assertion verified", "identity", identity, "credential_id", cred.ID)

	return stored, nil
}
