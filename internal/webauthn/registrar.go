package webauthn

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/identity-provider/internal/challenge"
	"github.com/openkcm/identity-provider/internal/config"
	"github.com/openkcm/identity-provider/internal/serviceerr"
)

const (
	registrationChallengeSize = 32
	credentialTypePublicKey   = "public-key"
)

// Registrar drives the registration ceremony: Begin issues the
// challenge and creation options, Finish verifies the browser's
// response and persists the credential.
type Registrar struct {
	challenges  *challenge.Store
	credentials Repository
	rp          config.RelyingParty
}

func NewRegistrar(challenges *challenge.Store, credentials Repository, rp config.RelyingParty) *Registrar {
	return &Registrar{
		challenges:  challenges,
		credentials: credentials,
		rp:          rp,
	}
}

// UserHandle derives the stable user handle for an identity:
// base64url(rpId + identity). The same identity always maps to the
// same handle.
func UserHandle(rpID, identity string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(rpID + identity))
}

func (r *Registrar) BeginRegistration(ctx context.Context, identity string) (CreationOptions, error) {
	ch, err := r.challenges.Issue(ctx, identity, registrationChallengeSize)
	if err != nil {
		return CreationOptions{}, fmt.Errorf("issuing registration challenge: %w", err)
	}

	params := make([]CredentialParameter, 0, len(CredentialAlgorithms))
	for _, alg := range CredentialAlgorithms {
		params = append(params, CredentialParameter{Alg: alg, Type: credentialTypePublicKey})
	}

	return CreationOptions{
		Challenge: ch.Value,
		RP: RelyingPartyEntity{
			Name: r.rp.Name,
			ID:   r.rp.ID,
		},
		User: UserEntity{
			ID:          UserHandle(r.rp.ID, identity),
			Name:        identity,
			DisplayName: identity,
		},
		PubKeyCredParams: params,
		AuthenticatorSelection: AuthenticatorSelection{
			ResidentKey:      "preferred",
			UserVerification: "preferred",
		},
		Timeout:     r.rp.Timeout,
		Attestation: "none",
	}, nil
}

// FinishRegistration verifies the ceremony response and persists the
// credential. The challenge is consumed whether or not verification of
// later steps succeeds.
func (r *Registrar) FinishRegistration(ctx context.Context, identity string, cred RegistrationCredential) error {
	clientData, _, err := decodeClientData(cred.Response.ClientDataJSON)
	if err != nil {
		return err
	}

	if err := r.challenges.Match(ctx, identity, clientData.Challenge); err != nil {
		return err
	}

	if !strings.Contains(clientData.Origin, r.rp.ID) {
		return serviceerr.ErrOriginMismatch
	}

	if err := r.challenges.Delete(ctx, identity); err != nil {
		return err
	}

	stored := RegisteredCredential{
		CredentialID: cred.ID,
		Identity:     identity,
		PublicKey:    cred.Response.PublicKey,
		Algorithm:    cred.Response.PublicKeyAlgorithm,
		Transports:   cred.Response.Transports,
		CreatedAt:    time.Now(),
	}
	if err := r.credentials.StoreCredential(ctx, stored); err != nil {
		return fmt.Errorf("storing credential: %w", err)
	}

	slogctx.Info(ctx, "passkey registered", "identity", identity, "credential_id", cred.ID)

	return nil
}
