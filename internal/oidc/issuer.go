package oidc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"
	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/identity-provider/internal/client"
	"github.com/openkcm/identity-provider/internal/keystore"
	"github.com/openkcm/identity-provider/internal/pkce"
	"github.com/openkcm/identity-provider/internal/serviceerr"
)

// TokenResponse is the token-endpoint success payload.
type TokenResponse struct {
	IDToken     string `json:"id_token"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Issuer authenticates clients and exchanges one-time authorization
// codes for a signed ID token plus an opaque access token.
type Issuer struct {
	clients *client.Registry
	keys    *keystore.KeyStore
	codes   CodeRepository
	tokens  TokenRepository

	tokenTTL time.Duration
}

func NewIssuer(clients *client.Registry, keys *keystore.KeyStore, codes CodeRepository, tokens TokenRepository, tokenTTL time.Duration) *Issuer {
	return &Issuer{
		clients:  clients,
		keys:     keys,
		codes:    codes,
		tokens:   tokens,
		tokenTTL: tokenTTL,
	}
}

// Exchange performs the token-endpoint grant. Client authentication
// failures return serviceerr.ErrUnauthorized before any code lookup.
// An unknown code, an already consumed code and a PKCE mismatch all
// return serviceerr.ErrInvalidGrant without distinguishing the cause.
func (i *Issuer) Exchange(ctx context.Context, clientID, clientSecret, code, codeVerifier string) (TokenResponse, error) {
	if _, err := i.clients.Authenticate(clientID, clientSecret); err != nil {
		return TokenResponse{}, serviceerr.ErrUnauthorized
	}

	stored, err := i.codes.LoadCode(ctx, code)
	if err != nil {
		if errors.Is(err, serviceerr.ErrNotFound) {
			return TokenResponse{}, serviceerr.ErrInvalidGrant
		}

		return TokenResponse{}, fmt.Errorf("loading authorization code: %w", err)
	}

	if !verifyPKCE(stored.CodeChallenge, codeVerifier) {
		slogctx.Debug(ctx, "code verifier rejected", "client_id", clientID)
		return TokenResponse{}, serviceerr.ErrInvalidGrant
	}

	// Claim the code before issuing anything. The delete admits a
	// single winner, so concurrent exchanges of the same code cannot
	// both succeed, and the code is gone whether or not the client
	// ever receives this response.
	if err := i.codes.DeleteCode(ctx, code); err != nil {
		if errors.Is(err, serviceerr.ErrNotFound) {
			return TokenResponse{}, serviceerr.ErrInvalidGrant
		}

		return TokenResponse{}, fmt.Errorf("deleting authorization code: %w", err)
	}

	idToken, err := i.signClaims(stored.Claims)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("signing id token: %w", err)
	}

	accessToken, err := i.IssueAccessToken(ctx, stored.Claims.Subject, stored.Scopes)
	if err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		IDToken:     idToken,
		AccessToken: accessToken.Token,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   int(i.tokenTTL.Seconds()),
	}, nil
}

// IssueAccessToken mints and stores an opaque bearer token for
// subject. The passkey signin path uses it directly, outside the code
// exchange.
func (i *Issuer) IssueAccessToken(ctx context.Context, subject string, scopes []string) (AccessToken, error) {
	now := time.Now()
	accessToken := AccessToken{
		Token:     uuid.NewString(),
		Subject:   subject,
		Scopes:    scopes,
		TokenType: TokenTypeBearer,
		CreatedAt: now,
		ExpiresAt: now.Add(i.tokenTTL),
	}
	if err := i.tokens.StoreToken(ctx, accessToken); err != nil {
		return AccessToken{}, fmt.Errorf("storing access token: %w", err)
	}

	return accessToken, nil
}

// Resolve maps a bearer access token back to its stored record,
// failing closed on expiry.
func (i *Issuer) Resolve(ctx context.Context, token string) (AccessToken, error) {
	stored, err := i.tokens.LoadToken(ctx, token)
	if err != nil {
		if errors.Is(err, serviceerr.ErrNotFound) {
			return AccessToken{}, serviceerr.ErrUnauthorized
		}

		return AccessToken{}, fmt.Errorf("loading access token: %w", err)
	}

	if time.Now().After(stored.ExpiresAt) {
		return AccessToken{}, serviceerr.ErrUnauthorized
	}

	return stored, nil
}

// verifyPKCE checks a code verifier against the challenge registered at
// authorization time. A code issued without PKCE accepts any exchange;
// a code issued with PKCE requires a matching verifier.
func verifyPKCE(challenge, verifier string) bool {
	if challenge == "" {
		return true
	}

	return pkce.VerifyCodeChallenge(verifier, challenge)
}

func (i *Issuer) signClaims(claims IDTokenClaims) (string, error) {
	signer, err := i.keys.Signer()
	if err != nil {
		return "", err
	}

	raw, err := jwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", err
	}

	return raw, nil
}
