package oidc_test

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/identity-provider/internal/client"
	"github.com/openkcm/identity-provider/internal/config"
	"github.com/openkcm/identity-provider/internal/keystore"
	"github.com/openkcm/identity-provider/internal/oidc"
	oidcmock "github.com/openkcm/identity-provider/internal/oidc/mock"
	"github.com/openkcm/identity-provider/internal/pkce"
	"github.com/openkcm/identity-provider/internal/serviceerr"
)

func newTestKeyStore(t *testing.T) *keystore.KeyStore {
	t.Helper()
	ks, err := keystore.New(config.Issuer{
		Algorithm: "HS256",
		HMACSecret: commoncfg.SourceRef{
			Source: "embedded",
			Value:  "0123456789abcdef0123456789abcdef",
		},
		KeyID: "DefaultKeyId",
	})
	require.NoError(t, err)
	return ks
}

func newTestIssuer(t *testing.T, repo *oidcmock.Repository) *oidc.Issuer {
	t.Helper()
	registry := client.NewRegistry([]config.Client{
		{ID: "c1", Secret: "s1", RedirectURIs: []string{"https://app/cb"}},
	})
	return oidc.NewIssuer(registry, newTestKeyStore(t), repo, repo, time.Hour)
}

func authorizeCode(t *testing.T, repo *oidcmock.Repository, params oidc.AuthorizeParams) string {
	t.Helper()
	engine := oidc.NewEngine(newTestValidator(), repo, testIssuerConfig())

	redirect, err := engine.Authorize(t.Context(), testCaller(), params)
	require.NoError(t, err)

	parsed, err := url.Parse(redirect)
	require.NoError(t, err)

	return parsed.Query().Get("code")
}

func TestIssuer_Exchange(t *testing.T) {
	repo := oidcmock.NewInMemRepository()
	issuer := newTestIssuer(t, repo)
	code := authorizeCode(t, repo, validParams())

	resp, err := issuer.Exchange(t.Context(), "c1", "s1", code, "")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.IDToken)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)

	parsed, err := jwt.ParseSigned(resp.IDToken, []jose.SignatureAlgorithm{jose.HS256})
	require.NoError(t, err)
	require.Len(t, parsed.Headers, 1)
	assert.Equal(t, "DefaultKeyId", parsed.Headers[0].KeyID)

	var claims oidc.IDTokenClaims
	require.NoError(t, parsed.Claims(newTestKeyStore(t).VerificationKey(), &claims))
	assert.Equal(t, "https://idp.example", claims.Issuer)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "c1", claims.Audience)
	assert.Equal(t, "Alice", claims.Name)
	assert.Empty(t, claims.Email)

	t.Run("access token resolves to subject", func(t *testing.T) {
		token, err := issuer.Resolve(t.Context(), resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "u1", token.Subject)
		assert.Equal(t, []string{"openid", "profile"}, token.Scopes)
		assert.Equal(t, oidc.TokenTypeBearer, token.TokenType)
	})

	t.Run("code is single use", func(t *testing.T) {
		_, err := issuer.Exchange(t.Context(), "c1", "s1", code, "")
		assert.ErrorIs(t, err, serviceerr.ErrInvalidGrant)
	})
}

func TestIssuer_Exchange_ClientAuth(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		secret string
	}{
		{name: "wrong secret", id: "c1", secret: "wrong"},
		{name: "unknown client", id: "ghost", secret: "s1"},
		{name: "empty credentials", id: "", secret: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// The load error would surface if the code were looked up
			// before the client is authenticated.
			repo := oidcmock.NewInMemRepository(oidcmock.WithLoadCodeError(errors.New("must not be called")))
			issuer := newTestIssuer(t, repo)

			_, err := issuer.Exchange(t.Context(), tt.id, tt.secret, "some-code", "")
			assert.ErrorIs(t, err, serviceerr.ErrUnauthorized)
		})
	}
}

func TestIssuer_Exchange_InvalidGrant(t *testing.T) {
	t.Run("unknown code", func(t *testing.T) {
		issuer := newTestIssuer(t, oidcmock.NewInMemRepository())
		_, err := issuer.Exchange(t.Context(), "c1", "s1", "never-issued", "")
		assert.ErrorIs(t, err, serviceerr.ErrInvalidGrant)
	})

	t.Run("expired code", func(t *testing.T) {
		repo := oidcmock.NewInMemRepository(oidcmock.WithCode(oidc.AuthorizationCode{
			Code:      "stale",
			ExpiresAt: time.Now().Add(-time.Minute),
		}))
		issuer := newTestIssuer(t, repo)

		_, err := issuer.Exchange(t.Context(), "c1", "s1", "stale", "")
		assert.ErrorIs(t, err, serviceerr.ErrInvalidGrant)
	})

	t.Run("code claimed by a concurrent exchange", func(t *testing.T) {
		// The repository reports the code as already deleted, as it
		// does when a parallel exchange won the single-use delete. No
		// token may be minted for the loser.
		repo := oidcmock.NewInMemRepository(
			oidcmock.WithCode(oidc.AuthorizationCode{
				Code:      "contested",
				ExpiresAt: time.Now().Add(time.Minute),
			}),
			oidcmock.WithDeleteCodeError(serviceerr.ErrNotFound),
			oidcmock.WithStoreTokenError(errors.New("must not be called")),
		)
		issuer := newTestIssuer(t, repo)

		_, err := issuer.Exchange(t.Context(), "c1", "s1", "contested", "")
		assert.ErrorIs(t, err, serviceerr.ErrInvalidGrant)
	})
}

func TestIssuer_Exchange_PKCE(t *testing.T) {
	sourced := pkce.Source{}.PKCE()

	newCode := func(t *testing.T, repo *oidcmock.Repository) string {
		params := validParams()
		params.CodeChallenge = sourced.Challenge
		params.CodeChallengeMethod = sourced.Method
		return authorizeCode(t, repo, params)
	}

	t.Run("matching verifier", func(t *testing.T) {
		repo := oidcmock.NewInMemRepository()
		issuer := newTestIssuer(t, repo)

		resp, err := issuer.Exchange(t.Context(), "c1", "s1", newCode(t, repo), sourced.Verifier)
		require.NoError(t, err)
		assert.NotEmpty(t, resp.IDToken)
	})

	t.Run("missing verifier", func(t *testing.T) {
		repo := oidcmock.NewInMemRepository()
		issuer := newTestIssuer(t, repo)

		_, err := issuer.Exchange(t.Context(), "c1", "s1", newCode(t, repo), "")
		assert.ErrorIs(t, err, serviceerr.ErrInvalidGrant)
	})

	t.Run("wrong verifier", func(t *testing.T) {
		repo := oidcmock.NewInMemRepository()
		issuer := newTestIssuer(t, repo)

		other := pkce.Source{}.PKCE()
		_, err := issuer.Exchange(t.Context(), "c1", "s1", newCode(t, repo), other.Verifier)
		assert.ErrorIs(t, err, serviceerr.ErrInvalidGrant)
	})

	t.Run("rfc 7636 vector", func(t *testing.T) {
		repo := oidcmock.NewInMemRepository()
		issuer := newTestIssuer(t, repo)

		params := validParams()
		params.CodeChallenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
		code := authorizeCode(t, repo, params)

		_, err := issuer.Exchange(t.Context(), "c1", "s1", code, "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk")
		require.NoError(t, err)
	})
}

func TestIssuer_Resolve(t *testing.T) {
	t.Run("unknown token", func(t *testing.T) {
		issuer := newTestIssuer(t, oidcmock.NewInMemRepository())
		_, err := issuer.Resolve(t.Context(), "nope")
		assert.ErrorIs(t, err, serviceerr.ErrUnauthorized)
	})

	t.Run("expired token", func(t *testing.T) {
		repo := oidcmock.NewInMemRepository(oidcmock.WithToken(oidc.AccessToken{
			Token:     "stale",
			Subject:   "u1",
			ExpiresAt: time.Now().Add(-time.Second),
		}))
		issuer := newTestIssuer(t, repo)

		_, err := issuer.Resolve(t.Context(), "stale")
		assert.ErrorIs(t, err, serviceerr.ErrUnauthorized)
	})
}
