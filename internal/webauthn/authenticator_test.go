package webauthn_test

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/identity-provider/internal/challenge"
	challengemock "github.com/openkcm/identity-provider/internal/challenge/mock"
	"github.com/openkcm/identity-provider/internal/serviceerr"
	"github.com/openkcm/identity-provider/internal/webauthn"
	webauthnmock "github.com/openkcm/identity-provider/internal/webauthn/mock"
)

const assertionIdentity = "alice@example.com"

// assertionMessage is what authenticators actually sign:
// authenticatorData || SHA256(clientDataJSON).
func assertionMessage(authenticatorData, clientDataRaw []byte) []byte {
	cdHash := sha256.Sum256(clientDataRaw)
	return append(append([]byte{}, authenticatorData...), cdHash[:]...)
}

type ceremony struct {
	authenticator *webauthn.Authenticator
	credentials   *webauthnmock.Repository
	challengeB64  string
	authData      []byte
}

func beginCeremony(t *testing.T, stored webauthn.RegisteredCredential) *ceremony {
	t.Helper()

	creds := webauthnmock.NewInMemRepository(webauthnmock.WithCredential(stored))
	challenges := challenge.NewStore(challengemock.NewInMemRepository(), time.Minute)
	authenticator := webauthn.NewAuthenticator(challenges, creds, testRP())

	opts, err := authenticator.BeginAuthentication(t.Context(), assertionIdentity)
	require.NoError(t, err)

	authData := make([]byte, 37)
	_, err = rand.Read(authData)
	require.NoError(t, err)

	return &ceremony{
		authenticator: authenticator,
		credentials:   creds,
		challengeB64:  opts.Challenge,
		authData:      authData,
	}
}

func (c *ceremony) credential(t *testing.T, credentialID, cdjB64 string, sig []byte) webauthn.AuthenticationCredential {
	t.Helper()
	return webauthn.AuthenticationCredential{
		ID:    credentialID,
		RawID: credentialID,
		Type:  "public-key",
		Response: webauthn.AssertionResponse{
			ClientDataJSON:    cdjB64,
			AuthenticatorData: base64.RawURLEncoding.EncodeToString(c.authData),
			Signature:         base64.RawURLEncoding.EncodeToString(sig),
		},
	}
}

func TestAuthenticator_BeginAuthentication(t *testing.T) {
	t.Run("no passkey registered", func(t *testing.T) {
		challenges := challenge.NewStore(challengemock.NewInMemRepository(), time.Minute)
		authenticator := webauthn.NewAuthenticator(challenges, webauthnmock.NewInMemRepository(), testRP())

		_, err := authenticator.BeginAuthentication(t.Context(), assertionIdentity)
		assert.ErrorIs(t, err, serviceerr.ErrNoPasskeyRegistered)
	})

	t.Run("allow list carries registered credentials", func(t *testing.T) {
		creds := webauthnmock.NewInMemRepository(
			webauthnmock.WithCredential(webauthn.RegisteredCredential{
				CredentialID: "cred-1",
				Identity:     assertionIdentity,
				Transports:   []string{"internal", "hybrid"},
			}),
			webauthnmock.WithCredential(webauthn.RegisteredCredential{
				CredentialID: "cred-other",
				Identity:     "bob@example.com",
			}),
		)
		challenges := challenge.NewStore(challengemock.NewInMemRepository(), time.Minute)
		authenticator := webauthn.NewAuthenticator(challenges, creds, testRP())

		opts, err := authenticator.BeginAuthentication(t.Context(), assertionIdentity)
		require.NoError(t, err)

		require.Len(t, opts.AllowCredentials, 1)
		assert.Equal(t, "cred-1", opts.AllowCredentials[0].ID)
		assert.Equal(t, "public-key", opts.AllowCredentials[0].Type)
		assert.Equal(t, []string{"internal", "hybrid"}, opts.AllowCredentials[0].Transports)
		assert.Equal(t, "localhost", opts.RPID)
		assert.Equal(t, "preferred", opts.UserVerification)

		raw, err := base64.RawURLEncoding.DecodeString(opts.Challenge)
		require.NoError(t, err)
		assert.Len(t, raw, 16)
	})
}

func TestAuthenticator_FinishAuthentication_ECDSA(t *testing.T) {
	key, publicKey := newECDSAKey(t)
	stored := webauthn.RegisteredCredential{
		CredentialID: "cred-1",
		Identity:     assertionIdentity,
		PublicKey:    publicKey,
		Algorithm:    webauthn.AlgES256,
	}

	sign := func(t *testing.T, c *ceremony, cdjRaw []byte) []byte {
		t.Helper()
		digest := sha256.Sum256(assertionMessage(c.authData, cdjRaw))
		sig, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
		require.NoError(t, err)
		return sig
	}

	t.Run("valid assertion", func(t *testing.T) {
		c := beginCeremony(t, stored)
		cdjB64, cdjRaw := clientDataJSON(t, "webauthn.get", c.challengeB64, "https://localhost")
		cred := c.credential(t, "cred-1", cdjB64, sign(t, c, cdjRaw))

		got, err := c.authenticator.FinishAuthentication(t.Context(), assertionIdentity, cred)
		require.NoError(t, err)
		assert.Equal(t, "cred-1", got.CredentialID)

		t.Run("challenge is consumed", func(t *testing.T) {
			_, err := c.authenticator.FinishAuthentication(t.Context(), assertionIdentity, cred)
			assert.ErrorIs(t, err, serviceerr.ErrChallengeNotFound)
		})
	})

	t.Run("flipped signature bit", func(t *testing.T) {
		c := beginCeremony(t, stored)
		cdjB64, cdjRaw := clientDataJSON(t, "webauthn.get", c.challengeB64, "https://localhost")
		sig := sign(t, c, cdjRaw)
		sig[len(sig)/2] ^= 0x01

		_, err := c.authenticator.FinishAuthentication(t.Context(), assertionIdentity, c.credential(t, "cred-1", cdjB64, sig))
		assert.ErrorIs(t, err, serviceerr.ErrSignatureInvalid)
	})

	t.Run("tampered clientDataJSON", func(t *testing.T) {
		c := beginCeremony(t, stored)
		_, cdjRaw := clientDataJSON(t, "webauthn.get", c.challengeB64, "https://localhost")
		sig := sign(t, c, cdjRaw)

		// Semantically equivalent for the challenge and origin checks,
		// but byte-different from what was signed.
		tampered := strings.Replace(string(cdjRaw), "webauthn.get", "webauthn.geT", 1)
		tamperedB64 := base64.RawURLEncoding.EncodeToString([]byte(tampered))

		_, err := c.authenticator.FinishAuthentication(t.Context(), assertionIdentity, c.credential(t, "cred-1", tamperedB64, sig))
		assert.ErrorIs(t, err, serviceerr.ErrSignatureInvalid)
	})

	t.Run("foreign origin with valid signature", func(t *testing.T) {
		c := beginCeremony(t, stored)
		cdjB64, cdjRaw := clientDataJSON(t, "webauthn.get", c.challengeB64, "https://evil.example")
		sig := sign(t, c, cdjRaw)

		_, err := c.authenticator.FinishAuthentication(t.Context(), assertionIdentity, c.credential(t, "cred-1", cdjB64, sig))
		assert.ErrorIs(t, err, serviceerr.ErrOriginMismatch)
	})

	t.Run("unknown credential id", func(t *testing.T) {
		c := beginCeremony(t, stored)
		cdjB64, cdjRaw := clientDataJSON(t, "webauthn.get", c.challengeB64, "https://localhost")

		_, err := c.authenticator.FinishAuthentication(t.Context(), assertionIdentity, c.credential(t, "cred-unknown", cdjB64, sign(t, c, cdjRaw)))
		assert.ErrorIs(t, err, serviceerr.ErrPasskeyNotFound)
	})

	t.Run("credential owned by someone else", func(t *testing.T) {
		foreign := stored
		foreign.CredentialID = "cred-bob"
		foreign.Identity = "bob@example.com"

		c := beginCeremony(t, stored)
		require.NoError(t, c.credentials.StoreCredential(t.Context(), foreign))

		cdjB64, cdjRaw := clientDataJSON(t, "webauthn.get", c.challengeB64, "https://localhost")
		_, err := c.authenticator.FinishAuthentication(t.Context(), assertionIdentity, c.credential(t, "cred-bob", cdjB64, sign(t, c, cdjRaw)))
		assert.ErrorIs(t, err, serviceerr.ErrPasskeyNotFound)
	})

	t.Run("unsupported algorithm", func(t *testing.T) {
		odd := stored
		odd.CredentialID = "cred-odd"
		odd.Algorithm = -65535

		c := beginCeremony(t, stored)
		require.NoError(t, c.credentials.StoreCredential(t.Context(), odd))

		cdjB64, cdjRaw := clientDataJSON(t, "webauthn.get", c.challengeB64, "https://localhost")
		_, err := c.authenticator.FinishAuthentication(t.Context(), assertionIdentity, c.credential(t, "cred-odd", cdjB64, sign(t, c, cdjRaw)))
		assert.ErrorIs(t, err, serviceerr.ErrUnsupportedAlgorithm)
	})
}

func TestAuthenticator_FinishAuthentication_RSA(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicKey := base64.RawURLEncoding.EncodeToString(der)

	for _, alg := range []int64{webauthn.AlgRS256, webauthn.AlgRS256Legacy} {
		stored := webauthn.RegisteredCredential{
			CredentialID: "cred-rsa",
			Identity:     assertionIdentity,
			PublicKey:    publicKey,
			Algorithm:    alg,
		}

		c := beginCeremony(t, stored)
		cdjB64, cdjRaw := clientDataJSON(t, "webauthn.get", c.challengeB64, "https://localhost")

		digest := sha256.Sum256(assertionMessage(c.authData, cdjRaw))
		sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
		require.NoError(t, err)

		got, err := c.authenticator.FinishAuthentication(t.Context(), assertionIdentity, c.credential(t, "cred-rsa", cdjB64, sig))
		require.NoError(t, err, "alg %d", alg)
		assert.Equal(t, alg, got.Algorithm)
	}
}

func TestAuthenticator_KeyTypeAlgorithmMismatch(t *testing.T) {
	// An ECDSA key stored under an RSA algorithm id must not verify.
	_, publicKey := newECDSAKey(t)
	stored := webauthn.RegisteredCredential{
		CredentialID: "cred-1",
		Identity:     assertionIdentity,
		PublicKey:    publicKey,
		Algorithm:    webauthn.AlgRS256,
	}

	c := beginCeremony(t, stored)
	cdjB64, cdjRaw := clientDataJSON(t, "webauthn.get", c.challengeB64, "https://localhost")
	digest := sha256.Sum256(assertionMessage(c.authData, cdjRaw))

	_, err := c.authenticator.FinishAuthentication(t.Context(), assertionIdentity, c.credential(t, "cred-1", cdjB64, digest[:]))
	assert.ErrorIs(t, err, serviceerr.ErrUnsupportedAlgorithm)
}
