// Package keystore loads the issuer signing key material and exposes it
// as go-jose signers plus the public key set served on the JWKS endpoint.
package keystore

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v4"
	"github.com/openkcm/common-sdk/pkg/commoncfg"

	"github.com/openkcm/identity-provider/internal/config"
)

var (
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
	ErrInvalidPrivateKey    = errors.New("invalid private key")
)

// KeyStore holds the key material for exactly one signing algorithm,
// fixed at startup from configuration.
type KeyStore struct {
	algorithm  jose.SignatureAlgorithm
	keyID      string
	hmacSecret []byte
	privateKey *rsa.PrivateKey
}

func New(cfg config.Issuer) (*KeyStore, error) {
	ks := &KeyStore{
		algorithm: jose.SignatureAlgorithm(cfg.Algorithm),
		keyID:     cfg.KeyID,
	}

	switch ks.algorithm {
	case jose.HS256:
		secret, err := commoncfg.LoadValueFromSourceRef(cfg.HMACSecret)
		if err != nil {
			return nil, fmt.Errorf("loading hmac secret: %w", err)
		}

		ks.hmacSecret = secret
	case jose.RS256:
		pemBytes, err := commoncfg.LoadValueFromSourceRef(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("loading private key: %w", err)
		}

		key, err := parseRSAPrivateKey(pemBytes)
		if err != nil {
			return nil, err
		}

		ks.privateKey = key
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, cfg.Algorithm)
	}

	return ks, nil
}

func (ks *KeyStore) Algorithm() jose.SignatureAlgorithm {
	return ks.algorithm
}

func (ks *KeyStore) KeyID() string {
	return ks.keyID
}

// Signer returns a go-jose signer carrying the configured key ID in the
// JWS header.
func (ks *KeyStore) Signer() (jose.Signer, error) {
	opts := (&jose.SignerOptions{}).
		WithType("JWT").
		WithHeader(jose.HeaderKey("kid"), ks.keyID)

	signer, err := jose.NewSigner(jose.SigningKey{
		Algorithm: ks.algorithm,
		Key:       ks.signingKey(),
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("creating signer: %w", err)
	}

	return signer, nil
}

// VerificationKey returns the key to verify tokens signed by this
// store: the shared secret for HS256 and the RSA public key for RS256.
func (ks *KeyStore) VerificationKey() any {
	if ks.algorithm == jose.HS256 {
		return ks.hmacSecret
	}

	return &ks.privateKey.PublicKey
}

// JWKS returns the published key set. Only asymmetric keys are listed,
// so an HS256 deployment serves an empty set.
func (ks *KeyStore) JWKS() jose.JSONWebKeySet {
	if ks.algorithm != jose.RS256 {
		return jose.JSONWebKeySet{Keys: []jose.JSONWebKey{}}
	}

	return jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key:       &ks.privateKey.PublicKey,
				KeyID:     ks.keyID,
				Algorithm: string(ks.algorithm),
				Use:       "sig",
			},
		},
	}
}

func (ks *KeyStore) signingKey() any {
	if ks.algorithm == jose.HS256 {
		return ks.hmacSecret
	}

	return ks.privateKey
}

func parseRSAPrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrInvalidPrivateKey)
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPrivateKey, err)
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidPrivateKey)
	}

	return key, nil
}
