// Package pkce implements the Proof Key for Code Exchange (RFC 7636)
// primitives used by the authorization endpoint and the token endpoint.
// All functions are pure; the only state lives in [Source]'s use of the
// system CSPRNG.
package pkce

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

const (
	verifierMinLength = 43
	verifierMaxLength = 128
)

type PKCE struct {
	Verifier  string
	Challenge string
	Method    string
}

// IsValidCodeVerifier reports whether s is 43-128 characters of the
// RFC 7636 unreserved alphabet [A-Za-z0-9-._~].
func IsValidCodeVerifier(s string) bool {
	if len(s) < verifierMinLength || len(s) > verifierMaxLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isUnreserved(s[i]) {
			return false
		}
	}

	return true
}

// IsValidCodeChallenge reports whether s is 43-128 characters of the
// BASE64URL alphabet [A-Za-z0-9-_].
func IsValidCodeChallenge(s string) bool {
	if len(s) < verifierMinLength || len(s) > verifierMaxLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isBase64URL(s[i]) {
			return false
		}
	}

	return true
}

// GenerateCodeChallenge returns BASE64URL(SHA256(verifier)) without padding.
func GenerateCodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))

	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// VerifyCodeChallenge reports whether verifier digests to challenge.
// The comparison is constant time.
func VerifyCodeChallenge(verifier, challenge string) bool {
	if !IsValidCodeVerifier(verifier) {
		return false
	}
	generated := GenerateCodeChallenge(verifier)

	return subtle.ConstantTimeCompare([]byte(generated), []byte(challenge)) == 1
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}

	return false
}

func isBase64URL(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-', c == '_':
		return true
	}

	return false
}
