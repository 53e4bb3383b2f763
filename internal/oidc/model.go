// Package oidc implements the authorization-code protocol engine: request
// validation, code issuance, and the token exchange.
package oidc

import "time"

const TokenTypeBearer = "Bearer"

// Recognized scope values. openid gates the flow; the rest project
// profile fields into the ID token.
const (
	ScopeOpenID  = "openid"
	ScopeProfile = "profile"
	ScopeEmail   = "email"
	ScopePicture = "picture"
)

// IDTokenClaims is the payload of an issued ID token. It is constructed
// at authorization time and signed only at token-exchange time.
type IDTokenClaims struct {
	Issuer   string `json:"iss"`
	Subject  string `json:"sub"`
	Audience string `json:"aud"`
	Expiry   int64  `json:"exp"`
	IssuedAt int64  `json:"iat"`
	Nonce    string `json:"nonce,omitempty"`

	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// AuthorizationCode binds an opaque one-time code to the claims and
// scope resolved at authorization time. Consumed exactly once.
type AuthorizationCode struct {
	Code          string        `json:"code"`
	Claims        IDTokenClaims `json:"claims"`
	Scopes        []string      `json:"scopes"`
	CodeChallenge string        `json:"codeChallenge,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	ExpiresAt     time.Time     `json:"expiresAt"`
}

// AccessToken is an opaque bearer token resolvable back to its subject.
type AccessToken struct {
	Token     string    `json:"token"`
	Subject   string    `json:"subject"`
	Scopes    []string  `json:"scopes"`
	TokenType string    `json:"tokenType"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
