// Package serviceerr defines the sentinel errors shared across the
// identity provider components. Protocol failures are returned as values
// and mapped to wire responses at the HTTP edge; none of them abort the
// process.
package serviceerr

import "errors"

var ErrConflict = errors.New("already exists")
var ErrNotFound = errors.New("not found")

// Client authentication and grant errors (token endpoint).
var ErrUnauthorized = errors.New("unauthorized")
var ErrInvalidGrant = errors.New("invalid_grant")

// Ceremony errors. Distinct internally for logging and tests; the wire
// surface flattens them to {verified:false}.
var ErrChallengeNotFound = errors.New("challenge not found")
var ErrChallengeExpired = errors.New("challenge expired")
var ErrChallengeMismatch = errors.New("challenge mismatch")
var ErrOriginMismatch = errors.New("origin mismatch")
var ErrPasskeyNotFound = errors.New("passkey not found")
var ErrNoPasskeyRegistered = errors.New("no passkey registered")
var ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
var ErrSignatureInvalid = errors.New("signature invalid")
