// Package challenge issues and matches the short-lived random
// challenges anchoring WebAuthn ceremonies. One challenge is active per
// identity at a time; reissuing overwrites the previous one.
package challenge

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/openkcm/identity-provider/internal/serviceerr"
)

// MinSize is the smallest accepted challenge, in bytes.
const MinSize = 16

// Challenge is a single-use random value keyed by identity. Value is
// the base64url encoding (no padding) of the raw bytes, the same form
// the browser echoes back in clientDataJSON.
type Challenge struct {
	Identity  string    `json:"identity"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Repository interface {
	StoreChallenge(ctx context.Context, ch Challenge) error
	LoadChallenge(ctx context.Context, identity string) (Challenge, error)
	DeleteChallenge(ctx context.Context, identity string) error
}

// Store issues and matches challenges on top of a Repository.
//
// Matching and deletion are two separate operations: a successful
// ceremony must call Delete afterwards to guarantee one-time use. Two
// concurrent ceremonies for the same identity overwrite each other's
// challenge; the last writer wins and the earlier ceremony fails its
// match. This is a known limitation of keying challenges by identity.
type Store struct {
	repository Repository
	ttl        time.Duration
}

func NewStore(repo Repository, ttl time.Duration) *Store {
	return &Store{
		repository: repo,
		ttl:        ttl,
	}
}

// Issue generates size random bytes, stores them under identity with
// the configured TTL and returns the record. Sizes below MinSize are
// rejected.
func (s *Store) Issue(ctx context.Context, identity string, size int) (Challenge, error) {
	if size < MinSize {
		return Challenge{}, fmt.Errorf("challenge size %d below minimum %d", size, MinSize)
	}

	raw := make([]byte, size)
	if _, err := rand.Read(raw); err != nil {
		return Challenge{}, fmt.Errorf("generating challenge: %w", err)
	}

	now := time.Now()
	ch := Challenge{
		Identity:  identity,
		Value:     base64.RawURLEncoding.EncodeToString(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.repository.StoreChallenge(ctx, ch); err != nil {
		return Challenge{}, fmt.Errorf("storing challenge: %w", err)
	}

	return ch, nil
}

// Match checks presented (base64url, no padding) against the stored
// challenge for identity. It fails closed with a distinct error per
// condition: serviceerr.ErrChallengeNotFound, ErrChallengeExpired or
// ErrChallengeMismatch. The entry is not consumed on success.
func (s *Store) Match(ctx context.Context, identity, presented string) error {
	ch, err := s.repository.LoadChallenge(ctx, identity)
	if err != nil {
		if errors.Is(err, serviceerr.ErrNotFound) {
			return serviceerr.ErrChallengeNotFound
		}

		return fmt.Errorf("loading challenge: %w", err)
	}

	if time.Now().After(ch.ExpiresAt) {
		return serviceerr.ErrChallengeExpired
	}

	if subtle.ConstantTimeCompare([]byte(ch.Value), []byte(presented)) != 1 {
		return serviceerr.ErrChallengeMismatch
	}

	return nil
}

// Delete removes the active challenge for identity. Callers invoke it
// after a successful match to enforce one-time use.
func (s *Store) Delete(ctx context.Context, identity string) error {
	if err := s.repository.DeleteChallenge(ctx, identity); err != nil {
		return fmt.Errorf("deleting challenge: %w", err)
	}

	return nil
}
