// Package user holds the user-profile model and the password credential
// primitive. Profiles are durable records; everything protocol-related
// (codes, tokens, challenges) lives elsewhere.
package user

import (
	"context"
	"time"
)

// User is a registered account. AvatarURL and DisplayName are optional
// profile fields surfaced through the profile and picture scopes.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	AvatarURL    string
	PasswordHash string
	CreatedAt    time.Time
}

type Repository interface {
	Create(ctx context.Context, u User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
}
