package user

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openkcm/identity-provider/internal/serviceerr"
)

type Service struct {
	repository Repository
}

func NewService(repo Repository) *Service {
	return &Service{
		repository: repo,
	}
}

// Register creates an account with a freshly salted password hash.
func (s *Service) Register(ctx context.Context, email, password, displayName, avatarURL string) (User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, fmt.Errorf("hashing password: %w", err)
	}

	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		AvatarURL:    avatarURL,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	if err := s.repository.Create(ctx, u); err != nil {
		return User{}, fmt.Errorf("creating user: %w", err)
	}

	return u, nil
}

// Authenticate checks the password credential for the given email. It
// returns serviceerr.ErrUnauthorized for an unknown account or a wrong
// password, without distinguishing the two.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := s.repository.FindByEmail(ctx, email)
	if err != nil {
		return User{}, serviceerr.ErrUnauthorized
	}

	if !VerifyPassword(password, u.PasswordHash) {
		return User{}, serviceerr.ErrUnauthorized
	}

	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	u, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return User{}, fmt.Errorf("getting user by id: %w", err)
	}

	return u, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	u, err := s.repository.FindByEmail(ctx, email)
	if err != nil {
		return User{}, fmt.Errorf("getting user by email: %w", err)
	}

	return u, nil
}
