package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/caresync/caresync/internal/platform/auth"
)

type Service struct {
	users  Repository
	tokens *auth.TokenManager
}

func NewService(users Repository, tokens *auth.TokenManager) *Service {
	return &Service{users: users, tokens: tokens}
}

// Register creates a user account. The password is hashed before storage.
func (s *Service) Register(ctx context.Context, u *User, password string) error {
	if err := u.Validate(); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return s.users.Create(ctx, u)
}

// Login verifies credentials and returns the user and a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", ErrBadPassword
		}
		return nil, "", err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, "", ErrBadPassword
	}
	token, err := s.tokens.Issue(u.ID.String(), u.Role, u.DisplayName())
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return u, token, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateProfile updates mutable account fields. Role and email are fixed at
// registration.
func (s *Service) UpdateProfile(ctx context.Context, u *User) error {
	existing, err := s.users.GetByID(ctx, u.ID)
	if err != nil {
		return err
	}
	u.Email = existing.Email
	u.Role = existing.Role
	u.PasswordHash = existing.PasswordHash
	if err := u.Validate(); err != nil {
		return err
	}
	return s.users.Update(ctx, u)
}

// ListByRole lists users with a given role (doctor and pharmacy directories).
func (s *Service) ListByRole(ctx context.Context, role string, limit, offset int) ([]*User, int, error) {
	if !validRoles[role] {
		return nil, 0, fmt.Errorf("invalid role: %q", role)
	}
	return s.users.ListByRole(ctx, role, limit, offset)
}
