package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("user not found")
	ErrEmailTaken  = errors.New("email is already registered")
	ErrBadPassword = errors.New("invalid email or password")
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	ListByRole(ctx context.Context, role string, limit, offset int) ([]*User, int, error)
}
