package pharmacy

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("medicine not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotOwner          = errors.New("medicine belongs to another pharmacy")
)

type Repository interface {
	Create(ctx context.Context, m *Medicine) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error)
	Update(ctx context.Context, m *Medicine) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID, limit, offset int) ([]*Medicine, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Medicine, int, error)

	// SetStock overwrites the stock count (pharmacy inventory edit).
	SetStock(ctx context.Context, id uuid.UUID, stock int) error
	// DecrementStock subtracts qty, failing with ErrInsufficientStock when
	// fewer than qty units remain. Used by checkout.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) error
	// RestoreStock adds qty back (order declined).
	RestoreStock(ctx context.Context, id uuid.UUID, qty int) error
}
