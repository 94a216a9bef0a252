package ordering

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrNoAddress         = errors.New("delivery address is required")
	ErrNotParticipant    = errors.New("pharmacy has no lines in this order")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrNotOwner          = errors.New("order belongs to another patient")
)

type Repository interface {
	// Create persists the order with its items and pharmacy statuses.
	// Joins an ambient transaction when one is present on ctx.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Order, int, error)
	// ListByPharmacy returns orders in which the pharmacy has at least one
	// line, regardless of sub-status.
	ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID, limit, offset int) ([]*Order, int, error)
	// UpdatePharmacyStatus is a compare-and-set: the row is updated only
	// while its status still equals from, so the first of two concurrent
	// updates wins and the other gets ErrInvalidTransition.
	UpdatePharmacyStatus(ctx context.Context, orderID, pharmacyID uuid.UUID, from, to PharmacyStatus) error
}
