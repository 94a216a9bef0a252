package records

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrForbidden = errors.New("no access to this record")
)

type Repository interface {
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, category string, limit, offset int) ([]*Record, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
