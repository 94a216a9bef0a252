package reminders

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("reminder not found")
	ErrNotOwner = errors.New("reminder belongs to another patient")
)

type Repository interface {
	Create(ctx context.Context, r *Reminder) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reminder, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Reminder, error)
	Update(ctx context.Context, r *Reminder) error
	Delete(ctx context.Context, id uuid.UUID) error
}
