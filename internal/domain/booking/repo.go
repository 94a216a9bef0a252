package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("appointment not found")
	ErrSlotTaken         = errors.New("slot is already booked")
	ErrInvalidSlot       = errors.New("slot is outside consultation hours")
	ErrInvalidDate       = errors.New("invalid appointment date")
	ErrInvalidTransition = errors.New("invalid appointment status transition")
	ErrNotParticipant    = errors.New("appointment belongs to another user")
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	// BookedSlots returns the slots held by non-cancelled appointments for
	// a doctor on a date.
	BookedSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error)
	// SlotTaken reports whether a non-cancelled appointment holds the slot.
	SlotTaken(ctx context.Context, doctorID uuid.UUID, date, slot string) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	// HasRelationship reports whether the doctor has any non-cancelled
	// appointment with the patient. Used for medical record access.
	HasRelationship(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error)
}
