package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/caresync/caresync/internal/platform/db"
)

// Notifier delivers a notification to one user. Failures are logged, not
// propagated.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind, title, message string) error
}

type Service struct {
	repo     Repository
	pool     *pgxpool.Pool
	notifier Notifier
}

func NewService(repo Repository, pool *pgxpool.Pool, notifier Notifier) *Service {
	return &Service{repo: repo, pool: pool, notifier: notifier}
}

// AvailableSlots returns the candidate slots for the date minus those
// held by a non-cancelled appointment with the doctor.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error) {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return nil, ErrInvalidDate
	}
	candidates := CandidateSlots(day)
	if len(candidates) == 0 {
		return []string{}, nil
	}
	booked, err := s.repo.BookedSlots(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]struct{}, len(booked))
	for _, slot := range booked {
		taken[slot] = struct{}{}
	}
	available := make([]string, 0, len(candidates))
	for _, slot := range candidates {
		if _, held := taken[slot]; !held {
			available = append(available, slot)
		}
	}
	return available, nil
}

// Book creates a pending appointment. The slot is re-checked inside the
// insert transaction, so of two racing sessions exactly one gets the
// slot and the other gets ErrSlotTaken.
func (s *Service) Book(ctx context.Context, patientID, doctorID uuid.UUID, date, slot string, consultType ConsultationType, notes string) (*Appointment, error) {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if !ValidSlot(day, slot) {
		return nil, ErrInvalidSlot
	}
	fee, err := FeeCents(consultType)
	if err != nil {
		return nil, err
	}

	appt := &Appointment{
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      date,
		Slot:      slot,
		Type:      consultType,
		Notes:     notes,
		FeeCents:  fee,
		Status:    StatusPending,
	}
	err = s.withTx(ctx, func(ctx context.Context) error {
		taken, err := s.repo.SlotTaken(ctx, doctorID, date, slot)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotTaken
		}
		return s.repo.Create(ctx, appt)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, doctorID, "appointment_requested", "New appointment request",
		fmt.Sprintf("Appointment requested for %s at %s.", date, slot))
	s.notify(ctx, patientID, "appointment_booked", "Appointment requested",
		fmt.Sprintf("Your appointment for %s at %s is awaiting confirmation.", date, slot))
	return appt, nil
}

func (s *Service) Get(ctx context.Context, requesterID, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.PatientID != requesterID && appt.DoctorID != requesterID {
		return nil, ErrNotParticipant
	}
	return appt, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByDoctor(ctx, doctorID, limit, offset)
}

// SetStatus advances the appointment status. Doctors confirm, complete
// or cancel; patients may only cancel their own appointment.
func (s *Service) SetStatus(ctx context.Context, requesterID, id uuid.UUID, next Status) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch requesterID {
	case appt.DoctorID:
	case appt.PatientID:
		if next != StatusCancelled {
			return nil, fmt.Errorf("%w: patients may only cancel", ErrInvalidTransition)
		}
	default:
		return nil, ErrNotParticipant
	}
	if !appt.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, next)
	}
	if err := s.repo.UpdateStatus(ctx, id, next); err != nil {
		return nil, err
	}
	appt.Status = next

	other := appt.PatientID
	if requesterID == appt.PatientID {
		other = appt.DoctorID
	}
	s.notify(ctx, other, "appointment_"+string(next), "Appointment update",
		fmt.Sprintf("Your appointment on %s at %s is now %s.", appt.Date, appt.Slot, next))
	return appt, nil
}

// HasRelationship reports whether the doctor has ever had a non-cancelled
// appointment with the patient.
func (s *Service) HasRelationship(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	return s.repo.HasRelationship(ctx, doctorID, patientID)
}

// withTx wraps fn in a database transaction. A nil pool runs fn directly;
// in-memory repositories have no transaction to join.
func (s *Service) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.WithTx(ctx, s.pool, fn)
}

func (s *Service) notify(ctx context.Context, userID uuid.UUID, kind, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, kind, title, message); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Str("kind", kind).Msg("notify failed")
	}
}
