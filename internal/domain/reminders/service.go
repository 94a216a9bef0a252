package reminders

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, r *Reminder) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return s.repo.Create(ctx, r)
}

func (s *Service) List(ctx context.Context, patientID uuid.UUID) ([]*Reminder, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) Update(ctx context.Context, patientID uuid.UUID, r *Reminder) error {
	existing, err := s.repo.GetByID(ctx, r.ID)
	if err != nil {
		return err
	}
	if existing.PatientID != patientID {
		return ErrNotOwner
	}
	r.PatientID = existing.PatientID
	if err := r.Validate(); err != nil {
		return err
	}
	return s.repo.Update(ctx, r)
}

func (s *Service) Delete(ctx context.Context, patientID, id uuid.UUID) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.PatientID != patientID {
		return ErrNotOwner
	}
	return s.repo.Delete(ctx, id)
}

// Due returns the patient's reminders that fire at t.
func (s *Service) Due(ctx context.Context, patientID uuid.UUID, t time.Time) ([]*Reminder, error) {
	all, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	var due []*Reminder
	for _, r := range all {
		if r.DueAt(t) {
			due = append(due, r)
		}
	}
	return due, nil
}
