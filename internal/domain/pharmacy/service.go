package pharmacy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	medicines Repository
}

func NewService(medicines Repository) *Service {
	return &Service{medicines: medicines}
}

// CreateMedicine adds a medicine to the owning pharmacy's inventory.
func (s *Service) CreateMedicine(ctx context.Context, m *Medicine) error {
	if err := m.Validate(); err != nil {
		return err
	}
	return s.medicines.Create(ctx, m)
}

func (s *Service) GetMedicine(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return s.medicines.GetByID(ctx, id)
}

// UpdateMedicine updates a medicine owned by pharmacyID.
func (s *Service) UpdateMedicine(ctx context.Context, pharmacyID uuid.UUID, m *Medicine) error {
	existing, err := s.medicines.GetByID(ctx, m.ID)
	if err != nil {
		return err
	}
	if existing.PharmacyID != pharmacyID {
		return ErrNotOwner
	}
	m.PharmacyID = existing.PharmacyID
	if err := m.Validate(); err != nil {
		return err
	}
	return s.medicines.Update(ctx, m)
}

// DeleteMedicine removes a medicine owned by pharmacyID.
func (s *Service) DeleteMedicine(ctx context.Context, pharmacyID, id uuid.UUID) error {
	existing, err := s.medicines.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.PharmacyID != pharmacyID {
		return ErrNotOwner
	}
	return s.medicines.Delete(ctx, id)
}

func (s *Service) ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID, limit, offset int) ([]*Medicine, int, error) {
	return s.medicines.ListByPharmacy(ctx, pharmacyID, limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Medicine, int, error) {
	return s.medicines.Search(ctx, params, limit, offset)
}

// SetStock overwrites the stock count for a medicine owned by pharmacyID.
func (s *Service) SetStock(ctx context.Context, pharmacyID, id uuid.UUID, stock int) error {
	if stock < 0 {
		return fmt.Errorf("stock must not be negative, got %d", stock)
	}
	existing, err := s.medicines.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.PharmacyID != pharmacyID {
		return ErrNotOwner
	}
	return s.medicines.SetStock(ctx, id, stock)
}
