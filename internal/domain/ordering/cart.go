package ordering

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caresync/caresync/internal/domain/pharmacy"
)

var (
	ErrInsufficientStock = errors.New("requested quantity exceeds available stock")
	ErrLineNotFound      = errors.New("medicine is not in the cart")
)

// CartItem is one line in a patient's cart. Price and stock are snapshots
// taken when the line was added; quantity is always within [1, MaxStock].
type CartItem struct {
	MedicineID uuid.UUID `json:"medicine_id"`
	PharmacyID uuid.UUID `json:"pharmacy_id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Quantity   int       `json:"quantity"`
	MaxStock   int       `json:"max_stock"`
}

func (i CartItem) SubtotalCents() int64 {
	return i.PriceCents * int64(i.Quantity)
}

// Cart holds a patient's pending medicine selection.
type Cart struct {
	PatientID uuid.UUID  `json:"patient_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Add inserts a new line with quantity 1, or bumps an existing line by 1.
// A bump that would exceed the stock snapshot is rejected and the cart is
// left unchanged.
func (c *Cart) Add(m *pharmacy.Medicine) error {
	for idx := range c.Items {
		if c.Items[idx].MedicineID == m.ID {
			if c.Items[idx].Quantity+1 > c.Items[idx].MaxStock {
				return ErrInsufficientStock
			}
			c.Items[idx].Quantity++
			c.UpdatedAt = time.Now()
			return nil
		}
	}
	if m.Stock < 1 {
		return ErrInsufficientStock
	}
	c.Items = append(c.Items, CartItem{
		MedicineID: m.ID,
		PharmacyID: m.PharmacyID,
		Name:       m.Name,
		PriceCents: m.PriceCents,
		Quantity:   1,
		MaxStock:   m.Stock,
	})
	c.UpdatedAt = time.Now()
	return nil
}

// UpdateQuantity applies a signed delta to a line. Increments past the
// stock snapshot are rejected with the quantity unchanged; decrements
// floor at 1 and never remove the line.
func (c *Cart) UpdateQuantity(medicineID uuid.UUID, delta int) error {
	for idx := range c.Items {
		if c.Items[idx].MedicineID != medicineID {
			continue
		}
		next := c.Items[idx].Quantity + delta
		if next > c.Items[idx].MaxStock {
			return ErrInsufficientStock
		}
		if next < 1 {
			next = 1
		}
		c.Items[idx].Quantity = next
		c.UpdatedAt = time.Now()
		return nil
	}
	return ErrLineNotFound
}

// Remove drops a line. Removing a line that is not present is a no-op.
func (c *Cart) Remove(medicineID uuid.UUID) {
	for idx := range c.Items {
		if c.Items[idx].MedicineID == medicineID {
			c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
			c.UpdatedAt = time.Now()
			return
		}
	}
}

func (c *Cart) TotalCents() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.SubtotalCents()
	}
	return total
}

// PharmacyIDs returns the distinct pharmacies represented in the cart.
func (c *Cart) PharmacyIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, item := range c.Items {
		if _, ok := seen[item.PharmacyID]; !ok {
			seen[item.PharmacyID] = struct{}{}
			ids = append(ids, item.PharmacyID)
		}
	}
	return ids
}

func (c *Cart) Empty() bool { return len(c.Items) == 0 }

// CartStore persists carts between requests. Implementations must return
// an empty cart, not an error, for a patient with no saved cart.
type CartStore interface {
	Get(ctx context.Context, patientID uuid.UUID) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
	Clear(ctx context.Context, patientID uuid.UUID) error
}

type memoryCartStore struct {
	mu    sync.RWMutex
	carts map[uuid.UUID]*Cart
}

// NewMemoryCartStore returns an in-process CartStore. Carts are transient
// by nature, so process-local storage is acceptable.
func NewMemoryCartStore() CartStore {
	return &memoryCartStore{carts: make(map[uuid.UUID]*Cart)}
}

func (s *memoryCartStore) Get(_ context.Context, patientID uuid.UUID) (*Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cart, ok := s.carts[patientID]; ok {
		cp := *cart
		cp.Items = append([]CartItem(nil), cart.Items...)
		return &cp, nil
	}
	return &Cart{PatientID: patientID}, nil
}

func (s *memoryCartStore) Save(_ context.Context, cart *Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cart
	cp.Items = append([]CartItem(nil), cart.Items...)
	s.carts[cart.PatientID] = &cp
	return nil
}

func (s *memoryCartStore) Clear(_ context.Context, patientID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, patientID)
	return nil
}
