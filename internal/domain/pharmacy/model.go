// Package pharmacy manages medicine inventory. Stock never goes below
// zero: checkout decrements are guarded in SQL and pharmacy edits are
// validated in the service.
package pharmacy

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Medicine maps to the medicine table.
type Medicine struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PharmacyID  uuid.UUID  `db:"pharmacy_id" json:"pharmacy_id"`
	Name        string     `db:"name" json:"name"`
	Brand       string     `db:"brand" json:"brand,omitempty"`
	Category    string     `db:"category" json:"category,omitempty"`
	Description string     `db:"description" json:"description,omitempty"`
	PriceCents  int64      `db:"price_cents" json:"price_cents"`
	Stock       int        `db:"stock" json:"stock"`
	ExpiryDate  *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Validate checks invariants on create/update.
func (m *Medicine) Validate() error {
	if m.PharmacyID == uuid.Nil {
		return fmt.Errorf("pharmacy_id is required")
	}
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if m.PriceCents <= 0 {
		return fmt.Errorf("price_cents must be positive, got %d", m.PriceCents)
	}
	if m.Stock < 0 {
		return fmt.Errorf("stock must not be negative, got %d", m.Stock)
	}
	return nil
}

// InStock reports whether at least qty units are available.
func (m *Medicine) InStock(qty int) bool {
	return qty > 0 && m.Stock >= qty
}

// Expired reports whether the medicine is past its expiry date at t.
func (m *Medicine) Expired(t time.Time) bool {
	return m.ExpiryDate != nil && m.ExpiryDate.Before(t)
}
