// Package ordering implements the medicine cart and the multi-pharmacy
// order lifecycle. One order may span several pharmacies; each pharmacy
// carries its own sub-status and acts on its own lines independently.
package ordering

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PharmacyStatus is the per-pharmacy state of an order.
type PharmacyStatus string

const (
	StatusPending   PharmacyStatus = "pending"
	StatusApproved  PharmacyStatus = "approved"
	StatusDeclined  PharmacyStatus = "declined"
	StatusDelivered PharmacyStatus = "delivered"
)

// CanTransition reports whether moving to next is a legal step.
// pending -> approved|declined, approved -> delivered. Declined and
// delivered are terminal.
func (s PharmacyStatus) CanTransition(next PharmacyStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusDeclined
	case StatusApproved:
		return next == StatusDelivered
	}
	return false
}

func ParsePharmacyStatus(raw string) (PharmacyStatus, error) {
	switch PharmacyStatus(raw) {
	case StatusPending, StatusApproved, StatusDeclined, StatusDelivered:
		return PharmacyStatus(raw), nil
	}
	return "", fmt.Errorf("unknown order status %q", raw)
}

// OrderItem is a purchased line, frozen at checkout time.
type OrderItem struct {
	MedicineID uuid.UUID `db:"medicine_id" json:"medicine_id"`
	PharmacyID uuid.UUID `db:"pharmacy_id" json:"pharmacy_id"`
	Name       string    `db:"name" json:"name"`
	PriceCents int64     `db:"price_cents" json:"price_cents"`
	Quantity   int       `db:"quantity" json:"quantity"`
}

func (i OrderItem) SubtotalCents() int64 {
	return i.PriceCents * int64(i.Quantity)
}

// OrderPharmacyStatus tracks one pharmacy's progress on an order.
type OrderPharmacyStatus struct {
	PharmacyID uuid.UUID      `db:"pharmacy_id" json:"pharmacy_id"`
	Status     PharmacyStatus `db:"status" json:"status"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// Order is a checked-out cart. Orders are never deleted; declined
// pharmacies keep their rows with status "declined".
type Order struct {
	ID              uuid.UUID             `db:"id" json:"id"`
	PatientID       uuid.UUID             `db:"patient_id" json:"patient_id"`
	Items           []OrderItem           `json:"items"`
	Statuses        []OrderPharmacyStatus `json:"pharmacy_statuses"`
	TotalCents      int64                 `db:"total_cents" json:"total_cents"`
	DeliveryAddress string                `db:"delivery_address" json:"delivery_address"`
	CreatedAt       time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time             `db:"updated_at" json:"updated_at"`
}

// StatusFor returns the sub-status entry for one pharmacy, or nil if the
// pharmacy has no lines in this order.
func (o *Order) StatusFor(pharmacyID uuid.UUID) *OrderPharmacyStatus {
	for idx := range o.Statuses {
		if o.Statuses[idx].PharmacyID == pharmacyID {
			return &o.Statuses[idx]
		}
	}
	return nil
}

// ItemsFor returns the lines belonging to one pharmacy.
func (o *Order) ItemsFor(pharmacyID uuid.UUID) []OrderItem {
	var items []OrderItem
	for _, item := range o.Items {
		if item.PharmacyID == pharmacyID {
			items = append(items, item)
		}
	}
	return items
}

// orderFromCart freezes a cart into an order: lines copied, one pending
// sub-status per distinct pharmacy, total recomputed from the lines.
func orderFromCart(cart *Cart, address string) *Order {
	o := &Order{
		PatientID:       cart.PatientID,
		DeliveryAddress: address,
	}
	for _, line := range cart.Items {
		o.Items = append(o.Items, OrderItem{
			MedicineID: line.MedicineID,
			PharmacyID: line.PharmacyID,
			Name:       line.Name,
			PriceCents: line.PriceCents,
			Quantity:   line.Quantity,
		})
		o.TotalCents += line.SubtotalCents()
	}
	for _, pid := range cart.PharmacyIDs() {
		o.Statuses = append(o.Statuses, OrderPharmacyStatus{
			PharmacyID: pid,
			Status:     StatusPending,
		})
	}
	return o
}
