// Package booking manages doctor appointments. Availability is computed
// from fixed consultation hours minus already-held slots; a slot is held
// by any appointment that is not cancelled.
package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// CanTransition reports whether moving to next is a legal step.
// pending -> confirmed|cancelled, confirmed -> completed|cancelled.
// Completed and cancelled are terminal.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusCompleted || next == StatusCancelled
	}
	return false
}

type ConsultationType string

const (
	TypeNormal ConsultationType = "normal"
	TypeUrgent ConsultationType = "urgent"
)

// Consultation fees in cents by urgency tier.
const (
	FeeNormalCents = 500
	FeeUrgentCents = 1200
)

// FeeCents returns the fee for a consultation type.
func FeeCents(t ConsultationType) (int64, error) {
	switch t {
	case TypeNormal:
		return FeeNormalCents, nil
	case TypeUrgent:
		return FeeUrgentCents, nil
	}
	return 0, fmt.Errorf("unknown consultation type %q", t)
}

// DateLayout is the wire format for appointment dates.
const DateLayout = "2006-01-02"

// SlotLayout is the wire format for time slots, e.g. "10:00 AM".
const SlotLayout = "03:04 PM"

type Appointment struct {
	ID        uuid.UUID        `db:"id" json:"id"`
	PatientID uuid.UUID        `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID        `db:"doctor_id" json:"doctor_id"`
	Date      string           `db:"visit_date" json:"date"`
	Slot      string           `db:"slot" json:"slot"`
	Type      ConsultationType `db:"consultation_type" json:"type"`
	Notes     string           `db:"notes" json:"notes,omitempty"`
	FeeCents  int64            `db:"fee_cents" json:"fee_cents"`
	Status    Status           `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// CandidateSlots returns the slots a doctor can in principle be booked
// for on a date: weekdays 09:00 to 17:00 in half-hour steps minus the
// 13:00 to 14:00 lunch break, Saturday mornings only, Sundays closed.
func CandidateSlots(date time.Time) []string {
	switch date.Weekday() {
	case time.Sunday:
		return nil
	case time.Saturday:
		return halfHourSlots(9, 13)
	}
	return append(halfHourSlots(9, 13), halfHourSlots(14, 17)...)
}

func halfHourSlots(startHour, endHour int) []string {
	var slots []string
	for hour := startHour; hour < endHour; hour++ {
		for _, minute := range []int{0, 30} {
			t := time.Date(2000, 1, 1, hour, minute, 0, 0, time.UTC)
			slots = append(slots, t.Format(SlotLayout))
		}
	}
	return slots
}

// ValidSlot reports whether slot is one of the candidates for date.
func ValidSlot(date time.Time, slot string) bool {
	for _, s := range CandidateSlots(date) {
		if s == slot {
			return true
		}
	}
	return false
}
