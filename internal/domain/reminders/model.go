// Package reminders stores per-patient medication schedules server-side
// so they follow the patient across devices.
package reminders

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimeLayout is the wire format for reminder times of day.
const TimeLayout = "15:04"

type Reminder struct {
	ID           uuid.UUID `db:"id" json:"id"`
	PatientID    uuid.UUID `db:"patient_id" json:"patient_id"`
	MedicineName string    `db:"medicine_name" json:"medicine_name"`
	Dosage       string    `db:"dosage" json:"dosage"`
	Times        []string  `db:"times" json:"times"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

func (r *Reminder) Validate() error {
	if r.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if r.MedicineName == "" {
		return fmt.Errorf("medicine_name is required")
	}
	if len(r.Times) == 0 {
		return fmt.Errorf("at least one time of day is required")
	}
	for _, ts := range r.Times {
		if _, err := time.Parse(TimeLayout, ts); err != nil {
			return fmt.Errorf("invalid time %q, want HH:MM", ts)
		}
	}
	return nil
}

// DueAt reports whether the reminder fires at t, minute precision.
func (r *Reminder) DueAt(t time.Time) bool {
	if !r.Active {
		return false
	}
	now := t.Format(TimeLayout)
	for _, ts := range r.Times {
		if ts == now {
			return true
		}
	}
	return false
}
