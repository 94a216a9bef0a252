package booking

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestSlotConflictDetection(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "idx_appointment_slot_taken"}
	if !isSlotConflict(dup) {
		t.Error("slot index violation must be detected")
	}
	if !isSlotConflict(fmt.Errorf("insert appointment: %w", dup)) {
		t.Error("wrapped slot index violation must be detected")
	}

	otherIndex := &pgconn.PgError{Code: "23505", ConstraintName: "appointment_pkey"}
	if isSlotConflict(otherIndex) {
		t.Error("unique violations on other indexes must pass through")
	}
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "idx_appointment_slot_taken"}
	if isSlotConflict(fk) {
		t.Error("non-unique-violation codes must pass through")
	}
	if isSlotConflict(errors.New("connection reset")) {
		t.Error("plain errors must pass through")
	}
	if isSlotConflict(nil) {
		t.Error("nil must pass through")
	}
}
