package assistant

import (
	"context"

	"github.com/google/uuid"

	"github.com/caresync/caresync/internal/domain/booking"
	"github.com/caresync/caresync/internal/domain/ordering"
	"github.com/caresync/caresync/internal/domain/pharmacy"
	"github.com/caresync/caresync/internal/domain/reminders"
)

// Deps are the domain services the default tools read from. Every tool
// is read-only and scoped to the calling user.
type Deps struct {
	Appointments *booking.Service
	Medicines    *pharmacy.Service
	Orders       *ordering.Service
	Reminders    *reminders.Service
}

const toolPageSize = 10

// RegisterDefaultTools installs the standard patient-facing tools.
func RegisterDefaultTools(reg *Registry, deps Deps) error {
	tools := []Tool{
		{
			Name:        "list_appointments",
			Description: "List the patient's appointments with their date, time slot and status.",
			Handler: func(ctx context.Context, userID uuid.UUID, _ map[string]interface{}) (interface{}, error) {
				items, _, err := deps.Appointments.ListByPatient(ctx, userID, toolPageSize, 0)
				return items, err
			},
		},
		{
			Name:        "available_slots",
			Description: "List a doctor's free appointment slots on a date.",
			Params: []Param{
				{Name: "doctor_id", Type: "string", Description: "The doctor's id.", Required: true},
				{Name: "date", Type: "string", Description: "Date in YYYY-MM-DD form.", Required: true},
			},
			Handler: func(ctx context.Context, _ uuid.UUID, args map[string]interface{}) (interface{}, error) {
				doctorID, err := uuid.Parse(args["doctor_id"].(string))
				if err != nil {
					return nil, err
				}
				return deps.Appointments.AvailableSlots(ctx, doctorID, args["date"].(string))
			},
		},
		{
			Name:        "list_medicines",
			Description: "Search medicines across pharmacies by name.",
			Params: []Param{
				{Name: "name", Type: "string", Description: "Full or partial medicine name.", Required: true},
			},
			Handler: func(ctx context.Context, _ uuid.UUID, args map[string]interface{}) (interface{}, error) {
				items, _, err := deps.Medicines.Search(ctx,
					map[string]string{"name": args["name"].(string), "in_stock": "true"}, toolPageSize, 0)
				return items, err
			},
		},
		{
			Name:        "list_orders",
			Description: "List the patient's medicine orders with totals and per-pharmacy statuses.",
			Handler: func(ctx context.Context, userID uuid.UUID, _ map[string]interface{}) (interface{}, error) {
				items, _, err := deps.Orders.ListByPatient(ctx, userID, toolPageSize, 0)
				return items, err
			},
		},
		{
			Name:        "list_reminders",
			Description: "List the patient's medication reminders.",
			Handler: func(ctx context.Context, userID uuid.UUID, _ map[string]interface{}) (interface{}, error) {
				return deps.Reminders.List(ctx, userID)
			},
		},
	}
	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}
