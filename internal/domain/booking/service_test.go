package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	appts map[uuid.UUID]*Appointment
}

func newMockRepo() *mockRepo {
	return &mockRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.appts[a.ID] = a
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appts {
		if a.PatientID == patientID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appts {
		if a.DoctorID == doctorID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) BookedSlots(_ context.Context, doctorID uuid.UUID, date string) ([]string, error) {
	var slots []string
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.Date == date && a.Status != StatusCancelled {
			slots = append(slots, a.Slot)
		}
	}
	return slots, nil
}

func (m *mockRepo) SlotTaken(_ context.Context, doctorID uuid.UUID, date, slot string) (bool, error) {
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.Date == date && a.Slot == slot && a.Status != StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status Status) error {
	a, ok := m.appts[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	return nil
}

func (m *mockRepo) HasRelationship(_ context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.PatientID == patientID && a.Status != StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

type fakeNotifier struct {
	kinds map[uuid.UUID][]string
}

func (n *fakeNotifier) Notify(_ context.Context, userID uuid.UUID, kind, title, message string) error {
	if n.kinds == nil {
		n.kinds = make(map[uuid.UUID][]string)
	}
	n.kinds[userID] = append(n.kinds[userID], kind)
	return nil
}

// 2024-08-10 is a Saturday, 2024-08-12 a Monday, 2024-08-11 a Sunday.
const (
	saturday = "2024-08-10"
	sunday   = "2024-08-11"
	monday   = "2024-08-12"
)

func TestAvailableSlots(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil)
	ctx := context.Background()
	doctorID := uuid.New()

	weekday, err := svc.AvailableSlots(ctx, doctorID, monday)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	// 09:00 to 13:00 and 14:00 to 17:00 in half-hour steps.
	if len(weekday) != 14 {
		t.Errorf("expected 14 weekday slots, got %d: %v", len(weekday), weekday)
	}
	if weekday[0] != "09:00 AM" {
		t.Errorf("expected first slot 09:00 AM, got %q", weekday[0])
	}
	for _, slot := range weekday {
		if slot == "01:00 PM" || slot == "01:30 PM" {
			t.Errorf("lunch slot %q must not be offered", slot)
		}
	}

	sat, _ := svc.AvailableSlots(ctx, doctorID, saturday)
	if len(sat) != 8 {
		t.Errorf("expected 8 Saturday slots, got %d", len(sat))
	}

	sun, _ := svc.AvailableSlots(ctx, doctorID, sunday)
	if len(sun) != 0 {
		t.Errorf("expected no Sunday slots, got %v", sun)
	}

	if _, err := svc.AvailableSlots(ctx, doctorID, "10/08/2024"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
}

func TestBook(t *testing.T) {
	repo := newMockRepo()
	notifier := &fakeNotifier{}
	svc := NewService(repo, nil, notifier)
	ctx := context.Background()
	patientID := uuid.New()
	doctorID := uuid.New()

	appt, err := svc.Book(ctx, patientID, doctorID, saturday, "10:00 AM", TypeNormal, "knee pain")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if appt.Status != StatusPending {
		t.Errorf("new appointment must be pending, got %s", appt.Status)
	}
	if appt.FeeCents != FeeNormalCents {
		t.Errorf("expected normal fee %d, got %d", FeeNormalCents, appt.FeeCents)
	}

	// The booked slot disappears from availability.
	slots, _ := svc.AvailableSlots(ctx, doctorID, saturday)
	for _, slot := range slots {
		if slot == "10:00 AM" {
			t.Error("booked slot still offered")
		}
	}

	// Doctor and patient each got a notification.
	if len(notifier.kinds[doctorID]) != 1 || len(notifier.kinds[patientID]) != 1 {
		t.Errorf("expected one notification each, got %v", notifier.kinds)
	}

	urgent, err := svc.Book(ctx, patientID, doctorID, saturday, "11:00 AM", TypeUrgent, "")
	if err != nil {
		t.Fatalf("Book urgent: %v", err)
	}
	if urgent.FeeCents != FeeUrgentCents {
		t.Errorf("expected urgent fee %d, got %d", FeeUrgentCents, urgent.FeeCents)
	}
}

func TestBookValidation(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil)
	ctx := context.Background()
	patientID := uuid.New()
	doctorID := uuid.New()

	if _, err := svc.Book(ctx, patientID, doctorID, "not-a-date", "10:00 AM", TypeNormal, ""); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
	if _, err := svc.Book(ctx, patientID, doctorID, sunday, "10:00 AM", TypeNormal, ""); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("Sunday booking must fail with ErrInvalidSlot, got %v", err)
	}
	if _, err := svc.Book(ctx, patientID, doctorID, monday, "01:00 PM", TypeNormal, ""); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("lunch slot must fail with ErrInvalidSlot, got %v", err)
	}
	if _, err := svc.Book(ctx, patientID, doctorID, monday, "10:00 AM", "vip", ""); err == nil {
		t.Error("unknown consultation type must fail")
	}
}

func TestBookSlotConflict(t *testing.T) {
	// Two sessions go for the same doctor, date and slot. The second
	// attempt must lose: the slot is re-checked before the insert.
	svc := NewService(newMockRepo(), nil, nil)
	ctx := context.Background()
	doctorID := uuid.New()

	if _, err := svc.Book(ctx, uuid.New(), doctorID, saturday, "10:00 AM", TypeNormal, ""); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	if _, err := svc.Book(ctx, uuid.New(), doctorID, saturday, "10:00 AM", TypeNormal, ""); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken for second booking, got %v", err)
	}
}

// racingRepo simulates the insert losing a true race: the availability
// check sees the slot free, but the row lands on the unique index and the
// insert comes back ErrSlotTaken.
type racingRepo struct {
	*mockRepo
}

func (m *racingRepo) SlotTaken(_ context.Context, _ uuid.UUID, _, _ string) (bool, error) {
	return false, nil
}

func (m *racingRepo) Create(_ context.Context, _ *Appointment) error {
	return ErrSlotTaken
}

func TestBookLostRaceSurfacesSlotTaken(t *testing.T) {
	svc := NewService(&racingRepo{newMockRepo()}, nil, nil)

	_, err := svc.Book(context.Background(), uuid.New(), uuid.New(), saturday, "10:00 AM", TypeNormal, "")
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken when the insert loses the race, got %v", err)
	}
}

func TestCancelledSlotReopens(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil)
	ctx := context.Background()
	patientID := uuid.New()
	doctorID := uuid.New()

	appt, err := svc.Book(ctx, patientID, doctorID, saturday, "10:00 AM", TypeNormal, "")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if _, err := svc.SetStatus(ctx, patientID, appt.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := svc.Book(ctx, uuid.New(), doctorID, saturday, "10:00 AM", TypeNormal, ""); err != nil {
		t.Errorf("slot must reopen after cancellation, got %v", err)
	}
}

func TestStatusMachine(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil)
	ctx := context.Background()
	patientID := uuid.New()
	doctorID := uuid.New()

	appt, err := svc.Book(ctx, patientID, doctorID, saturday, "09:30 AM", TypeNormal, "")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	// Completing a pending appointment skips confirmation.
	if _, err := svc.SetStatus(ctx, doctorID, appt.ID, StatusCompleted); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	// Patients cannot confirm.
	if _, err := svc.SetStatus(ctx, patientID, appt.ID, StatusConfirmed); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("patient confirm must fail, got %v", err)
	}
	// Strangers cannot touch the appointment.
	if _, err := svc.SetStatus(ctx, uuid.New(), appt.ID, StatusCancelled); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("expected ErrNotParticipant, got %v", err)
	}

	if _, err := svc.SetStatus(ctx, doctorID, appt.ID, StatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	done, err := svc.SetStatus(ctx, doctorID, appt.ID, StatusCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", done.Status)
	}
	// Completed is terminal.
	if _, err := svc.SetStatus(ctx, patientID, appt.ID, StatusCancelled); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition from completed, got %v", err)
	}
}

func TestHasRelationship(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil)
	ctx := context.Background()
	patientID := uuid.New()
	doctorID := uuid.New()

	ok, _ := svc.HasRelationship(ctx, doctorID, patientID)
	if ok {
		t.Fatal("no relationship expected before booking")
	}
	if _, err := svc.Book(ctx, patientID, doctorID, saturday, "10:30 AM", TypeNormal, ""); err != nil {
		t.Fatalf("Book: %v", err)
	}
	ok, _ = svc.HasRelationship(ctx, doctorID, patientID)
	if !ok {
		t.Error("expected relationship after booking")
	}
}
