package ordering

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/caresync/caresync/internal/domain/pharmacy"
)

// -- Fakes --

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*Order

	// readBarrier, when set, holds every GetByID until all expected
	// readers have arrived. Lets tests line up concurrent callers on a
	// shared stale read.
	readBarrier *sync.WaitGroup
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*Order)}
}

func (r *fakeOrderRepo) Create(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	r.orders[o.ID] = o
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*Order, error) {
	r.mu.Lock()
	o, ok := r.orders[id]
	if !ok {
		r.mu.Unlock()
		return nil, ErrNotFound
	}
	cp := *o
	cp.Items = append([]OrderItem(nil), o.Items...)
	cp.Statuses = append([]OrderPharmacyStatus(nil), o.Statuses...)
	r.mu.Unlock()

	if r.readBarrier != nil {
		r.readBarrier.Done()
		r.readBarrier.Wait()
	}
	return &cp, nil
}

func (r *fakeOrderRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Order, int, error) {
	var result []*Order
	for _, o := range r.orders {
		if o.PatientID == patientID {
			result = append(result, o)
		}
	}
	return result, len(result), nil
}

func (r *fakeOrderRepo) ListByPharmacy(_ context.Context, pharmacyID uuid.UUID, limit, offset int) ([]*Order, int, error) {
	var result []*Order
	for _, o := range r.orders {
		if o.StatusFor(pharmacyID) != nil {
			result = append(result, o)
		}
	}
	return result, len(result), nil
}

func (r *fakeOrderRepo) UpdatePharmacyStatus(_ context.Context, orderID, pharmacyID uuid.UUID, from, to PharmacyStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	st := o.StatusFor(pharmacyID)
	if st == nil {
		return ErrNotParticipant
	}
	if st.Status != from {
		return ErrInvalidTransition
	}
	st.Status = to
	st.UpdatedAt = time.Now()
	return nil
}

type fakeMedsRepo struct {
	meds map[uuid.UUID]*pharmacy.Medicine
}

func newFakeMedsRepo(meds ...*pharmacy.Medicine) *fakeMedsRepo {
	r := &fakeMedsRepo{meds: make(map[uuid.UUID]*pharmacy.Medicine)}
	for _, m := range meds {
		r.meds[m.ID] = m
	}
	return r
}

func (r *fakeMedsRepo) Create(_ context.Context, m *pharmacy.Medicine) error {
	r.meds[m.ID] = m
	return nil
}

func (r *fakeMedsRepo) GetByID(_ context.Context, id uuid.UUID) (*pharmacy.Medicine, error) {
	m, ok := r.meds[id]
	if !ok {
		return nil, pharmacy.ErrNotFound
	}
	return m, nil
}

func (r *fakeMedsRepo) Update(_ context.Context, m *pharmacy.Medicine) error { return nil }
func (r *fakeMedsRepo) Delete(_ context.Context, id uuid.UUID) error        { return nil }

func (r *fakeMedsRepo) ListByPharmacy(_ context.Context, pharmacyID uuid.UUID, limit, offset int) ([]*pharmacy.Medicine, int, error) {
	return nil, 0, nil
}

func (r *fakeMedsRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*pharmacy.Medicine, int, error) {
	return nil, 0, nil
}

func (r *fakeMedsRepo) SetStock(_ context.Context, id uuid.UUID, stock int) error {
	m, ok := r.meds[id]
	if !ok {
		return pharmacy.ErrNotFound
	}
	m.Stock = stock
	return nil
}

func (r *fakeMedsRepo) DecrementStock(_ context.Context, id uuid.UUID, qty int) error {
	m, ok := r.meds[id]
	if !ok {
		return pharmacy.ErrNotFound
	}
	if m.Stock < qty {
		return pharmacy.ErrInsufficientStock
	}
	m.Stock -= qty
	return nil
}

func (r *fakeMedsRepo) RestoreStock(_ context.Context, id uuid.UUID, qty int) error {
	m, ok := r.meds[id]
	if !ok {
		return pharmacy.ErrNotFound
	}
	m.Stock += qty
	return nil
}

type recordedNotification struct {
	UserID uuid.UUID
	Kind   string
}

type fakeNotifier struct {
	sent []recordedNotification
}

func (n *fakeNotifier) Notify(_ context.Context, userID uuid.UUID, kind, title, message string) error {
	n.sent = append(n.sent, recordedNotification{UserID: userID, Kind: kind})
	return nil
}

func newTestService(meds ...*pharmacy.Medicine) (*Service, *fakeOrderRepo, *fakeMedsRepo, *fakeNotifier) {
	orders := newFakeOrderRepo()
	medsRepo := newFakeMedsRepo(meds...)
	notifier := &fakeNotifier{}
	svc := NewService(orders, medsRepo, NewMemoryCartStore(), nil, notifier)
	return svc, orders, medsRepo, notifier
}

// -- Tests --

func TestCheckout(t *testing.T) {
	// Medicine A price 70, stock 50; medicine B price 250, stock 25.
	a := med("Medicine A", 70, 50)
	b := med("Medicine B", 250, 25)
	svc, orders, medsRepo, notifier := newTestService(a, b)
	ctx := context.Background()
	patientID := uuid.New()

	// Add 2x A and 1x B.
	if _, err := svc.AddToCart(ctx, patientID, a.ID); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if _, err := svc.AddToCart(ctx, patientID, a.ID); err != nil {
		t.Fatalf("add a twice: %v", err)
	}
	if _, err := svc.AddToCart(ctx, patientID, b.ID); err != nil {
		t.Fatalf("add b: %v", err)
	}

	order, err := svc.Checkout(ctx, patientID, "12 Green Park, Delhi")
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	if order.TotalCents != 70*2+250 {
		t.Errorf("expected total 390, got %d", order.TotalCents)
	}
	if len(order.Items) != 2 {
		t.Errorf("expected 2 items, got %d", len(order.Items))
	}
	if len(order.Statuses) != 2 {
		t.Errorf("A and B come from different pharmacies, expected 2 statuses, got %d", len(order.Statuses))
	}

	// Total equals the sum of the line subtotals.
	var sum int64
	for _, item := range order.Items {
		sum += item.SubtotalCents()
	}
	if order.TotalCents != sum {
		t.Errorf("total %d != sum of subtotals %d", order.TotalCents, sum)
	}

	// Distinct pharmacy ids in the status list match those among the items.
	itemPharmacies := make(map[uuid.UUID]bool)
	for _, item := range order.Items {
		itemPharmacies[item.PharmacyID] = true
	}
	for _, st := range order.Statuses {
		if st.Status != StatusPending {
			t.Errorf("fresh sub-status must be pending, got %s", st.Status)
		}
		if !itemPharmacies[st.PharmacyID] {
			t.Errorf("status for pharmacy %s has no matching items", st.PharmacyID)
		}
		delete(itemPharmacies, st.PharmacyID)
	}
	if len(itemPharmacies) != 0 {
		t.Errorf("%d item pharmacies missing a status entry", len(itemPharmacies))
	}

	// Stock was decremented.
	if a.Stock != 48 {
		t.Errorf("expected A stock 48, got %d", a.Stock)
	}
	if b.Stock != 24 {
		t.Errorf("expected B stock 24, got %d", b.Stock)
	}

	// Cart is cleared.
	cart, _ := svc.GetCart(ctx, patientID)
	if !cart.Empty() {
		t.Error("cart must be empty after checkout")
	}

	if len(orders.orders) != 1 {
		t.Errorf("expected 1 persisted order, got %d", len(orders.orders))
	}
	// Patient plus both pharmacies were notified.
	if len(notifier.sent) != 3 {
		t.Errorf("expected 3 notifications, got %d", len(notifier.sent))
	}
	_ = medsRepo
}

func TestCheckoutValidation(t *testing.T) {
	a := med("Medicine A", 70, 50)
	svc, _, _, _ := newTestService(a)
	ctx := context.Background()
	patientID := uuid.New()

	if _, err := svc.Checkout(ctx, patientID, "somewhere"); !errors.Is(err, ErrEmptyCart) {
		t.Errorf("expected ErrEmptyCart, got %v", err)
	}

	if _, err := svc.AddToCart(ctx, patientID, a.ID); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Checkout(ctx, patientID, "   "); !errors.Is(err, ErrNoAddress) {
		t.Errorf("expected ErrNoAddress, got %v", err)
	}
}

func TestCheckoutInsufficientStock(t *testing.T) {
	a := med("Medicine A", 70, 1)
	svc, orders, _, _ := newTestService(a)
	ctx := context.Background()
	patientID := uuid.New()

	if _, err := svc.AddToCart(ctx, patientID, a.ID); err != nil {
		t.Fatalf("add: %v", err)
	}
	// Another patient takes the last unit before checkout.
	a.Stock = 0

	if _, err := svc.Checkout(ctx, patientID, "somewhere"); !errors.Is(err, pharmacy.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	// The cart survives the failed checkout.
	cart, _ := svc.GetCart(ctx, patientID)
	if cart.Empty() {
		t.Error("cart must be preserved when checkout fails")
	}
	_ = orders
}

func TestPharmacyStatusFlow(t *testing.T) {
	a := med("Medicine A", 70, 50)
	svc, _, _, notifier := newTestService(a)
	ctx := context.Background()
	patientID := uuid.New()

	if _, err := svc.AddToCart(ctx, patientID, a.ID); err != nil {
		t.Fatalf("add: %v", err)
	}
	order, err := svc.Checkout(ctx, patientID, "somewhere")
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	// A stranger pharmacy cannot touch the order.
	if _, err := svc.SetPharmacyStatus(ctx, uuid.New(), order.ID, StatusApproved); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("expected ErrNotParticipant, got %v", err)
	}

	// pending -> delivered skips approval.
	if _, err := svc.SetPharmacyStatus(ctx, a.PharmacyID, order.ID, StatusDelivered); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	if _, err := svc.SetPharmacyStatus(ctx, a.PharmacyID, order.ID, StatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	updated, err := svc.SetPharmacyStatus(ctx, a.PharmacyID, order.ID, StatusDelivered)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if got := updated.StatusFor(a.PharmacyID).Status; got != StatusDelivered {
		t.Errorf("expected delivered, got %s", got)
	}

	// Delivered is terminal.
	if _, err := svc.SetPharmacyStatus(ctx, a.PharmacyID, order.ID, StatusApproved); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition from delivered, got %v", err)
	}

	// Patient got the status change notifications.
	var patientKinds []string
	for _, n := range notifier.sent {
		if n.UserID == patientID {
			patientKinds = append(patientKinds, n.Kind)
		}
	}
	if len(patientKinds) != 3 {
		t.Errorf("expected placed+approved+delivered for patient, got %v", patientKinds)
	}
}

func TestDeclineRestoresStock(t *testing.T) {
	a := med("Medicine A", 70, 10)
	svc, _, _, _ := newTestService(a)
	ctx := context.Background()
	patientID := uuid.New()

	if _, err := svc.AddToCart(ctx, patientID, a.ID); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.UpdateCartQuantity(ctx, patientID, a.ID, 2); err != nil {
		t.Fatalf("bump quantity: %v", err)
	}
	order, err := svc.Checkout(ctx, patientID, "somewhere")
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if a.Stock != 7 {
		t.Fatalf("expected stock 7 after checkout, got %d", a.Stock)
	}

	if _, err := svc.SetPharmacyStatus(ctx, a.PharmacyID, order.ID, StatusDeclined); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if a.Stock != 10 {
		t.Errorf("decline must restore stock to 10, got %d", a.Stock)
	}

	// Declined is terminal; the order itself is kept.
	if _, err := svc.SetPharmacyStatus(ctx, a.PharmacyID, order.ID, StatusApproved); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition from declined, got %v", err)
	}
	if _, err := svc.GetOrder(ctx, patientID, order.ID); err != nil {
		t.Errorf("declined order must remain readable: %v", err)
	}
}

func TestConcurrentDeclineRestoresStockOnce(t *testing.T) {
	a := med("Medicine A", 70, 50)
	svc, orders, _, _ := newTestService(a)
	ctx := context.Background()
	patientID := uuid.New()

	if _, err := svc.AddToCart(ctx, patientID, a.ID); err != nil {
		t.Fatalf("add: %v", err)
	}
	order, err := svc.Checkout(ctx, patientID, "somewhere")
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if a.Stock != 49 {
		t.Fatalf("expected stock 49 after checkout, got %d", a.Stock)
	}

	// Hold both declines until each has read the pending status, so both
	// pass the transition check on the same stale snapshot.
	var barrier sync.WaitGroup
	barrier.Add(2)
	orders.readBarrier = &barrier

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := svc.SetPharmacyStatus(ctx, a.PharmacyID, order.ID, StatusDeclined)
			results <- err
		}()
	}

	var lost int
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("losing decline must get ErrInvalidTransition, got %v", err)
			}
			lost++
		}
	}
	if lost != 1 {
		t.Errorf("exactly one of two concurrent declines must lose, got %d losers", lost)
	}
	if a.Stock != 50 {
		t.Errorf("expected stock 50 after a single restore, got %d", a.Stock)
	}
}

func TestGetOrderAccess(t *testing.T) {
	a := med("Medicine A", 70, 50)
	svc, _, _, _ := newTestService(a)
	ctx := context.Background()
	patientID := uuid.New()

	if _, err := svc.AddToCart(ctx, patientID, a.ID); err != nil {
		t.Fatalf("add: %v", err)
	}
	order, err := svc.Checkout(ctx, patientID, "somewhere")
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	if _, err := svc.GetOrder(ctx, patientID, order.ID); err != nil {
		t.Errorf("owner read failed: %v", err)
	}
	if _, err := svc.GetOrder(ctx, a.PharmacyID, order.ID); err != nil {
		t.Errorf("participating pharmacy read failed: %v", err)
	}
	if _, err := svc.GetOrder(ctx, uuid.New(), order.ID); !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner for stranger, got %v", err)
	}
}
