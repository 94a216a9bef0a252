package ordering

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/caresync/caresync/internal/domain/pharmacy"
	"github.com/caresync/caresync/internal/platform/db"
)

// Notifier delivers a notification to one user. Failures are logged, not
// propagated; orders must not fail because the inbox write did.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind, title, message string) error
}

type Service struct {
	orders    Repository
	medicines pharmacy.Repository
	carts     CartStore
	pool      *pgxpool.Pool
	notifier  Notifier
}

func NewService(orders Repository, medicines pharmacy.Repository, carts CartStore, pool *pgxpool.Pool, notifier Notifier) *Service {
	return &Service{orders: orders, medicines: medicines, carts: carts, pool: pool, notifier: notifier}
}

// -- Cart operations --

func (s *Service) GetCart(ctx context.Context, patientID uuid.UUID) (*Cart, error) {
	return s.carts.Get(ctx, patientID)
}

func (s *Service) AddToCart(ctx context.Context, patientID, medicineID uuid.UUID) (*Cart, error) {
	med, err := s.medicines.GetByID(ctx, medicineID)
	if err != nil {
		return nil, err
	}
	cart, err := s.carts.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if err := cart.Add(med); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *Service) UpdateCartQuantity(ctx context.Context, patientID, medicineID uuid.UUID, delta int) (*Cart, error) {
	cart, err := s.carts.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if err := cart.UpdateQuantity(medicineID, delta); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *Service) RemoveFromCart(ctx context.Context, patientID, medicineID uuid.UUID) (*Cart, error) {
	cart, err := s.carts.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	cart.Remove(medicineID)
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// -- Checkout --

// Checkout turns the cart into a persisted order. The order insert and
// every stock decrement run in one transaction; any line hitting the
// stock floor rolls the whole checkout back. The cart survives a failed
// checkout and is cleared after a successful one.
func (s *Service) Checkout(ctx context.Context, patientID uuid.UUID, address string) (*Order, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrNoAddress
	}
	cart, err := s.carts.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if cart.Empty() {
		return nil, ErrEmptyCart
	}

	order := orderFromCart(cart, address)
	err = s.withTx(ctx, func(ctx context.Context) error {
		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}
		for _, item := range order.Items {
			if err := s.medicines.DecrementStock(ctx, item.MedicineID, item.Quantity); err != nil {
				return fmt.Errorf("reserve %q: %w", item.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.carts.Clear(ctx, patientID); err != nil {
		log.Warn().Err(err).Str("patient_id", patientID.String()).Msg("clear cart after checkout")
	}
	s.notify(ctx, patientID, "order_placed", "Order placed",
		fmt.Sprintf("Your order of %d item(s) was placed.", len(order.Items)))
	for _, st := range order.Statuses {
		s.notify(ctx, st.PharmacyID, "order_received", "New order",
			fmt.Sprintf("You have a new order with %d item(s).", len(order.ItemsFor(st.PharmacyID))))
	}
	return order, nil
}

// -- Queries --

// GetOrder enforces access: the owning patient and any participating
// pharmacy may read the order.
func (s *Service) GetOrder(ctx context.Context, requesterID uuid.UUID, orderID uuid.UUID) (*Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PatientID != requesterID && order.StatusFor(requesterID) == nil {
		return nil, ErrNotOwner
	}
	return order, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Order, int, error) {
	return s.orders.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID, limit, offset int) ([]*Order, int, error) {
	return s.orders.ListByPharmacy(ctx, pharmacyID, limit, offset)
}

// -- Pharmacy workflow --

// SetPharmacyStatus advances one pharmacy's sub-status. Declining puts
// that pharmacy's line quantities back into stock; the status update and
// the restores commit together. The update compares against the status
// read here, so of two concurrent transitions only one applies and only
// one compensation runs.
func (s *Service) SetPharmacyStatus(ctx context.Context, pharmacyID, orderID uuid.UUID, next PharmacyStatus) (*Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	current := order.StatusFor(pharmacyID)
	if current == nil {
		return nil, ErrNotParticipant
	}
	if !current.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, next)
	}

	err = s.withTx(ctx, func(ctx context.Context) error {
		if err := s.orders.UpdatePharmacyStatus(ctx, orderID, pharmacyID, current.Status, next); err != nil {
			return err
		}
		if next == StatusDeclined {
			for _, item := range order.ItemsFor(pharmacyID) {
				if err := s.medicines.RestoreStock(ctx, item.MedicineID, item.Quantity); err != nil {
					return fmt.Errorf("restore %q: %w", item.Name, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	current.Status = next
	s.notify(ctx, order.PatientID, "order_"+string(next), "Order update",
		fmt.Sprintf("A pharmacy marked part of your order as %s.", next))
	return order, nil
}

// withTx wraps fn in a database transaction. A nil pool runs fn directly;
// in-memory repositories have no transaction to join.
func (s *Service) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.WithTx(ctx, s.pool, fn)
}

func (s *Service) notify(ctx context.Context, userID uuid.UUID, kind, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, kind, title, message); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Str("kind", kind).Msg("notify failed")
	}
}
