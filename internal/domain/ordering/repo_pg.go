package ordering

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caresync/caresync/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

func (r *repoPG) Create(ctx context.Context, o *Order) error {
	o.ID = uuid.New()
	conn := r.conn(ctx)
	_, err := conn.Exec(ctx, `
		INSERT INTO patient_order (id, patient_id, total_cents, delivery_address)
		VALUES ($1,$2,$3,$4)`,
		o.ID, o.PatientID, o.TotalCents, o.DeliveryAddress)
	if err != nil {
		return err
	}
	for _, item := range o.Items {
		_, err = conn.Exec(ctx, `
			INSERT INTO order_item (order_id, medicine_id, pharmacy_id, name, price_cents, quantity)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			o.ID, item.MedicineID, item.PharmacyID, item.Name, item.PriceCents, item.Quantity)
		if err != nil {
			return err
		}
	}
	for _, st := range o.Statuses {
		_, err = conn.Exec(ctx, `
			INSERT INTO order_pharmacy_status (order_id, pharmacy_id, status)
			VALUES ($1,$2,$3)`,
			o.ID, st.PharmacyID, st.Status)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var o Order
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, patient_id, total_cents, delivery_address, created_at, updated_at
		FROM patient_order WHERE id = $1`, id).
		Scan(&o.ID, &o.PatientID, &o.TotalCents, &o.DeliveryAddress, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repoPG) loadChildren(ctx context.Context, o *Order) error {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT medicine_id, pharmacy_id, name, price_cents, quantity
		FROM order_item WHERE order_id = $1 ORDER BY name`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.MedicineID, &item.PharmacyID, &item.Name,
			&item.PriceCents, &item.Quantity); err != nil {
			return err
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	srows, err := r.conn(ctx).Query(ctx, `
		SELECT pharmacy_id, status, updated_at
		FROM order_pharmacy_status WHERE order_id = $1`, o.ID)
	if err != nil {
		return err
	}
	defer srows.Close()
	for srows.Next() {
		var st OrderPharmacyStatus
		if err := srows.Scan(&st.PharmacyID, &st.Status, &st.UpdatedAt); err != nil {
			return err
		}
		o.Statuses = append(o.Statuses, st)
	}
	return srows.Err()
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Order, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient_order WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, total_cents, delivery_address, created_at, updated_at
		FROM patient_order WHERE patient_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	orders, err := r.collect(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *repoPG) ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID, limit, offset int) ([]*Order, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM patient_order o
		WHERE EXISTS (SELECT 1 FROM order_pharmacy_status s
			WHERE s.order_id = o.id AND s.pharmacy_id = $1)`, pharmacyID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT o.id, o.patient_id, o.total_cents, o.delivery_address, o.created_at, o.updated_at
		FROM patient_order o
		WHERE EXISTS (SELECT 1 FROM order_pharmacy_status s
			WHERE s.order_id = o.id AND s.pharmacy_id = $1)
		ORDER BY o.created_at DESC LIMIT $2 OFFSET $3`, pharmacyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	orders, err := r.collect(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *repoPG) collect(ctx context.Context, rows pgx.Rows) ([]*Order, error) {
	var orders []*Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.PatientID, &o.TotalCents, &o.DeliveryAddress,
			&o.CreatedAt, &o.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, &o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, o := range orders {
		if err := r.loadChildren(ctx, o); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *repoPG) UpdatePharmacyStatus(ctx context.Context, orderID, pharmacyID uuid.UUID, from, to PharmacyStatus) error {
	conn := r.conn(ctx)
	tag, err := conn.Exec(ctx, `
		UPDATE order_pharmacy_status SET status = $3, updated_at = NOW()
		WHERE order_id = $1 AND pharmacy_id = $2 AND status = $4`,
		orderID, pharmacyID, to, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either the pharmacy has no row or another update changed the
		// status after the caller read it.
		var exists bool
		if err := conn.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM order_pharmacy_status
				WHERE order_id = $1 AND pharmacy_id = $2)`,
			orderID, pharmacyID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotParticipant
		}
		return fmt.Errorf("%w: status changed concurrently", ErrInvalidTransition)
	}
	_, err = conn.Exec(ctx,
		`UPDATE patient_order SET updated_at = NOW() WHERE id = $1`, orderID)
	return err
}
