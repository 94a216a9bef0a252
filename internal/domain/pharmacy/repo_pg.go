package pharmacy

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

const medCols = `id, pharmacy_id, name, brand, category, description,
	price_cents, stock, expiry_date, created_at, updated_at`

func (r *repoPG) scanMedicine(row pgx.Row) (*Medicine, error) {
	var m Medicine
	err := row.Scan(&m.ID, &m.PharmacyID, &m.Name, &m.Brand, &m.Category, &m.Description,
		&m.PriceCents, &m.Stock, &m.ExpiryDate, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repoPG) Create(ctx context.Context, m *Medicine) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medicine (id, pharmacy_id, name, brand, category, description,
			price_cents, stock, expiry_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		m.ID, m.PharmacyID, m.Name, m.Brand, m.Category, m.Description,
		m.PriceCents, m.Stock, m.ExpiryDate)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return r.scanMedicine(r.conn(ctx).QueryRow(ctx,
		`SELECT `+medCols+` FROM medicine WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, m *Medicine) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE medicine SET name=$2, brand=$3, category=$4, description=$5,
			price_cents=$6, stock=$7, expiry_date=$8, updated_at=NOW()
		WHERE id = $1`,
		m.ID, m.Name, m.Brand, m.Category, m.Description,
		m.PriceCents, m.Stock, m.ExpiryDate)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM medicine WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID, limit, offset int) ([]*Medicine, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medicine WHERE pharmacy_id = $1`, pharmacyID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+medCols+` FROM medicine WHERE pharmacy_id = $1 ORDER BY name LIMIT $2 OFFSET $3`,
		pharmacyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Medicine, int, error) {
	query := `SELECT ` + medCols + ` FROM medicine WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM medicine WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["name"]; ok {
		clause := fmt.Sprintf(` AND name ILIKE '%%' || $%d || '%%'`, idx)
		query += clause
		countQuery += clause
		args = append(args, p)
		idx++
	}
	if p, ok := params["brand"]; ok {
		clause := fmt.Sprintf(` AND brand ILIKE '%%' || $%d || '%%'`, idx)
		query += clause
		countQuery += clause
		args = append(args, p)
		idx++
	}
	if p, ok := params["category"]; ok {
		clause := fmt.Sprintf(` AND category = $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, p)
		idx++
	}
	if _, ok := params["in_stock"]; ok {
		query += ` AND stock > 0`
		countQuery += ` AND stock > 0`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *repoPG) collect(rows pgx.Rows, total int) ([]*Medicine, int, error) {
	var items []*Medicine
	for rows.Next() {
		m, err := r.scanMedicine(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *repoPG) SetStock(ctx context.Context, id uuid.UUID, stock int) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE medicine SET stock = $2, updated_at = NOW() WHERE id = $1`, id, stock)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	// The stock >= qty guard keeps the floor at zero even under
	// concurrent checkouts.
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE medicine SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2`, id, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrInsufficientStock
	}
	return nil
}

func (r *repoPG) RestoreStock(ctx context.Context, id uuid.UUID, qty int) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE medicine SET stock = stock + $2, updated_at = NOW() WHERE id = $1`, id, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
