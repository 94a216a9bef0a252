package reminders

import (
	"context"
	"errors"

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

const reminderCols = `id, patient_id, medicine_name, dosage, times, active, created_at, updated_at`

func scanReminder(row pgx.Row) (*Reminder, error) {
	var rem Reminder
	err := row.Scan(&rem.ID, &rem.PatientID, &rem.MedicineName, &rem.Dosage,
		&rem.Times, &rem.Active, &rem.CreatedAt, &rem.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rem, nil
}

func (r *repoPG) Create(ctx context.Context, rem *Reminder) error {
	rem.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medication_reminder (id, patient_id, medicine_name, dosage, times, active)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		rem.ID, rem.PatientID, rem.MedicineName, rem.Dosage, rem.Times, rem.Active).
		Scan(&rem.CreatedAt, &rem.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Reminder, error) {
	return scanReminder(r.conn(ctx).QueryRow(ctx,
		`SELECT `+reminderCols+` FROM medication_reminder WHERE id = $1`, id))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Reminder, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+reminderCols+` FROM medication_reminder
		WHERE patient_id = $1 ORDER BY medicine_name`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rem)
	}
	return items, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, rem *Reminder) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE medication_reminder
		SET medicine_name=$2, dosage=$3, times=$4, active=$5, updated_at=NOW()
		WHERE id = $1`,
		rem.ID, rem.MedicineName, rem.Dosage, rem.Times, rem.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM medication_reminder WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
