package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caresync/caresync/internal/platform/auth"
	"github.com/caresync/caresync/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const userCols = `id, email, password_hash, role, name, phone, profile, created_at, updated_at`

func (r *repoPG) scanUser(row pgx.Row) (*User, error) {
	var u User
	var profile []byte
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Name, &u.Phone,
		&profile, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := unmarshalProfile(&u, profile); err != nil {
		return nil, err
	}
	return &u, nil
}

// unmarshalProfile decodes the profile JSON into the struct matching the
// user's role.
func unmarshalProfile(u *User, raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	var dst interface{}
	switch u.Role {
	case auth.RolePatient:
		u.Patient = &PatientProfile{}
		dst = u.Patient
	case auth.RoleDoctor:
		u.Doctor = &DoctorProfile{}
		dst = u.Doctor
	case auth.RolePharmacy:
		u.Pharmacy = &PharmacyProfile{}
		dst = u.Pharmacy
	case auth.RoleHospital:
		u.Hospital = &HospitalProfile{}
		dst = u.Hospital
	default:
		return fmt.Errorf("unknown role %q in app_user row", u.Role)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s profile: %w", u.Role, err)
	}
	return nil
}

func (r *repoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	profile, err := json.Marshal(u.Profile())
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO app_user (id, email, password_hash, role, name, phone, profile)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.Email, u.PasswordHash, u.Role, u.Name, u.Phone, profile)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM app_user WHERE id = $1`, id))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM app_user WHERE lower(email) = lower($1)`, email))
}

func (r *repoPG) Update(ctx context.Context, u *User) error {
	profile, err := json.Marshal(u.Profile())
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		UPDATE app_user SET name=$2, phone=$3, profile=$4, updated_at=NOW()
		WHERE id = $1`,
		u.ID, u.Name, u.Phone, profile)
	return err
}

func (r *repoPG) ListByRole(ctx context.Context, role string, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM app_user WHERE role = $1`, role).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+userCols+` FROM app_user WHERE role = $1 ORDER BY name LIMIT $2 OFFSET $3`,
		role, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
