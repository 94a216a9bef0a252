package notification

import (
	"context"

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

func (r *repoPG) Create(ctx context.Context, n *Notification) error {
	n.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO notification (id, user_id, kind, title, message)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at`,
		n.ID, n.UserID, n.Kind, n.Title, n.Message).Scan(&n.CreatedAt)
}

func (r *repoPG) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	filter := ``
	if unreadOnly {
		filter = ` AND read = FALSE`
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM notification WHERE user_id = $1`+filter, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, user_id, kind, title, message, read, created_at
		FROM notification WHERE user_id = $1`+filter+`
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	if err := row.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Message, &n.Read, &n.CreatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *repoPG) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM notification WHERE user_id = $1 AND read = FALSE`, userID).Scan(&count)
	return count, err
}

func (r *repoPG) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE notification SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE notification SET read = TRUE WHERE user_id = $1 AND read = FALSE`, userID)
	return err
}
