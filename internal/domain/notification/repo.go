package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("notification not found")

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	// ListByUser returns the newest first. unreadOnly filters to unread rows.
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	// MarkRead flips one row owned by userID; ErrNotFound covers both a
	// missing row and somebody else's row.
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}
