package notification

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/caresync/caresync/internal/platform/ws"
)

type Service struct {
	repo      Repository
	publisher ws.Publisher
}

// NewService wires the inbox to an optional websocket publisher. A nil
// publisher disables pushes without disabling the inbox.
func NewService(repo Repository, publisher ws.Publisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

// Notify persists a notification and pushes it to the user's websocket
// topic. Satisfies the Notifier interfaces of the ordering and booking
// services.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, kind, title, message string) error {
	n := &Notification{
		UserID:  userID,
		Kind:    kind,
		Title:   title,
		Message: message,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	s.push(ctx, n)
	return nil
}

func (s *Service) push(ctx context.Context, n *Notification) {
	if s.publisher == nil {
		return
	}
	data, err := json.Marshal(n)
	if err != nil {
		log.Error().Err(err).Msg("marshal notification for push")
		return
	}
	event := ws.Event{
		Type:  "notification",
		Topic: ws.UserTopic(n.UserID),
		Data:  data,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("user_id", n.UserID.String()).Msg("push notification")
	}
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly, limit, offset)
}

func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID)
}
