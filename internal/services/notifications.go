package services

import (
	"context"
	"encoding/json"
	"log"

	"github.com/tripmates/tripmates-backend/internal/models"
	"github.com/tripmates/tripmates-backend/internal/store"
	"github.com/tripmates/tripmates-backend/pkg/apperrors"
)

// NotificationService records notifications and pushes them to the
// recipient's personal room. Notifications are fire-and-forget: a failure
// here must never roll back or fail the state change that triggered it.
type NotificationService struct {
	store store.Store
	hub   *Hub
}

func NewNotificationService(st store.Store, hub *Hub) *NotificationService {
	return &NotificationService{store: st, hub: hub}
}

// Notify persists a notification and pushes it to the recipient if they are
// connected. Errors are logged, not returned.
func (s *NotificationService) Notify(ctx context.Context, userID uint, title, body string, data models.NotificationData) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("notifications: failed to encode %s payload for user %d: %v", data.NotificationType(), userID, err)
		return
	}

	notification := &models.Notification{
		UserID: userID,
		Type:   data.NotificationType(),
		Title:  title,
		Body:   body,
		Data:   payload,
	}
	if err := s.store.CreateNotification(ctx, notification); err != nil {
		log.Printf("notifications: failed to store %s for user %d: %v", notification.Type, userID, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastToUser(userID, "notification", notification)
	}
}

// List returns the recipient's most recent notifications.
func (s *NotificationService) List(ctx context.Context, userID uint) ([]models.Notification, error) {
	return s.store.ListNotifications(ctx, userID, 50)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID uint) (*models.Notification, error) {
	notification, err := s.store.GetNotification(ctx, id)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apperrors.NotFound("notification not found")
		}
		return nil, err
	}
	// Hide other users' notifications rather than admitting they exist.
	if notification.UserID != userID {
		return nil, apperrors.NotFound("notification not found")
	}
	if err := s.store.MarkNotificationRead(ctx, id); err != nil {
		return nil, err
	}
	notification.IsRead = true
	return notification, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) error {
	return s.store.MarkAllNotificationsRead(ctx, userID)
}
