package store

import (
	"context"

	"github.com/tripmates/tripmates-backend/internal/models"
)

func (s *gormStore) CreateNotification(ctx context.Context, notification *models.Notification) error {
	return s.db.WithContext(ctx).Create(notification).Error
}

func (s *gormStore) GetNotification(ctx context.Context, id uint) (*models.Notification, error) {
	var notification models.Notification
	if err := s.db.WithContext(ctx).First(&notification, id).Error; err != nil {
		return nil, translate(err)
	}
	return &notification, nil
}

func (s *gormStore) ListNotifications(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	if limit < 1 {
		limit = 50
	}
	var notifications []models.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

func (s *gormStore) MarkNotificationRead(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Update("is_read", true).Error
}

func (s *gormStore) MarkAllNotificationsRead(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}
