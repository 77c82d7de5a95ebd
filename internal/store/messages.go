package store

import (
	"context"

	"github.com/tripmates/tripmates-backend/internal/models"
)

func (s *gormStore) CreateMessage(ctx context.Context, message *models.Message) error {
	return s.db.WithContext(ctx).Create(message).Error
}

func (s *gormStore) GetMessage(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	err := s.db.WithContext(ctx).
		Preload("Sender").
		Preload("TripRequest").
		Preload("TripRequest.Trip").
		First(&message, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &message, nil
}

// ListMessages returns messages in chronological order. Offset counts from
// the oldest message; the service computes offsets so that page 1 holds the
// most recent messages.
func (s *gormStore) ListMessages(ctx context.Context, requestID uint, offset, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("trip_request_id = ?", requestID).
		Preload("Sender").
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (s *gormStore) CountMessages(ctx context.Context, requestID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("trip_request_id = ?", requestID).
		Count(&count).Error
	return count, err
}

func (s *gormStore) LatestMessage(ctx context.Context, requestID uint) (*models.Message, error) {
	var message models.Message
	err := s.db.WithContext(ctx).
		Where("trip_request_id = ?", requestID).
		Preload("Sender").
		Order("created_at DESC, id DESC").
		First(&message).Error
	if err != nil {
		return nil, translate(err)
	}
	return &message, nil
}

func (s *gormStore) CountUnreadMessages(ctx context.Context, requestID, receiverID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("trip_request_id = ? AND receiver_id = ? AND is_read = ?", requestID, receiverID, false).
		Count(&count).Error
	return count, err
}

func (s *gormStore) MarkMessageRead(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ?", id).
		Update("is_read", true).Error
}

func (s *gormStore) MarkAllMessagesRead(ctx context.Context, requestID, receiverID uint) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("trip_request_id = ? AND receiver_id = ? AND is_read = ?", requestID, receiverID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}
