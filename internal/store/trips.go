package store

import (
	"context"

	"github.com/tripmates/tripmates-backend/internal/models"
	"gorm.io/gorm/clause"
)

func (s *gormStore) CreateTrip(ctx context.Context, trip *models.Trip) error {
	return s.db.WithContext(ctx).Create(trip).Error
}

func (s *gormStore) GetTrip(ctx context.Context, id uint) (*models.Trip, error) {
	var trip models.Trip
	if err := s.db.WithContext(ctx).Preload("Creator").First(&trip, id).Error; err != nil {
		return nil, translate(err)
	}
	return &trip, nil
}

func (s *gormStore) GetTripForUpdate(ctx context.Context, id uint) (*models.Trip, error) {
	var trip models.Trip
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&trip, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &trip, nil
}

func (s *gormStore) SaveTrip(ctx context.Context, trip *models.Trip) error {
	return s.db.WithContext(ctx).Save(trip).Error
}

func (s *gormStore) DeleteTrip(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&models.Trip{}, id).Error
}

func (s *gormStore) ListTrips(ctx context.Context, filter TripFilter) ([]models.Trip, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Trip{}).
		Where("status = ?", models.TripStatusActive)

	if filter.Destination != "" {
		query = query.Where("destination ILIKE ?", "%"+filter.Destination+"%")
	}
	if filter.StartAfter != "" {
		query = query.Where("start_date >= ?", filter.StartAfter)
	}
	if filter.StartBefore != "" {
		query = query.Where("start_date <= ?", filter.StartBefore)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}

	var trips []models.Trip
	err := query.Preload("Creator").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&trips).Error
	if err != nil {
		return nil, 0, err
	}
	return trips, total, nil
}

func (s *gormStore) ListTripsByOwner(ctx context.Context, userID uint) ([]models.Trip, error) {
	var trips []models.Trip
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Creator").
		Order("created_at DESC").
		Find(&trips).Error
	return trips, err
}
