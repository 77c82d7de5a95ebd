package store

import (
	"context"

	"github.com/tripmates/tripmates-backend/internal/models"
	"gorm.io/gorm/clause"
)

func (s *gormStore) CreateRequest(ctx context.Context, request *models.TripRequest) error {
	return s.db.WithContext(ctx).Create(request).Error
}

func (s *gormStore) GetRequest(ctx context.Context, id uint) (*models.TripRequest, error) {
	var request models.TripRequest
	err := s.db.WithContext(ctx).
		Preload("Trip").
		Preload("Trip.Creator").
		Preload("Requester").
		First(&request, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &request, nil
}

func (s *gormStore) GetRequestForUpdate(ctx context.Context, id uint) (*models.TripRequest, error) {
	var request models.TripRequest
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&request, id).Error
	if err != nil {
		return nil, translate(err)
	}
	if err := s.db.WithContext(ctx).First(&request.Trip, request.TripID).Error; err != nil {
		return nil, translate(err)
	}
	return &request, nil
}

func (s *gormStore) GetRequestByTripAndRequester(ctx context.Context, tripID, requesterID uint) (*models.TripRequest, error) {
	var request models.TripRequest
	err := s.db.WithContext(ctx).
		Where("trip_id = ? AND requester_id = ?", tripID, requesterID).
		Preload("Trip").
		Preload("Trip.Creator").
		First(&request).Error
	if err != nil {
		return nil, translate(err)
	}
	return &request, nil
}

func (s *gormStore) UpdateRequestStatus(ctx context.Context, id uint, status models.RequestStatus) error {
	return s.db.WithContext(ctx).
		Model(&models.TripRequest{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (s *gormStore) CountAcceptedRequests(ctx context.Context, tripID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.TripRequest{}).
		Where("trip_id = ? AND status = ?", tripID, models.RequestStatusAccepted).
		Count(&count).Error
	return count, err
}

func (s *gormStore) ListAcceptedRequesterIDs(ctx context.Context, tripID uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).
		Model(&models.TripRequest{}).
		Where("trip_id = ? AND status = ?", tripID, models.RequestStatusAccepted).
		Pluck("requester_id", &ids).Error
	return ids, err
}

func (s *gormStore) ListRequestsForTrip(ctx context.Context, tripID uint) ([]models.TripRequest, error) {
	var requests []models.TripRequest
	err := s.db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Preload("Requester").
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

func (s *gormStore) ListSentRequests(ctx context.Context, requesterID uint) ([]models.TripRequest, error) {
	var requests []models.TripRequest
	err := s.db.WithContext(ctx).
		Where("requester_id = ?", requesterID).
		Preload("Trip").
		Preload("Trip.Creator").
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

func (s *gormStore) ListReceivedRequests(ctx context.Context, ownerID uint) ([]models.TripRequest, error) {
	var requests []models.TripRequest
	err := s.db.WithContext(ctx).
		Joins("JOIN trips ON trips.id = trip_requests.trip_id").
		Where("trips.user_id = ?", ownerID).
		Preload("Trip").
		Preload("Requester").
		Order("trip_requests.created_at DESC").
		Find(&requests).Error
	return requests, err
}

func (s *gormStore) ListAcceptedRequestsForUser(ctx context.Context, userID uint) ([]models.TripRequest, error) {
	var requests []models.TripRequest
	err := s.db.WithContext(ctx).
		Joins("JOIN trips ON trips.id = trip_requests.trip_id").
		Where("trip_requests.status = ?", models.RequestStatusAccepted).
		Where("trip_requests.requester_id = ? OR trips.user_id = ?", userID, userID).
		Preload("Trip").
		Preload("Trip.Creator").
		Preload("Requester").
		Order("trip_requests.updated_at DESC").
		Find(&requests).Error
	return requests, err
}

func (s *gormStore) CreateBlock(ctx context.Context, block *models.Block) error {
	if err := s.db.WithContext(ctx).Create(block).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *gormStore) DeleteBlock(ctx context.Context, blockerID, blockedID uint) error {
	return s.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.Block{}).Error
}

func (s *gormStore) IsBlocked(ctx context.Context, userA, userB uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)",
			userA, userB, userB, userA).
		Count(&count).Error
	return count > 0, err
}
