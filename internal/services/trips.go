package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tripmates/tripmates-backend/internal/models"
	"github.com/tripmates/tripmates-backend/internal/store"
	"github.com/tripmates/tripmates-backend/pkg/apperrors"
)

type TripService struct {
	store         store.Store
	notifications *NotificationService
}

func NewTripService(st store.Store, notifications *NotificationService) *TripService {
	return &TripService{store: st, notifications: notifications}
}

type CreateTripInput struct {
	Destination  string
	StartDate    time.Time
	EndDate      time.Time
	Description  string
	PeopleNeeded int
}

type UpdateTripInput struct {
	Destination  *string
	StartDate    *time.Time
	EndDate      *time.Time
	Description  *string
	PeopleNeeded *int
}

// TripDetail is a trip annotated with its current occupancy.
type TripDetail struct {
	models.Trip
	AcceptedCount  int64 `json:"acceptedCount"`
	SpotsRemaining int64 `json:"spotsRemaining"`
	IsFull         bool  `json:"isFull"`
}

func validateDateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apperrors.BadRequest("invalid date format")
	}
	if !start.Before(end) {
		return apperrors.BadRequest("start date must be before end date")
	}
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if start.Before(today) {
		return apperrors.BadRequest("start date cannot be in the past")
	}
	return nil
}

func (s *TripService) CreateTrip(ctx context.Context, userID uint, input CreateTripInput) (*models.Trip, error) {
	if err := validateDateRange(input.StartDate, input.EndDate); err != nil {
		return nil, err
	}
	if input.PeopleNeeded < 1 {
		return nil, apperrors.BadRequest("peopleNeeded must be at least 1")
	}

	trip := &models.Trip{
		UserID:       userID,
		Destination:  input.Destination,
		StartDate:    input.StartDate,
		EndDate:      input.EndDate,
		Description:  input.Description,
		PeopleNeeded: input.PeopleNeeded,
		Status:       models.TripStatusActive,
	}
	if err := s.store.CreateTrip(ctx, trip); err != nil {
		return nil, err
	}
	return s.store.GetTrip(ctx, trip.ID)
}

func (s *TripService) GetTrip(ctx context.Context, id uint) (*TripDetail, error) {
	trip, err := s.store.GetTrip(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("trip not found")
		}
		return nil, err
	}
	if trip.Status != models.TripStatusActive {
		return nil, apperrors.NotFound("trip not found or no longer available")
	}

	accepted, err := s.store.CountAcceptedRequests(ctx, id)
	if err != nil {
		return nil, err
	}
	remaining := int64(trip.PeopleNeeded) - accepted
	if remaining < 0 {
		remaining = 0
	}
	return &TripDetail{
		Trip:           *trip,
		AcceptedCount:  accepted,
		SpotsRemaining: remaining,
		IsFull:         remaining == 0,
	}, nil
}

func (s *TripService) ListTrips(ctx context.Context, filter store.TripFilter) ([]models.Trip, int64, error) {
	return s.store.ListTrips(ctx, filter)
}

func (s *TripService) GetMyTrips(ctx context.Context, userID uint) ([]models.Trip, error) {
	return s.store.ListTripsByOwner(ctx, userID)
}

func (s *TripService) UpdateTrip(ctx context.Context, tripID, userID uint, input UpdateTripInput) (*models.Trip, error) {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("trip not found")
		}
		return nil, err
	}
	if trip.UserID != userID {
		return nil, apperrors.Forbidden("you can only update your own trips")
	}

	newStart := trip.StartDate
	newEnd := trip.EndDate
	if input.StartDate != nil {
		newStart = *input.StartDate
	}
	if input.EndDate != nil {
		newEnd = *input.EndDate
	}
	if (input.StartDate != nil || input.EndDate != nil) && !newStart.Before(newEnd) {
		return nil, apperrors.BadRequest("start date must be before end date")
	}

	// Capacity must never drop below the accepted headcount.
	if input.PeopleNeeded != nil {
		accepted, err := s.store.CountAcceptedRequests(ctx, tripID)
		if err != nil {
			return nil, err
		}
		if int64(*input.PeopleNeeded) < accepted {
			return nil, apperrors.Conflict(fmt.Sprintf(
				"cannot reduce spots to %d, you already have %d accepted participant(s)",
				*input.PeopleNeeded, accepted))
		}
		if *input.PeopleNeeded < 1 {
			return nil, apperrors.BadRequest("peopleNeeded must be at least 1")
		}
	}

	var changes []string
	if input.Destination != nil && *input.Destination != trip.Destination {
		changes = append(changes, "destination")
	}
	if input.StartDate != nil && !input.StartDate.Equal(trip.StartDate) {
		changes = append(changes, "start date")
	}
	if input.EndDate != nil && !input.EndDate.Equal(trip.EndDate) {
		changes = append(changes, "end date")
	}

	if input.Destination != nil {
		trip.Destination = *input.Destination
	}
	trip.StartDate = newStart
	trip.EndDate = newEnd
	if input.Description != nil {
		trip.Description = *input.Description
	}
	if input.PeopleNeeded != nil {
		trip.PeopleNeeded = *input.PeopleNeeded
	}

	if err := s.store.SaveTrip(ctx, trip); err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		s.notifyParticipants(ctx, trip, "Trip Updated",
			fmt.Sprintf("The trip to %s has been updated (%s)", trip.Destination, strings.Join(changes, ", ")),
			models.TripUpdateData{TripID: trip.ID, Action: "updated", Changes: changes})
	}

	return s.store.GetTrip(ctx, tripID)
}

// DeleteTrip removes a trip. With accepted participants it refuses unless
// force is set, in which case participants are notified before the row goes
// away. Returns how many participants were notified.
func (s *TripService) DeleteTrip(ctx context.Context, tripID, userID uint, force bool) (int, error) {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, apperrors.NotFound("trip not found")
		}
		return 0, err
	}
	if trip.UserID != userID {
		return 0, apperrors.Forbidden("you can only delete your own trips")
	}

	participants, err := s.store.ListAcceptedRequesterIDs(ctx, tripID)
	if err != nil {
		return 0, err
	}
	if len(participants) > 0 && !force {
		return 0, apperrors.Conflict(fmt.Sprintf(
			"cannot delete trip with %d accepted participant(s); cancel the trip instead, or force delete to notify and remove all participants",
			len(participants)))
	}

	for _, requesterID := range participants {
		s.notifications.Notify(ctx, requesterID,
			"Trip Cancelled",
			fmt.Sprintf("The trip to %s has been cancelled by the organizer.", trip.Destination),
			models.TripUpdateData{TripID: trip.ID, Action: "deleted"})
	}

	if err := s.store.DeleteTrip(ctx, tripID); err != nil {
		return 0, err
	}
	return len(participants), nil
}

// CancelTrip is the soft alternative to deletion.
func (s *TripService) CancelTrip(ctx context.Context, tripID, userID uint) (*models.Trip, error) {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("trip not found")
		}
		return nil, err
	}
	if trip.UserID != userID {
		return nil, apperrors.Forbidden("you can only cancel your own trips")
	}
	if trip.Status == models.TripStatusCancelled {
		return nil, apperrors.BadRequest("trip is already cancelled")
	}

	trip.Status = models.TripStatusCancelled
	if err := s.store.SaveTrip(ctx, trip); err != nil {
		return nil, err
	}

	s.notifyParticipants(ctx, trip, "Trip Cancelled",
		fmt.Sprintf("The trip to %s has been cancelled by the organizer.", trip.Destination),
		models.TripUpdateData{TripID: trip.ID, Action: "cancelled"})

	return trip, nil
}

func (s *TripService) notifyParticipants(ctx context.Context, trip *models.Trip, title, body string, data models.NotificationData) {
	participants, err := s.store.ListAcceptedRequesterIDs(ctx, trip.ID)
	if err != nil {
		return
	}
	for _, requesterID := range participants {
		s.notifications.Notify(ctx, requesterID, title, body, data)
	}
}
