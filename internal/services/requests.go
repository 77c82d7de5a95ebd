package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tripmates/tripmates-backend/internal/models"
	"github.com/tripmates/tripmates-backend/internal/store"
	"github.com/tripmates/tripmates-backend/pkg/apperrors"
)

// RequestService owns the trip-join-request state machine. Requests start
// PENDING and move exactly once to ACCEPTED or REJECTED; accepting re-checks
// capacity under a row lock so two concurrent accepts cannot both take the
// last slot.
type RequestService struct {
	store         store.Store
	notifications *NotificationService
}

func NewRequestService(st store.Store, notifications *NotificationService) *RequestService {
	return &RequestService{store: st, notifications: notifications}
}

func (s *RequestService) CreateRequest(ctx context.Context, tripID, requesterID uint, message string) (*models.TripRequest, error) {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("trip not found")
		}
		return nil, err
	}

	if trip.Status != models.TripStatusActive {
		return nil, apperrors.BadRequest("trip is not accepting requests")
	}

	if trip.UserID == requesterID {
		return nil, apperrors.BadRequest("you cannot request to join your own trip")
	}

	blocked, err := s.store.IsBlocked(ctx, requesterID, trip.UserID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, apperrors.Forbidden("you cannot send a request to this user")
	}

	// Capacity binds accepts, not creation: a full trip still takes PENDING
	// requests, so the owner keeps a waitlist to draw from.
	if _, err := s.store.GetRequestByTripAndRequester(ctx, tripID, requesterID); err == nil {
		return nil, apperrors.Conflict("you have already sent a request for this trip")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	request := &models.TripRequest{
		TripID:      tripID,
		RequesterID: requesterID,
		Status:      models.RequestStatusPending,
		Message:     message,
	}
	if err := s.store.CreateRequest(ctx, request); err != nil {
		return nil, err
	}

	// Reload with trip/requester/creator projections attached.
	created, err := s.store.GetRequest(ctx, request.ID)
	if err != nil {
		return nil, err
	}

	s.notifications.Notify(ctx, trip.UserID,
		"New Trip Request",
		fmt.Sprintf("%s wants to join your trip to %s", created.Requester.FullName, trip.Destination),
		models.TripRequestData{
			RequestID:   created.ID,
			TripID:      trip.ID,
			RequesterID: requesterID,
		})

	return created, nil
}

// RespondToRequest resolves a PENDING request. The request row is locked for
// the whole transaction, so concurrent responses serialize and the loser sees
// a terminal status instead of overwriting it. For accepts the trip row is
// locked too, so the second of two concurrent accept calls on the last open
// slot observes the first and fails with Conflict.
func (s *RequestService) RespondToRequest(ctx context.Context, requestID, responderID uint, decision models.RequestStatus) (*models.TripRequest, error) {
	if decision != models.RequestStatusAccepted && decision != models.RequestStatusRejected {
		return nil, apperrors.BadRequest("status must be ACCEPTED or REJECTED")
	}

	var request *models.TripRequest
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		request, err = tx.GetRequestForUpdate(ctx, requestID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperrors.NotFound("request not found")
			}
			return err
		}

		if request.Trip.UserID != responderID {
			return apperrors.Forbidden("you can only respond to requests for your own trips")
		}

		if request.Status != models.RequestStatusPending {
			return apperrors.Conflict(
				fmt.Sprintf("request has already been %s", strings.ToLower(string(request.Status))))
		}

		if decision == models.RequestStatusAccepted {
			trip, err := tx.GetTripForUpdate(ctx, request.TripID)
			if err != nil {
				return err
			}
			if trip.Status != models.TripStatusActive {
				return apperrors.BadRequest("trip is not accepting requests")
			}
			blocked, err := tx.IsBlocked(ctx, request.RequesterID, trip.UserID)
			if err != nil {
				return err
			}
			if blocked {
				return apperrors.Forbidden("you cannot accept a request from this user")
			}
			accepted, err := tx.CountAcceptedRequests(ctx, request.TripID)
			if err != nil {
				return err
			}
			if accepted >= int64(trip.PeopleNeeded) {
				return apperrors.Conflict("trip is already full")
			}
		}

		return tx.UpdateRequestStatus(ctx, requestID, decision)
	})
	if err != nil {
		return nil, err
	}

	// Reload with trip/requester/creator projections; the locked read skips
	// them.
	request, err = s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	// Notification runs after the transaction committed; its failure cannot
	// undo the transition.
	if decision == models.RequestStatusAccepted {
		s.notifications.Notify(ctx, request.RequesterID,
			"Request Accepted",
			fmt.Sprintf("Your request to join the trip to %s was accepted!", request.Trip.Destination),
			models.RequestAcceptedData{RequestID: request.ID, TripID: request.TripID})
	} else {
		s.notifications.Notify(ctx, request.RequesterID,
			"Request Declined",
			fmt.Sprintf("Your request to join the trip to %s was declined.", request.Trip.Destination),
			models.RequestRejectedData{RequestID: request.ID, TripID: request.TripID})
	}

	return request, nil
}

func (s *RequestService) GetRequestsForTrip(ctx context.Context, tripID, callerID uint) ([]models.TripRequest, error) {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("trip not found")
		}
		return nil, err
	}
	if trip.UserID != callerID {
		return nil, apperrors.Forbidden("you can only view requests for your own trips")
	}
	return s.store.ListRequestsForTrip(ctx, tripID)
}

func (s *RequestService) GetSentRequests(ctx context.Context, userID uint) ([]models.TripRequest, error) {
	return s.store.ListSentRequests(ctx, userID)
}

func (s *RequestService) GetReceivedRequests(ctx context.Context, userID uint) ([]models.TripRequest, error) {
	return s.store.ListReceivedRequests(ctx, userID)
}

// GetRequestByTripAndUser returns the caller's own request for a trip.
func (s *RequestService) GetRequestByTripAndUser(ctx context.Context, tripID, userID uint) (*models.TripRequest, error) {
	request, err := s.store.GetRequestByTripAndRequester(ctx, tripID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("request not found")
		}
		return nil, err
	}
	return request, nil
}
