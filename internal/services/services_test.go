package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tripmates/tripmates-backend/internal/models"
	"github.com/tripmates/tripmates-backend/internal/store/storetest"
)

type fixture struct {
	store         *storetest.Memory
	notifications *NotificationService
	trips         *TripService
	requests      *RequestService
	conversations *ConversationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := storetest.NewMemory()
	notifications := NewNotificationService(mem, nil)
	return &fixture{
		store:         mem,
		notifications: notifications,
		trips:         NewTripService(mem, notifications),
		requests:      NewRequestService(mem, notifications),
		conversations: NewConversationService(mem, notifications),
	}
}

func (f *fixture) user(t *testing.T, name, email string) *models.User {
	t.Helper()
	user := &models.User{FullName: name, Email: email, PasswordHash: "x"}
	require.NoError(t, f.store.CreateUser(context.Background(), user))
	return user
}

func (f *fixture) trip(t *testing.T, owner *models.User, spots int) *models.Trip {
	t.Helper()
	trip := &models.Trip{
		UserID:       owner.ID,
		Destination:  "Lisbon",
		StartDate:    time.Now().AddDate(0, 1, 0),
		EndDate:      time.Now().AddDate(0, 1, 7),
		PeopleNeeded: spots,
		Status:       models.TripStatusActive,
	}
	require.NoError(t, f.store.CreateTrip(context.Background(), trip))
	return trip
}

func (f *fixture) pendingRequest(t *testing.T, trip *models.Trip, requester *models.User) *models.TripRequest {
	t.Helper()
	request, err := f.requests.CreateRequest(context.Background(), trip.ID, requester.ID, "hi")
	require.NoError(t, err)
	return request
}

func (f *fixture) acceptedRequest(t *testing.T, trip *models.Trip, requester *models.User) *models.TripRequest {
	t.Helper()
	request := f.pendingRequest(t, trip, requester)
	accepted, err := f.requests.RespondToRequest(context.Background(), request.ID, trip.UserID, models.RequestStatusAccepted)
	require.NoError(t, err)
	return accepted
}
