// Package store is the persistence boundary. Services see the Store
// interface; the gorm implementation below is the only authoritative state in
// the system. Transaction runs a function against a store whose operations
// share one database transaction, which is what the capacity re-check on
// accept relies on.
package store

import (
	"context"
	"errors"

	"github.com/tripmates/tripmates-backend/internal/models"
)

// ErrNotFound is returned when a looked-up record does not exist. Services
// translate it into their own domain errors.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert violates a unique index.
var ErrDuplicate = errors.New("duplicate key")

type TripFilter struct {
	Destination string
	StartAfter  string // RFC 3339 date, inclusive
	StartBefore string // RFC 3339 date, inclusive
	Page        int
	Limit       int
}

type Store interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// Trips
	CreateTrip(ctx context.Context, trip *models.Trip) error
	GetTrip(ctx context.Context, id uint) (*models.Trip, error)
	// GetTripForUpdate locks the trip row for the remainder of the enclosing
	// transaction. Outside a transaction it behaves like GetTrip.
	GetTripForUpdate(ctx context.Context, id uint) (*models.Trip, error)
	SaveTrip(ctx context.Context, trip *models.Trip) error
	DeleteTrip(ctx context.Context, id uint) error
	ListTrips(ctx context.Context, filter TripFilter) ([]models.Trip, int64, error)
	ListTripsByOwner(ctx context.Context, userID uint) ([]models.Trip, error)

	// Trip requests
	CreateRequest(ctx context.Context, request *models.TripRequest) error
	GetRequest(ctx context.Context, id uint) (*models.TripRequest, error)
	// GetRequestForUpdate locks the request row for the remainder of the
	// enclosing transaction. Outside a transaction it behaves like GetRequest.
	GetRequestForUpdate(ctx context.Context, id uint) (*models.TripRequest, error)
	GetRequestByTripAndRequester(ctx context.Context, tripID, requesterID uint) (*models.TripRequest, error)
	UpdateRequestStatus(ctx context.Context, id uint, status models.RequestStatus) error
	CountAcceptedRequests(ctx context.Context, tripID uint) (int64, error)
	ListAcceptedRequesterIDs(ctx context.Context, tripID uint) ([]uint, error)
	ListRequestsForTrip(ctx context.Context, tripID uint) ([]models.TripRequest, error)
	ListSentRequests(ctx context.Context, requesterID uint) ([]models.TripRequest, error)
	ListReceivedRequests(ctx context.Context, ownerID uint) ([]models.TripRequest, error)
	ListAcceptedRequestsForUser(ctx context.Context, userID uint) ([]models.TripRequest, error)

	// Blocks
	CreateBlock(ctx context.Context, block *models.Block) error
	DeleteBlock(ctx context.Context, blockerID, blockedID uint) error
	IsBlocked(ctx context.Context, userA, userB uint) (bool, error)

	// Messages
	CreateMessage(ctx context.Context, message *models.Message) error
	GetMessage(ctx context.Context, id uint) (*models.Message, error)
	ListMessages(ctx context.Context, requestID uint, offset, limit int) ([]models.Message, error)
	CountMessages(ctx context.Context, requestID uint) (int64, error)
	LatestMessage(ctx context.Context, requestID uint) (*models.Message, error)
	CountUnreadMessages(ctx context.Context, requestID, receiverID uint) (int64, error)
	MarkMessageRead(ctx context.Context, id uint) error
	MarkAllMessagesRead(ctx context.Context, requestID, receiverID uint) (int64, error)

	// Notifications
	CreateNotification(ctx context.Context, notification *models.Notification) error
	GetNotification(ctx context.Context, id uint) (*models.Notification, error)
	ListNotifications(ctx context.Context, userID uint, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id uint) error
	MarkAllNotificationsRead(ctx context.Context, userID uint) error

	// Transaction runs fn against a store bound to a single atomic unit of
	// work. Returning an error rolls everything back.
	Transaction(ctx context.Context, fn func(Store) error) error
}
