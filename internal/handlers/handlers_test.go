package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripmates/tripmates-backend/internal/middleware"
	"github.com/tripmates/tripmates-backend/internal/models"
	"github.com/tripmates/tripmates-backend/internal/services"
	"github.com/tripmates/tripmates-backend/internal/store/storetest"
	"github.com/tripmates/tripmates-backend/pkg/utils"
)

type testEnv struct {
	router *gin.Engine
	store  *storetest.Memory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)

	mem := storetest.NewMemory()
	notifications := services.NewNotificationService(mem, nil)
	trips := services.NewTripService(mem, notifications)
	requests := services.NewRequestService(mem, notifications)
	conversations := services.NewConversationService(mem, notifications)

	r := gin.New()
	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", Register(mem))
			auth.POST("/login", Login(mem))
		}

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			tripRoutes := protected.Group("/trips")
			{
				tripRoutes.POST("", CreateTrip(trips))
				tripRoutes.GET("", GetTrips(trips))
				tripRoutes.GET("/my", GetMyTrips(trips))
				tripRoutes.GET("/:id", GetTrip(trips))
				tripRoutes.PATCH("/:id", UpdateTrip(trips))
				tripRoutes.DELETE("/:id", DeleteTrip(trips))
				tripRoutes.POST("/:id/cancel", CancelTrip(trips))
				tripRoutes.POST("/:id/requests", CreateRequest(requests))
				tripRoutes.GET("/:id/requests", GetRequestsForTrip(requests))
				tripRoutes.GET("/:id/my-request", GetMyRequestForTrip(requests))
			}

			requestRoutes := protected.Group("/requests")
			{
				requestRoutes.GET("/sent", GetSentRequests(requests))
				requestRoutes.GET("/received", GetReceivedRequests(requests))
				requestRoutes.GET("/conversations", GetConversations(conversations))
				requestRoutes.PATCH("/:id/respond", RespondToRequest(requests))
				requestRoutes.GET("/:id/messages", GetMessages(conversations))
			}

			userRoutes := protected.Group("/users")
			{
				userRoutes.POST("/:id/block", BlockUser(mem))
				userRoutes.DELETE("/:id/block", UnblockUser(mem))
			}

			notificationRoutes := protected.Group("/notifications")
			{
				notificationRoutes.GET("", GetNotifications(notifications))
				notificationRoutes.PATCH("/:id/read", MarkNotificationRead(notifications))
				notificationRoutes.PATCH("/read-all", MarkAllNotificationsRead(notifications))
			}
		}
	}

	return &testEnv{router: r, store: mem}
}

func (e *testEnv) user(t *testing.T, name, email string) (*models.User, string) {
	t.Helper()
	user := &models.User{FullName: name, Email: email, Password: "secret123"}
	require.NoError(t, user.HashPassword())
	require.NoError(t, e.store.CreateUser(context.Background(), user))

	token, err := utils.GenerateToken(user)
	require.NoError(t, err)
	return user, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func (e *testEnv) createTrip(t *testing.T, token string, spots int) uint {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/trips", token, gin.H{
		"destination":  "Lisbon",
		"startDate":    time.Now().AddDate(0, 1, 0).Format(time.RFC3339),
		"endDate":      time.Now().AddDate(0, 1, 7).Format(time.RFC3339),
		"peopleNeeded": spots,
	})
	require.Equal(t, 201, w.Code, w.Body.String())

	var trip models.Trip
	decode(t, w, &trip)
	return trip.ID
}

func TestRegisterAndLogin(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"fullName": "Ana Silva",
		"email":    "ana@example.com",
		"password": "secret123",
	})
	require.Equal(t, 201, w.Code, w.Body.String())

	var created struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decode(t, w, &created)
	assert.NotEmpty(t, created.Token)
	assert.Equal(t, "ana@example.com", created.User.Email)

	// Duplicate registration is refused.
	w = e.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"fullName": "Ana Again",
		"email":    "ana@example.com",
		"password": "secret123",
	})
	assert.Equal(t, 409, w.Code)

	w = e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "ana@example.com",
		"password": "secret123",
	})
	assert.Equal(t, 200, w.Code)

	w = e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "ana@example.com",
		"password": "wrong-pass",
	})
	assert.Equal(t, 401, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/trips", "", nil)
	assert.Equal(t, 401, w.Code)

	w = e.do(t, http.MethodGet, "/api/trips", "garbage-token", nil)
	assert.Equal(t, 401, w.Code)
}

func TestTripLifecycle(t *testing.T) {
	e := newTestEnv(t)
	_, ownerToken := e.user(t, "Ana", "ana@example.com")
	_, otherToken := e.user(t, "Ben", "ben@example.com")

	tripID := e.createTrip(t, ownerToken, 2)

	w := e.do(t, http.MethodGet, fmt.Sprintf("/api/trips/%d", tripID), otherToken, nil)
	require.Equal(t, 200, w.Code)

	var detail struct {
		Destination    string `json:"destination"`
		SpotsRemaining int64  `json:"spotsRemaining"`
		IsFull         bool   `json:"isFull"`
	}
	decode(t, w, &detail)
	assert.Equal(t, "Lisbon", detail.Destination)
	assert.Equal(t, int64(2), detail.SpotsRemaining)
	assert.False(t, detail.IsFull)

	// Only the owner can update.
	w = e.do(t, http.MethodPatch, fmt.Sprintf("/api/trips/%d", tripID), otherToken, gin.H{"destination": "Porto"})
	assert.Equal(t, 403, w.Code)

	w = e.do(t, http.MethodPatch, fmt.Sprintf("/api/trips/%d", tripID), ownerToken, gin.H{"destination": "Porto"})
	require.Equal(t, 200, w.Code)

	w = e.do(t, http.MethodPost, fmt.Sprintf("/api/trips/%d/cancel", tripID), ownerToken, nil)
	require.Equal(t, 200, w.Code)

	// Cancelled trips disappear from detail and listing.
	w = e.do(t, http.MethodGet, fmt.Sprintf("/api/trips/%d", tripID), otherToken, nil)
	assert.Equal(t, 404, w.Code)
}

func TestTripListingPagination(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.user(t, "Ana", "ana@example.com")

	for i := 0; i < 3; i++ {
		e.createTrip(t, token, 2)
	}

	w := e.do(t, http.MethodGet, "/api/trips?page=1&limit=2", token, nil)
	require.Equal(t, 200, w.Code)

	var listing struct {
		Trips []models.Trip `json:"trips"`
		Total int64         `json:"total"`
		Page  int           `json:"page"`
	}
	decode(t, w, &listing)
	assert.Equal(t, int64(3), listing.Total)
	assert.Len(t, listing.Trips, 2)
	assert.Equal(t, 1, listing.Page)

	w = e.do(t, http.MethodGet, "/api/trips?page=2&limit=2", token, nil)
	require.Equal(t, 200, w.Code)
	decode(t, w, &listing)
	assert.Len(t, listing.Trips, 1)
}

func TestRequestFlow(t *testing.T) {
	e := newTestEnv(t)
	_, ownerToken := e.user(t, "Ana", "ana@example.com")
	requester, requesterToken := e.user(t, "Ben", "ben@example.com")

	tripID := e.createTrip(t, ownerToken, 1)

	w := e.do(t, http.MethodPost, fmt.Sprintf("/api/trips/%d/requests", tripID), requesterToken, gin.H{"message": "take me"})
	require.Equal(t, 201, w.Code, w.Body.String())

	var request models.TripRequest
	decode(t, w, &request)
	assert.Equal(t, models.RequestStatusPending, request.Status)
	assert.Equal(t, requester.ID, request.RequesterID)

	// Duplicate request conflicts.
	w = e.do(t, http.MethodPost, fmt.Sprintf("/api/trips/%d/requests", tripID), requesterToken, gin.H{"message": "again"})
	assert.Equal(t, 409, w.Code)

	// Requester cannot list the trip's requests, the owner can.
	w = e.do(t, http.MethodGet, fmt.Sprintf("/api/trips/%d/requests", tripID), requesterToken, nil)
	assert.Equal(t, 403, w.Code)
	w = e.do(t, http.MethodGet, fmt.Sprintf("/api/trips/%d/requests", tripID), ownerToken, nil)
	assert.Equal(t, 200, w.Code)

	// Only the owner can respond.
	w = e.do(t, http.MethodPatch, fmt.Sprintf("/api/requests/%d/respond", request.ID), requesterToken, gin.H{"status": "ACCEPTED"})
	assert.Equal(t, 403, w.Code)

	w = e.do(t, http.MethodPatch, fmt.Sprintf("/api/requests/%d/respond", request.ID), ownerToken, gin.H{"status": "ACCEPTED"})
	require.Equal(t, 200, w.Code)
	decode(t, w, &request)
	assert.Equal(t, models.RequestStatusAccepted, request.Status)

	// Terminal state rejects further decisions.
	w = e.do(t, http.MethodPatch, fmt.Sprintf("/api/requests/%d/respond", request.ID), ownerToken, gin.H{"status": "REJECTED"})
	assert.Equal(t, 409, w.Code)

	w = e.do(t, http.MethodGet, "/api/requests/sent", requesterToken, nil)
	require.Equal(t, 200, w.Code)
	var sent []models.TripRequest
	decode(t, w, &sent)
	assert.Len(t, sent, 1)

	w = e.do(t, http.MethodGet, "/api/requests/received", ownerToken, nil)
	require.Equal(t, 200, w.Code)
	var received []models.TripRequest
	decode(t, w, &received)
	assert.Len(t, received, 1)
}

func TestForceDeleteReportsNotified(t *testing.T) {
	e := newTestEnv(t)
	_, ownerToken := e.user(t, "Ana", "ana@example.com")
	_, benToken := e.user(t, "Ben", "ben@example.com")
	_, caroToken := e.user(t, "Caro", "caro@example.com")

	tripID := e.createTrip(t, ownerToken, 2)

	for _, token := range []string{benToken, caroToken} {
		w := e.do(t, http.MethodPost, fmt.Sprintf("/api/trips/%d/requests", tripID), token, gin.H{})
		require.Equal(t, 201, w.Code, w.Body.String())
		var request models.TripRequest
		decode(t, w, &request)

		w = e.do(t, http.MethodPatch, fmt.Sprintf("/api/requests/%d/respond", request.ID), ownerToken, gin.H{"status": "ACCEPTED"})
		require.Equal(t, 200, w.Code)
	}

	w := e.do(t, http.MethodDelete, fmt.Sprintf("/api/trips/%d", tripID), ownerToken, nil)
	assert.Equal(t, 409, w.Code)

	w = e.do(t, http.MethodDelete, fmt.Sprintf("/api/trips/%d?force=true", tripID), ownerToken, nil)
	require.Equal(t, 200, w.Code)

	var result struct {
		NotifiedParticipants int `json:"notifiedParticipants"`
	}
	decode(t, w, &result)
	assert.Equal(t, 2, result.NotifiedParticipants)
}

func TestMessagesEndpointGated(t *testing.T) {
	e := newTestEnv(t)
	_, ownerToken := e.user(t, "Ana", "ana@example.com")
	_, requesterToken := e.user(t, "Ben", "ben@example.com")
	_, outsiderToken := e.user(t, "Caro", "caro@example.com")

	tripID := e.createTrip(t, ownerToken, 1)

	w := e.do(t, http.MethodPost, fmt.Sprintf("/api/trips/%d/requests", tripID), requesterToken, gin.H{})
	require.Equal(t, 201, w.Code)
	var request models.TripRequest
	decode(t, w, &request)

	// Pending: conversation not available yet.
	w = e.do(t, http.MethodGet, fmt.Sprintf("/api/requests/%d/messages", request.ID), requesterToken, nil)
	assert.Equal(t, 403, w.Code)

	w = e.do(t, http.MethodPatch, fmt.Sprintf("/api/requests/%d/respond", request.ID), ownerToken, gin.H{"status": "ACCEPTED"})
	require.Equal(t, 200, w.Code)

	w = e.do(t, http.MethodGet, fmt.Sprintf("/api/requests/%d/messages", request.ID), requesterToken, nil)
	require.Equal(t, 200, w.Code)

	var page struct {
		Messages []models.Message `json:"messages"`
		Total    int64            `json:"total"`
	}
	decode(t, w, &page)
	assert.Empty(t, page.Messages)
	assert.Zero(t, page.Total)

	w = e.do(t, http.MethodGet, fmt.Sprintf("/api/requests/%d/messages", request.ID), outsiderToken, nil)
	assert.Equal(t, 403, w.Code)
}

func TestBlockEndpoints(t *testing.T) {
	e := newTestEnv(t)
	blocker, blockerToken := e.user(t, "Ana", "ana@example.com")
	target, _ := e.user(t, "Ben", "ben@example.com")

	w := e.do(t, http.MethodPost, fmt.Sprintf("/api/users/%d/block", blocker.ID), blockerToken, nil)
	assert.Equal(t, 400, w.Code)

	w = e.do(t, http.MethodPost, "/api/users/999/block", blockerToken, nil)
	assert.Equal(t, 404, w.Code)

	w = e.do(t, http.MethodPost, fmt.Sprintf("/api/users/%d/block", target.ID), blockerToken, nil)
	assert.Equal(t, 201, w.Code)

	blocked, err := e.store.IsBlocked(context.Background(), blocker.ID, target.ID)
	require.NoError(t, err)
	assert.True(t, blocked)

	// Repeat block is tolerated.
	w = e.do(t, http.MethodPost, fmt.Sprintf("/api/users/%d/block", target.ID), blockerToken, nil)
	assert.Equal(t, 200, w.Code)

	w = e.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d/block", target.ID), blockerToken, nil)
	assert.Equal(t, 200, w.Code)

	blocked, err = e.store.IsBlocked(context.Background(), blocker.ID, target.ID)
	require.NoError(t, err)
	assert.False(t, blocked)
}

// blockFailingStore simulates a store outage on the block insert.
type blockFailingStore struct {
	*storetest.Memory
}

func (s *blockFailingStore) CreateBlock(ctx context.Context, block *models.Block) error {
	return errors.New("connection refused")
}

func TestBlockUserStoreFailureIsNotSuccess(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)

	mem := storetest.NewMemory()
	r := gin.New()
	r.POST("/api/users/:id/block", middleware.AuthMiddleware(), BlockUser(&blockFailingStore{Memory: mem}))
	e := &testEnv{router: r, store: mem}

	blocker, token := e.user(t, "Ana", "ana@example.com")
	target, _ := e.user(t, "Ben", "ben@example.com")

	w := e.do(t, http.MethodPost, fmt.Sprintf("/api/users/%d/block", target.ID), token, nil)
	assert.Equal(t, 500, w.Code)

	blocked, err := mem.IsBlocked(context.Background(), blocker.ID, target.ID)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestNotificationEndpoints(t *testing.T) {
	e := newTestEnv(t)
	owner, ownerToken := e.user(t, "Ana", "ana@example.com")
	_, requesterToken := e.user(t, "Ben", "ben@example.com")

	tripID := e.createTrip(t, ownerToken, 1)
	w := e.do(t, http.MethodPost, fmt.Sprintf("/api/trips/%d/requests", tripID), requesterToken, gin.H{})
	require.Equal(t, 201, w.Code)

	w = e.do(t, http.MethodGet, "/api/notifications", ownerToken, nil)
	require.Equal(t, 200, w.Code)

	var notifs []models.Notification
	decode(t, w, &notifs)
	require.Len(t, notifs, 1)
	assert.Equal(t, models.NotificationTripRequest, notifs[0].Type)
	assert.Equal(t, owner.ID, notifs[0].UserID)

	// Marking someone else's notification reads as missing.
	w = e.do(t, http.MethodPatch, fmt.Sprintf("/api/notifications/%d/read", notifs[0].ID), requesterToken, nil)
	assert.Equal(t, 404, w.Code)

	w = e.do(t, http.MethodPatch, fmt.Sprintf("/api/notifications/%d/read", notifs[0].ID), ownerToken, nil)
	require.Equal(t, 200, w.Code)

	var marked models.Notification
	decode(t, w, &marked)
	assert.True(t, marked.IsRead)

	w = e.do(t, http.MethodPatch, "/api/notifications/read-all", ownerToken, nil)
	assert.Equal(t, 200, w.Code)
}
