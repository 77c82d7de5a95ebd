// Package storetest provides an in-memory Store for service and handler
// tests. Transactions are serialized by a mutex and roll back by restoring a
// snapshot, which preserves the atomicity the accept path depends on without
// a database.
package storetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tripmates/tripmates-backend/internal/models"
	"github.com/tripmates/tripmates-backend/internal/store"
)

type Memory struct {
	mu   sync.Mutex
	txMu sync.Mutex

	nextID uint

	users         map[uint]models.User
	trips         map[uint]models.Trip
	requests      map[uint]models.TripRequest
	blocks        map[uint]models.Block
	messages      map[uint]models.Message
	notifications map[uint]models.Notification
}

func NewMemory() *Memory {
	return &Memory{
		nextID:        1,
		users:         make(map[uint]models.User),
		trips:         make(map[uint]models.Trip),
		requests:      make(map[uint]models.TripRequest),
		blocks:        make(map[uint]models.Block),
		messages:      make(map[uint]models.Message),
		notifications: make(map[uint]models.Notification),
	}
}

func (m *Memory) newID() uint {
	id := m.nextID
	m.nextID++
	return id
}

func copyMap[V any](src map[uint]V) map[uint]V {
	dst := make(map[uint]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

type snapshot struct {
	nextID        uint
	users         map[uint]models.User
	trips         map[uint]models.Trip
	requests      map[uint]models.TripRequest
	blocks        map[uint]models.Block
	messages      map[uint]models.Message
	notifications map[uint]models.Notification
}

func (m *Memory) snapshot() snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshot{
		nextID:        m.nextID,
		users:         copyMap(m.users),
		trips:         copyMap(m.trips),
		requests:      copyMap(m.requests),
		blocks:        copyMap(m.blocks),
		messages:      copyMap(m.messages),
		notifications: copyMap(m.notifications),
	}
}

func (m *Memory) restore(s snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID = s.nextID
	m.users = s.users
	m.trips = s.trips
	m.requests = s.requests
	m.blocks = s.blocks
	m.messages = s.messages
	m.notifications = s.notifications
}

func (m *Memory) Transaction(ctx context.Context, fn func(store.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// Users

func (m *Memory) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return store.ErrDuplicate
		}
	}
	user.ID = m.newID()
	user.CreatedAt = time.Now()
	m.users[user.ID] = *user
	return nil
}

func (m *Memory) GetUser(ctx context.Context, id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, store.ErrNotFound
}

// Trips

func (m *Memory) CreateTrip(ctx context.Context, trip *models.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip.ID = m.newID()
	trip.CreatedAt = time.Now()
	if trip.Status == "" {
		trip.Status = models.TripStatusActive
	}
	m.trips[trip.ID] = *trip
	return nil
}

func (m *Memory) getTrip(id uint) (*models.Trip, error) {
	t, ok := m.trips[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	t.Creator = m.users[t.UserID]
	return &t, nil
}

func (m *Memory) GetTrip(ctx context.Context, id uint) (*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getTrip(id)
}

func (m *Memory) GetTripForUpdate(ctx context.Context, id uint) (*models.Trip, error) {
	// Transactions are fully serialized, so no extra locking is needed.
	return m.GetTrip(ctx, id)
}

func (m *Memory) SaveTrip(ctx context.Context, trip *models.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[trip.ID]; !ok {
		return store.ErrNotFound
	}
	m.trips[trip.ID] = *trip
	return nil
}

func (m *Memory) DeleteTrip(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.trips, id)
	return nil
}

func (m *Memory) ListTrips(ctx context.Context, filter store.TripFilter) ([]models.Trip, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []models.Trip
	for _, t := range m.trips {
		if t.Status != models.TripStatusActive {
			continue
		}
		if filter.Destination != "" &&
			!strings.Contains(strings.ToLower(t.Destination), strings.ToLower(filter.Destination)) {
			continue
		}
		if filter.StartAfter != "" {
			after, err := time.Parse("2006-01-02", filter.StartAfter)
			if err == nil && t.StartDate.Before(after) {
				continue
			}
		}
		if filter.StartBefore != "" {
			before, err := time.Parse("2006-01-02", filter.StartBefore)
			if err == nil && t.StartDate.After(before.Add(24*time.Hour)) {
				continue
			}
		}
		t.Creator = m.users[t.UserID]
		matched = append(matched, t)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].StartDate.Before(matched[j].StartDate) })

	total := int64(len(matched))
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit
	if offset >= len(matched) {
		return []models.Trip{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *Memory) ListTripsByOwner(ctx context.Context, userID uint) ([]models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Trip
	for _, t := range m.trips {
		if t.UserID == userID {
			t.Creator = m.users[t.UserID]
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Trip requests

func (m *Memory) CreateRequest(ctx context.Context, request *models.TripRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.TripID == request.TripID && r.RequesterID == request.RequesterID {
			return store.ErrDuplicate
		}
	}
	request.ID = m.newID()
	request.CreatedAt = time.Now()
	if request.Status == "" {
		request.Status = models.RequestStatusPending
	}
	m.requests[request.ID] = *request
	return nil
}

func (m *Memory) getRequest(id uint) (*models.TripRequest, error) {
	r, ok := m.requests[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if trip, err := m.getTrip(r.TripID); err == nil {
		r.Trip = *trip
	}
	r.Requester = m.users[r.RequesterID]
	return &r, nil
}

func (m *Memory) GetRequest(ctx context.Context, id uint) (*models.TripRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getRequest(id)
}

func (m *Memory) GetRequestForUpdate(ctx context.Context, id uint) (*models.TripRequest, error) {
	// Transactions are fully serialized, so no extra locking is needed.
	return m.GetRequest(ctx, id)
}

func (m *Memory) GetRequestByTripAndRequester(ctx context.Context, tripID, requesterID uint) (*models.TripRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.requests {
		if r.TripID == tripID && r.RequesterID == requesterID {
			return m.getRequest(id)
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) UpdateRequestStatus(ctx context.Context, id uint, status models.RequestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return store.ErrNotFound
	}
	r.Status = status
	m.requests[id] = r
	return nil
}

func (m *Memory) CountAcceptedRequests(ctx context.Context, tripID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, r := range m.requests {
		if r.TripID == tripID && r.Status == models.RequestStatusAccepted {
			count++
		}
	}
	return count, nil
}

func (m *Memory) ListAcceptedRequesterIDs(ctx context.Context, tripID uint) ([]uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uint
	for _, r := range m.requests {
		if r.TripID == tripID && r.Status == models.RequestStatusAccepted {
			ids = append(ids, r.RequesterID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *Memory) listRequests(match func(models.TripRequest) bool) []models.TripRequest {
	var out []models.TripRequest
	for id, r := range m.requests {
		if match(r) {
			full, _ := m.getRequest(id)
			out = append(out, *full)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) ListRequestsForTrip(ctx context.Context, tripID uint) ([]models.TripRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listRequests(func(r models.TripRequest) bool { return r.TripID == tripID }), nil
}

func (m *Memory) ListSentRequests(ctx context.Context, requesterID uint) ([]models.TripRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listRequests(func(r models.TripRequest) bool { return r.RequesterID == requesterID }), nil
}

func (m *Memory) ListReceivedRequests(ctx context.Context, ownerID uint) ([]models.TripRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listRequests(func(r models.TripRequest) bool {
		t, ok := m.trips[r.TripID]
		return ok && t.UserID == ownerID
	}), nil
}

func (m *Memory) ListAcceptedRequestsForUser(ctx context.Context, userID uint) ([]models.TripRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listRequests(func(r models.TripRequest) bool {
		if r.Status != models.RequestStatusAccepted {
			return false
		}
		if r.RequesterID == userID {
			return true
		}
		t, ok := m.trips[r.TripID]
		return ok && t.UserID == userID
	}), nil
}

// Blocks

func (m *Memory) CreateBlock(ctx context.Context, block *models.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.blocks {
		if b.BlockerID == block.BlockerID && b.BlockedID == block.BlockedID {
			return store.ErrDuplicate
		}
	}
	block.ID = m.newID()
	block.CreatedAt = time.Now()
	m.blocks[block.ID] = *block
	return nil
}

func (m *Memory) DeleteBlock(ctx context.Context, blockerID, blockedID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, b := range m.blocks {
		if b.BlockerID == blockerID && b.BlockedID == blockedID {
			delete(m.blocks, id)
		}
	}
	return nil
}

func (m *Memory) IsBlocked(ctx context.Context, userA, userB uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.blocks {
		if (b.BlockerID == userA && b.BlockedID == userB) ||
			(b.BlockerID == userB && b.BlockedID == userA) {
			return true, nil
		}
	}
	return false, nil
}

// Messages

func (m *Memory) CreateMessage(ctx context.Context, message *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	message.ID = m.newID()
	message.CreatedAt = time.Now()
	m.messages[message.ID] = *message
	return nil
}

func (m *Memory) getMessage(id uint) (*models.Message, error) {
	msg, ok := m.messages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	msg.Sender = m.users[msg.SenderID]
	if req, err := m.getRequest(msg.TripRequestID); err == nil {
		msg.TripRequest = *req
	}
	return &msg, nil
}

func (m *Memory) GetMessage(ctx context.Context, id uint) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getMessage(id)
}

func (m *Memory) conversationMessages(requestID uint) []models.Message {
	var out []models.Message
	for id, msg := range m.messages {
		if msg.TripRequestID == requestID {
			full, _ := m.getMessage(id)
			out = append(out, *full)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) ListMessages(ctx context.Context, requestID uint, offset, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.conversationMessages(requestID)
	if offset >= len(all) {
		return []models.Message{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *Memory) CountMessages(ctx context.Context, requestID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.conversationMessages(requestID))), nil
}

func (m *Memory) LatestMessage(ctx context.Context, requestID uint) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.conversationMessages(requestID)
	if len(all) == 0 {
		return nil, store.ErrNotFound
	}
	last := all[len(all)-1]
	return &last, nil
}

func (m *Memory) CountUnreadMessages(ctx context.Context, requestID, receiverID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, msg := range m.messages {
		if msg.TripRequestID == requestID && msg.ReceiverID == receiverID && !msg.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *Memory) MarkMessageRead(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return store.ErrNotFound
	}
	msg.IsRead = true
	m.messages[id] = msg
	return nil
}

func (m *Memory) MarkAllMessagesRead(ctx context.Context, requestID, receiverID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for id, msg := range m.messages {
		if msg.TripRequestID == requestID && msg.ReceiverID == receiverID && !msg.IsRead {
			msg.IsRead = true
			m.messages[id] = msg
			count++
		}
	}
	return count, nil
}

// Notifications

func (m *Memory) CreateNotification(ctx context.Context, notification *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	notification.ID = m.newID()
	notification.CreatedAt = time.Now()
	m.notifications[notification.ID] = *notification
	return nil
}

func (m *Memory) GetNotification(ctx context.Context, id uint) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &n, nil
}

func (m *Memory) ListNotifications(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) MarkNotificationRead(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return store.ErrNotFound
	}
	n.IsRead = true
	m.notifications[id] = n
	return nil
}

func (m *Memory) MarkAllNotificationsRead(ctx context.Context, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			m.notifications[id] = n
		}
	}
	return nil
}
