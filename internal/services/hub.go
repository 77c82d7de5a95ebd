package services

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer. Messages cap at 5000 characters
	// but escaping and the event envelope expand them.
	maxFrameSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Event is the wire envelope for both directions of the socket protocol.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// EventHandler processes client-to-server events. The chat gateway implements
// it; the hub itself stays protocol-agnostic.
type EventHandler interface {
	HandleEvent(client *Client, event Event)
}

// Client represents one WebSocket connection.
type Client struct {
	ID     string
	UserID uint
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
}

// Hub maintains the set of active clients, their per-user index and their
// conversation room memberships. It holds no authoritative state: rooms are
// connection-scoped and rebuildable from the trip_requests table.
type Hub struct {
	clients    map[*Client]bool
	users      map[uint]map[*Client]bool
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	events     EventHandler

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		users:      make(map[uint]map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SetEventHandler wires the event dispatcher. Must be called before Run.
func (h *Hub) SetEventHandler(handler EventHandler) {
	h.events = handler
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.ctx.Done():
			log.Println("WebSocket hub shutting down")
			return
		}
	}
}

// Stop shuts the hub down and closes every live connection.
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.users = make(map[uint]map[*Client]bool)
	h.rooms = make(map[string]map[*Client]bool)
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	if h.users[client.UserID] == nil {
		h.users[client.UserID] = make(map[*Client]bool)
	}
	h.users[client.UserID][client] = true
	h.mu.Unlock()

	if err := SetUserOnline(h.ctx, client.UserID); err != nil {
		log.Printf("Failed to set user %d online: %v", client.UserID, err)
	}
	log.Printf("Client %s connected (user %d)", client.ID, client.UserID)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)

	if conns := h.users[client.UserID]; conns != nil {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.users, client.UserID)
		}
	}
	for room, members := range h.rooms {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	lastConnection := h.users[client.UserID] == nil
	h.mu.Unlock()

	if lastConnection {
		if err := SetUserOffline(h.ctx, client.UserID); err != nil {
			log.Printf("Failed to set user %d offline: %v", client.UserID, err)
		}
	}
	log.Printf("Client %s disconnected (user %d)", client.ID, client.UserID)
}

// JoinRoom adds the client's connection to a conversation room.
func (h *Hub) JoinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
}

// LeaveRoom removes the client's connection from a room. Always permitted.
func (h *Hub) LeaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members := h.rooms[room]; members != nil {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// InRoom reports whether the client's connection is currently in the room.
func (h *Hub) InRoom(client *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[room][client]
}

func encodeEvent(event string, data interface{}) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Event: event, Data: payload})
}

func (h *Hub) push(client *Client, message []byte) {
	select {
	case client.send <- message:
	default:
		// Client's send channel is full, skip
		log.Printf("Warning: could not send to client %s (channel full)", client.ID)
	}
}

// SendToClient delivers an event to a single connection only.
func (h *Hub) SendToClient(client *Client, event string, data interface{}) {
	message, err := encodeEvent(event, data)
	if err != nil {
		log.Printf("Error marshaling %s event: %v", event, err)
		return
	}
	h.push(client, message)
}

// BroadcastToRoom delivers an event to every connection in a room.
func (h *Hub) BroadcastToRoom(room, event string, data interface{}) {
	h.broadcastToRoom(room, nil, event, data)
}

// BroadcastToRoomExcept delivers an event to a room, excluding one connection.
func (h *Hub) BroadcastToRoomExcept(room string, except *Client, event string, data interface{}) {
	h.broadcastToRoom(room, except, event, data)
}

func (h *Hub) broadcastToRoom(room string, except *Client, event string, data interface{}) {
	message, err := encodeEvent(event, data)
	if err != nil {
		log.Printf("Error marshaling %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[room] {
		if client == except {
			continue
		}
		h.push(client, message)
	}
}

// BroadcastToUser delivers an event to all of a user's connections. This is
// the user's implicit personal room, used for notification pushes.
func (h *Hub) BroadcastToUser(userID uint, event string, data interface{}) {
	message, err := encodeEvent(event, data)
	if err != nil {
		log.Printf("Error marshaling %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.users[userID] {
		h.push(client, message)
	}
}

// ConnectedClients returns the number of connected clients
func (h *Hub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades an authenticated HTTP request to a WebSocket connection
// and registers it with the hub.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, 256),
		hub:    hub,
	}

	if !hub.enqueueRegister(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// enqueueRegister hands the client to Run. It reports false when the hub has
// stopped, so a handshake that races shutdown cannot hang its goroutine.
func (h *Hub) enqueueRegister(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) enqueueUnregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// readPump pumps events from the websocket connection to the event handler
func (c *Client) readPump() {
	defer func() {
		c.hub.enqueueUnregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var event Event
		if err := json.Unmarshal(message, &event); err != nil {
			log.Printf("Error unmarshaling event from client %s: %v", c.ID, err)
			c.hub.SendToClient(c, "error", map[string]string{"message": "invalid event payload"})
			continue
		}

		if c.hub.events != nil {
			c.hub.events.HandleEvent(c, event)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			if err := RefreshUserOnline(context.Background(), c.UserID); err != nil {
				log.Printf("Failed to refresh presence for user %d: %v", c.UserID, err)
			}
		}
	}
}
