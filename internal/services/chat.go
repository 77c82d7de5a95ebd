package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/tripmates/tripmates-backend/pkg/apperrors"
)

// ChatGateway implements the socket event contract on top of the
// ConversationService. Every authorization or validation failure is emitted
// as a scoped error event to the originating connection only; domain errors
// never terminate the connection.
type ChatGateway struct {
	hub           *Hub
	conversations *ConversationService
}

func NewChatGateway(hub *Hub, conversations *ConversationService) *ChatGateway {
	gateway := &ChatGateway{hub: hub, conversations: conversations}
	hub.SetEventHandler(gateway)
	return gateway
}

func conversationRoom(requestID uint) string {
	return fmt.Sprintf("request_%d", requestID)
}

type requestPayload struct {
	RequestID uint `json:"requestId"`
}

type sendMessagePayload struct {
	RequestID uint   `json:"requestId"`
	Content   string `json:"content"`
}

type messagePayload struct {
	MessageID uint `json:"messageId"`
}

// HandleEvent dispatches one client-to-server event.
func (g *ChatGateway) HandleEvent(client *Client, event Event) {
	ctx := context.Background()

	switch event.Event {
	case "join_conversation":
		g.joinConversation(ctx, client, event.Data)
	case "leave_conversation":
		g.leaveConversation(client, event.Data)
	case "send_message":
		g.sendMessage(ctx, client, event.Data)
	case "typing_start":
		g.typing(client, event.Data, "user_typing")
	case "typing_stop":
		g.typing(client, event.Data, "user_stopped_typing")
	case "mark_read":
		g.markRead(ctx, client, event.Data)
	case "mark_all_read":
		g.markAllRead(ctx, client, event.Data)
	default:
		g.sendError(client, fmt.Sprintf("unknown event %q", event.Event))
	}
}

// fail reports a handler failure to the originating connection. Domain errors
// keep their message; anything else is logged and replaced with a generic one.
func (g *ChatGateway) fail(client *Client, action string, err error) {
	if appErr, ok := apperrors.AsError(err); ok {
		log.Printf("Socket %s rejected for user %d: %s", action, client.UserID, appErr.Message)
		g.sendError(client, appErr.Message)
		return
	}
	log.Printf("Socket %s failed for user %d: %v", action, client.UserID, err)
	g.sendError(client, "failed to "+action)
}

func (g *ChatGateway) sendError(client *Client, message string) {
	g.hub.SendToClient(client, "error", map[string]string{"message": message})
}

func (g *ChatGateway) joinConversation(ctx context.Context, client *Client, data json.RawMessage) {
	var payload requestPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		g.sendError(client, "invalid event payload")
		return
	}

	if _, _, err := g.conversations.CanConverse(ctx, client.UserID, payload.RequestID); err != nil {
		g.fail(client, "join conversation", err)
		return
	}

	g.hub.JoinRoom(client, conversationRoom(payload.RequestID))
	log.Printf("User %d joined conversation %d", client.UserID, payload.RequestID)
	g.hub.SendToClient(client, "joined_conversation", requestPayload{RequestID: payload.RequestID})
}

func (g *ChatGateway) leaveConversation(client *Client, data json.RawMessage) {
	var payload requestPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		g.sendError(client, "invalid event payload")
		return
	}
	g.hub.LeaveRoom(client, conversationRoom(payload.RequestID))
	log.Printf("User %d left conversation %d", client.UserID, payload.RequestID)
}

func (g *ChatGateway) sendMessage(ctx context.Context, client *Client, data json.RawMessage) {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		g.sendError(client, "invalid event payload")
		return
	}

	// Persist first; the broadcast only happens once the message is stored,
	// so a storage failure cannot produce a phantom broadcast.
	message, err := g.conversations.SendMessage(ctx, payload.RequestID, client.UserID, payload.Content)
	if err != nil {
		g.fail(client, "send message", err)
		return
	}

	g.hub.BroadcastToRoom(conversationRoom(payload.RequestID), "message_received", message)
	log.Printf("Message %d sent in conversation %d", message.ID, payload.RequestID)
}

func (g *ChatGateway) typing(client *Client, data json.RawMessage, event string) {
	var payload requestPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		g.sendError(client, "invalid event payload")
		return
	}

	// Room membership is the only check here; joining already ran the gate.
	room := conversationRoom(payload.RequestID)
	if !g.hub.InRoom(client, room) {
		return
	}
	g.hub.BroadcastToRoomExcept(room, client, event, map[string]uint{
		"userId":    client.UserID,
		"requestId": payload.RequestID,
	})
}

func (g *ChatGateway) markRead(ctx context.Context, client *Client, data json.RawMessage) {
	var payload messagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		g.sendError(client, "invalid event payload")
		return
	}

	message, err := g.conversations.MarkRead(ctx, payload.MessageID, client.UserID)
	if err != nil {
		g.fail(client, "mark message as read", err)
		return
	}

	g.hub.BroadcastToRoom(conversationRoom(message.TripRequestID), "message_read", messagePayload{
		MessageID: message.ID,
	})
}

func (g *ChatGateway) markAllRead(ctx context.Context, client *Client, data json.RawMessage) {
	var payload requestPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		g.sendError(client, "invalid event payload")
		return
	}

	count, err := g.conversations.MarkAllRead(ctx, payload.RequestID, client.UserID)
	if err != nil {
		g.fail(client, "mark messages as read", err)
		return
	}

	g.hub.BroadcastToRoom(conversationRoom(payload.RequestID), "all_messages_read", map[string]interface{}{
		"requestId": payload.RequestID,
		"userId":    client.UserID,
		"count":     count,
	})
}
