package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/tripmates/tripmates-backend/internal/models"
	"github.com/tripmates/tripmates-backend/internal/store"
	"github.com/tripmates/tripmates-backend/pkg/apperrors"
	"github.com/tripmates/tripmates-backend/pkg/utils"
)

const maxMessageLength = 5000

// ConversationService gates messaging on request state. The CanConverse
// predicate is the single authorization source for both the REST history
// endpoints and the socket layer; it is re-evaluated on every call because
// block and accept state can change between calls.
type ConversationService struct {
	store         store.Store
	notifications *NotificationService
	presence      func(ctx context.Context, userID uint) (bool, error)
}

func NewConversationService(st store.Store, notifications *NotificationService) *ConversationService {
	return &ConversationService{store: st, notifications: notifications, presence: IsUserOnline}
}

// CanConverse verifies that userID may exchange messages on the given
// request: the request exists, is ACCEPTED, userID is one of the two
// participants, and no block exists between them. On success it returns the
// request and the other participant's id.
func (s *ConversationService) CanConverse(ctx context.Context, userID, requestID uint) (*models.TripRequest, uint, error) {
	request, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, 0, apperrors.NotFound("request not found")
		}
		return nil, 0, err
	}

	if request.RequesterID != userID && request.Trip.UserID != userID {
		return nil, 0, apperrors.Forbidden("you are not part of this conversation")
	}

	if request.Status != models.RequestStatusAccepted {
		return nil, 0, apperrors.Forbidden("conversation is only available for accepted requests")
	}

	otherID := request.Trip.UserID
	if userID == otherID {
		otherID = request.RequesterID
	}

	blocked, err := s.store.IsBlocked(ctx, userID, otherID)
	if err != nil {
		return nil, 0, err
	}
	if blocked {
		return nil, 0, apperrors.Forbidden("you cannot converse with this user")
	}

	return request, otherID, nil
}

// MessagePage is one page of conversation history: oldest-first within the
// page, page 1 holding the most recent messages.
type MessagePage struct {
	Messages   []models.Message `json:"messages"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"totalPages"`
}

func (s *ConversationService) ListMessages(ctx context.Context, requestID, callerID uint, page, limit int) (*MessagePage, error) {
	if _, _, err := s.CanConverse(ctx, callerID, requestID); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	total, err := s.store.CountMessages(ctx, requestID)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	result := &MessagePage{
		Messages:   []models.Message{},
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}

	// Page 1 ends at the newest message; offsets count from the oldest.
	offset := total - int64(page)*int64(limit)
	count := limit
	if offset < 0 {
		count = limit + int(offset)
		offset = 0
	}
	if count <= 0 {
		return result, nil
	}

	messages, err := s.store.ListMessages(ctx, requestID, int(offset), count)
	if err != nil {
		return nil, err
	}
	result.Messages = messages
	return result, nil
}

// SendMessage validates, sanitizes and persists a message, then notifies the
// receiver. Broadcasting to the conversation room is the caller's job and
// must only happen when this returns successfully.
func (s *ConversationService) SendMessage(ctx context.Context, requestID, senderID uint, content string) (*models.Message, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, apperrors.BadRequest("message content cannot be empty")
	}
	if len([]rune(trimmed)) > maxMessageLength {
		return nil, apperrors.BadRequest(fmt.Sprintf("message is too long (max %d characters)", maxMessageLength))
	}

	_, receiverID, err := s.CanConverse(ctx, senderID, requestID)
	if err != nil {
		return nil, err
	}

	sanitized := utils.SanitizeMessage(trimmed)

	message := &models.Message{
		SenderID:      senderID,
		ReceiverID:    receiverID,
		TripRequestID: requestID,
		Content:       sanitized,
	}
	if err := s.store.CreateMessage(ctx, message); err != nil {
		return nil, err
	}

	created, err := s.store.GetMessage(ctx, message.ID)
	if err != nil {
		return nil, err
	}

	s.notifications.Notify(ctx, receiverID,
		"New Message",
		fmt.Sprintf("%s sent you a message", created.Sender.FullName),
		models.NewMessageData{
			MessageID: created.ID,
			RequestID: requestID,
			SenderID:  senderID,
		})

	return created, nil
}

// MarkRead marks a single message read. Only the message's receiver may do
// this, and only while the owning request is ACCEPTED.
func (s *ConversationService) MarkRead(ctx context.Context, messageID, callerID uint) (*models.Message, error) {
	message, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("message not found")
		}
		return nil, err
	}

	if message.ReceiverID != callerID {
		return nil, apperrors.Forbidden("you are not the receiver of this message")
	}
	if message.TripRequest.RequesterID != callerID && message.TripRequest.Trip.UserID != callerID {
		return nil, apperrors.Forbidden("you are not part of this conversation")
	}
	if message.TripRequest.Status != models.RequestStatusAccepted {
		return nil, apperrors.Forbidden("cannot mark message as read, request is not accepted")
	}

	if err := s.store.MarkMessageRead(ctx, messageID); err != nil {
		return nil, err
	}
	message.IsRead = true
	return message, nil
}

// MarkAllRead marks every unread message addressed to the caller within the
// request as read and returns how many were affected.
func (s *ConversationService) MarkAllRead(ctx context.Context, requestID, callerID uint) (int64, error) {
	if _, _, err := s.CanConverse(ctx, callerID, requestID); err != nil {
		return 0, err
	}
	return s.store.MarkAllMessagesRead(ctx, requestID, callerID)
}

// ConversationSummary is one entry in a user's conversation list.
type ConversationSummary struct {
	Request       models.TripRequest `json:"request"`
	LastMessage   *models.Message    `json:"lastMessage"`
	UnreadCount   int64              `json:"unreadCount"`
	PartnerOnline bool               `json:"partnerOnline"`
}

func (s *ConversationService) ListConversations(ctx context.Context, userID uint) ([]ConversationSummary, error) {
	requests, err := s.store.ListAcceptedRequestsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(requests))
	for _, request := range requests {
		summary := ConversationSummary{Request: request}

		last, err := s.store.LatestMessage(ctx, request.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		summary.LastMessage = last

		unread, err := s.store.CountUnreadMessages(ctx, request.ID, userID)
		if err != nil {
			return nil, err
		}
		summary.UnreadCount = unread

		partnerID := request.RequesterID
		if partnerID == userID {
			partnerID = request.Trip.UserID
		}
		// Presence is best-effort; a redis hiccup must not break the list.
		online, err := s.presence(ctx, partnerID)
		if err != nil {
			log.Printf("conversations: presence lookup for user %d: %v", partnerID, err)
		}
		summary.PartnerOnline = online

		summaries = append(summaries, summary)
	}
	return summaries, nil
}
