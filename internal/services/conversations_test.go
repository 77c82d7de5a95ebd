package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripmates/tripmates-backend/internal/models"
	"github.com/tripmates/tripmates-backend/pkg/apperrors"
)

// conversationFixture sets up an owner, a requester and an accepted request
// between them.
func conversationFixture(t *testing.T) (*fixture, *models.User, *models.User, *models.TripRequest) {
	t.Helper()
	f := newFixture(t)
	owner := f.user(t, "Ana", "ana@example.com")
	requester := f.user(t, "Ben", "ben@example.com")
	trip := f.trip(t, owner, 2)
	request := f.acceptedRequest(t, trip, requester)
	return f, owner, requester, request
}

func TestCanConverse(t *testing.T) {
	f, owner, requester, request := conversationFixture(t)

	for _, id := range []uint{owner.ID, requester.ID} {
		_, otherID, err := f.conversations.CanConverse(context.Background(), id, request.ID)
		require.NoError(t, err)
		if id == owner.ID {
			assert.Equal(t, requester.ID, otherID)
		} else {
			assert.Equal(t, owner.ID, otherID)
		}
	}
}

func TestCanConversePendingRequest(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Ana", "ana@example.com")
	requester := f.user(t, "Ben", "ben@example.com")
	trip := f.trip(t, owner, 2)
	request := f.pendingRequest(t, trip, requester)

	_, _, err := f.conversations.CanConverse(context.Background(), requester.ID, request.ID)
	appErr := requireKind(t, err, apperrors.KindForbidden)
	assert.Equal(t, "conversation is only available for accepted requests", appErr.Message)
}

func TestCanConverseOutsider(t *testing.T) {
	f, _, _, request := conversationFixture(t)
	outsider := f.user(t, "Caro", "caro@example.com")

	_, _, err := f.conversations.CanConverse(context.Background(), outsider.ID, request.ID)
	requireKind(t, err, apperrors.KindForbidden)
}

func TestCanConverseBlocked(t *testing.T) {
	f, owner, requester, request := conversationFixture(t)

	require.NoError(t, f.store.CreateBlock(context.Background(), &models.Block{
		BlockerID: requester.ID, BlockedID: owner.ID,
	}))

	// The block vetoes both directions.
	_, _, err := f.conversations.CanConverse(context.Background(), owner.ID, request.ID)
	requireKind(t, err, apperrors.KindForbidden)
	_, _, err = f.conversations.CanConverse(context.Background(), requester.ID, request.ID)
	requireKind(t, err, apperrors.KindForbidden)
}

func TestCanConverseRequestNotFound(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "Ana", "ana@example.com")

	_, _, err := f.conversations.CanConverse(context.Background(), user.ID, 999)
	requireKind(t, err, apperrors.KindNotFound)
}

func TestSendMessage(t *testing.T) {
	f, owner, requester, request := conversationFixture(t)

	message, err := f.conversations.SendMessage(context.Background(), request.ID, requester.ID, "  see you there  ")
	require.NoError(t, err)

	assert.Equal(t, "see you there", message.Content)
	assert.Equal(t, requester.ID, message.SenderID)
	assert.Equal(t, owner.ID, message.ReceiverID)
	assert.False(t, message.IsRead)
	assert.Equal(t, "Ben", message.Sender.FullName)

	notifs, err := f.notifications.List(context.Background(), owner.ID)
	require.NoError(t, err)
	require.NotEmpty(t, notifs)
	assert.Equal(t, models.NotificationNewMessage, notifs[0].Type)
}

func TestSendMessageSanitizesContent(t *testing.T) {
	f, _, requester, request := conversationFixture(t)

	message, err := f.conversations.SendMessage(context.Background(), request.ID, requester.ID, `<script>alert("hi")</script>`)
	require.NoError(t, err)

	assert.Equal(t, "&lt;script&gt;alert(&quot;hi&quot;)&lt;&#x2F;script&gt;", message.Content)
	assert.NotContains(t, message.Content, "<")
	assert.NotContains(t, message.Content, ">")
}

func TestSendMessageEmpty(t *testing.T) {
	f, _, requester, request := conversationFixture(t)

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := f.conversations.SendMessage(context.Background(), request.ID, requester.ID, content)
		requireKind(t, err, apperrors.KindBadRequest)
	}
}

func TestSendMessageTooLong(t *testing.T) {
	f, _, requester, request := conversationFixture(t)

	_, err := f.conversations.SendMessage(context.Background(), request.ID, requester.ID, strings.Repeat("a", maxMessageLength+1))
	requireKind(t, err, apperrors.KindBadRequest)

	// Exactly at the limit is fine.
	_, err = f.conversations.SendMessage(context.Background(), request.ID, requester.ID, strings.Repeat("a", maxMessageLength))
	require.NoError(t, err)
}

func TestSendMessagePendingRequest(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Ana", "ana@example.com")
	requester := f.user(t, "Ben", "ben@example.com")
	trip := f.trip(t, owner, 2)
	request := f.pendingRequest(t, trip, requester)

	_, err := f.conversations.SendMessage(context.Background(), request.ID, requester.ID, "hello?")
	requireKind(t, err, apperrors.KindForbidden)

	count, err := f.store.CountMessages(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestListMessagesPagination(t *testing.T) {
	f, owner, requester, request := conversationFixture(t)

	senders := []uint{requester.ID, owner.ID}
	for i := 1; i <= 7; i++ {
		_, err := f.conversations.SendMessage(context.Background(), request.ID, senders[i%2], strings.Repeat("m", i))
		require.NoError(t, err)
	}

	// Page 1 holds the three newest messages, oldest first within the page.
	page, err := f.conversations.ListMessages(context.Background(), request.ID, requester.ID, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(7), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Messages, 3)
	assert.Equal(t, "mmmmm", page.Messages[0].Content)
	assert.Equal(t, "mmmmmmm", page.Messages[2].Content)

	page, err = f.conversations.ListMessages(context.Background(), request.ID, requester.ID, 2, 3)
	require.NoError(t, err)
	require.Len(t, page.Messages, 3)
	assert.Equal(t, "mm", page.Messages[0].Content)

	// The last page is short; past it pages are empty, not an error.
	page, err = f.conversations.ListMessages(context.Background(), request.ID, requester.ID, 3, 3)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "m", page.Messages[0].Content)

	page, err = f.conversations.ListMessages(context.Background(), request.ID, requester.ID, 4, 3)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
}

func TestListMessagesGated(t *testing.T) {
	f, _, _, request := conversationFixture(t)
	outsider := f.user(t, "Caro", "caro@example.com")

	_, err := f.conversations.ListMessages(context.Background(), request.ID, outsider.ID, 1, 50)
	requireKind(t, err, apperrors.KindForbidden)
}

func TestMarkRead(t *testing.T) {
	f, owner, requester, request := conversationFixture(t)

	message, err := f.conversations.SendMessage(context.Background(), request.ID, requester.ID, "hello")
	require.NoError(t, err)

	// Only the receiver may mark it read.
	_, err = f.conversations.MarkRead(context.Background(), message.ID, requester.ID)
	requireKind(t, err, apperrors.KindForbidden)

	marked, err := f.conversations.MarkRead(context.Background(), message.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, marked.IsRead)
}

func TestMarkAllRead(t *testing.T) {
	f, owner, requester, request := conversationFixture(t)

	for i := 0; i < 3; i++ {
		_, err := f.conversations.SendMessage(context.Background(), request.ID, requester.ID, "hello")
		require.NoError(t, err)
	}
	_, err := f.conversations.SendMessage(context.Background(), request.ID, owner.ID, "hi back")
	require.NoError(t, err)

	count, err := f.conversations.MarkAllRead(context.Background(), request.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// Idempotent: nothing left to mark.
	count, err = f.conversations.MarkAllRead(context.Background(), request.ID, owner.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	unread, err := f.store.CountUnreadMessages(context.Background(), request.ID, requester.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestListConversations(t *testing.T) {
	f, owner, requester, request := conversationFixture(t)

	_, err := f.conversations.SendMessage(context.Background(), request.ID, requester.ID, "first")
	require.NoError(t, err)
	_, err = f.conversations.SendMessage(context.Background(), request.ID, requester.ID, "second")
	require.NoError(t, err)

	summaries, err := f.conversations.ListConversations(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	summary := summaries[0]
	assert.Equal(t, request.ID, summary.Request.ID)
	require.NotNil(t, summary.LastMessage)
	assert.Equal(t, "second", summary.LastMessage.Content)
	assert.Equal(t, int64(2), summary.UnreadCount)

	// The requester sees the same conversation with zero unread.
	summaries, err = f.conversations.ListConversations(context.Background(), requester.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Zero(t, summaries[0].UnreadCount)
}

func TestListConversationsPartnerPresence(t *testing.T) {
	f, owner, requester, _ := conversationFixture(t)

	online := map[uint]bool{requester.ID: true}
	f.conversations.presence = func(ctx context.Context, userID uint) (bool, error) {
		return online[userID], nil
	}

	summaries, err := f.conversations.ListConversations(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.True(t, summaries[0].PartnerOnline)

	// From the requester's side the partner is the owner, who is offline.
	summaries, err = f.conversations.ListConversations(context.Background(), requester.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.False(t, summaries[0].PartnerOnline)
}
