package service

import (
	"context"
	"strings"
	"time"

	"github.com/victorivanov/caremsg/internal/database"
	"github.com/victorivanov/caremsg/internal/gateway"
	"github.com/victorivanov/caremsg/internal/metrics"
	"github.com/victorivanov/caremsg/internal/models"
	"github.com/victorivanov/caremsg/internal/snowflake"
)

const maxBodyLength = 2000

// ThreadService retrieves and mutates the message history between the viewer
// and one counterparty.
type ThreadService struct {
	messages  database.MessageRepository
	users     database.UserRepository
	snowflake *snowflake.Generator
	gateway   gateway.Dispatcher
	collector metrics.Collector
}

// NewThreadService creates a ThreadService.
func NewThreadService(
	messages database.MessageRepository,
	users database.UserRepository,
	sf *snowflake.Generator,
	gw gateway.Dispatcher,
	collector metrics.Collector,
) *ThreadService {
	return &ThreadService{
		messages:  messages,
		users:     users,
		snowflake: sf,
		gateway:   gw,
		collector: collector,
	}
}

// GetThread returns all messages between the viewer and the counterparty,
// ascending by creation time. A counterparty with no messages yet yields an
// empty slice, not an error.
func (s *ThreadService) GetThread(ctx context.Context, viewerID, counterpartyID int64) ([]models.Message, error) {
	messages, err := s.messages.GetThread(ctx, viewerID, counterpartyID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}

// Send validates and appends a new message, then pushes it to the recipient's
// channel if one is joined. The message exists only once the insert succeeds;
// there is no optimistic local copy to reconcile on failure.
func (s *ThreadService) Send(ctx context.Context, senderID, recipientID int64, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, BadRequest("EMPTY_MESSAGE", "message body must not be empty")
	}
	if len(body) > maxBodyLength {
		return nil, BadRequest("MESSAGE_TOO_LONG", "message body must be at most 2000 characters")
	}
	if recipientID == senderID {
		return nil, BadRequest("INVALID_RECIPIENT", "cannot message yourself")
	}

	recipient, err := s.users.GetByID(ctx, recipientID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if recipient == nil {
		return nil, NotFound("NOT_FOUND", "recipient not found")
	}

	msg := &models.Message{
		ID:          s.snowflake.Generate().Int64(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        body,
		CreatedAt:   time.Now(),
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	s.collector.RecordMessageSent()

	s.gateway.DispatchToUser(recipientID, gateway.EventReceiveMessage, gateway.ReceiveMessageData{
		ID:        msg.ID,
		From:      senderID,
		Message:   msg.Body,
		Timestamp: msg.CreatedAt,
	})

	return msg, nil
}

// MarkRead stamps every unread message from the counterparty to the viewer
// with the current time and returns how many were updated. Calling it with
// nothing unread is a no-op.
func (s *ThreadService) MarkRead(ctx context.Context, viewerID, counterpartyID int64) (int64, error) {
	n, err := s.messages.MarkRead(ctx, viewerID, counterpartyID, time.Now())
	if err != nil {
		return 0, Internal("INTERNAL", "internal server error")
	}
	if n > 0 {
		s.collector.RecordMarkedRead(n)
	}
	return n, nil
}
