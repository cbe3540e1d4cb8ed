package service

import (
	"context"

	"github.com/victorivanov/caremsg/internal/database"
	"github.com/victorivanov/caremsg/internal/models"
)

// ConversationService derives the viewer's conversation list from the
// message log. Listing is side-effect-free and safely re-invokable; it is
// called after every send and after every reconciled push.
type ConversationService struct {
	messages database.MessageRepository
}

// NewConversationService creates a ConversationService.
func NewConversationService(messages database.MessageRepository) *ConversationService {
	return &ConversationService{messages: messages}
}

// List returns one summary per counterparty, most recent conversation first.
// A user with no messages gets an empty list, not an error.
func (s *ConversationService) List(ctx context.Context, viewerID int64) ([]models.Conversation, error) {
	conversations, err := s.messages.ListConversations(ctx, viewerID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if conversations == nil {
		conversations = []models.Conversation{}
	}
	return conversations, nil
}
