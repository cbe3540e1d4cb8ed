package database

import (
	"context"
	"time"

	"github.com/victorivanov/caremsg/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// MessageRepository is the persistence contract for the append-only direct
// message log. Conversations are derived from it, never written.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id int64) (*models.Message, error)

	// GetThread returns every message between the two users, ascending by
	// created_at with id as tie-break. An empty slice is a valid result.
	GetThread(ctx context.Context, viewerID, counterpartyID int64) ([]models.Message, error)

	// ListConversations returns one summary row per counterparty of the
	// viewer, ordered by last message time descending, then message id
	// descending.
	ListConversations(ctx context.Context, viewerID int64) ([]models.Conversation, error)

	// MarkRead stamps read_at = readAt on every unread message from
	// counterpartyID to viewerID and returns how many rows changed. Rows
	// already read are untouched, so the transition is monotonic and the
	// call is idempotent.
	MarkRead(ctx context.Context, viewerID, counterpartyID int64, readAt time.Time) (int64, error)

	// CountUnread returns the number of unread messages from
	// counterpartyID to viewerID.
	CountUnread(ctx context.Context, viewerID, counterpartyID int64) (int, error)
}
