package models

import "time"

// Conversation is one row of the conversation list: the latest message
// exchanged with a counterparty plus the viewer's unread count. It is
// derived from the message log and never persisted.
type Conversation struct {
	CounterpartyID   int64     `json:"counterparty_id,string"`
	CounterpartyName string    `json:"counterparty_name"`
	LastMessage      string    `json:"last_message"`
	LastMessageID    int64     `json:"last_message_id,string"`
	LastMessageAt    time.Time `json:"last_message_at"`
	UnreadCount      int       `json:"unread_count"`
}
