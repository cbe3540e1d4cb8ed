// Package client is the Go SDK for the caremsg messaging API: a REST client
// for conversations and threads, a WebSocket channel for real-time pushes,
// and a bridge that reconciles the two into a consistent local view.
package client

import "time"

// Message is one direct message as returned by the REST API and the
// real-time channel.
type Message struct {
	ID          int64      `json:"id,string"`
	SenderID    int64      `json:"sender_id,string"`
	RecipientID int64      `json:"recipient_id,string"`
	Body        string     `json:"body"`
	CreatedAt   time.Time  `json:"created_at"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

// Read reports whether the message has been read by its recipient.
func (m *Message) Read() bool {
	return m.ReadAt != nil
}

// Conversation is one row of the conversation list: the latest message
// exchanged with a counterparty plus the viewer's unread count.
type Conversation struct {
	CounterpartyID   int64     `json:"counterparty_id,string"`
	CounterpartyName string    `json:"counterparty_name"`
	LastMessage      string    `json:"last_message"`
	LastMessageID    int64     `json:"last_message_id,string"`
	LastMessageAt    time.Time `json:"last_message_at"`
	UnreadCount      int       `json:"unread_count"`
}

// PushMessage is the payload of a real-time message push.
type PushMessage struct {
	ID        int64     `json:"id,string"`
	From      int64     `json:"from,string"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
