package models

import "time"

// Message is one entry in the append-only direct-message log. Everything is
// immutable after insert except ReadAt, which transitions once from nil to a
// timestamp and is never cleared.
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
