package gateway

import (
	"encoding/json"
	"time"
)

// Op codes for gateway payloads.
const (
	OpDispatch     = 0
	OpHeartbeat    = 1
	OpJoin         = 2
	OpHello        = 10
	OpHeartbeatAck = 11
)

// Event names for DISPATCH payloads.
const (
	EventReady          = "ready"
	EventReceiveMessage = "receive_message"
)

// Payload is the envelope for all gateway messages.
type Payload struct {
	Op    int             `json:"op"`
	Data  json.RawMessage `json:"d,omitempty"`
	Event *string         `json:"t,omitempty"`
}

// JoinData is sent by the client in an Op 2 JOIN. It carries only the bearer
// credential; the server derives the identity from the verified token rather
// than trusting a client-supplied user id.
type JoinData struct {
	Token string `json:"token"`
}

// HelloData is sent by the server after WebSocket connect.
type HelloData struct {
	HeartbeatInterval int `json:"heartbeat_interval"`
}

// ReadyData is sent by the server after a successful JOIN.
type ReadyData struct {
	SessionID string `json:"session_id"`
	UserID    int64  `json:"user_id,string"`
}

// ReceiveMessageData is the payload of a receive_message push: a new message
// addressed to this connection's registered user.
type ReceiveMessageData struct {
	ID        int64     `json:"id,string"`
	From      int64     `json:"from,string"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
