package client

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ChannelState is the lifecycle state of the notification channel.
type ChannelState int

const (
	// Disconnected means no socket is held. The app still works fetch-only.
	Disconnected ChannelState = iota
	// Connecting means a dial or join handshake is in progress.
	Connecting
	// Joined means the server acknowledged the join; pushes flow.
	Joined
)

func (s ChannelState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Joined:
		return "joined"
	default:
		return "disconnected"
	}
}

// Gateway protocol op codes, mirroring the server envelope.
const (
	opDispatch     = 0
	opHeartbeat    = 1
	opJoin         = 2
	opHello        = 10
	opHeartbeatAck = 11
)

const eventReceiveMessage = "receive_message"

type gatewayPayload struct {
	Op    int             `json:"op"`
	Data  json.RawMessage `json:"d,omitempty"`
	Event *string         `json:"t,omitempty"`
}

type helloData struct {
	HeartbeatInterval int `json:"heartbeat_interval"`
}

type joinData struct {
	Token string `json:"token"`
}

// Credentials identify the session opening the channel. Only the bearer
// token crosses the wire; the server derives the user from it.
type Credentials struct {
	Token string
}

// ChannelManager owns the real-time notification channel: one WebSocket per
// session, opened with a verified credential and torn down on demand. All
// failures degrade to Disconnected; the channel is an enhancement, never a
// requirement.
type ChannelManager struct {
	gatewayURL string
	dialer     *websocket.Dialer

	mu         sync.Mutex
	state      ChannelState
	token      string
	conn       *websocket.Conn
	handler    func(PushMessage)
	generation uint64
}

// NewChannelManager creates a manager that will dial gatewayURL
// (e.g. "ws://host:8080/gateway").
func NewChannelManager(gatewayURL string) *ChannelManager {
	return &ChannelManager{
		gatewayURL: gatewayURL,
		dialer:     websocket.DefaultDialer,
	}
}

// State returns the current channel state.
func (cm *ChannelManager) State() ChannelState {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.state
}

// OnMessage registers the push handler. There is a single consumer:
// registering again replaces the previous handler.
func (cm *ChannelManager) OnMessage(handler func(PushMessage)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.handler = handler
}

// Open establishes the channel for the given credentials. It is idempotent:
// opening with the same token while the channel is live is a no-op; a
// different token tears the old channel down first. Open never returns an
// error — every failure degrades to Disconnected with a logged condition.
func (cm *ChannelManager) Open(creds Credentials) {
	if !plausibleToken(creds.Token) {
		slog.Warn("channel: malformed credential, staying disconnected")
		cm.Close()
		return
	}

	cm.mu.Lock()
	if cm.state != Disconnected && cm.token == creds.Token {
		cm.mu.Unlock()
		return
	}
	cm.teardownLocked()

	cm.generation++
	gen := cm.generation
	cm.state = Connecting
	cm.token = creds.Token
	cm.mu.Unlock()

	go cm.run(gen, creds.Token)
}

// Close tears the channel down. Safe to call at any time, repeatedly.
func (cm *ChannelManager) Close() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.teardownLocked()
	cm.generation++
	cm.token = ""
}

// teardownLocked releases the socket and resets state. Callers hold cm.mu.
func (cm *ChannelManager) teardownLocked() {
	if cm.conn != nil {
		_ = cm.conn.Close()
		cm.conn = nil
	}
	cm.state = Disconnected
}

// degrade moves the channel to Disconnected if the session is still current.
func (cm *ChannelManager) degrade(gen uint64, reason string, err error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.generation != gen {
		return
	}
	cm.teardownLocked()
	if err != nil {
		slog.Warn("channel: degraded to disconnected", "reason", reason, "error", err)
	} else {
		slog.Info("channel: closed", "reason", reason)
	}
}

// run dials the gateway, performs the join handshake and then pumps
// dispatches into the handler until the socket dies or the session is
// superseded.
func (cm *ChannelManager) run(gen uint64, token string) {
	conn, _, err := cm.dialer.Dial(cm.gatewayURL, nil)
	if err != nil {
		cm.degrade(gen, "dial failed", err)
		return
	}

	cm.mu.Lock()
	if cm.generation != gen {
		cm.mu.Unlock()
		_ = conn.Close()
		return
	}
	cm.conn = conn
	cm.mu.Unlock()

	// HELLO carries the heartbeat interval.
	var hello gatewayPayload
	if err := conn.ReadJSON(&hello); err != nil || hello.Op != opHello {
		cm.degrade(gen, "handshake failed", err)
		return
	}
	var helloBody helloData
	_ = json.Unmarshal(hello.Data, &helloBody)
	interval := time.Duration(helloBody.HeartbeatInterval) * time.Millisecond
	if interval <= 0 {
		interval = 30 * time.Second
	}

	join, _ := json.Marshal(joinData{Token: token})
	if err := conn.WriteJSON(gatewayPayload{Op: opJoin, Data: join}); err != nil {
		cm.degrade(gen, "join send failed", err)
		return
	}

	// Anything before READY is not a push for us; the server closes the
	// socket instead of sending READY when the join is rejected.
	joined := false
	stopHeartbeat := make(chan struct{})
	defer close(stopHeartbeat)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cm.mu.Lock()
				current := cm.generation == gen && cm.conn == conn
				cm.mu.Unlock()
				if !current {
					return
				}
				if err := conn.WriteJSON(gatewayPayload{Op: opHeartbeat}); err != nil {
					return
				}
			case <-stopHeartbeat:
				return
			}
		}
	}()

	for {
		var payload gatewayPayload
		if err := conn.ReadJSON(&payload); err != nil {
			if joined {
				cm.degrade(gen, "connection lost", err)
			} else {
				cm.degrade(gen, "join rejected", err)
			}
			return
		}

		switch payload.Op {
		case opHeartbeat, opHeartbeatAck:
			// Server-initiated heartbeats need no reply beyond our ticker.

		case opDispatch:
			if payload.Event == nil {
				continue
			}
			switch *payload.Event {
			case "ready":
				joined = true
				cm.mu.Lock()
				if cm.generation == gen {
					cm.state = Joined
				}
				cm.mu.Unlock()
				slog.Info("channel: joined")

			case eventReceiveMessage:
				if !joined {
					continue
				}
				var push PushMessage
				if err := json.Unmarshal(payload.Data, &push); err != nil {
					slog.Warn("channel: malformed push", "error", err)
					continue
				}
				cm.mu.Lock()
				handler := cm.handler
				current := cm.generation == gen
				cm.mu.Unlock()
				if current && handler != nil {
					handler(push)
				}
			}
		}
	}
}

// plausibleToken rejects credentials that cannot possibly be a JWT, so a
// missing or mangled token never triggers a dial.
func plausibleToken(token string) bool {
	return token != "" && strings.Count(token, ".") == 2
}
