package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/victorivanov/caremsg/internal/auth"
	"github.com/victorivanov/caremsg/internal/metrics"
	"github.com/victorivanov/caremsg/internal/redis"
)

// Manager owns all active notification channels and routes pushes to them.
// There is at most one joined connection per user: a later join replaces the
// earlier one.
type Manager struct {
	mu          sync.RWMutex
	connections map[int64]*Connection // userID → joined connection

	tokens    *auth.TokenService
	redis     *redis.Client
	collector metrics.Collector
}

// NewManager creates a gateway Manager.
func NewManager(tokens *auth.TokenService, redisClient *redis.Client, collector metrics.Collector) *Manager {
	return &Manager{
		connections: make(map[int64]*Connection),
		tokens:      tokens,
		redis:       redisClient,
		collector:   collector,
	}
}

// register adds a joined connection, replacing any existing one for the user.
func (m *Manager) register(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.connections[c.UserID]; ok && old != c {
		old.Close()
	}
	m.connections[c.UserID] = c
}

// unregister removes a connection. Connections that never completed the join
// handshake have no entry to remove.
func (m *Manager) unregister(c *Connection) {
	if c.UserID == 0 {
		return
	}

	m.mu.Lock()
	existing, ok := m.connections[c.UserID]
	if ok && existing == c {
		delete(m.connections, c.UserID)
	}
	m.mu.Unlock()

	if !ok || existing != c {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.redis.ClearChannelJoined(ctx, c.UserID); err != nil {
		slog.Error("gateway: failed to clear channel presence", "userID", c.UserID, "error", err)
	}
}

// handleJoin processes a JOIN payload. The identity comes from the verified
// credential, never from the client.
func (m *Manager) handleJoin(c *Connection, data json.RawMessage) {
	var join JoinData
	if err := json.Unmarshal(data, &join); err != nil {
		slog.Error("gateway: invalid join data", "error", err)
		c.Close()
		return
	}

	claims, err := m.tokens.ValidateAccessToken(join.Token)
	if err != nil {
		slog.Warn("gateway: invalid token in join", "error", err)
		c.Close()
		return
	}

	c.UserID = claims.UserID
	c.SessionID = uuid.NewString()

	m.register(c)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.redis.SetChannelJoined(ctx, c.UserID); err != nil {
		slog.Error("gateway: failed to set channel presence", "userID", c.UserID, "error", err)
	}

	c.SendEvent(EventReady, ReadyData{
		SessionID: c.SessionID,
		UserID:    c.UserID,
	})

	slog.Info("gateway: channel joined", "userID", c.UserID, "sessionID", c.SessionID)
}

// refreshPresence extends the joined marker TTL on heartbeat.
func (m *Manager) refreshPresence(c *Connection) {
	if c.UserID == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.redis.SetChannelJoined(ctx, c.UserID); err != nil {
		slog.Error("gateway: failed to refresh channel presence", "userID", c.UserID, "error", err)
	}
}

// DispatchToUser sends a dispatch event to a specific joined user. Events
// for users without a joined channel are dropped, not queued.
func (m *Manager) DispatchToUser(userID int64, event string, data any) {
	m.mu.RLock()
	c, ok := m.connections[userID]
	m.mu.RUnlock()

	if !ok {
		m.collector.RecordPushDropped()
		return
	}
	c.SendEvent(event, data)
	m.collector.RecordPushDelivered()
}

// ConnectedUsers returns the number of currently joined channels.
func (m *Manager) ConnectedUsers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}
