package client

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const refreshTimeout = 10 * time.Second

// API is the slice of the REST surface the bridge reconciles against.
// *Client satisfies it.
type API interface {
	ListConversations(ctx context.Context) ([]Conversation, error)
	GetThread(ctx context.Context, counterpartyID int64) ([]Message, error)
	MarkRead(ctx context.Context, counterpartyID int64) (int64, error)
}

// Bridge reconciles real-time pushes with fetch-derived snapshots into one
// consistent local view. Pushes update the view optimistically and schedule
// a background re-fetch whose result supersedes the optimistic state; fetch
// results merge with pushed messages rather than replacing them, so a stale
// fetch can neither drop a pushed message nor duplicate one.
type Bridge struct {
	api     API
	limiter *rate.Limiter

	mu            sync.Mutex
	conversations []Conversation
	threads       map[int64][]Message
	seenPush      map[int64]struct{}
	openThread    int64

	// Coalescing and staleness control for background work.
	inflight  map[int64]bool
	dirty     map[int64]bool
	threadGen map[int64]uint64
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithRefreshLimiter replaces the limiter that caps background re-fetches.
func WithRefreshLimiter(l *rate.Limiter) BridgeOption {
	return func(b *Bridge) { b.limiter = l }
}

// NewBridge creates a Bridge over the given API.
func NewBridge(api API, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		api:       api,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 3),
		threads:   make(map[int64][]Message),
		seenPush:  make(map[int64]struct{}),
		inflight:  make(map[int64]bool),
		dirty:     make(map[int64]bool),
		threadGen: make(map[int64]uint64),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach registers the bridge as the channel's push consumer.
func (b *Bridge) Attach(cm *ChannelManager) {
	cm.OnMessage(b.HandlePush)
}

// Conversations returns a copy of the current conversation snapshot, most
// recent first.
func (b *Bridge) Conversations() []Conversation {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Conversation, len(b.conversations))
	copy(out, b.conversations)
	return out
}

// Thread returns a copy of the cached thread with a counterparty, ascending.
func (b *Bridge) Thread(counterpartyID int64) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	cached := b.threads[counterpartyID]
	out := make([]Message, len(cached))
	copy(out, cached)
	return out
}

// RefreshConversations fetches the conversation list and replaces the
// snapshot. On failure the prior snapshot is left untouched.
func (b *Bridge) RefreshConversations(ctx context.Context) error {
	fetched, err := b.api.ListConversations(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.applyConversationsLocked(fetched)
	b.mu.Unlock()
	return nil
}

// OpenThread marks the counterparty's thread as the one being viewed,
// fetches it, and marks its messages read. In-flight fetches for the
// previously viewed thread are invalidated.
func (b *Bridge) OpenThread(ctx context.Context, counterpartyID int64) ([]Message, error) {
	b.mu.Lock()
	if prev := b.openThread; prev != 0 && prev != counterpartyID {
		b.threadGen[prev]++
	}
	b.openThread = counterpartyID
	gen := b.threadGen[counterpartyID]
	b.mu.Unlock()

	fetched, err := b.api.GetThread(ctx, counterpartyID)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	if b.threadGen[counterpartyID] == gen {
		b.threads[counterpartyID] = mergeThread(b.threads[counterpartyID], fetched)
	}
	merged := make([]Message, len(b.threads[counterpartyID]))
	copy(merged, b.threads[counterpartyID])
	b.setUnreadLocked(counterpartyID, 0)
	b.mu.Unlock()

	if _, err := b.api.MarkRead(ctx, counterpartyID); err != nil {
		slog.Warn("bridge: mark read failed", "counterparty", counterpartyID, "error", err)
	}
	return merged, nil
}

// CloseThread clears the viewed-thread marker and invalidates any in-flight
// fetch for it.
func (b *Bridge) CloseThread() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openThread != 0 {
		b.threadGen[b.openThread]++
	}
	b.openThread = 0
}

// HandlePush processes one real-time push. Duplicate pushes for the same
// message id are ignored entirely.
func (b *Bridge) HandlePush(push PushMessage) {
	b.mu.Lock()
	if _, seen := b.seenPush[push.ID]; seen {
		b.mu.Unlock()
		return
	}
	b.seenPush[push.ID] = struct{}{}

	from := push.From
	viewing := b.openThread == from

	// Union-insert into the cached thread so the message is visible even if
	// every fetch from here on fails.
	b.threads[from] = mergeThread(b.threads[from], []Message{{
		ID:        push.ID,
		SenderID:  from,
		Body:      push.Message,
		CreatedAt: push.Timestamp,
	}})

	// Optimistic conversation update: preview always, unread only when the
	// thread is not on screen.
	b.bumpConversationLocked(push, !viewing)
	b.mu.Unlock()

	if viewing {
		// The viewer is looking at this thread: reconcile immediately and
		// mark the new message read instead of counting it.
		go b.refreshOpenThread(from)
		return
	}

	b.scheduleRefresh(from)
}

// refreshOpenThread re-fetches the thread currently on screen and marks it
// read. Results are discarded if the viewer navigated away meanwhile.
func (b *Bridge) refreshOpenThread(counterpartyID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	b.mu.Lock()
	gen := b.threadGen[counterpartyID]
	b.mu.Unlock()

	fetched, err := b.api.GetThread(ctx, counterpartyID)
	if err != nil {
		slog.Warn("bridge: thread refresh failed", "counterparty", counterpartyID, "error", err)
		return
	}

	b.mu.Lock()
	if b.threadGen[counterpartyID] != gen || b.openThread != counterpartyID {
		b.mu.Unlock()
		return
	}
	b.threads[counterpartyID] = mergeThread(b.threads[counterpartyID], fetched)
	b.setUnreadLocked(counterpartyID, 0)
	b.mu.Unlock()

	if _, err := b.api.MarkRead(ctx, counterpartyID); err != nil {
		slog.Warn("bridge: mark read failed", "counterparty", counterpartyID, "error", err)
	}
}

// scheduleRefresh starts a background conversation re-fetch for the
// counterparty, coalescing so at most one is in flight; pushes arriving
// during the flight queue exactly one follow-up.
func (b *Bridge) scheduleRefresh(counterpartyID int64) {
	b.mu.Lock()
	if b.inflight[counterpartyID] {
		b.dirty[counterpartyID] = true
		b.mu.Unlock()
		return
	}
	b.inflight[counterpartyID] = true
	b.mu.Unlock()

	go b.refreshLoop(counterpartyID)
}

func (b *Bridge) refreshLoop(counterpartyID int64) {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		if err := b.limiter.Wait(ctx); err != nil {
			cancel()
			b.finishRefresh(counterpartyID)
			return
		}

		fetched, err := b.api.ListConversations(ctx)
		cancel()
		if err != nil {
			slog.Warn("bridge: conversation refresh failed", "counterparty", counterpartyID, "error", err)
			b.finishRefresh(counterpartyID)
			return
		}

		b.mu.Lock()
		b.applyConversationsLocked(fetched)
		again := b.dirty[counterpartyID]
		b.dirty[counterpartyID] = false
		if !again {
			b.inflight[counterpartyID] = false
		}
		b.mu.Unlock()

		if !again {
			return
		}
	}
}

func (b *Bridge) finishRefresh(counterpartyID int64) {
	b.mu.Lock()
	b.inflight[counterpartyID] = false
	b.dirty[counterpartyID] = false
	b.mu.Unlock()
}

// applyConversationsLocked installs a fetched conversation list. The server
// snapshot is authoritative, except that the thread on screen never shows
// an unread badge.
func (b *Bridge) applyConversationsLocked(fetched []Conversation) {
	for i := range fetched {
		if fetched[i].CounterpartyID == b.openThread {
			fetched[i].UnreadCount = 0
		}
	}
	sortConversations(fetched)
	b.conversations = fetched
}

// bumpConversationLocked applies a push to the conversation snapshot:
// last-message preview, timestamp, and optionally the unread count.
func (b *Bridge) bumpConversationLocked(push PushMessage, countUnread bool) {
	for i := range b.conversations {
		if b.conversations[i].CounterpartyID != push.From {
			continue
		}
		c := &b.conversations[i]
		if push.ID > c.LastMessageID {
			c.LastMessage = push.Message
			c.LastMessageID = push.ID
			c.LastMessageAt = push.Timestamp
		}
		if countUnread {
			c.UnreadCount++
		}
		sortConversations(b.conversations)
		return
	}

	// First contact from this counterparty: synthesize a row until the next
	// fetch fills in the display name.
	unread := 0
	if countUnread {
		unread = 1
	}
	b.conversations = append(b.conversations, Conversation{
		CounterpartyID: push.From,
		LastMessage:    push.Message,
		LastMessageID:  push.ID,
		LastMessageAt:  push.Timestamp,
		UnreadCount:    unread,
	})
	sortConversations(b.conversations)
}

func (b *Bridge) setUnreadLocked(counterpartyID int64, count int) {
	for i := range b.conversations {
		if b.conversations[i].CounterpartyID == counterpartyID {
			b.conversations[i].UnreadCount = count
			return
		}
	}
}

// mergeThread unions a cached thread with a fetched one, deduplicating by
// message id and re-sorting ascending. Fetched copies win on content, but
// read state is sticky: a merge can set readAt, never clear it.
func mergeThread(local, fetched []Message) []Message {
	byID := make(map[int64]Message, len(local)+len(fetched))
	for _, m := range local {
		byID[m.ID] = m
	}
	for _, m := range fetched {
		if prev, ok := byID[m.ID]; ok && prev.ReadAt != nil && m.ReadAt == nil {
			m.ReadAt = prev.ReadAt
		}
		byID[m.ID] = m
	}

	merged := make([]Message, 0, len(byID))
	for _, m := range byID {
		merged = append(merged, m)
	}
	sort.Slice(merged, func(i, j int) bool {
		if !merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].CreatedAt.Before(merged[j].CreatedAt)
		}
		return merged[i].ID < merged[j].ID
	})
	return merged
}

func sortConversations(conversations []Conversation) {
	sort.Slice(conversations, func(i, j int) bool {
		if !conversations[i].LastMessageAt.Equal(conversations[j].LastMessageAt) {
			return conversations[i].LastMessageAt.After(conversations[j].LastMessageAt)
		}
		return conversations[i].LastMessageID > conversations[j].LastMessageID
	})
}
