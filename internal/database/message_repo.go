package database

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/victorivanov/caremsg/internal/models"
)

type messageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepo{pool: pool}
}

func (r *messageRepo) Create(ctx context.Context, msg *models.Message) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (id, sender_id, recipient_id, body, created_at, read_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.SenderID, msg.RecipientID, msg.Body, msg.CreatedAt, msg.ReadAt,
	)
	return err
}

func (r *messageRepo) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	m := &models.Message{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, sender_id, recipient_id, body, created_at, read_at
		 FROM messages WHERE id = $1`, id,
	).Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Body, &m.CreatedAt, &m.ReadAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (r *messageRepo) GetThread(ctx context.Context, viewerID, counterpartyID int64) ([]models.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, sender_id, recipient_id, body, created_at, read_at
		 FROM messages
		 WHERE (sender_id = $1 AND recipient_id = $2)
		    OR (sender_id = $2 AND recipient_id = $1)
		 ORDER BY created_at ASC, id ASC`,
		viewerID, counterpartyID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Body, &m.CreatedAt, &m.ReadAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *messageRepo) ListConversations(ctx context.Context, viewerID int64) ([]models.Conversation, error) {
	// Snowflake ids are time-ordered, so the row with the highest id per
	// counterparty is the latest message.
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT ON (counterparty_id)
		        counterparty_id, u.display_name, m.id, m.body, m.created_at
		 FROM (
		     SELECT *,
		            CASE WHEN sender_id = $1 THEN recipient_id ELSE sender_id END AS counterparty_id
		     FROM messages
		     WHERE sender_id = $1 OR recipient_id = $1
		 ) m
		 INNER JOIN users u ON u.id = m.counterparty_id
		 ORDER BY counterparty_id, m.id DESC`,
		viewerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.CounterpartyID, &c.CounterpartyName, &c.LastMessageID, &c.LastMessage, &c.LastMessageAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	unread, err := r.unreadBySender(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	for i := range conversations {
		conversations[i].UnreadCount = unread[conversations[i].CounterpartyID]
	}

	// Most recent conversation first; id breaks timestamp ties because
	// insert order is id order.
	sort.Slice(conversations, func(i, j int) bool {
		a, b := conversations[i], conversations[j]
		if !a.LastMessageAt.Equal(b.LastMessageAt) {
			return a.LastMessageAt.After(b.LastMessageAt)
		}
		return a.LastMessageID > b.LastMessageID
	})

	return conversations, nil
}

func (r *messageRepo) unreadBySender(ctx context.Context, viewerID int64) (map[int64]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT sender_id, COUNT(*)
		 FROM messages
		 WHERE recipient_id = $1 AND read_at IS NULL
		 GROUP BY sender_id`,
		viewerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var senderID int64
		var n int
		if err := rows.Scan(&senderID, &n); err != nil {
			return nil, err
		}
		counts[senderID] = n
	}
	return counts, rows.Err()
}

func (r *messageRepo) MarkRead(ctx context.Context, viewerID, counterpartyID int64, readAt time.Time) (int64, error) {
	// The read_at IS NULL guard makes the transition monotonic: a message
	// read once can never be stamped again or reverted.
	tag, err := r.pool.Exec(ctx,
		`UPDATE messages SET read_at = $3
		 WHERE recipient_id = $1 AND sender_id = $2 AND read_at IS NULL`,
		viewerID, counterpartyID, readAt,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *messageRepo) CountUnread(ctx context.Context, viewerID, counterpartyID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages
		 WHERE recipient_id = $1 AND sender_id = $2 AND read_at IS NULL`,
		viewerID, counterpartyID,
	).Scan(&n)
	return n, err
}
