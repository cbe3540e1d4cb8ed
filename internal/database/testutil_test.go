package database

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/victorivanov/caremsg/internal/models"
)

// testPool returns a pgxpool.Pool connected to the test database.
// It skips the test if DATABASE_URL is not set.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

// testIDCounter provides unique IDs across all tests in the package.
// Starts well above zero to avoid conflicts with any existing data.
var testIDCounter int64 = 100000

func nextID() int64 {
	return atomic.AddInt64(&testIDCounter, 1)
}

func createTestUser(t *testing.T, pool *pgxpool.Pool, name string) *models.User {
	t.Helper()
	u := &models.User{
		ID:           nextID(),
		Username:     name,
		DisplayName:  name,
		PasswordHash: "x",
		CreatedAt:    time.Now(),
	}
	users := NewUserRepository(pool)
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("creating test user: %v", err)
	}
	t.Cleanup(func() {
		pool.Exec(context.Background(), `DELETE FROM messages WHERE sender_id = $1 OR recipient_id = $1`, u.ID)
		pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, u.ID)
	})
	return u
}

func insertTestMessage(t *testing.T, pool *pgxpool.Pool, from, to int64, body string, at time.Time) *models.Message {
	t.Helper()
	m := &models.Message{
		ID:          nextID(),
		SenderID:    from,
		RecipientID: to,
		Body:        body,
		CreatedAt:   at,
	}
	messages := NewMessageRepository(pool)
	if err := messages.Create(context.Background(), m); err != nil {
		t.Fatalf("creating test message: %v", err)
	}
	return m
}
