package api

import (
	"context"
	"io"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/victorivanov/caremsg/internal/metrics"
	"github.com/victorivanov/caremsg/internal/models"
	"github.com/victorivanov/caremsg/internal/service"
	"github.com/victorivanov/caremsg/internal/snowflake"
)

const (
	testUserID         int64 = 1000
	testCounterpartyID int64 = 2000
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func newTestContext(method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

func setAuthUser(c echo.Context, userID int64) {
	c.Set("user_id", userID)
}

func testSnowflake() *snowflake.Generator {
	sf, _ := snowflake.NewGenerator(1)
	return sf
}

func newTestMessageHandler(messages *mockMessageRepo, users *mockUserRepo, gw *mockGateway) *MessageHandler {
	threads := service.NewThreadService(messages, users, testSnowflake(), gw, metrics.Nop{})
	conversations := service.NewConversationService(messages)
	return NewMessageHandler(threads, conversations)
}

// ---------------------------------------------------------------------------
// Mock gateway dispatcher
// ---------------------------------------------------------------------------

type dispatchedEvent struct {
	UserID int64
	Event  string
	Data   any
}

type mockGateway struct {
	mu     sync.Mutex
	events []dispatchedEvent
}

func (m *mockGateway) DispatchToUser(userID int64, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, dispatchedEvent{UserID: userID, Event: event, Data: data})
}

// ---------------------------------------------------------------------------
// Mock repositories
// ---------------------------------------------------------------------------

// mockUserRepo implements database.UserRepository.
type mockUserRepo struct {
	CreateFn        func(ctx context.Context, user *models.User) error
	GetByIDFn       func(ctx context.Context, id int64) (*models.User, error)
	GetByUsernameFn func(ctx context.Context, username string) (*models.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetByUsernameFn != nil {
		return m.GetByUsernameFn(ctx, username)
	}
	return nil, nil
}

// mockMessageRepo implements database.MessageRepository.
type mockMessageRepo struct {
	CreateFn            func(ctx context.Context, msg *models.Message) error
	GetByIDFn           func(ctx context.Context, id int64) (*models.Message, error)
	GetThreadFn         func(ctx context.Context, viewerID, counterpartyID int64) ([]models.Message, error)
	ListConversationsFn func(ctx context.Context, viewerID int64) ([]models.Conversation, error)
	MarkReadFn          func(ctx context.Context, viewerID, counterpartyID int64, readAt time.Time) (int64, error)
	CountUnreadFn       func(ctx context.Context, viewerID, counterpartyID int64) (int, error)
}

func (m *mockMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, msg)
	}
	return nil
}

func (m *mockMessageRepo) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockMessageRepo) GetThread(ctx context.Context, viewerID, counterpartyID int64) ([]models.Message, error) {
	if m.GetThreadFn != nil {
		return m.GetThreadFn(ctx, viewerID, counterpartyID)
	}
	return nil, nil
}

func (m *mockMessageRepo) ListConversations(ctx context.Context, viewerID int64) ([]models.Conversation, error) {
	if m.ListConversationsFn != nil {
		return m.ListConversationsFn(ctx, viewerID)
	}
	return nil, nil
}

func (m *mockMessageRepo) MarkRead(ctx context.Context, viewerID, counterpartyID int64, readAt time.Time) (int64, error) {
	if m.MarkReadFn != nil {
		return m.MarkReadFn(ctx, viewerID, counterpartyID, readAt)
	}
	return 0, nil
}

func (m *mockMessageRepo) CountUnread(ctx context.Context, viewerID, counterpartyID int64) (int, error) {
	if m.CountUnreadFn != nil {
		return m.CountUnreadFn(ctx, viewerID, counterpartyID)
	}
	return 0, nil
}
