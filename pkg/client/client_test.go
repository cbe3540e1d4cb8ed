package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSendEmptyBodyFailsBeforeNetwork(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token")
	_, err := c.Send(context.Background(), 2, "   \n\t ")

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if requests.Load() != 0 {
		t.Error("empty send must not reach the network")
	}
}

func TestSendTrimsBodyAndCarriesAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			t.Errorf("unexpected auth header: %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			To      int64  `json:"to,string"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("failed to unmarshal request: %v", err)
		}
		if req.To != 2 || req.Message != "hello" {
			t.Errorf("unexpected request: %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Message{ID: 10, SenderID: 1, RecipientID: 2, Body: "hello", CreatedAt: time.Now()})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-token")
	msg, err := c.Send(context.Background(), 2, "  hello  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.ID != 10 || msg.Body != "hello" {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestGetThreadSortsAscending(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/messages/conversation/7" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		// Deliberately out of order.
		out := []Message{
			{ID: 3, CreatedAt: base.Add(2 * time.Minute)},
			{ID: 1, CreatedAt: base},
			{ID: 2, CreatedAt: base.Add(time.Minute)},
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token")
	messages, err := c.GetThread(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range []int64{1, 2, 3} {
		if messages[i].ID != want {
			t.Fatalf("position %d: expected id %d, got %d", i, want, messages[i].ID)
		}
	}
}

func TestUnauthorizedMapsToAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"token expired"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "expired")
	_, err := c.ListConversations(context.Background())

	var aerr *AuthError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if aerr.Message != "token expired" {
		t.Errorf("unexpected message: %q", aerr.Message)
	}
}

func TestServerFaultMapsToNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token")
	_, err := c.GetThread(context.Background(), 7)

	var nerr *NetworkError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestTransportFailureMapsToNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL, "token")
	_, err := c.ListConversations(context.Background())

	var nerr *NetworkError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestRejectedSendCarriesServerCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"SELF_SEND","message":"cannot message yourself"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token")
	_, err := c.Send(context.Background(), 1, "hi")

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Code != "SELF_SEND" {
		t.Errorf("unexpected code: %q", verr.Code)
	}
}

func TestListConversationsEmptyIsNotNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token")
	conversations, err := c.ListConversations(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conversations == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(conversations) != 0 {
		t.Fatalf("expected no conversations, got %d", len(conversations))
	}
}

func TestMarkReadReturnsCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/messages/read/7" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"updated":3}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token")
	updated, err := c.MarkRead(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated != 3 {
		t.Errorf("expected 3 updated, got %d", updated)
	}
}
