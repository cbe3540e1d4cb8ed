package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// Client is the REST client for the messaging API. It is safe for
// concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a Client for the API at baseURL, authenticating with
// the given bearer token.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListConversations returns the viewer's conversation list, most recent
// first.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	var conversations []Conversation
	if err := c.do(ctx, http.MethodGet, "/api/messages/conversations", nil, &conversations); err != nil {
		return nil, err
	}
	if conversations == nil {
		conversations = []Conversation{}
	}
	return conversations, nil
}

// GetThread returns the full message history with a counterparty, ascending
// by creation time. The order is re-asserted locally so callers can rely on
// it regardless of what the server returned.
func (c *Client) GetThread(ctx context.Context, counterpartyID int64) ([]Message, error) {
	path := "/api/messages/conversation/" + strconv.FormatInt(counterpartyID, 10)
	var messages []Message
	if err := c.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []Message{}
	}
	sort.SliceStable(messages, func(i, j int) bool {
		if !messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].CreatedAt.Before(messages[j].CreatedAt)
		}
		return messages[i].ID < messages[j].ID
	})
	return messages, nil
}

type sendRequest struct {
	To      int64  `json:"to,string"`
	Message string `json:"message"`
}

// Send delivers a message to the given recipient and returns the stored
// message. An empty or whitespace-only body fails locally without touching
// the network.
func (c *Client) Send(ctx context.Context, to int64, body string) (*Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, &ValidationError{Code: "EMPTY_MESSAGE", Message: "message body must not be empty"}
	}

	var msg Message
	if err := c.do(ctx, http.MethodPost, "/api/messages/send", sendRequest{To: to, Message: body}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

type markReadResponse struct {
	Updated int64 `json:"updated"`
}

// MarkRead marks every unread message from the counterparty as read and
// returns how many messages changed state. Calling it again is a no-op.
func (c *Client) MarkRead(ctx context.Context, counterpartyID int64) (int64, error) {
	path := "/api/messages/read/" + strconv.FormatInt(counterpartyID, 10)
	var resp markReadResponse
	if err := c.do(ctx, http.MethodPut, path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do performs an authenticated request and decodes the response, mapping
// failure statuses onto the typed error set.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &NetworkError{Err: fmt.Errorf("decoding response: %w", err)}
		}
		return nil
	}

	var envelope errorEnvelope
	_ = json.NewDecoder(resp.Body).Decode(&envelope)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &AuthError{Message: orDefault(envelope.Error.Message, "unauthorized")}
	case resp.StatusCode >= 500:
		return &NetworkError{Err: fmt.Errorf("server error: status %d", resp.StatusCode)}
	default:
		return &ValidationError{
			Code:    envelope.Error.Code,
			Message: orDefault(envelope.Error.Message, resp.Status),
		}
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
