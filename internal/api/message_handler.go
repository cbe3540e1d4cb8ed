package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/victorivanov/caremsg/internal/auth"
	"github.com/victorivanov/caremsg/internal/service"
)

// MessageHandler handles the messaging endpoints: conversation list, thread
// retrieval, send and read-state advance.
type MessageHandler struct {
	threads       *service.ThreadService
	conversations *service.ConversationService
}

// NewMessageHandler creates a MessageHandler.
func NewMessageHandler(threads *service.ThreadService, conversations *service.ConversationService) *MessageHandler {
	return &MessageHandler{threads: threads, conversations: conversations}
}

// ListConversations handles GET /api/messages/conversations.
func (h *MessageHandler) ListConversations(c echo.Context) error {
	viewerID := auth.GetUserID(c)

	conversations, err := h.conversations.List(c.Request().Context(), viewerID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, conversations)
}

// GetThread handles GET /api/messages/conversation/:id.
func (h *MessageHandler) GetThread(c echo.Context) error {
	counterpartyID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid counterparty ID")
	}

	viewerID := auth.GetUserID(c)

	messages, err := h.threads.GetThread(c.Request().Context(), viewerID, counterpartyID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, messages)
}

type sendMessageRequest struct {
	To      int64  `json:"to,string"`
	Message string `json:"message"`
}

// SendMessage handles POST /api/messages/send.
func (h *MessageHandler) SendMessage(c echo.Context) error {
	senderID := auth.GetUserID(c)

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	msg, err := h.threads.Send(c.Request().Context(), senderID, req.To, req.Message)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, msg)
}

type markReadResponse struct {
	Updated int64 `json:"updated"`
}

// MarkRead handles PUT /api/messages/read/:id.
func (h *MessageHandler) MarkRead(c echo.Context) error {
	counterpartyID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid counterparty ID")
	}

	viewerID := auth.GetUserID(c)

	n, err := h.threads.MarkRead(c.Request().Context(), viewerID, counterpartyID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, markReadResponse{Updated: n})
}
