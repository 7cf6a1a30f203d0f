package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/murmur/internal/feed"
	"github.com/lalith-99/murmur/internal/middleware"
	"go.uber.org/zap"
)

type MessageHandler struct {
	feed   *feed.Service
	logger *zap.Logger
}

func NewMessageHandler(svc *feed.Service, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{feed: svc, logger: logger}
}

// Content is not binding:"required": a missing or blank body must produce
// the "Message cannot be empty" error, not a binding error.
type createMessageRequest struct {
	Content         string `json:"content"`
	ParentMessageID *int64 `json:"parent_message_id"`
}

// Create handles POST /v1/channels/:id/messages and POST /v1/messages.
func (h *MessageHandler) Create(c *gin.Context) {
	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	channelID, ok := channelID(c)
	if !ok {
		return
	}

	item, err := h.feed.Post(c.Request.Context(), middleware.GetUserID(c), feed.PostInput{
		ChannelID: channelID,
		Content:   req.Content,
		ParentID:  req.ParentMessageID,
	})
	if err != nil {
		writeError(c, h.logger, err, http.StatusBadRequest, "failed to create message")
		return
	}

	c.JSON(http.StatusCreated, item)
}

// List handles GET /v1/channels/:id/messages and GET /v1/messages.
//
// Returns the whole retained history grouped into display runs, plus the
// newest raw message id for the client to poll /recent with.
func (h *MessageHandler) List(c *gin.Context) {
	channelID, ok := channelID(c)
	if !ok {
		return
	}

	f, err := h.feed.FullFeed(c.Request.Context(), channelID, middleware.GetUserID(c))
	if err != nil {
		writeError(c, h.logger, err, http.StatusNotFound, "failed to load messages")
		return
	}

	c.JSON(http.StatusOK, f)
}

// Recent handles GET /v1/channels/:id/messages/recent?after=123.
//
// "after" is the id of the newest message the client already has. Only
// messages created strictly later come back, oldest first, at most 50.
// An id that no longer exists (pruned) is treated as no cursor.
func (h *MessageHandler) Recent(c *gin.Context) {
	channelID, ok := channelID(c)
	if !ok {
		return
	}

	var after *int64
	if raw := c.Query("after"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'after' parameter"})
			return
		}
		after = &id
	}

	items, err := h.feed.Recent(c.Request.Context(), channelID, middleware.GetUserID(c), after)
	if err != nil {
		writeError(c, h.logger, err, http.StatusNotFound, "failed to load messages")
		return
	}

	c.JSON(http.StatusOK, items)
}
