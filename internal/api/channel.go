package api

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/murmur/internal/middleware"
	"github.com/lalith-99/murmur/internal/models"
	"github.com/lalith-99/murmur/internal/repository"
	"go.uber.org/zap"
)

const maxChannelName = 32

// ChannelHandler holds the dependencies needed to handle channel requests.
// Handlers depend on the repository interfaces, never on a driver.
type ChannelHandler struct {
	repo    repository.ChannelRepository
	members repository.MembershipRepository
	logger  *zap.Logger
}

func NewChannelHandler(repo repository.ChannelRepository, members repository.MembershipRepository, logger *zap.Logger) *ChannelHandler {
	return &ChannelHandler{repo: repo, members: members, logger: logger}
}

// createChannelRequest is the expected JSON body for POST /v1/channels.
// The client never controls id, creator or created_at.
type createChannelRequest struct {
	Name      string `json:"name" binding:"required"`
	IsPrivate bool   `json:"is_private"`
}

// Create handles POST /v1/channels. The creator becomes the owner.
func (h *ChannelHandler) Create(c *gin.Context) {
	var req createChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" || utf8.RuneCountInString(name) > maxChannelName {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel name must be 1-32 characters"})
		return
	}

	userID := middleware.GetUserID(c)
	ctx := c.Request.Context()

	ch, err := h.repo.Create(ctx, userID, name, req.IsPrivate)
	if err != nil {
		if errors.Is(err, repository.ErrChannelExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "channel name already taken"})
			return
		}
		h.logger.Error("failed to create channel", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create channel"})
		return
	}

	if err := h.members.AddMember(ctx, ch.ID, userID, models.RoleOwner); err != nil {
		h.logger.Error("failed to add channel owner", zap.Int64("channel_id", ch.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create channel"})
		return
	}

	c.JSON(http.StatusCreated, ch)
}

// List handles GET /v1/channels: public channels plus the caller's
// private ones. Always a JSON array, never null.
func (h *ChannelHandler) List(c *gin.Context) {
	channels, err := h.repo.ListVisible(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.logger.Error("failed to list channels", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list channels"})
		return
	}

	c.JSON(http.StatusOK, channels)
}

// GetByID handles GET /v1/channels/:id. A private channel the caller is
// not in reads as not found.
func (h *ChannelHandler) GetByID(c *gin.Context) {
	channelID, ok := channelID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	ch, err := h.repo.GetByID(ctx, channelID)
	if err != nil {
		h.logger.Error("failed to get channel", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get channel"})
		return
	}
	if ch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		return
	}

	if ch.IsPrivate {
		member, err := h.members.IsMember(ctx, ch.ID, middleware.GetUserID(c))
		if err != nil {
			h.logger.Error("failed to check membership", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get channel"})
			return
		}
		if !member {
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
			return
		}
	}

	c.JSON(http.StatusOK, ch)
}
