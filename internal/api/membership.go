package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/murmur/internal/middleware"
	"github.com/lalith-99/murmur/internal/models"
	"github.com/lalith-99/murmur/internal/repository"
	"go.uber.org/zap"
)

// MembershipHandler handles channel membership operations.
type MembershipHandler struct {
	repo     repository.MembershipRepository
	channels repository.ChannelRepository
	users    repository.UserRepository
	logger   *zap.Logger
}

func NewMembershipHandler(repo repository.MembershipRepository, channels repository.ChannelRepository, users repository.UserRepository, logger *zap.Logger) *MembershipHandler {
	return &MembershipHandler{repo: repo, channels: channels, users: users, logger: logger}
}

// addMemberRequest is the JSON body for POST /v1/channels/:id/members.
type addMemberRequest struct {
	Username string `json:"username" binding:"required"`
	Role     string `json:"role"`
}

// loadChannel writes 404 and returns nil when the channel is missing.
func (h *MembershipHandler) loadChannel(c *gin.Context, channelID int64) *models.Channel {
	ch, err := h.channels.GetByID(c.Request.Context(), channelID)
	if err != nil {
		h.logger.Error("failed to get channel", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get channel"})
		return nil
	}
	if ch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		return nil
	}
	return ch
}

// roleOf returns the user's role in the channel, or "" when not a member.
func (h *MembershipHandler) roleOf(ctx context.Context, channelID int64, userID uuid.UUID) (string, error) {
	members, err := h.repo.ListMembers(ctx, channelID)
	if err != nil {
		return "", err
	}
	for _, m := range members {
		if m.UserID == userID {
			return m.Role, nil
		}
	}
	return "", nil
}

// Join handles POST /v1/channels/:id/join. Public channels only; private
// channels are joined by invitation (AddMember).
func (h *MembershipHandler) Join(c *gin.Context) {
	channelID, ok := channelID(c)
	if !ok {
		return
	}
	ch := h.loadChannel(c, channelID)
	if ch == nil {
		return
	}
	if ch.IsPrivate {
		c.JSON(http.StatusForbidden, gin.H{"error": "private channels are invite-only"})
		return
	}

	err := h.repo.AddMember(c.Request.Context(), channelID, middleware.GetUserID(c), models.RoleMember)
	if err != nil {
		h.logger.Error("failed to join channel", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join channel"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Leave handles POST /v1/channels/:id/leave
func (h *MembershipHandler) Leave(c *gin.Context) {
	channelID, ok := channelID(c)
	if !ok {
		return
	}

	err := h.repo.RemoveMember(c.Request.Context(), channelID, middleware.GetUserID(c))
	if err != nil {
		h.logger.Error("failed to leave channel", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to leave channel"})
		return
	}

	c.Status(http.StatusNoContent)
}

// AddMember handles POST /v1/channels/:id/members. Only owners and admins
// may add people, and nobody can hand out "owner".
func (h *MembershipHandler) AddMember(c *gin.Context) {
	channelID, ok := channelID(c)
	if !ok {
		return
	}
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	switch req.Role {
	case "":
		req.Role = models.RoleMember
	case models.RoleAdmin, models.RoleModerator, models.RoleMember:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be admin, moderator or member"})
		return
	}

	if h.loadChannel(c, channelID) == nil {
		return
	}
	ctx := c.Request.Context()

	role, err := h.roleOf(ctx, channelID, middleware.GetUserID(c))
	if err != nil {
		h.logger.Error("failed to check role", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add member"})
		return
	}
	if role != models.RoleOwner && role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "only owners and admins can add members"})
		return
	}

	user, err := h.users.GetByUsername(ctx, req.Username)
	if err != nil {
		h.logger.Error("failed to find user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add member"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	if err := h.repo.AddMember(ctx, channelID, user.ID, req.Role); err != nil {
		if errors.Is(err, repository.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
			return
		}
		h.logger.Error("failed to add member", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add member"})
		return
	}

	c.Status(http.StatusNoContent)
}

// ListMembers handles GET /v1/channels/:id/members. Members of a private
// channel are visible to its members only.
func (h *MembershipHandler) ListMembers(c *gin.Context) {
	channelID, ok := channelID(c)
	if !ok {
		return
	}
	ch := h.loadChannel(c, channelID)
	if ch == nil {
		return
	}
	ctx := c.Request.Context()

	members, err := h.repo.ListMembers(ctx, channelID)
	if err != nil {
		h.logger.Error("failed to list members", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list members"})
		return
	}

	if ch.IsPrivate {
		userID := middleware.GetUserID(c)
		visible := false
		for _, m := range members {
			if m.UserID == userID {
				visible = true
				break
			}
		}
		if !visible {
			c.JSON(http.StatusForbidden, gin.H{"error": "you are not a member of this channel"})
			return
		}
	}

	c.JSON(http.StatusOK, members)
}
