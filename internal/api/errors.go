package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/murmur/internal/feed"
	"github.com/lalith-99/murmur/internal/models"
	"github.com/lalith-99/murmur/internal/repository"
	"go.uber.org/zap"
)

// channelID reads the :id path parameter. Routes without one (the
// /v1/messages aliases) address the default channel.
func channelID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	if raw == "" {
		return models.DefaultChannelID, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return 0, false
	}
	return id, true
}

// writeError maps domain errors to status codes. Anything unrecognized is
// logged and reported as a generic 500 carrying fallback. notFound is the
// status for a missing channel: 400 on writes, 404 on reads.
func writeError(c *gin.Context, logger *zap.Logger, err error, notFound int, fallback string) {
	switch {
	case errors.Is(err, repository.ErrEmptyContent):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message cannot be empty"})
	case errors.Is(err, repository.ErrContentTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is too long"})
	case errors.Is(err, repository.ErrChannelNotFound):
		c.JSON(notFound, gin.H{"error": "channel not found"})
	case errors.Is(err, repository.ErrParentNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "parent message not found"})
	case errors.Is(err, feed.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not a member of this channel"})
	default:
		logger.Error(fallback, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
