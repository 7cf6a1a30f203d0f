package feed

import (
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/murmur/internal/models"
)

// GroupWindow is the largest gap between a group's latest message and the
// next one by the same author that still joins the group.
const GroupWindow = 60 * time.Second

// Group folds messages (already in feed order) into display groups. A new
// group starts when the author changes or the message is more than
// GroupWindow after the group's latest timestamp. Content is not filtered
// here.
func Group(messages []models.Message, viewerID uuid.UUID) []models.DisplayMessage {
	groups := make([]models.DisplayMessage, 0, len(messages))
	for _, m := range messages {
		if n := len(groups); n > 0 {
			last := &groups[n-1]
			if last.AuthorID == m.AuthorID && m.CreatedAt.Sub(last.Timestamp) <= GroupWindow {
				last.Content += "\n" + m.Content
				last.LastID = m.ID
				last.Timestamp = m.CreatedAt
				continue
			}
		}
		groups = append(groups, models.DisplayMessage{
			ID:        m.ID,
			LastID:    m.ID,
			ChannelID: m.ChannelID,
			AuthorID:  m.AuthorID,
			Username:  m.Username,
			Content:   m.Content,
			StartedAt: m.CreatedAt,
			Timestamp: m.CreatedAt,
			IsUser:    m.AuthorID == viewerID,
		})
	}
	return groups
}
