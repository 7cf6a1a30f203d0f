// Package sqlite is the gorm-backed store driver for single-node
// deployments (STORE_DRIVER=sqlite).
package sqlite

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/murmur/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRow struct {
	ID           string  `gorm:"primaryKey;size:36"`
	Username     string  `gorm:"size:32;not null;uniqueIndex"`
	Email        *string `gorm:"size:254;uniqueIndex"`
	PasswordHash string  `gorm:"not null"`
	Active       bool    `gorm:"not null"`
	CreatedAt    time.Time
	LastLogin    *time.Time
}

func (userRow) TableName() string { return "users" }

type channelRow struct {
	ID        int64   `gorm:"primaryKey;autoIncrement"`
	Name      string  `gorm:"size:32;not null;uniqueIndex"`
	IsPrivate bool    `gorm:"not null"`
	CreatorID *string `gorm:"size:36"`
	CreatedAt time.Time
}

func (channelRow) TableName() string { return "channels" }

type memberRow struct {
	ChannelID int64  `gorm:"primaryKey"`
	UserID    string `gorm:"primaryKey;size:36"`
	Role      string `gorm:"size:10;not null"`
	JoinedAt  time.Time
}

func (memberRow) TableName() string { return "channel_members" }

// messageRow stores sent_at as Unix nanoseconds so range comparisons in
// SQLite are plain integer comparisons.
type messageRow struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	ChannelID  int64  `gorm:"not null;index:idx_messages_channel_sent,priority:1"`
	AuthorID   string `gorm:"size:36;not null"`
	ParentID   *int64 `gorm:"index"`
	Content    string `gorm:"size:8000;not null"`
	SentAt     int64  `gorm:"not null;index;index:idx_messages_channel_sent,priority:2"`
	HasMention bool   `gorm:"not null"`
}

func (messageRow) TableName() string { return "messages" }

type mentionRow struct {
	MessageID int64  `gorm:"primaryKey"`
	UserID    string `gorm:"primaryKey;size:36"`
}

func (mentionRow) TableName() string { return "message_mentions" }

// Migrate creates the schema and seeds the default channel.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&userRow{}, &channelRow{}, &memberRow{}, &messageRow{}, &mentionRow{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	general := channelRow{ID: models.DefaultChannelID, Name: "general", CreatedAt: time.Now().UTC()}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&general).Error; err != nil {
		return fmt.Errorf("seed default channel: %w", err)
	}
	return nil
}

func userFromRow(r userRow) models.User {
	u := models.User{
		ID:           parseID(r.ID),
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Active:       r.Active,
		CreatedAt:    r.CreatedAt.UTC(),
	}
	if r.LastLogin != nil {
		t := r.LastLogin.UTC()
		u.LastLogin = &t
	}
	return u
}

func channelFromRow(r channelRow) models.Channel {
	ch := models.Channel{
		ID:        r.ID,
		Name:      r.Name,
		IsPrivate: r.IsPrivate,
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.CreatorID != nil {
		if id, err := uuid.Parse(*r.CreatorID); err == nil {
			ch.CreatorID = &id
		}
	}
	return ch
}

// messageView is one row of selectMessages.
type messageView struct {
	ID             int64
	ChannelID      int64
	AuthorID       string
	Username       string
	Content        string
	SentAt         int64
	ParentID       *int64
	HasMention     bool
	ParentRowID    *int64
	ParentUsername *string
	ParentContent  *string
}

const selectMessages = `
	SELECT m.id, m.channel_id, m.author_id, u.username, m.content, m.sent_at,
	       m.parent_id, m.has_mention,
	       p.id AS parent_row_id, pu.username AS parent_username, p.content AS parent_content
	FROM messages m
	JOIN users u ON u.id = m.author_id
	LEFT JOIN messages p ON p.id = m.parent_id
	LEFT JOIN users pu ON pu.id = p.author_id`

func (v messageView) toModel() models.Message {
	msg := models.Message{
		ID:         v.ID,
		ChannelID:  v.ChannelID,
		AuthorID:   parseID(v.AuthorID),
		Username:   v.Username,
		Content:    v.Content,
		CreatedAt:  time.Unix(0, v.SentAt).UTC(),
		ParentID:   v.ParentID,
		HasMention: v.HasMention,
	}
	if v.ParentRowID != nil {
		msg.Parent = &models.ParentSnapshot{ID: *v.ParentRowID}
		if v.ParentUsername != nil {
			msg.Parent.Username = *v.ParentUsername
		}
		if v.ParentContent != nil {
			msg.Parent.Content = *v.ParentContent
		}
	}
	return msg
}

// parseID reads a uuid column; a malformed value reads back as uuid.Nil.
func parseID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
