package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultChannelID is the channel every account joins on registration.
// Migrations seed it as "general".
const DefaultChannelID int64 = 1

// User is a registered account.
//
// Username is the login handle: unique and matched case-sensitively.
// Email is an optional alternate login and is unique when present.
//
// PasswordHash never leaves the server (json:"-").
type User struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	Email        *string    `json:"email,omitempty"`
	PasswordHash string     `json:"-"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// Channel is a named message container.
//
// CreatorID is nil for the seeded default channel.
type Channel struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	IsPrivate bool       `json:"is_private"`
	CreatorID *uuid.UUID `json:"creator_id"`
	CreatedAt time.Time  `json:"created_at"`
}

// Channel roles. Stored as plain strings.
const (
	RoleOwner     = "owner"
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleMember    = "member"
)

// ChannelMember is the join table between channels and users.
type ChannelMember struct {
	ChannelID int64     `json:"channel_id"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
}

// Message is a single chat message as persisted.
//
// ParentID is a key into the same table, never an owning reference:
// when the parent is deleted the key is set to NULL and the child stays.
//
// Username and Parent are filled by the store's read queries (explicit
// joins); they are not columns of the messages table.
type Message struct {
	ID         int64           `json:"id"`
	ChannelID  int64           `json:"channel_id"`
	AuthorID   uuid.UUID       `json:"author_id"`
	Username   string          `json:"username"`
	Content    string          `json:"content"`
	CreatedAt  time.Time       `json:"timestamp"`
	ParentID   *int64          `json:"parent_message_id"`
	HasMention bool            `json:"has_mention"`
	Parent     *ParentSnapshot `json:"-"`
	MentionIDs []uuid.UUID     `json:"-"`
}

// ParentSnapshot is the resolved parent of a reply at read time.
type ParentSnapshot struct {
	ID       int64
	Username string
	Content  string
}

// NewMessage is the input to MessageRepository.Insert.
type NewMessage struct {
	AuthorID   uuid.UUID
	ChannelID  int64
	Content    string
	ParentID   *int64
	MentionIDs []uuid.UUID
}

// DisplayMessage is a run of consecutive messages from one author, merged
// for display. It is derived on every full-feed read and never stored.
//
// ID is the first message of the run, LastID the last one. Timestamp is the
// latest message's timestamp.
type DisplayMessage struct {
	ID        int64     `json:"id"`
	LastID    int64     `json:"last_id"`
	ChannelID int64     `json:"channel_id"`
	AuthorID  uuid.UUID `json:"-"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
	IsUser    bool      `json:"isUser"`
}
