package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/murmur/internal/models"
)

// Every method takes context.Context first: each one does I/O against the
// store (or, for the memory driver, at least could), and the request's
// deadline should reach the query.

// FeedPageSize caps how many messages one incremental poll returns.
const FeedPageSize = 50

// MaxContentLength bounds a message body as the author typed it, counted
// in runes.
const MaxContentLength = 2000

// MaxStoredContentLength bounds the filtered body the stores accept. A
// substitute is at most four times the word it replaces.
const MaxStoredContentLength = 4 * MaxContentLength

// Write errors shared by all drivers. Callers match them with errors.Is.
var (
	ErrEmptyContent    = errors.New("message cannot be empty")
	ErrContentTooLong  = errors.New("message is too long")
	ErrChannelNotFound = errors.New("channel not found")
	ErrParentNotFound  = errors.New("parent message not found")
	ErrUsernameTaken   = errors.New("username already registered")
	ErrEmailTaken      = errors.New("email already registered")
	ErrChannelExists   = errors.New("channel name already taken")
)

// ChannelRepository defines the contract for channel data operations.
type ChannelRepository interface {
	// Create inserts a new channel and returns it with ID and CreatedAt populated.
	Create(ctx context.Context, creatorID uuid.UUID, name string, isPrivate bool) (*models.Channel, error)

	// GetByID returns a single channel. Returns nil, nil if not found.
	GetByID(ctx context.Context, channelID int64) (*models.Channel, error)

	// ListVisible returns public channels plus the private ones the user
	// belongs to, oldest first. Returns an empty slice (not nil).
	ListVisible(ctx context.Context, userID uuid.UUID) ([]models.Channel, error)
}

// MembershipRepository handles who belongs to which channel.
type MembershipRepository interface {
	// AddMember adds a user to a channel with the given role. No-op if
	// already a member.
	AddMember(ctx context.Context, channelID int64, userID uuid.UUID, role string) error

	// RemoveMember removes a user from a channel. No-op if not a member.
	RemoveMember(ctx context.Context, channelID int64, userID uuid.UUID) error

	// ListMembers returns all members of a channel.
	ListMembers(ctx context.Context, channelID int64) ([]models.ChannelMember, error)

	// IsMember checks if a user belongs to a channel. Called before every
	// read and write on a private channel.
	IsMember(ctx context.Context, channelID int64, userID uuid.UUID) (bool, error)
}

// MessageRepository owns message persistence.
type MessageRepository interface {
	// Insert persists a message. In the same transaction it deletes every
	// message created before now-retain (children of deleted rows are
	// detached, not deleted). The store assigns ID and CreatedAt.
	// Returns the message and how many rows the prune removed.
	Insert(ctx context.Context, in models.NewMessage, retain time.Duration) (*models.Message, int64, error)

	// FetchSince returns at most limit messages in (created_at, id) order.
	// When afterID names an existing message, only messages with a
	// strictly later created_at are returned. An unknown afterID is
	// ignored.
	FetchSince(ctx context.Context, channelID int64, afterID *int64, limit int) ([]models.Message, error)

	// FetchAll returns the channel's whole history in (created_at, id) order.
	FetchAll(ctx context.Context, channelID int64) ([]models.Message, error)

	// GetByID returns nil, nil if the message does not exist.
	GetByID(ctx context.Context, id int64) (*models.Message, error)

	// Prune deletes messages created before cutoff and reports how many.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// UserRepository handles user data.
type UserRepository interface {
	// Create inserts a user. Returns ErrUsernameTaken / ErrEmailTaken on
	// unique violations.
	Create(ctx context.Context, username string, email *string, passwordHash string) (*models.User, error)

	// GetByID returns nil, nil if not found.
	GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// GetByUsername is an exact, case-sensitive match. nil, nil if not found.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetByEmail returns nil, nil if not found.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// ListByUsernames resolves handles to users, skipping unknown ones.
	ListByUsernames(ctx context.Context, usernames []string) ([]models.User, error)

	// TouchLastLogin stamps last_login.
	TouchLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error
}

// Store bundles one driver's repositories.
type Store struct {
	Channels    ChannelRepository
	Memberships MembershipRepository
	Messages    MessageRepository
	Users       UserRepository

	// Close releases the driver's resources.
	Close func()
}
