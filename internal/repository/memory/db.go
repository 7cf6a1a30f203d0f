// Package memory is an in-process store driver. Messages live in an arena
// keyed by id; a reply's parent is a nullable key into the same arena, so
// deleting a parent is a key invalidation, never a dangling reference.
//
// A single RWMutex serializes writers, which is all the message volumes
// here need. Used by tests and by STORE_DRIVER=memory for local runs.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/murmur/internal/models"
)

type DB struct {
	mu  sync.RWMutex
	now func() time.Time

	users    map[uuid.UUID]*models.User
	channels map[int64]*models.Channel
	members  map[int64]map[uuid.UUID]models.ChannelMember
	messages map[int64]*models.Message
	mentions map[int64][]uuid.UUID

	nextChannelID int64
	nextMessageID int64
}

// Option configures a DB.
type Option func(*DB)

// WithClock overrides the clock used for created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(db *DB) { db.now = now }
}

// New returns an empty store with the default channel seeded.
func New(opts ...Option) *DB {
	db := &DB{
		now:           time.Now,
		users:         make(map[uuid.UUID]*models.User),
		channels:      make(map[int64]*models.Channel),
		members:       make(map[int64]map[uuid.UUID]models.ChannelMember),
		messages:      make(map[int64]*models.Message),
		mentions:      make(map[int64][]uuid.UUID),
		nextChannelID: models.DefaultChannelID,
		nextMessageID: 1,
	}
	for _, opt := range opts {
		opt(db)
	}
	db.channels[models.DefaultChannelID] = &models.Channel{
		ID:        models.DefaultChannelID,
		Name:      "general",
		CreatedAt: db.now().UTC(),
	}
	db.nextChannelID++
	return db
}

// channelMessages returns the channel's messages in (created_at, id) order.
// Caller holds mu.
func (db *DB) channelMessages(channelID int64) []*models.Message {
	out := make([]*models.Message, 0)
	for _, m := range db.messages {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// resolve copies a stored message and fills the joined fields. Caller holds mu.
func (db *DB) resolve(m *models.Message) models.Message {
	out := *m
	if u, ok := db.users[m.AuthorID]; ok {
		out.Username = u.Username
	}
	out.Parent = nil
	if m.ParentID != nil {
		if p, ok := db.messages[*m.ParentID]; ok {
			snap := &models.ParentSnapshot{ID: p.ID, Content: p.Content}
			if u, ok := db.users[p.AuthorID]; ok {
				snap.Username = u.Username
			}
			out.Parent = snap
		}
	}
	if ids := db.mentions[m.ID]; len(ids) > 0 {
		out.MentionIDs = append([]uuid.UUID(nil), ids...)
	}
	return out
}

// prune deletes messages older than cutoff and detaches their children.
// Caller holds mu for writing.
func (db *DB) prune(cutoff time.Time) int64 {
	gone := make(map[int64]struct{})
	for id, m := range db.messages {
		if m.CreatedAt.Before(cutoff) {
			gone[id] = struct{}{}
		}
	}
	if len(gone) == 0 {
		return 0
	}
	for id := range gone {
		delete(db.messages, id)
		delete(db.mentions, id)
	}
	for _, m := range db.messages {
		if m.ParentID == nil {
			continue
		}
		if _, ok := gone[*m.ParentID]; ok {
			m.ParentID = nil
		}
	}
	return int64(len(gone))
}
