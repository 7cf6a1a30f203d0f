package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/murmur/internal/repository"
)

// NewStore bundles the Postgres repositories over one pool. The pool is
// goroutine-safe, so every repository shares it. Closing the pool is the
// owner's (internal/db) job.
func NewStore(pool *pgxpool.Pool) *repository.Store {
	return &repository.Store{
		Channels:    NewChannelStore(pool),
		Memberships: NewMembershipStore(pool),
		Messages:    NewMessageStore(pool),
		Users:       NewUserStore(pool),
		Close:       func() {},
	}
}
