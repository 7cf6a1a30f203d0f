package memory

import "github.com/lalith-99/murmur/internal/repository"

// NewStore bundles the memory repositories over one DB.
func NewStore(db *DB) *repository.Store {
	return &repository.Store{
		Channels:    NewChannelStore(db),
		Memberships: NewMembershipStore(db),
		Messages:    NewMessageStore(db),
		Users:       NewUserStore(db),
		Close:       func() {},
	}
}
