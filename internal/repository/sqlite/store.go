package sqlite

import (
	"github.com/lalith-99/murmur/internal/repository"
	"gorm.io/gorm"
)

// NewStore migrates the schema and bundles the SQLite repositories over db.
// Close releases the underlying connection.
func NewStore(db *gorm.DB) (*repository.Store, error) {
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return &repository.Store{
		Channels:    NewChannelStore(db),
		Memberships: NewMembershipStore(db),
		Messages:    NewMessageStore(db),
		Users:       NewUserStore(db),
		Close: func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		},
	}, nil
}
