package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/lalith-99/murmur/internal/models"
	"github.com/lalith-99/murmur/internal/repository"
)

type ChannelStore struct {
	db *DB
}

func NewChannelStore(db *DB) *ChannelStore {
	return &ChannelStore{db: db}
}

func (s *ChannelStore) Create(ctx context.Context, creatorID uuid.UUID, name string, isPrivate bool) (*models.Channel, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, ch := range s.db.channels {
		if ch.Name == name {
			return nil, repository.ErrChannelExists
		}
	}

	creator := creatorID
	ch := &models.Channel{
		ID:        s.db.nextChannelID,
		Name:      name,
		IsPrivate: isPrivate,
		CreatorID: &creator,
		CreatedAt: s.db.now().UTC(),
	}
	s.db.nextChannelID++
	s.db.channels[ch.ID] = ch

	out := *ch
	return &out, nil
}

func (s *ChannelStore) GetByID(ctx context.Context, channelID int64) (*models.Channel, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	ch, ok := s.db.channels[channelID]
	if !ok {
		return nil, nil
	}
	out := *ch
	return &out, nil
}

func (s *ChannelStore) ListVisible(ctx context.Context, userID uuid.UUID) ([]models.Channel, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	channels := make([]models.Channel, 0, len(s.db.channels))
	for _, ch := range s.db.channels {
		if ch.IsPrivate {
			if _, ok := s.db.members[ch.ID][userID]; !ok {
				continue
			}
		}
		channels = append(channels, *ch)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].ID < channels[j].ID })
	return channels, nil
}
