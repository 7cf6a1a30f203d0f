package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/lalith-99/murmur/internal/models"
	"github.com/lalith-99/murmur/internal/repository"
)

type MembershipStore struct {
	db *DB
}

func NewMembershipStore(db *DB) *MembershipStore {
	return &MembershipStore{db: db}
}

func (s *MembershipStore) AddMember(ctx context.Context, channelID int64, userID uuid.UUID, role string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.channels[channelID]; !ok {
		return repository.ErrChannelNotFound
	}
	set, ok := s.db.members[channelID]
	if !ok {
		set = make(map[uuid.UUID]models.ChannelMember)
		s.db.members[channelID] = set
	}
	if _, exists := set[userID]; exists {
		return nil
	}
	set[userID] = models.ChannelMember{
		ChannelID: channelID,
		UserID:    userID,
		Role:      role,
		JoinedAt:  s.db.now().UTC(),
	}
	return nil
}

func (s *MembershipStore) RemoveMember(ctx context.Context, channelID int64, userID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	delete(s.db.members[channelID], userID)
	return nil
}

func (s *MembershipStore) ListMembers(ctx context.Context, channelID int64) ([]models.ChannelMember, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	members := make([]models.ChannelMember, 0, len(s.db.members[channelID]))
	for _, m := range s.db.members[channelID] {
		if u, ok := s.db.users[m.UserID]; ok {
			m.Username = u.Username
		}
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		if !members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].JoinedAt.Before(members[j].JoinedAt)
		}
		return members[i].Username < members[j].Username
	})
	return members, nil
}

func (s *MembershipStore) IsMember(ctx context.Context, channelID int64, userID uuid.UUID) (bool, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	_, ok := s.db.members[channelID][userID]
	return ok, nil
}
