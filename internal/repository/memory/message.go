package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/murmur/internal/models"
	"github.com/lalith-99/murmur/internal/repository"
)

type MessageStore struct {
	db *DB
}

func NewMessageStore(db *DB) *MessageStore {
	return &MessageStore{db: db}
}

func (s *MessageStore) Insert(ctx context.Context, in models.NewMessage, retain time.Duration) (*models.Message, int64, error) {
	content, err := repository.NormalizeContent(in.Content)
	if err != nil {
		return nil, 0, err
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.channels[in.ChannelID]; !ok {
		return nil, 0, repository.ErrChannelNotFound
	}

	now := s.db.now().UTC()
	cutoff := now.Add(-retain)

	// The parent is checked as it will look after the prune, so every
	// failure happens before anything is mutated.
	if in.ParentID != nil {
		parent, ok := s.db.messages[*in.ParentID]
		if !ok || parent.ChannelID != in.ChannelID || (retain > 0 && parent.CreatedAt.Before(cutoff)) {
			return nil, 0, repository.ErrParentNotFound
		}
	}

	var pruned int64
	if retain > 0 {
		pruned = s.db.prune(cutoff)
	}

	createdAt := now
	if history := s.db.channelMessages(in.ChannelID); len(history) > 0 {
		if last := history[len(history)-1].CreatedAt; last.After(createdAt) {
			createdAt = last
		}
	}

	msg := &models.Message{
		ID:         s.db.nextMessageID,
		ChannelID:  in.ChannelID,
		AuthorID:   in.AuthorID,
		Content:    content,
		CreatedAt:  createdAt,
		ParentID:   copyID(in.ParentID),
		HasMention: len(in.MentionIDs) > 0,
	}
	s.db.nextMessageID++
	s.db.messages[msg.ID] = msg
	if len(in.MentionIDs) > 0 {
		s.db.mentions[msg.ID] = dedupe(in.MentionIDs)
	}

	out := s.db.resolve(msg)
	return &out, pruned, nil
}

func (s *MessageStore) FetchSince(ctx context.Context, channelID int64, afterID *int64, limit int) ([]models.Message, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	history := s.db.channelMessages(channelID)

	// The cursor is compared by its timestamp, not by id magnitude: ids
	// and timestamps can disagree when writes race.
	if afterID != nil {
		if cursor, ok := s.db.messages[*afterID]; ok {
			filtered := history[:0:0]
			for _, m := range history {
				if m.CreatedAt.After(cursor.CreatedAt) {
					filtered = append(filtered, m)
				}
			}
			history = filtered
		}
	}

	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}

	out := make([]models.Message, 0, len(history))
	for _, m := range history {
		out = append(out, s.db.resolve(m))
	}
	return out, nil
}

func (s *MessageStore) FetchAll(ctx context.Context, channelID int64) ([]models.Message, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	history := s.db.channelMessages(channelID)
	out := make([]models.Message, 0, len(history))
	for _, m := range history {
		out = append(out, s.db.resolve(m))
	}
	return out, nil
}

func (s *MessageStore) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	m, ok := s.db.messages[id]
	if !ok {
		return nil, nil
	}
	out := s.db.resolve(m)
	return &out, nil
}

func (s *MessageStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.db.prune(cutoff), nil
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
