// Package feed turns stored messages into what a polling client sees: the
// full grouped history of a channel, or the raw messages after a cursor.
// It is also the write path for new messages.
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/murmur/internal/censor"
	"github.com/lalith-99/murmur/internal/models"
	"github.com/lalith-99/murmur/internal/observ"
	"github.com/lalith-99/murmur/internal/repository"
	"github.com/lalith-99/murmur/internal/retention"
	"go.uber.org/zap"
)

// ErrForbidden means the viewer is not a member of a private channel.
var ErrForbidden = errors.New("not a member of this channel")

type Service struct {
	channels repository.ChannelRepository
	members  repository.MembershipRepository
	messages repository.MessageRepository
	users    repository.UserRepository
	sweeper  *retention.Sweeper
	metrics  *observ.Metrics
	logger   *zap.Logger
}

func NewService(store *repository.Store, sweeper *retention.Sweeper, metrics *observ.Metrics, logger *zap.Logger) *Service {
	return &Service{
		channels: store.Channels,
		members:  store.Memberships,
		messages: store.Messages,
		users:    store.Users,
		sweeper:  sweeper,
		metrics:  metrics,
		logger:   logger,
	}
}

type PostInput struct {
	ChannelID int64
	Content   string
	ParentID  *int64
}

// Item is one message as a client receives it.
type Item struct {
	ID              int64     `json:"id"`
	Content         string    `json:"content"`
	Timestamp       time.Time `json:"timestamp"`
	Username        string    `json:"username"`
	ChannelID       int64     `json:"channel_id"`
	IsUser          bool      `json:"isUser"`
	ParentMessageID *int64    `json:"parent_message_id"`
	ParentUsername  *string   `json:"parent_username"`
	ParentContent   *string   `json:"parent_content"`
}

// Feed is the grouped history of a channel. LastMessageID is the newest
// raw message id, which clients send back as their polling cursor; nil
// when the channel is empty.
type Feed struct {
	Messages      []models.DisplayMessage `json:"messages"`
	LastMessageID *int64                  `json:"last_message_id"`
}

func newItem(m models.Message, viewerID uuid.UUID) Item {
	it := Item{
		ID:        m.ID,
		Content:   censor.Filter(m.Content),
		Timestamp: m.CreatedAt.UTC(),
		Username:  m.Username,
		ChannelID: m.ChannelID,
		IsUser:    m.AuthorID == viewerID,
	}
	if m.Parent != nil {
		id := m.Parent.ID
		username := m.Parent.Username
		content := censor.Filter(m.Parent.Content)
		it.ParentMessageID = &id
		it.ParentUsername = &username
		it.ParentContent = &content
	}
	return it
}

// authorize loads the channel and checks membership when it is private.
func (s *Service) authorize(ctx context.Context, channelID int64, viewerID uuid.UUID) (*models.Channel, error) {
	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("load channel: %w", err)
	}
	if ch == nil {
		return nil, repository.ErrChannelNotFound
	}
	if !ch.IsPrivate {
		return ch, nil
	}
	ok, err := s.members.IsMember(ctx, channelID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return nil, ErrForbidden
	}
	return ch, nil
}

// Post filters and stores a message authored by viewerID. The insert also
// prunes everything older than the retention window.
func (s *Service) Post(ctx context.Context, viewerID uuid.UUID, in PostInput) (*Item, error) {
	content, err := repository.CheckContent(in.Content)
	if err != nil {
		return nil, err
	}
	content = censor.Filter(content)

	if _, err := s.authorize(ctx, in.ChannelID, viewerID); err != nil {
		return nil, err
	}

	mentions, err := s.resolveMentions(ctx, content)
	if err != nil {
		return nil, err
	}

	msg, pruned, err := s.messages.Insert(ctx, models.NewMessage{
		AuthorID:   viewerID,
		ChannelID:  in.ChannelID,
		Content:    content,
		ParentID:   in.ParentID,
		MentionIDs: mentions,
	}, s.sweeper.Window())
	if err != nil {
		return nil, fmt.Errorf("post message: %w", err)
	}
	s.sweeper.Recorded(pruned)
	s.metrics.Posted()

	s.logger.Debug("message posted",
		zap.Int64("message_id", msg.ID),
		zap.Int64("channel_id", msg.ChannelID),
		zap.Int("mentions", len(mentions)),
	)

	it := newItem(*msg, viewerID)
	return &it, nil
}

// FullFeed returns the channel's whole retained history, grouped.
func (s *Service) FullFeed(ctx context.Context, channelID int64, viewerID uuid.UUID) (*Feed, error) {
	if _, err := s.authorize(ctx, channelID, viewerID); err != nil {
		return nil, err
	}

	messages, err := s.messages.FetchAll(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("full feed: %w", err)
	}
	s.metrics.FeedRead("full")

	feed := &Feed{}
	if n := len(messages); n > 0 {
		last := messages[n-1].ID
		feed.LastMessageID = &last
	}
	for i := range messages {
		messages[i].Content = censor.Filter(messages[i].Content)
	}
	feed.Messages = Group(messages, viewerID)
	return feed, nil
}

// Recent returns up to repository.FeedPageSize messages created strictly
// after the message afterID names. An unknown afterID returns the oldest
// page.
func (s *Service) Recent(ctx context.Context, channelID int64, viewerID uuid.UUID, afterID *int64) ([]Item, error) {
	if _, err := s.authorize(ctx, channelID, viewerID); err != nil {
		return nil, err
	}

	messages, err := s.messages.FetchSince(ctx, channelID, afterID, repository.FeedPageSize)
	if err != nil {
		return nil, fmt.Errorf("recent feed: %w", err)
	}
	s.metrics.FeedRead("recent")

	items := make([]Item, 0, len(messages))
	for _, m := range messages {
		items = append(items, newItem(m, viewerID))
	}
	return items, nil
}
