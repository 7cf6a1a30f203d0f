package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lalith-99/murmur/internal/models"
	"github.com/lalith-99/murmur/internal/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db, now: time.Now}
}

// WithClock replaces the clock used for sent_at stamps and returns s.
func (s *MessageStore) WithClock(now func() time.Time) *MessageStore {
	s.now = now
	return s
}

// prune detaches replies to expiring rows, drops their mentions, then
// deletes them. Runs on the caller's transaction.
func prune(tx *gorm.DB, cutoff time.Time) (int64, error) {
	expiring := tx.Model(&messageRow{}).Select("id").Where("sent_at < ?", cutoff.UnixNano())

	err := tx.Model(&messageRow{}).
		Where("parent_id IN (?)", expiring).
		Update("parent_id", nil).Error
	if err != nil {
		return 0, fmt.Errorf("detach replies: %w", err)
	}
	if err := tx.Where("message_id IN (?)", expiring).Delete(&mentionRow{}).Error; err != nil {
		return 0, fmt.Errorf("delete mentions: %w", err)
	}
	res := tx.Where("sent_at < ?", cutoff.UnixNano()).Delete(&messageRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete messages: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *MessageStore) Insert(ctx context.Context, in models.NewMessage, retain time.Duration) (*models.Message, int64, error) {
	content, err := repository.NormalizeContent(in.Content)
	if err != nil {
		return nil, 0, err
	}

	var (
		out    *models.Message
		pruned int64
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ch channelRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ch, in.ChannelID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrChannelNotFound
			}
			return fmt.Errorf("lock channel: %w", err)
		}

		now := s.now().UTC()
		if retain > 0 {
			n, err := prune(tx, now.Add(-retain))
			if err != nil {
				return err
			}
			pruned = n
		}

		if in.ParentID != nil {
			var count int64
			err := tx.Model(&messageRow{}).
				Where("id = ? AND channel_id = ?", *in.ParentID, in.ChannelID).
				Count(&count).Error
			if err != nil {
				return fmt.Errorf("check parent: %w", err)
			}
			if count == 0 {
				return repository.ErrParentNotFound
			}
		}

		var latest sql.NullInt64
		err = tx.Model(&messageRow{}).
			Select("MAX(sent_at)").
			Where("channel_id = ?", in.ChannelID).
			Row().Scan(&latest)
		if err != nil {
			return fmt.Errorf("latest timestamp: %w", err)
		}
		sentAt := now.UnixNano()
		if latest.Valid && latest.Int64 > sentAt {
			sentAt = latest.Int64
		}

		row := messageRow{
			ChannelID:  in.ChannelID,
			AuthorID:   in.AuthorID.String(),
			ParentID:   in.ParentID,
			Content:    content,
			SentAt:     sentAt,
			HasMention: len(in.MentionIDs) > 0,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert message: %w", err)
		}

		for _, userID := range in.MentionIDs {
			mention := mentionRow{MessageID: row.ID, UserID: userID.String()}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&mention).Error; err != nil {
				return fmt.Errorf("insert mention: %w", err)
			}
		}

		msg, err := getMessage(tx, row.ID)
		if err != nil {
			return err
		}
		if msg == nil {
			return fmt.Errorf("insert message: row %d vanished", row.ID)
		}
		msg.MentionIDs = in.MentionIDs
		out = msg
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, pruned, nil
}

func getMessage(db *gorm.DB, id int64) (*models.Message, error) {
	var views []messageView
	if err := db.Raw(selectMessages+` WHERE m.id = ?`, id).Scan(&views).Error; err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if len(views) == 0 {
		return nil, nil
	}
	msg := views[0].toModel()
	return &msg, nil
}

func toModels(views []messageView) []models.Message {
	messages := make([]models.Message, 0, len(views))
	for _, v := range views {
		messages = append(messages, v.toModel())
	}
	return messages
}

// FetchSince compares against the cursor row's sent_at. An unknown cursor
// means no lower bound.
func (s *MessageStore) FetchSince(ctx context.Context, channelID int64, afterID *int64, limit int) ([]models.Message, error) {
	db := s.db.WithContext(ctx)

	var after *int64
	if afterID != nil {
		var cursor messageRow
		err := db.Select("sent_at").First(&cursor, *afterID).Error
		switch {
		case err == nil:
			after = &cursor.SentAt
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return nil, fmt.Errorf("resolve cursor: %w", err)
		}
	}

	query := selectMessages + ` WHERE m.channel_id = ?`
	args := []any{channelID}
	if after != nil {
		query += ` AND m.sent_at > ?`
		args = append(args, *after)
	}
	query += ` ORDER BY m.sent_at ASC, m.id ASC LIMIT ?`
	args = append(args, limit)

	var views []messageView
	if err := db.Raw(query, args...).Scan(&views).Error; err != nil {
		return nil, fmt.Errorf("fetch messages since: %w", err)
	}
	return toModels(views), nil
}

func (s *MessageStore) FetchAll(ctx context.Context, channelID int64) ([]models.Message, error) {
	var views []messageView
	err := s.db.WithContext(ctx).
		Raw(selectMessages+` WHERE m.channel_id = ? ORDER BY m.sent_at ASC, m.id ASC`, channelID).
		Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	return toModels(views), nil
}

func (s *MessageStore) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	return getMessage(s.db.WithContext(ctx), id)
}

func (s *MessageStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var pruned int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := prune(tx, cutoff)
		pruned = n
		return err
	})
	return pruned, err
}
