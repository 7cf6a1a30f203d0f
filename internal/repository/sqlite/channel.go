package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/murmur/internal/models"
	"github.com/lalith-99/murmur/internal/repository"
	"gorm.io/gorm"
)

type ChannelStore struct {
	db *gorm.DB
}

func NewChannelStore(db *gorm.DB) *ChannelStore {
	return &ChannelStore{db: db}
}

func (s *ChannelStore) Create(ctx context.Context, creatorID uuid.UUID, name string, isPrivate bool) (*models.Channel, error) {
	creator := creatorID.String()
	row := channelRow{
		Name:      name,
		IsPrivate: isPrivate,
		CreatorID: &creator,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, repository.ErrChannelExists
		}
		return nil, fmt.Errorf("insert channel: %w", err)
	}
	ch := channelFromRow(row)
	return &ch, nil
}

func (s *ChannelStore) GetByID(ctx context.Context, channelID int64) (*models.Channel, error) {
	var row channelRow
	err := s.db.WithContext(ctx).First(&row, channelID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get channel: %w", err)
	}
	ch := channelFromRow(row)
	return &ch, nil
}

func (s *ChannelStore) ListVisible(ctx context.Context, userID uuid.UUID) ([]models.Channel, error) {
	memberOf := s.db.Model(&memberRow{}).Select("channel_id").Where("user_id = ?", userID.String())

	var rows []channelRow
	err := s.db.WithContext(ctx).
		Where("is_private = ?", false).
		Or("id IN (?)", memberOf).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	channels := make([]models.Channel, 0, len(rows))
	for _, r := range rows {
		channels = append(channels, channelFromRow(r))
	}
	return channels, nil
}
