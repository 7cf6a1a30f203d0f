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
	"gorm.io/gorm/clause"
)

type MembershipStore struct {
	db *gorm.DB
}

func NewMembershipStore(db *gorm.DB) *MembershipStore {
	return &MembershipStore{db: db}
}

// AddMember is idempotent: joining twice is not an error. The schema has no
// foreign keys, so the channel is checked explicitly.
func (s *MembershipStore) AddMember(ctx context.Context, channelID int64, userID uuid.UUID, role string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ch channelRow
		if err := tx.Select("id").First(&ch, channelID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrChannelNotFound
			}
			return fmt.Errorf("add member: %w", err)
		}

		row := memberRow{
			ChannelID: channelID,
			UserID:    userID.String(),
			Role:      role,
			JoinedAt:  time.Now().UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return fmt.Errorf("add member: %w", err)
		}
		return nil
	})
}

func (s *MembershipStore) RemoveMember(ctx context.Context, channelID int64, userID uuid.UUID) error {
	err := s.db.WithContext(ctx).
		Where("channel_id = ? AND user_id = ?", channelID, userID.String()).
		Delete(&memberRow{}).Error
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

type memberView struct {
	ChannelID int64
	UserID    string
	Username  string
	Role      string
	JoinedAt  time.Time
}

func (s *MembershipStore) ListMembers(ctx context.Context, channelID int64) ([]models.ChannelMember, error) {
	var views []memberView
	err := s.db.WithContext(ctx).Raw(`
		SELECT cm.channel_id, cm.user_id, u.username, cm.role, cm.joined_at
		FROM channel_members cm
		JOIN users u ON u.id = cm.user_id
		WHERE cm.channel_id = ?
		ORDER BY cm.joined_at ASC, u.username ASC`, channelID).
		Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	members := make([]models.ChannelMember, 0, len(views))
	for _, v := range views {
		members = append(members, models.ChannelMember{
			ChannelID: v.ChannelID,
			UserID:    parseID(v.UserID),
			Username:  v.Username,
			Role:      v.Role,
			JoinedAt:  v.JoinedAt.UTC(),
		})
	}
	return members, nil
}

func (s *MembershipStore) IsMember(ctx context.Context, channelID int64, userID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&memberRow{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID.String()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return count > 0, nil
}
