package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/murmur/internal/models"
	"github.com/lalith-99/murmur/internal/repository"
)

type ChannelStore struct {
	pool *pgxpool.Pool
}

func NewChannelStore(pool *pgxpool.Pool) *ChannelStore {
	return &ChannelStore{pool: pool}
}

func (s *ChannelStore) Create(ctx context.Context, creatorID uuid.UUID, name string, isPrivate bool) (*models.Channel, error) {
	query := `
		INSERT INTO channels (name, is_private, creator_id, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, name, is_private, creator_id, created_at`

	var ch models.Channel
	err := s.pool.QueryRow(ctx, query, name, isPrivate, creatorID).Scan(
		&ch.ID,
		&ch.Name,
		&ch.IsPrivate,
		&ch.CreatorID,
		&ch.CreatedAt,
	)
	if err != nil {
		if _, ok := violation(err, uniqueViolation); ok {
			return nil, repository.ErrChannelExists
		}
		return nil, fmt.Errorf("insert channel: %w", err)
	}
	return &ch, nil
}

func (s *ChannelStore) GetByID(ctx context.Context, channelID int64) (*models.Channel, error) {
	query := `
		SELECT id, name, is_private, creator_id, created_at
		FROM channels
		WHERE id = $1`

	var ch models.Channel
	err := s.pool.QueryRow(ctx, query, channelID).Scan(
		&ch.ID,
		&ch.Name,
		&ch.IsPrivate,
		&ch.CreatorID,
		&ch.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return &ch, nil
}

func (s *ChannelStore) ListVisible(ctx context.Context, userID uuid.UUID) ([]models.Channel, error) {
	query := `
		SELECT c.id, c.name, c.is_private, c.creator_id, c.created_at
		FROM channels c
		WHERE NOT c.is_private
		   OR EXISTS (
		       SELECT 1 FROM channel_members cm
		       WHERE cm.channel_id = c.id AND cm.user_id = $1
		   )
		ORDER BY c.id ASC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	channels := make([]models.Channel, 0)
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(
			&ch.ID,
			&ch.Name,
			&ch.IsPrivate,
			&ch.CreatorID,
			&ch.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}

	return channels, nil
}
