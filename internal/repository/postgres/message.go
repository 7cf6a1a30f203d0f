package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/murmur/internal/models"
	"github.com/lalith-99/murmur/internal/repository"
)

// querier is the part of pgxpool.Pool and pgx.Tx the read helpers need, so
// Insert can read its own row back inside the transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type MessageStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool, now: time.Now}
}

// WithClock replaces the clock used for created_at stamps and returns s.
func (s *MessageStore) WithClock(now func() time.Time) *MessageStore {
	s.now = now
	return s
}

// selectMessages joins the author handle and the parent snapshot. The
// parent is a LEFT JOIN: a reply whose parent was pruned reads back with
// NULL parent columns instead of failing.
const selectMessages = `
	SELECT m.id, m.channel_id, m.author_id, u.username, m.content, m.created_at,
	       m.parent_id, m.has_mention, p.id, pu.username, p.content
	FROM messages m
	JOIN users u ON u.id = m.author_id
	LEFT JOIN messages p ON p.id = m.parent_id
	LEFT JOIN users pu ON pu.id = p.author_id`

func scanMessage(row pgx.Row) (models.Message, error) {
	var (
		msg            models.Message
		parentID       *int64
		parentUsername *string
		parentContent  *string
	)
	err := row.Scan(
		&msg.ID,
		&msg.ChannelID,
		&msg.AuthorID,
		&msg.Username,
		&msg.Content,
		&msg.CreatedAt,
		&msg.ParentID,
		&msg.HasMention,
		&parentID,
		&parentUsername,
		&parentContent,
	)
	if err != nil {
		return models.Message{}, err
	}
	msg.CreatedAt = msg.CreatedAt.UTC()
	if parentID != nil {
		msg.Parent = &models.ParentSnapshot{ID: *parentID}
		if parentUsername != nil {
			msg.Parent.Username = *parentUsername
		}
		if parentContent != nil {
			msg.Parent.Content = *parentContent
		}
	}
	return msg, nil
}

func collectMessages(rows pgx.Rows) ([]models.Message, error) {
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

func getMessage(ctx context.Context, q querier, id int64) (*models.Message, error) {
	msg, err := scanMessage(q.QueryRow(ctx, selectMessages+` WHERE m.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return &msg, nil
}

// Insert runs lock channel -> prune -> check parent -> stamp -> insert in
// one transaction. Any error rolls the prune back with the insert.
func (s *MessageStore) Insert(ctx context.Context, in models.NewMessage, retain time.Duration) (*models.Message, int64, error) {
	content, err := repository.NormalizeContent(in.Content)
	if err != nil {
		return nil, 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("begin insert: %w", err)
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback(ctx)

	// FOR UPDATE on the channel row: one writer per channel at a time, so
	// created_at stays non-decreasing within the channel.
	var channelID int64
	err = tx.QueryRow(ctx, `SELECT id FROM channels WHERE id = $1 FOR UPDATE`, in.ChannelID).Scan(&channelID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, repository.ErrChannelNotFound
		}
		return nil, 0, fmt.Errorf("lock channel: %w", err)
	}

	now := s.now().UTC()

	var pruned int64
	if retain > 0 {
		// parent_id ON DELETE SET NULL detaches replies.
		tag, err := tx.Exec(ctx, `DELETE FROM messages WHERE created_at < $1`, now.Add(-retain))
		if err != nil {
			return nil, 0, fmt.Errorf("prune messages: %w", err)
		}
		pruned = tag.RowsAffected()
	}

	if in.ParentID != nil {
		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM messages WHERE id = $1 AND channel_id = $2)`,
			*in.ParentID, in.ChannelID,
		).Scan(&exists)
		if err != nil {
			return nil, 0, fmt.Errorf("check parent: %w", err)
		}
		if !exists {
			return nil, 0, repository.ErrParentNotFound
		}
	}

	var latest *time.Time
	err = tx.QueryRow(ctx, `SELECT max(created_at) FROM messages WHERE channel_id = $1`, in.ChannelID).Scan(&latest)
	if err != nil {
		return nil, 0, fmt.Errorf("latest timestamp: %w", err)
	}
	createdAt := now
	if latest != nil && latest.After(createdAt) {
		createdAt = latest.UTC()
	}

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (channel_id, author_id, parent_id, content, created_at, has_mention)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		in.ChannelID, in.AuthorID, in.ParentID, content, createdAt, len(in.MentionIDs) > 0,
	).Scan(&id)
	if err != nil {
		return nil, 0, fmt.Errorf("insert message: %w", err)
	}

	for _, userID := range in.MentionIDs {
		_, err := tx.Exec(ctx, `
			INSERT INTO message_mentions (message_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, id, userID)
		if err != nil {
			return nil, 0, fmt.Errorf("insert mention: %w", err)
		}
	}

	msg, err := getMessage(ctx, tx, id)
	if err != nil {
		return nil, 0, err
	}
	if msg == nil {
		return nil, 0, fmt.Errorf("insert message: row %d vanished", id)
	}
	msg.MentionIDs = in.MentionIDs

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("commit insert: %w", err)
	}
	return msg, pruned, nil
}

// FetchSince compares against the cursor row's created_at, never against
// id magnitude. A cursor that does not resolve falls back to -infinity,
// which is the unfiltered query.
func (s *MessageStore) FetchSince(ctx context.Context, channelID int64, afterID *int64, limit int) ([]models.Message, error) {
	var rows pgx.Rows
	var err error
	if afterID != nil {
		rows, err = s.pool.Query(ctx, selectMessages+`
			WHERE m.channel_id = $1
			  AND m.created_at > COALESCE(
			      (SELECT c.created_at FROM messages c WHERE c.id = $2),
			      '-infinity'::timestamptz)
			ORDER BY m.created_at ASC, m.id ASC
			LIMIT $3`, channelID, *afterID, limit)
	} else {
		rows, err = s.pool.Query(ctx, selectMessages+`
			WHERE m.channel_id = $1
			ORDER BY m.created_at ASC, m.id ASC
			LIMIT $2`, channelID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch messages since: %w", err)
	}
	return collectMessages(rows)
}

func (s *MessageStore) FetchAll(ctx context.Context, channelID int64) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, selectMessages+`
		WHERE m.channel_id = $1
		ORDER BY m.created_at ASC, m.id ASC`, channelID)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	return collectMessages(rows)
}

func (s *MessageStore) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	return getMessage(ctx, s.pool, id)
}

func (s *MessageStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune messages: %w", err)
	}
	return tag.RowsAffected(), nil
}
