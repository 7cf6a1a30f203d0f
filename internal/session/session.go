// Package session stores login sessions. A JWT names its session by id;
// deleting the session revokes the token before it expires.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound means the session expired or was revoked.
var ErrNotFound = errors.New("session not found or expired")

type Session struct {
	ID        string    `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type Store interface {
	// Create starts a session that lives for ttl and returns it.
	Create(ctx context.Context, userID uuid.UUID, username string, ttl time.Duration) (*Session, error)

	// Lookup returns ErrNotFound for unknown, expired and revoked ids.
	Lookup(ctx context.Context, id string) (*Session, error)

	// Revoke deletes a session. Revoking an unknown id is not an error.
	Revoke(ctx context.Context, id string) error
}

func newSession(userID uuid.UUID, username string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}
}
