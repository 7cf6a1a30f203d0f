package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
)

func setupRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("new redis store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func exercise(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	userID := uuid.New()

	sess, err := store.Create(ctx, userID, "alice", time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected a session id")
	}

	got, err := store.Lookup(ctx, sess.ID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.UserID != userID || got.Username != "alice" {
		t.Errorf("unexpected session %+v", got)
	}

	other, err := store.Create(ctx, userID, "alice", time.Hour)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if other.ID == sess.ID {
		t.Error("expected every login to get a fresh session id")
	}

	if err := store.Revoke(ctx, sess.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := store.Lookup(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after revoke, got %v", err)
	}
	if _, err := store.Lookup(ctx, other.ID); err != nil {
		t.Errorf("expected the other session to survive, got %v", err)
	}
	if err := store.Revoke(ctx, "missing"); err != nil {
		t.Errorf("expected revoking an unknown id to succeed, got %v", err)
	}
	if _, err := store.Create(ctx, userID, "alice", 0); err == nil {
		t.Error("expected a zero ttl to be rejected")
	}
}

func TestRedisStore(t *testing.T) {
	store, _ := setupRedis(t)
	exercise(t, store)
}

func TestMemoryStore(t *testing.T) {
	exercise(t, NewMemoryStore())
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := setupRedis(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, uuid.New(), "alice", time.Minute)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	mr.FastForward(time.Minute + time.Second)

	if _, err := store.Lookup(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after ttl, got %v", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	sess, err := store.Create(ctx, uuid.New(), "alice", time.Minute)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	now = now.Add(time.Minute)

	if _, err := store.Lookup(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound at ttl, got %v", err)
	}
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedisStore(context.Background(), "redis://"+addr); err == nil {
		t.Error("expected an error when redis is down")
	}
}
