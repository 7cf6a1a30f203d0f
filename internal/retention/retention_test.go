package retention

import (
	"context"
	"testing"
	"time"

	"github.com/lalith-99/murmur/internal/models"
	"github.com/lalith-99/murmur/internal/repository/memory"
	"go.uber.org/zap"
)

func TestCutoffFollowsClock(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewSweeper(nil, 0, zap.NewNop(), WithClock(func() time.Time { return now }))

	if s.Window() != DefaultWindow {
		t.Errorf("expected default window %v, got %v", DefaultWindow, s.Window())
	}
	want := now.Add(-2 * time.Hour)
	if !s.Cutoff().Equal(want) {
		t.Errorf("expected cutoff %v, got %v", want, s.Cutoff())
	}

	now = now.Add(time.Minute)
	if !s.Cutoff().Equal(want.Add(time.Minute)) {
		t.Errorf("cutoff did not move with the clock: %v", s.Cutoff())
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	db := memory.New(memory.WithClock(clock))
	store := memory.NewStore(db)
	alice, err := store.Users.Create(ctx, "alice", nil, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	post := func(content string) *models.Message {
		msg, _, err := store.Messages.Insert(ctx, models.NewMessage{
			AuthorID:  alice.ID,
			ChannelID: models.DefaultChannelID,
			Content:   content,
		}, 0)
		if err != nil {
			t.Fatalf("insert %q: %v", content, err)
		}
		return msg
	}

	old := post("old")
	now = now.Add(90 * time.Minute)
	fresh := post("fresh")
	now = now.Add(30*time.Minute + time.Second)

	s := NewSweeper(store.Messages, 2*time.Hour, zap.NewNop(), WithClock(clock))
	n, err := s.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned, got %d", n)
	}

	if got, _ := store.Messages.GetByID(ctx, old.ID); got != nil {
		t.Error("expected old message to be gone")
	}
	if got, _ := store.Messages.GetByID(ctx, fresh.ID); got == nil {
		t.Error("expected fresh message to survive")
	}

	n, err = s.Sweep(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if n != 0 {
		t.Errorf("expected second sweep to be a no-op, got %d", n)
	}
}
