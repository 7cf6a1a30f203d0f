package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisLimiter(t *testing.T, limit int, window time.Duration) (*FixedWindow, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	l, err := NewFixedWindow(client, "test:ratelimit", limit, window)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	// Pin the clock mid-window so the slot cannot roll over during the test.
	fixed := time.UnixMilli(window.Milliseconds()*1000 + window.Milliseconds()/2)
	l.now = func() time.Time { return fixed }
	return l, mr
}

func TestFixedWindowBlocksOverQuota(t *testing.T) {
	l, _ := newRedisLimiter(t, 2, time.Second)
	ctx := context.Background()

	if !l.Allow(ctx, "ip-1") {
		t.Fatal("first request should pass")
	}
	if !l.Allow(ctx, "ip-1") {
		t.Fatal("second request should pass")
	}
	if l.Allow(ctx, "ip-1") {
		t.Fatal("third request should be blocked")
	}
	if !l.Allow(ctx, "ip-2") {
		t.Fatal("other keys have their own quota")
	}
}

func TestFixedWindowNextSlotResets(t *testing.T) {
	l, _ := newRedisLimiter(t, 1, time.Minute)
	ctx := context.Background()

	if !l.Allow(ctx, "u") {
		t.Fatal("first request should pass")
	}
	if l.Allow(ctx, "u") {
		t.Fatal("second request in the window should be blocked")
	}

	next := l.now().Add(time.Minute)
	l.now = func() time.Time { return next }
	if !l.Allow(ctx, "u") {
		t.Fatal("expected a fresh quota in the next window")
	}
}

func TestFixedWindowFailsClosed(t *testing.T) {
	l, mr := newRedisLimiter(t, 5, time.Second)
	mr.Close()
	if l.Allow(context.Background(), "ip-1") {
		t.Fatal("limiter should fail closed on redis errors")
	}
}

func TestFixedWindowRejectsBadConfig(t *testing.T) {
	if _, err := NewFixedWindow(nil, "", 1, time.Second); err == nil {
		t.Error("expected an error without a client")
	}
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()
	if _, err := NewFixedWindow(client, "", 0, time.Second); err == nil {
		t.Error("expected an error for a zero limit")
	}
}

func TestLocalTokenBucket(t *testing.T) {
	l := NewLocal(5, time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if !l.Allow(ctx, "1.2.3.4") {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	if l.Allow(ctx, "1.2.3.4") {
		t.Fatal("sixth request should be blocked")
	}
	if !l.Allow(ctx, "5.6.7.8") {
		t.Fatal("other keys have their own bucket")
	}

	now = now.Add(13 * time.Second)
	if !l.Allow(ctx, "1.2.3.4") {
		t.Fatal("one token should refill after window/limit")
	}
	if l.Allow(ctx, "1.2.3.4") {
		t.Fatal("only one token should have refilled")
	}
}

func TestLocalDropsIdleBuckets(t *testing.T) {
	l := NewLocal(1, time.Second)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	l.Allow(ctx, "a")
	now = now.Add(time.Hour)
	l.Allow(ctx, "b")

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries["a"]; ok {
		t.Error("expected idle bucket to be swept")
	}
	if len(l.entries) != 1 {
		t.Errorf("expected one live bucket, got %d", len(l.entries))
	}
}
