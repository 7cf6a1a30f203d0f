// Package retention owns the message retention window. Every insert prunes
// with Window() inside its own transaction; Sweep runs the same prune on
// demand. Nothing here runs on a timer.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/lalith-99/murmur/internal/observ"
	"github.com/lalith-99/murmur/internal/repository"
	"go.uber.org/zap"
)

// DefaultWindow is how long a message survives when RETENTION_WINDOW is unset.
const DefaultWindow = 2 * time.Hour

type Sweeper struct {
	messages repository.MessageRepository
	window   time.Duration
	now      func() time.Time
	metrics  *observ.Metrics
	logger   *zap.Logger
}

type Option func(*Sweeper)

func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

func WithMetrics(m *observ.Metrics) Option {
	return func(s *Sweeper) { s.metrics = m }
}

// NewSweeper returns a sweeper over messages. A non-positive window means
// DefaultWindow.
func NewSweeper(messages repository.MessageRepository, window time.Duration, logger *zap.Logger, opts ...Option) *Sweeper {
	if window <= 0 {
		window = DefaultWindow
	}
	s := &Sweeper{
		messages: messages,
		window:   window,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sweeper) Window() time.Duration {
	return s.window
}

// Cutoff is the oldest creation time still retained. Messages strictly
// before it are eligible for deletion.
func (s *Sweeper) Cutoff() time.Time {
	return s.now().UTC().Add(-s.window)
}

// Recorded counts rows an insert-time prune removed.
func (s *Sweeper) Recorded(pruned int64) {
	if pruned <= 0 {
		return
	}
	s.metrics.Pruned(pruned)
	s.logger.Debug("pruned expired messages", zap.Int64("count", pruned))
}

// Sweep deletes every message older than Cutoff and returns how many went.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.Cutoff()
	n, err := s.messages.Prune(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}
	s.metrics.Pruned(n)
	s.logger.Info("retention sweep finished",
		zap.Time("cutoff", cutoff),
		zap.Int64("pruned", n),
	)
	return n, nil
}
