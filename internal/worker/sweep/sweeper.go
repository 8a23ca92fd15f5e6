// Package sweep periodically removes expired sessions from the durable store and the cache.
package sweep

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is used when a non-positive interval is configured.
const DefaultInterval = time.Hour

// ExpiredSessionSweeper removes expired sessions and reports how many were deleted.
type ExpiredSessionSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Sweeper runs ExpiredSessionSweeper on a fixed interval until its context is cancelled.
type Sweeper struct {
	sessions ExpiredSessionSweeper
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper constructs a Sweeper.
func NewSweeper(sessions ExpiredSessionSweeper, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{sessions: sessions, interval: interval, logger: logger}
}

// Start sweeps once immediately and then on every tick. It blocks until ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("session sweeper started", zap.Duration("interval", s.interval))

	s.runAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.runAndLog(ctx)
		}
	}
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	swept, err := s.sessions.SweepExpired(ctx)
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		s.logger.Info("expired sessions swept",
			zap.Int("count", swept),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return swept, nil
}

func (s *Sweeper) runAndLog(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("sweep expired sessions failed", zap.Error(err))
	}
}
