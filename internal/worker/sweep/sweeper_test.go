package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubSessions struct {
	mu    sync.Mutex
	calls int
	swept int
	err   error
}

func (s *stubSessions) SweepExpired(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.swept, s.err
}

func (s *stubSessions) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestSweeper_RunOnce(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sessions := &stubSessions{swept: 4}
	sweeper := NewSweeper(sessions, time.Minute, zap.New(core))

	swept, err := sweeper.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if swept != 4 {
		t.Fatalf("expected 4 swept sessions, got %d", swept)
	}

	entries := logs.FilterMessage("expired sessions swept").All()
	if len(entries) != 1 {
		t.Fatalf("expected one sweep log entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["count"]; got != int64(4) {
		t.Fatalf("expected count field 4, got %v", got)
	}
}

func TestSweeper_RunOnceReturnsError(t *testing.T) {
	sessions := &stubSessions{err: errors.New("db down")}
	sweeper := NewSweeper(sessions, 0, nil)

	if _, err := sweeper.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error from failing sweep")
	}
	if sweeper.interval != DefaultInterval {
		t.Fatalf("expected default interval, got %v", sweeper.interval)
	}
}

func TestSweeper_StartStopsOnCancel(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sessions := &stubSessions{}
	sweeper := NewSweeper(sessions, 10*time.Millisecond, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sessions.callCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected repeated sweeps, got %d", sessions.callCount())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}

	if logs.FilterMessage("session sweeper stopped").Len() != 1 {
		t.Fatal("expected stop log entry")
	}
}
