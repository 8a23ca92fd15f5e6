package kafka

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/domain"
)

func TestStubPublisherLogsEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	publisher := NewStubPublisher(zap.New(core))
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := publisher.PublishLoginSucceeded(ctx, domain.LoginSucceededEvent{AccountID: "user-1", LoggedAt: now}); err != nil {
		t.Fatalf("PublishLoginSucceeded returned error: %v", err)
	}
	if err := publisher.PublishAccountLocked(ctx, domain.AccountLockedEvent{AccountID: "user-1", LockedAt: now}); err != nil {
		t.Fatalf("PublishAccountLocked returned error: %v", err)
	}
	if err := publisher.PublishSessionsRevoked(ctx, domain.SessionsRevokedEvent{AccountID: "user-1"}); err != nil {
		t.Fatalf("PublishSessionsRevoked returned error: %v", err)
	}

	entries := logs.FilterMessage("stub event published").All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 log entries, got %d", len(entries))
	}
	want := []string{EventLoginSucceeded, EventAccountLocked, EventSessionsRevoked}
	for i, entry := range entries {
		if got := entry.ContextMap()["event_type"]; got != want[i] {
			t.Fatalf("entry %d: expected %s, got %v", i, want[i], got)
		}
	}
}
