package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/domain"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
	closed bool
}

func newFakeAsyncProducer(buffer int) *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, buffer),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error {
	f.closed = true
	return nil
}

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T, async *fakeAsyncProducer) *EventPublisher {
	t.Helper()

	producer := newProducer(async, "lms", zaptest.NewLogger(t))
	t.Cleanup(func() { _ = producer.Close() })

	return NewEventPublisher(producer, config.AppSettings{Name: "carbon-lms", Env: "test"})
}

func receiveEnvelope(t *testing.T, async *fakeAsyncProducer) (*sarama.ProducerMessage, map[string]any) {
	t.Helper()

	select {
	case msg := <-async.input:
		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}
		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}
		return msg, envelope
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
	return nil, nil
}

func TestPublishLoginSucceeded(t *testing.T) {
	async := newFakeAsyncProducer(1)
	publisher := newTestPublisher(t, async)

	loggedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := domain.LoginSucceededEvent{
		EventID:   "event-1",
		AccountID: "user-1",
		Username:  "alice",
		LoggedAt:  loggedAt,
		ExpiresAt: loggedAt.Add(24 * time.Hour),
	}

	if err := publisher.PublishLoginSucceeded(context.Background(), event); err != nil {
		t.Fatalf("PublishLoginSucceeded returned error: %v", err)
	}

	msg, envelope := receiveEnvelope(t, async)
	if msg.Topic != "lms.auth.login.succeeded" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}
	key, err := msg.Key.Encode()
	if err != nil || string(key) != "user-1" {
		t.Fatalf("unexpected message key %q (%v)", key, err)
	}
	if envelope["event_id"] != "event-1" || envelope["event_type"] != EventLoginSucceeded {
		t.Fatalf("unexpected envelope header: %v", envelope)
	}
	if envelope["timestamp"] != loggedAt.Format(time.RFC3339Nano) {
		t.Fatalf("unexpected timestamp: %v", envelope["timestamp"])
	}

	payload, ok := envelope["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload not a map: %T", envelope["payload"])
	}
	if payload["username"] != "alice" || payload["account_id"] != "user-1" {
		t.Fatalf("unexpected payload: %v", payload)
	}

	metadata, ok := envelope["metadata"].(map[string]any)
	if !ok {
		t.Fatalf("metadata not a map: %T", envelope["metadata"])
	}
	if metadata["service"] != "carbon-lms" || metadata["environment"] != "test" {
		t.Fatalf("unexpected metadata: %v", metadata)
	}
}

func TestPublishAccountLocked(t *testing.T) {
	async := newFakeAsyncProducer(1)
	publisher := newTestPublisher(t, async)

	lockedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := domain.AccountLockedEvent{
		AccountID:      "user-1",
		Username:       "alice",
		FailedAttempts: 5,
		LockedAt:       lockedAt,
		LockedUntil:    lockedAt.Add(30 * time.Minute),
	}

	if err := publisher.PublishAccountLocked(context.Background(), event); err != nil {
		t.Fatalf("PublishAccountLocked returned error: %v", err)
	}

	msg, envelope := receiveEnvelope(t, async)
	if msg.Topic != "lms.auth.account.locked" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}
	if id, _ := envelope["event_id"].(string); id == "" {
		t.Fatal("expected generated event id")
	}
	payload := envelope["payload"].(map[string]any)
	if payload["failed_attempts"].(float64) != 5 {
		t.Fatalf("unexpected failed_attempts: %v", payload["failed_attempts"])
	}
	if payload["locked_until"] != lockedAt.Add(30*time.Minute).Format(time.RFC3339Nano) {
		t.Fatalf("unexpected locked_until: %v", payload["locked_until"])
	}
}

func TestPublishSessionsRevoked(t *testing.T) {
	async := newFakeAsyncProducer(1)
	publisher := newTestPublisher(t, async)

	event := domain.SessionsRevokedEvent{
		EventID:   "event-3",
		AccountID: "user-1",
		Count:     2,
		Reason:    "account_deactivated",
		RevokedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	if err := publisher.PublishSessionsRevoked(context.Background(), event); err != nil {
		t.Fatalf("PublishSessionsRevoked returned error: %v", err)
	}

	msg, envelope := receiveEnvelope(t, async)
	if msg.Topic != "lms.auth.sessions.revoked" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}
	payload := envelope["payload"].(map[string]any)
	if payload["reason"] != "account_deactivated" || payload["count"].(float64) != 2 {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestPublishHonoursContextCancellation(t *testing.T) {
	async := newFakeAsyncProducer(0)
	publisher := newTestPublisher(t, async)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.PublishLoginSucceeded(ctx, domain.LoginSucceededEvent{AccountID: "user-1"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestProducerTopicNameAndClose(t *testing.T) {
	async := newFakeAsyncProducer(1)
	producer := newProducer(async, "lms", zaptest.NewLogger(t))

	if got := producer.TopicName("auth.login.succeeded"); got != "lms.auth.login.succeeded" {
		t.Fatalf("unexpected topic: %s", got)
	}
	if got := producer.TopicName("lms.auth.login.succeeded"); got != "lms.auth.login.succeeded" {
		t.Fatalf("prefix applied twice: %s", got)
	}

	if err := producer.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := producer.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
	if !async.closed {
		t.Fatal("expected underlying producer to be closed")
	}

	bare := newProducer(newFakeAsyncProducer(0), "", nil)
	defer bare.Close()
	if got := bare.TopicName("auth.login.succeeded"); got != "auth.login.succeeded" {
		t.Fatalf("unexpected topic without prefix: %s", got)
	}
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(config.KafkaSettings{}, zaptest.NewLogger(t)); !errors.Is(err, ErrNoBrokers) {
		t.Fatalf("expected ErrNoBrokers, got %v", err)
	}
}
