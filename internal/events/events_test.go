package events

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestMemoryPublishAndDrain(t *testing.T) {
	pub := NewMemory(4)
	evt := New(AccountRegistered, "johnd", map[string]string{"id": "11"})
	Emit(context.Background(), pub, evt)

	got := pub.Drain()
	if len(got) != 1 {
		t.Fatalf("expected one event, got %d", len(got))
	}
	if got[0].Type != AccountRegistered || got[0].Subject != "johnd" || got[0].ID == "" {
		t.Fatalf("unexpected event: %+v", got[0])
	}
	if got[0].OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be set")
	}
}

func TestMemoryPublishAfterClose(t *testing.T) {
	pub := NewMemory(1)
	if err := pub.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := pub.Publish(context.Background(), New(SessionEnded, "johnd", nil)); !stdErrors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	// Emit 只记录日志，不应 panic。
	Emit(context.Background(), pub, New(SessionEnded, "johnd", nil))
	if err := pub.Close(); err != nil {
		t.Fatalf("close must be idempotent: %v", err)
	}
}

func TestMemoryPublishRespectsContext(t *testing.T) {
	pub := NewMemory(1)
	if err := pub.Publish(context.Background(), New(SessionStarted, "a", nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pub.Publish(ctx, New(SessionStarted, "b", nil)); !stdErrors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled when buffer is full, got %v", err)
	}
}

type recordingChannel struct {
	key  string
	msgs []amqp.Publishing
	err  error
}

func (c *recordingChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.key = key
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *recordingChannel) Close() error { return nil }

func TestRabbitMQPublishEncodesJSON(t *testing.T) {
	ch := &recordingChannel{}
	pub := &RabbitMQ{ch: ch, queue: "storefront.events", persistent: true}

	evt := New(SessionStarted, "johnd", map[string]string{"user_id": "11"})
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.key != "storefront.events" || len(ch.msgs) != 1 {
		t.Fatalf("unexpected publish: key=%s msgs=%d", ch.key, len(ch.msgs))
	}
	msg := ch.msgs[0]
	if msg.ContentType != "application/json" || msg.DeliveryMode != amqp.Persistent || msg.Type != string(SessionStarted) {
		t.Fatalf("unexpected message headers: %+v", msg)
	}
	var decoded Event
	if err := json.Unmarshal(msg.Body, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.ID != evt.ID || decoded.Attributes["user_id"] != "11" {
		t.Fatalf("unexpected body: %+v", decoded)
	}
}

func TestNewRabbitMQRequiresURL(t *testing.T) {
	if _, err := NewRabbitMQ(RabbitMQConfig{}); err == nil {
		t.Fatalf("expected error for empty URL")
	}
}
