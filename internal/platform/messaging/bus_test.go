package messaging

import (
	"context"
	"testing"
	"time"

	"sealedgov/internal/shared/events"
)

func TestBusDeliversToTopicSubscribers(t *testing.T) {
	bus := NewBus(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan events.Envelope, 1)
	err := bus.Subscribe(ctx, "governance.vote.revealed", "test-cg", func(_ context.Context, event events.Envelope) error {
		received <- event
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := bus.Publish(ctx, "governance.vote.committed", events.Envelope{EventID: "other"}); err != nil {
		t.Fatalf("publish other topic: %v", err)
	}
	if err := bus.Publish(ctx, "governance.vote.revealed", events.Envelope{EventID: "evt-1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case event := <-received:
		if event.EventID != "evt-1" {
			t.Fatalf("expected evt-1, got %s", event.EventID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("event was not delivered")
	}
}
