package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"sealedgov/contexts/governance/voting-engine/adapters/execution"
	"sealedgov/contexts/governance/voting-engine/adapters/memory"
	"sealedgov/contexts/governance/voting-engine/application/commands"
	"sealedgov/contexts/governance/voting-engine/ports"
	"sealedgov/internal/shared/events"
)

type recordingPublisher struct {
	topics []string
	ids    []string
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event events.Envelope) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.ids = append(p.ids, event.EventID)
	return nil
}

func seedOutbox(t *testing.T, store *memory.Store, ids ...string) {
	t.Helper()
	err := store.Atomic(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		for _, id := range ids {
			if err := tx.AppendOutbox(ctx, events.Envelope{
				EventID:   id,
				EventType: commands.EventVoteCommitted,
				Payload:   json.RawMessage(`{"session_id":1}`),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed outbox: %v", err)
	}
}

func TestOutboxRelayPublishesInOrderOnce(t *testing.T) {
	store := memory.NewStore()
	seedOutbox(t, store, "evt-1", "evt-2", "evt-3")
	publisher := &recordingPublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store, BatchSize: 2}

	n, err := relay.RunOnce(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("expected first batch of 2, got %d err=%v", n, err)
	}
	n, err = relay.RunOnce(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("expected second batch of 1, got %d err=%v", n, err)
	}
	n, err = relay.RunOnce(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("expected drained outbox, got %d err=%v", n, err)
	}
	if len(publisher.ids) != 3 || publisher.ids[0] != "evt-1" || publisher.ids[2] != "evt-3" {
		t.Fatalf("unexpected publish order %v", publisher.ids)
	}
	if publisher.topics[0] != commands.EventVoteCommitted {
		t.Fatalf("expected topic from envelope, got %q", publisher.topics[0])
	}
}

func TestOutboxRelayKeepsRowsPendingOnPublishFailure(t *testing.T) {
	store := memory.NewStore()
	seedOutbox(t, store, "evt-1")
	publisher := &recordingPublisher{err: errors.New("bus down")}
	relay := OutboxRelay{Outbox: store, Publisher: publisher}

	if n, err := relay.RunOnce(context.Background()); err == nil || n != 0 {
		t.Fatalf("expected failure with nothing published, got %d err=%v", n, err)
	}
	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected row to stay pending, got %d err=%v", len(pending), err)
	}

	publisher.err = nil
	if n, err := relay.RunOnce(context.Background()); err != nil || n != 1 {
		t.Fatalf("expected retry to publish, got %d err=%v", n, err)
	}
}

func executionEvent(id string, sessionID uint64) events.Envelope {
	payload, _ := json.Marshal(map[string]any{
		"session_id":       sessionID,
		"execution_target": "treasury",
		"execution_count":  1,
	})
	return events.Envelope{
		EventID:   id,
		EventType: commands.EventSessionExecutionRequested,
		Payload:   payload,
	}
}

func TestExecutionConsumerDropsRedeliveries(t *testing.T) {
	hook := &execution.Recorder{}
	consumer := NewExecutionConsumer(nil, hook, "", nil)

	for i := 0; i < 2; i++ {
		if err := consumer.Handle(context.Background(), executionEvent("evt-9", 4)); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}
	calls := hook.Calls()
	if len(calls) != 1 || calls[0] != 4 {
		t.Fatalf("expected a single execution for session 4, got %v", calls)
	}
}

func TestExecutionConsumerRetriesFailedHook(t *testing.T) {
	hook := &execution.Recorder{Err: errors.New("target unavailable")}
	consumer := NewExecutionConsumer(nil, hook, "", nil)

	if err := consumer.Handle(context.Background(), executionEvent("evt-1", 2)); err == nil {
		t.Fatalf("expected hook failure to surface")
	}
	hook.Err = nil
	if err := consumer.Handle(context.Background(), executionEvent("evt-1", 2)); err != nil {
		t.Fatalf("redelivery after failure: %v", err)
	}
	if len(hook.Calls()) != 2 {
		t.Fatalf("expected failed delivery to be retried, got %v", hook.Calls())
	}
}

func TestExecutionConsumerWithoutSubscriberIsDisabled(t *testing.T) {
	consumer := NewExecutionConsumer(nil, &execution.Recorder{}, "", nil)
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("expected disabled consumer to start cleanly, got %v", err)
	}
}

func TestOutboxRelayLogsCanonicalKeys(t *testing.T) {
	var buf bytes.Buffer
	store := memory.NewStore()
	seedOutbox(t, store, "evt-1")
	relay := OutboxRelay{
		Outbox:    store,
		Publisher: &recordingPublisher{},
		Clock:     store,
		Logger:    slog.New(slog.NewJSONHandler(&buf, nil)),
	}

	if _, err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	for _, want := range []string{
		`"event":"governance_outbox_relay_completed"`,
		`"module":"governance/voting-engine"`,
		`"layer":"worker"`,
		`"published_count":1`,
	} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("expected %s in log output, got %s", want, buf.String())
		}
	}
}
