package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"sealedgov/contexts/governance/voting-engine/adapters/execution"
	"sealedgov/contexts/governance/voting-engine/adapters/memory"
	"sealedgov/contexts/governance/voting-engine/application/workers"
	"sealedgov/contexts/governance/voting-engine/domain/entities"
	"sealedgov/contexts/governance/voting-engine/ports"
	"sealedgov/internal/shared/events"
)

func readSettings(t *testing.T, store *memory.Store) entities.Settings {
	t.Helper()
	var settings entities.Settings
	err := store.View(context.Background(), func(ctx context.Context, r ports.Reader) error {
		var err error
		settings, err = r.GetSettings(ctx)
		return err
	})
	if err != nil {
		t.Fatalf("read settings: %v", err)
	}
	return settings
}

func TestApplyDelegationPolicyPersistsDisabled(t *testing.T) {
	store := memory.NewStore()
	if err := applyDelegationPolicy(context.Background(), store, false); err != nil {
		t.Fatalf("apply policy: %v", err)
	}
	if !readSettings(t, store).DelegationDisabled {
		t.Fatalf("expected delegation disabled")
	}
}

func TestApplyDelegationPolicyEnabledKeepsStoredState(t *testing.T) {
	store := memory.NewStore()
	err := store.Atomic(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		return tx.SaveSettings(ctx, entities.Settings{DelegationDisabled: true, UpdatedHeight: 9})
	})
	if err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	if err := applyDelegationPolicy(context.Background(), store, true); err != nil {
		t.Fatalf("apply policy: %v", err)
	}
	settings := readSettings(t, store)
	if !settings.DelegationDisabled || settings.UpdatedHeight != 9 {
		t.Fatalf("expected stored settings untouched, got %+v", settings)
	}
}

func TestNormalizeAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"}
	for in, want := range cases {
		if got := normalizeAddr(in); got != want {
			t.Fatalf("normalizeAddr(%q) = %q, want %q", in, got, want)
		}
	}
}

type refusingSubscriber struct{}

func (refusingSubscriber) Subscribe(context.Context, string, string, func(context.Context, events.Envelope) error) error {
	return errors.New("broker unavailable")
}

func TestEmbeddedRelayFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	store := memory.NewStore()
	app := &APIApp{
		relay: &relayLoop{
			relay:        workers.OutboxRelay{Outbox: store, Clock: store, Logger: logger},
			execution:    workers.NewExecutionConsumer(refusingSubscriber{}, &execution.Recorder{}, "", logger),
			pollInterval: time.Millisecond,
			logger:       logger,
		},
		runtime: &runtime{},
		logger:  logger,
	}

	app.startRelay(context.Background())
	if err := app.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !strings.Contains(buf.String(), "bootstrap_relay_failed") {
		t.Fatalf("expected relay failure to be logged, got %s", buf.String())
	}
}

func TestCloseWaitsForEmbeddedRelay(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	store := memory.NewStore()
	closed := make(chan struct{})
	app := &APIApp{
		relay: &relayLoop{
			relay:        workers.OutboxRelay{Outbox: store, Clock: store, Logger: logger},
			pollInterval: time.Millisecond,
			logger:       logger,
		},
		runtime: &runtime{closers: []func() error{func() error {
			close(closed)
			return nil
		}}},
		logger: logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.startRelay(ctx)
	time.Sleep(5 * time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- app.Close() }()
	select {
	case <-closed:
		t.Fatalf("runtime closed while relay was still running")
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("close failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("close did not return after relay stopped")
	}
}
