package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	application "sealedgov/contexts/governance/voting-engine/application"
	"sealedgov/contexts/governance/voting-engine/application/commands"
	"sealedgov/contexts/governance/voting-engine/ports"
	"sealedgov/internal/shared/events"

	"github.com/decred/dcrd/container/lru"
)

const (
	defaultExecutionCG   = "voting-engine-execution-cg"
	defaultDedupCapacity = 4096
)

type executionRequested struct {
	SessionID       uint64 `json:"session_id"`
	ExecutionTarget string `json:"execution_target"`
	ExecutionCount  uint64 `json:"execution_count"`
}

// ExecutionConsumer forwards execution_requested events to an out-of-process
// hook. Redelivered events are dropped by event id.
type ExecutionConsumer struct {
	Subscriber    ports.EventSubscriber
	Hook          ports.ExecutionHook
	ConsumerGroup string
	Logger        *slog.Logger

	seen *lru.Map[string, struct{}]
}

func NewExecutionConsumer(
	subscriber ports.EventSubscriber,
	hook ports.ExecutionHook,
	consumerGroup string,
	logger *slog.Logger,
) *ExecutionConsumer {
	return &ExecutionConsumer{
		Subscriber:    subscriber,
		Hook:          hook,
		ConsumerGroup: consumerGroup,
		Logger:        logger,
		seen:          lru.NewMap[string, struct{}](defaultDedupCapacity),
	}
}

func (c *ExecutionConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	if c.Subscriber == nil || c.Hook == nil {
		logger.Info("execution consumer disabled",
			"event", "governance_execution_consumer_disabled",
			"module", "governance/voting-engine",
			"layer", "worker",
		)
		return nil
	}
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultExecutionCG
	}
	if err := c.Subscriber.Subscribe(ctx, commands.EventSessionExecutionRequested, group, c.Handle); err != nil {
		logger.Error("execution consumer subscribe failed",
			"event", "governance_execution_consumer_subscribe_failed",
			"module", "governance/voting-engine",
			"layer", "worker",
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("execution consumer subscription active",
		"event", "governance_execution_consumer_started",
		"module", "governance/voting-engine",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c *ExecutionConsumer) Handle(ctx context.Context, event events.Envelope) error {
	logger := application.ResolveLogger(c.Logger)
	if c.seen != nil && c.seen.Exists(event.EventID) {
		logger.Debug("duplicate execution request skipped",
			"event", "governance_execution_duplicate_skipped",
			"module", "governance/voting-engine",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}
	var payload executionRequested
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("decode execution request %s: %w", event.EventID, err)
	}
	if err := c.Hook.Execute(ctx, payload.SessionID); err != nil {
		logger.Error("execution hook failed",
			"event", "governance_execution_hook_failed",
			"module", "governance/voting-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"session_id", payload.SessionID,
			"error", err.Error(),
		)
		return err
	}
	if c.seen != nil {
		c.seen.Put(event.EventID, struct{}{})
	}
	logger.Info("execution request dispatched",
		"event", "governance_execution_dispatched",
		"module", "governance/voting-engine",
		"layer", "worker",
		"event_id", event.EventID,
		"session_id", payload.SessionID,
		"execution_count", payload.ExecutionCount,
		"execution_target", payload.ExecutionTarget,
	)
	return nil
}
