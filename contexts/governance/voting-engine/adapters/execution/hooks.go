package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	application "sealedgov/contexts/governance/voting-engine/application"
	"sealedgov/contexts/governance/voting-engine/ports"
)

// LogHook records the execution request and does nothing else.
type LogHook struct {
	Logger *slog.Logger
}

func (h LogHook) Execute(_ context.Context, sessionID uint64) error {
	application.ResolveLogger(h.Logger).Info("session execution requested",
		"event", "governance_execution_logged",
		"module", "governance/voting-engine",
		"layer", "adapter",
		"session_id", sessionID,
	)
	return nil
}

// WebhookHook posts {"session_id": n} to a fixed endpoint. Any non-2xx
// answer is a failure.
type WebhookHook struct {
	Endpoint string
	Client   *http.Client
	Logger   *slog.Logger
}

func NewWebhookHook(endpoint string, timeout time.Duration, logger *slog.Logger) WebhookHook {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return WebhookHook{
		Endpoint: strings.TrimSpace(endpoint),
		Client:   &http.Client{Timeout: timeout},
		Logger:   logger,
	}
}

func (h WebhookHook) Execute(ctx context.Context, sessionID uint64) error {
	body, err := json.Marshal(map[string]uint64{"session_id": sessionID})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build execution request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post execution request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("execution endpoint answered %d", resp.StatusCode)
	}
	application.ResolveLogger(h.Logger).Info("session execution delivered",
		"event", "governance_execution_delivered",
		"module", "governance/voting-engine",
		"layer", "adapter",
		"session_id", sessionID,
		"status_code", resp.StatusCode,
	)
	return nil
}

// Recorder keeps every call in memory. Err, when set, is returned from
// Execute after the call is recorded.
type Recorder struct {
	mu    sync.Mutex
	calls []uint64
	Err   error
}

func (r *Recorder) Execute(_ context.Context, sessionID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, sessionID)
	return r.Err
}

func (r *Recorder) Calls() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.calls...)
}

var (
	_ ports.ExecutionHook = LogHook{}
	_ ports.ExecutionHook = WebhookHook{}
	_ ports.ExecutionHook = (*Recorder)(nil)
)
