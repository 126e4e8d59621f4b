package execution

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWebhookHookPostsSessionID(t *testing.T) {
	var got map[string]uint64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	hook := NewWebhookHook(server.URL, time.Second, nil)
	if err := hook.Execute(context.Background(), 42); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if got["session_id"] != 42 {
		t.Fatalf("expected session_id 42, got %+v", got)
	}
}

func TestWebhookHookFailsOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	hook := NewWebhookHook(server.URL, time.Second, nil)
	if err := hook.Execute(context.Background(), 1); err == nil {
		t.Fatalf("expected error for 502 answer")
	}
}
