package httpserver

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	votingengine "sealedgov/contexts/governance/voting-engine"
	"sealedgov/contexts/governance/voting-engine/domain/commitment"
	"sealedgov/contexts/governance/voting-engine/domain/entities"
)

func newTestServer() (*Server, votingengine.Module) {
	module := votingengine.NewInMemoryModule([]string{"admin"}, nil)
	module.Store.SetHeight(100)
	return New(module, nil, ":0"), module
}

func doJSON(t *testing.T, server *Server, method string, path string, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		payload = raw
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if caller != "" {
		req.Header.Set("X-User-Id", caller)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func createTestSession(t *testing.T, server *Server) uint64 {
	t.Helper()
	rr := doJSON(t, server, http.MethodPost, "/v1/governance/sessions", "admin", map[string]any{
		"title":           "treasury",
		"commit_duration": 10,
		"reveal_duration": 10,
		"mode":            "standard",
		"quorum_required": 1,
		"options": []map[string]any{
			{"option_id": 1, "description": "yes"},
			{"option_id": 2, "description": "no"},
		},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var session struct {
		SessionID uint64 `json:"session_id"`
		CommitEnd uint64 `json:"commit_end"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &session); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if session.CommitEnd != 110 {
		t.Fatalf("expected commit end 110, got %d", session.CommitEnd)
	}
	return session.SessionID
}

func TestGovernanceCreateSessionRequiresCaller(t *testing.T) {
	server, _ := newTestServer()
	rr := doJSON(t, server, http.MethodPost, "/v1/governance/sessions", "", map[string]any{"title": "x"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestGovernanceRejectsMalformedSessionID(t *testing.T) {
	server, _ := newTestServer()
	rr := doJSON(t, server, http.MethodGet, "/v1/governance/sessions/abc", "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestGovernanceUnknownSessionIsNotFound(t *testing.T) {
	server, _ := newTestServer()
	rr := doJSON(t, server, http.MethodGet, "/v1/governance/sessions/42", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestGovernanceMintRequiresAdministrator(t *testing.T) {
	server, _ := newTestServer()
	rr := doJSON(t, server, http.MethodPost, "/v1/governance/ledger/mint", "mallory", map[string]any{
		"recipient": "mallory",
		"amount":    1000,
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestGovernanceCommitRejectsBadDigestHex(t *testing.T) {
	server, _ := newTestServer()
	createTestSession(t, server)
	rr := doJSON(t, server, http.MethodPost, "/v1/governance/sessions/1/commitments", "alice", map[string]any{
		"digest": "zz",
		"weight": 1,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestGovernanceEmergencyBlocksSessionCreation(t *testing.T) {
	server, _ := newTestServer()
	rr := doJSON(t, server, http.MethodPost, "/v1/governance/emergency/activate", "admin", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, server, http.MethodPost, "/v1/governance/sessions", "admin", map[string]any{
		"title":   "blocked",
		"mode":    "standard",
		"options": []map[string]any{{"option_id": 1, "description": "yes"}},
	})
	if rr.Code != http.StatusLocked {
		t.Fatalf("expected 423, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestGovernanceCommitRevealRoundTrip(t *testing.T) {
	server, module := newTestServer()
	sessionID := createTestSession(t, server)

	rr := doJSON(t, server, http.MethodPost, "/v1/governance/ledger/mint", "admin", map[string]any{
		"recipient": "alice",
		"amount":    100,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("mint: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var salt entities.Salt
	salt[0] = 7
	digest := commitment.Compute(commitment.Blake256{}, []uint64{1}, []uint64{5}, salt, "alice")
	rr = doJSON(t, server, http.MethodPost, "/v1/governance/sessions/1/commitments", "alice", map[string]any{
		"digest": hex.EncodeToString(digest[:]),
		"weight": 5,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("commit: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodPost, "/v1/governance/sessions/1/reveals", "alice", map[string]any{
		"choices": []uint64{1},
		"weights": []uint64{5},
		"salt":    hex.EncodeToString(salt[:]),
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("early reveal: expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}

	module.Store.SetHeight(112)
	rr = doJSON(t, server, http.MethodPost, "/v1/governance/sessions/1/reveals", "alice", map[string]any{
		"choices": []uint64{1},
		"weights": []uint64{5},
		"salt":    hex.EncodeToString(salt[:]),
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("reveal: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodGet, "/v1/governance/sessions/1/results", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("results: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var results struct {
		SessionID  uint64 `json:"session_id"`
		TotalVotes uint64 `json:"total_votes"`
		QuorumMet  bool   `json:"quorum_met"`
		Items      []struct {
			OptionID    uint64 `json:"option_id"`
			TotalWeight uint64 `json:"total_weight"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &results); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if results.SessionID != sessionID || results.TotalVotes != 1 || !results.QuorumMet {
		t.Fatalf("unexpected results %+v", results)
	}
	if len(results.Items) != 2 || results.Items[0].OptionID != 1 || results.Items[0].TotalWeight != 5 {
		t.Fatalf("expected option 1 ranked first with weight 5, got %+v", results.Items)
	}

	rr = doJSON(t, server, http.MethodGet, "/v1/governance/sessions/1/voters/alice/has-voted", "", nil)
	var voted struct {
		HasVoted bool `json:"has_voted"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &voted); err != nil || !voted.HasVoted {
		t.Fatalf("expected has_voted=true, got %s", rr.Body.String())
	}
}
