package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	votingengine "sealedgov/contexts/governance/voting-engine"
	governancehttp "sealedgov/contexts/governance/voting-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "sealedgov/internal/platform/httpserver/docs"
)

const callerHeader = "X-User-Id"

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	governance votingengine.Module
}

func New(governance votingengine.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		governance: governance,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server stopping",
			"event", "http_server_stopping",
			"module", "internal/platform/httpserver",
			"layer", "platform",
		)
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/governance/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /v1/governance/sessions/{session_id}", s.handleGetSession)
	s.mux.HandleFunc("POST /v1/governance/sessions/{session_id}/cancel", s.handleCancelSession)
	s.mux.HandleFunc("POST /v1/governance/sessions/{session_id}/finalize", s.handleFinalizeSession)
	s.mux.HandleFunc("GET /v1/governance/sessions/{session_id}/options", s.handleListOptions)
	s.mux.HandleFunc("GET /v1/governance/sessions/{session_id}/options/{option_id}", s.handleGetOption)
	s.mux.HandleFunc("GET /v1/governance/sessions/{session_id}/results", s.handleSessionResults)
	s.mux.HandleFunc("GET /v1/governance/sessions/{session_id}/quorum", s.handleQuorum)
	s.mux.HandleFunc("GET /v1/governance/sessions/{session_id}/quadratic-cost", s.handleQuadraticCost)

	s.mux.HandleFunc("POST /v1/governance/sessions/{session_id}/commitments", s.handleCommitVote)
	s.mux.HandleFunc("GET /v1/governance/sessions/{session_id}/commitments/{voter}", s.handleGetCommitment)
	s.mux.HandleFunc("POST /v1/governance/sessions/{session_id}/reveals", s.handleRevealVote)
	s.mux.HandleFunc("GET /v1/governance/sessions/{session_id}/voters/{voter}/has-voted", s.handleHasVoted)
	s.mux.HandleFunc("GET /v1/governance/sessions/{session_id}/voters/{voter}/weight", s.handleAvailableWeight)

	s.mux.HandleFunc("POST /v1/governance/sessions/{session_id}/delegations", s.handleDelegate)
	s.mux.HandleFunc("DELETE /v1/governance/sessions/{session_id}/delegations", s.handleRevokeDelegation)
	s.mux.HandleFunc("GET /v1/governance/sessions/{session_id}/delegations/{delegator}", s.handleGetDelegation)
	s.mux.HandleFunc("GET /v1/governance/sessions/{session_id}/delegates/{delegate}/power", s.handleDelegatePower)

	s.mux.HandleFunc("POST /v1/governance/ledger/mint", s.handleMint)
	s.mux.HandleFunc("POST /v1/governance/ledger/transfer", s.handleTransfer)
	s.mux.HandleFunc("GET /v1/governance/ledger/balances/{voter}", s.handleBalance)
	s.mux.HandleFunc("GET /v1/governance/reputation/{voter}", s.handleReputation)
	s.mux.HandleFunc("POST /v1/governance/reputation/{voter}/adjust", s.handleAdjustReputation)
	s.mux.HandleFunc("GET /v1/governance/voters/{voter}/history", s.handleHistory)

	s.mux.HandleFunc("GET /v1/governance/settings", s.handleSettings)
	s.mux.HandleFunc("POST /v1/governance/emergency/activate", s.handleEmergency(true))
	s.mux.HandleFunc("POST /v1/governance/emergency/deactivate", s.handleEmergency(false))
	s.mux.HandleFunc("PUT /v1/governance/settings/delegation", s.handleDelegationPolicy)
}

func writeGovernanceError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, governancehttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := strings.TrimSpace(r.Header.Get(callerHeader))
	if caller == "" {
		writeGovernanceError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return caller, true
}

func pathUint(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	value, err := strconv.ParseUint(strings.TrimSpace(r.PathValue(name)), 10, 64)
	if err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_"+name, name+" must be an unsigned integer")
		return 0, false
	}
	return value, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}
