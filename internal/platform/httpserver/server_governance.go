package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	domainerrors "sealedgov/contexts/governance/voting-engine/domain/errors"
	governancehttp "sealedgov/contexts/governance/voting-engine/transport/http"
)

func writeGovernanceDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrInvalidInput):
		writeGovernanceError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, domainerrors.ErrNotAuthorized):
		writeGovernanceError(w, http.StatusForbidden, "not_authorized", err.Error())
	case errors.Is(err, domainerrors.ErrInsufficientReputation):
		writeGovernanceError(w, http.StatusForbidden, "insufficient_reputation", err.Error())
	case errors.Is(err, domainerrors.ErrEmergencyActive):
		writeGovernanceError(w, http.StatusLocked, "emergency_active", err.Error())
	case errors.Is(err, domainerrors.ErrNotFound):
		writeGovernanceError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domainerrors.ErrVotingNotActive):
		writeGovernanceError(w, http.StatusConflict, "voting_not_active", err.Error())
	case errors.Is(err, domainerrors.ErrVotingEnded):
		writeGovernanceError(w, http.StatusConflict, "voting_ended", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidPhase):
		writeGovernanceError(w, http.StatusConflict, "invalid_phase", err.Error())
	case errors.Is(err, domainerrors.ErrAlreadyVoted):
		writeGovernanceError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, domainerrors.ErrConflict):
		writeGovernanceError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidCommitment):
		writeGovernanceError(w, http.StatusUnprocessableEntity, "invalid_commitment", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidSignature):
		writeGovernanceError(w, http.StatusUnprocessableEntity, "invalid_signature", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidWeight):
		writeGovernanceError(w, http.StatusUnprocessableEntity, "invalid_weight", err.Error())
	case errors.Is(err, domainerrors.ErrInsufficientTokens):
		writeGovernanceError(w, http.StatusUnprocessableEntity, "insufficient_tokens", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidDelegation):
		writeGovernanceError(w, http.StatusUnprocessableEntity, "invalid_delegation", err.Error())
	case errors.Is(err, domainerrors.ErrExecutionFailed):
		writeGovernanceError(w, http.StatusBadGateway, "execution_failed", err.Error())
	default:
		writeGovernanceError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// @Summary Create a voting session
// @Tags sessions
// @Param X-User-Id header string true "caller"
// @Param body body governancehttp.CreateSessionRequest true "session"
// @Success 201 {object} governancehttp.SessionResponse
// @Router /sessions [post]
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req governancehttp.CreateSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.governance.Handler.CreateSessionHandler(r.Context(), caller, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUint(w, r, "session_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.GetSessionHandler(r.Context(), sessionID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	sessionID, ok := pathUint(w, r, "session_id")
	if !ok {
		return
	}
	if err := s.governance.Handler.CancelSessionHandler(r.Context(), caller, sessionID); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFinalizeSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUint(w, r, "session_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.FinalizeSessionHandler(r.Context(), sessionID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListOptions(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUint(w, r, "session_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.ListOptionsHandler(r.Context(), sessionID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetOption(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUint(w, r, "session_id")
	if !ok {
		return
	}
	optionID, ok := pathUint(w, r, "option_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.GetOptionResultHandler(r.Context(), sessionID, optionID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Summary Ranked results of a session
// @Tags sessions
// @Param session_id path int true "session id"
// @Success 200 {object} governancehttp.ResultsResponse
// @Router /sessions/{session_id}/results [get]
func (s *Server) handleSessionResults(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUint(w, r, "session_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.SessionResultsHandler(r.Context(), sessionID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuorum(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUint(w, r, "session_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.QuorumHandler(r.Context(), sessionID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuadraticCost(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUint(w, r, "session_id")
	if !ok {
		return
	}
	votes, err := strconv.ParseUint(strings.TrimSpace(r.URL.Query().Get("votes")), 10, 64)
	if err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_votes", "votes must be an unsigned integer")
		return
	}
	resp, err := s.governance.Handler.QuadraticCostHandler(r.Context(), sessionID, votes)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Summary Commit a sealed vote
// @Tags ballots
// @Param X-User-Id header string true "voter"
// @Param session_id path int true "session id"
// @Param body body governancehttp.CommitVoteRequest true "commitment"
// @Success 201 {object} governancehttp.CommitmentResponse
// @Router /sessions/{session_id}/commitments [post]
func (s *Server) handleCommitVote(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	sessionID, ok := pathUint(w, r, "session_id")
	if !ok {
		return
	}
	var req governancehttp.CommitVoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.governance.Handler.CommitVoteHandler(r.Context(), caller, sessionID, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetCommitment(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUint(w, r, "session_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.GetCommitmentHandler(r.Context(), r.PathValue("voter"), sessionID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Summary Reveal a committed vote
// @Tags ballots
// @Param X-User-Id header string true "voter"
// @Param session_id path int true "session id"
// @Param body body governancehttp.RevealVoteRequest true "reveal"
// @Success 200 {object} governancehttp.RevealResponse
// @Router /sessions/{session_id}/reveals [post]
func (s *Server) handleRevealVote(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	sessionID, ok := pathUint(w, r, "session_id")
	if !ok {
		return
	}
	var req governancehttp.RevealVoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.governance.Handler.RevealVoteHandler(r.Context(), caller, sessionID, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHasVoted(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUint(w, r, "session_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.HasVotedHandler(r.Context(), r.PathValue("voter"), sessionID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAvailableWeight(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUint(w, r, "session_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.AvailableWeightHandler(r.Context(), r.PathValue("voter"), sessionID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDelegate(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	sessionID, ok := pathUint(w, r, "session_id")
	if !ok {
		return
	}
	var req governancehttp.DelegateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.governance.Handler.DelegateHandler(r.Context(), caller, sessionID, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleRevokeDelegation(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	sessionID, ok := pathUint(w, r, "session_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.RevokeDelegationHandler(r.Context(), caller, sessionID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDelegation(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUint(w, r, "session_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.GetDelegationHandler(r.Context(), r.PathValue("delegator"), sessionID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDelegatePower(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUint(w, r, "session_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.DelegatePowerHandler(r.Context(), r.PathValue("delegate"), sessionID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req governancehttp.AmountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.governance.Handler.MintHandler(r.Context(), caller, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req governancehttp.AmountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.governance.Handler.TransferHandler(r.Context(), caller, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.BalanceHandler(r.Context(), r.PathValue("voter"))
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReputation(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.ReputationHandler(r.Context(), r.PathValue("voter"))
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdjustReputation(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req governancehttp.AdjustReputationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.governance.Handler.AdjustReputationHandler(r.Context(), caller, r.PathValue("voter"), req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.HistoryHandler(r.Context(), r.PathValue("voter"))
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.SettingsHandler(r.Context())
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEmergency(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := requireCaller(w, r)
		if !ok {
			return
		}
		resp, err := s.governance.Handler.SetEmergencyHandler(r.Context(), caller, active)
		if err != nil {
			writeGovernanceDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleDelegationPolicy(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req governancehttp.DelegationPolicyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.governance.Handler.SetDelegationPolicyHandler(r.Context(), caller, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
