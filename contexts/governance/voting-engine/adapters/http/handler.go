package httpadapter

import (
	"context"
	"encoding/hex"
	"log/slog"
	"strings"

	"sealedgov/contexts/governance/voting-engine/application/commands"
	"sealedgov/contexts/governance/voting-engine/application/queries"
	"sealedgov/contexts/governance/voting-engine/domain/entities"
	domainerrors "sealedgov/contexts/governance/voting-engine/domain/errors"
	httptransport "sealedgov/contexts/governance/voting-engine/transport/http"
)

// Handler maps transport DTOs onto the use cases. Caller identity arrives
// already extracted by the HTTP layer.
type Handler struct {
	Sessions    commands.SessionUseCase
	Ballots     commands.BallotUseCase
	Delegations commands.DelegationUseCase
	Ledger      commands.LedgerUseCase
	Queries     queries.QueryUseCase
	Logger      *slog.Logger
}

func (h Handler) CreateSessionHandler(
	ctx context.Context,
	caller string,
	req httptransport.CreateSessionRequest,
) (httptransport.SessionResponse, error) {
	options := make([]entities.OptionInput, 0, len(req.Options))
	for _, option := range req.Options {
		options = append(options, entities.OptionInput{
			OptionID:    option.OptionID,
			Description: option.Description,
		})
	}
	session, err := h.Sessions.CreateSession(ctx, commands.CreateSessionCommand{
		Caller:          caller,
		Title:           req.Title,
		Description:     req.Description,
		CommitDuration:  req.CommitDuration,
		RevealDuration:  req.RevealDuration,
		Options:         options,
		Mode:            entities.VotingMode(req.Mode),
		MinReputation:   req.MinReputation,
		QuorumRequired:  req.QuorumRequired,
		Encrypted:       req.Encrypted,
		AutoExecute:     req.AutoExecute,
		ExecutionTarget: req.ExecutionTarget,
	})
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return mapSession(session, entities.SessionStatusActive, session.StartHeight), nil
}

func (h Handler) GetSessionHandler(ctx context.Context, sessionID uint64) (httptransport.SessionResponse, error) {
	view, err := h.Queries.GetSession(ctx, sessionID)
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return mapSession(view.Session, view.EffectiveStatus, view.CurrentHeight), nil
}

func (h Handler) CancelSessionHandler(ctx context.Context, caller string, sessionID uint64) error {
	return h.Sessions.CancelSession(ctx, caller, sessionID)
}

func (h Handler) FinalizeSessionHandler(ctx context.Context, sessionID uint64) (httptransport.SessionResponse, error) {
	session, err := h.Sessions.FinalizeSession(ctx, sessionID)
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return mapSession(session, session.Status, session.FinalizedHeight), nil
}

func (h Handler) ListOptionsHandler(ctx context.Context, sessionID uint64) (httptransport.OptionsResponse, error) {
	options, err := h.Queries.ListOptions(ctx, sessionID)
	if err != nil {
		return httptransport.OptionsResponse{}, err
	}
	return httptransport.OptionsResponse{Items: mapOptions(options)}, nil
}

func (h Handler) GetOptionResultHandler(ctx context.Context, sessionID uint64, optionID uint64) (httptransport.OptionResponse, error) {
	option, err := h.Queries.GetOptionResult(ctx, sessionID, optionID)
	if err != nil {
		return httptransport.OptionResponse{}, err
	}
	return mapOption(option), nil
}

func (h Handler) SessionResultsHandler(ctx context.Context, sessionID uint64) (httptransport.ResultsResponse, error) {
	results, err := h.Queries.SessionResults(ctx, sessionID)
	if err != nil {
		return httptransport.ResultsResponse{}, err
	}
	return httptransport.ResultsResponse{
		SessionID:   results.SessionID,
		Status:      string(results.Status),
		TotalVotes:  results.TotalVotes,
		TotalWeight: results.TotalWeight,
		QuorumMet:   results.QuorumMet,
		Final:       results.Final,
		Items:       mapOptions(results.Options),
	}, nil
}

func (h Handler) QuorumHandler(ctx context.Context, sessionID uint64) (httptransport.QuorumResponse, error) {
	met, err := h.Queries.QuorumMet(ctx, sessionID)
	if err != nil {
		return httptransport.QuorumResponse{}, err
	}
	return httptransport.QuorumResponse{SessionID: sessionID, QuorumMet: met}, nil
}

func (h Handler) QuadraticCostHandler(ctx context.Context, sessionID uint64, votes uint64) (httptransport.QuadraticCostResponse, error) {
	cost, err := h.Queries.QuadraticCost(ctx, sessionID, votes)
	if err != nil {
		return httptransport.QuadraticCostResponse{}, err
	}
	return httptransport.QuadraticCostResponse{SessionID: sessionID, Votes: votes, Cost: cost}, nil
}

func (h Handler) CommitVoteHandler(
	ctx context.Context,
	caller string,
	sessionID uint64,
	req httptransport.CommitVoteRequest,
) (httptransport.CommitmentResponse, error) {
	digest, err := decodeFixed32(req.Digest)
	if err != nil {
		return httptransport.CommitmentResponse{}, err
	}
	committed, err := h.Ballots.CommitVote(ctx, commands.CommitVoteCommand{
		Caller:        caller,
		SessionID:     sessionID,
		Digest:        entities.Digest(digest),
		Weight:        req.Weight,
		UseDelegation: req.UseDelegation,
	})
	if err != nil {
		return httptransport.CommitmentResponse{}, err
	}
	return mapCommitment(committed), nil
}

func (h Handler) GetCommitmentHandler(ctx context.Context, voter string, sessionID uint64) (httptransport.CommitmentResponse, error) {
	stored, err := h.Queries.GetCommitment(ctx, voter, sessionID)
	if err != nil {
		return httptransport.CommitmentResponse{}, err
	}
	return mapCommitment(stored), nil
}

func (h Handler) RevealVoteHandler(
	ctx context.Context,
	caller string,
	sessionID uint64,
	req httptransport.RevealVoteRequest,
) (httptransport.RevealResponse, error) {
	salt, err := decodeFixed32(req.Salt)
	if err != nil {
		return httptransport.RevealResponse{}, err
	}
	var signature []byte
	if strings.TrimSpace(req.Signature) != "" {
		signature, err = hex.DecodeString(strings.TrimSpace(req.Signature))
		if err != nil {
			return httptransport.RevealResponse{}, domainerrors.ErrInvalidInput
		}
	}
	revealed, err := h.Ballots.RevealVote(ctx, commands.RevealVoteCommand{
		Caller:    caller,
		SessionID: sessionID,
		Choices:   req.Choices,
		Weights:   req.Weights,
		Salt:      entities.Salt(salt),
		Signature: signature,
	})
	if err != nil {
		return httptransport.RevealResponse{}, err
	}
	return httptransport.RevealResponse{
		SessionID:       revealed.SessionID,
		Voter:           revealed.Voter,
		VoteDigest:      hex.EncodeToString(revealed.VoteDigest[:]),
		Choices:         revealed.Choices,
		Weights:         revealed.Weights,
		TotalWeight:     revealed.TotalWeight,
		DelegatedWeight: revealed.DelegatedWeight,
		RevealedHeight:  revealed.RevealedHeight,
	}, nil
}

func (h Handler) HasVotedHandler(ctx context.Context, voter string, sessionID uint64) (httptransport.HasVotedResponse, error) {
	voted, err := h.Queries.HasVoted(ctx, voter, sessionID)
	if err != nil {
		return httptransport.HasVotedResponse{}, err
	}
	return httptransport.HasVotedResponse{SessionID: sessionID, Voter: strings.TrimSpace(voter), HasVoted: voted}, nil
}

func (h Handler) DelegateHandler(
	ctx context.Context,
	caller string,
	sessionID uint64,
	req httptransport.DelegateRequest,
) (httptransport.DelegationResponse, error) {
	delegation, err := h.Delegations.Delegate(ctx, commands.DelegateCommand{
		Caller:    caller,
		SessionID: sessionID,
		Delegate:  req.Delegate,
		Weight:    req.Weight,
	})
	if err != nil {
		return httptransport.DelegationResponse{}, err
	}
	return mapDelegation(delegation), nil
}

func (h Handler) RevokeDelegationHandler(ctx context.Context, caller string, sessionID uint64) (httptransport.DelegationResponse, error) {
	delegation, err := h.Delegations.RevokeDelegation(ctx, caller, sessionID)
	if err != nil {
		return httptransport.DelegationResponse{}, err
	}
	return mapDelegation(delegation), nil
}

func (h Handler) GetDelegationHandler(ctx context.Context, delegator string, sessionID uint64) (httptransport.DelegationResponse, error) {
	delegation, err := h.Queries.GetDelegation(ctx, delegator, sessionID)
	if err != nil {
		return httptransport.DelegationResponse{}, err
	}
	return mapDelegation(delegation), nil
}

func (h Handler) DelegatePowerHandler(ctx context.Context, delegate string, sessionID uint64) (httptransport.DelegatePowerResponse, error) {
	power, err := h.Queries.GetDelegatePower(ctx, delegate, sessionID)
	if err != nil {
		return httptransport.DelegatePowerResponse{}, err
	}
	return httptransport.DelegatePowerResponse{
		SessionID: power.SessionID,
		Delegate:  power.Delegate,
		Power:     power.Power,
		Spent:     power.Spent,
	}, nil
}

func (h Handler) AvailableWeightHandler(ctx context.Context, voter string, sessionID uint64) (httptransport.WeightResponse, error) {
	weight, err := h.Queries.GetAvailableWeight(ctx, voter, sessionID)
	if err != nil {
		return httptransport.WeightResponse{}, err
	}
	return httptransport.WeightResponse{
		SessionID:    sessionID,
		Voter:        strings.TrimSpace(voter),
		Balance:      weight.Balance,
		DelegatedOut: weight.DelegatedOut,
		Own:          weight.Own,
		Received:     weight.Received,
		Available:    weight.Available,
	}, nil
}

func (h Handler) MintHandler(ctx context.Context, caller string, req httptransport.AmountRequest) (httptransport.BalanceResponse, error) {
	balance, err := h.Ledger.Mint(ctx, caller, req.Recipient, req.Amount)
	if err != nil {
		return httptransport.BalanceResponse{}, err
	}
	return httptransport.BalanceResponse{Voter: strings.TrimSpace(req.Recipient), Balance: balance}, nil
}

func (h Handler) TransferHandler(ctx context.Context, caller string, req httptransport.AmountRequest) (httptransport.BalanceResponse, error) {
	if err := h.Ledger.Transfer(ctx, caller, req.Recipient, req.Amount); err != nil {
		return httptransport.BalanceResponse{}, err
	}
	return h.BalanceHandler(ctx, caller)
}

func (h Handler) BalanceHandler(ctx context.Context, voter string) (httptransport.BalanceResponse, error) {
	balance, err := h.Queries.GetTokenBalance(ctx, voter)
	if err != nil {
		return httptransport.BalanceResponse{}, err
	}
	return httptransport.BalanceResponse{Voter: balance.Voter, Balance: balance.Amount}, nil
}

func (h Handler) ReputationHandler(ctx context.Context, voter string) (httptransport.ReputationResponse, error) {
	reputation, err := h.Queries.GetReputation(ctx, voter)
	if err != nil {
		return httptransport.ReputationResponse{}, err
	}
	return mapReputation(reputation), nil
}

func (h Handler) AdjustReputationHandler(
	ctx context.Context,
	caller string,
	voter string,
	req httptransport.AdjustReputationRequest,
) (httptransport.ReputationResponse, error) {
	reputation, err := h.Ledger.AdjustReputation(ctx, caller, voter, req.Delta)
	if err != nil {
		return httptransport.ReputationResponse{}, err
	}
	return mapReputation(reputation), nil
}

func (h Handler) HistoryHandler(ctx context.Context, voter string) (httptransport.HistoryResponse, error) {
	history, err := h.Queries.GetVotingHistory(ctx, voter)
	if err != nil {
		return httptransport.HistoryResponse{}, err
	}
	items := make([]httptransport.HistoryItem, 0, len(history))
	for _, entry := range history {
		items = append(items, httptransport.HistoryItem{
			SessionID:         entry.SessionID,
			ParticipationType: string(entry.ParticipationType),
			Weight:            entry.Weight,
			Height:            entry.Height,
		})
	}
	return httptransport.HistoryResponse{Voter: strings.TrimSpace(voter), Items: items}, nil
}

func (h Handler) SettingsHandler(ctx context.Context) (httptransport.SettingsResponse, error) {
	settings, err := h.Queries.GetSettings(ctx)
	if err != nil {
		return httptransport.SettingsResponse{}, err
	}
	return httptransport.SettingsResponse{
		EmergencyMode:     settings.EmergencyMode,
		DelegationEnabled: !settings.DelegationDisabled,
		UpdatedHeight:     settings.UpdatedHeight,
	}, nil
}

func (h Handler) SetEmergencyHandler(ctx context.Context, caller string, active bool) (httptransport.SettingsResponse, error) {
	var err error
	if active {
		err = h.Ledger.ActivateEmergency(ctx, caller)
	} else {
		err = h.Ledger.DeactivateEmergency(ctx, caller)
	}
	if err != nil {
		return httptransport.SettingsResponse{}, err
	}
	return h.SettingsHandler(ctx)
}

func (h Handler) SetDelegationPolicyHandler(
	ctx context.Context,
	caller string,
	req httptransport.DelegationPolicyRequest,
) (httptransport.SettingsResponse, error) {
	if err := h.Ledger.SetDelegationEnabled(ctx, caller, req.Enabled); err != nil {
		return httptransport.SettingsResponse{}, err
	}
	return h.SettingsHandler(ctx)
}

func decodeFixed32(raw string) ([32]byte, error) {
	var out [32]byte
	decoded, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if err != nil || len(decoded) != len(out) {
		return out, domainerrors.ErrInvalidInput
	}
	copy(out[:], decoded)
	return out, nil
}

func mapSession(session entities.Session, effective entities.SessionStatus, height uint64) httptransport.SessionResponse {
	return httptransport.SessionResponse{
		SessionID:       session.SessionID,
		Title:           session.Title,
		Description:     session.Description,
		Creator:         session.Creator,
		StartHeight:     session.StartHeight,
		CommitEnd:       session.CommitEnd,
		RevealEnd:       session.RevealEnd,
		Mode:            string(session.Mode),
		MinReputation:   session.MinReputation,
		QuorumRequired:  session.QuorumRequired,
		TotalVotes:      session.TotalVotes,
		TotalWeight:     session.TotalWeight,
		Status:          string(session.Status),
		EffectiveStatus: string(effective),
		QuorumMet:       session.QuorumMet(),
		Encrypted:       session.Encrypted,
		AutoExecute:     session.AutoExecute,
		ExecutionTarget: session.ExecutionTarget,
		ExecutionCount:  session.ExecutionCount,
		QuadraticCosts:  session.QuadraticCosts,
		CurrentHeight:   height,
	}
}

func mapOption(option entities.VoteOption) httptransport.OptionResponse {
	return httptransport.OptionResponse{
		SessionID:   option.SessionID,
		OptionID:    option.OptionID,
		Description: option.Description,
		Count:       option.Count,
		TotalWeight: option.TotalWeight,
	}
}

func mapOptions(options []entities.VoteOption) []httptransport.OptionResponse {
	items := make([]httptransport.OptionResponse, 0, len(options))
	for _, option := range options {
		items = append(items, mapOption(option))
	}
	return items
}

func mapCommitment(item entities.VoteCommitment) httptransport.CommitmentResponse {
	return httptransport.CommitmentResponse{
		SessionID:       item.SessionID,
		Voter:           item.Voter,
		Digest:          hex.EncodeToString(item.Digest[:]),
		Weight:          item.Weight,
		Cost:            item.Cost,
		DelegatedWeight: item.DelegatedWeight,
		CommittedHeight: item.CommittedHeight,
		Encrypted:       item.Encrypted,
	}
}

func mapDelegation(item entities.Delegation) httptransport.DelegationResponse {
	return httptransport.DelegationResponse{
		SessionID:       item.SessionID,
		Delegator:       item.Delegator,
		Delegate:        item.Delegate,
		Weight:          item.Weight,
		Active:          item.Active,
		DelegatedHeight: item.DelegatedHeight,
		RevokedHeight:   item.RevokedHeight,
	}
}

func mapReputation(item entities.Reputation) httptransport.ReputationResponse {
	return httptransport.ReputationResponse{
		Voter:              item.Voter,
		Score:              item.Score,
		ParticipationCount: item.ParticipationCount,
		LastUpdated:        item.LastUpdated,
		Penalties:          item.Penalties,
	}
}
