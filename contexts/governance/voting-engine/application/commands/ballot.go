package commands

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	application "sealedgov/contexts/governance/voting-engine/application"
	"sealedgov/contexts/governance/voting-engine/domain/commitment"
	"sealedgov/contexts/governance/voting-engine/domain/entities"
	domainerrors "sealedgov/contexts/governance/voting-engine/domain/errors"
	"sealedgov/contexts/governance/voting-engine/ports"
)

type CommitVoteCommand struct {
	Caller        string
	SessionID     uint64
	Digest        entities.Digest
	Weight        uint64
	UseDelegation bool
}

type RevealVoteCommand struct {
	Caller    string
	SessionID uint64
	Choices   []uint64
	Weights   []uint64
	Salt      entities.Salt
	Signature []byte
}

// BallotUseCase handles both halves of commit-reveal voting.
type BallotUseCase struct {
	Repo          ports.Repository
	Heights       ports.HeightSource
	Hasher        commitment.Hasher
	Verifier      ports.SignatureVerifier
	Hook          ports.ExecutionHook
	StrictOptions bool
	IDGen         ports.IDGenerator
	Clock         ports.Clock
	Logger        *slog.Logger
}

func (uc BallotUseCase) CommitVote(ctx context.Context, cmd CommitVoteCommand) (entities.VoteCommitment, error) {
	logger := application.ResolveLogger(uc.Logger)
	caller := strings.TrimSpace(cmd.Caller)
	logger.Info("vote commit processing started",
		"event", "governance_vote_commit_started",
		"module", "governance/voting-engine",
		"layer", "application",
		"session_id", cmd.SessionID,
		"voter", caller,
		"weight", cmd.Weight,
		"use_delegation", cmd.UseDelegation,
	)
	if caller == "" {
		return entities.VoteCommitment{}, domainerrors.ErrInvalidInput
	}
	if cmd.Digest.IsZero() {
		return entities.VoteCommitment{}, domainerrors.ErrInvalidCommitment
	}
	now, err := currentHeight(ctx, uc.Heights)
	if err != nil {
		return entities.VoteCommitment{}, err
	}

	sink := eventSink{idGen: uc.IDGen, clock: uc.Clock}
	var committed entities.VoteCommitment
	err = uc.Repo.Atomic(ctx, func(ctx context.Context, tx ports.Tx) error {
		session, err := tx.GetSession(ctx, cmd.SessionID)
		if err != nil {
			return err
		}
		if session.Status != entities.SessionStatusActive {
			return domainerrors.ErrVotingNotActive
		}
		if now >= session.CommitEnd {
			return domainerrors.ErrVotingEnded
		}
		reputation, err := tx.GetReputation(ctx, caller)
		if err != nil {
			return err
		}
		if reputation.Score < session.MinReputation {
			return domainerrors.ErrInsufficientReputation
		}
		if _, found, err := tx.GetCommitment(ctx, caller, cmd.SessionID); err != nil {
			return err
		} else if found {
			return domainerrors.ErrAlreadyVoted
		}
		if cmd.Weight == 0 {
			return domainerrors.ErrInvalidWeight
		}
		weight, err := application.ResolveWeight(ctx, tx, caller, cmd.SessionID)
		if err != nil {
			return err
		}
		if cmd.Weight > weight.Available {
			return domainerrors.ErrInsufficientTokens
		}

		cost, ok := session.Mode.Cost(cmd.Weight)
		if !ok {
			return domainerrors.ErrInvalidWeight
		}
		fromOwn := min(cost, weight.Own)
		fromDelegated := cost - fromOwn
		if fromDelegated > 0 {
			if !cmd.UseDelegation || fromDelegated > weight.Received {
				return domainerrors.ErrInsufficientTokens
			}
			power, err := tx.GetDelegatePower(ctx, caller, cmd.SessionID)
			if err != nil {
				return err
			}
			power.Delegate = caller
			power.SessionID = cmd.SessionID
			power.Spent += fromDelegated
			if err := tx.SaveDelegatePower(ctx, power); err != nil {
				return err
			}
		}
		if fromOwn > 0 {
			if err := tx.SaveBalance(ctx, caller, weight.Balance-fromOwn); err != nil {
				return err
			}
		}

		committed = entities.VoteCommitment{
			Voter:           caller,
			SessionID:       cmd.SessionID,
			Digest:          cmd.Digest,
			Weight:          cmd.Weight,
			Cost:            cost,
			DelegatedWeight: fromDelegated,
			CommittedHeight: now,
			Encrypted:       session.Encrypted,
		}
		if err := tx.InsertCommitment(ctx, committed); err != nil {
			return err
		}
		return sink.append(ctx, tx, EventVoteCommitted, "session", sessionEntityID(cmd.SessionID), map[string]any{
			"session_id":       cmd.SessionID,
			"voter":            caller,
			"digest":           hex.EncodeToString(cmd.Digest[:]),
			"weight":           cmd.Weight,
			"cost":             cost,
			"delegated_weight": fromDelegated,
			"height":           now,
		})
	})
	if err != nil {
		logger.Warn("vote commit rejected",
			"event", "governance_vote_commit_rejected",
			"module", "governance/voting-engine",
			"layer", "application",
			"session_id", cmd.SessionID,
			"voter", caller,
			"error", err.Error(),
		)
		return entities.VoteCommitment{}, err
	}

	logger.Info("vote committed",
		"event", "governance_vote_committed",
		"module", "governance/voting-engine",
		"layer", "application",
		"session_id", cmd.SessionID,
		"voter", caller,
		"weight", committed.Weight,
		"cost", committed.Cost,
	)
	return committed, nil
}

func (uc BallotUseCase) RevealVote(ctx context.Context, cmd RevealVoteCommand) (entities.RevealedVote, error) {
	logger := application.ResolveLogger(uc.Logger)
	caller := strings.TrimSpace(cmd.Caller)
	logger.Info("vote reveal processing started",
		"event", "governance_vote_reveal_started",
		"module", "governance/voting-engine",
		"layer", "application",
		"session_id", cmd.SessionID,
		"voter", caller,
		"entries", len(cmd.Choices),
	)
	if caller == "" ||
		len(cmd.Choices) == 0 ||
		len(cmd.Choices) > entities.MaxRevealEntries ||
		len(cmd.Choices) != len(cmd.Weights) {
		return entities.RevealedVote{}, domainerrors.ErrInvalidInput
	}
	now, err := currentHeight(ctx, uc.Heights)
	if err != nil {
		return entities.RevealedVote{}, err
	}

	sink := eventSink{idGen: uc.IDGen, clock: uc.Clock}
	var (
		revealed entities.RevealedVote
		executed bool
	)
	err = uc.Repo.Atomic(ctx, func(ctx context.Context, tx ports.Tx) error {
		session, err := tx.GetSession(ctx, cmd.SessionID)
		if err != nil {
			return err
		}
		if session.Status != entities.SessionStatusActive {
			return domainerrors.ErrVotingNotActive
		}
		if now < session.CommitEnd {
			return domainerrors.ErrInvalidPhase
		}
		if now >= session.RevealEnd {
			return domainerrors.ErrVotingEnded
		}
		if _, found, err := tx.GetRevealedVote(ctx, caller, cmd.SessionID); err != nil {
			return err
		} else if found {
			return domainerrors.ErrAlreadyVoted
		}
		stored, found, err := tx.GetCommitment(ctx, caller, cmd.SessionID)
		if err != nil {
			return err
		}
		if !found {
			return domainerrors.ErrInvalidCommitment
		}

		var sum uint64
		for _, weight := range cmd.Weights {
			var ok bool
			if sum, ok = application.CheckedAdd(sum, weight); !ok {
				return domainerrors.ErrInvalidWeight
			}
		}
		if sum != stored.Weight {
			return domainerrors.ErrInvalidWeight
		}
		if !commitment.Verify(uc.Hasher, stored.Digest, cmd.Choices, cmd.Weights, cmd.Salt, caller) {
			return domainerrors.ErrInvalidCommitment
		}
		if len(cmd.Signature) > 0 && uc.Verifier != nil {
			if err := uc.Verifier.Verify(ctx, caller, stored.Digest, cmd.Signature); err != nil {
				if errors.Is(err, domainerrors.ErrInvalidSignature) {
					return err
				}
				return fmt.Errorf("%w: %v", domainerrors.ErrInvalidSignature, err)
			}
		}

		for i, choice := range cmd.Choices {
			option, found, err := tx.GetOption(ctx, cmd.SessionID, choice)
			if err != nil {
				return err
			}
			if !found {
				if uc.StrictOptions {
					return domainerrors.ErrNotFound
				}
				option = entities.VoteOption{SessionID: cmd.SessionID, OptionID: choice}
			}
			option.Count++
			option.TotalWeight = application.SaturatingAdd(option.TotalWeight, cmd.Weights[i])
			if err := tx.SaveOption(ctx, option); err != nil {
				return err
			}
		}
		session.TotalVotes++
		session.TotalWeight = application.SaturatingAdd(session.TotalWeight, sum)

		revealed = entities.RevealedVote{
			Voter:           caller,
			SessionID:       cmd.SessionID,
			VoteDigest:      stored.Digest,
			Choices:         append([]uint64(nil), cmd.Choices...),
			Weights:         append([]uint64(nil), cmd.Weights...),
			TotalWeight:     sum,
			DelegatedWeight: stored.DelegatedWeight,
			RevealedHeight:  now,
		}
		if err := tx.InsertRevealedVote(ctx, revealed); err != nil {
			return err
		}

		reputation, err := tx.GetReputation(ctx, caller)
		if err != nil {
			return err
		}
		reputation.Voter = caller
		reputation = reputation.Adjust(entities.ParticipationReward, now)
		reputation.ParticipationCount++
		if err := tx.SaveReputation(ctx, reputation); err != nil {
			return err
		}
		if err := tx.AppendHistory(ctx, entities.VotingHistory{
			Voter:             caller,
			SessionID:         cmd.SessionID,
			ParticipationType: entities.ParticipationDirect,
			Weight:            sum,
			Height:            now,
		}); err != nil {
			return err
		}

		if session.AutoExecute && session.QuorumMet() {
			session.ExecutionCount++
			executed = true
		}
		if err := tx.SaveSession(ctx, session); err != nil {
			return err
		}
		if err := sink.append(ctx, tx, EventVoteRevealed, "session", sessionEntityID(cmd.SessionID), map[string]any{
			"session_id":   cmd.SessionID,
			"voter":        caller,
			"choices":      cmd.Choices,
			"weights":      cmd.Weights,
			"total_weight": sum,
			"total_votes":  session.TotalVotes,
			"height":       now,
		}); err != nil {
			return err
		}
		if !executed {
			return nil
		}
		if err := sink.append(ctx, tx, EventSessionExecutionRequested, "session", sessionEntityID(cmd.SessionID), map[string]any{
			"session_id":       cmd.SessionID,
			"execution_target": session.ExecutionTarget,
			"execution_count":  session.ExecutionCount,
			"total_votes":      session.TotalVotes,
			"height":           now,
		}); err != nil {
			return err
		}
		if uc.Hook == nil {
			return nil
		}
		if err := uc.Hook.Execute(ctx, cmd.SessionID); err != nil {
			return fmt.Errorf("%w: %v", domainerrors.ErrExecutionFailed, err)
		}
		return nil
	})
	if err != nil {
		logger.Warn("vote reveal rejected",
			"event", "governance_vote_reveal_rejected",
			"module", "governance/voting-engine",
			"layer", "application",
			"session_id", cmd.SessionID,
			"voter", caller,
			"error", err.Error(),
		)
		return entities.RevealedVote{}, err
	}

	logger.Info("vote revealed",
		"event", "governance_vote_revealed",
		"module", "governance/voting-engine",
		"layer", "application",
		"session_id", cmd.SessionID,
		"voter", caller,
		"total_weight", revealed.TotalWeight,
		"auto_executed", executed,
	)
	return revealed, nil
}
