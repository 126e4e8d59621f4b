package commands

import (
	"context"
	"log/slog"
	"strings"

	application "sealedgov/contexts/governance/voting-engine/application"
	"sealedgov/contexts/governance/voting-engine/domain/entities"
	domainerrors "sealedgov/contexts/governance/voting-engine/domain/errors"
	"sealedgov/contexts/governance/voting-engine/ports"
)

// CreateSessionCommand is the write-model input for opening a voting round.
type CreateSessionCommand struct {
	Caller          string
	Title           string
	Description     string
	CommitDuration  uint64
	RevealDuration  uint64
	Options         []entities.OptionInput
	Mode            entities.VotingMode
	MinReputation   uint64
	QuorumRequired  uint64
	Encrypted       bool
	AutoExecute     bool
	ExecutionTarget string
}

// SessionUseCase owns the session lifecycle: active -> ended (implicitly once
// the reveal window closes, or persisted by FinalizeSession) and
// active -> cancelled. Nothing leaves ended or cancelled.
type SessionUseCase struct {
	Repo                      ports.Repository
	Heights                   ports.HeightSource
	IDGen                     ports.IDGenerator
	Clock                     ports.Clock
	Administrators            []string
	GlobalReputationThreshold uint64
	Logger                    *slog.Logger
}

func (uc SessionUseCase) CreateSession(ctx context.Context, cmd CreateSessionCommand) (entities.Session, error) {
	logger := application.ResolveLogger(uc.Logger)
	caller := strings.TrimSpace(cmd.Caller)
	logger.Info("session create processing started",
		"event", "governance_session_create_started",
		"module", "governance/voting-engine",
		"layer", "application",
		"caller", caller,
		"mode", string(cmd.Mode),
		"option_count", len(cmd.Options),
	)

	mode, ok := entities.ParseVotingMode(string(cmd.Mode))
	if caller == "" ||
		strings.TrimSpace(cmd.Title) == "" ||
		!ok ||
		len(cmd.Options) == 0 ||
		len(cmd.Options) > entities.MaxOptions {
		logger.Warn("session create validation failed",
			"event", "governance_session_create_validation_failed",
			"module", "governance/voting-engine",
			"layer", "application",
			"caller", caller,
			"option_count", len(cmd.Options),
		)
		return entities.Session{}, domainerrors.ErrInvalidInput
	}

	now, err := currentHeight(ctx, uc.Heights)
	if err != nil {
		return entities.Session{}, err
	}
	commitEnd, ok := application.CheckedAdd(now, cmd.CommitDuration)
	if !ok {
		return entities.Session{}, domainerrors.ErrInvalidInput
	}
	revealEnd, ok := application.CheckedAdd(commitEnd, cmd.RevealDuration)
	if !ok {
		return entities.Session{}, domainerrors.ErrInvalidInput
	}

	sink := eventSink{idGen: uc.IDGen, clock: uc.Clock}
	var session entities.Session
	err = uc.Repo.Atomic(ctx, func(ctx context.Context, tx ports.Tx) error {
		settings, err := tx.GetSettings(ctx)
		if err != nil {
			return err
		}
		if settings.EmergencyMode {
			return domainerrors.ErrEmergencyActive
		}
		reputation, err := tx.GetReputation(ctx, caller)
		if err != nil {
			return err
		}
		if reputation.Score < uc.GlobalReputationThreshold {
			return domainerrors.ErrInsufficientReputation
		}

		sessionID, err := tx.NextSessionID(ctx)
		if err != nil {
			return err
		}
		session = entities.Session{
			SessionID:       sessionID,
			Title:           strings.TrimSpace(cmd.Title),
			Description:     strings.TrimSpace(cmd.Description),
			Creator:         caller,
			StartHeight:     now,
			CommitEnd:       commitEnd,
			RevealEnd:       revealEnd,
			Mode:            mode,
			MinReputation:   cmd.MinReputation,
			QuorumRequired:  cmd.QuorumRequired,
			Status:          entities.SessionStatusActive,
			Encrypted:       cmd.Encrypted,
			AutoExecute:     cmd.AutoExecute,
			ExecutionTarget: strings.TrimSpace(cmd.ExecutionTarget),
			CreatedHeight:   now,
		}
		if mode == entities.VotingModeQuadratic {
			session.QuadraticCosts = entities.QuadraticCostTable()
		}
		if err := tx.SaveSession(ctx, session); err != nil {
			return err
		}
		// Duplicate option ids overwrite each other; the last one wins.
		for _, option := range cmd.Options {
			if err := tx.SaveOption(ctx, entities.VoteOption{
				SessionID:   sessionID,
				OptionID:    option.OptionID,
				Description: strings.TrimSpace(option.Description),
			}); err != nil {
				return err
			}
		}
		return sink.append(ctx, tx, EventSessionCreated, "session", sessionEntityID(sessionID), map[string]any{
			"session_id":      sessionID,
			"creator":         caller,
			"mode":            string(mode),
			"start_height":    now,
			"commit_end":      commitEnd,
			"reveal_end":      revealEnd,
			"quorum_required": cmd.QuorumRequired,
			"auto_execute":    cmd.AutoExecute,
		})
	})
	if err != nil {
		logger.Warn("session create rejected",
			"event", "governance_session_create_rejected",
			"module", "governance/voting-engine",
			"layer", "application",
			"caller", caller,
			"error", err.Error(),
		)
		return entities.Session{}, err
	}

	logger.Info("session created",
		"event", "governance_session_created",
		"module", "governance/voting-engine",
		"layer", "application",
		"session_id", session.SessionID,
		"creator", caller,
		"commit_end", session.CommitEnd,
		"reveal_end", session.RevealEnd,
	)
	return session, nil
}

// CancelSession is reserved to the creator or an administrator. Prior
// commitments and reveals stay as the historical record.
func (uc SessionUseCase) CancelSession(ctx context.Context, caller string, sessionID uint64) error {
	logger := application.ResolveLogger(uc.Logger)
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return domainerrors.ErrNotAuthorized
	}
	now, err := currentHeight(ctx, uc.Heights)
	if err != nil {
		return err
	}

	sink := eventSink{idGen: uc.IDGen, clock: uc.Clock}
	err = uc.Repo.Atomic(ctx, func(ctx context.Context, tx ports.Tx) error {
		session, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.Creator != caller && !isAdministrator(uc.Administrators, caller) {
			return domainerrors.ErrNotAuthorized
		}
		switch session.EffectiveStatus(now) {
		case entities.SessionStatusActive:
		case entities.SessionStatusEnded:
			return domainerrors.ErrVotingEnded
		default:
			return domainerrors.ErrVotingNotActive
		}
		session.Status = entities.SessionStatusCancelled
		session.CancelledHeight = now
		if err := tx.SaveSession(ctx, session); err != nil {
			return err
		}
		return sink.append(ctx, tx, EventSessionCancelled, "session", sessionEntityID(sessionID), map[string]any{
			"session_id":   sessionID,
			"cancelled_by": caller,
			"height":       now,
		})
	})
	if err != nil {
		logger.Warn("session cancel rejected",
			"event", "governance_session_cancel_rejected",
			"module", "governance/voting-engine",
			"layer", "application",
			"session_id", sessionID,
			"caller", caller,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("session cancelled",
		"event", "governance_session_cancelled",
		"module", "governance/voting-engine",
		"layer", "application",
		"session_id", sessionID,
		"caller", caller,
	)
	return nil
}

// FinalizeSession persists the implicit ended state once the reveal window
// has closed. Anyone may call it.
func (uc SessionUseCase) FinalizeSession(ctx context.Context, sessionID uint64) (entities.Session, error) {
	logger := application.ResolveLogger(uc.Logger)
	now, err := currentHeight(ctx, uc.Heights)
	if err != nil {
		return entities.Session{}, err
	}

	sink := eventSink{idGen: uc.IDGen, clock: uc.Clock}
	var session entities.Session
	err = uc.Repo.Atomic(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		session, err = tx.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.Status != entities.SessionStatusActive {
			return domainerrors.ErrVotingNotActive
		}
		if now < session.RevealEnd {
			return domainerrors.ErrInvalidPhase
		}
		session.Status = entities.SessionStatusEnded
		session.FinalizedHeight = now
		if err := tx.SaveSession(ctx, session); err != nil {
			return err
		}
		return sink.append(ctx, tx, EventSessionFinalized, "session", sessionEntityID(sessionID), map[string]any{
			"session_id":   sessionID,
			"total_votes":  session.TotalVotes,
			"total_weight": session.TotalWeight,
			"quorum_met":   session.QuorumMet(),
			"height":       now,
		})
	})
	if err != nil {
		return entities.Session{}, err
	}
	logger.Info("session finalized",
		"event", "governance_session_finalized",
		"module", "governance/voting-engine",
		"layer", "application",
		"session_id", sessionID,
		"total_votes", session.TotalVotes,
		"quorum_met", session.QuorumMet(),
	)
	return session, nil
}
