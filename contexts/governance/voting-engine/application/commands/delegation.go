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

type DelegateCommand struct {
	Caller    string
	SessionID uint64
	Delegate  string
	Weight    uint64
}

// DelegationUseCase keeps Delegation rows and the DelegatePower aggregate in
// step. Power is maintained eagerly on every delegate and revoke.
type DelegationUseCase struct {
	Repo    ports.Repository
	Heights ports.HeightSource
	IDGen   ports.IDGenerator
	Clock   ports.Clock
	Logger  *slog.Logger
}

func (uc DelegationUseCase) Delegate(ctx context.Context, cmd DelegateCommand) (entities.Delegation, error) {
	logger := application.ResolveLogger(uc.Logger)
	caller := strings.TrimSpace(cmd.Caller)
	delegate := strings.TrimSpace(cmd.Delegate)
	if caller == "" || delegate == "" {
		return entities.Delegation{}, domainerrors.ErrInvalidInput
	}
	now, err := currentHeight(ctx, uc.Heights)
	if err != nil {
		return entities.Delegation{}, err
	}

	sink := eventSink{idGen: uc.IDGen, clock: uc.Clock}
	var delegation entities.Delegation
	err = uc.Repo.Atomic(ctx, func(ctx context.Context, tx ports.Tx) error {
		settings, err := tx.GetSettings(ctx)
		if err != nil {
			return err
		}
		if settings.DelegationDisabled || delegate == caller {
			return domainerrors.ErrInvalidDelegation
		}
		if cmd.Weight == 0 {
			return domainerrors.ErrInvalidWeight
		}
		session, err := tx.GetSession(ctx, cmd.SessionID)
		if err != nil {
			return err
		}
		if session.EffectiveStatus(now) != entities.SessionStatusActive {
			return domainerrors.ErrVotingNotActive
		}
		weight, err := application.ResolveWeight(ctx, tx, caller, cmd.SessionID)
		if err != nil {
			return err
		}
		if cmd.Weight > weight.Own {
			return domainerrors.ErrInsufficientTokens
		}

		existing, found, err := tx.GetDelegation(ctx, caller, cmd.SessionID)
		if err != nil {
			return err
		}
		switch {
		case found && existing.Active:
			if existing.Delegate != delegate {
				return domainerrors.ErrInvalidDelegation
			}
			delegation = existing
			delegation.Weight += cmd.Weight
			delegation.DelegatedHeight = now
		default:
			delegation = entities.Delegation{
				Delegator:       caller,
				SessionID:       cmd.SessionID,
				Delegate:        delegate,
				Weight:          cmd.Weight,
				Active:          true,
				DelegatedHeight: now,
			}
		}
		if err := tx.SaveDelegation(ctx, delegation); err != nil {
			return err
		}

		power, err := tx.GetDelegatePower(ctx, delegate, cmd.SessionID)
		if err != nil {
			return err
		}
		power.Delegate = delegate
		power.SessionID = cmd.SessionID
		power.Power = application.SaturatingAdd(power.Power, cmd.Weight)
		if err := tx.SaveDelegatePower(ctx, power); err != nil {
			return err
		}
		return sink.append(ctx, tx, EventDelegationCreated, "delegation", caller, map[string]any{
			"session_id":   cmd.SessionID,
			"delegator":    caller,
			"delegate":     delegate,
			"weight":       cmd.Weight,
			"total_weight": delegation.Weight,
			"height":       now,
		})
	})
	if err != nil {
		logger.Warn("delegation rejected",
			"event", "governance_delegation_rejected",
			"module", "governance/voting-engine",
			"layer", "application",
			"session_id", cmd.SessionID,
			"delegator", caller,
			"delegate", delegate,
			"error", err.Error(),
		)
		return entities.Delegation{}, err
	}
	logger.Info("delegation recorded",
		"event", "governance_delegation_recorded",
		"module", "governance/voting-engine",
		"layer", "application",
		"session_id", cmd.SessionID,
		"delegator", caller,
		"delegate", delegate,
		"weight", delegation.Weight,
	)
	return delegation, nil
}

// RevokeDelegation withdraws the caller's whole delegation for the session.
// Weight the delegate has already spent on a commitment cannot be pulled
// back.
func (uc DelegationUseCase) RevokeDelegation(ctx context.Context, caller string, sessionID uint64) (entities.Delegation, error) {
	logger := application.ResolveLogger(uc.Logger)
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return entities.Delegation{}, domainerrors.ErrInvalidInput
	}
	now, err := currentHeight(ctx, uc.Heights)
	if err != nil {
		return entities.Delegation{}, err
	}

	sink := eventSink{idGen: uc.IDGen, clock: uc.Clock}
	var delegation entities.Delegation
	err = uc.Repo.Atomic(ctx, func(ctx context.Context, tx ports.Tx) error {
		var (
			found bool
			err   error
		)
		delegation, found, err = tx.GetDelegation(ctx, caller, sessionID)
		if err != nil {
			return err
		}
		if !found || !delegation.Active {
			return domainerrors.ErrInvalidDelegation
		}
		power, err := tx.GetDelegatePower(ctx, delegation.Delegate, sessionID)
		if err != nil {
			return err
		}
		if delegation.Weight > power.Unspent() {
			return domainerrors.ErrInvalidDelegation
		}
		power.Delegate = delegation.Delegate
		power.SessionID = sessionID
		power.Power -= delegation.Weight
		if err := tx.SaveDelegatePower(ctx, power); err != nil {
			return err
		}

		delegation.Active = false
		delegation.RevokedHeight = now
		if err := tx.SaveDelegation(ctx, delegation); err != nil {
			return err
		}
		return sink.append(ctx, tx, EventDelegationRevoked, "delegation", caller, map[string]any{
			"session_id": sessionID,
			"delegator":  caller,
			"delegate":   delegation.Delegate,
			"weight":     delegation.Weight,
			"height":     now,
		})
	})
	if err != nil {
		logger.Warn("delegation revoke rejected",
			"event", "governance_delegation_revoke_rejected",
			"module", "governance/voting-engine",
			"layer", "application",
			"session_id", sessionID,
			"delegator", caller,
			"error", err.Error(),
		)
		return entities.Delegation{}, err
	}
	logger.Info("delegation revoked",
		"event", "governance_delegation_revoked",
		"module", "governance/voting-engine",
		"layer", "application",
		"session_id", sessionID,
		"delegator", caller,
		"delegate", delegation.Delegate,
	)
	return delegation, nil
}
