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

// LedgerUseCase covers token balances, reputation and the engine-wide
// switches. Everything except Transfer is administrator-only.
type LedgerUseCase struct {
	Repo           ports.Repository
	Heights        ports.HeightSource
	IDGen          ports.IDGenerator
	Clock          ports.Clock
	Administrators []string
	Logger         *slog.Logger
}

func (uc LedgerUseCase) Mint(ctx context.Context, caller string, recipient string, amount uint64) (uint64, error) {
	logger := application.ResolveLogger(uc.Logger)
	caller = strings.TrimSpace(caller)
	recipient = strings.TrimSpace(recipient)
	if !isAdministrator(uc.Administrators, caller) {
		return 0, domainerrors.ErrNotAuthorized
	}
	if recipient == "" || amount == 0 {
		return 0, domainerrors.ErrInvalidInput
	}

	sink := eventSink{idGen: uc.IDGen, clock: uc.Clock}
	var balance uint64
	err := uc.Repo.Atomic(ctx, func(ctx context.Context, tx ports.Tx) error {
		current, err := tx.GetBalance(ctx, recipient)
		if err != nil {
			return err
		}
		next, ok := application.CheckedAdd(current, amount)
		if !ok {
			return domainerrors.ErrInvalidInput
		}
		if err := tx.SaveBalance(ctx, recipient, next); err != nil {
			return err
		}
		balance = next
		return sink.append(ctx, tx, EventTokensMinted, "balance", recipient, map[string]any{
			"recipient": recipient,
			"amount":    amount,
			"balance":   next,
			"minted_by": caller,
		})
	})
	if err != nil {
		logger.Warn("mint rejected",
			"event", "governance_ledger_mint_rejected",
			"module", "governance/voting-engine",
			"layer", "application",
			"recipient", recipient,
			"error", err.Error(),
		)
		return 0, err
	}
	logger.Info("tokens minted",
		"event", "governance_ledger_minted",
		"module", "governance/voting-engine",
		"layer", "application",
		"recipient", recipient,
		"amount", amount,
	)
	return balance, nil
}

func (uc LedgerUseCase) Transfer(ctx context.Context, caller string, recipient string, amount uint64) error {
	logger := application.ResolveLogger(uc.Logger)
	caller = strings.TrimSpace(caller)
	recipient = strings.TrimSpace(recipient)
	if caller == "" || recipient == "" || caller == recipient || amount == 0 {
		return domainerrors.ErrInvalidInput
	}

	now, err := currentHeight(ctx, uc.Heights)
	if err != nil {
		return err
	}

	sink := eventSink{idGen: uc.IDGen, clock: uc.Clock}
	err = uc.Repo.Atomic(ctx, func(ctx context.Context, tx ports.Tx) error {
		from, err := tx.GetBalance(ctx, caller)
		if err != nil {
			return err
		}
		locked, err := lockedByDelegation(ctx, tx, caller, now)
		if err != nil {
			return err
		}
		if locked > from || amount > from-locked {
			return domainerrors.ErrInsufficientTokens
		}
		to, err := tx.GetBalance(ctx, recipient)
		if err != nil {
			return err
		}
		credited, ok := application.CheckedAdd(to, amount)
		if !ok {
			return domainerrors.ErrInvalidInput
		}
		if err := tx.SaveBalance(ctx, caller, from-amount); err != nil {
			return err
		}
		if err := tx.SaveBalance(ctx, recipient, credited); err != nil {
			return err
		}
		return sink.append(ctx, tx, EventTokensTransferred, "balance", caller, map[string]any{
			"from":   caller,
			"to":     recipient,
			"amount": amount,
		})
	})
	if err != nil {
		logger.Warn("transfer rejected",
			"event", "governance_ledger_transfer_rejected",
			"module", "governance/voting-engine",
			"layer", "application",
			"from", caller,
			"to", recipient,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("tokens transferred",
		"event", "governance_ledger_transferred",
		"module", "governance/voting-engine",
		"layer", "application",
		"from", caller,
		"to", recipient,
		"amount", amount,
	)
	return nil
}

func (uc LedgerUseCase) AdjustReputation(ctx context.Context, caller string, user string, delta int64) (entities.Reputation, error) {
	logger := application.ResolveLogger(uc.Logger)
	caller = strings.TrimSpace(caller)
	user = strings.TrimSpace(user)
	if !isAdministrator(uc.Administrators, caller) {
		return entities.Reputation{}, domainerrors.ErrNotAuthorized
	}
	if user == "" {
		return entities.Reputation{}, domainerrors.ErrInvalidInput
	}
	now, err := currentHeight(ctx, uc.Heights)
	if err != nil {
		return entities.Reputation{}, err
	}

	sink := eventSink{idGen: uc.IDGen, clock: uc.Clock}
	var reputation entities.Reputation
	err = uc.Repo.Atomic(ctx, func(ctx context.Context, tx ports.Tx) error {
		current, err := tx.GetReputation(ctx, user)
		if err != nil {
			return err
		}
		current.Voter = user
		reputation = current.Adjust(delta, now)
		if err := tx.SaveReputation(ctx, reputation); err != nil {
			return err
		}
		return sink.append(ctx, tx, EventReputationAdjusted, "reputation", user, map[string]any{
			"user":        user,
			"delta":       delta,
			"score":       reputation.Score,
			"penalties":   reputation.Penalties,
			"adjusted_by": caller,
		})
	})
	if err != nil {
		return entities.Reputation{}, err
	}
	logger.Info("reputation adjusted",
		"event", "governance_reputation_adjusted",
		"module", "governance/voting-engine",
		"layer", "application",
		"user", user,
		"delta", delta,
		"score", reputation.Score,
	)
	return reputation, nil
}

func (uc LedgerUseCase) ActivateEmergency(ctx context.Context, caller string) error {
	return uc.updateSettings(ctx, caller, EventEmergencyChanged, func(settings *entities.Settings) {
		settings.EmergencyMode = true
	})
}

func (uc LedgerUseCase) DeactivateEmergency(ctx context.Context, caller string) error {
	return uc.updateSettings(ctx, caller, EventEmergencyChanged, func(settings *entities.Settings) {
		settings.EmergencyMode = false
	})
}

func (uc LedgerUseCase) SetDelegationEnabled(ctx context.Context, caller string, enabled bool) error {
	return uc.updateSettings(ctx, caller, EventDelegationPolicyChanged, func(settings *entities.Settings) {
		settings.DelegationDisabled = !enabled
	})
}

func (uc LedgerUseCase) updateSettings(
	ctx context.Context,
	caller string,
	eventType string,
	mutate func(*entities.Settings),
) error {
	logger := application.ResolveLogger(uc.Logger)
	caller = strings.TrimSpace(caller)
	if !isAdministrator(uc.Administrators, caller) {
		logger.Warn("settings change denied",
			"event", "governance_settings_change_denied",
			"module", "governance/voting-engine",
			"layer", "application",
			"caller", caller,
			"event_type", eventType,
		)
		return domainerrors.ErrNotAuthorized
	}
	now, err := currentHeight(ctx, uc.Heights)
	if err != nil {
		return err
	}

	sink := eventSink{idGen: uc.IDGen, clock: uc.Clock}
	var settings entities.Settings
	err = uc.Repo.Atomic(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		settings, err = tx.GetSettings(ctx)
		if err != nil {
			return err
		}
		mutate(&settings)
		settings.UpdatedHeight = now
		if err := tx.SaveSettings(ctx, settings); err != nil {
			return err
		}
		return sink.append(ctx, tx, eventType, "settings", "global", map[string]any{
			"emergency_mode":      settings.EmergencyMode,
			"delegation_disabled": settings.DelegationDisabled,
			"changed_by":          caller,
			"height":              now,
		})
	})
	if err != nil {
		return err
	}
	logger.Info("settings changed",
		"event", "governance_settings_changed",
		"module", "governance/voting-engine",
		"layer", "application",
		"caller", caller,
		"emergency_mode", settings.EmergencyMode,
		"delegation_disabled", settings.DelegationDisabled,
	)
	return nil
}

// lockedByDelegation sums what the voter has delegated out on sessions that
// are still open. Those tokens already count toward a delegate's power and
// cannot leave the account until the session ends or the delegation is
// revoked.
func lockedByDelegation(ctx context.Context, tx ports.Tx, voter string, now uint64) (uint64, error) {
	delegations, err := tx.ListActiveDelegations(ctx, voter)
	if err != nil {
		return 0, err
	}
	var locked uint64
	for _, delegation := range delegations {
		session, err := tx.GetSession(ctx, delegation.SessionID)
		if err != nil {
			return 0, err
		}
		if session.EffectiveStatus(now) != entities.SessionStatusActive {
			continue
		}
		sum, ok := application.CheckedAdd(locked, delegation.Weight)
		if !ok {
			return 0, domainerrors.ErrInvalidInput
		}
		locked = sum
	}
	return locked, nil
}
