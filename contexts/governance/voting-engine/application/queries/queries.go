package queries

import (
	"context"
	"slices"
	"sort"
	"strings"

	application "sealedgov/contexts/governance/voting-engine/application"
	"sealedgov/contexts/governance/voting-engine/domain/entities"
	domainerrors "sealedgov/contexts/governance/voting-engine/domain/errors"
	"sealedgov/contexts/governance/voting-engine/ports"

	"github.com/decred/dcrd/container/lru"
)

// SessionView is a stored session with the implicit phase folded in.
type SessionView struct {
	Session         entities.Session
	EffectiveStatus entities.SessionStatus
	QuorumMet       bool
	CurrentHeight   uint64
}

// SessionResults is the tally of a session with options ranked by weight.
type SessionResults struct {
	SessionID   uint64
	Status      entities.SessionStatus
	TotalVotes  uint64
	TotalWeight uint64
	QuorumMet   bool
	Options     []entities.VoteOption
	Final       bool
}

// NewResultCache returns nil for size 0, which disables caching.
func NewResultCache(size uint32) *lru.Map[uint64, SessionResults] {
	if size == 0 {
		return nil
	}
	return lru.NewMap[uint64, SessionResults](size)
}

type QueryUseCase struct {
	Repo    ports.Repository
	Heights ports.HeightSource
	// Results holds tallies of terminal sessions only; those never change.
	Results *lru.Map[uint64, SessionResults]
}

func (uc QueryUseCase) height(ctx context.Context) (uint64, error) {
	if uc.Heights == nil {
		return 0, domainerrors.ErrInvalidInput
	}
	return uc.Heights.CurrentHeight(ctx)
}

func (uc QueryUseCase) GetSession(ctx context.Context, sessionID uint64) (SessionView, error) {
	now, err := uc.height(ctx)
	if err != nil {
		return SessionView{}, err
	}
	var session entities.Session
	err = uc.Repo.View(ctx, func(ctx context.Context, r ports.Reader) error {
		session, err = r.GetSession(ctx, sessionID)
		return err
	})
	if err != nil {
		return SessionView{}, err
	}
	return SessionView{
		Session:         session,
		EffectiveStatus: session.EffectiveStatus(now),
		QuorumMet:       session.QuorumMet(),
		CurrentHeight:   now,
	}, nil
}

func (uc QueryUseCase) ListOptions(ctx context.Context, sessionID uint64) ([]entities.VoteOption, error) {
	var options []entities.VoteOption
	err := uc.Repo.View(ctx, func(ctx context.Context, r ports.Reader) error {
		if _, err := r.GetSession(ctx, sessionID); err != nil {
			return err
		}
		var err error
		options, err = r.ListOptions(ctx, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(options, func(i, j int) bool {
		return options[i].OptionID < options[j].OptionID
	})
	return options, nil
}

func (uc QueryUseCase) GetOptionResult(ctx context.Context, sessionID uint64, optionID uint64) (entities.VoteOption, error) {
	var (
		option entities.VoteOption
		found  bool
	)
	err := uc.Repo.View(ctx, func(ctx context.Context, r ports.Reader) error {
		var err error
		option, found, err = r.GetOption(ctx, sessionID, optionID)
		return err
	})
	if err != nil {
		return entities.VoteOption{}, err
	}
	if !found {
		return entities.VoteOption{}, domainerrors.ErrNotFound
	}
	return option, nil
}

func (uc QueryUseCase) GetReputation(ctx context.Context, voter string) (entities.Reputation, error) {
	voter = strings.TrimSpace(voter)
	var reputation entities.Reputation
	err := uc.Repo.View(ctx, func(ctx context.Context, r ports.Reader) error {
		var err error
		reputation, err = r.GetReputation(ctx, voter)
		return err
	})
	reputation.Voter = voter
	return reputation, err
}

func (uc QueryUseCase) GetTokenBalance(ctx context.Context, voter string) (entities.TokenBalance, error) {
	voter = strings.TrimSpace(voter)
	balance := entities.TokenBalance{Voter: voter}
	err := uc.Repo.View(ctx, func(ctx context.Context, r ports.Reader) error {
		var err error
		balance.Amount, err = r.GetBalance(ctx, voter)
		return err
	})
	return balance, err
}

func (uc QueryUseCase) GetAvailableWeight(ctx context.Context, voter string, sessionID uint64) (application.Weight, error) {
	var weight application.Weight
	err := uc.Repo.View(ctx, func(ctx context.Context, r ports.Reader) error {
		var err error
		weight, err = application.ResolveWeight(ctx, r, strings.TrimSpace(voter), sessionID)
		return err
	})
	return weight, err
}

func (uc QueryUseCase) GetDelegation(ctx context.Context, delegator string, sessionID uint64) (entities.Delegation, error) {
	var (
		delegation entities.Delegation
		found      bool
	)
	err := uc.Repo.View(ctx, func(ctx context.Context, r ports.Reader) error {
		var err error
		delegation, found, err = r.GetDelegation(ctx, strings.TrimSpace(delegator), sessionID)
		return err
	})
	if err != nil {
		return entities.Delegation{}, err
	}
	if !found {
		return entities.Delegation{}, domainerrors.ErrNotFound
	}
	return delegation, nil
}

func (uc QueryUseCase) GetDelegatePower(ctx context.Context, delegate string, sessionID uint64) (entities.DelegatePower, error) {
	delegate = strings.TrimSpace(delegate)
	var power entities.DelegatePower
	err := uc.Repo.View(ctx, func(ctx context.Context, r ports.Reader) error {
		var err error
		power, err = r.GetDelegatePower(ctx, delegate, sessionID)
		return err
	})
	power.Delegate = delegate
	power.SessionID = sessionID
	return power, err
}

// HasVoted reports whether a reveal has been recorded. A commitment alone
// does not count.
func (uc QueryUseCase) HasVoted(ctx context.Context, voter string, sessionID uint64) (bool, error) {
	var found bool
	err := uc.Repo.View(ctx, func(ctx context.Context, r ports.Reader) error {
		var err error
		_, found, err = r.GetRevealedVote(ctx, strings.TrimSpace(voter), sessionID)
		return err
	})
	return found, err
}

func (uc QueryUseCase) GetCommitment(ctx context.Context, voter string, sessionID uint64) (entities.VoteCommitment, error) {
	var (
		stored entities.VoteCommitment
		found  bool
	)
	err := uc.Repo.View(ctx, func(ctx context.Context, r ports.Reader) error {
		var err error
		stored, found, err = r.GetCommitment(ctx, strings.TrimSpace(voter), sessionID)
		return err
	})
	if err != nil {
		return entities.VoteCommitment{}, err
	}
	if !found {
		return entities.VoteCommitment{}, domainerrors.ErrNotFound
	}
	return stored, nil
}

func (uc QueryUseCase) QuorumMet(ctx context.Context, sessionID uint64) (bool, error) {
	var session entities.Session
	err := uc.Repo.View(ctx, func(ctx context.Context, r ports.Reader) error {
		var err error
		session, err = r.GetSession(ctx, sessionID)
		return err
	})
	if err != nil {
		return false, err
	}
	return session.QuorumMet(), nil
}

func (uc QueryUseCase) IsEmergencyMode(ctx context.Context) (bool, error) {
	settings, err := uc.GetSettings(ctx)
	return settings.EmergencyMode, err
}

func (uc QueryUseCase) GetSettings(ctx context.Context) (entities.Settings, error) {
	var settings entities.Settings
	err := uc.Repo.View(ctx, func(ctx context.Context, r ports.Reader) error {
		var err error
		settings, err = r.GetSettings(ctx)
		return err
	})
	return settings, err
}

func (uc QueryUseCase) GetVotingHistory(ctx context.Context, voter string) ([]entities.VotingHistory, error) {
	var history []entities.VotingHistory
	err := uc.Repo.View(ctx, func(ctx context.Context, r ports.Reader) error {
		var err error
		history, err = r.ListHistory(ctx, strings.TrimSpace(voter))
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(history, func(i, j int) bool {
		if history[i].Height == history[j].Height {
			return history[i].SessionID < history[j].SessionID
		}
		return history[i].Height < history[j].Height
	})
	return history, nil
}

// QuadraticCost looks up the reference cost table installed on a quadratic
// session.
func (uc QueryUseCase) QuadraticCost(ctx context.Context, sessionID uint64, votes uint64) (uint64, error) {
	var session entities.Session
	err := uc.Repo.View(ctx, func(ctx context.Context, r ports.Reader) error {
		var err error
		session, err = r.GetSession(ctx, sessionID)
		return err
	})
	if err != nil {
		return 0, err
	}
	if session.Mode != entities.VotingModeQuadratic {
		return 0, domainerrors.ErrInvalidInput
	}
	cost, ok := session.QuadraticCosts[votes]
	if !ok {
		return 0, domainerrors.ErrNotFound
	}
	return cost, nil
}

// SessionResults ranks options by total weight, then count, then id.
func (uc QueryUseCase) SessionResults(ctx context.Context, sessionID uint64) (SessionResults, error) {
	if uc.Results != nil {
		if cached, ok := uc.Results.Get(sessionID); ok {
			cached.Options = slices.Clone(cached.Options)
			return cached, nil
		}
	}
	now, err := uc.height(ctx)
	if err != nil {
		return SessionResults{}, err
	}

	var (
		session entities.Session
		options []entities.VoteOption
	)
	err = uc.Repo.View(ctx, func(ctx context.Context, r ports.Reader) error {
		var err error
		session, err = r.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		options, err = r.ListOptions(ctx, sessionID)
		return err
	})
	if err != nil {
		return SessionResults{}, err
	}
	sort.Slice(options, func(i, j int) bool {
		if options[i].TotalWeight != options[j].TotalWeight {
			return options[i].TotalWeight > options[j].TotalWeight
		}
		if options[i].Count != options[j].Count {
			return options[i].Count > options[j].Count
		}
		return options[i].OptionID < options[j].OptionID
	})

	status := session.EffectiveStatus(now)
	results := SessionResults{
		SessionID:   sessionID,
		Status:      status,
		TotalVotes:  session.TotalVotes,
		TotalWeight: session.TotalWeight,
		QuorumMet:   session.QuorumMet(),
		Options:     options,
		Final:       status != entities.SessionStatusActive,
	}
	if results.Final && uc.Results != nil {
		cached := results
		cached.Options = slices.Clone(options)
		uc.Results.Put(sessionID, cached)
	}
	return results, nil
}
