package queries

import (
	"context"
	"errors"
	"testing"

	"sealedgov/contexts/governance/voting-engine/adapters/memory"
	"sealedgov/contexts/governance/voting-engine/domain/entities"
	domainerrors "sealedgov/contexts/governance/voting-engine/domain/errors"
	"sealedgov/contexts/governance/voting-engine/ports"
)

func seedSession(t *testing.T, store *memory.Store, options ...entities.VoteOption) {
	t.Helper()
	err := store.Atomic(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		if err := tx.SaveSession(ctx, entities.Session{
			SessionID:      1,
			Title:          "budget",
			StartHeight:    10,
			CommitEnd:      20,
			RevealEnd:      30,
			Mode:           entities.VotingModeStandard,
			QuorumRequired: 3,
			TotalVotes:     3,
			TotalWeight:    50,
			Status:         entities.SessionStatusActive,
		}); err != nil {
			return err
		}
		for _, option := range options {
			option.SessionID = 1
			if err := tx.SaveOption(ctx, option); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

func TestSessionResultsRanking(t *testing.T) {
	store := memory.NewStore()
	store.SetHeight(25)
	seedSession(t, store,
		entities.VoteOption{OptionID: 1, Count: 1, TotalWeight: 10},
		entities.VoteOption{OptionID: 2, Count: 2, TotalWeight: 10},
		entities.VoteOption{OptionID: 3, Count: 0, TotalWeight: 0},
		entities.VoteOption{OptionID: 4, Count: 1, TotalWeight: 30},
	)
	uc := QueryUseCase{Repo: store, Heights: store, Results: NewResultCache(4)}

	results, err := uc.SessionResults(context.Background(), 1)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	want := []uint64{4, 2, 1, 3}
	for i, option := range results.Options {
		if option.OptionID != want[i] {
			t.Fatalf("position %d: expected option %d, got %d", i, want[i], option.OptionID)
		}
	}
	if results.Final || !results.QuorumMet || results.Status != entities.SessionStatusActive {
		t.Fatalf("unexpected summary %+v", results)
	}
}

func TestSessionResultsCachesOnlyTerminalTallies(t *testing.T) {
	store := memory.NewStore()
	store.SetHeight(25)
	seedSession(t, store, entities.VoteOption{OptionID: 1, Count: 1, TotalWeight: 10})
	uc := QueryUseCase{Repo: store, Heights: store, Results: NewResultCache(4)}

	if _, err := uc.SessionResults(context.Background(), 1); err != nil {
		t.Fatalf("results: %v", err)
	}
	if uc.Results.Exists(1) {
		t.Fatalf("active tally must not be cached")
	}

	store.SetHeight(30)
	first, err := uc.SessionResults(context.Background(), 1)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if !first.Final || first.Status != entities.SessionStatusEnded {
		t.Fatalf("expected final ended tally, got %+v", first)
	}
	if !uc.Results.Exists(1) {
		t.Fatalf("expected terminal tally to be cached")
	}
}

func TestQueriesRejectUnknownRows(t *testing.T) {
	store := memory.NewStore()
	seedSession(t, store, entities.VoteOption{OptionID: 1})
	uc := QueryUseCase{Repo: store, Heights: store}

	if _, err := uc.GetSession(context.Background(), 9); !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected not found session, got %v", err)
	}
	if _, err := uc.GetOptionResult(context.Background(), 1, 7); !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected not found option, got %v", err)
	}
	if _, err := uc.QuadraticCost(context.Background(), 1, 2); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected quadratic cost on a standard session to fail, got %v", err)
	}
	if voted, err := uc.HasVoted(context.Background(), "nobody", 1); err != nil || voted {
		t.Fatalf("expected has voted false, got %v err=%v", voted, err)
	}
}

func TestSessionResultsCacheIsNotAliased(t *testing.T) {
	store := memory.NewStore()
	store.SetHeight(30)
	seedSession(t, store,
		entities.VoteOption{OptionID: 1, Count: 2, TotalWeight: 20},
		entities.VoteOption{OptionID: 2, Count: 1, TotalWeight: 5},
	)
	uc := QueryUseCase{Repo: store, Heights: store, Results: NewResultCache(4)}

	first, err := uc.SessionResults(context.Background(), 1)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	first.Options[0].TotalWeight = 999

	cached, err := uc.SessionResults(context.Background(), 1)
	if err != nil {
		t.Fatalf("cached results: %v", err)
	}
	if cached.Options[0].TotalWeight != 20 {
		t.Fatalf("caller mutation leaked into cache: %+v", cached.Options[0])
	}
	cached.Options[0].OptionID = 42

	again, err := uc.SessionResults(context.Background(), 1)
	if err != nil {
		t.Fatalf("cached results: %v", err)
	}
	if again.Options[0].OptionID != 1 {
		t.Fatalf("cached read mutation leaked into cache: %+v", again.Options[0])
	}
}
