package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"sealedgov/contexts/governance/voting-engine/domain/entities"
	domainerrors "sealedgov/contexts/governance/voting-engine/domain/errors"
	"sealedgov/contexts/governance/voting-engine/ports"
	"sealedgov/internal/shared/events"
)

func TestAtomicRollsBackEveryWriteOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Atomic(ctx, func(ctx context.Context, tx ports.Tx) error {
		if err := tx.SaveBalance(ctx, "alice", 100); err != nil {
			return err
		}
		id, err := tx.NextSessionID(ctx)
		if err != nil {
			return err
		}
		if id != 1 {
			t.Fatalf("expected first session id 1, got %d", id)
		}
		if err := tx.AppendOutbox(ctx, events.Envelope{EventID: "evt-1", EventType: "x"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	err = store.View(ctx, func(ctx context.Context, r ports.Reader) error {
		balance, err := r.GetBalance(ctx, "alice")
		if err != nil {
			return err
		}
		if balance != 0 {
			t.Fatalf("expected rolled back balance, got %d", balance)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no outbox rows after rollback, got %d", len(pending))
	}

	err = store.Atomic(ctx, func(ctx context.Context, tx ports.Tx) error {
		id, err := tx.NextSessionID(ctx)
		if err != nil {
			return err
		}
		if id != 1 {
			t.Fatalf("expected session id to be reused after rollback, got %d", id)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("atomic failed: %v", err)
	}
}

func TestInsertCommitmentRejectsDuplicate(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	commitment := entities.VoteCommitment{Voter: "alice", SessionID: 1, Weight: 5}

	if err := store.Atomic(ctx, func(ctx context.Context, tx ports.Tx) error {
		return tx.InsertCommitment(ctx, commitment)
	}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	err := store.Atomic(ctx, func(ctx context.Context, tx ports.Tx) error {
		return tx.InsertCommitment(ctx, commitment)
	})
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}
}

func TestOutboxKeepsInsertionOrderAndMarksPublished(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Atomic(ctx, func(ctx context.Context, tx ports.Tx) error {
		for _, id := range []string{"evt-c", "evt-a", "evt-b"} {
			if err := tx.AppendOutbox(ctx, events.Envelope{EventID: id, EventType: "governance.test"}); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("append outbox failed: %v", err)
	}

	pending, err := store.ListPendingOutbox(ctx, 2)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "evt-c" || pending[1].ID != "evt-a" {
		t.Fatalf("unexpected pending order: %+v", pending)
	}
	if err := store.MarkOutboxPublished(ctx, "evt-c", time.Now()); err != nil {
		t.Fatalf("mark published failed: %v", err)
	}
	pending, err = store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "evt-a" {
		t.Fatalf("expected evt-a first after publish, got %+v", pending)
	}
	if err := store.MarkOutboxPublished(ctx, "missing", time.Now()); !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown outbox id, got %v", err)
	}
}

func TestRevealedVoteIsCopiedOnWrite(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	choices := []uint64{1, 2}
	vote := entities.RevealedVote{Voter: "bob", SessionID: 3, Choices: choices, Weights: []uint64{4, 6}}

	if err := store.Atomic(ctx, func(ctx context.Context, tx ports.Tx) error {
		return tx.InsertRevealedVote(ctx, vote)
	}); err != nil {
		t.Fatalf("insert reveal failed: %v", err)
	}
	choices[0] = 99

	err := store.View(ctx, func(ctx context.Context, r ports.Reader) error {
		stored, found, err := r.GetRevealedVote(ctx, "bob", 3)
		if err != nil {
			return err
		}
		if !found || stored.Choices[0] != 1 {
			t.Fatalf("expected stored choices to be isolated, got %+v", stored)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
}

func TestListActiveDelegationsFiltersByDelegator(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.Atomic(ctx, func(ctx context.Context, tx ports.Tx) error {
		for _, d := range []entities.Delegation{
			{Delegator: "alice", SessionID: 10, Delegate: "bob", Weight: 5, Active: true},
			{Delegator: "alice", SessionID: 2, Delegate: "bob", Weight: 7, Active: true},
			{Delegator: "alice", SessionID: 3, Delegate: "carol", Weight: 9, Active: false},
			{Delegator: "alicia", SessionID: 2, Delegate: "bob", Weight: 1, Active: true},
		} {
			if err := tx.SaveDelegation(ctx, d); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed delegations failed: %v", err)
	}
	err = store.View(ctx, func(ctx context.Context, r ports.Reader) error {
		items, err := r.ListActiveDelegations(ctx, "alice")
		if err != nil {
			return err
		}
		if len(items) != 2 || items[0].SessionID != 2 || items[1].SessionID != 10 {
			t.Fatalf("expected alice's active rows for sessions 2 and 10, got %+v", items)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
}
