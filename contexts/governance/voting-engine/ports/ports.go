package ports

import (
	"context"
	"time"

	"sealedgov/contexts/governance/voting-engine/domain/entities"
	"sealedgov/internal/shared/events"
	"sealedgov/internal/shared/outbox"
)

// Reader is the read side of the governance state. Lookups keyed by
// (voter, session) return found=false instead of an error when the row is
// absent. Reputation, balances and delegate power default to zero.
type Reader interface {
	GetSettings(ctx context.Context) (entities.Settings, error)
	GetSession(ctx context.Context, sessionID uint64) (entities.Session, error)
	ListOptions(ctx context.Context, sessionID uint64) ([]entities.VoteOption, error)
	GetOption(ctx context.Context, sessionID uint64, optionID uint64) (entities.VoteOption, bool, error)
	GetCommitment(ctx context.Context, voter string, sessionID uint64) (entities.VoteCommitment, bool, error)
	GetRevealedVote(ctx context.Context, voter string, sessionID uint64) (entities.RevealedVote, bool, error)
	ListRevealedVotes(ctx context.Context, sessionID uint64) ([]entities.RevealedVote, error)
	GetDelegation(ctx context.Context, delegator string, sessionID uint64) (entities.Delegation, bool, error)
	// ListActiveDelegations returns the delegator's active rows across all
	// sessions, ordered by session id.
	ListActiveDelegations(ctx context.Context, delegator string) ([]entities.Delegation, error)
	GetDelegatePower(ctx context.Context, delegate string, sessionID uint64) (entities.DelegatePower, error)
	GetReputation(ctx context.Context, voter string) (entities.Reputation, error)
	GetBalance(ctx context.Context, voter string) (uint64, error)
	ListHistory(ctx context.Context, voter string) ([]entities.VotingHistory, error)
}

// Tx is a unit of work. Every write made through a Tx lands together or
// not at all.
type Tx interface {
	Reader

	NextSessionID(ctx context.Context) (uint64, error)
	SaveSettings(ctx context.Context, settings entities.Settings) error
	SaveSession(ctx context.Context, session entities.Session) error
	SaveOption(ctx context.Context, option entities.VoteOption) error
	// InsertCommitment and InsertRevealedVote fail with ErrAlreadyVoted when
	// the (voter, session) row exists.
	InsertCommitment(ctx context.Context, commitment entities.VoteCommitment) error
	InsertRevealedVote(ctx context.Context, vote entities.RevealedVote) error
	SaveDelegation(ctx context.Context, delegation entities.Delegation) error
	SaveDelegatePower(ctx context.Context, power entities.DelegatePower) error
	SaveReputation(ctx context.Context, reputation entities.Reputation) error
	SaveBalance(ctx context.Context, voter string, amount uint64) error
	AppendHistory(ctx context.Context, entry entities.VotingHistory) error
	AppendOutbox(ctx context.Context, envelope events.Envelope) error
}

// Repository serializes writers: Atomic runs fn as one transaction, View
// runs fn against a consistent snapshot.
type Repository interface {
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	View(ctx context.Context, fn func(ctx context.Context, r Reader) error) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]outbox.Message, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event events.Envelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, events.Envelope) error,
	) error
}

// HeightSource supplies the monotonic block-height counter that timing gates
// are evaluated against. It is read once per operation, never awaited.
type HeightSource interface {
	CurrentHeight(ctx context.Context) (uint64, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// SignatureVerifier checks the optional reveal signature over the
// commitment digest.
type SignatureVerifier interface {
	Verify(ctx context.Context, voter string, digest entities.Digest, signature []byte) error
}

// ExecutionHook is the call-point invoked when an auto-execute session meets
// quorum on a reveal. What runs on the other side is not the engine's
// concern.
type ExecutionHook interface {
	Execute(ctx context.Context, sessionID uint64) error
}
