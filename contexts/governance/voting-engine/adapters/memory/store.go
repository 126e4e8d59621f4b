package memory

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"sealedgov/contexts/governance/voting-engine/domain/entities"
	domainerrors "sealedgov/contexts/governance/voting-engine/domain/errors"
	"sealedgov/contexts/governance/voting-engine/ports"
	"sealedgov/internal/shared/events"
	"sealedgov/internal/shared/outbox"

	"github.com/google/uuid"
)

type optionKey struct {
	sessionID uint64
	optionID  uint64
}

type voterKey struct {
	voter     string
	sessionID uint64
}

type outboxRecord struct {
	seq     uint64
	message outbox.Message
}

// Store is the in-process repository. Atomic holds the write lock for the
// whole unit of work; View takes the read lock.
type Store struct {
	mu sync.RWMutex

	settings    table[struct{}, entities.Settings]
	sessions    table[uint64, entities.Session]
	options     table[optionKey, entities.VoteOption]
	commitments table[voterKey, entities.VoteCommitment]
	reveals     table[voterKey, entities.RevealedVote]
	delegations table[voterKey, entities.Delegation]
	power       table[voterKey, entities.DelegatePower]
	reputation  table[string, entities.Reputation]
	balances    table[string, uint64]
	history     table[voterKey, entities.VotingHistory]
	outbox      table[string, outboxRecord]

	lastSessionID uint64
	outboxSeq     uint64

	height atomic.Uint64
}

func NewStore() *Store {
	return &Store{
		settings:    newTable[struct{}, entities.Settings](),
		sessions:    newTable[uint64, entities.Session](),
		options:     newTable[optionKey, entities.VoteOption](),
		commitments: newTable[voterKey, entities.VoteCommitment](),
		reveals:     newTable[voterKey, entities.RevealedVote](),
		delegations: newTable[voterKey, entities.Delegation](),
		power:       newTable[voterKey, entities.DelegatePower](),
		reputation:  newTable[string, entities.Reputation](),
		balances:    newTable[string, uint64](),
		history:     newTable[voterKey, entities.VotingHistory](),
		outbox:      newTable[string, outboxRecord](),
	}
}

func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &storeTx{reader: reader{store: s}, lastSessionID: s.lastSessionID, outboxSeq: s.outboxSeq}
	if err := fn(ctx, tx); err != nil {
		s.rollback()
		return err
	}
	s.commit()
	s.lastSessionID = tx.lastSessionID
	s.outboxSeq = tx.outboxSeq
	return nil
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, r ports.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(ctx, reader{store: s})
}

func (s *Store) commit() {
	s.settings.commit()
	s.sessions.commit()
	s.options.commit()
	s.commitments.commit()
	s.reveals.commit()
	s.delegations.commit()
	s.power.commit()
	s.reputation.commit()
	s.balances.commit()
	s.history.commit()
	s.outbox.commit()
}

func (s *Store) rollback() {
	s.settings.rollback()
	s.sessions.rollback()
	s.options.rollback()
	s.commitments.rollback()
	s.reveals.rollback()
	s.delegations.rollback()
	s.power.rollback()
	s.reputation.rollback()
	s.balances.rollback()
	s.history.rollback()
	s.outbox.rollback()
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]outbox.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]outboxRecord, 0)
	s.outbox.each(func(_ string, record outboxRecord) {
		if record.message.Status == outbox.StatusPending {
			records = append(records, record)
		}
	})
	sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	items := make([]outbox.Message, 0, len(records))
	for _, record := range records {
		items = append(items, record.message)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.outbox.base[outboxID]
	if !ok {
		return domainerrors.ErrNotFound
	}
	at := publishedAt.UTC()
	record.message.Status = outbox.StatusPublished
	record.message.PublishedAt = &at
	s.outbox.base[outboxID] = record
	return nil
}

// SetHeight pins the height reported by CurrentHeight. Used by tests and
// single-process deployments that drive height by hand.
func (s *Store) SetHeight(height uint64) {
	s.height.Store(height)
}

func (s *Store) AdvanceHeight(delta uint64) uint64 {
	return s.height.Add(delta)
}

func (s *Store) CurrentHeight(context.Context) (uint64, error) {
	return s.height.Load(), nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(context.Context) (string, error) {
	return uuid.NewString(), nil
}

type reader struct {
	store *Store
}

func (r reader) GetSettings(context.Context) (entities.Settings, error) {
	settings, _ := r.store.settings.get(struct{}{})
	return settings, nil
}

func (r reader) GetSession(_ context.Context, sessionID uint64) (entities.Session, error) {
	session, ok := r.store.sessions.get(sessionID)
	if !ok {
		return entities.Session{}, domainerrors.ErrNotFound
	}
	session.QuadraticCosts = maps.Clone(session.QuadraticCosts)
	return session, nil
}

func (r reader) ListOptions(_ context.Context, sessionID uint64) ([]entities.VoteOption, error) {
	items := make([]entities.VoteOption, 0)
	r.store.options.each(func(key optionKey, option entities.VoteOption) {
		if key.sessionID == sessionID {
			items = append(items, option)
		}
	})
	sort.Slice(items, func(i, j int) bool { return items[i].OptionID < items[j].OptionID })
	return items, nil
}

func (r reader) GetOption(_ context.Context, sessionID uint64, optionID uint64) (entities.VoteOption, bool, error) {
	option, ok := r.store.options.get(optionKey{sessionID: sessionID, optionID: optionID})
	return option, ok, nil
}

func (r reader) GetCommitment(_ context.Context, voter string, sessionID uint64) (entities.VoteCommitment, bool, error) {
	item, ok := r.store.commitments.get(voterKey{voter: strings.TrimSpace(voter), sessionID: sessionID})
	return item, ok, nil
}

func (r reader) GetRevealedVote(_ context.Context, voter string, sessionID uint64) (entities.RevealedVote, bool, error) {
	item, ok := r.store.reveals.get(voterKey{voter: strings.TrimSpace(voter), sessionID: sessionID})
	if ok {
		item = cloneReveal(item)
	}
	return item, ok, nil
}

func (r reader) ListRevealedVotes(_ context.Context, sessionID uint64) ([]entities.RevealedVote, error) {
	items := make([]entities.RevealedVote, 0)
	r.store.reveals.each(func(key voterKey, item entities.RevealedVote) {
		if key.sessionID == sessionID {
			items = append(items, cloneReveal(item))
		}
	})
	sort.Slice(items, func(i, j int) bool {
		if items[i].RevealedHeight == items[j].RevealedHeight {
			return items[i].Voter < items[j].Voter
		}
		return items[i].RevealedHeight < items[j].RevealedHeight
	})
	return items, nil
}

func (r reader) GetDelegation(_ context.Context, delegator string, sessionID uint64) (entities.Delegation, bool, error) {
	item, ok := r.store.delegations.get(voterKey{voter: strings.TrimSpace(delegator), sessionID: sessionID})
	return item, ok, nil
}

func (r reader) ListActiveDelegations(_ context.Context, delegator string) ([]entities.Delegation, error) {
	delegator = strings.TrimSpace(delegator)
	items := make([]entities.Delegation, 0)
	r.store.delegations.each(func(key voterKey, item entities.Delegation) {
		if key.voter == delegator && item.Active {
			items = append(items, item)
		}
	})
	sort.Slice(items, func(i, j int) bool { return items[i].SessionID < items[j].SessionID })
	return items, nil
}

func (r reader) GetDelegatePower(_ context.Context, delegate string, sessionID uint64) (entities.DelegatePower, error) {
	delegate = strings.TrimSpace(delegate)
	item, ok := r.store.power.get(voterKey{voter: delegate, sessionID: sessionID})
	if !ok {
		return entities.DelegatePower{Delegate: delegate, SessionID: sessionID}, nil
	}
	return item, nil
}

func (r reader) GetReputation(_ context.Context, voter string) (entities.Reputation, error) {
	voter = strings.TrimSpace(voter)
	item, ok := r.store.reputation.get(voter)
	if !ok {
		return entities.Reputation{Voter: voter}, nil
	}
	return item, nil
}

func (r reader) GetBalance(_ context.Context, voter string) (uint64, error) {
	amount, _ := r.store.balances.get(strings.TrimSpace(voter))
	return amount, nil
}

func (r reader) ListHistory(_ context.Context, voter string) ([]entities.VotingHistory, error) {
	voter = strings.TrimSpace(voter)
	items := make([]entities.VotingHistory, 0)
	r.store.history.each(func(key voterKey, item entities.VotingHistory) {
		if key.voter == voter {
			items = append(items, item)
		}
	})
	sort.Slice(items, func(i, j int) bool { return items[i].SessionID < items[j].SessionID })
	return items, nil
}

type storeTx struct {
	reader
	lastSessionID uint64
	outboxSeq     uint64
}

func (t *storeTx) NextSessionID(context.Context) (uint64, error) {
	if t.lastSessionID == ^uint64(0) {
		return 0, domainerrors.ErrConflict
	}
	t.lastSessionID++
	return t.lastSessionID, nil
}

func (t *storeTx) SaveSettings(_ context.Context, settings entities.Settings) error {
	t.store.settings.put(struct{}{}, settings)
	return nil
}

func (t *storeTx) SaveSession(_ context.Context, session entities.Session) error {
	session.QuadraticCosts = maps.Clone(session.QuadraticCosts)
	t.store.sessions.put(session.SessionID, session)
	return nil
}

func (t *storeTx) SaveOption(_ context.Context, option entities.VoteOption) error {
	t.store.options.put(optionKey{sessionID: option.SessionID, optionID: option.OptionID}, option)
	return nil
}

func (t *storeTx) InsertCommitment(_ context.Context, commitment entities.VoteCommitment) error {
	key := voterKey{voter: commitment.Voter, sessionID: commitment.SessionID}
	if _, exists := t.store.commitments.get(key); exists {
		return domainerrors.ErrAlreadyVoted
	}
	t.store.commitments.put(key, commitment)
	return nil
}

func (t *storeTx) InsertRevealedVote(_ context.Context, vote entities.RevealedVote) error {
	key := voterKey{voter: vote.Voter, sessionID: vote.SessionID}
	if _, exists := t.store.reveals.get(key); exists {
		return domainerrors.ErrAlreadyVoted
	}
	t.store.reveals.put(key, cloneReveal(vote))
	return nil
}

func (t *storeTx) SaveDelegation(_ context.Context, delegation entities.Delegation) error {
	t.store.delegations.put(voterKey{voter: delegation.Delegator, sessionID: delegation.SessionID}, delegation)
	return nil
}

func (t *storeTx) SaveDelegatePower(_ context.Context, power entities.DelegatePower) error {
	t.store.power.put(voterKey{voter: power.Delegate, sessionID: power.SessionID}, power)
	return nil
}

func (t *storeTx) SaveReputation(_ context.Context, reputation entities.Reputation) error {
	t.store.reputation.put(reputation.Voter, reputation)
	return nil
}

func (t *storeTx) SaveBalance(_ context.Context, voter string, amount uint64) error {
	t.store.balances.put(strings.TrimSpace(voter), amount)
	return nil
}

func (t *storeTx) AppendHistory(_ context.Context, entry entities.VotingHistory) error {
	t.store.history.put(voterKey{voter: entry.Voter, sessionID: entry.SessionID}, entry)
	return nil
}

func (t *storeTx) AppendOutbox(_ context.Context, envelope events.Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	t.outboxSeq++
	t.store.outbox.put(envelope.EventID, outboxRecord{
		seq: t.outboxSeq,
		message: outbox.Message{
			ID:        envelope.EventID,
			EventType: envelope.EventType,
			Payload:   payload,
			Status:    outbox.StatusPending,
			CreatedAt: envelope.OccurredAtUTC,
		},
	})
	return nil
}

func cloneReveal(vote entities.RevealedVote) entities.RevealedVote {
	vote.Choices = slices.Clone(vote.Choices)
	vote.Weights = slices.Clone(vote.Weights)
	return vote
}

var (
	_ ports.Repository       = (*Store)(nil)
	_ ports.OutboxRepository = (*Store)(nil)
	_ ports.HeightSource     = (*Store)(nil)
	_ ports.Clock            = (*Store)(nil)
	_ ports.IDGenerator      = (*Store)(nil)
	_ ports.Tx               = (*storeTx)(nil)
)
