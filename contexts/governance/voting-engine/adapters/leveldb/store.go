package leveldbadapter

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sealedgov/contexts/governance/voting-engine/domain/entities"
	domainerrors "sealedgov/contexts/governance/voting-engine/domain/errors"
	"sealedgov/contexts/governance/voting-engine/ports"
	"sealedgov/internal/shared/events"
	"sealedgov/internal/shared/outbox"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Store keeps the governance state in an embedded leveldb database. Atomic
// runs inside a leveldb transaction, which excludes every other writer until
// it commits or is discarded. View reads from a snapshot.
type Store struct {
	db     *leveldb.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		Strict: opt.DefaultStrict,
		Filter: filter.NewBloomFilter(10),
	})
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return newStore(db, logger), nil
}

// OpenMemory backs the store with in-memory leveldb storage.
func OpenMemory(logger *slog.Logger) (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open in-memory leveldb: %w", err)
	}
	return newStore(db, logger), nil
}

func newStore(db *leveldb.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ldbTx, err := s.db.OpenTransaction()
	if err != nil {
		return s.logError("governance_leveldb_open_tx_failed", err)
	}
	tx := &storeTx{kvReader: kvReader{src: ldbTx}, ldbTx: ldbTx}
	if err := fn(ctx, tx); err != nil {
		ldbTx.Discard()
		return err
	}
	if err := ldbTx.Commit(); err != nil {
		ldbTx.Discard()
		return s.logError("governance_leveldb_commit_failed", err)
	}
	return nil
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, r ports.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot, err := s.db.GetSnapshot()
	if err != nil {
		return s.logError("governance_leveldb_snapshot_failed", err)
	}
	defer snapshot.Release()
	return fn(ctx, kvReader{src: snapshot})
}

type storedOutbox struct {
	Seq     uint64
	Message outbox.Message
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]outbox.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	iter := s.db.NewIterator(util.BytesPrefix(outboxPendingPx), nil)
	defer iter.Release()

	items := make([]outbox.Message, 0, limit)
	for iter.Next() && len(items) < limit {
		raw, err := s.db.Get(outboxKey(string(iter.Value())), nil)
		if err != nil {
			return nil, s.logError("governance_leveldb_outbox_load_failed", err)
		}
		var record storedOutbox
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, err
		}
		items = append(items, record.Message)
	}
	if err := iter.Error(); err != nil {
		return nil, s.logError("governance_leveldb_outbox_iter_failed", err)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	ldbTx, err := s.db.OpenTransaction()
	if err != nil {
		return s.logError("governance_leveldb_open_tx_failed", err)
	}
	defer ldbTx.Discard()

	key := outboxKey(strings.TrimSpace(outboxID))
	raw, err := ldbTx.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return domainerrors.ErrNotFound
	}
	if err != nil {
		return s.logError("governance_leveldb_outbox_load_failed", err, "outbox_id", outboxID)
	}
	var record storedOutbox
	if err := json.Unmarshal(raw, &record); err != nil {
		return err
	}
	at := publishedAt.UTC()
	record.Message.Status = outbox.StatusPublished
	record.Message.PublishedAt = &at
	encoded, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := ldbTx.Put(key, encoded, nil); err != nil {
		return s.logError("governance_leveldb_outbox_put_failed", err, "outbox_id", outboxID)
	}
	if err := ldbTx.Delete(outboxPendingKey(record.Seq), nil); err != nil {
		return s.logError("governance_leveldb_outbox_unindex_failed", err, "outbox_id", outboxID)
	}
	return ldbTx.Commit()
}

func (s *Store) logError(event string, err error, attrs ...any) error {
	fields := append([]any{
		"event", event,
		"module", "governance/voting-engine",
		"layer", "adapter",
		"error", err.Error(),
	}, attrs...)
	s.logger.Error("governance leveldb operation failed", fields...)
	return err
}

// source is satisfied by both *leveldb.Transaction and *leveldb.Snapshot.
type source interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

type kvReader struct {
	src source
}

// getJSON decodes the value at key into out and reports whether it existed.
func (r kvReader) getJSON(key []byte, out any) (bool, error) {
	raw, err := r.src.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("leveldb get %q: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

func scanJSON[T any](r kvReader, prefix []byte) ([]T, error) {
	iter := r.src.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	items := make([]T, 0)
	for iter.Next() {
		var item T
		if err := json.Unmarshal(iter.Value(), &item); err != nil {
			return nil, fmt.Errorf("decode %q: %w", iter.Key(), err)
		}
		items = append(items, item)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r kvReader) getCounter(key []byte) (uint64, error) {
	raw, err := r.src.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("corrupt counter %q", key)
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (r kvReader) GetSettings(context.Context) (entities.Settings, error) {
	var settings entities.Settings
	_, err := r.getJSON(settingsKey, &settings)
	return settings, err
}

func (r kvReader) GetSession(_ context.Context, sessionID uint64) (entities.Session, error) {
	var session entities.Session
	found, err := r.getJSON(sessionKey(sessionID), &session)
	if err != nil {
		return entities.Session{}, err
	}
	if !found {
		return entities.Session{}, domainerrors.ErrNotFound
	}
	return session, nil
}

func (r kvReader) ListOptions(_ context.Context, sessionID uint64) ([]entities.VoteOption, error) {
	return scanJSON[entities.VoteOption](r, join(optionPrefix, be64(sessionID)))
}

func (r kvReader) GetOption(_ context.Context, sessionID uint64, optionID uint64) (entities.VoteOption, bool, error) {
	var option entities.VoteOption
	found, err := r.getJSON(optionKey(sessionID, optionID), &option)
	return option, found, err
}

func (r kvReader) GetCommitment(_ context.Context, voter string, sessionID uint64) (entities.VoteCommitment, bool, error) {
	var item entities.VoteCommitment
	found, err := r.getJSON(sessionScoped(commitPrefix, sessionID, strings.TrimSpace(voter)), &item)
	return item, found, err
}

func (r kvReader) GetRevealedVote(_ context.Context, voter string, sessionID uint64) (entities.RevealedVote, bool, error) {
	var item entities.RevealedVote
	found, err := r.getJSON(sessionScoped(revealPrefix, sessionID, strings.TrimSpace(voter)), &item)
	return item, found, err
}

func (r kvReader) ListRevealedVotes(_ context.Context, sessionID uint64) ([]entities.RevealedVote, error) {
	return scanJSON[entities.RevealedVote](r, join(revealPrefix, be64(sessionID)))
}

func (r kvReader) GetDelegation(_ context.Context, delegator string, sessionID uint64) (entities.Delegation, bool, error) {
	var item entities.Delegation
	found, err := r.getJSON(sessionScoped(delegatePrefix, sessionID, strings.TrimSpace(delegator)), &item)
	return item, found, err
}

// ListActiveDelegations scans every delegation row; keys lead with the
// session id, so there is no per-delegator prefix.
func (r kvReader) ListActiveDelegations(_ context.Context, delegator string) ([]entities.Delegation, error) {
	delegator = strings.TrimSpace(delegator)
	all, err := scanJSON[entities.Delegation](r, delegatePrefix)
	if err != nil {
		return nil, err
	}
	items := make([]entities.Delegation, 0)
	for _, item := range all {
		if item.Delegator == delegator && item.Active {
			items = append(items, item)
		}
	}
	return items, nil
}

func (r kvReader) GetDelegatePower(_ context.Context, delegate string, sessionID uint64) (entities.DelegatePower, error) {
	delegate = strings.TrimSpace(delegate)
	item := entities.DelegatePower{Delegate: delegate, SessionID: sessionID}
	_, err := r.getJSON(sessionScoped(powerPrefix, sessionID, delegate), &item)
	return item, err
}

func (r kvReader) GetReputation(_ context.Context, voter string) (entities.Reputation, error) {
	voter = strings.TrimSpace(voter)
	item := entities.Reputation{Voter: voter}
	_, err := r.getJSON(voterKey(reputePrefix, voter), &item)
	return item, err
}

func (r kvReader) GetBalance(_ context.Context, voter string) (uint64, error) {
	return r.getCounter(voterKey(balancePrefix, strings.TrimSpace(voter)))
}

func (r kvReader) ListHistory(_ context.Context, voter string) ([]entities.VotingHistory, error) {
	return scanJSON[entities.VotingHistory](r, historyVoterPrefix(strings.TrimSpace(voter)))
}

type storeTx struct {
	kvReader
	ldbTx *leveldb.Transaction
}

func (t *storeTx) putJSON(key []byte, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := t.ldbTx.Put(key, encoded, nil); err != nil {
		return fmt.Errorf("leveldb put %q: %w", key, err)
	}
	return nil
}

func (t *storeTx) putCounter(key []byte, value uint64) error {
	return t.ldbTx.Put(key, be64(value), nil)
}

func (t *storeTx) bump(key []byte) (uint64, error) {
	current, err := t.getCounter(key)
	if err != nil {
		return 0, err
	}
	if current == ^uint64(0) {
		return 0, domainerrors.ErrConflict
	}
	current++
	return current, t.putCounter(key, current)
}

func (t *storeTx) NextSessionID(context.Context) (uint64, error) {
	return t.bump(sessionSeqKey)
}

func (t *storeTx) SaveSettings(_ context.Context, settings entities.Settings) error {
	return t.putJSON(settingsKey, settings)
}

func (t *storeTx) SaveSession(_ context.Context, session entities.Session) error {
	return t.putJSON(sessionKey(session.SessionID), session)
}

func (t *storeTx) SaveOption(_ context.Context, option entities.VoteOption) error {
	return t.putJSON(optionKey(option.SessionID, option.OptionID), option)
}

func (t *storeTx) insertOnce(key []byte, value any) error {
	if _, err := t.ldbTx.Get(key, nil); err == nil {
		return domainerrors.ErrAlreadyVoted
	} else if !errors.Is(err, leveldb.ErrNotFound) {
		return err
	}
	return t.putJSON(key, value)
}

func (t *storeTx) InsertCommitment(_ context.Context, commitment entities.VoteCommitment) error {
	return t.insertOnce(sessionScoped(commitPrefix, commitment.SessionID, commitment.Voter), commitment)
}

func (t *storeTx) InsertRevealedVote(_ context.Context, vote entities.RevealedVote) error {
	return t.insertOnce(sessionScoped(revealPrefix, vote.SessionID, vote.Voter), vote)
}

func (t *storeTx) SaveDelegation(_ context.Context, delegation entities.Delegation) error {
	return t.putJSON(sessionScoped(delegatePrefix, delegation.SessionID, delegation.Delegator), delegation)
}

func (t *storeTx) SaveDelegatePower(_ context.Context, power entities.DelegatePower) error {
	return t.putJSON(sessionScoped(powerPrefix, power.SessionID, power.Delegate), power)
}

func (t *storeTx) SaveReputation(_ context.Context, reputation entities.Reputation) error {
	return t.putJSON(voterKey(reputePrefix, reputation.Voter), reputation)
}

func (t *storeTx) SaveBalance(_ context.Context, voter string, amount uint64) error {
	return t.putCounter(voterKey(balancePrefix, strings.TrimSpace(voter)), amount)
}

func (t *storeTx) AppendHistory(_ context.Context, entry entities.VotingHistory) error {
	return t.putJSON(historyKey(entry.Voter, entry.SessionID), entry)
}

func (t *storeTx) AppendOutbox(_ context.Context, envelope events.Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	id := strings.TrimSpace(envelope.EventID)
	if id == "" {
		return domainerrors.ErrInvalidInput
	}
	if _, err := t.ldbTx.Get(outboxKey(id), nil); err == nil {
		return domainerrors.ErrConflict
	} else if !errors.Is(err, leveldb.ErrNotFound) {
		return err
	}
	seq, err := t.bump(outboxSeqKey)
	if err != nil {
		return err
	}
	record := storedOutbox{
		Seq: seq,
		Message: outbox.Message{
			ID:        id,
			EventType: envelope.EventType,
			Payload:   payload,
			Status:    outbox.StatusPending,
			CreatedAt: envelope.OccurredAtUTC.UTC(),
		},
	}
	if err := t.putJSON(outboxKey(id), record); err != nil {
		return err
	}
	return t.ldbTx.Put(outboxPendingKey(seq), []byte(id), nil)
}

var (
	_ ports.Repository       = (*Store)(nil)
	_ ports.OutboxRepository = (*Store)(nil)
	_ ports.Tx               = (*storeTx)(nil)
)
