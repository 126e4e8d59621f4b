package postgresadapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"sealedgov/contexts/governance/voting-engine/domain/entities"
	domainerrors "sealedgov/contexts/governance/voting-engine/domain/errors"
	"sealedgov/contexts/governance/voting-engine/ports"
	"sealedgov/internal/shared/events"
	"sealedgov/internal/shared/outbox"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const sessionSequence = "session_id"

// Repository runs every Atomic call as one serializable transaction.
// Concurrent writers that collide surface as ErrConflict; the caller decides
// whether to resubmit.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates the governance tables.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
		return r.logError("governance_repo_migrate_failed", err)
	}
	return nil
}

func (r *Repository) Atomic(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(ctx, &pgTx{pgReader: pgReader{db: db, repo: r}})
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if isSerializationFailure(err) {
		return domainerrors.ErrConflict
	}
	return err
}

func (r *Repository) View(ctx context.Context, fn func(ctx context.Context, reader ports.Reader) error) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(ctx, pgReader{db: db, repo: r})
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]outbox.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outbox.StatusPending).
		Order("created_at ASC").
		Order("outbox_id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]outbox.Message, 0, len(rows))
	for _, row := range rows {
		items = append(items, outbox.Message{
			ID:         row.OutboxID,
			EventType:  row.EventType,
			Payload:    append([]byte(nil), row.Payload...),
			Status:     row.Status,
			RetryCount: row.RetryCount,
			CreatedAt:  row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outbox.StatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("governance_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := append([]any{
		"event", event,
		"module", "governance/voting-engine",
		"layer", "adapter",
		"error", err.Error(),
	}, attrs...)
	r.logger.Error("governance repository operation failed", fields...)
	return err
}

type pgReader struct {
	db   *gorm.DB
	repo *Repository
}

func (p pgReader) GetSettings(ctx context.Context) (entities.Settings, error) {
	var row settingsModel
	err := p.db.WithContext(ctx).Where("id = ?", settingsRowID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Settings{}, nil
		}
		return entities.Settings{}, p.repo.logError("governance_repo_get_settings_failed", err)
	}
	return entities.Settings{
		EmergencyMode:      row.EmergencyMode,
		DelegationDisabled: row.DelegationDisabled,
		UpdatedHeight:      row.UpdatedHeight,
	}, nil
}

func (p pgReader) GetSession(ctx context.Context, sessionID uint64) (entities.Session, error) {
	var row sessionModel
	err := p.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Session{}, domainerrors.ErrNotFound
		}
		return entities.Session{}, p.repo.logError("governance_repo_get_session_failed", err, "session_id", sessionID)
	}
	return row.toEntity(), nil
}

func (p pgReader) ListOptions(ctx context.Context, sessionID uint64) ([]entities.VoteOption, error) {
	var rows []optionModel
	if err := p.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("option_id ASC").
		Find(&rows).Error; err != nil {
		return nil, p.repo.logError("governance_repo_list_options_failed", err, "session_id", sessionID)
	}
	items := make([]entities.VoteOption, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (p pgReader) GetOption(ctx context.Context, sessionID uint64, optionID uint64) (entities.VoteOption, bool, error) {
	var row optionModel
	err := p.db.WithContext(ctx).
		Where("session_id = ? AND option_id = ?", sessionID, optionID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VoteOption{}, false, nil
		}
		return entities.VoteOption{}, false, p.repo.logError("governance_repo_get_option_failed", err,
			"session_id", sessionID,
			"option_id", optionID,
		)
	}
	return row.toEntity(), true, nil
}

func (p pgReader) GetCommitment(ctx context.Context, voter string, sessionID uint64) (entities.VoteCommitment, bool, error) {
	var row commitmentModel
	err := p.db.WithContext(ctx).
		Where("voter = ? AND session_id = ?", strings.TrimSpace(voter), sessionID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VoteCommitment{}, false, nil
		}
		return entities.VoteCommitment{}, false, p.repo.logError("governance_repo_get_commitment_failed", err,
			"voter", strings.TrimSpace(voter),
			"session_id", sessionID,
		)
	}
	return row.toEntity(), true, nil
}

func (p pgReader) GetRevealedVote(ctx context.Context, voter string, sessionID uint64) (entities.RevealedVote, bool, error) {
	var row revealModel
	err := p.db.WithContext(ctx).
		Where("voter = ? AND session_id = ?", strings.TrimSpace(voter), sessionID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.RevealedVote{}, false, nil
		}
		return entities.RevealedVote{}, false, p.repo.logError("governance_repo_get_reveal_failed", err,
			"voter", strings.TrimSpace(voter),
			"session_id", sessionID,
		)
	}
	return row.toEntity(), true, nil
}

func (p pgReader) ListRevealedVotes(ctx context.Context, sessionID uint64) ([]entities.RevealedVote, error) {
	var rows []revealModel
	if err := p.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("revealed_height ASC").
		Order("voter ASC").
		Find(&rows).Error; err != nil {
		return nil, p.repo.logError("governance_repo_list_reveals_failed", err, "session_id", sessionID)
	}
	items := make([]entities.RevealedVote, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (p pgReader) GetDelegation(ctx context.Context, delegator string, sessionID uint64) (entities.Delegation, bool, error) {
	var row delegationModel
	err := p.db.WithContext(ctx).
		Where("delegator = ? AND session_id = ?", strings.TrimSpace(delegator), sessionID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Delegation{}, false, nil
		}
		return entities.Delegation{}, false, p.repo.logError("governance_repo_get_delegation_failed", err,
			"delegator", strings.TrimSpace(delegator),
			"session_id", sessionID,
		)
	}
	return row.toEntity(), true, nil
}

func (p pgReader) ListActiveDelegations(ctx context.Context, delegator string) ([]entities.Delegation, error) {
	delegator = strings.TrimSpace(delegator)
	var rows []delegationModel
	if err := p.db.WithContext(ctx).
		Where("delegator = ? AND active = ?", delegator, true).
		Order("session_id ASC").
		Find(&rows).Error; err != nil {
		return nil, p.repo.logError("governance_repo_list_delegations_failed", err, "delegator", delegator)
	}
	items := make([]entities.Delegation, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (p pgReader) GetDelegatePower(ctx context.Context, delegate string, sessionID uint64) (entities.DelegatePower, error) {
	delegate = strings.TrimSpace(delegate)
	var row delegatePowerModel
	err := p.db.WithContext(ctx).
		Where("delegate = ? AND session_id = ?", delegate, sessionID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.DelegatePower{Delegate: delegate, SessionID: sessionID}, nil
		}
		return entities.DelegatePower{}, p.repo.logError("governance_repo_get_delegate_power_failed", err,
			"delegate", delegate,
			"session_id", sessionID,
		)
	}
	return entities.DelegatePower{
		Delegate:  row.Delegate,
		SessionID: row.SessionID,
		Power:     row.Power,
		Spent:     row.Spent,
	}, nil
}

func (p pgReader) GetReputation(ctx context.Context, voter string) (entities.Reputation, error) {
	voter = strings.TrimSpace(voter)
	var row reputationModel
	err := p.db.WithContext(ctx).Where("voter = ?", voter).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Reputation{Voter: voter}, nil
		}
		return entities.Reputation{}, p.repo.logError("governance_repo_get_reputation_failed", err, "voter", voter)
	}
	return entities.Reputation{
		Voter:              row.Voter,
		Score:              row.Score,
		ParticipationCount: row.ParticipationCount,
		LastUpdated:        row.LastUpdated,
		Penalties:          row.Penalties,
	}, nil
}

func (p pgReader) GetBalance(ctx context.Context, voter string) (uint64, error) {
	voter = strings.TrimSpace(voter)
	var row balanceModel
	err := p.db.WithContext(ctx).Where("voter = ?", voter).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, p.repo.logError("governance_repo_get_balance_failed", err, "voter", voter)
	}
	return row.Amount, nil
}

func (p pgReader) ListHistory(ctx context.Context, voter string) ([]entities.VotingHistory, error) {
	var rows []historyModel
	if err := p.db.WithContext(ctx).
		Where("voter = ?", strings.TrimSpace(voter)).
		Order("session_id ASC").
		Find(&rows).Error; err != nil {
		return nil, p.repo.logError("governance_repo_list_history_failed", err, "voter", strings.TrimSpace(voter))
	}
	items := make([]entities.VotingHistory, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.VotingHistory{
			Voter:             row.Voter,
			SessionID:         row.SessionID,
			ParticipationType: entities.ParticipationType(row.ParticipationType),
			Weight:            row.Weight,
			Height:            row.Height,
		})
	}
	return items, nil
}

type pgTx struct {
	pgReader
}

// NextSessionID takes a row lock on the sequence so concurrent creators
// queue behind each other.
func (t *pgTx) NextSessionID(ctx context.Context) (uint64, error) {
	var row sequenceModel
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", sessionSequence).
		First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = sequenceModel{Name: sessionSequence}
	case err != nil:
		return 0, t.repo.logError("governance_repo_next_session_id_failed", err)
	}
	row.Value++
	if err := t.upsert(ctx, &row, "name"); err != nil {
		return 0, t.repo.logError("governance_repo_next_session_id_save_failed", err)
	}
	return row.Value, nil
}

func (t *pgTx) SaveSettings(ctx context.Context, settings entities.Settings) error {
	row := settingsModel{
		ID:                 settingsRowID,
		EmergencyMode:      settings.EmergencyMode,
		DelegationDisabled: settings.DelegationDisabled,
		UpdatedHeight:      settings.UpdatedHeight,
	}
	if err := t.upsert(ctx, &row, "id"); err != nil {
		return t.repo.logError("governance_repo_save_settings_failed", err)
	}
	return nil
}

func (t *pgTx) SaveSession(ctx context.Context, session entities.Session) error {
	row := sessionModelFromEntity(session)
	if err := t.upsert(ctx, &row, "session_id"); err != nil {
		return t.repo.logError("governance_repo_save_session_failed", err, "session_id", session.SessionID)
	}
	return nil
}

func (t *pgTx) SaveOption(ctx context.Context, option entities.VoteOption) error {
	row := optionModel{
		SessionID:   option.SessionID,
		OptionID:    option.OptionID,
		Description: option.Description,
		Count:       option.Count,
		TotalWeight: option.TotalWeight,
	}
	if err := t.upsert(ctx, &row, "session_id", "option_id"); err != nil {
		return t.repo.logError("governance_repo_save_option_failed", err,
			"session_id", option.SessionID,
			"option_id", option.OptionID,
		)
	}
	return nil
}

func (t *pgTx) InsertCommitment(ctx context.Context, commitment entities.VoteCommitment) error {
	row := commitmentModel{
		Voter:           commitment.Voter,
		SessionID:       commitment.SessionID,
		Digest:          append([]byte(nil), commitment.Digest[:]...),
		Weight:          commitment.Weight,
		Cost:            commitment.Cost,
		DelegatedWeight: commitment.DelegatedWeight,
		CommittedHeight: commitment.CommittedHeight,
		Encrypted:       commitment.Encrypted,
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyVoted
		}
		return t.repo.logError("governance_repo_insert_commitment_failed", err,
			"voter", commitment.Voter,
			"session_id", commitment.SessionID,
		)
	}
	return nil
}

func (t *pgTx) InsertRevealedVote(ctx context.Context, vote entities.RevealedVote) error {
	row := revealModel{
		Voter:           vote.Voter,
		SessionID:       vote.SessionID,
		VoteDigest:      append([]byte(nil), vote.VoteDigest[:]...),
		Choices:         vote.Choices,
		Weights:         vote.Weights,
		TotalWeight:     vote.TotalWeight,
		DelegatedWeight: vote.DelegatedWeight,
		RevealedHeight:  vote.RevealedHeight,
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyVoted
		}
		return t.repo.logError("governance_repo_insert_reveal_failed", err,
			"voter", vote.Voter,
			"session_id", vote.SessionID,
		)
	}
	return nil
}

func (t *pgTx) SaveDelegation(ctx context.Context, delegation entities.Delegation) error {
	row := delegationModel{
		Delegator:       delegation.Delegator,
		SessionID:       delegation.SessionID,
		Delegate:        delegation.Delegate,
		Weight:          delegation.Weight,
		Active:          delegation.Active,
		DelegatedHeight: delegation.DelegatedHeight,
		RevokedHeight:   delegation.RevokedHeight,
	}
	if err := t.upsert(ctx, &row, "delegator", "session_id"); err != nil {
		return t.repo.logError("governance_repo_save_delegation_failed", err,
			"delegator", delegation.Delegator,
			"session_id", delegation.SessionID,
		)
	}
	return nil
}

func (t *pgTx) SaveDelegatePower(ctx context.Context, power entities.DelegatePower) error {
	row := delegatePowerModel{
		Delegate:  power.Delegate,
		SessionID: power.SessionID,
		Power:     power.Power,
		Spent:     power.Spent,
	}
	if err := t.upsert(ctx, &row, "delegate", "session_id"); err != nil {
		return t.repo.logError("governance_repo_save_delegate_power_failed", err,
			"delegate", power.Delegate,
			"session_id", power.SessionID,
		)
	}
	return nil
}

func (t *pgTx) SaveReputation(ctx context.Context, reputation entities.Reputation) error {
	row := reputationModel{
		Voter:              reputation.Voter,
		Score:              reputation.Score,
		ParticipationCount: reputation.ParticipationCount,
		LastUpdated:        reputation.LastUpdated,
		Penalties:          reputation.Penalties,
	}
	if err := t.upsert(ctx, &row, "voter"); err != nil {
		return t.repo.logError("governance_repo_save_reputation_failed", err, "voter", reputation.Voter)
	}
	return nil
}

func (t *pgTx) SaveBalance(ctx context.Context, voter string, amount uint64) error {
	row := balanceModel{Voter: strings.TrimSpace(voter), Amount: amount}
	if err := t.upsert(ctx, &row, "voter"); err != nil {
		return t.repo.logError("governance_repo_save_balance_failed", err, "voter", row.Voter)
	}
	return nil
}

func (t *pgTx) AppendHistory(ctx context.Context, entry entities.VotingHistory) error {
	row := historyModel{
		Voter:             entry.Voter,
		SessionID:         entry.SessionID,
		ParticipationType: string(entry.ParticipationType),
		Weight:            entry.Weight,
		Height:            entry.Height,
	}
	if err := t.upsert(ctx, &row, "voter", "session_id"); err != nil {
		return t.repo.logError("governance_repo_append_history_failed", err,
			"voter", entry.Voter,
			"session_id", entry.SessionID,
		)
	}
	return nil
}

func (t *pgTx) AppendOutbox(ctx context.Context, envelope events.Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return t.repo.logError("governance_repo_append_outbox_marshal_failed", err,
			"event_id", envelope.EventID,
			"event_type", envelope.EventType,
		)
	}
	row := outboxModel{
		OutboxID:  strings.TrimSpace(envelope.EventID),
		EventType: strings.TrimSpace(envelope.EventType),
		Payload:   payload,
		Status:    outbox.StatusPending,
		CreatedAt: envelope.OccurredAtUTC.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return t.repo.logError("governance_repo_append_outbox_insert_failed", err, "outbox_id", row.OutboxID)
	}
	return nil
}

func (t *pgTx) upsert(ctx context.Context, row any, keys ...string) error {
	columns := make([]clause.Column, 0, len(keys))
	for _, key := range keys {
		columns = append(columns, clause.Column{Name: key})
	}
	return t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   columns,
		UpdateAll: true,
	}).Create(row).Error
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01")
}

var (
	_ ports.Repository       = (*Repository)(nil)
	_ ports.OutboxRepository = (*Repository)(nil)
	_ ports.Tx               = (*pgTx)(nil)
	_ ports.Reader           = pgReader{}
)
