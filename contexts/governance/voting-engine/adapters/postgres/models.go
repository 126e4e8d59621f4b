package postgresadapter

import (
	"time"

	"sealedgov/contexts/governance/voting-engine/domain/entities"
)

const settingsRowID = 1

type settingsModel struct {
	ID                 int    `gorm:"column:id;primaryKey"`
	EmergencyMode      bool   `gorm:"column:emergency_mode"`
	DelegationDisabled bool   `gorm:"column:delegation_disabled"`
	UpdatedHeight      uint64 `gorm:"column:updated_height"`
}

func (settingsModel) TableName() string {
	return "governance_settings"
}

type sequenceModel struct {
	Name  string `gorm:"column:name;primaryKey"`
	Value uint64 `gorm:"column:value"`
}

func (sequenceModel) TableName() string {
	return "governance_sequences"
}

type sessionModel struct {
	SessionID       uint64            `gorm:"column:session_id;primaryKey;autoIncrement:false"`
	Title           string            `gorm:"column:title"`
	Description     string            `gorm:"column:description"`
	Creator         string            `gorm:"column:creator;index"`
	StartHeight     uint64            `gorm:"column:start_height"`
	CommitEnd       uint64            `gorm:"column:commit_end"`
	RevealEnd       uint64            `gorm:"column:reveal_end"`
	Mode            string            `gorm:"column:mode"`
	MinReputation   uint64            `gorm:"column:min_reputation"`
	QuorumRequired  uint64            `gorm:"column:quorum_required"`
	TotalVotes      uint64            `gorm:"column:total_votes"`
	TotalWeight     uint64            `gorm:"column:total_weight"`
	Status          string            `gorm:"column:status;index"`
	Encrypted       bool              `gorm:"column:encrypted"`
	AutoExecute     bool              `gorm:"column:auto_execute"`
	ExecutionTarget string            `gorm:"column:execution_target"`
	QuadraticCosts  map[uint64]uint64 `gorm:"column:quadratic_costs;serializer:json"`
	ExecutionCount  uint64            `gorm:"column:execution_count"`
	CreatedHeight   uint64            `gorm:"column:created_height"`
	CancelledHeight uint64            `gorm:"column:cancelled_height"`
	FinalizedHeight uint64            `gorm:"column:finalized_height"`
}

func (sessionModel) TableName() string {
	return "governance_sessions"
}

func sessionModelFromEntity(session entities.Session) sessionModel {
	return sessionModel{
		SessionID:       session.SessionID,
		Title:           session.Title,
		Description:     session.Description,
		Creator:         session.Creator,
		StartHeight:     session.StartHeight,
		CommitEnd:       session.CommitEnd,
		RevealEnd:       session.RevealEnd,
		Mode:            string(session.Mode),
		MinReputation:   session.MinReputation,
		QuorumRequired:  session.QuorumRequired,
		TotalVotes:      session.TotalVotes,
		TotalWeight:     session.TotalWeight,
		Status:          string(session.Status),
		Encrypted:       session.Encrypted,
		AutoExecute:     session.AutoExecute,
		ExecutionTarget: session.ExecutionTarget,
		QuadraticCosts:  session.QuadraticCosts,
		ExecutionCount:  session.ExecutionCount,
		CreatedHeight:   session.CreatedHeight,
		CancelledHeight: session.CancelledHeight,
		FinalizedHeight: session.FinalizedHeight,
	}
}

func (m sessionModel) toEntity() entities.Session {
	return entities.Session{
		SessionID:       m.SessionID,
		Title:           m.Title,
		Description:     m.Description,
		Creator:         m.Creator,
		StartHeight:     m.StartHeight,
		CommitEnd:       m.CommitEnd,
		RevealEnd:       m.RevealEnd,
		Mode:            entities.VotingMode(m.Mode),
		MinReputation:   m.MinReputation,
		QuorumRequired:  m.QuorumRequired,
		TotalVotes:      m.TotalVotes,
		TotalWeight:     m.TotalWeight,
		Status:          entities.SessionStatus(m.Status),
		Encrypted:       m.Encrypted,
		AutoExecute:     m.AutoExecute,
		ExecutionTarget: m.ExecutionTarget,
		QuadraticCosts:  m.QuadraticCosts,
		ExecutionCount:  m.ExecutionCount,
		CreatedHeight:   m.CreatedHeight,
		CancelledHeight: m.CancelledHeight,
		FinalizedHeight: m.FinalizedHeight,
	}
}

type optionModel struct {
	SessionID   uint64 `gorm:"column:session_id;primaryKey;autoIncrement:false"`
	OptionID    uint64 `gorm:"column:option_id;primaryKey;autoIncrement:false"`
	Description string `gorm:"column:description"`
	Count       uint64 `gorm:"column:vote_count"`
	TotalWeight uint64 `gorm:"column:total_weight"`
}

func (optionModel) TableName() string {
	return "governance_options"
}

func (m optionModel) toEntity() entities.VoteOption {
	return entities.VoteOption{
		SessionID:   m.SessionID,
		OptionID:    m.OptionID,
		Description: m.Description,
		Count:       m.Count,
		TotalWeight: m.TotalWeight,
	}
}

type commitmentModel struct {
	Voter           string `gorm:"column:voter;primaryKey"`
	SessionID       uint64 `gorm:"column:session_id;primaryKey;autoIncrement:false"`
	Digest          []byte `gorm:"column:digest"`
	Weight          uint64 `gorm:"column:weight"`
	Cost            uint64 `gorm:"column:cost"`
	DelegatedWeight uint64 `gorm:"column:delegated_weight"`
	CommittedHeight uint64 `gorm:"column:committed_height"`
	Encrypted       bool   `gorm:"column:encrypted"`
}

func (commitmentModel) TableName() string {
	return "governance_commitments"
}

func (m commitmentModel) toEntity() entities.VoteCommitment {
	item := entities.VoteCommitment{
		Voter:           m.Voter,
		SessionID:       m.SessionID,
		Weight:          m.Weight,
		Cost:            m.Cost,
		DelegatedWeight: m.DelegatedWeight,
		CommittedHeight: m.CommittedHeight,
		Encrypted:       m.Encrypted,
	}
	copy(item.Digest[:], m.Digest)
	return item
}

type revealModel struct {
	Voter           string   `gorm:"column:voter;primaryKey"`
	SessionID       uint64   `gorm:"column:session_id;primaryKey;autoIncrement:false;index"`
	VoteDigest      []byte   `gorm:"column:vote_digest"`
	Choices         []uint64 `gorm:"column:choices;serializer:json"`
	Weights         []uint64 `gorm:"column:weights;serializer:json"`
	TotalWeight     uint64   `gorm:"column:total_weight"`
	DelegatedWeight uint64   `gorm:"column:delegated_weight"`
	RevealedHeight  uint64   `gorm:"column:revealed_height"`
}

func (revealModel) TableName() string {
	return "governance_revealed_votes"
}

func (m revealModel) toEntity() entities.RevealedVote {
	item := entities.RevealedVote{
		Voter:           m.Voter,
		SessionID:       m.SessionID,
		Choices:         m.Choices,
		Weights:         m.Weights,
		TotalWeight:     m.TotalWeight,
		DelegatedWeight: m.DelegatedWeight,
		RevealedHeight:  m.RevealedHeight,
	}
	copy(item.VoteDigest[:], m.VoteDigest)
	return item
}

type delegationModel struct {
	Delegator       string `gorm:"column:delegator;primaryKey"`
	SessionID       uint64 `gorm:"column:session_id;primaryKey;autoIncrement:false"`
	Delegate        string `gorm:"column:delegate;index"`
	Weight          uint64 `gorm:"column:weight"`
	Active          bool   `gorm:"column:active"`
	DelegatedHeight uint64 `gorm:"column:delegated_height"`
	RevokedHeight   uint64 `gorm:"column:revoked_height"`
}

func (delegationModel) TableName() string {
	return "governance_delegations"
}

func (m delegationModel) toEntity() entities.Delegation {
	return entities.Delegation{
		Delegator:       m.Delegator,
		SessionID:       m.SessionID,
		Delegate:        m.Delegate,
		Weight:          m.Weight,
		Active:          m.Active,
		DelegatedHeight: m.DelegatedHeight,
		RevokedHeight:   m.RevokedHeight,
	}
}

type delegatePowerModel struct {
	Delegate  string `gorm:"column:delegate;primaryKey"`
	SessionID uint64 `gorm:"column:session_id;primaryKey;autoIncrement:false"`
	Power     uint64 `gorm:"column:power"`
	Spent     uint64 `gorm:"column:spent"`
}

func (delegatePowerModel) TableName() string {
	return "governance_delegate_power"
}

type reputationModel struct {
	Voter              string `gorm:"column:voter;primaryKey"`
	Score              uint64 `gorm:"column:score"`
	ParticipationCount uint64 `gorm:"column:participation_count"`
	LastUpdated        uint64 `gorm:"column:last_updated"`
	Penalties          uint64 `gorm:"column:penalties"`
}

func (reputationModel) TableName() string {
	return "governance_reputation"
}

type balanceModel struct {
	Voter  string `gorm:"column:voter;primaryKey"`
	Amount uint64 `gorm:"column:amount"`
}

func (balanceModel) TableName() string {
	return "governance_token_balances"
}

type historyModel struct {
	Voter             string `gorm:"column:voter;primaryKey"`
	SessionID         uint64 `gorm:"column:session_id;primaryKey;autoIncrement:false"`
	ParticipationType string `gorm:"column:participation_type"`
	Weight            uint64 `gorm:"column:weight"`
	Height            uint64 `gorm:"column:height"`
}

func (historyModel) TableName() string {
	return "governance_voting_history"
}

type outboxModel struct {
	OutboxID    string     `gorm:"column:outbox_id;primaryKey"`
	EventType   string     `gorm:"column:event_type"`
	Payload     []byte     `gorm:"column:payload"`
	Status      string     `gorm:"column:status;index"`
	RetryCount  int        `gorm:"column:retry_count"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "governance_outbox"
}

func allModels() []any {
	return []any{
		&settingsModel{},
		&sequenceModel{},
		&sessionModel{},
		&optionModel{},
		&commitmentModel{},
		&revealModel{},
		&delegationModel{},
		&delegatePowerModel{},
		&reputationModel{},
		&balanceModel{},
		&historyModel{},
		&outboxModel{},
	}
}
