package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type OptionRequest struct {
	OptionID    uint64 `json:"option_id"`
	Description string `json:"description"`
}

type CreateSessionRequest struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	CommitDuration  uint64          `json:"commit_duration"`
	RevealDuration  uint64          `json:"reveal_duration"`
	Options         []OptionRequest `json:"options"`
	Mode            string          `json:"mode"`
	MinReputation   uint64          `json:"min_reputation"`
	QuorumRequired  uint64          `json:"quorum_required"`
	Encrypted       bool            `json:"encrypted"`
	AutoExecute     bool            `json:"auto_execute"`
	ExecutionTarget string          `json:"execution_target,omitempty"`
}

type SessionResponse struct {
	SessionID       uint64            `json:"session_id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Creator         string            `json:"creator"`
	StartHeight     uint64            `json:"start_height"`
	CommitEnd       uint64            `json:"commit_end"`
	RevealEnd       uint64            `json:"reveal_end"`
	Mode            string            `json:"mode"`
	MinReputation   uint64            `json:"min_reputation"`
	QuorumRequired  uint64            `json:"quorum_required"`
	TotalVotes      uint64            `json:"total_votes"`
	TotalWeight     uint64            `json:"total_weight"`
	Status          string            `json:"status"`
	EffectiveStatus string            `json:"effective_status,omitempty"`
	QuorumMet       bool              `json:"quorum_met"`
	Encrypted       bool              `json:"encrypted"`
	AutoExecute     bool              `json:"auto_execute"`
	ExecutionTarget string            `json:"execution_target,omitempty"`
	ExecutionCount  uint64            `json:"execution_count"`
	QuadraticCosts  map[uint64]uint64 `json:"quadratic_costs,omitempty"`
	CurrentHeight   uint64            `json:"current_height,omitempty"`
}

type OptionResponse struct {
	SessionID   uint64 `json:"session_id"`
	OptionID    uint64 `json:"option_id"`
	Description string `json:"description"`
	Count       uint64 `json:"count"`
	TotalWeight uint64 `json:"total_weight"`
}

type OptionsResponse struct {
	Items []OptionResponse `json:"items"`
}

type ResultsResponse struct {
	SessionID   uint64           `json:"session_id"`
	Status      string           `json:"status"`
	TotalVotes  uint64           `json:"total_votes"`
	TotalWeight uint64           `json:"total_weight"`
	QuorumMet   bool             `json:"quorum_met"`
	Final       bool             `json:"final"`
	Items       []OptionResponse `json:"items"`
}

type QuorumResponse struct {
	SessionID uint64 `json:"session_id"`
	QuorumMet bool   `json:"quorum_met"`
}

type QuadraticCostResponse struct {
	SessionID uint64 `json:"session_id"`
	Votes     uint64 `json:"votes"`
	Cost      uint64 `json:"cost"`
}

// CommitVoteRequest carries the digest as 64 hex characters.
type CommitVoteRequest struct {
	Digest        string `json:"digest"`
	Weight        uint64 `json:"weight"`
	UseDelegation bool   `json:"use_delegation"`
}

type CommitmentResponse struct {
	SessionID       uint64 `json:"session_id"`
	Voter           string `json:"voter"`
	Digest          string `json:"digest"`
	Weight          uint64 `json:"weight"`
	Cost            uint64 `json:"cost"`
	DelegatedWeight uint64 `json:"delegated_weight"`
	CommittedHeight uint64 `json:"committed_height"`
	Encrypted       bool   `json:"encrypted"`
}

// RevealVoteRequest carries salt and the optional signature as hex.
type RevealVoteRequest struct {
	Choices   []uint64 `json:"choices"`
	Weights   []uint64 `json:"weights"`
	Salt      string   `json:"salt"`
	Signature string   `json:"signature,omitempty"`
}

type RevealResponse struct {
	SessionID       uint64   `json:"session_id"`
	Voter           string   `json:"voter"`
	VoteDigest      string   `json:"vote_digest"`
	Choices         []uint64 `json:"choices"`
	Weights         []uint64 `json:"weights"`
	TotalWeight     uint64   `json:"total_weight"`
	DelegatedWeight uint64   `json:"delegated_weight"`
	RevealedHeight  uint64   `json:"revealed_height"`
}

type HasVotedResponse struct {
	SessionID uint64 `json:"session_id"`
	Voter     string `json:"voter"`
	HasVoted  bool   `json:"has_voted"`
}

type DelegateRequest struct {
	Delegate string `json:"delegate"`
	Weight   uint64 `json:"weight"`
}

type DelegationResponse struct {
	SessionID       uint64 `json:"session_id"`
	Delegator       string `json:"delegator"`
	Delegate        string `json:"delegate"`
	Weight          uint64 `json:"weight"`
	Active          bool   `json:"active"`
	DelegatedHeight uint64 `json:"delegated_height"`
	RevokedHeight   uint64 `json:"revoked_height,omitempty"`
}

type DelegatePowerResponse struct {
	SessionID uint64 `json:"session_id"`
	Delegate  string `json:"delegate"`
	Power     uint64 `json:"power"`
	Spent     uint64 `json:"spent"`
}

type WeightResponse struct {
	SessionID    uint64 `json:"session_id"`
	Voter        string `json:"voter"`
	Balance      uint64 `json:"balance"`
	DelegatedOut uint64 `json:"delegated_out"`
	Own          uint64 `json:"own"`
	Received     uint64 `json:"received"`
	Available    uint64 `json:"available"`
}

type AmountRequest struct {
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

type BalanceResponse struct {
	Voter   string `json:"voter"`
	Balance uint64 `json:"balance"`
}

type AdjustReputationRequest struct {
	Delta int64 `json:"delta"`
}

type ReputationResponse struct {
	Voter              string `json:"voter"`
	Score              uint64 `json:"score"`
	ParticipationCount uint64 `json:"participation_count"`
	LastUpdated        uint64 `json:"last_updated"`
	Penalties          uint64 `json:"penalties"`
}

type HistoryItem struct {
	SessionID         uint64 `json:"session_id"`
	ParticipationType string `json:"participation_type"`
	Weight            uint64 `json:"weight"`
	Height            uint64 `json:"height"`
}

type HistoryResponse struct {
	Voter string        `json:"voter"`
	Items []HistoryItem `json:"items"`
}

type SettingsResponse struct {
	EmergencyMode     bool   `json:"emergency_mode"`
	DelegationEnabled bool   `json:"delegation_enabled"`
	UpdatedHeight     uint64 `json:"updated_height"`
}

type DelegationPolicyRequest struct {
	Enabled bool `json:"enabled"`
}
