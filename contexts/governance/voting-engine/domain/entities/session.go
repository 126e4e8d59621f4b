package entities

import "strings"

const (
	// MaxOptions bounds the option list supplied at session creation.
	MaxOptions = 20
	// MaxRevealEntries bounds the choices/weights lists of a reveal.
	MaxRevealEntries = 10
	// QuadraticCostTableSize is the number of reference entries installed for
	// quadratic sessions.
	QuadraticCostTableSize = 5
)

type VotingMode string

const (
	VotingModeStandard  VotingMode = "standard"
	VotingModeQuadratic VotingMode = "quadratic"
	VotingModeWeighted  VotingMode = "weighted"
	VotingModeRanked    VotingMode = "ranked"
)

func ParseVotingMode(raw string) (VotingMode, bool) {
	switch VotingMode(strings.ToLower(strings.TrimSpace(raw))) {
	case VotingModeStandard:
		return VotingModeStandard, true
	case VotingModeQuadratic:
		return VotingModeQuadratic, true
	case VotingModeWeighted:
		return VotingModeWeighted, true
	case VotingModeRanked:
		return VotingModeRanked, true
	default:
		return "", false
	}
}

// Cost returns the token cost of casting weight units in this mode. The
// second result is false when the cost does not fit in a uint64.
func (m VotingMode) Cost(weight uint64) (uint64, bool) {
	if m != VotingModeQuadratic {
		return weight, true
	}
	if weight != 0 && weight > ^uint64(0)/weight {
		return 0, false
	}
	return weight * weight, true
}

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusEnded     SessionStatus = "ended"
	SessionStatusCancelled SessionStatus = "cancelled"
)

type Session struct {
	SessionID       uint64
	Title           string
	Description     string
	Creator         string
	StartHeight     uint64
	CommitEnd       uint64
	RevealEnd       uint64
	Mode            VotingMode
	MinReputation   uint64
	QuorumRequired  uint64
	TotalVotes      uint64
	TotalWeight     uint64
	Status          SessionStatus
	Encrypted       bool
	AutoExecute     bool
	ExecutionTarget string
	// QuadraticCosts maps a vote count to its reference cost. Installed once
	// at creation and never mutated.
	QuadraticCosts  map[uint64]uint64
	ExecutionCount  uint64
	CreatedHeight   uint64
	CancelledHeight uint64
	FinalizedHeight uint64
}

// EffectiveStatus folds the implicit active -> ended transition that happens
// once the reveal window closes.
func (s Session) EffectiveStatus(height uint64) SessionStatus {
	if s.Status == SessionStatusActive && height >= s.RevealEnd {
		return SessionStatusEnded
	}
	return s.Status
}

func (s Session) QuorumMet() bool {
	return s.TotalVotes >= s.QuorumRequired
}

func (s Session) InCommitPhase(height uint64) bool {
	return height >= s.StartHeight && height < s.CommitEnd
}

func (s Session) InRevealPhase(height uint64) bool {
	return height >= s.CommitEnd && height < s.RevealEnd
}

// QuadraticCostTable builds the reference n -> n² table for small n.
func QuadraticCostTable() map[uint64]uint64 {
	table := make(map[uint64]uint64, QuadraticCostTableSize)
	for n := uint64(1); n <= QuadraticCostTableSize; n++ {
		table[n] = n * n
	}
	return table
}

type VoteOption struct {
	SessionID   uint64
	OptionID    uint64
	Description string
	Count       uint64
	TotalWeight uint64
}

type OptionInput struct {
	OptionID    uint64
	Description string
}
