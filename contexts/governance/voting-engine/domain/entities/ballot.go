package entities

// Digest is a 32-byte commitment hash.
type Digest [32]byte

func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Salt is the voter-chosen blinding value mixed into a commitment.
type Salt [32]byte

type VoteCommitment struct {
	Voter           string
	SessionID       uint64
	Digest          Digest
	Weight          uint64
	Cost            uint64
	DelegatedWeight uint64
	CommittedHeight uint64
	Encrypted       bool
}

// RevealedVote is the authoritative "has voted" record for (voter, session).
type RevealedVote struct {
	Voter           string
	SessionID       uint64
	VoteDigest      Digest
	Choices         []uint64
	Weights         []uint64
	TotalWeight     uint64
	DelegatedWeight uint64
	RevealedHeight  uint64
}

type ParticipationType string

const (
	ParticipationDirect ParticipationType = "direct"
)

type VotingHistory struct {
	Voter             string
	SessionID         uint64
	ParticipationType ParticipationType
	Weight            uint64
	Height            uint64
}
