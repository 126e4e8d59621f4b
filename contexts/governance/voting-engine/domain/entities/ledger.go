package entities

type Delegation struct {
	Delegator       string
	SessionID       uint64
	Delegate        string
	Weight          uint64
	Active          bool
	DelegatedHeight uint64
	RevokedHeight   uint64
}

// DelegatePower is the eager aggregate of active delegations received by a
// delegate for one session. Spent tracks the part consumed by the delegate's
// own commitment.
type DelegatePower struct {
	Delegate  string
	SessionID uint64
	Power     uint64
	Spent     uint64
}

func (p DelegatePower) Unspent() uint64 {
	if p.Spent >= p.Power {
		return 0
	}
	return p.Power - p.Spent
}

const ParticipationReward = 10

type Reputation struct {
	Voter              string
	Score              uint64
	ParticipationCount uint64
	LastUpdated        uint64
	Penalties          uint64
}

// Adjust applies a signed delta, saturating at zero instead of failing.
func (r Reputation) Adjust(delta int64, height uint64) Reputation {
	switch {
	case delta >= 0:
		if uint64(delta) > ^uint64(0)-r.Score {
			r.Score = ^uint64(0)
		} else {
			r.Score += uint64(delta)
		}
	default:
		decrease := uint64(-(delta + 1)) + 1
		if decrease >= r.Score {
			r.Score = 0
		} else {
			r.Score -= decrease
		}
		r.Penalties++
	}
	r.LastUpdated = height
	return r
}

type TokenBalance struct {
	Voter  string
	Amount uint64
}

// Settings holds engine-wide switches. The zero value is the default
// posture: no emergency, delegation enabled.
type Settings struct {
	EmergencyMode      bool
	DelegationDisabled bool
	UpdatedHeight      uint64
}
