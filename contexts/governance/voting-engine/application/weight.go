package application

import (
	"context"

	"sealedgov/contexts/governance/voting-engine/ports"
)

// Weight is the spendable voting weight of one voter in one session.
//
// Own is the token balance minus weight the voter has delegated out for the
// session. Received is delegated power not yet spent on a commitment.
// Received power can be cast but never redelegated.
type Weight struct {
	Balance      uint64
	DelegatedOut uint64
	Own          uint64
	Received     uint64
	Available    uint64
}

func ResolveWeight(ctx context.Context, r ports.Reader, voter string, sessionID uint64) (Weight, error) {
	balance, err := r.GetBalance(ctx, voter)
	if err != nil {
		return Weight{}, err
	}
	var delegatedOut uint64
	delegation, found, err := r.GetDelegation(ctx, voter, sessionID)
	if err != nil {
		return Weight{}, err
	}
	if found && delegation.Active {
		delegatedOut = delegation.Weight
	}
	power, err := r.GetDelegatePower(ctx, voter, sessionID)
	if err != nil {
		return Weight{}, err
	}

	w := Weight{
		Balance:      balance,
		DelegatedOut: delegatedOut,
		Received:     power.Unspent(),
	}
	if balance > delegatedOut {
		w.Own = balance - delegatedOut
	}
	w.Available = SaturatingAdd(w.Own, w.Received)
	return w, nil
}

func CheckedAdd(a uint64, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum >= a
}

func SaturatingAdd(a uint64, b uint64) uint64 {
	if sum, ok := CheckedAdd(a, b); ok {
		return sum
	}
	return ^uint64(0)
}
