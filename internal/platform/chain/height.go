// Package chain supplies block heights to processes that have no chain feed.
package chain

import (
	"context"
	"errors"
	"time"
)

// WallClockHeight derives a monotonic height from elapsed time since a
// genesis instant. Heights before genesis read as zero.
type WallClockHeight struct {
	Genesis  time.Time
	Interval time.Duration
	Now      func() time.Time
}

func NewWallClockHeight(genesis time.Time, interval time.Duration) (WallClockHeight, error) {
	if interval <= 0 {
		return WallClockHeight{}, errors.New("block interval must be positive")
	}
	return WallClockHeight{Genesis: genesis.UTC(), Interval: interval}, nil
}

func (h WallClockHeight) CurrentHeight(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if h.Interval <= 0 {
		return 0, errors.New("block interval must be positive")
	}
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	elapsed := now.Sub(h.Genesis)
	if elapsed <= 0 {
		return 0, nil
	}
	return uint64(elapsed / h.Interval), nil
}
