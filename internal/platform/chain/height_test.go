package chain

import (
	"context"
	"testing"
	"time"
)

func TestWallClockHeight(t *testing.T) {
	genesis := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	source, err := NewWallClockHeight(genesis, 12*time.Second)
	if err != nil {
		t.Fatalf("new height source: %v", err)
	}

	source.Now = func() time.Time { return genesis.Add(-time.Minute) }
	if height, _ := source.CurrentHeight(context.Background()); height != 0 {
		t.Fatalf("expected height 0 before genesis, got %d", height)
	}

	source.Now = func() time.Time { return genesis.Add(125 * time.Second) }
	height, err := source.CurrentHeight(context.Background())
	if err != nil {
		t.Fatalf("current height: %v", err)
	}
	if height != 10 {
		t.Fatalf("expected height 10, got %d", height)
	}
}

func TestWallClockHeightRejectsZeroInterval(t *testing.T) {
	if _, err := NewWallClockHeight(time.Now(), 0); err == nil {
		t.Fatalf("expected error for zero interval")
	}
}
