package commands

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"sealedgov/contexts/governance/voting-engine/ports"
	"sealedgov/internal/shared/events"

	"github.com/google/uuid"
)

const (
	EventSessionCreated            = "governance.session.created"
	EventSessionCancelled          = "governance.session.cancelled"
	EventSessionFinalized          = "governance.session.finalized"
	EventSessionExecutionRequested = "governance.session.execution_requested"
	EventVoteCommitted             = "governance.vote.committed"
	EventVoteRevealed              = "governance.vote.revealed"
	EventDelegationCreated         = "governance.delegation.created"
	EventDelegationRevoked         = "governance.delegation.revoked"
	EventTokensMinted              = "governance.ledger.minted"
	EventTokensTransferred         = "governance.ledger.transferred"
	EventReputationAdjusted        = "governance.reputation.adjusted"
	EventEmergencyChanged          = "governance.emergency.changed"
	EventDelegationPolicyChanged   = "governance.delegation.policy_changed"
)

// eventSink writes envelopes into the outbox of the surrounding transaction.
type eventSink struct {
	idGen ports.IDGenerator
	clock ports.Clock
}

func (s eventSink) append(
	ctx context.Context,
	tx ports.Tx,
	eventType string,
	entityType string,
	entityID string,
	data map[string]any,
) error {
	eventID, err := s.newID(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return tx.AppendOutbox(ctx, events.Envelope{
		EventID:        eventID,
		EventType:      eventType,
		SourceService:  "voting-engine",
		OccurredAtUTC:  s.now(),
		CorrelationID:  eventID,
		EntityType:     entityType,
		EntityID:       entityID,
		PayloadVersion: 1,
		Payload:        payload,
	})
}

func (s eventSink) newID(ctx context.Context) (string, error) {
	if s.idGen == nil {
		return uuid.NewString(), nil
	}
	return s.idGen.NewID(ctx)
}

func (s eventSink) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now().UTC()
}

func sessionEntityID(sessionID uint64) string {
	return strconv.FormatUint(sessionID, 10)
}
