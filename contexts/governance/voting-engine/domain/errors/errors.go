package errors

import "errors"

var (
	ErrInvalidInput           = errors.New("invalid governance input")
	ErrNotAuthorized          = errors.New("caller is not authorized")
	ErrEmergencyActive        = errors.New("emergency mode is active")
	ErrInsufficientReputation = errors.New("insufficient reputation")
	ErrVotingNotActive        = errors.New("voting session is not active")
	ErrVotingEnded            = errors.New("voting window has ended")
	ErrInvalidPhase           = errors.New("operation not allowed in current phase")
	ErrAlreadyVoted           = errors.New("already voted")
	ErrInvalidCommitment      = errors.New("invalid commitment")
	ErrInvalidWeight          = errors.New("invalid weight")
	ErrInsufficientTokens     = errors.New("insufficient tokens")
	ErrInvalidDelegation      = errors.New("invalid delegation")
	ErrNotFound               = errors.New("not found")
	ErrInvalidSignature       = errors.New("invalid signature")
	ErrExecutionFailed        = errors.New("session execution hook failed")
	ErrConflict               = errors.New("governance state conflict")
)
