package presence

import "errors"

// Domain errors for the presence package. Check with errors.Is.
var (
	// ErrRateLimited is returned when an address exceeds its check-in budget.
	ErrRateLimited = errors.New("presence: rate limited")

	// ErrRegistryFull is returned when the agent table is at capacity and no
	// stale entry could be evicted.
	ErrRegistryFull = errors.New("presence: registry full")

	// ErrQueueFull is returned when an agent's command queue is at its bound.
	ErrQueueFull = errors.New("presence: command queue full")

	// ErrUnknownAgent is returned when a command targets an agent that has
	// never checked in (or has been swept).
	ErrUnknownAgent = errors.New("presence: unknown agent")
)
