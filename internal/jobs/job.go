// Package jobs holds the shared lifecycle rules for async operations: id
// generation, status transitions, monotonic progress, and poll-route
// parsing. Both the chat-completion and export-conversion workers drive
// their records through the same state machine.
package jobs

import (
	"errors"
)

// Job statuses. A job moves pending → running → completed|failed and never
// leaves a terminal state.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job kinds.
const (
	KindChat   = "chat"
	KindExport = "export"
)

var (
	// ErrNotFound means the polled job id does not exist (or belongs to
	// another session).
	ErrNotFound = errors.New("job not found")

	// ErrNotReady means the job's result was requested before the job
	// reached completed. A condition for the caller, not a fault.
	ErrNotReady = errors.New("job result not ready")
)

// IsTerminal reports whether status is completed or failed.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// CanTransition reports whether a job may move from one status to another.
// Terminal states are sticky: a second completion or a late failure is
// rejected, which callers treat as a no-op rather than an error.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusRunning || to == StatusFailed
	case StatusRunning:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// AdvanceProgress enforces monotonic non-decreasing progress. A stale lower
// value is ignored and the current value returned.
func AdvanceProgress(current, proposed int) int {
	if proposed > current {
		return proposed
	}
	return current
}
