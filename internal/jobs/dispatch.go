package jobs

import "context"

// Dispatcher hands a persisted job off for background execution. The Lambda
// deployment implements it with an async Invoke of the worker function; the
// CLI runs jobs on a goroutine in-process. Dispatch returns once the job has
// been handed off, not when it finishes — clients learn the outcome by
// polling the job record.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind, sessionID, jobID string) error
}
