// Package jobutil provides shared helpers for job lifecycle operations.
//
// SetJobError unifies the error-writing pattern shared by the chat and
// export workers: log the failure, then persist a failed status so a
// polling client never sees a job stuck in running.
package jobutil

import (
	"context"

	"github.com/rs/zerolog/log"
)

// ErrorWriter is a function that persists a job failure to the backing
// store. Each worker provides its own implementation (PutChatJob,
// PutExportJob).
type ErrorWriter func(ctx context.Context, sessionID, jobID, errMsg string) error

// SetJobError logs the error and delegates persistence to the provided writer.
func SetJobError(ctx context.Context, sessionID, jobID, msg string, write ErrorWriter) error {
	log.Error().
		Str("job", jobID).
		Str("sessionId", sessionID).
		Str("error", msg).
		Msg("Job failed")
	return write(ctx, sessionID, jobID, msg)
}
