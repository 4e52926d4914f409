package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-deck-studio/internal/jobs"
	"github.com/fpang/ai-deck-studio/internal/jobutil"
	"github.com/fpang/ai-deck-studio/internal/store"
)

// async.go is the polled-job flavor of EditDeck: the API process persists a
// pending job and hands it to a dispatcher; a worker drives the job through
// the pipeline and writes every outcome back to the job record. Clients learn
// progress and results by polling, never by callback.

// EditDeckAsync persists a pending chat job for the request and dispatches it
// for background execution. Returns the job id to poll.
func (e *Editor) EditDeckAsync(ctx context.Context, req EditRequest, d jobs.Dispatcher) (string, error) {
	if err := req.Context.Validate(); err != nil {
		return "", err
	}

	jobID := jobs.GenerateID(jobs.KindChat + "-")
	job := &store.ChatJob{
		ID:        jobID,
		SessionID: req.SessionID,
		Status:    jobs.StatusPending,
		Message:   req.Message,
		Context:   req.Context,
		Total:     EditStages,
	}
	if err := e.Store.PutChatJob(ctx, req.SessionID, job); err != nil {
		return "", fmt.Errorf("create chat job: %w", err)
	}

	if err := d.Dispatch(ctx, jobs.KindChat, req.SessionID, jobID); err != nil {
		// The job exists but nothing will run it. Fail it so polling
		// clients are not left watching a pending job forever.
		_ = jobutil.SetJobError(ctx, req.SessionID, jobID, "failed to dispatch job", e.writeChatJobError)
		return "", fmt.Errorf("dispatch chat job %s: %w", jobID, err)
	}

	log.Info().
		Str("sessionId", req.SessionID).
		Str("jobId", jobID).
		Msg("Chat job dispatched")
	return jobID, nil
}

// RunChatJob executes a dispatched chat job. Every exit path leaves the job
// in a terminal state: pipeline failures are recorded on the record, not
// returned, so the invoker does not redeliver a job whose outcome is already
// written.
func (e *Editor) RunChatJob(ctx context.Context, sessionID, jobID string) error {
	job, err := e.Store.GetChatJob(ctx, sessionID, jobID)
	if err != nil {
		return fmt.Errorf("load chat job %s/%s: %w", sessionID, jobID, err)
	}
	if job == nil {
		return fmt.Errorf("chat job %s/%s: %w", sessionID, jobID, jobs.ErrNotFound)
	}
	if !jobs.CanTransition(job.Status, jobs.StatusRunning) {
		// Redelivery of a finished job. The record already has the answer.
		log.Warn().
			Str("sessionId", sessionID).
			Str("jobId", jobID).
			Str("status", job.Status).
			Msg("Skipping chat job not in a runnable state")
		return nil
	}

	job.Status = jobs.StatusRunning
	if err := e.Store.PutChatJob(ctx, sessionID, job); err != nil {
		return fmt.Errorf("mark chat job running: %w", err)
	}

	req := EditRequest{
		SessionID: sessionID,
		Message:   job.Message,
		Context:   job.Context,
		OnProgress: func(stage, total int) {
			job.Progress = jobs.AdvanceProgress(job.Progress, stage)
			job.Total = total
			if err := e.Store.PutChatJob(ctx, sessionID, job); err != nil {
				log.Warn().Err(err).
					Str("jobId", jobID).
					Int("stage", stage).
					Msg("Failed to persist chat job progress")
			}
		},
	}

	result, err := e.EditDeck(ctx, req)
	if err != nil {
		return jobutil.SetJobError(ctx, sessionID, jobID, err.Error(), e.writeChatJobError)
	}

	job.Status = jobs.StatusCompleted
	job.Progress = EditStages
	job.Intent = string(result.Intent)
	job.SlidesAdded = result.SlidesAdded
	job.SlidesRemoved = result.SlidesRemoved
	job.Warnings = result.Warnings
	if err := e.Store.PutChatJob(ctx, sessionID, job); err != nil {
		return fmt.Errorf("mark chat job completed: %w", err)
	}

	log.Info().
		Str("sessionId", sessionID).
		Str("jobId", jobID).
		Str("intent", job.Intent).
		Msg("Chat job completed")
	return nil
}

// writeChatJobError persists a failed status onto a chat job record.
func (e *Editor) writeChatJobError(ctx context.Context, sessionID, jobID, errMsg string) error {
	job, err := e.Store.GetChatJob(ctx, sessionID, jobID)
	if err != nil {
		return fmt.Errorf("load chat job for failure write: %w", err)
	}
	if job == nil {
		return fmt.Errorf("chat job %s/%s vanished before failure write", sessionID, jobID)
	}
	job.Status = jobs.StatusFailed
	job.Error = errMsg
	return e.Store.PutChatJob(ctx, sessionID, job)
}
