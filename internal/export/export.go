package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-deck-studio/internal/jobs"
	"github.com/fpang/ai-deck-studio/internal/jobutil"
	"github.com/fpang/ai-deck-studio/internal/store"
)

// DownloadURLExpiry is how long a presigned bundle download stays valid.
const DownloadURLExpiry = 1 * time.Hour

// ErrNoDeck means an export was requested for a session with no committed
// deck. There is nothing to bundle.
var ErrNoDeck = errors.New("session has no deck to export")

// BundleStore persists finished bundles and issues download URLs. The Lambda
// deployment backs it with S3 and presigned GETs; the CLI writes files to a
// local directory.
type BundleStore interface {
	Put(ctx context.Context, key string, data []byte) error
	DownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Exporter runs export jobs for committed decks.
type Exporter struct {
	Store   store.SessionStore
	Bundles BundleStore
}

// NewExporter creates an Exporter.
func NewExporter(st store.SessionStore, bundles BundleStore) *Exporter {
	return &Exporter{Store: st, Bundles: bundles}
}

// StartExport persists a pending export job for the session's deck and
// dispatches it. Returns ErrNoDeck when there is nothing to export.
func (e *Exporter) StartExport(ctx context.Context, sessionID string, d jobs.Dispatcher) (string, error) {
	rec, err := e.Store.GetDeck(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("load deck %s: %w", sessionID, err)
	}
	if rec == nil || len(rec.Slides) == 0 {
		return "", ErrNoDeck
	}

	jobID := jobs.GenerateID(jobs.KindExport + "-")
	job := &store.ExportJob{
		ID:        jobID,
		SessionID: sessionID,
		Status:    jobs.StatusPending,
		Total:     len(rec.Slides),
	}
	if err := e.Store.PutExportJob(ctx, sessionID, job); err != nil {
		return "", fmt.Errorf("create export job: %w", err)
	}

	if err := d.Dispatch(ctx, jobs.KindExport, sessionID, jobID); err != nil {
		_ = jobutil.SetJobError(ctx, sessionID, jobID, "failed to dispatch job", e.writeExportJobError)
		return "", fmt.Errorf("dispatch export job %s: %w", jobID, err)
	}

	log.Info().
		Str("sessionId", sessionID).
		Str("jobId", jobID).
		Int("slides", len(rec.Slides)).
		Msg("Export job dispatched")
	return jobID, nil
}

// RunExportJob executes a dispatched export job: build the bundle, store it,
// record its key. Every exit path leaves the job terminal; build and storage
// failures are written to the record, not returned.
func (e *Exporter) RunExportJob(ctx context.Context, sessionID, jobID string) error {
	job, err := e.Store.GetExportJob(ctx, sessionID, jobID)
	if err != nil {
		return fmt.Errorf("load export job %s/%s: %w", sessionID, jobID, err)
	}
	if job == nil {
		return fmt.Errorf("export job %s/%s: %w", sessionID, jobID, jobs.ErrNotFound)
	}
	if !jobs.CanTransition(job.Status, jobs.StatusRunning) {
		log.Warn().
			Str("sessionId", sessionID).
			Str("jobId", jobID).
			Str("status", job.Status).
			Msg("Skipping export job not in a runnable state")
		return nil
	}

	job.Status = jobs.StatusRunning
	if err := e.Store.PutExportJob(ctx, sessionID, job); err != nil {
		return fmt.Errorf("mark export job running: %w", err)
	}

	rec, err := e.Store.GetDeck(ctx, sessionID)
	if err != nil {
		return jobutil.SetJobError(ctx, sessionID, jobID, err.Error(), e.writeExportJobError)
	}
	if rec == nil || len(rec.Slides) == 0 {
		return jobutil.SetJobError(ctx, sessionID, jobID, ErrNoDeck.Error(), e.writeExportJobError)
	}

	job.Total = len(rec.Slides)
	bundle, err := BuildBundle(sessionID, rec.Deck(), func(done int) {
		job.Progress = jobs.AdvanceProgress(job.Progress, done)
		if err := e.Store.PutExportJob(ctx, sessionID, job); err != nil {
			log.Warn().Err(err).
				Str("jobId", jobID).
				Int("done", done).
				Msg("Failed to persist export job progress")
		}
	})
	if err != nil {
		return jobutil.SetJobError(ctx, sessionID, jobID, err.Error(), e.writeExportJobError)
	}

	key := fmt.Sprintf("exports/%s/%s.zip", sessionID, jobID)
	if err := e.Bundles.Put(ctx, key, bundle); err != nil {
		return jobutil.SetJobError(ctx, sessionID, jobID, err.Error(), e.writeExportJobError)
	}

	job.Status = jobs.StatusCompleted
	job.Progress = job.Total
	job.BundleKey = key
	if err := e.Store.PutExportJob(ctx, sessionID, job); err != nil {
		return fmt.Errorf("mark export job completed: %w", err)
	}

	log.Info().
		Str("sessionId", sessionID).
		Str("jobId", jobID).
		Str("bundleKey", key).
		Int("bundleBytes", len(bundle)).
		Msg("Export job completed")
	return nil
}

// AttachDownloadURL fills job.DownloadURL for a completed job. Returns
// jobs.ErrNotReady while the job has not completed — the poll handler maps
// that to a try-again response, not a failure.
func (e *Exporter) AttachDownloadURL(ctx context.Context, job *store.ExportJob) error {
	if job.Status != jobs.StatusCompleted {
		return jobs.ErrNotReady
	}
	url, err := e.Bundles.DownloadURL(ctx, job.BundleKey, DownloadURLExpiry)
	if err != nil {
		return fmt.Errorf("presign bundle %s: %w", job.BundleKey, err)
	}
	job.DownloadURL = url
	return nil
}

func (e *Exporter) writeExportJobError(ctx context.Context, sessionID, jobID, errMsg string) error {
	job, err := e.Store.GetExportJob(ctx, sessionID, jobID)
	if err != nil {
		return fmt.Errorf("load export job for failure write: %w", err)
	}
	if job == nil {
		return fmt.Errorf("export job %s/%s vanished before failure write", sessionID, jobID)
	}
	job.Status = jobs.StatusFailed
	job.Error = errMsg
	return e.Store.PutExportJob(ctx, sessionID, job)
}
