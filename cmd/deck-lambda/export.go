package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fpang/ai-deck-studio/internal/export"
	"github.com/fpang/ai-deck-studio/internal/jobs"
)

// handleExportStart handles POST /api/export/start — bundle the committed
// deck into a zip on S3. Returns 202 with the job id for polling.
func handleExportStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.SessionID == "" || !validSessionID(payload.SessionID) {
		httpError(w, http.StatusBadRequest, "sessionId must be a valid UUID")
		return
	}

	jobID, err := exporter.StartExport(r.Context(), payload.SessionID, newWorkerDispatcher())
	if err != nil {
		if errors.Is(err, export.ErrNoDeck) {
			httpError(w, http.StatusUnprocessableEntity, "session has no deck to export")
			return
		}
		httpError(w, http.StatusInternalServerError, "failed to start export", err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"id": jobID})
}

// handleExportRoutes handles GET /api/export/{id}/results?sessionId= — poll
// an export job. Completed jobs get a presigned download URL attached;
// pending and running jobs return their progress as-is.
func handleExportRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	jobID, action, ok := jobs.ParseRoute(r.URL.Path, "/api/export/", jobs.KindExport+"-")
	if !ok || action != "results" {
		httpError(w, http.StatusNotFound, "not found")
		return
	}

	sessionID := requireSessionID(w, r)
	if sessionID == "" {
		return
	}

	job, err := sessionStore.GetExportJob(r.Context(), sessionID, jobID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load job", err.Error())
		return
	}
	if job == nil || !jobs.CheckOwnership(r, job.SessionID) {
		httpError(w, http.StatusNotFound, "job not found")
		return
	}

	if err := exporter.AttachDownloadURL(r.Context(), job); err != nil && !errors.Is(err, jobs.ErrNotReady) {
		httpError(w, http.StatusInternalServerError, "failed to sign download URL", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, job)
}
