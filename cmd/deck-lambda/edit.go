package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fpang/ai-deck-studio/internal/jobs"
	"github.com/fpang/ai-deck-studio/internal/locks"
	"github.com/fpang/ai-deck-studio/internal/pipeline"
)

func decodeEditRequest(w http.ResponseWriter, r *http.Request) (pipeline.EditRequest, bool) {
	var req pipeline.EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return pipeline.EditRequest{}, false
	}
	if req.SessionID == "" || !validSessionID(req.SessionID) {
		httpError(w, http.StatusBadRequest, "sessionId must be a valid UUID")
		return pipeline.EditRequest{}, false
	}
	if strings.TrimSpace(req.Message) == "" {
		httpError(w, http.StatusBadRequest, "message is required")
		return pipeline.EditRequest{}, false
	}
	return req, true
}

// handleEditSync handles POST /api/deck/edit — run the full edit pipeline in
// the request. Busy sessions get 409; edits the pipeline rejected (invalid
// context, generation that never validated) get 422 so the client can
// distinguish its own faults from server errors.
func handleEditSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, ok := decodeEditRequest(w, r)
	if !ok {
		return
	}

	result, err := editor.EditDeck(r.Context(), req)
	if err != nil {
		writeEditError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// handleEditAsync handles POST /api/deck/edit/async — persist a pending job,
// hand it to the worker, and return the job id for polling.
func handleEditAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, ok := decodeEditRequest(w, r)
	if !ok {
		return
	}

	jobID, err := editor.EditDeckAsync(r.Context(), req, newWorkerDispatcher())
	if err != nil {
		writeEditError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"id": jobID})
}

// handleChatRoutes handles GET /api/chat/{id}/results?sessionId= — poll an
// async edit. Unknown ids and ids owned by other sessions both 404.
func handleChatRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	jobID, action, ok := jobs.ParseRoute(r.URL.Path, "/api/chat/", jobs.KindChat+"-")
	if !ok || action != "results" {
		httpError(w, http.StatusNotFound, "not found")
		return
	}

	sessionID := requireSessionID(w, r)
	if sessionID == "" {
		return
	}

	job, err := sessionStore.GetChatJob(r.Context(), sessionID, jobID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load job", err.Error())
		return
	}
	if job == nil || !jobs.CheckOwnership(r, job.SessionID) {
		httpError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func writeEditError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, locks.ErrSessionBusy):
		httpError(w, http.StatusConflict, "session is busy with another edit")
	case pipeline.IsClientFault(err):
		httpError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		httpError(w, http.StatusInternalServerError, "edit failed", err.Error())
	}
}
