package main

import (
	"net/http"
)

// handleDeckGet handles GET /api/deck?sessionId= — the committed deck
// snapshot. 404 when the session has no deck yet.
func handleDeckGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sessionID := requireSessionID(w, r)
	if sessionID == "" {
		return
	}

	rec, err := sessionStore.GetDeck(r.Context(), sessionID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load deck", err.Error())
		return
	}
	if rec == nil {
		httpError(w, http.StatusNotFound, "no deck for this session")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}
