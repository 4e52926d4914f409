package main

import (
	"net/http"

	"github.com/google/uuid"
)

// requireSessionID pulls the sessionId query param and validates it is a
// well-formed UUID. Writes the error response itself and returns "" on
// failure.
func requireSessionID(w http.ResponseWriter, r *http.Request) string {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		httpError(w, http.StatusBadRequest, "sessionId query parameter is required")
		return ""
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		httpError(w, http.StatusBadRequest, "sessionId must be a valid UUID")
		return ""
	}
	return sessionID
}

// validSessionID reports whether the given string is a well-formed UUID.
func validSessionID(sessionID string) bool {
	_, err := uuid.Parse(sessionID)
	return err == nil
}
