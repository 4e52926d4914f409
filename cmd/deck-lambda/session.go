package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-deck-studio/internal/store"
)

// handleSession handles POST /api/session — create a new session.
func handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	session := &store.Session{
		ID:        uuid.NewString(),
		Status:    "active",
		CreatedAt: time.Now().Unix(),
	}
	if err := sessionStore.PutSession(r.Context(), session); err != nil {
		httpError(w, http.StatusInternalServerError, "failed to create session", err.Error())
		return
	}

	log.Info().Str("sessionId", session.ID).Msg("Session created")
	respondJSON(w, http.StatusCreated, session)
}

// handleSessionByID handles DELETE /api/session/{id} — delete a session, its
// deck, job history, and any Gemini caches keyed to it.
func handleSessionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sessionID := strings.TrimPrefix(r.URL.Path, "/api/session/")
	if sessionID == "" || strings.Contains(sessionID, "/") || !validSessionID(sessionID) {
		httpError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	if err := sessionStore.DeleteSession(r.Context(), sessionID); err != nil {
		httpError(w, http.StatusInternalServerError, "failed to delete session", err.Error())
		return
	}
	chatClient.Caches().DeleteAll(r.Context(), sessionID)

	log.Info().Str("sessionId", sessionID).Msg("Session deleted")
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
