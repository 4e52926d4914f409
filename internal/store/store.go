// Package store provides persistent session and deck state storage for the
// deck edit pipeline. The durable tier is DynamoDB: a single-table design
// where all records for a session share a partition key (SESSION#{sessionId})
// and sort keys distinguish record types (META, DECK, CHAT#, EXPORT#). A TTL
// attribute (expiresAt) auto-deletes records after 24 hours.
//
// CachedStore layers an in-memory deck cache over any SessionStore so the
// hot read path (deck polling, rendering) skips the durable tier while every
// committed write goes through to it.
package store

import (
	"context"
	"time"

	"github.com/fpang/ai-deck-studio/internal/deck"
)

// SessionTTL is the default time-to-live for all DynamoDB records.
const SessionTTL = 24 * time.Hour

// SessionStore defines the persistence interface for deck pipeline state.
// Each method is safe for concurrent use. All Get methods return (nil, nil)
// when the requested record does not exist. All Put methods perform
// full-item replacement (upsert semantics).
type SessionStore interface {
	// --- Session metadata ---

	// PutSession creates or replaces a session metadata record.
	PutSession(ctx context.Context, session *Session) error

	// GetSession retrieves session metadata by ID. Returns nil, nil if not found.
	GetSession(ctx context.Context, sessionID string) (*Session, error)

	// DeleteSession removes the session and every record under it,
	// including the committed deck and job history.
	DeleteSession(ctx context.Context, sessionID string) error

	// --- Deck state ---

	// PutDeck replaces the committed deck for a session. The write is a
	// whole-value replacement — readers never observe a partial deck.
	PutDeck(ctx context.Context, sessionID string, rec *DeckRecord) error

	// GetDeck retrieves the committed deck. Returns nil, nil if the
	// session has no deck yet.
	GetDeck(ctx context.Context, sessionID string) (*DeckRecord, error)

	// DeleteDeck clears the committed deck without touching the session.
	DeleteDeck(ctx context.Context, sessionID string) error

	// --- Chat completion jobs ---

	// PutChatJob creates or replaces a chat job record.
	PutChatJob(ctx context.Context, sessionID string, job *ChatJob) error

	// GetChatJob retrieves a chat job. Returns nil, nil if not found.
	GetChatJob(ctx context.Context, sessionID, jobID string) (*ChatJob, error)

	// --- Export conversion jobs ---

	// PutExportJob creates or replaces an export job record.
	PutExportJob(ctx context.Context, sessionID string, job *ExportJob) error

	// GetExportJob retrieves an export job. Returns nil, nil if not found.
	GetExportJob(ctx context.Context, sessionID, jobID string) (*ExportJob, error)
}

// --- Domain types ---
//
// Each type maps to a DynamoDB record. ID and SessionID fields are derived
// from PK/SK on read and excluded from DynamoDB attributes on write
// (via dynamodbav:"-").

// Session represents session metadata (DynamoDB SK = META).
type Session struct {
	ID        string `json:"id" dynamodbav:"-"`
	Status    string `json:"status" dynamodbav:"status"`
	Title     string `json:"title,omitempty" dynamodbav:"title,omitempty"`
	CreatedAt int64  `json:"createdAt" dynamodbav:"createdAt"`
}

// DeckRecord is the committed deck for a session (DynamoDB SK = DECK).
type DeckRecord struct {
	SessionID string       `json:"-" dynamodbav:"-"`
	Slides    []deck.Slide `json:"slides" dynamodbav:"slides"`
	UpdatedAt int64        `json:"updatedAt" dynamodbav:"updatedAt"`
}

// Deck returns the record's slides as a SlideDeck. A nil record is an empty
// deck — a fresh session.
func (r *DeckRecord) Deck() *deck.SlideDeck {
	if r == nil {
		return &deck.SlideDeck{}
	}
	return &deck.SlideDeck{Slides: r.Slides}
}

// ChatJob represents an async deck edit (DynamoDB SK = CHAT#{jobId}).
// Message and Context are the submitted request, persisted so the worker
// process can pick the job up without any shared memory with the API.
type ChatJob struct {
	ID            string             `json:"id" dynamodbav:"-"`
	SessionID     string             `json:"-" dynamodbav:"-"`
	Status        string             `json:"status" dynamodbav:"status"`
	Message       string             `json:"message,omitempty" dynamodbav:"message,omitempty"`
	Context       *deck.SlideContext `json:"context,omitempty" dynamodbav:"context,omitempty"`
	Intent        string             `json:"intent,omitempty" dynamodbav:"intent,omitempty"`
	Progress      int                `json:"progress" dynamodbav:"progress"`
	Total         int                `json:"total" dynamodbav:"total"`
	SlidesAdded   int                `json:"slidesAdded,omitempty" dynamodbav:"slidesAdded,omitempty"`
	SlidesRemoved int                `json:"slidesRemoved,omitempty" dynamodbav:"slidesRemoved,omitempty"`
	Warnings      []string           `json:"warnings,omitempty" dynamodbav:"warnings,omitempty"`
	Error         string             `json:"error,omitempty" dynamodbav:"error,omitempty"`
}

// ExportJob represents a deck export conversion (DynamoDB SK = EXPORT#{jobId}).
type ExportJob struct {
	ID          string `json:"id" dynamodbav:"-"`
	SessionID   string `json:"-" dynamodbav:"-"`
	Status      string `json:"status" dynamodbav:"status"`
	Progress    int    `json:"progress" dynamodbav:"progress"`
	Total       int    `json:"total" dynamodbav:"total"`
	BundleKey   string `json:"-" dynamodbav:"bundleKey,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty" dynamodbav:"-"`
	Error       string `json:"error,omitempty" dynamodbav:"error,omitempty"`
}
