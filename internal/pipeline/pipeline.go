// Package pipeline orchestrates one deck edit end to end: lock the session,
// generate markup, validate with bounded retries, classify intent, normalize
// the fragment, merge, and commit the new deck write-through. The committed
// deck changes only at the final commit; every earlier failure leaves it
// exactly as it was.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-deck-studio/internal/chat"
	"github.com/fpang/ai-deck-studio/internal/deck"
	"github.com/fpang/ai-deck-studio/internal/locks"
	"github.com/fpang/ai-deck-studio/internal/metrics"
	"github.com/fpang/ai-deck-studio/internal/store"
)

// Generator produces raw slide markup for an edit request. Implemented by
// chat.Client in production and by fakes in tests.
type Generator interface {
	GenerateSlides(ctx context.Context, req chat.SlideRequest) (string, error)
}

// Editor runs deck edits against a session store.
type Editor struct {
	Store      store.SessionStore
	Locks      *locks.SessionLocks
	Generator  Generator
	Validator  deck.ValidatorConfig
	Classifier deck.ClassifierConfig
}

// NewEditor creates an Editor with the default validator and classifier
// configuration.
func NewEditor(st store.SessionStore, lk *locks.SessionLocks, gen Generator) *Editor {
	return &Editor{
		Store:      st,
		Locks:      lk,
		Generator:  gen,
		Validator:  deck.DefaultValidatorConfig(),
		Classifier: deck.DefaultClassifierConfig(),
	}
}

// EditRequest is one user edit instruction against a session's deck.
type EditRequest struct {
	SessionID string             `json:"sessionId"`
	Message   string             `json:"message"`
	Context   *deck.SlideContext `json:"context,omitempty"`

	// OnProgress, when set, is called after each completed pipeline stage
	// with (stage, EditStages). The async path persists these as job
	// progress; the sync path leaves it nil.
	OnProgress func(stage, total int) `json:"-"`
}

// EditStages is the number of progress stages an edit reports: generation
// validated, fragment parsed, fragment normalized, deck committed.
const EditStages = 4

// EditResult describes a committed edit.
type EditResult struct {
	Intent        deck.Intent     `json:"intent"`
	Deck          *deck.SlideDeck `json:"deck"`
	SlidesAdded   int             `json:"slidesAdded"`
	SlidesRemoved int             `json:"slidesRemoved"`
	Warnings      []string        `json:"warnings,omitempty"`
}

// EditDeck runs the full edit pipeline synchronously and returns the
// committed outcome.
//
// Error contract: locks.ErrSessionBusy when another edit holds the session,
// deck.ErrContiguityViolation for a bad slide context,
// deck.ErrValidationFailed when every generation attempt was unusable. All
// errors leave the committed deck untouched.
func (e *Editor) EditDeck(ctx context.Context, req EditRequest) (*EditResult, error) {
	if err := req.Context.Validate(); err != nil {
		return nil, err
	}

	if !e.Locks.TryAcquire(req.SessionID) {
		return nil, locks.ErrSessionBusy
	}
	defer e.Locks.Release(req.SessionID)

	rec, err := e.Store.GetDeck(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load deck %s: %w", req.SessionID, err)
	}
	current := rec.Deck()

	// Fail the range check before spending a generation call.
	if req.Context != nil && req.Context.End >= current.Count() {
		return nil, fmt.Errorf("%w: range [%d, %d] exceeds deck of %d slides",
			deck.ErrContiguityViolation, req.Context.Start, req.Context.End, current.Count())
	}

	text, attempts, err := e.generateValidated(ctx, req, current)
	if err != nil {
		return nil, err
	}
	report(req, 1)

	intent := e.Classifier.Classify(req.Message)

	slides, err := deck.ParseFragment(text)
	if err != nil {
		return nil, fmt.Errorf("parse generated fragment: %w", err)
	}
	report(req, 2)

	used := retainedCanvasIDs(current, intent, req.Context)
	normalized, warnings, err := deck.NormalizeFragment(slides, used)
	if err != nil {
		return nil, fmt.Errorf("normalize fragment: %w", err)
	}
	report(req, 3)

	mergeStart := time.Now()
	outcome, err := deck.Merge(current, req.Context, intent, normalized)
	if err != nil {
		return nil, err
	}
	mergeElapsed := time.Since(mergeStart)

	if err := e.Store.PutDeck(ctx, req.SessionID, &store.DeckRecord{
		SessionID: req.SessionID,
		Slides:    outcome.Deck.Slides,
		UpdatedAt: time.Now().Unix(),
	}); err != nil {
		return nil, fmt.Errorf("commit deck %s: %w", req.SessionID, err)
	}
	report(req, 4)

	log.Info().
		Str("sessionId", req.SessionID).
		Str("intent", string(intent)).
		Int("slides", outcome.Deck.Count()).
		Int("slidesAdded", outcome.SlidesAdded).
		Int("slidesRemoved", outcome.SlidesRemoved).
		Int("warnings", len(warnings)).
		Msg("Deck edit committed")

	metrics.Op("edit").
		Metric("GenerationAttempts", float64(attempts), metrics.UnitCount).
		Metric("MergeLatencyMs", float64(mergeElapsed.Milliseconds()), metrics.UnitMilliseconds).
		Metric("ScriptRepairCount", float64(len(warnings)), metrics.UnitCount).
		Count("EditCommitted").
		Property("sessionId", req.SessionID).
		Property("intent", string(intent)).
		Flush()

	return &EditResult{
		Intent:        intent,
		Deck:          outcome.Deck,
		SlidesAdded:   outcome.SlidesAdded,
		SlidesRemoved: outcome.SlidesRemoved,
		Warnings:      warnings,
	}, nil
}

// generateValidated runs the bounded generate-validate loop. It returns the
// first response that passes validation and the number of attempts spent, or
// ErrValidationFailed once the retry budget is exhausted.
func (e *Editor) generateValidated(ctx context.Context, req EditRequest, current *deck.SlideDeck) (string, int, error) {
	attempts := e.Validator.RetryLimit + 1
	var last deck.ValidationResult

	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := e.Generator.GenerateSlides(ctx, chat.SlideRequest{
			SessionID: req.SessionID,
			Message:   req.Message,
			Deck:      current,
			Context:   req.Context,
		})
		if err != nil {
			return "", attempt, fmt.Errorf("generate slides (attempt %d): %w", attempt, err)
		}

		last = e.Validator.Validate(text)
		if last.Verdict == deck.VerdictValid {
			return text, attempt, nil
		}

		log.Warn().
			Str("sessionId", req.SessionID).
			Int("attempt", attempt).
			Int("attempts", attempts).
			Str("verdict", string(last.Verdict)).
			Str("reason", last.Reason).
			Msg("Generator response rejected")
	}

	return "", attempts, fmt.Errorf("%w after %d attempts (%s: %s)",
		deck.ErrValidationFailed, attempts, last.Verdict, last.Reason)
}

// retainedCanvasIDs returns the canvas ids that stay in the deck after the
// merge — the set new slides must not collide with. Slides the edit replaces
// give their ids back: replacing a chart slide with a reworked version of
// itself must not force a rename.
func retainedCanvasIDs(current *deck.SlideDeck, intent deck.Intent, sctx *deck.SlideContext) map[string]bool {
	switch {
	case intent == deck.IntentAdd:
		return current.UsedCanvasIDs()
	case sctx != nil:
		used := make(map[string]bool)
		for _, s := range current.Slides {
			if s.Index >= sctx.Start && s.Index <= sctx.End {
				continue
			}
			for _, id := range s.CanvasIDs {
				used[id] = true
			}
		}
		return used
	default:
		// Whole-deck replacement retains nothing.
		return make(map[string]bool)
	}
}

func report(req EditRequest, stage int) {
	if req.OnProgress != nil {
		req.OnProgress(stage, EditStages)
	}
}

// IsClientFault reports whether err is the caller's fault rather than a
// server failure: a busy session, a bad slide range, or a generator that
// never produced usable markup.
func IsClientFault(err error) bool {
	return errors.Is(err, locks.ErrSessionBusy) ||
		errors.Is(err, deck.ErrContiguityViolation) ||
		errors.Is(err, deck.ErrValidationFailed) ||
		errors.Is(err, deck.ErrEmptyFragment)
}
