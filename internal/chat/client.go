// Package chat wraps the Gemini API for slide generation. The pipeline
// treats the generator as an untrusted collaborator: this package only
// produces raw response text, and the deck package decides whether that
// text is usable.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/ai-deck-studio/internal/deck"
)

// DefaultModelName is the Gemini model used for slide generation.
const DefaultModelName = "gemini-3-flash-preview"

// SlideRequest carries everything the generator needs for one attempt.
type SlideRequest struct {
	SessionID string
	Message   string
	Deck      *deck.SlideDeck
	Context   *deck.SlideContext
}

// Client is a slide generator backed by the Gemini API.
type Client struct {
	genai  *genai.Client
	caches *CacheManager
	model  string
}

// NewClient creates a Gemini-backed slide generator.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if model == "" {
		model = DefaultModelName
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{
		genai:  gc,
		caches: NewCacheManager(gc),
		model:  model,
	}, nil
}

// Caches exposes the cache manager so session deletion can clean up
// cached context entries.
func (c *Client) Caches() *CacheManager {
	return c.caches
}

// Genai exposes the underlying Gemini client for API key validation.
func (c *Client) Genai() *genai.Client {
	return c.genai
}

// GenerateSlides sends one generation attempt to Gemini and returns the raw
// response text. The response is not validated here — callers run it
// through deck.ValidatorConfig.Validate and retry on an invalid verdict.
func (c *Client) GenerateSlides(ctx context.Context, req SlideRequest) (string, error) {
	log.Debug().
		Str("sessionId", req.SessionID).
		Int("deckSlides", req.Deck.Count()).
		Msg("Requesting slide generation from Gemini")

	systemInstruction := &genai.Content{
		Parts: []*genai.Part{{Text: slideSystemPrompt}},
	}

	userParts := []*genai.Part{{Text: BuildEditPrompt(req)}}

	resp, err := c.caches.GenerateWithCache(
		ctx,
		CacheConfig{SessionID: req.SessionID, Operation: "edit"},
		c.model,
		systemInstruction,
		deckCacheContents(req.Deck),
		userParts,
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("generate slides: %w", err)
	}

	text := responseText(resp)
	log.Debug().
		Str("sessionId", req.SessionID).
		Int("responseLength", len(text)).
		Msg("Received slide generation response")
	return text, nil
}

// deckCacheContents renders the committed deck as cacheable context so
// repeated edits in a session reuse the uploaded deck state.
func deckCacheContents(d *deck.SlideDeck) []*genai.Content {
	if d.Count() == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("Current presentation deck:\n")
	for _, s := range d.Slides {
		fmt.Fprintf(&sb, "\n<!-- slide %d -->\n%s\n", s.Index, s.HTML)
	}
	return []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: sb.String()}},
	}}
}

// responseText flattens the first candidate's text parts.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
