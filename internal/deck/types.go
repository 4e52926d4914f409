// Package deck implements the edit and integrity pipeline for slide decks
// generated by an LLM: response validation, intent classification, script
// syntax checking, canvas id deduplication, and structural merging.
//
// The package is pure domain logic — it never touches the network or a
// datastore. Callers feed it the raw generator response and the committed
// deck; it returns either a fully merged replacement deck or a typed error,
// never a partially applied state.
package deck

import "fmt"

// Slide is one slide of a session's deck. HTML holds exactly one top-level
// slide container element; Scripts hold the bodies of <script> elements
// extracted from that container; CSS holds any <style> content.
type Slide struct {
	Index     int      `json:"index" dynamodbav:"index"`
	HTML      string   `json:"html" dynamodbav:"html"`
	Scripts   []string `json:"scripts,omitempty" dynamodbav:"scripts,omitempty"`
	CSS       string   `json:"css,omitempty" dynamodbav:"css,omitempty"`
	CanvasIDs []string `json:"canvasIds,omitempty" dynamodbav:"canvasIds,omitempty"`

	// normalized is set by NormalizeFragment once the slide has passed
	// script validation and canvas deduplication. Merge refuses fragments
	// that skipped normalization. Transient — never persisted.
	normalized bool
}

// SlideDeck is the ordered slide sequence owned by one session.
type SlideDeck struct {
	Slides []Slide `json:"slides"`
}

// Count returns the number of slides in the deck.
func (d *SlideDeck) Count() int {
	if d == nil {
		return 0
	}
	return len(d.Slides)
}

// UsedCanvasIDs returns the set of canvas ids already claimed by the deck.
func (d *SlideDeck) UsedCanvasIDs() map[string]bool {
	used := make(map[string]bool)
	if d == nil {
		return used
	}
	for _, s := range d.Slides {
		for _, id := range s.CanvasIDs {
			used[id] = true
		}
	}
	return used
}

// Clone returns a deep copy of the deck. Merge works on a clone so a failed
// operation can never leave the committed deck half-written.
func (d *SlideDeck) Clone() *SlideDeck {
	if d == nil {
		return &SlideDeck{}
	}
	out := &SlideDeck{Slides: make([]Slide, len(d.Slides))}
	for i, s := range d.Slides {
		cp := s
		cp.Scripts = append([]string(nil), s.Scripts...)
		cp.CanvasIDs = append([]string(nil), s.CanvasIDs...)
		out.Slides[i] = cp
	}
	return out
}

// SlideContext identifies the contiguous range of existing slides an edit
// targets, with HTML snapshots of the slides as the client last saw them.
type SlideContext struct {
	Start     int      `json:"startIndex"`
	End       int      `json:"endIndex"`
	Snapshots []string `json:"htmlSnapshots"`
}

// Validate checks the contiguity invariant: the snapshot count must match the
// declared index range. The HTTP layer checks this too, but the pipeline
// re-validates before using the range.
func (c *SlideContext) Validate() error {
	if c == nil {
		return nil
	}
	if c.Start < 0 || c.End < c.Start {
		return fmt.Errorf("%w: range [%d, %d]", ErrContiguityViolation, c.Start, c.End)
	}
	if want := c.End - c.Start + 1; len(c.Snapshots) != want {
		return fmt.Errorf("%w: range [%d, %d] expects %d snapshots, got %d",
			ErrContiguityViolation, c.Start, c.End, want, len(c.Snapshots))
	}
	return nil
}

// Intent is the classified meaning of a user instruction.
type Intent string

const (
	// IntentAdd appends new slides without touching existing ones.
	IntentAdd Intent = "add"
	// IntentEdit replaces targeted slides (or the whole deck when no
	// slide context is given). The default on ambiguity: a wrong Edit
	// misapplies a change, a wrong Add creates slides the user must delete.
	IntentEdit Intent = "edit"
)

// Verdict classifies a raw generator response.
type Verdict string

const (
	VerdictValid       Verdict = "valid"
	VerdictEmpty       Verdict = "invalid_empty"
	VerdictConfusion   Verdict = "invalid_confusion"
	VerdictNoContainer Verdict = "invalid_no_container"
)

// ValidationResult is the outcome of validating one generator response.
type ValidationResult struct {
	Verdict Verdict `json:"verdict"`
	Reason  string  `json:"reason,omitempty"`
}

// ReplacementOutcome describes a committed merge. SlidesAdded and
// SlidesRemoved are net count deltas: a consolidate reports removals, an
// expand reports additions, a same-count replace reports neither.
type ReplacementOutcome struct {
	Deck          *SlideDeck `json:"deck"`
	SlidesAdded   int        `json:"slidesAdded"`
	SlidesRemoved int        `json:"slidesRemoved"`
}
