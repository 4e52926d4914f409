package deck

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// merge.go commits a normalized fragment into the deck. Merge is the single
// integrity gate of the pipeline: it refuses fragments that skipped
// normalization, defensively re-validates the slide context, and always
// operates on a clone so the committed deck is never half-written.

// NormalizeFragment prepares parsed fragment slides for merging:
//
//   - every script passes the structural fence; unrepairable scripts are
//     dropped (the slide's visual content still applies) and reported as
//     warnings, not errors
//   - canvas ids colliding with the rest of the deck are rewritten, one
//     shared suffix for the whole operation
//
// The returned slides carry the normalization marker Merge requires.
func NormalizeFragment(slides []Slide, used map[string]bool) ([]Slide, []string, error) {
	suffix := newIDSuffix()
	warnings := make([]string, 0)

	out := make([]Slide, len(slides))
	for i, slide := range slides {
		kept := make([]string, 0, len(slide.Scripts))
		for j, script := range slide.Scripts {
			check := ValidateAndFixScript(script)
			if check.Err != nil {
				log.Warn().
					Int("slide", i).
					Int("script", j).
					Err(check.Err).
					Msg("Dropping unrepairable slide script")
				warnings = append(warnings, fmt.Sprintf("slide %d: dropped unrepairable script: %v", i, check.Err))
				continue
			}
			if check.Fixed != script {
				warnings = append(warnings, fmt.Sprintf("slide %d: repaired truncated script", i))
			}
			kept = append(kept, check.Fixed)
		}

		htmlText, scripts, canvasIDs, err := deduplicateWithSuffix(slide.HTML, kept, used, suffix)
		if err != nil {
			return nil, nil, err
		}
		// Ids this slide now owns are collisions for the slides after it.
		for _, id := range canvasIDs {
			if used[id] {
				// The shared-suffix strategy makes a post-rewrite
				// collision impossible; seeing one means the
				// invariant broke, not the input.
				return nil, nil, fmt.Errorf("canvas id %q still collides after deduplication", id)
			}
			used[id] = true
		}

		s := slide
		s.HTML = htmlText
		s.Scripts = scripts
		s.CanvasIDs = canvasIDs
		s.normalized = true
		out[i] = s
	}

	return out, warnings, nil
}

// Merge applies a normalized fragment to the current deck according to the
// classified intent. The returned outcome holds a new deck; current is never
// mutated. Any error leaves the committed deck exactly as it was.
func Merge(current *SlideDeck, sctx *SlideContext, intent Intent, fragment []Slide) (*ReplacementOutcome, error) {
	if len(fragment) == 0 {
		return nil, ErrEmptyFragment
	}
	for i, s := range fragment {
		if !s.normalized {
			return nil, fmt.Errorf("%w: slide %d", ErrNotNormalized, i)
		}
	}
	if err := sctx.Validate(); err != nil {
		return nil, err
	}

	base := current.Clone()
	before := len(base.Slides)

	var merged []Slide
	switch {
	case intent == IntentAdd:
		// Append only — existing slides are never rewritten by an Add.
		merged = append(base.Slides, fragment...)

	case sctx != nil:
		if sctx.End >= before {
			return nil, fmt.Errorf("%w: range [%d, %d] exceeds deck of %d slides",
				ErrContiguityViolation, sctx.Start, sctx.End, before)
		}
		// Replace [Start, End] with the fragment. Fewer slides than the
		// range consolidates, more expands — both are legal outcomes.
		merged = make([]Slide, 0, before-(sctx.End-sctx.Start+1)+len(fragment))
		merged = append(merged, base.Slides[:sctx.Start]...)
		merged = append(merged, fragment...)
		merged = append(merged, base.Slides[sctx.End+1:]...)

	default:
		// Whole-deck edit: the fragment becomes the deck.
		merged = fragment
	}

	for i := range merged {
		merged[i].Index = i
	}

	outcome := &ReplacementOutcome{Deck: &SlideDeck{Slides: merged}}
	if delta := len(merged) - before; delta > 0 {
		outcome.SlidesAdded = delta
	} else {
		outcome.SlidesRemoved = -delta
	}

	log.Debug().
		Str("intent", string(intent)).
		Int("before", before).
		Int("after", len(merged)).
		Int("fragment", len(fragment)).
		Msg("Deck merged")

	return outcome, nil
}
