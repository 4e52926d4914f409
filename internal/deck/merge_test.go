package deck

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// fragmentOf parses and normalizes generated markup for n slides.
func fragmentOf(t *testing.T, used map[string]bool, n int) []Slide {
	t.Helper()
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, `<section class="slide"><h2>Fragment %d</h2></section>`, i)
	}
	parsed, err := ParseFragment(sb.String())
	if err != nil {
		t.Fatalf("ParseFragment: %v", err)
	}
	normalized, _, err := NormalizeFragment(parsed, used)
	if err != nil {
		t.Fatalf("NormalizeFragment: %v", err)
	}
	return normalized
}

// deckOf builds a committed deck of n plain slides.
func deckOf(n int) *SlideDeck {
	d := &SlideDeck{}
	for i := 0; i < n; i++ {
		d.Slides = append(d.Slides, Slide{
			Index: i,
			HTML:  fmt.Sprintf(`<section class="slide"><h2>Existing %d</h2></section>`, i),
		})
	}
	return d
}

func TestMergeAddAppends(t *testing.T) {
	current := deckOf(3)
	fragment := fragmentOf(t, current.UsedCanvasIDs(), 1)

	outcome, err := Merge(current, nil, IntentAdd, fragment)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if outcome.Deck.Count() != 4 {
		t.Errorf("count = %d, want 4", outcome.Deck.Count())
	}
	if outcome.SlidesAdded != 1 || outcome.SlidesRemoved != 0 {
		t.Errorf("added/removed = %d/%d, want 1/0", outcome.SlidesAdded, outcome.SlidesRemoved)
	}
	// Add never rewrites existing slides.
	for i := 0; i < 3; i++ {
		if outcome.Deck.Slides[i].HTML != current.Slides[i].HTML {
			t.Errorf("slide %d rewritten by Add", i)
		}
	}
	if current.Count() != 3 {
		t.Errorf("input deck mutated: count = %d", current.Count())
	}
}

func TestMergeEditConsolidates(t *testing.T) {
	current := deckOf(4)
	fragment := fragmentOf(t, current.UsedCanvasIDs(), 1)
	sctx := &SlideContext{Start: 2, End: 3, Snapshots: []string{"a", "b"}}

	outcome, err := Merge(current, sctx, IntentEdit, fragment)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if outcome.Deck.Count() != 3 {
		t.Errorf("count = %d, want 3", outcome.Deck.Count())
	}
	if outcome.SlidesRemoved != 1 || outcome.SlidesAdded != 0 {
		t.Errorf("added/removed = %d/%d, want 0/1", outcome.SlidesAdded, outcome.SlidesRemoved)
	}
	for i, s := range outcome.Deck.Slides {
		if s.Index != i {
			t.Errorf("slide %d renumbered to %d", i, s.Index)
		}
	}
}

func TestMergeEditExpands(t *testing.T) {
	current := deckOf(3)
	fragment := fragmentOf(t, current.UsedCanvasIDs(), 3)
	sctx := &SlideContext{Start: 1, End: 1, Snapshots: []string{"a"}}

	outcome, err := Merge(current, sctx, IntentEdit, fragment)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if outcome.Deck.Count() != 5 {
		t.Errorf("count = %d, want 5", outcome.Deck.Count())
	}
	if outcome.SlidesAdded != 2 {
		t.Errorf("added = %d, want 2", outcome.SlidesAdded)
	}
	// Slides outside the range survive in order.
	if !strings.Contains(outcome.Deck.Slides[0].HTML, "Existing 0") {
		t.Errorf("slide 0 = %q", outcome.Deck.Slides[0].HTML)
	}
	if !strings.Contains(outcome.Deck.Slides[4].HTML, "Existing 2") {
		t.Errorf("slide 4 = %q", outcome.Deck.Slides[4].HTML)
	}
}

func TestMergeWholeDeckEdit(t *testing.T) {
	current := deckOf(2)
	fragment := fragmentOf(t, current.UsedCanvasIDs(), 4)

	outcome, err := Merge(current, nil, IntentEdit, fragment)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if outcome.Deck.Count() != 4 {
		t.Errorf("count = %d, want 4", outcome.Deck.Count())
	}
	if outcome.SlidesAdded != 2 {
		t.Errorf("added = %d, want 2", outcome.SlidesAdded)
	}
}

func TestMergeRejectsUnnormalizedFragment(t *testing.T) {
	current := deckOf(1)
	raw := []Slide{{HTML: `<section class="slide"><h2>Raw</h2></section>`}}

	_, err := Merge(current, nil, IntentAdd, raw)
	if !errors.Is(err, ErrNotNormalized) {
		t.Fatalf("err = %v, want ErrNotNormalized", err)
	}
}

func TestMergeRejectsEmptyFragment(t *testing.T) {
	_, err := Merge(deckOf(1), nil, IntentEdit, nil)
	if !errors.Is(err, ErrEmptyFragment) {
		t.Fatalf("err = %v, want ErrEmptyFragment", err)
	}
}

func TestMergeRejectsBadContext(t *testing.T) {
	current := deckOf(3)
	fragment := fragmentOf(t, current.UsedCanvasIDs(), 1)

	cases := []*SlideContext{
		{Start: 1, End: 2, Snapshots: []string{"only one"}}, // snapshot count mismatch
		{Start: -1, End: 0, Snapshots: []string{"a", "b"}},  // negative start
		{Start: 2, End: 1, Snapshots: []string{}},           // inverted range
		{Start: 1, End: 5, Snapshots: []string{"a", "b", "c", "d", "e"}}, // beyond deck
	}
	for i, sctx := range cases {
		_, err := Merge(current, sctx, IntentEdit, fragment)
		if !errors.Is(err, ErrContiguityViolation) {
			t.Errorf("case %d: err = %v, want ErrContiguityViolation", i, err)
		}
	}
}

func TestNormalizeFragmentDropsBrokenScript(t *testing.T) {
	text := `<section class="slide"><h2>Chart</h2>
<script>function good(){ draw();</script>
<script>broken(])</script>
</section>`

	parsed, err := ParseFragment(text)
	if err != nil {
		t.Fatalf("ParseFragment: %v", err)
	}
	normalized, warnings, err := NormalizeFragment(parsed, map[string]bool{})
	if err != nil {
		t.Fatalf("NormalizeFragment: %v", err)
	}

	// The truncated script is repaired, the mismatched one is dropped, and
	// the slide itself survives.
	if len(normalized[0].Scripts) != 1 {
		t.Fatalf("scripts = %q, want only the repaired script", normalized[0].Scripts)
	}
	if normalized[0].Scripts[0] != "function good(){ draw();}" {
		t.Errorf("repaired script = %q", normalized[0].Scripts[0])
	}
	var dropped bool
	for _, w := range warnings {
		if strings.Contains(w, "unrepairable") {
			dropped = true
		}
	}
	if !dropped {
		t.Errorf("warnings = %q, want an unrepairable-script warning", warnings)
	}
}
