package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fpang/ai-deck-studio/internal/chat"
	"github.com/fpang/ai-deck-studio/internal/deck"
	"github.com/fpang/ai-deck-studio/internal/jobs"
	"github.com/fpang/ai-deck-studio/internal/locks"
	"github.com/fpang/ai-deck-studio/internal/store"
)

// fakeGenerator replays canned responses. Once the script runs out it keeps
// returning the last response.
type fakeGenerator struct {
	responses []string
	calls     int
}

func (f *fakeGenerator) GenerateSlides(_ context.Context, _ chat.SlideRequest) (string, error) {
	i := f.calls
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	f.calls++
	return f.responses[i], nil
}

type dispatcherFunc func(ctx context.Context, kind, sessionID, jobID string) error

func (f dispatcherFunc) Dispatch(ctx context.Context, kind, sessionID, jobID string) error {
	return f(ctx, kind, sessionID, jobID)
}

func newEditor(gen Generator) *Editor {
	return NewEditor(store.NewCachedStore(store.NewMemoryStore()), locks.New(), gen)
}

func slideMarkup(body string) string {
	return `<section class="slide">` + body + `</section>`
}

// seedDeck commits n slides through the store so tests start from a known deck.
func seedDeck(t *testing.T, e *Editor, sessionID string, slides ...deck.Slide) {
	t.Helper()
	for i := range slides {
		slides[i].Index = i
	}
	err := e.Store.PutDeck(context.Background(), sessionID, &store.DeckRecord{
		SessionID: sessionID,
		Slides:    slides,
	})
	if err != nil {
		t.Fatalf("seed deck: %v", err)
	}
}

func committedDeck(t *testing.T, e *Editor, sessionID string) *deck.SlideDeck {
	t.Helper()
	rec, err := e.Store.GetDeck(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("read committed deck: %v", err)
	}
	return rec.Deck()
}

func TestEditDeckAddToEmptyDeck(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		slideMarkup("<h1>Intro</h1>") + slideMarkup("<h1>Agenda</h1>"),
	}}
	e := newEditor(gen)

	res, err := e.EditDeck(context.Background(), EditRequest{
		SessionID: "s1",
		Message:   "Create two slides introducing the quarterly report",
	})
	if err != nil {
		t.Fatalf("EditDeck: %v", err)
	}
	if res.Deck.Count() != 2 {
		t.Errorf("deck count = %d, want 2", res.Deck.Count())
	}
	if got := committedDeck(t, e, "s1").Count(); got != 2 {
		t.Errorf("committed deck count = %d, want 2", got)
	}
}

func TestEditDeckRetriesThenSucceeds(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"I'm sorry, I cannot help with that.",
		"",
		slideMarkup("<h1>Revenue</h1>"),
	}}
	e := newEditor(gen)

	res, err := e.EditDeck(context.Background(), EditRequest{
		SessionID: "s1",
		Message:   "Add a slide about revenue",
	})
	if err != nil {
		t.Fatalf("EditDeck: %v", err)
	}
	if gen.calls != 3 {
		t.Errorf("generator calls = %d, want 3 (two rejections, one success)", gen.calls)
	}
	if res.Intent != deck.IntentAdd {
		t.Errorf("intent = %q, want add", res.Intent)
	}
}

func TestEditDeckValidationExhaustionPreservesDeck(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"There are no slides to modify."}}
	e := newEditor(gen)
	seedDeck(t, e, "s1", deck.Slide{HTML: slideMarkup("<h1>Keep me</h1>")})

	_, err := e.EditDeck(context.Background(), EditRequest{
		SessionID: "s1",
		Message:   "Rewrite everything",
	})
	if !errors.Is(err, deck.ErrValidationFailed) {
		t.Fatalf("err = %v, want ErrValidationFailed", err)
	}
	if gen.calls != deck.DefaultRetryLimit+1 {
		t.Errorf("generator calls = %d, want %d", gen.calls, deck.DefaultRetryLimit+1)
	}

	// The committed deck must be byte-for-byte what it was before.
	got := committedDeck(t, e, "s1")
	if got.Count() != 1 || !strings.Contains(got.Slides[0].HTML, "Keep me") {
		t.Errorf("committed deck changed after failed edit: %+v", got)
	}
}

func TestEditDeckSessionBusy(t *testing.T) {
	gen := &fakeGenerator{responses: []string{slideMarkup("x")}}
	e := newEditor(gen)

	if !e.Locks.TryAcquire("s1") {
		t.Fatal("setup: could not take lock")
	}
	defer e.Locks.Release("s1")

	_, err := e.EditDeck(context.Background(), EditRequest{SessionID: "s1", Message: "edit"})
	if !errors.Is(err, locks.ErrSessionBusy) {
		t.Fatalf("err = %v, want ErrSessionBusy", err)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times while session busy, want 0", gen.calls)
	}
}

func TestEditDeckReleasesLockOnFailure(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"i cannot"}}
	e := newEditor(gen)

	if _, err := e.EditDeck(context.Background(), EditRequest{SessionID: "s1", Message: "edit"}); err == nil {
		t.Fatal("expected validation failure")
	}
	if e.Locks.Held("s1") {
		t.Error("lock still held after failed edit")
	}
}

func TestEditDeckConsolidatesTargetedRange(t *testing.T) {
	gen := &fakeGenerator{responses: []string{slideMarkup("<h1>Merged</h1>")}}
	e := newEditor(gen)
	seedDeck(t, e, "s1",
		deck.Slide{HTML: slideMarkup("<h1>A</h1>")},
		deck.Slide{HTML: slideMarkup("<h1>B</h1>")},
		deck.Slide{HTML: slideMarkup("<h1>C</h1>")},
		deck.Slide{HTML: slideMarkup("<h1>D</h1>")},
	)

	res, err := e.EditDeck(context.Background(), EditRequest{
		SessionID: "s1",
		Message:   "Combine these two into one summary slide",
		Context: &deck.SlideContext{
			Start:     1,
			End:       2,
			Snapshots: []string{slideMarkup("<h1>B</h1>"), slideMarkup("<h1>C</h1>")},
		},
	})
	if err != nil {
		t.Fatalf("EditDeck: %v", err)
	}
	if res.Intent != deck.IntentEdit {
		t.Errorf("intent = %q, want edit", res.Intent)
	}
	if res.Deck.Count() != 3 {
		t.Fatalf("deck count = %d, want 3", res.Deck.Count())
	}
	if res.SlidesRemoved != 1 || res.SlidesAdded != 0 {
		t.Errorf("deltas = +%d/-%d, want +0/-1", res.SlidesAdded, res.SlidesRemoved)
	}
	if !strings.Contains(res.Deck.Slides[1].HTML, "Merged") {
		t.Errorf("slide 1 = %q, want merged slide", res.Deck.Slides[1].HTML)
	}
	if !strings.Contains(res.Deck.Slides[2].HTML, ">D<") {
		t.Errorf("slide 2 = %q, want untouched trailing slide", res.Deck.Slides[2].HTML)
	}
	for i, s := range res.Deck.Slides {
		if s.Index != i {
			t.Errorf("slide %d has index %d after renumbering", i, s.Index)
		}
	}
}

func TestEditDeckRenamesCollidingCanvas(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		slideMarkup(`<canvas id="chart1"></canvas><script>draw("#chart1");</script>`),
	}}
	e := newEditor(gen)
	seedDeck(t, e, "s1", deck.Slide{
		HTML:      slideMarkup(`<canvas id="chart1"></canvas>`),
		CanvasIDs: []string{"chart1"},
	})

	res, err := e.EditDeck(context.Background(), EditRequest{
		SessionID: "s1",
		Message:   "Add another chart slide",
	})
	if err != nil {
		t.Fatalf("EditDeck: %v", err)
	}
	if res.Deck.Count() != 2 {
		t.Fatalf("deck count = %d, want 2", res.Deck.Count())
	}

	newSlide := res.Deck.Slides[1]
	if len(newSlide.CanvasIDs) != 1 {
		t.Fatalf("canvas ids = %v, want one", newSlide.CanvasIDs)
	}
	id := newSlide.CanvasIDs[0]
	if id == "chart1" {
		t.Error("colliding canvas id was not renamed")
	}
	if !strings.HasPrefix(id, "chart1_") {
		t.Errorf("renamed id = %q, want chart1_<suffix>", id)
	}
	if !strings.Contains(newSlide.Scripts[0], "#"+id) {
		t.Errorf("script %q does not reference renamed canvas %q", newSlide.Scripts[0], id)
	}
}

func TestEditDeckRangeEditKeepsOwnCanvasID(t *testing.T) {
	// Replacing a chart slide with a reworked version of itself must not
	// rename the chart: the replaced slide's id is given back first.
	gen := &fakeGenerator{responses: []string{
		slideMarkup(`<canvas id="chart1"></canvas><script>draw("#chart1");</script>`),
	}}
	e := newEditor(gen)
	seedDeck(t, e, "s1", deck.Slide{
		HTML:      slideMarkup(`<canvas id="chart1"></canvas>`),
		CanvasIDs: []string{"chart1"},
	})

	res, err := e.EditDeck(context.Background(), EditRequest{
		SessionID: "s1",
		Message:   "Make the chart a bar chart",
		Context: &deck.SlideContext{
			Start:     0,
			End:       0,
			Snapshots: []string{slideMarkup(`<canvas id="chart1"></canvas>`)},
		},
	})
	if err != nil {
		t.Fatalf("EditDeck: %v", err)
	}
	if got := res.Deck.Slides[0].CanvasIDs[0]; got != "chart1" {
		t.Errorf("canvas id = %q, want chart1 retained through self-replacement", got)
	}
}

func TestEditDeckRejectsBadContext(t *testing.T) {
	gen := &fakeGenerator{responses: []string{slideMarkup("x")}}
	e := newEditor(gen)
	seedDeck(t, e, "s1", deck.Slide{HTML: slideMarkup("<h1>A</h1>")})

	cases := []struct {
		name string
		sctx *deck.SlideContext
	}{
		{"snapshot count mismatch", &deck.SlideContext{Start: 0, End: 1, Snapshots: []string{"one"}}},
		{"negative start", &deck.SlideContext{Start: -1, End: 0, Snapshots: []string{"one", "two"}}},
		{"end before start", &deck.SlideContext{Start: 2, End: 1}},
		{"out of bounds", &deck.SlideContext{Start: 0, End: 4, Snapshots: []string{"a", "b", "c", "d", "e"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.EditDeck(context.Background(), EditRequest{
				SessionID: "s1",
				Message:   "edit",
				Context:   tc.sctx,
			})
			if !errors.Is(err, deck.ErrContiguityViolation) {
				t.Fatalf("err = %v, want ErrContiguityViolation", err)
			}
		})
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times for rejected contexts, want 0", gen.calls)
	}
}

func TestEditDeckReportsScriptRepairWarnings(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		slideMarkup(`<canvas id="c"></canvas><script>function draw() { paint();</script>`),
	}}
	e := newEditor(gen)

	res, err := e.EditDeck(context.Background(), EditRequest{
		SessionID: "s1",
		Message:   "Add a chart slide",
	})
	if err != nil {
		t.Fatalf("EditDeck: %v", err)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected a repair warning for the truncated script")
	}
	if got := res.Deck.Slides[0].Scripts[0]; !strings.HasSuffix(got, "}") {
		t.Errorf("script not repaired: %q", got)
	}
}

func TestEditDeckAsyncLifecycle(t *testing.T) {
	gen := &fakeGenerator{responses: []string{slideMarkup("<h1>New</h1>")}}
	e := newEditor(gen)

	var dispatched struct{ kind, sessionID, jobID string }
	d := dispatcherFunc(func(_ context.Context, kind, sessionID, jobID string) error {
		dispatched.kind, dispatched.sessionID, dispatched.jobID = kind, sessionID, jobID
		return nil
	})

	ctx := context.Background()
	jobID, err := e.EditDeckAsync(ctx, EditRequest{SessionID: "s1", Message: "Add a new slide"}, d)
	if err != nil {
		t.Fatalf("EditDeckAsync: %v", err)
	}
	if dispatched.kind != jobs.KindChat || dispatched.jobID != jobID {
		t.Errorf("dispatched %+v, want kind=chat jobID=%s", dispatched, jobID)
	}

	// Client polls before the worker runs: pending.
	job, err := e.Store.GetChatJob(ctx, "s1", jobID)
	if err != nil || job == nil {
		t.Fatalf("GetChatJob: %v %v", job, err)
	}
	if job.Status != jobs.StatusPending {
		t.Errorf("status = %q before worker, want pending", job.Status)
	}

	if err := e.RunChatJob(ctx, "s1", jobID); err != nil {
		t.Fatalf("RunChatJob: %v", err)
	}

	job, err = e.Store.GetChatJob(ctx, "s1", jobID)
	if err != nil {
		t.Fatalf("GetChatJob: %v", err)
	}
	if job.Status != jobs.StatusCompleted {
		t.Errorf("status = %q, want completed", job.Status)
	}
	if job.Intent != string(deck.IntentAdd) {
		t.Errorf("intent = %q, want add", job.Intent)
	}
	if job.Progress != EditStages || job.Total != EditStages {
		t.Errorf("progress = %d/%d, want %d/%d", job.Progress, job.Total, EditStages, EditStages)
	}
	if got := committedDeck(t, e, "s1").Count(); got != 1 {
		t.Errorf("committed deck count = %d, want 1", got)
	}
}

func TestRunChatJobFailureIsTerminal(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"i cannot do that"}}
	e := newEditor(gen)
	d := dispatcherFunc(func(context.Context, string, string, string) error { return nil })

	ctx := context.Background()
	jobID, err := e.EditDeckAsync(ctx, EditRequest{SessionID: "s1", Message: "edit"}, d)
	if err != nil {
		t.Fatalf("EditDeckAsync: %v", err)
	}

	// The worker returns nil even though the pipeline failed — the failure
	// lives on the job record, and redelivery would be wasted work.
	if err := e.RunChatJob(ctx, "s1", jobID); err != nil {
		t.Fatalf("RunChatJob: %v", err)
	}

	job, err := e.Store.GetChatJob(ctx, "s1", jobID)
	if err != nil {
		t.Fatalf("GetChatJob: %v", err)
	}
	if job.Status != jobs.StatusFailed {
		t.Errorf("status = %q, want failed", job.Status)
	}
	if job.Error == "" {
		t.Error("failed job has no error message")
	}

	// Redelivery of the terminal job is a no-op.
	if err := e.RunChatJob(ctx, "s1", jobID); err != nil {
		t.Fatalf("RunChatJob redelivery: %v", err)
	}
	if again, _ := e.Store.GetChatJob(ctx, "s1", jobID); again.Status != jobs.StatusFailed {
		t.Errorf("redelivery changed status to %q", again.Status)
	}
}

func TestEditDeckAsyncDispatchFailureFailsJob(t *testing.T) {
	gen := &fakeGenerator{responses: []string{slideMarkup("x")}}
	e := newEditor(gen)
	d := dispatcherFunc(func(context.Context, string, string, string) error {
		return errors.New("invoke failed")
	})

	ctx := context.Background()
	_, err := e.EditDeckAsync(ctx, EditRequest{SessionID: "s1", Message: "edit"}, d)
	if err == nil {
		t.Fatal("expected dispatch error")
	}
}
