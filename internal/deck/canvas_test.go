package deck

import (
	"strings"
	"testing"
)

func TestDeduplicateCanvasIDsCollision(t *testing.T) {
	html := `<section class="slide"><canvas id="chart1"></canvas><canvas id="chart1"></canvas></section>`
	scripts := []string{
		`const c = document.getElementById('chart1'); new Chart(c, {});`,
		`document.querySelector("#chart1").height = 300;`,
	}
	used := map[string]bool{"chart1": true}

	outHTML, outScripts, ids, err := DeduplicateCanvasIDs(html, scripts, used)
	if err != nil {
		t.Fatalf("DeduplicateCanvasIDs: %v", err)
	}

	if strings.Contains(outHTML, `id="chart1"`) {
		t.Errorf("colliding id survived: %q", outHTML)
	}
	if len(ids) != 1 {
		t.Fatalf("ids = %v, want one renamed id", ids)
	}
	renamed := ids[0]
	if !strings.HasPrefix(renamed, "chart1_") || len(renamed) != len("chart1_")+6 {
		t.Errorf("renamed id = %q, want chart1_<6 hex chars>", renamed)
	}
	// Both canvases collide with the same deck id, so they share the
	// operation's suffix.
	if strings.Count(outHTML, `id="`+renamed+`"`) != 2 {
		t.Errorf("both canvases should carry %q: %q", renamed, outHTML)
	}
	if !strings.Contains(outScripts[0], "'"+renamed+"'") {
		t.Errorf("literal lookup not rewritten: %q", outScripts[0])
	}
	if !strings.Contains(outScripts[1], "#"+renamed) {
		t.Errorf("selector lookup not rewritten: %q", outScripts[1])
	}
}

func TestDeduplicateCanvasIDsNoCanvas(t *testing.T) {
	html := `<section class="slide"><h1>No charts</h1></section>`
	scripts := []string{"console.log('hi');"}

	outHTML, outScripts, ids, err := DeduplicateCanvasIDs(html, scripts, map[string]bool{"chart1": true})
	if err != nil {
		t.Fatalf("DeduplicateCanvasIDs: %v", err)
	}
	if outHTML != html {
		t.Errorf("canvas-free html rewritten: %q", outHTML)
	}
	if outScripts[0] != scripts[0] {
		t.Errorf("canvas-free scripts rewritten: %q", outScripts[0])
	}
	if len(ids) != 0 {
		t.Errorf("ids = %v, want none", ids)
	}
}

func TestDeduplicateCanvasIDsIdempotent(t *testing.T) {
	html := `<section class="slide"><canvas id="chart1"></canvas></section>`
	scripts := []string{`document.getElementById('chart1');`}
	used := map[string]bool{"chart1": true}

	firstHTML, firstScripts, firstIDs, err := DeduplicateCanvasIDs(html, scripts, used)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}

	// The renamed ids are now globally unique; a second pass is a no-op.
	secondHTML, secondScripts, secondIDs, err := DeduplicateCanvasIDs(firstHTML, firstScripts, used)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if secondHTML != firstHTML {
		t.Errorf("second pass changed html:\nfirst  %q\nsecond %q", firstHTML, secondHTML)
	}
	if secondScripts[0] != firstScripts[0] {
		t.Errorf("second pass changed scripts")
	}
	if len(secondIDs) != 1 || secondIDs[0] != firstIDs[0] {
		t.Errorf("second pass ids = %v, want %v", secondIDs, firstIDs)
	}
}

func TestDeduplicateCanvasIDsDistinctSuffixes(t *testing.T) {
	html := `<section class="slide"><canvas id="chart1"></canvas></section>`
	used := map[string]bool{"chart1": true}

	_, _, idsA, err := DeduplicateCanvasIDs(html, nil, used)
	if err != nil {
		t.Fatalf("edit A: %v", err)
	}
	_, _, idsB, err := DeduplicateCanvasIDs(html, nil, used)
	if err != nil {
		t.Fatalf("edit B: %v", err)
	}

	// Byte-identical fragments in sequential operations must not share a
	// suffix — shared ids would fake shared chart state.
	if idsA[0] == idsB[0] {
		t.Errorf("sequential operations produced the same id %q", idsA[0])
	}
}

func TestDeduplicateCanvasIDsBoundary(t *testing.T) {
	html := `<section class="slide"><canvas id="chart1"></canvas><canvas id="chart10"></canvas></section>`
	scripts := []string{`sel("#chart1"); sel("#chart10");`}
	used := map[string]bool{"chart1": true}

	_, outScripts, _, err := DeduplicateCanvasIDs(html, scripts, used)
	if err != nil {
		t.Fatalf("DeduplicateCanvasIDs: %v", err)
	}
	if !strings.Contains(outScripts[0], `#chart10"`) {
		t.Errorf("renaming chart1 corrupted #chart10: %q", outScripts[0])
	}
}
