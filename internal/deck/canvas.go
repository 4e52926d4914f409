package deck

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

// canvas.go rewrites chart-canvas ids for deck-wide uniqueness. Each edit
// operation draws one random suffix and applies it to every colliding id the
// fragment introduces, then rewrites all script references to match. Two
// charts that collide in the same operation share the suffix; two separate
// operations never do, even on byte-identical fragments.

// newIDSuffix returns a short collision-resistant suffix for one edit
// operation.
func newIDSuffix() string {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		log.Fatal().Err(err).Msg("Failed to generate canvas id suffix")
	}
	return hex.EncodeToString(b)
}

// DeduplicateCanvasIDs rewrites canvas ids in html that collide with ids
// already used elsewhere in the deck, and rewrites every script reference to
// the renamed ids. Slides without canvas elements — and fragments whose ids
// are already deck-unique — pass through untouched, which makes the
// operation idempotent.
//
// Returns the rewritten html, the rewritten scripts, and the canvas ids the
// fragment owns after rewriting.
func DeduplicateCanvasIDs(htmlText string, scripts []string, used map[string]bool) (string, []string, []string, error) {
	return deduplicateWithSuffix(htmlText, scripts, used, newIDSuffix())
}

// deduplicateWithSuffix is the suffix-injected core, shared across all
// slides of one edit operation so colliding charts rename consistently.
func deduplicateWithSuffix(htmlText string, scripts []string, used map[string]bool, suffix string) (string, []string, []string, error) {
	body, err := parseBody(htmlText)
	if err != nil {
		return "", nil, nil, fmt.Errorf("deduplicate canvas ids: %w", err)
	}

	// The fragment arrives as a single rendered container; re-locate it so
	// we return the container markup, not a synthesized document.
	containers := findSlideContainers(body)
	root := body
	if len(containers) == 1 {
		root = containers[0]
	}

	ids := collectCanvasIDs(root)
	if len(ids) == 0 {
		return htmlText, scripts, nil, nil
	}

	// One rename per distinct colliding id; in-fragment duplicates of the
	// same id map to the same renamed id.
	renames := make(map[string]string)
	for _, id := range ids {
		if used[id] && renames[id] == "" {
			renames[id] = id + "_" + suffix
		}
	}

	if len(renames) == 0 {
		return htmlText, scripts, dedupeStrings(ids), nil
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if isCanvasElement(n) {
			for i, a := range n.Attr {
				if a.Key == "id" {
					if renamed, ok := renames[a.Val]; ok {
						n.Attr[i].Val = renamed
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	var rendered strings.Builder
	if err := html.Render(&rendered, root); err != nil {
		return "", nil, nil, fmt.Errorf("render deduplicated html: %w", err)
	}

	outScripts := make([]string, len(scripts))
	for i, script := range scripts {
		outScripts[i] = rewriteScriptRefs(script, renames)
	}

	finalIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		if renamed, ok := renames[id]; ok {
			id = renamed
		}
		finalIDs = append(finalIDs, id)
	}

	return rendered.String(), outScripts, dedupeStrings(finalIDs), nil
}

// rewriteScriptRefs rewrites literal id lookups ('id', "id", `id`) and
// selector lookups (#id) to the renamed ids. The selector rewrite is
// boundary-checked so renaming chart1 leaves #chart10 alone.
func rewriteScriptRefs(script string, renames map[string]string) string {
	for old, renamed := range renames {
		script = strings.ReplaceAll(script, "'"+old+"'", "'"+renamed+"'")
		script = strings.ReplaceAll(script, `"`+old+`"`, `"`+renamed+`"`)
		script = strings.ReplaceAll(script, "`"+old+"`", "`"+renamed+"`")
		re := regexp.MustCompile(`#` + regexp.QuoteMeta(old) + `\b`)
		script = re.ReplaceAllString(script, "#"+renamed)
	}
	return script
}

// dedupeStrings preserves order while dropping repeats.
func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
