package chat

import (
	"fmt"
	"strings"
)

// slideSystemPrompt instructs the model to answer with slide markup only.
// The validator downstream rejects anything that lacks a slide container, so
// the prompt pushes hard against prose replies and markdown fences.
const slideSystemPrompt = `You are a presentation slide author. You produce HTML slide markup and nothing else.

Rules:
- Respond ONLY with slide markup. Each slide is a top-level <section class="slide"> element.
- Never wrap the markup in markdown code fences.
- Never reply with prose, apologies, or explanations. If the request is unclear, make a reasonable slide anyway.
- Charts use <canvas> elements with unique id attributes, driven by an inline <script> per slide.
- Per-slide styling goes in a <style> element inside the slide.
- Keep every <script> syntactically complete: all braces, brackets, and parentheses closed.`

// BuildEditPrompt renders the user-turn prompt for one edit request. The
// committed deck travels separately as cached context; this prompt carries
// only the instruction and, when the client selected slides, the targeted
// range.
func BuildEditPrompt(req SlideRequest) string {
	var sb strings.Builder

	if req.Context != nil && len(req.Context.Snapshots) > 0 {
		fmt.Fprintf(&sb, "The user selected slides %d through %d:\n", req.Context.Start+1, req.Context.End+1)
		for i, snap := range req.Context.Snapshots {
			fmt.Fprintf(&sb, "\n<!-- selected slide %d -->\n%s\n", req.Context.Start+i+1, snap)
		}
		sb.WriteString("\nApply the following instruction to the selected slides. Return the full replacement markup for the selection (it may contain more or fewer slides than the selection):\n\n")
	} else if req.Deck.Count() == 0 {
		sb.WriteString("The presentation is currently empty. Create the requested slides:\n\n")
	} else {
		sb.WriteString("Apply the following instruction to the presentation. If it asks for new slides, return only the new slides; if it changes existing slides, return the complete updated deck:\n\n")
	}

	sb.WriteString(req.Message)
	return sb.String()
}
