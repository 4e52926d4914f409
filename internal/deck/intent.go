package deck

import "strings"

// intent.go classifies the user's instruction as "add a new slide" or "edit
// existing slides". Classification is a pure function over a pattern table;
// the tables are configuration so product can tune vocabulary without
// touching the decision logic.

// ClassifierConfig holds the vocabulary tables for intent classification.
type ClassifierConfig struct {
	// AddVerbs signal slide creation when they share a clause with "slide".
	AddVerbs []string

	// EditQualifiers force IntentEdit even when an add verb is present:
	// "update the existing slide to add a chart" is an edit.
	EditQualifiers []string

	// PositionalCues reinforce IntentAdd when the message mentions slides:
	// "one more slide at the end".
	PositionalCues []string
}

// DefaultClassifierConfig returns the production vocabulary tables.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		AddVerbs: []string{"add", "insert", "append", "create", "new", "another"},
		EditQualifiers: []string{
			"update", "modify", "revise", "rework", "edit",
			"change existing", "change the existing", "change this", "change that",
			"existing slide", "current slide", "this slide", "that slide",
		},
		PositionalCues: []string{
			"at the end", "at the bottom", "after this one", "after this",
			"after that", "as the last", "to the end",
		},
	}
}

// splitClauses breaks a message into rough clauses so verb/noun co-occurrence
// is judged within a clause, not across the whole message.
func splitClauses(message string) []string {
	return strings.FieldsFunc(message, func(r rune) bool {
		switch r {
		case '.', ';', '!', '?', '\n', ',':
			return true
		}
		return false
	})
}

// containsWord reports whether text contains word as a standalone token.
func containsWord(text, word string) bool {
	for _, tok := range strings.Fields(text) {
		tok = strings.Trim(tok, ".,;:!?\"'()")
		if tok == word {
			return true
		}
	}
	return false
}

// mentionsSlide reports whether any token is "slide" or "slides".
func mentionsSlide(text string) bool {
	return containsWord(text, "slide") || containsWord(text, "slides")
}

// Classify decides the merge mode for a user message.
//
// An add verb co-occurring with "slide" in one clause means IntentAdd, unless
// an edit qualifier appears anywhere — an erroneous Add creates slides the
// user has to clean up, so Edit is the safer default on ambiguity. Style
// verbs ("make it blue", "change the color") never produce IntentAdd because
// they neither match an add verb nor co-occur with "slide".
func (c ClassifierConfig) Classify(message string) Intent {
	lower := strings.ToLower(message)

	for _, q := range c.EditQualifiers {
		if strings.Contains(lower, q) {
			return IntentEdit
		}
	}

	for _, clause := range splitClauses(lower) {
		if !mentionsSlide(clause) {
			continue
		}
		for _, verb := range c.AddVerbs {
			if containsWord(clause, verb) {
				return IntentAdd
			}
		}
	}

	if mentionsSlide(lower) {
		for _, cue := range c.PositionalCues {
			if strings.Contains(lower, cue) {
				return IntentAdd
			}
		}
	}

	return IntentEdit
}
