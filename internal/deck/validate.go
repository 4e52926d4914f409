package deck

import (
	"strconv"
	"strings"
)

// validate.go decides whether a raw generator response is usable. The
// confusion markers and retry bound are product-tunable — they live on
// ValidatorConfig rather than inside the control flow so deployments can
// adjust them per model and language without code changes.

// DefaultRetryLimit is the number of additional generation attempts after
// the first invalid response.
const DefaultRetryLimit = 2

// defaultConfusionMarkers are phrases indicating the generator refused,
// apologized, or claimed no slides exist. Case-insensitive substring match.
var defaultConfusionMarkers = []string{
	"i'm sorry",
	"i am sorry",
	"i apologize",
	"i cannot",
	"i can't",
	"as an ai",
	"unable to",
	"no slides",
	"there are no slides",
}

// ValidatorConfig holds the tunable parts of response validation.
type ValidatorConfig struct {
	// ConfusionMarkers are matched case-insensitively as substrings.
	ConfusionMarkers []string

	// RetryLimit is the number of extra generation attempts the caller
	// should make after an invalid verdict before surfacing failure.
	RetryLimit int
}

// DefaultValidatorConfig returns the production marker set and retry bound.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		ConfusionMarkers: append([]string(nil), defaultConfusionMarkers...),
		RetryLimit:       DefaultRetryLimit,
	}
}

// Validate judges a raw generator response.
//
// Usable markup always wins: a response that contains a slide container is
// Valid even when conversational prose (including an apology) surrounds it.
// Only container-free responses are checked against the confusion markers.
func (c ValidatorConfig) Validate(responseText string) ValidationResult {
	trimmed := strings.TrimSpace(responseText)
	if trimmed == "" {
		return ValidationResult{Verdict: VerdictEmpty, Reason: "response is empty"}
	}

	if HasSlideContainer(responseText) {
		return ValidationResult{Verdict: VerdictValid}
	}

	lower := strings.ToLower(trimmed)
	for _, marker := range c.ConfusionMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return ValidationResult{
				Verdict: VerdictConfusion,
				Reason:  "response matches confusion marker " + strconv.Quote(marker),
			}
		}
	}

	return ValidationResult{Verdict: VerdictNoContainer, Reason: "response contains no slide container element"}
}
