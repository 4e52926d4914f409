package deck

import "errors"

// Typed pipeline failures. All of them abort the merge and leave the prior
// committed deck untouched; callers match with errors.Is.
var (
	// ErrValidationFailed means every generation attempt produced an
	// unusable response (empty, confusion marker, or no slide container).
	ErrValidationFailed = errors.New("generator response failed validation")

	// ErrContiguityViolation means the caller-supplied slide context does
	// not describe a contiguous in-bounds range of the current deck.
	ErrContiguityViolation = errors.New("slide context is not contiguous")

	// ErrNotNormalized means a fragment reached Merge without passing
	// through NormalizeFragment. This is the integrity gate: unvalidated
	// markup is never committed.
	ErrNotNormalized = errors.New("fragment was not normalized before merge")

	// ErrEmptyFragment means a Valid response yielded zero parseable slides.
	ErrEmptyFragment = errors.New("fragment contains no slides")
)
