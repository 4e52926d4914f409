package deck

import (
	"fmt"
	"strings"
)

// script.go is a structural fence for generated chart scripts, not a
// JavaScript parser. It checks that braces, parentheses, and brackets
// balance — skipping string literals and comments — and repairs a truncated
// script by appending the missing closers once. Scripts it cannot repair are
// dropped by the caller; the slide's visual content still applies.

// ScriptCheck is the outcome of validating one script body.
type ScriptCheck struct {
	// OK means the script (original or repaired) is structurally balanced.
	OK bool

	// Fixed is the script to inject: the original when it was already
	// balanced, the repaired text after a successful repair, or the
	// original untouched when Err is set.
	Fixed string

	// Err is set when the script has a genuine mismatch (orphan or wrong
	// closer) or is still unbalanced after one repair pass.
	Err error
}

// matching maps closers to their openers.
var matching = map[rune]rune{')': '(', '}': '{', ']': '['}

// closerFor maps openers to their closers.
var closerFor = map[rune]rune{'(': ')', '{': '}', '[': ']'}

// scanBalance runs one linear pass over script and returns the stack of
// unclosed openers at end of input. A closer with no matching opener is a
// hard error — no repair can fix a structural mismatch.
func scanBalance(script string) ([]rune, error) {
	var stack []rune

	runes := []rune(script)
	i := 0
	for i < len(runes) {
		r := runes[i]

		switch r {
		case '\'', '"', '`':
			// Skip the string literal, honoring backslash escapes.
			quote := r
			i++
			for i < len(runes) {
				if runes[i] == '\\' {
					i += 2
					continue
				}
				if runes[i] == quote {
					break
				}
				i++
			}
		case '/':
			if i+1 < len(runes) && runes[i+1] == '/' {
				for i < len(runes) && runes[i] != '\n' {
					i++
				}
				continue
			}
			if i+1 < len(runes) && runes[i+1] == '*' {
				i += 2
				for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
					i++
				}
				i++ // lands on '/', loop increment moves past
			}
		case '(', '{', '[':
			stack = append(stack, r)
		case ')', '}', ']':
			if len(stack) == 0 {
				return nil, fmt.Errorf("unmatched %q at offset %d", r, i)
			}
			top := stack[len(stack)-1]
			if top != matching[r] {
				return nil, fmt.Errorf("mismatched %q at offset %d: open %q expects %q", r, i, top, closerFor[top])
			}
			stack = stack[:len(stack)-1]
		}
		i++
	}

	return stack, nil
}

// ValidateAndFixScript checks a script's bracket structure and attempts a
// single repair pass for truncated input. Empty or whitespace-only scripts
// are trivially OK.
func ValidateAndFixScript(script string) ScriptCheck {
	if strings.TrimSpace(script) == "" {
		return ScriptCheck{OK: true, Fixed: script}
	}

	stack, err := scanBalance(script)
	if err != nil {
		return ScriptCheck{Fixed: script, Err: err}
	}
	if len(stack) == 0 {
		return ScriptCheck{OK: true, Fixed: script}
	}

	// Append the missing closers in LIFO order, then re-check once.
	var closers strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		closers.WriteRune(closerFor[stack[i]])
	}
	repaired := script + closers.String()

	stack, err = scanBalance(repaired)
	if err != nil || len(stack) != 0 {
		if err == nil {
			err = fmt.Errorf("still unbalanced after repair: %d unclosed", len(stack))
		}
		return ScriptCheck{Fixed: script, Err: err}
	}

	return ScriptCheck{OK: true, Fixed: repaired}
}
