// Package feature holds the pure naming rules for feature worktrees: turning
// free text into a branch-safe name, allocating the next sequence number from
// existing branches, and composing the resulting worktree spec.
package feature

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultMaxNameLength is the maximum length of a sanitized feature name.
const DefaultMaxNameLength = 50

// Sanitize converts free text into a name safe for git branch and directory
// names. The result contains only [a-z0-9-], never starts or ends with a
// hyphen, never contains two hyphens in a row, and is at most maxLength bytes.
// A maxLength of zero or less means DefaultMaxNameLength.
//
// The result may be empty when the input has no retainable characters.
func Sanitize(text string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxNameLength
	}

	lowered := cases.Lower(language.Und).String(text)

	var sb strings.Builder
	sb.Grow(len(lowered))
	lastHyphen := true // suppresses leading hyphens
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
			lastHyphen = false
			continue
		}
		// Underscores, spaces, hyphens and everything else collapse to one hyphen.
		if !lastHyphen {
			sb.WriteByte('-')
			lastHyphen = true
		}
	}

	name := strings.TrimRight(sb.String(), "-")
	if len(name) > maxLength {
		name = strings.TrimRight(name[:maxLength], "-")
	}
	return name
}
