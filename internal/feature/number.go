package feature

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// MinFeatureNumber is the first number handed out in a repository.
	MinFeatureNumber = 1
	// MaxFeatureNumber is the last number that fits the three-digit prefix.
	MaxFeatureNumber = 999
)

// featureBranchPattern matches the three-digit prefix of a feature branch.
var featureBranchPattern = regexp.MustCompile(`^([0-9]{3})-`)

// FeatureNumber is the sequence number prefixed to a feature branch.
type FeatureNumber struct {
	number    int
	formatted string
}

// NewFeatureNumber builds a FeatureNumber, rejecting a number outside
// [1,999] or a formatted value that is not its zero-padded form.
func NewFeatureNumber(number int, formatted string) (FeatureNumber, error) {
	if number < MinFeatureNumber || number > MaxFeatureNumber {
		return FeatureNumber{}, fmt.Errorf("feature number %d out of range [%d,%d]", number, MinFeatureNumber, MaxFeatureNumber)
	}
	if want := fmt.Sprintf("%03d", number); formatted != want {
		return FeatureNumber{}, fmt.Errorf("formatted %q must match number %s", formatted, want)
	}
	return FeatureNumber{number: number, formatted: formatted}, nil
}

// FeatureNumberOf builds a FeatureNumber from its integer value.
func FeatureNumberOf(number int) (FeatureNumber, error) {
	return NewFeatureNumber(number, fmt.Sprintf("%03d", number))
}

// Number returns the integer value.
func (n FeatureNumber) Number() int { return n.number }

// Formatted returns the zero-padded three-digit form.
func (n FeatureNumber) Formatted() string { return n.formatted }

func (n FeatureNumber) String() string { return n.formatted }

// IsZero reports whether n is the zero value.
func (n FeatureNumber) IsZero() bool { return n.number == 0 }

// ParseBranchNumber extracts the feature number from a branch name such as
// "007-add-auth" or "origin/007-add-auth". It reports false for branches that
// do not carry the feature prefix.
func ParseBranchNumber(branch string) (int, bool) {
	if i := strings.LastIndex(branch, "/"); i >= 0 {
		branch = branch[i+1:]
	}
	m := featureBranchPattern.FindStringSubmatch(branch)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Allocate returns the number following the highest feature number among the
// given local and remote branch names. Gaps are never reused.
// Returns a *DomainLimitError when the next number would exceed 999.
func Allocate(branches []string) (FeatureNumber, error) {
	highest := 0
	for _, b := range branches {
		if n, ok := ParseBranchNumber(b); ok && n > highest {
			highest = n
		}
	}

	next := highest + 1
	if next > MaxFeatureNumber {
		return FeatureNumber{}, numberExhausted(next)
	}
	return FeatureNumberOf(next)
}
