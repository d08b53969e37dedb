package constants

import (
	"strings"
)

// Priority is the canonical urgency level carried by contact forms.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var allPriorities = []Priority{
	PriorityHigh,
	PriorityMedium,
	PriorityLow,
}

// PrioritiesAsStringSlice returns the canonical priority values.
func PrioritiesAsStringSlice() []string {
	result := make([]string, len(allPriorities))
	for i, p := range allPriorities {
		result[i] = string(p)
	}
	return result
}

// CanonicalizePriority maps free-form priority labels (English or Greek) onto a canonical Priority.
// The second return value is false when the input is not recognised; the input is then returned trimmed.
func CanonicalizePriority(input string) (Priority, bool) {
	if input == "" {
		return "", false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]Priority{
		"urgent":  PriorityHigh,
		"υψηλή":   PriorityHigh,
		"υψηλη":   PriorityHigh,
		"επείγον": PriorityHigh,
		"normal":  PriorityMedium,
		"μεσαία":  PriorityMedium,
		"μεσαια":  PriorityMedium,
		"κανονική": PriorityMedium,
		"χαμηλή":  PriorityLow,
		"χαμηλη":  PriorityLow,
	}

	if p, ok := synonyms[normalized]; ok {
		return p, true
	}

	for _, p := range allPriorities {
		if normalized == string(p) {
			return p, true
		}
	}

	return Priority(strings.TrimSpace(input)), false
}
