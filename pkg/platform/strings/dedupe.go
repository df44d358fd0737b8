// Package strings holds small helpers for list-valued settings.
package strings

import (
	"strings"
)

// DedupeFold trims each value and drops blanks and case-insensitive
// repeats, keeping first-seen order. The first spelling of a value wins:
// {"Museum", "museum"} yields {"Museum"}.
func DedupeFold(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		k := strings.ToLower(v)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}
