// Package strings normalizes the free-text names typed into admin screens:
// subject lists and score keys.
package strings

import "strings"

// CollapseSpace trims s and folds every internal whitespace run into a
// single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DedupeAndTrim collapses whitespace in each value and drops blanks and
// repeats, keeping first-seen order. A nil or empty input is returned as is.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		name := CollapseSpace(v)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

