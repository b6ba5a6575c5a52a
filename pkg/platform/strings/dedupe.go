// Package strings provides slice helpers for attribute-name sets.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each element, drops blanks and duplicates, and keeps the
// first-seen order.
//
//	DedupeAndTrim([]string{" Name ", "Address", "Name", ""}) // [Name Address]
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}
	return result
}

// TrimSpacePtr trims an optional string, mapping a blank result to nil.
func TrimSpacePtr(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Missing returns the elements of subset that are absent from set.
func Missing(subset, set []string) []string {
	index := make(map[string]struct{}, len(set))
	for _, v := range set {
		index[v] = struct{}{}
	}
	var missing []string
	for _, v := range subset {
		if _, ok := index[v]; !ok {
			missing = append(missing, v)
		}
	}
	return missing
}
