package journal

import (
	"slices"
	"strings"
)

// ParseTags splits a comma separated list, trimming each tag and dropping
// empty and repeated ones. Tags are case-sensitive.
func ParseTags(value string) []string {
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		tag := strings.TrimSpace(part)
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}

// AllTags returns the distinct tags used by memories, sorted
// case-insensitively.
func AllTags(memories []Memory) []string {
	set := make(map[string]struct{})
	for _, m := range memories {
		for _, t := range m.Tags {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b string) int {
		if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return out
}
