// Package strings parses list-valued settings.
package strings

import (
	"strings"
)

// SplitList splits s on sep, trims each element, and drops empty and
// repeated elements. Order of first occurrence is kept.
//
//	SplitList(" alice,bob,, alice ", ",")
//	// []string{"alice", "bob"}
func SplitList(s, sep string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}
