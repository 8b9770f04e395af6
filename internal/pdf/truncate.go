// Package pdf renders A3 documents to a fixed one-page PDF layout.
package pdf

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// Ellipsis marks truncated content. It counts toward the budget.
const Ellipsis = "…"

// Truncate cuts s to at most budget grapheme clusters, ellipsis included.
// The cut moves back to the last whitespace when one falls in the final fifth
// of the kept text. Content within budget is returned unchanged; a budget of
// zero or less means no limit.
func Truncate(s string, budget int) string {
	if budget <= 0 || uniseg.GraphemeClusterCount(s) <= budget {
		return s
	}

	keep := budget - 1
	end := 0
	lastSpace, lastSpaceIdx := -1, -1

	g := uniseg.NewGraphemes(s)
	for i := 0; i < keep && g.Next(); i++ {
		from, to := g.Positions()
		if isSpace(g.Str()) {
			lastSpace, lastSpaceIdx = from, i
		}
		end = to
	}

	cut := s[:end]
	if lastSpace >= 0 && lastSpaceIdx*5 >= keep*4 {
		cut = s[:lastSpace]
	}
	return strings.TrimRightFunc(cut, unicode.IsSpace) + Ellipsis
}

func isSpace(cluster string) bool {
	for _, r := range cluster {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return cluster != ""
}
