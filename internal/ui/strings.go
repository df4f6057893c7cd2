package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// truncateMiddle shortens s to limit display cells by removing characters
// from the middle, keeping more of the end.
func truncateMiddle(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= limit {
		return s
	}
	if limit <= 5 {
		return runewidth.Truncate(s, limit, "")
	}

	runes := []rune(s)
	endBudget := (limit - 1) * 2 / 3
	startBudget := limit - 1 - endBudget

	start := runewidth.Truncate(s, startBudget, "")
	var end []rune
	width := 0
	for i := len(runes) - 1; i >= 0; i-- {
		w := runewidth.RuneWidth(runes[i])
		if width+w > endBudget {
			break
		}
		width += w
		end = append([]rune{runes[i]}, end...)
	}
	return start + "…" + string(end)
}
