package exporter

import (
	"strings"
	"unicode/utf8"
)

const (
	minColumnWidth = 10
	columnPadding  = 2
)

// firstLine returns the text before the first line break
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// columnWidth sizes a column to its widest first line plus padding
func columnWidth(cells []string) float64 {
	longest := 0
	for _, c := range cells {
		if n := utf8.RuneCountInString(firstLine(c)); n > longest {
			longest = n
		}
	}
	return float64(max(longest+columnPadding, minColumnWidth))
}

func isMultiline(s string) bool {
	return strings.Contains(s, "\n")
}
