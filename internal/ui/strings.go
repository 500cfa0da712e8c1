package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// truncate shortens a string to the given display width, adding an
// ellipsis if needed. Wide glyphs count as two cells.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 || lipgloss.Width(value) <= limit {
		return value
	}
	if limit <= 3 {
		return fitWidth(value, limit)
	}
	return fitWidth(value, limit-3) + "..."
}

// fitWidth returns the longest prefix of value no wider than limit.
func fitWidth(value string, limit int) string {
	var b strings.Builder
	width := 0
	for _, r := range value {
		w := lipgloss.Width(string(r))
		if width+w > limit {
			break
		}
		b.WriteRune(r)
		width += w
	}
	return b.String()
}

// padLabel renders a field label in a fixed-width column.
func padLabel(label string) string {
	const column = 12
	label += ":"
	if n := column - len(label); n > 0 {
		return label + strings.Repeat(" ", n)
	}
	return label + " "
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
