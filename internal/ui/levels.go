package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/kanjidex/internal/kanji"
)

// handleLevelsKey processes keyboard input for the levels view.
func (m Model) handleLevelsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Tab) {
		if m.focus == paneLevels {
			m.focus = paneGrid
		} else {
			m.focus = paneLevels
		}
		return m, nil
	}
	if len(m.groups) == 0 {
		return m, nil
	}

	if m.focus == paneLevels {
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.levelIdx > 0 {
				m.levelIdx--
				m.cellIdx = 0
			}
		case key.Matches(msg, m.keys.Down):
			if m.levelIdx < len(m.groups)-1 {
				m.levelIdx++
				m.cellIdx = 0
			}
		case key.Matches(msg, m.keys.Top):
			m.levelIdx = 0
			m.cellIdx = 0
		case key.Matches(msg, m.keys.Bottom):
			m.levelIdx = len(m.groups) - 1
			m.cellIdx = 0
		case key.Matches(msg, m.keys.Right), key.Matches(msg, m.keys.Open):
			m.focus = paneGrid
		}
		return m, nil
	}

	records := m.selectedRecords()
	cols := m.gridColumns()
	switch {
	case key.Matches(msg, m.keys.Left):
		if m.cellIdx%cols == 0 {
			m.focus = paneLevels
		} else {
			m.cellIdx--
		}
	case key.Matches(msg, m.keys.Right):
		if m.cellIdx < len(records)-1 {
			m.cellIdx++
		}
	case key.Matches(msg, m.keys.Up):
		if m.cellIdx-cols >= 0 {
			m.cellIdx -= cols
		}
	case key.Matches(msg, m.keys.Down):
		if m.cellIdx+cols < len(records) {
			m.cellIdx += cols
		}
	case key.Matches(msg, m.keys.Top):
		m.cellIdx = 0
	case key.Matches(msg, m.keys.Bottom):
		m.cellIdx = max(0, len(records)-1)
	case key.Matches(msg, m.keys.Open):
		if m.cellIdx < len(records) {
			return m.openDetail(records[m.cellIdx])
		}
	}
	return m, nil
}

func (m Model) compact() bool {
	return m.width < LayoutCompactWidth
}

// gridWidth is the inner width available to kanji cells.
func (m Model) gridWidth() int {
	w := m.width - 4
	if !m.compact() {
		w -= LevelsPaneWidth + 4
	}
	return max(GridCellWidth, w)
}

func (m Model) gridColumns() int {
	return max(1, m.gridWidth()/GridCellWidth)
}

// renderLevels renders the levels list beside (or above) the kanji grid.
func (m Model) renderLevels() string {
	height := m.contentHeight()
	styles := m.theme.Styles()

	if len(m.groups) == 0 {
		msg := "No kanji to show."
		if m.filter == kanji.FilterLearned {
			msg = "No kanji match your WaniKani learned items."
		}
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, styles.MutedText.Render(msg))
	}

	if m.compact() {
		list := m.renderLevelTabs()
		grid := m.renderGrid(m.width-4, height-lipgloss.Height(list)-2)
		return lipgloss.JoinVertical(lipgloss.Left, list, m.panelStyle(paneGrid).Width(m.width-2).Render(grid))
	}

	list := m.renderLevelList(height - 2)
	grid := m.renderGrid(m.gridWidth(), height-2)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.panelStyle(paneLevels).Width(LevelsPaneWidth).Height(height-2).Render(list),
		m.panelStyle(paneGrid).Width(m.gridWidth()).Height(height-2).Render(grid),
	)
}

func (m Model) panelStyle(p pane) lipgloss.Style {
	styles := m.theme.Styles()
	if m.focus == p {
		return styles.FocusedPanel
	}
	return styles.Panel
}

func (m Model) renderLevelList(height int) string {
	styles := m.theme.Styles()
	start := 0
	if m.levelIdx >= height {
		start = m.levelIdx - height + 1
	}
	end := min(len(m.groups), start+height)

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		g := m.groups[i]
		label := fmt.Sprintf("Level %-3d %4d", g.Level, len(g.Records))
		if i == m.levelIdx {
			lines = append(lines, styles.Selected.Render(label))
			continue
		}
		lines = append(lines, styles.Text.Render(label))
	}
	return strings.Join(lines, "\n")
}

// renderLevelTabs is the compact levels selector: the current level and
// its neighbours on one line.
func (m Model) renderLevelTabs() string {
	styles := m.theme.Styles()
	parts := make([]string, 0, 3)
	for i := m.levelIdx - 1; i <= m.levelIdx+1; i++ {
		if i < 0 || i >= len(m.groups) {
			continue
		}
		label := fmt.Sprintf(" L%d ", m.groups[i].Level)
		if i == m.levelIdx {
			parts = append(parts, styles.Selected.Render(label))
		} else {
			parts = append(parts, styles.MutedText.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

// renderGrid renders the selected level's records as cells, scrolled so
// the selected cell is visible.
func (m Model) renderGrid(width, height int) string {
	styles := m.theme.Styles()
	records := m.selectedRecords()
	if len(records) == 0 {
		return styles.MutedText.Render("No Kanji available for this level.")
	}

	cols := max(1, width/GridCellWidth)
	visibleRows := max(1, height/GridCellHeight)
	selRow := m.cellIdx / cols
	firstRow := 0
	if selRow >= visibleRows {
		firstRow = selRow - visibleRows + 1
	}

	var rows []string
	for row := firstRow; row < firstRow+visibleRows; row++ {
		start := row * cols
		if start >= len(records) {
			break
		}
		end := min(len(records), start+cols)
		cells := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			cells = append(cells, m.renderCell(records[i], i == m.cellIdx && m.focus == paneGrid))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderCell(rec kanji.Record, selected bool) string {
	styles := m.theme.Styles()
	inner := GridCellWidth - 2

	border := m.theme.Border
	if d, ok := m.progress.DetailFor(rec.Character); ok {
		if c := m.theme.StageColors[stageGroup(d.Stage)]; c != "" {
			border = c
		}
	}
	if selected {
		border = m.theme.BorderFocus
	}

	glyph := styles.Text.Bold(true).Render(rec.Character)
	if selected {
		glyph = styles.Selected.Bold(true).Render(" " + rec.Character + " ")
	}
	body := lipgloss.JoinVertical(lipgloss.Center,
		glyph,
		styles.MutedText.Render(truncate(rec.Meaning, inner)),
	)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(border)).
		Width(inner).
		Align(lipgloss.Center).
		Render(body)
}
