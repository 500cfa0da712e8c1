package ui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/five82/kanjidex/internal/kanji"
	"github.com/five82/kanjidex/internal/notify"
)

// renderMain renders the full UI: header, command bar, content, then the
// notification area.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())

	if notes := m.renderNotifications(); notes != "" {
		b.WriteString("\n")
		b.WriteString(notes)
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.theme.Styles().DangerText.Render(m.status))
	}
	return b.String()
}

func (m Model) renderContent() string {
	switch m.view {
	case ViewDetail:
		return m.renderDetail()
	case ViewSettings:
		return m.renderSettings()
	default:
		return m.renderLevels()
	}
}

// renderHeader renders the status bar: logo, profile, filter and sync state.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	snap := m.progress

	parts := []string{bg.Render("kanjidex", styles.Logo)}

	switch {
	case snap.HasProfile:
		profile := fmt.Sprintf("%s · L%d", snap.Username, snap.Level)
		if snap.HasLearnedCount {
			profile += fmt.Sprintf(" · %d learned", snap.LearnedCount)
		}
		parts = append(parts, bg.Render(profile, styles.AccentText))
	case snap.LastError != "":
		parts = append(parts, bg.Render("WaniKani: "+snap.LastError, styles.DangerText))
	default:
		parts = append(parts, bg.Render("WaniKani not connected", styles.MutedText))
	}

	filter := "All"
	if m.filter == kanji.FilterLearned {
		filter = "Learned"
	}
	parts = append(parts, bg.Render("Filter "+filter, styles.Text))

	switch {
	case m.syncing:
		parts = append(parts, bg.Render("Syncing...", styles.WarningText.Bold(true)))
	case !snap.LastSynced.IsZero():
		parts = append(parts, bg.Render("synced "+humanize.Time(snap.LastSynced), styles.FaintText))
	}

	return bg.FillLine(styles.Header.Render(bg.Join(parts, "  ")), m.width)
}

// renderCommandBar lists the keys that apply to the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	var cmds [][2]string
	switch {
	case m.view == ViewSettings:
		cmds = [][2]string{{"enter", "Save key"}, {"ctrl+r", "Refresh"}, {"esc", "Back"}}
	case m.view == ViewDetail && m.detail.editing:
		cmds = [][2]string{{"esc", "Done"}}
	case m.view == ViewDetail:
		cmds = [][2]string{{"e", "Edit"}, {"i", "Image"}, {"x", "Clear image"}, {"esc", "Back"}, {"?", "Help"}}
	default:
		cmds = [][2]string{{"tab", "Pane"}, {"enter", "Open"}, {"f", "Filter"}, {"s", "Settings"}, {"r", "Refresh"}, {"?", "Help"}, {"q", "Quit"}}
	}
	if len(m.notes) > 0 && !(m.view == ViewSettings || m.detail.editing) {
		cmds = append(cmds, [2]string{"d", "Dismiss"})
	}

	parts := make([]string, 0, len(cmds))
	for _, c := range cmds {
		parts = append(parts, bg.Render("<"+c[0]+">", styles.AccentText)+bg.Spaces(1)+bg.Render(c[1], styles.MutedText))
	}
	return bg.FillLine(styles.Footer.Render(bg.Join(parts, "  ")), m.width)
}

// renderNotifications renders the notification log, most recent first.
func (m Model) renderNotifications() string {
	if len(m.notes) == 0 {
		return ""
	}
	styles := m.theme.Styles()
	lines := make([]string, 0, len(m.notes))
	for _, n := range m.notes {
		style := styles.SuccessText
		marker := "✓"
		if n.Severity == notify.SeverityError {
			style = styles.DangerText
			marker = "✗"
		}
		lines = append(lines, style.Render(marker+" "+truncate(n.Message, max(10, m.width-4))))
	}
	return strings.Join(lines, "\n")
}
