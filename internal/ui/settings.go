package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/five82/kanjidex/internal/credential"
)

func (m Model) openSettings() (tea.Model, tea.Cmd) {
	m.settings.returnTo = m.view
	m.settings.formError = ""
	m.view = ViewSettings

	if stored, err := m.backend.Credential(); err == nil {
		m.settings.input.SetValue(stored)
		m.settings.input.CursorEnd()
	}
	cmd := m.settings.input.Focus()
	return m, cmd
}

// handleSettingsKey processes keyboard input for the settings form. The key
// input keeps the focus, so refresh is bound to ctrl+r only.
func (m Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.settings.input.Blur()
		m.view = m.settings.returnTo
		return m, m.refreshCmd()

	case msg.String() == "ctrl+r":
		return m.startSync()

	case key.Matches(msg, m.keys.Confirm):
		value := strings.TrimSpace(m.settings.input.Value())
		if value == "" {
			m.settings.formError = credential.BlankMessage
			return m, nil
		}
		m.settings.formError = ""
		if m.syncing {
			return m, nil
		}
		m.syncing = true
		return m, saveCredentialCmd(m.ctx, m.backend, value)
	}

	var cmd tea.Cmd
	m.settings.input, cmd = m.settings.input.Update(msg)
	return m, cmd
}

func (m Model) renderSettings() string {
	styles := m.theme.Styles()
	snap := m.progress

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("WaniKani Integration Settings"))
	b.WriteString("\n\n")
	b.WriteString(styles.MutedText.Render("Enter your WaniKani API v2 Personal Access Token to sync your learning progress."))
	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render("The key is stored locally."))
	b.WriteString("\n\n")
	b.WriteString(m.settings.input.View())
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("enter save · ctrl+r refresh WaniKani data · esc back"))
	b.WriteString("\n")

	if m.settings.formError != "" {
		b.WriteString("\n")
		b.WriteString(styles.DangerText.Render(m.settings.formError))
		b.WriteString("\n")
	}
	if snap.LastError != "" {
		b.WriteString("\n")
		b.WriteString(styles.DangerText.Render(snap.LastError))
		b.WriteString("\n")
	}
	if m.syncing {
		b.WriteString("\n")
		b.WriteString(styles.WarningText.Render("Syncing with WaniKani..."))
		b.WriteString("\n")
	}

	if snap.HasProfile && snap.Username != "" {
		b.WriteString(sectionTitle(styles, "Your WaniKani Profile"))
		writeField(&b, styles, "Username", snap.Username)
		writeField(&b, styles, "Level", itoa(snap.Level))
		if snap.HasLearnedCount {
			writeField(&b, styles, "Learned", itoa(snap.LearnedCount))
		}
	}
	if !snap.LastSynced.IsZero() {
		b.WriteString("\n")
		b.WriteString(styles.FaintText.Render("Last synced " + humanize.Time(snap.LastSynced)))
		b.WriteString("\n")
	}

	return styles.Panel.Width(max(20, m.width-4)).Render(b.String())
}
