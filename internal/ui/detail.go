package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/five82/kanjidex/internal/imageimport"
	"github.com/five82/kanjidex/internal/kanji"
)

func (m Model) openDetail(rec kanji.Record) (tea.Model, tea.Cmd) {
	m.view = ViewDetail
	m.detail.recordID = rec.ID
	m.detail.record = rec
	m.detail.found = true
	m.detail.editing = false
	m.detail.viewport.GotoTop()
	m.syncDetailViewport()
	return m, nil
}

func (m Model) closeDetail() (tea.Model, tea.Cmd) {
	m.backend.FlushEdits()
	m.view = ViewLevels
	m.detail.recordID = ""
	m.detail.editing = false
	m.detail.editor.Blur()
	return m, m.refreshCmd()
}

// handleDetailKey processes keyboard input for the detail view when the
// editor is not focused.
func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		return m.closeDetail()
	}
	if !m.detail.found {
		return m, nil
	}

	rec := m.detail.record
	switch {
	case key.Matches(msg, m.keys.EditMnemonic):
		m.detail.editor.SetValue(rec.EffectiveMnemonic())
		m.detail.lastSent = m.detail.editor.Value()
		m.detail.editing = true
		cmd := m.detail.editor.Focus()
		m.syncDetailViewport()
		return m, cmd

	case key.Matches(msg, m.keys.ImportImage):
		m.modal = newImagePathModal(rec.ID, rec.Character, importImageCmd(m.backend))
		return m, textinput.Blink

	case key.Matches(msg, m.keys.ClearImage):
		if !rec.HasImage() {
			return m, nil
		}
		return m, clearImageCmd(m.backend, rec.ID)
	}

	var cmd tea.Cmd
	m.detail.viewport, cmd = m.detail.viewport.Update(msg)
	return m, cmd
}

// handleEditorKey feeds keys to the mnemonic editor and schedules an
// autosave whenever the text changes.
func (m Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Escape) {
		m.detail.editing = false
		m.detail.editor.Blur()
		m.backend.FlushEdits()
		m.syncDetailViewport()
		return m, m.refreshCmd()
	}

	var cmd tea.Cmd
	m.detail.editor, cmd = m.detail.editor.Update(msg)
	if text := m.detail.editor.Value(); text != m.detail.lastSent {
		if err := m.backend.ScheduleEdit(m.detail.recordID, kanji.SetMnemonic(text)); err != nil {
			m.status = err.Error()
		}
		m.detail.lastSent = text
	}
	m.syncDetailViewport()
	return m, cmd
}

// syncDetailViewport re-renders the detail body into the viewport.
func (m *Model) syncDetailViewport() {
	m.detail.viewport.Width = m.width
	m.detail.viewport.Height = m.contentHeight()
	m.detail.viewport.SetContent(m.detailContent())
}

func (m Model) renderDetail() string {
	return m.detail.viewport.View()
}

func (m Model) detailContent() string {
	styles := m.theme.Styles()
	if !m.detail.found {
		return styles.MutedText.Render("Kanji not found.")
	}
	rec := m.detail.record

	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(rec.Character))
	b.WriteString("  ")
	b.WriteString(styles.Text.Bold(true).Render(rec.Meaning))
	b.WriteString(styles.FaintText.Render("  Level " + itoa(rec.Level)))
	b.WriteString("\n")
	if len(rec.AlternativeMeanings) > 0 {
		b.WriteString(styles.MutedText.Render("Alternative: " + strings.Join(rec.AlternativeMeanings, ", ")))
		b.WriteString("\n")
	}

	b.WriteString(sectionTitle(styles, "Readings"))
	writeField(&b, styles, "Reading", rec.Reading)
	writeField(&b, styles, "On'yomi", strings.Join(rec.Onyomi, ", "))
	writeField(&b, styles, "Kun'yomi", strings.Join(rec.Kunyomi, ", "))
	writeField(&b, styles, "Nanori", strings.Join(rec.Nanori, ", "))

	b.WriteString(sectionTitle(styles, "WaniKani Statistics"))
	if d, ok := m.progress.DetailFor(rec.Character); ok {
		b.WriteString(styles.MutedText.Render(padLabel("SRS Stage")))
		b.WriteString(styles.StageStyle(d.Stage).Render(d.StageName))
		b.WriteString("\n")
		passed := "N/A"
		if !d.PassedAt.IsZero() {
			passed = humanize.Time(d.PassedAt)
		}
		writeField(&b, styles, "Passed", passed)
	} else {
		writeField(&b, styles, "SRS Stage", "N/A")
	}

	b.WriteString(sectionTitle(styles, "Mnemonic"))
	switch {
	case m.detail.editing:
		b.WriteString(m.detail.editor.View())
		b.WriteString("\n")
		b.WriteString(styles.FaintText.Render("esc to finish · changes save automatically"))
	case rec.EffectiveMnemonic() != "":
		b.WriteString(styles.Text.Width(max(20, m.width-4)).Render(rec.EffectiveMnemonic()))
		if rec.Mnemonic == "" {
			b.WriteString("\n")
			b.WriteString(styles.FaintText.Render("(from WaniKani)"))
		}
	default:
		b.WriteString(styles.FaintText.Italic(true).Render("No mnemonic yet. Press e to add one."))
	}
	b.WriteString("\n")

	b.WriteString(sectionTitle(styles, "Image"))
	if mime, size, ok := imageimport.Describe(rec.Image); ok {
		b.WriteString(styles.Text.Render(mime + " · " + humanize.Bytes(uint64(size))))
		b.WriteString("\n")
		b.WriteString(styles.FaintText.Render("i replace · x clear"))
	} else {
		b.WriteString(styles.FaintText.Italic(true).Render("No image. Press i to import one."))
	}
	b.WriteString("\n")

	return b.String()
}

func sectionTitle(styles Styles, title string) string {
	return "\n" + styles.AccentText.Bold(true).Render(title) + "\n"
}

func writeField(b *strings.Builder, styles Styles, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	b.WriteString(styles.MutedText.Render(padLabel(label)))
	b.WriteString(styles.Text.Render(value))
	b.WriteString("\n")
}
