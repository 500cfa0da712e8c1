package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is the interface for modal dialogs.
// Update returns the updated modal, a command, and whether the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// imagePathModal asks for the path of an image to attach to a record.
type imagePathModal struct {
	recordID  string
	character string
	input     textinput.Model
	submit    func(id, path string) tea.Cmd
}

func newImagePathModal(recordID, character string, submit func(id, path string) tea.Cmd) *imagePathModal {
	in := textinput.New()
	in.Placeholder = "~/Pictures/mnemonic.png"
	in.Prompt = "> "
	in.CharLimit = 4096
	in.Width = 48
	in.Focus()
	return &imagePathModal{
		recordID:  recordID,
		character: character,
		input:     in,
		submit:    submit,
	}
}

func (p *imagePathModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.Escape):
			return p, nil, true
		case key.Matches(km, keys.Confirm):
			path := strings.TrimSpace(p.input.Value())
			if path == "" {
				return p, nil, true
			}
			return p, p.submit(p.recordID, path), true
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd, false
}

func (p *imagePathModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Import image for " + p.character))
	b.WriteString("\n\n")
	b.WriteString(styles.MutedText.Render("Path to an image file:"))
	b.WriteString("\n")
	b.WriteString(p.input.View())
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("enter import · esc cancel"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(60)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
