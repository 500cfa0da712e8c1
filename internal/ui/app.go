package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/kanjidex/internal/credential"
	"github.com/five82/kanjidex/internal/imageimport"
	"github.com/five82/kanjidex/internal/kanji"
	"github.com/five82/kanjidex/internal/notify"
	"github.com/five82/kanjidex/internal/prefs"
	"github.com/five82/kanjidex/internal/progress"
)

// View represents the current active view.
type View int

const (
	ViewLevels View = iota
	ViewDetail
	ViewSettings
)

// pane is the focused half of the levels view.
type pane int

const (
	paneLevels pane = iota
	paneGrid
)

// Backend is what the TUI needs from the application.
type Backend interface {
	Groups(mode kanji.FilterMode) []kanji.LevelGroup
	Get(id string) (kanji.Record, bool)
	ScheduleEdit(id string, changes kanji.Changes) error
	FlushEdits()
	Update(id string, changes kanji.Changes) (bool, error)
	ImportImageFile(id, path string) (bool, error)
	Progress() progress.Snapshot
	SyncNow(ctx context.Context) error
	SaveCredential(ctx context.Context, key string) error
	Credential() (string, error)
	Notifications() []notify.Notification
	Dismiss(id string) bool
	SavePrefs(p prefs.Prefs)
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Backend   Backend
	PollTick  time.Duration
	ThemeName string
	Filter    kanji.FilterMode
}

// detailState holds the open record and its mnemonic editor.
type detailState struct {
	recordID string
	record   kanji.Record
	found    bool

	editor   textarea.Model
	editing  bool
	lastSent string

	viewport viewport.Model
}

// settingsState holds the API key form.
type settingsState struct {
	input     textinput.Model
	formError string
	returnTo  View
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx      context.Context
	backend  Backend
	pollTick time.Duration
	keys     keyMap

	// UI state
	theme  Theme
	view   View
	width  int
	height int
	ready  bool
	focus  pane
	filter kanji.FilterMode

	// Data state
	groups      []kanji.LevelGroup
	progress    progress.Snapshot
	notes       []notify.Notification
	lastUpdated time.Time
	syncing     bool
	status      string

	// Selection
	levelIdx int
	cellIdx  int

	detail   detailState
	settings settingsState

	modal    Modal
	showHelp bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}

	filter := opts.Filter
	if filter == "" {
		filter = kanji.FilterAll
	}

	editor := textarea.New()
	editor.Placeholder = "Enter your mnemonic here..."
	editor.ShowLineNumbers = false
	editor.CharLimit = 0
	editor.SetHeight(6)

	keyInput := textinput.New()
	keyInput.Prompt = "> "
	keyInput.Placeholder = "WaniKani API v2 key"
	keyInput.EchoMode = textinput.EchoPassword
	keyInput.EchoCharacter = '•'
	keyInput.Width = 48

	return Model{
		ctx:      ctx,
		backend:  opts.Backend,
		pollTick: pollTick,
		keys:     DefaultKeyMap(),
		theme:    GetTheme(opts.ThemeName),
		view:     ViewLevels,
		filter:   filter,
		detail: detailState{
			editor:   editor,
			viewport: viewport.New(0, 0),
		},
		settings: settingsState{input: keyInput},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.backend != nil {
		cmds = append(cmds, m.refreshCmd())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.refreshCmd(), tickCmd(m.pollTick))

	case dataMsg:
		m.applyData(msg)
		return m, nil

	case syncDoneMsg:
		m.syncing = false
		return m, m.refreshCmd()

	case credentialSavedMsg:
		m.syncing = false
		if errors.Is(msg.err, credential.ErrBlank) {
			m.settings.formError = credential.BlankMessage
		}
		return m, m.refreshCmd()

	case imageResultMsg:
		m.status = imageStatus(msg.err)
		return m, m.refreshCmd()
	}

	return m.forward(msg)
}

// forward hands non-key messages (cursor blinks) to whichever input owns
// the focus.
func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.modal != nil:
		m.modal, cmd, _ = m.modal.Update(msg, m.keys)
	case m.view == ViewDetail && m.detail.editing:
		m.detail.editor, cmd = m.detail.editor.Update(msg)
	case m.view == ViewSettings:
		m.settings.input, cmd = m.settings.input.Update(msg)
	}
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		modal, cmd, done := m.modal.Update(msg, m.keys)
		if done {
			m.modal = nil
		} else {
			m.modal = modal
		}
		return m, cmd
	}

	m.status = ""
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	// Text inputs own every other key while focused.
	if m.view == ViewDetail && m.detail.editing {
		return m.handleEditorKey(msg)
	}
	if m.view == ViewSettings {
		return m.handleSettingsKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Filter):
		m.filter = m.filter.Next()
		m.savePrefs()
		return m, m.refreshCmd()

	case key.Matches(msg, m.keys.Settings):
		return m.openSettings()

	case key.Matches(msg, m.keys.Sync):
		return m.startSync()

	case key.Matches(msg, m.keys.Dismiss):
		if len(m.notes) > 0 {
			m.backend.Dismiss(m.notes[0].ID)
			m.notes = m.notes[1:]
			m.resize()
		}
		return m, m.refreshCmd()
	}

	switch m.view {
	case ViewLevels:
		return m.handleLevelsKey(msg)
	case ViewDetail:
		return m.handleDetailKey(msg)
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.backend != nil {
		m.backend.FlushEdits()
	}
	return m, tea.Quit
}

func (m Model) startSync() (tea.Model, tea.Cmd) {
	if m.syncing {
		return m, nil
	}
	m.syncing = true
	return m, syncCmd(m.ctx, m.backend)
}

func (m *Model) savePrefs() {
	m.backend.SavePrefs(prefs.Prefs{Theme: m.theme.Name, Filter: m.filter})
}

// applyData installs a fresh read of the backend, keeping the selected
// level when it is still listed.
func (m *Model) applyData(msg dataMsg) {
	selected := m.selectedLevel()

	m.groups = msg.groups
	m.progress = msg.progress
	m.notes = msg.notes
	m.lastUpdated = time.Now()

	m.levelIdx = 0
	for i, g := range m.groups {
		if g.Level == selected {
			m.levelIdx = i
			break
		}
	}
	m.clampCell()

	if m.detail.recordID != "" && msg.recordID == m.detail.recordID {
		m.detail.record = msg.record
		m.detail.found = msg.found
	}
	m.resize()
}

func (m Model) selectedLevel() int {
	if m.levelIdx < 0 || m.levelIdx >= len(m.groups) {
		return 0
	}
	return m.groups[m.levelIdx].Level
}

func (m Model) selectedRecords() []kanji.Record {
	if m.levelIdx < 0 || m.levelIdx >= len(m.groups) {
		return nil
	}
	return m.groups[m.levelIdx].Records
}

func (m *Model) clampCell() {
	n := len(m.selectedRecords())
	if m.cellIdx >= n {
		m.cellIdx = n - 1
	}
	if m.cellIdx < 0 {
		m.cellIdx = 0
	}
}

// resize recomputes component sizes after the window or the notification
// area changes.
func (m *Model) resize() {
	if !m.ready {
		return
	}
	m.detail.editor.SetWidth(max(20, m.width-6))
	m.syncDetailViewport()
}

// contentHeight is the room left below the header and above the
// notification area.
func (m Model) contentHeight() int {
	used := 2 + len(m.notes)
	if m.status != "" {
		used++
	}
	return max(3, m.height-used)
}

// Messages

type tickMsg time.Time

type dataMsg struct {
	groups   []kanji.LevelGroup
	progress progress.Snapshot
	notes    []notify.Notification

	recordID string
	record   kanji.Record
	found    bool
}

type syncDoneMsg struct{ err error }

type credentialSavedMsg struct{ err error }

type imageResultMsg struct{ err error }

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) refreshCmd() tea.Cmd {
	b, mode, id := m.backend, m.filter, m.detail.recordID
	if b == nil {
		return nil
	}
	return func() tea.Msg {
		msg := dataMsg{
			groups:   b.Groups(mode),
			progress: b.Progress(),
			notes:    b.Notifications(),
			recordID: id,
		}
		if id != "" {
			msg.record, msg.found = b.Get(id)
		}
		return msg
	}
}

func syncCmd(ctx context.Context, b Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, SyncTimeout)
		defer cancel()
		return syncDoneMsg{err: b.SyncNow(ctx)}
	}
}

func saveCredentialCmd(ctx context.Context, b Backend, key string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, SyncTimeout)
		defer cancel()
		return credentialSavedMsg{err: b.SaveCredential(ctx, key)}
	}
}

func importImageCmd(b Backend) func(id, path string) tea.Cmd {
	return func(id, path string) tea.Cmd {
		return func() tea.Msg {
			_, err := b.ImportImageFile(id, path)
			return imageResultMsg{err: err}
		}
	}
}

func clearImageCmd(b Backend, id string) tea.Cmd {
	return func() tea.Msg {
		_, err := b.Update(id, kanji.SetImage(""))
		return imageResultMsg{err: err}
	}
}

// imageStatus turns an image import failure into a status line. Success is
// reported by the store's own notification.
func imageStatus(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, imageimport.ErrNotImage):
		return "Not an image file; nothing changed."
	case errors.Is(err, imageimport.ErrTooLarge):
		return "Image is too large; nothing changed."
	case errors.Is(err, imageimport.ErrEmpty):
		return "Image file is empty; nothing changed."
	default:
		return strings.TrimSpace(err.Error())
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
