// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/nebula-tui/internal/autocorrect"
	"github.com/jeranaias/nebula-tui/internal/model"
	"github.com/jeranaias/nebula-tui/internal/run"
	"github.com/jeranaias/nebula-tui/internal/session"
	"github.com/jeranaias/nebula-tui/internal/ui/components"
	"github.com/jeranaias/nebula-tui/internal/ui/styles"
)

// focus is the widget receiving keys.
type focus int

const (
	focusComposer focus = iota
	focusSessions
	focusRename
)

// storeChangedMsg reports that the session file changed on disk.
type storeChangedMsg struct{}

// Deps are the collaborators of the chat screen.
type Deps struct {
	Store       *session.Store
	Controller  *run.Controller
	Autocorrect *autocorrect.Coordinator
	Renderer    components.MarkdownRenderer
	Theme       *styles.Theme
	// Changes, when set, signals external modifications of the session store.
	Changes <-chan struct{}
	Logger  *zap.Logger
	// Mode is the initial mode for new runs.
	Mode model.Mode
	// ShowDetails opens the trace list and shows the panel for fast runs.
	ShowDetails bool
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	deps  Deps
	keys  KeyMap
	theme *styles.Theme

	input    textinput.Model
	rename   textinput.Model
	viewport viewport.Model
	spinner  components.Spinner
	panel    *components.RunPanel

	width, height int
	focus         focus
	cursor        int
	mode          model.Mode
	showDetails   bool

	// runSessionID is the session of the last started run; runMode its mode.
	runSessionID string
	runMode      model.Mode
	correction   *model.Correction
	notice       string
	quitting     bool

	convKey   string
	convCache string
}

// New builds the chat screen.
func New(deps Deps) Model {
	if deps.Theme == nil {
		deps.Theme = styles.NewTheme()
	}
	if deps.Renderer == nil {
		deps.Renderer = components.PlainRenderer{Width: 80}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Mode == "" {
		deps.Mode = model.ModeFast
	}

	in := textinput.New()
	in.Placeholder = "Ask a research question..."
	in.Prompt = "> "
	in.CharLimit = 2000
	in.Focus()

	rn := textinput.New()
	rn.Prompt = "title: "
	rn.CharLimit = model.MaxTitleRunes * 4

	m := Model{
		deps:        deps,
		keys:        DefaultKeyMap(),
		theme:       deps.Theme,
		input:       in,
		rename:      rn,
		viewport:    viewport.New(80, 20),
		spinner:     components.NewSpinner(),
		panel:       components.NewRunPanel(deps.Theme, 80),
		width:       80,
		height:      24,
		mode:        deps.Mode,
		showDetails: deps.ShowDetails,
	}
	if cur, ok := deps.Store.Current(); ok {
		m.mode = cur.Mode
	}
	m.refresh(true)
	return m
}

// Init starts the cursor blink and the store watcher.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.watchStore())
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case storeChangedMsg:
		if m.deps.Store.Reload() {
			m.deps.Logger.Debug("sessions reloaded from disk")
			m.clampCursor()
			m.convKey = ""
			m.refresh(false)
		}
		return m, m.watchStore()
	}

	// Run, autocorrect and spinner messages. Each consumer ignores what is not
	// addressed to it.
	var cmds []tea.Cmd
	cmds = append(cmds, m.deps.Controller.Update(msg))
	if m.deps.Autocorrect != nil {
		cmds = append(cmds, m.deps.Autocorrect.Update(msg))
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)
	cmds = append(cmds, m.syncSpinner())

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	m.refresh(m.isRunMsg(msg))
	return m, tea.Batch(cmds...)
}

// View renders the screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.render()
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width, m.height = msg.Width, msg.Height
	m.input.Width = max(m.width-8, 10)
	m.rename.Width = max(m.width-12, 10)
	m.panel.SetWidth(m.width)
	if r, ok := m.deps.Renderer.(components.PlainRenderer); ok {
		r.Width = max(m.width-4, 20)
		m.deps.Renderer = r
	}
	m.refresh(false)
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.deps.Controller.Close()
		m.quitting = true
		return m, tea.Quit
	}

	switch m.focus {
	case focusSessions:
		return m.handleSessionsKey(msg)
	case focusRename:
		return m.handleRenameKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Stop):
		if m.deps.Controller.Thinking() {
			m.deps.Controller.Stop()
			m.spinner.Stop()
			m.refresh(false)
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit(false)

	case key.Matches(msg, m.keys.Original):
		if m.correction == nil {
			return m, nil
		}
		m.input.SetValue(m.correction.Original)
		return m.submit(true)

	case key.Matches(msg, m.keys.ToggleMode):
		m.mode = m.mode.Toggle()
		return m, nil

	case key.Matches(msg, m.keys.NewSession):
		m.deps.Store.Deselect()
		m.correction = nil
		m.notice = "New session: your next question starts it."
		m.refresh(true)
		return m, nil

	case key.Matches(msg, m.keys.Sessions):
		m.focus = focusSessions
		m.cursor = m.currentIndex()
		m.input.Blur()
		m.refresh(false)
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if id := m.deps.Store.CurrentID(); id != "" {
			m.deleteSession(id)
		}
		return m, nil

	case key.Matches(msg, m.keys.Rename):
		cur, ok := m.deps.Store.Current()
		if !ok {
			return m, nil
		}
		m.focus = focusRename
		m.rename.SetValue(cur.Title)
		m.rename.CursorEnd()
		m.input.Blur()
		return m, m.rename.Focus()

	case key.Matches(msg, m.keys.Details):
		m.showDetails = !m.showDetails
		m.refresh(false)
		return m, nil

	case key.Matches(msg, m.keys.Autocorrect):
		if m.deps.Autocorrect != nil {
			m.deps.Autocorrect.SetEnabled(!m.deps.Autocorrect.Enabled())
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds := []tea.Cmd{cmd}
	if m.input.Value() != before && m.deps.Autocorrect != nil {
		cmds = append(cmds, m.deps.Autocorrect.OnTextChanged(m.input.Value()))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleSessionsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sessions := m.deps.Store.List()
	switch {
	case key.Matches(msg, m.keys.Stop):
		m.focus = focusComposer
		m.refresh(true)
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(sessions)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Submit):
		if m.cursor < len(sessions) {
			s := sessions[m.cursor]
			if err := m.deps.Store.Select(s.ID); err == nil {
				m.mode = s.Mode
				m.correction = nil
				m.notice = ""
			}
		}
		m.focus = focusComposer
		m.refresh(true)
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Delete):
		if m.cursor < len(sessions) {
			m.deleteSession(sessions[m.cursor].ID)
		}
	}
	m.refresh(false)
	return m, nil
}

func (m Model) handleRenameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Stop):
		m.focus = focusComposer
		m.rename.Blur()
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Submit):
		if id := m.deps.Store.CurrentID(); id != "" {
			if err := m.deps.Store.Rename(id, m.rename.Value()); err != nil {
				m.deps.Logger.Warn("rename failed", zap.Error(err))
			}
		}
		m.focus = focusComposer
		m.rename.Blur()
		return m, m.input.Focus()
	}
	var cmd tea.Cmd
	m.rename, cmd = m.rename.Update(msg)
	return m, cmd
}

// =============================================================================
// ACTIONS
// =============================================================================

func (m Model) submit(exact bool) (tea.Model, tea.Cmd) {
	text := m.input.Value()
	var (
		res run.StartResult
		cmd tea.Cmd
	)
	if exact {
		res, cmd = m.deps.Controller.StartExact(text, m.mode)
	} else {
		res, cmd = m.deps.Controller.Start(text, m.mode)
	}
	if !res.Started {
		return m, nil
	}

	m.input.SetValue("")
	m.correction = res.Correction
	m.notice = ""
	m.runSessionID = res.SessionID
	m.runMode = m.mode

	m.refresh(true)
	return m, tea.Batch(cmd, m.syncSpinner())
}

func (m *Model) deleteSession(id string) {
	if m.deps.Controller.ActiveSessionID() == id {
		m.deps.Controller.Stop()
	}
	if err := m.deps.Store.Delete(id); err != nil {
		m.deps.Logger.Warn("delete failed", zap.String("session", id), zap.Error(err))
		return
	}
	if cur, ok := m.deps.Store.Current(); ok {
		m.mode = cur.Mode
	}
	m.correction = nil
	m.clampCursor()
	m.refresh(true)
}

// syncSpinner starts or stops the spinner to match the controller.
func (m *Model) syncSpinner() tea.Cmd {
	if m.deps.Controller.Thinking() {
		return m.spinner.Start()
	}
	m.spinner.Stop()
	return nil
}

func (m Model) watchStore() tea.Cmd {
	ch := m.deps.Changes
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return storeChangedMsg{}
	}
}

func (m Model) isRunMsg(msg tea.Msg) bool {
	switch msg.(type) {
	case run.EventMsg, run.StreamClosedMsg:
		return true
	}
	return false
}

func (m *Model) currentIndex() int {
	id := m.deps.Store.CurrentID()
	for i, s := range m.deps.Store.List() {
		if s.ID == id {
			return i
		}
	}
	return 0
}

func (m *Model) clampCursor() {
	n := m.deps.Store.Len()
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Mode returns the mode the next question will use.
func (m Model) Mode() model.Mode {
	return m.mode
}

// Input returns the composer text.
func (m Model) Input() string {
	return m.input.Value()
}

// Correction returns the correction applied to the last question, if any.
func (m Model) Correction() *model.Correction {
	return m.correction
}
