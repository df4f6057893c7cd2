package ui

import (
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/five82/lokctl/internal/dispatch"
	"github.com/five82/lokctl/internal/format"
	"github.com/five82/lokctl/internal/prefs"
	"github.com/five82/lokctl/internal/state"
)

// Options configures the UI.
type Options struct {
	Dispatcher *dispatch.Dispatcher
	// State is the initial view state; its query is fetched on start.
	State state.ViewState

	BaseURL       string
	ContextRadius int64
	ThemeName     string
	TimeLayout    string
	Location      *time.Location
	// PrefsPath receives the theme when it is cycled. Empty disables saving.
	PrefsPath string
	Logger    logrus.FieldLogger
}

// Model is the root application state for Bubble Tea. It never mutates the
// view state itself; every change goes through the dispatcher.
type Model struct {
	dispatcher *dispatch.Dispatcher
	vs         state.ViewState
	initCmd    tea.Cmd
	log        logrus.FieldLogger

	// Configuration
	keys          keyMap
	theme         Theme
	prefsPath     string
	timeLayout    string
	location      *time.Location
	baseURL       string
	contextRadius int64

	// UI state
	width  int
	height int
	ready  bool

	input         textinput.Model
	suggestions   []string
	form          writeForm
	spinner       spinner.Model
	help          help.Model
	contextOffset int
	helpView      string
}

// New creates a new Bubble Tea model and issues the initial fetch.
func New(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}

	input := textinput.New()
	input.Placeholder = `{job="api"}  or  /term`
	input.Prompt = "› "
	input.CharLimit = 512

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		dispatcher:    opts.Dispatcher,
		log:           logger,
		keys:          DefaultKeyMap(),
		prefsPath:     opts.PrefsPath,
		timeLayout:    opts.TimeLayout,
		location:      opts.Location,
		baseURL:       opts.BaseURL,
		contextRadius: opts.ContextRadius,
		input:         input,
		form:          newWriteForm(),
		spinner:       sp,
		help:          help.New(),
	}
	m.vs = opts.State
	m.applyTheme(GetTheme(opts.ThemeName))
	m.vs, m.initCmd = m.dispatcher.Dispatch(m.vs, dispatch.Refresh{})
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.initCmd, m.spinner.Tick)
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
		m.input.Width = max(m.width-6, 10)
		m.form.resize(m.formWidth())
		if m.vs.Mode == state.ShowingHelp {
			m.helpView = m.renderHelpContent()
		}
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case dispatch.Result:
		return m.receive(msg)
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	switch m.vs.Mode {
	case state.ShowingHelp:
		return m.renderHelp()
	case state.ShowingDetail:
		return m.renderDetail()
	case state.WritingEntry:
		return m.renderForm()
	}
	return m.renderMain()
}

// State returns the current view state.
func (m Model) State() state.ViewState {
	return m.vs
}

func (m Model) receive(res dispatch.Result) (Model, tea.Cmd) {
	atEnd := len(m.vs.Logs) == 0 || m.vs.Cursor >= len(m.vs.Logs)-1

	var cmd tea.Cmd
	m.vs, cmd = m.dispatcher.Receive(m.vs, res)

	switch r := res.(type) {
	case dispatch.EntryWritten:
		if r.Err == nil {
			m.form.clearMessage()
		}
	case dispatch.TailReceived:
		// Stay pinned to the newest entry while following.
		if m.vs.Following && atEnd {
			m.vs, _ = m.dispatcher.Dispatch(m.vs, dispatch.CursorTo{Index: -1})
		}
	case dispatch.ContextFetched:
		_, _, _, ctxH, _ := m.paneLayout()
		m.contextOffset = max(m.contextAnchor()-(ctxH-2)/2, 0)
	}
	return m, cmd
}

// apply runs a command through the dispatcher and performs the shell-side
// setup for the mode it enters.
func (m Model) apply(cmd dispatch.Command) (Model, tea.Cmd) {
	var next tea.Cmd
	m.vs, next = m.dispatcher.Dispatch(m.vs, cmd)

	switch c := cmd.(type) {
	case dispatch.StartSearch:
		m.input.SetValue(c.Prefix)
		m.input.CursorEnd()
		m.suggestions = m.vs.Suggest(c.Prefix, suggestionLimit)
		focus := m.input.Focus()
		return m, tea.Batch(next, focus)
	case dispatch.StartWrite:
		focus := m.form.focus(0)
		return m, tea.Batch(next, focus)
	case dispatch.ShowHelp:
		m.helpView = m.renderHelpContent()
	case dispatch.SelectEntry:
		m.contextOffset = 0
	}
	return m, next
}

func (m *Model) applyTheme(t Theme) {
	m.theme = t
	m.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent))
	m.help.Styles.ShortKey = lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent))
	m.help.Styles.ShortDesc = lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted))
	m.help.Styles.ShortSeparator = lipgloss.NewStyle().Foreground(lipgloss.Color(t.Faint))
	m.dispatcher.SetFormatter(m.formatter())
	m.vs = m.dispatcher.Rerender(m.vs)
}

func (m *Model) cycleTheme() {
	m.applyTheme(GetTheme(NextTheme(m.theme.Name)))
	if strings.TrimSpace(m.prefsPath) == "" {
		return
	}
	p := prefs.Prefs{Theme: m.theme.Name, TimeLayout: m.timeLayout}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.log.WithError(err).Warn("save prefs")
	}
}

func (m Model) formatter() format.Formatter {
	return format.Formatter{
		Styler:   newThemeStyler(m.theme),
		Layout:   m.timeLayout,
		Location: m.location,
	}
}

// renderMain renders header, command bar, panes, status line and, while
// searching, the input bar.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderPanes())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	if m.vs.Mode == state.Searching {
		b.WriteString("\n")
		b.WriteString(m.renderInputBar())
	}
	return b.String()
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	opts.Dispatcher.Close()
	return err
}
