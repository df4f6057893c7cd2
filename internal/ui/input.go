package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lokctl/internal/dispatch"
	"github.com/five82/lokctl/internal/state"
)

// handleKey routes keyboard input by mode.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m.apply(dispatch.Quit{})
	}

	switch m.vs.Mode {
	case state.ShowingHelp:
		// Any key closes help
		return m.apply(dispatch.Back{})
	case state.ShowingDetail:
		return m.handleDetailKey(msg)
	case state.Searching:
		return m.handleSearchKey(msg)
	case state.WritingEntry:
		return m.handleFormKey(msg)
	}

	if key.Matches(msg, m.keys.CycleTheme) {
		m.cycleTheme()
		return m, nil
	}
	if m.vs.Focus == state.PaneContext && m.scrollContext(msg) {
		return m, nil
	}
	if cmd := m.commandForKey(msg); cmd != nil {
		return m.apply(cmd)
	}
	return m, nil
}

// commandForKey translates a key pressed while viewing into a command.
func (m Model) commandForKey(msg tea.KeyMsg) dispatch.Command {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return dispatch.Quit{}
	case key.Matches(msg, k.Help):
		return dispatch.ShowHelp{}
	case key.Matches(msg, k.Up):
		return dispatch.MoveCursor{Delta: -1}
	case key.Matches(msg, k.Down):
		return dispatch.MoveCursor{Delta: 1}
	case key.Matches(msg, k.Top):
		return dispatch.CursorTo{Index: 0}
	case key.Matches(msg, k.Bottom):
		return dispatch.CursorTo{Index: -1}
	case key.Matches(msg, k.HalfPageUp):
		return dispatch.MoveCursor{Delta: -m.halfPage()}
	case key.Matches(msg, k.HalfPageDown):
		return dispatch.MoveCursor{Delta: m.halfPage()}
	case key.Matches(msg, k.Context):
		return dispatch.SelectEntry{Index: m.vs.Cursor}
	case key.Matches(msg, k.Detail):
		return dispatch.ShowDetail{Index: m.vs.Cursor}
	case key.Matches(msg, k.Search):
		return dispatch.StartSearch{Prefix: "/" + m.vs.SearchTerm}
	case key.Matches(msg, k.Query):
		return dispatch.StartSearch{Prefix: m.vs.Query}
	case key.Matches(msg, k.Write):
		return dispatch.StartWrite{}
	case key.Matches(msg, k.Export):
		return dispatch.ExportLogs{}
	case key.Matches(msg, k.Refresh):
		return dispatch.Refresh{}
	case key.Matches(msg, k.Follow):
		return dispatch.ToggleFollow{}
	case key.Matches(msg, k.CopyLine):
		return dispatch.CopyLine{Index: m.vs.Cursor}
	case key.Matches(msg, k.Tab):
		return dispatch.ToggleFocus{}
	}
	return nil
}

// scrollContext moves the context pane when it has focus. It reports
// whether the key was consumed.
func (m *Model) scrollContext(msg tea.KeyMsg) bool {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.scrollContextBy(-1)
	case key.Matches(msg, m.keys.Down):
		m.scrollContextBy(1)
	case key.Matches(msg, m.keys.Top):
		m.contextOffset = 0
	case key.Matches(msg, m.keys.Bottom):
		m.contextOffset = m.contextMaxOffset()
	default:
		return false
	}
	return true
}

func (m *Model) scrollContextBy(delta int) {
	m.contextOffset = min(max(m.contextOffset+delta, 0), m.contextMaxOffset())
}

func (m Model) contextMaxOffset() int {
	_, _, _, ctxH, _ := m.paneLayout()
	return max(len(m.vs.ContextLines)-(ctxH-2), 0)
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.CopyLine):
		return m.apply(dispatch.CopyLine{Index: m.vs.DetailIndex})
	case key.Matches(msg, m.keys.Down):
		return m.apply(dispatch.ShowDetail{Index: m.vs.DetailIndex + 1})
	case key.Matches(msg, m.keys.Up):
		return m.apply(dispatch.ShowDetail{Index: m.vs.DetailIndex - 1})
	case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.Detail):
		return m.apply(dispatch.Back{})
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.input.Blur()
		m.suggestions = nil
		return m.apply(dispatch.Back{})
	case key.Matches(msg, m.keys.Confirm):
		value := m.input.Value()
		m.input.Blur()
		m.suggestions = nil
		return m.apply(dispatch.SubmitInput{Text: value})
	case key.Matches(msg, m.keys.Complete):
		if len(m.suggestions) > 0 {
			m.input.SetValue(m.suggestions[0])
			m.input.CursorEnd()
			m.suggestions = m.vs.Suggest(m.input.Value(), suggestionLimit)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.suggestions = m.vs.Suggest(m.input.Value(), suggestionLimit)
	return m, cmd
}

func (m Model) handleFormKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.form.blur()
		return m.apply(dispatch.Back{})
	case key.Matches(msg, m.keys.NextField):
		cmd := m.form.focus(m.form.focused + 1)
		return m, cmd
	case key.Matches(msg, m.keys.PrevField):
		cmd := m.form.focus(m.form.focused - 1)
		return m, cmd
	case key.Matches(msg, m.keys.Confirm):
		if m.form.focused < len(m.form.inputs)-1 {
			cmd := m.form.focus(m.form.focused + 1)
			return m, cmd
		}
		return m.apply(m.form.command())
	}

	cmd := m.form.update(msg)
	return m, cmd
}

func (m Model) halfPage() int {
	_, logH, _, _, _ := m.paneLayout()
	return max((logH-2)/2, 1)
}
