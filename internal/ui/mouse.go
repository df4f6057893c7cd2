package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lokctl/internal/dispatch"
	"github.com/five82/lokctl/internal/state"
)

// panesTop is the first screen row of the panes, below the header and the
// command bar.
const panesTop = 2

// paneAt maps a screen cell to the pane under it and the content row within
// that pane. row is -1 on a border.
func (m Model) paneAt(x, y int) (pane state.Pane, row int, ok bool) {
	logW, logH, _, ctxH, sideBySide := m.paneLayout()

	top, height := panesTop, logH
	pane = state.PaneLogs
	switch {
	case y < panesTop:
		return pane, -1, false
	case sideBySide:
		if x >= logW {
			pane, height = state.PaneContext, ctxH
		}
	case y >= panesTop+logH:
		pane, top, height = state.PaneContext, panesTop+logH, ctxH
	}
	if y >= top+height {
		return pane, -1, false
	}

	row = y - top - 1
	if row < 0 || row >= height-2 {
		row = -1
	}
	return pane, row, true
}

// handleMouse scrolls the pane under the wheel and loads context for a
// clicked log row. Only the main view reacts to the mouse.
func (m Model) handleMouse(msg tea.MouseMsg) (Model, tea.Cmd) {
	if m.vs.Mode != state.Viewing {
		return m, nil
	}
	pane, row, ok := m.paneAt(msg.X, msg.Y)
	if !ok {
		return m, nil
	}

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		if pane == state.PaneContext {
			m.scrollContextBy(-1)
			return m, nil
		}
		return m.apply(dispatch.MoveCursor{Delta: -1})
	case msg.Button == tea.MouseButtonWheelDown:
		if pane == state.PaneContext {
			m.scrollContextBy(1)
			return m, nil
		}
		return m.apply(dispatch.MoveCursor{Delta: 1})
	case msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
		return m.clickPane(pane, row)
	}
	return m, nil
}

func (m Model) clickPane(pane state.Pane, row int) (Model, tea.Cmd) {
	var focusCmd tea.Cmd
	if m.vs.Focus != pane {
		m, focusCmd = m.apply(dispatch.ToggleFocus{})
	}
	if pane != state.PaneLogs || row < 0 {
		return m, focusCmd
	}

	_, logH, _, _, _ := m.paneLayout()
	idx := windowStart(m.vs.Cursor, len(m.vs.LogLines), logH-2) + row
	if idx >= len(m.vs.Logs) {
		return m, focusCmd
	}

	m, moveCmd := m.apply(dispatch.CursorTo{Index: idx})
	m, selectCmd := m.apply(dispatch.SelectEntry{Index: idx})
	return m, tea.Batch(focusCmd, moveCmd, selectCmd)
}
