package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/five82/lokctl/internal/state"
)

// paneLayout splits the area under the command bar between the log and
// context panes. Wide terminals get them side by side.
func (m Model) paneLayout() (logW, logH, ctxW, ctxH int, sideBySide bool) {
	w := max(m.width, 20)
	h := max(m.height-chromeHeight-m.inputHeight(), minPaneHeight*2)
	if w >= LayoutSideBySideWidth {
		logW = w * 3 / 5
		return logW, h, w - logW, h, true
	}
	logH = max(h*3/5, minPaneHeight)
	return w, logH, w, max(h-logH, minPaneHeight), false
}

func (m Model) inputHeight() int {
	if m.vs.Mode != state.Searching {
		return 0
	}
	return 1 + len(m.suggestions)
}

// renderPanes renders the log and context panes.
func (m Model) renderPanes() string {
	logW, logH, ctxW, ctxH, sideBySide := m.paneLayout()
	logs := m.renderLogPane(logW, logH)
	context := m.renderContextPane(ctxW, ctxH)
	if sideBySide {
		return lipgloss.JoinHorizontal(lipgloss.Top, logs, context)
	}
	return logs + "\n" + context
}

func (m Model) renderLogPane(width, height int) string {
	title := fmt.Sprintf("Logs (%d)", len(m.vs.Logs))
	if m.vs.Following {
		title += " following"
	}
	focused := m.vs.Focus == state.PaneLogs

	if len(m.vs.LogLines) == 0 {
		msg := "No entries for this query"
		if m.vs.Loading(state.TargetLogs) {
			msg = "Loading…"
		}
		return m.renderTitledBox(title, m.emptyMessage(msg), width, height, focused)
	}

	inner := height - 2
	innerW := width - 2
	selected, hasSelected := m.vs.Selected()
	start := windowStart(m.vs.Cursor, len(m.vs.LogLines), inner)
	end := min(start+inner, len(m.vs.LogLines))

	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, m.renderRow(m.vs.LogLines[i], innerW, i == m.vs.Cursor, hasSelected && i == selected))
	}
	return m.renderTitledBox(title, strings.Join(rows, "\n"), width, height, focused)
}

func (m Model) renderContextPane(width, height int) string {
	title := fmt.Sprintf("Context ±%ds", m.contextRadius)
	if entry, ok := m.vs.SelectedEntry(); ok {
		title += " around " + m.formatter().LocalTime(entry.Timestamp)
	}
	focused := m.vs.Focus == state.PaneContext

	_, hasSelection := m.vs.Selected()
	switch {
	case !hasSelection:
		return m.renderTitledBox(title, m.emptyMessage("Press enter on an entry to load its context"), width, height, focused)
	case m.vs.Loading(state.TargetContext):
		return m.renderTitledBox(title, m.emptyMessage("Loading context…"), width, height, focused)
	case len(m.vs.ContextLines) == 0:
		return m.renderTitledBox(title, m.emptyMessage("No entries in this window"), width, height, focused)
	}

	inner := height - 2
	innerW := width - 2
	anchor := m.contextAnchor()
	start := min(m.contextOffset, max(len(m.vs.ContextLines)-inner, 0))
	end := min(start+inner, len(m.vs.ContextLines))

	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, m.renderRow(m.vs.ContextLines[i], innerW, false, i == anchor))
	}
	return m.renderTitledBox(title, strings.Join(rows, "\n"), width, height, focused)
}

// contextAnchor returns the index of the selected entry within the context,
// or -1 when it is not part of it.
func (m Model) contextAnchor() int {
	entry, ok := m.vs.SelectedEntry()
	if !ok {
		return -1
	}
	for i, c := range m.vs.Context {
		if c.Timestamp == entry.Timestamp && c.Line == entry.Line {
			return i
		}
	}
	return -1
}

// renderRow draws a two-column gutter (cursor, selection) and the
// pre-formatted line cut to width.
func (m Model) renderRow(line string, width int, cursor, selected bool) string {
	bg := NewBgStyle(m.theme.SurfaceAlt)
	styles := m.theme.Styles()

	gutter := bg.Space()
	if cursor {
		gutter = bg.Render("▌", styles.AccentText)
	}
	if selected {
		gutter += bg.Render("●", styles.WarningText)
	} else {
		gutter += bg.Space()
	}
	return gutter + ansi.Truncate(line, max(width-2, 1), "…")
}

func (m Model) emptyMessage(msg string) string {
	bg := NewBgStyle(m.theme.SurfaceAlt)
	return bg.Space() + bg.Render(msg, m.theme.Styles().FaintText)
}

// windowStart returns the first visible row so that cursor stays centred
// where possible.
func windowStart(cursor, total, height int) int {
	if height <= 0 || total <= height {
		return 0
	}
	start := cursor - height/2
	return min(max(start, 0), total-height)
}

// renderTitledBox renders content in a box with the title embedded in the top border.
// The focused box uses BorderFocus; content always sits on SurfaceAlt so
// severity styles line up with it.
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	borderColorStr := m.theme.Border
	if focused {
		borderColorStr = m.theme.BorderFocus
	}
	bg := NewBgStyle(m.theme.SurfaceAlt)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColorStr))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := max(width-2, 1)
	title = runewidth.Truncate(title, max(innerWidth-4, 0), "…")
	titleLen := runewidth.StringWidth(title)
	leftPad := max((innerWidth-titleLen-2)/2, 0)
	rightPad := max(innerWidth-titleLen-2-leftPad, 0)

	topBorder := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)

	bottomBorder := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", innerWidth), borderStyle) +
		bg.Render("┘", borderStyle)

	contentStyle := lipgloss.NewStyle().Width(innerWidth).MaxWidth(innerWidth).Background(lipgloss.Color(m.theme.SurfaceAlt))

	contentLines := strings.Split(content, "\n")
	boxHeight := max(height-2, 0)

	paddedLines := make([]string, 0, boxHeight)
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		paddedLines = append(paddedLines,
			bg.Render("│", borderStyle)+
				contentStyle.Render(line)+
				bg.Render("│", borderStyle))
	}

	return topBorder + "\n" + strings.Join(paddedLines, "\n") + "\n" + bottomBorder
}
