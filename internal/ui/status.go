package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/lokctl/internal/state"
)

// renderStatus renders the one-line status under the panes.
func (m Model) renderStatus() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	var content string
	if m.loading() {
		content = m.spinner.View() + bg.Space()
	}
	if m.vs.Status.Text != "" {
		content += bg.Render(m.vs.Status.Text, m.statusStyle(styles))
	}

	return styles.Footer.Width(m.width).MaxWidth(m.width).Render(content)
}

func (m Model) loading() bool {
	return m.vs.Loading(state.TargetLogs) || m.vs.Loading(state.TargetContext) || m.vs.Loading(state.TargetTail)
}

func (m Model) statusStyle(styles Styles) lipgloss.Style {
	switch m.vs.Status.Kind {
	case state.StatusError:
		return styles.DangerText
	case state.StatusSuccess:
		return styles.SuccessText
	case state.StatusLoading:
		return styles.InfoText
	default:
		return styles.MutedText
	}
}

// renderInputBar renders the query/search input and history suggestions.
func (m Model) renderInputBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	out := bg.FillLine(m.input.View(), m.width)
	for _, s := range m.suggestions {
		out += "\n" + bg.FillLine(bg.Spaces(2)+bg.Render(truncateMiddle(s, m.width-6), styles.FaintText), m.width)
	}
	return out
}
