package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/lokctl/internal/dispatch"
)

const (
	fieldJob = iota
	fieldLevel
	fieldMessage
)

var formLabels = [...]string{"Job", "Level", "Message"}

// writeForm holds the inputs of the write-entry modal. Values survive a
// failed write so the user can retry.
type writeForm struct {
	inputs  [3]textinput.Model
	focused int
}

func newWriteForm() writeForm {
	var f writeForm
	for i := range f.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 256
		f.inputs[i] = ti
	}
	f.inputs[fieldJob].Placeholder = "lokctl"
	f.inputs[fieldJob].SetValue("lokctl")
	f.inputs[fieldLevel].Placeholder = "info"
	f.inputs[fieldLevel].SetValue("info")
	f.inputs[fieldMessage].Placeholder = "message"
	f.inputs[fieldMessage].CharLimit = 4096
	return f
}

// focus moves focus to field i, wrapping around.
func (f *writeForm) focus(i int) tea.Cmd {
	n := len(f.inputs)
	f.focused = ((i % n) + n) % n
	var cmd tea.Cmd
	for idx := range f.inputs {
		if idx == f.focused {
			cmd = f.inputs[idx].Focus()
			continue
		}
		f.inputs[idx].Blur()
	}
	return cmd
}

func (f *writeForm) blur() {
	for idx := range f.inputs {
		f.inputs[idx].Blur()
	}
}

func (f *writeForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focused], cmd = f.inputs[f.focused].Update(msg)
	return cmd
}

func (f *writeForm) resize(width int) {
	for idx := range f.inputs {
		f.inputs[idx].Width = max(width-14, 10)
	}
}

// clearMessage empties the message after a successful write; job and level
// are kept for the next entry.
func (f *writeForm) clearMessage() {
	f.inputs[fieldMessage].SetValue("")
}

func (f writeForm) command() dispatch.WriteEntry {
	return dispatch.WriteEntry{
		Job:     f.inputs[fieldJob].Value(),
		Level:   f.inputs[fieldLevel].Value(),
		Message: f.inputs[fieldMessage].Value(),
	}
}

func (m Model) formWidth() int {
	return min(max(m.width-10, 30), 72)
}

// renderForm renders the write-entry modal.
func (m Model) renderForm() string {
	styles := m.theme.Styles()
	width := m.formWidth()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Write Entry"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", width-6)))
	b.WriteString("\n\n")

	for i, label := range formLabels {
		labelStyle := styles.MutedText.Width(10)
		if i == m.form.focused {
			labelStyle = styles.AccentText.Bold(true).Width(10)
		}
		b.WriteString(labelStyle.Render(label))
		b.WriteString(m.form.inputs[i].View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.vs.FormError != "" {
		b.WriteString(styles.DangerText.Render(m.vs.FormError))
		b.WriteString("\n")
	} else if m.vs.Status.Text != "" {
		b.WriteString(m.statusStyle(styles).Render(m.vs.Status.Text))
		b.WriteString("\n")
	}
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.NextField, m.keys.Confirm, m.keys.Back}))

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(width)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}
