package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"gopkg.in/yaml.v3"

	"github.com/five82/lokctl/internal/format"
	"github.com/five82/lokctl/internal/loki"
)

// detailDoc is the YAML shape of the detail view.
type detailDoc struct {
	Timestamp string            `yaml:"timestamp"`
	Local     string            `yaml:"local"`
	Severity  string            `yaml:"severity"`
	Labels    map[string]string `yaml:"labels,omitempty"`
	Line      string            `yaml:"line"`
}

// detailYAML renders entry as YAML. Label keys are sorted by the encoder.
func detailYAML(f format.Formatter, entry loki.LogEntry) (string, error) {
	doc := detailDoc{
		Timestamp: entry.Timestamp,
		Local:     f.LocalTime(entry.Timestamp),
		Severity:  format.Classify(entry.Line).String(),
		Labels:    entry.Labels,
		Line:      entry.Line,
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode detail: %w", err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// renderDetail renders the entry detail modal.
func (m Model) renderDetail() string {
	styles := m.theme.Styles()
	width := min(max(m.width-8, 30), 100)

	var body string
	if m.vs.DetailIndex < 0 || m.vs.DetailIndex >= len(m.vs.Logs) {
		body = styles.FaintText.Render("Entry no longer loaded")
	} else {
		text, err := detailYAML(m.formatter(), m.vs.Logs[m.vs.DetailIndex])
		if err != nil {
			body = styles.DangerText.Render(err.Error())
		} else {
			body = styles.Text.Render(ansi.Wrap(text, width-6, " "))
		}
	}

	var b strings.Builder
	title := fmt.Sprintf("Entry %d of %d", m.vs.DetailIndex+1, len(m.vs.Logs))
	b.WriteString(styles.Text.Bold(true).Render(title))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", width-6)))
	b.WriteString("\n\n")
	b.WriteString(body)
	b.WriteString("\n\n")
	if m.vs.Status.Text != "" {
		b.WriteString(m.statusStyle(styles).Render(m.vs.Status.Text))
		b.WriteString("\n")
	}
	b.WriteString(styles.FaintText.Render("j/k step • y copy line • esc close"))

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
