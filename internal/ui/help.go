package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	glamouransi "github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

type helpSection struct {
	title string
	items []helpItem
}

type helpItem struct {
	key  string
	desc string
}

var helpSections = []helpSection{
	{
		title: "Navigation",
		items: []helpItem{
			{"j/k", "Move up/down"},
			{"g/G", "Go to top/bottom"},
			{"ctrl+d/u", "Half page down/up"},
			{"tab", "Switch between logs and context"},
		},
	},
	{
		title: "Entries",
		items: []helpItem{
			{"enter/c", "Load context around the entry"},
			{"d", "Entry detail (j/k to step, y to copy)"},
			{"y", "Copy raw line"},
			{"e", "Export loaded entries"},
			{"w", "Write a new entry"},
		},
	},
	{
		title: "Query",
		items: []helpItem{
			{":", "Edit query (empty restores default)"},
			{"/", "Highlight a term"},
			{"r", "Refresh"},
			{"f", "Toggle follow"},
		},
	},
	{
		title: "General",
		items: []helpItem{
			{"T", "Cycle theme"},
			{"?", "Toggle help"},
			{"q/esc", "Quit"},
		},
	},
}

const helpModalWidth = 60

// helpMarkdown lays the sections out as markdown tables.
func helpMarkdown(sections []helpSection) string {
	var b strings.Builder
	b.WriteString("# Keyboard Shortcuts\n")
	for _, section := range sections {
		fmt.Fprintf(&b, "\n## %s\n\n| Key | Action |\n| --- | --- |\n", section.title)
		for _, item := range section.items {
			fmt.Fprintf(&b, "| `%s` | %s |\n", item.key, item.desc)
		}
	}
	return b.String()
}

func (m Model) helpStyle() glamouransi.StyleConfig {
	s := styles.DarkStyleConfig
	zero := uint(0)
	accent := m.theme.Accent
	warning := m.theme.Warning
	text := m.theme.Text

	s.Document.Margin = &zero
	s.Document.StylePrimitive.Color = &text
	s.H1.StylePrimitive.BackgroundColor = nil
	s.H1.StylePrimitive.Color = &accent
	s.H1.StylePrimitive.Prefix = ""
	s.H1.StylePrimitive.Suffix = ""
	s.H2.StylePrimitive.Color = &accent
	s.Code.StylePrimitive.BackgroundColor = nil
	s.Code.StylePrimitive.Color = &warning
	return s
}

// renderHelpContent renders the shortcut tables with glamour. The plain
// markdown is returned if rendering fails.
func (m Model) renderHelpContent() string {
	text := helpMarkdown(helpSections)
	width := min(helpModalWidth, max(m.width-8, 20))
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(m.helpStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	rendered, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(rendered)
}

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	content := m.helpView
	if content == "" {
		content = m.renderHelpContent()
	}

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(content),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}
