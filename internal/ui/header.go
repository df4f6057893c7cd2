package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the top bar: name, backend, query and follow state.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth

	var parts []string
	parts = append(parts, bg.Render("lokctl", styles.Logo))

	urlLimit := 40
	if compact {
		urlLimit = 24
	}
	parts = append(parts, bg.Render("●", styles.SuccessText)+bg.Space()+
		bg.Render(truncateMiddle(m.baseURL, urlLimit), styles.MutedText))

	queryLimit := max(m.width/2, 20)
	parts = append(parts,
		bg.Render("Query:", styles.MutedText)+bg.Space()+
			bg.Render(truncateMiddle(m.vs.Query, queryLimit), styles.Text))

	if !compact {
		parts = append(parts,
			bg.Render("Entries:", styles.MutedText)+bg.Space()+
				bg.Render(fmt.Sprintf("%d", len(m.vs.Logs)), styles.Text))
	}

	if m.vs.Following {
		parts = append(parts, bg.Render("FOLLOW", styles.InfoText.Bold(true)))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		MaxWidth(m.width).
		Render(bg.Join(parts, "  "))
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	followLabel := "Follow"
	if m.vs.Following {
		followLabel = "Pause"
	}

	type cmd struct{ key, desc string }
	commands := []cmd{
		{"enter", "Context"},
		{"d", "Detail"},
		{"/", "Highlight"},
		{":", "Query"},
		{"f", followLabel},
		{"w", "Write"},
		{"e", "Export"},
		{"r", "Refresh"},
		{"tab", "Pane"},
		{"?", "More"},
	}
	if m.width < LayoutCompactWidth {
		commands = commands[:6]
		commands = append(commands, cmd{"?", "More"})
	}

	colon := bg.Sep(":")
	sep := bg.Spaces(2)

	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	if m.vs.SearchTerm != "" {
		segments = append(segments,
			bg.Render("/"+truncateMiddle(m.vs.SearchTerm, 18), styles.WarningText))
	}

	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).MaxWidth(m.width).Render(strings.Join(segments, sep))
}
