package format

import "strings"

// Markers is a Styler that wraps runs in literal strings. It is used for
// plain-text output and makes styling visible in tests.
type Markers struct {
	HighlightOpen, HighlightClose string
	ErrorOpen, ErrorClose         string
	WarnOpen, WarnClose           string
	DebugOpen, DebugClose         string
}

// BracketMarkers marks runs as [hl]..[/hl], [error]..[/error] and so on.
func BracketMarkers() Markers {
	return Markers{
		HighlightOpen: "[hl]", HighlightClose: "[/hl]",
		ErrorOpen: "[error]", ErrorClose: "[/error]",
		WarnOpen: "[warn]", WarnClose: "[/warn]",
		DebugOpen: "[debug]", DebugClose: "[/debug]",
	}
}

func (m Markers) Highlight(text string) string {
	return m.HighlightOpen + text + m.HighlightClose
}

func (m Markers) Severity(sev Severity, text string) string {
	switch sev {
	case SeverityError:
		return m.ErrorOpen + text + m.ErrorClose
	case SeverityWarn:
		return m.WarnOpen + text + m.WarnClose
	case SeverityDebug:
		return m.DebugOpen + text + m.DebugClose
	default:
		return text
	}
}

// Strip removes every marker from s.
func (m Markers) Strip(s string) string {
	var pairs []string
	for _, marker := range []string{
		m.HighlightOpen, m.HighlightClose,
		m.ErrorOpen, m.ErrorClose,
		m.WarnOpen, m.WarnClose,
		m.DebugOpen, m.DebugClose,
	} {
		if marker != "" {
			pairs = append(pairs, marker, "")
		}
	}
	if len(pairs) == 0 {
		return s
	}
	return strings.NewReplacer(pairs...).Replace(s)
}
