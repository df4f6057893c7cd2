// Package format turns log entries into display lines.
//
// A line is "<local time> <raw line>". Occurrences of the search term are
// highlighted (literal, case-insensitive) and the line is styled by severity.
// The Styler decides what highlight and severity look like, so the same
// Formatter drives the themed TUI, colored CLI output and plain markers in
// tests.
package format

import (
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/five82/lokctl/internal/loki"
)

// DefaultLayout is the local time layout used when none is configured.
const DefaultLayout = "2006-01-02 15:04:05.000"

// Severity is the style class of a line.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityDebug
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarn:
		return "warn"
	case SeverityDebug:
		return "debug"
	default:
		return "none"
	}
}

// Styler wraps text runs in display markers.
type Styler interface {
	Highlight(text string) string
	Severity(sev Severity, text string) string
}

// Formatter renders entries. The zero value formats in time.Local with
// DefaultLayout and no styling.
type Formatter struct {
	Styler   Styler
	Layout   string
	Location *time.Location
}

// Classify picks the severity by first match: error, warn, debug.
func Classify(line string) Severity {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "error"):
		return SeverityError
	case strings.Contains(lower, "warn"):
		return SeverityWarn
	case strings.Contains(lower, "debug"):
		return SeverityDebug
	default:
		return SeverityNone
	}
}

// Lines formats every entry with the given search term.
func (f Formatter) Lines(entries []loki.LogEntry, term string) []string {
	if len(entries) == 0 {
		return nil
	}
	matcher := compileTerm(term)
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, f.render(f.Plain(entry), matcher))
	}
	return lines
}

// Line formats a single entry.
func (f Formatter) Line(entry loki.LogEntry, term string) string {
	return f.render(f.Plain(entry), compileTerm(term))
}

// Plain returns the composed line without any styling.
func (f Formatter) Plain(entry loki.LogEntry) string {
	return f.LocalTime(entry.Timestamp) + " " + entry.Line
}

// LocalTime renders an entry timestamp in the formatter's zone and layout.
// Unparseable timestamps are returned unchanged.
func (f Formatter) LocalTime(ts string) string {
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	layout := f.Layout
	if strings.TrimSpace(layout) == "" {
		layout = DefaultLayout
	}
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	return parsed.In(loc).Format(layout)
}

func (f Formatter) render(plain string, matcher *regexp.Regexp) string {
	if f.Styler == nil {
		return plain
	}
	sev := Classify(plain)
	if matcher == nil {
		return f.severity(sev, plain)
	}

	matches := matcher.FindAllStringIndex(plain, -1)
	if len(matches) == 0 {
		return f.severity(sev, plain)
	}

	// Severity is applied per run so it survives the reset that ends each
	// highlighted run.
	var b strings.Builder
	pos := 0
	for _, m := range matches {
		if m[0] > pos {
			b.WriteString(f.severity(sev, plain[pos:m[0]]))
		}
		b.WriteString(f.severity(sev, f.Styler.Highlight(plain[m[0]:m[1]])))
		pos = m[1]
	}
	if pos < len(plain) {
		b.WriteString(f.severity(sev, plain[pos:]))
	}
	return b.String()
}

func (f Formatter) severity(sev Severity, text string) string {
	if sev == SeverityNone {
		return text
	}
	return f.Styler.Severity(sev, text)
}

// compileTerm returns nil for an empty term. The term is quoted so pattern
// characters match literally.
func compileTerm(term string) *regexp.Regexp {
	if term == "" {
		return nil
	}
	return regexp.MustCompile("(?i)" + regexp.QuoteMeta(term))
}

// Strip removes terminal styling from s.
func Strip(s string) string {
	return ansi.Strip(s)
}
