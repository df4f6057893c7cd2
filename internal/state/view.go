package state

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/five82/lokctl/internal/loki"
)

// PanelMode is the active interaction mode.
type PanelMode int

const (
	Viewing PanelMode = iota
	Searching
	WritingEntry
	ShowingDetail
	ShowingHelp
)

func (m PanelMode) String() string {
	switch m {
	case Searching:
		return "searching"
	case WritingEntry:
		return "writing"
	case ShowingDetail:
		return "detail"
	case ShowingHelp:
		return "help"
	default:
		return "viewing"
	}
}

// Target identifies an independent fetch stream.
type Target int

const (
	TargetLogs Target = iota
	TargetContext
	TargetTail
	targetCount
)

func (t Target) String() string {
	switch t {
	case TargetContext:
		return "context"
	case TargetTail:
		return "tail"
	default:
		return "logs"
	}
}

// Pane is the focused list.
type Pane int

const (
	PaneLogs Pane = iota
	PaneContext
)

// StatusKind classifies the status line.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusLoading
	StatusSuccess
	StatusError
)

// Status is the one-line message shown under the panes.
type Status struct {
	Kind StatusKind
	Text string
}

const (
	// FollowBufferLimit caps Logs while following.
	FollowBufferLimit = 5000

	historyLimit = 50
)

// ViewState is the complete state behind the TUI.
type ViewState struct {
	Query      string
	Logs       []loki.LogEntry
	Context    []loki.LogEntry
	SearchTerm string
	Mode       PanelMode

	// Rendered lines for Logs and Context.
	LogLines     []string
	ContextLines []string

	Cursor      int
	Focus       Pane
	DetailIndex int
	Following   bool
	Status      Status
	FormError   string
	History     []string

	selected    int
	hasSelected bool
	generations [targetCount]uint64
	loading     [targetCount]bool
}

// New returns the initial state for query.
func New(query string) ViewState {
	return ViewState{Query: query, Mode: Viewing}
}

// Selected returns the selected index, if any.
func (v ViewState) Selected() (int, bool) {
	return v.selected, v.hasSelected
}

// SelectedEntry returns the selected entry, if any.
func (v ViewState) SelectedEntry() (loki.LogEntry, bool) {
	if !v.hasSelected {
		return loki.LogEntry{}, false
	}
	return v.Logs[v.selected], true
}

// Generation returns the live counter for t.
func (v ViewState) Generation(t Target) uint64 {
	return v.generations[t]
}

// Loading reports whether a fetch for t is outstanding.
func (v ViewState) Loading(t Target) bool {
	return v.loading[t]
}

// IsCurrent reports whether gen is still the live generation for t.
func (v ViewState) IsCurrent(t Target, gen uint64) bool {
	return v.generations[t] == gen
}

// Begin starts a fetch for t and returns its generation.
func (v *ViewState) Begin(t Target) uint64 {
	v.generations[t]++
	v.loading[t] = true
	return v.generations[t]
}

// Settle marks the fetch gen for t as finished. It returns false, and
// changes nothing, when gen is stale.
func (v *ViewState) Settle(t Target, gen uint64) bool {
	if !v.IsCurrent(t, gen) {
		return false
	}
	v.loading[t] = false
	return true
}

// Invalidate drops any outstanding fetch for t.
func (v *ViewState) Invalidate(t Target) {
	v.generations[t]++
	v.loading[t] = false
}

// ReplaceLogs installs a fresh result set.
func (v *ViewState) ReplaceLogs(entries []loki.LogEntry) {
	v.Logs = entries
	v.ClearSelection()
	v.Cursor = clamp(v.Cursor, len(v.Logs))
	if v.Mode == ShowingDetail {
		v.Mode = Viewing
	}
}

// Select marks entry i as selected and drops the previous context.
func (v *ViewState) Select(i int) bool {
	if i < 0 || i >= len(v.Logs) {
		return false
	}
	v.selected = i
	v.hasSelected = true
	v.Context = nil
	v.ContextLines = nil
	return true
}

// ClearSelection removes the selection together with its context.
func (v *ViewState) ClearSelection() {
	v.selected = 0
	v.hasSelected = false
	v.Context = nil
	v.ContextLines = nil
	v.Invalidate(TargetContext)
}

// ReplaceContext installs the context for the current selection.
func (v *ViewState) ReplaceContext(entries []loki.LogEntry) bool {
	if !v.hasSelected {
		return false
	}
	v.Context = entries
	return true
}

// AppendLogs adds followed entries, trimming the oldest beyond limit. It
// returns how many entries were trimmed.
func (v *ViewState) AppendLogs(entries []loki.LogEntry, limit int) int {
	if len(entries) == 0 {
		return 0
	}
	merged := make([]loki.LogEntry, 0, len(v.Logs)+len(entries))
	merged = append(merged, v.Logs...)
	merged = append(merged, entries...)

	trimmed := 0
	if limit > 0 && len(merged) > limit {
		trimmed = len(merged) - limit
		merged = merged[trimmed:]
	}
	v.Logs = merged

	if trimmed > 0 {
		v.Cursor = max(v.Cursor-trimmed, 0)
		v.DetailIndex -= trimmed
		if v.DetailIndex < 0 {
			v.DetailIndex = 0
			if v.Mode == ShowingDetail {
				v.Mode = Viewing
			}
		}
		if v.hasSelected {
			if v.selected < trimmed {
				v.ClearSelection()
			} else {
				v.selected -= trimmed
			}
		}
	}
	return trimmed
}

// MoveCursor moves the cursor by delta rows, clamped to Logs.
func (v *ViewState) MoveCursor(delta int) {
	v.Cursor = clamp(v.Cursor+delta, len(v.Logs))
}

// SetCursor moves the cursor to i, clamped to Logs. Negative i counts from
// the end.
func (v *ViewState) SetCursor(i int) {
	if i < 0 {
		i = len(v.Logs) + i
	}
	v.Cursor = clamp(i, len(v.Logs))
}

// RecordQuery remembers q for suggestions, most recent first.
func (v *ViewState) RecordQuery(q string) {
	q = strings.TrimSpace(q)
	if q == "" {
		return
	}
	history := make([]string, 0, len(v.History)+1)
	history = append(history, q)
	for _, h := range v.History {
		if h != q {
			history = append(history, h)
		}
	}
	if len(history) > historyLimit {
		history = history[:historyLimit]
	}
	v.History = history
}

// Suggest returns up to limit history entries that fuzzily match input.
func (v ViewState) Suggest(input string, limit int) []string {
	if limit <= 0 || len(v.History) == 0 {
		return nil
	}
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "/") {
		return nil
	}
	ranks := fuzzy.RankFindNormalizedFold(input, v.History)
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})
	out := make([]string, 0, min(limit, len(ranks)))
	for _, r := range ranks {
		if r.Target == input {
			continue
		}
		out = append(out, r.Target)
		if len(out) == limit {
			break
		}
	}
	return out
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
