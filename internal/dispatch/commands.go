package dispatch

import "github.com/five82/lokctl/internal/loki"

// Command is a user intent produced by the TUI shell.
type Command interface{ command() }

type (
	// SetQuery replaces the query and refreshes. An empty query restores the
	// configured default.
	SetQuery struct{ Query string }
	// Refresh re-runs the current query.
	Refresh struct{}
	// SelectEntry selects a log row and loads its context.
	SelectEntry struct{ Index int }
	// SetSearchTerm changes the highlighted term.
	SetSearchTerm struct{ Term string }
	// SubmitInput handles the search bar: "/term" sets the search term and
	// anything else becomes the query.
	SubmitInput struct{ Text string }
	// WriteEntry pushes a new entry to the backend.
	WriteEntry struct{ Job, Level, Message string }
	// ExportLogs writes the loaded entries to a file.
	ExportLogs struct{}
	// ShowDetail opens the detail view for a log row.
	ShowDetail struct{ Index int }
	ShowHelp   struct{}
	// StartSearch opens the search bar. Prefix seeds the input.
	StartSearch struct{ Prefix string }
	StartWrite  struct{}
	// Back closes the active overlay.
	Back       struct{}
	MoveCursor struct{ Delta int }
	// CursorTo moves the cursor to Index; negative values count from the end.
	CursorTo     struct{ Index int }
	ToggleFocus  struct{}
	ToggleFollow struct{}
	// CopyLine copies the raw line of a log row to the clipboard.
	CopyLine struct{ Index int }
	Quit     struct{}
)

func (SetQuery) command()      {}
func (Refresh) command()       {}
func (SelectEntry) command()   {}
func (SetSearchTerm) command() {}
func (SubmitInput) command()   {}
func (WriteEntry) command()    {}
func (ExportLogs) command()    {}
func (ShowDetail) command()    {}
func (ShowHelp) command()      {}
func (StartSearch) command()   {}
func (StartWrite) command()    {}
func (Back) command()          {}
func (MoveCursor) command()    {}
func (CursorTo) command()      {}
func (ToggleFocus) command()   {}
func (ToggleFollow) command()  {}
func (CopyLine) command()      {}
func (Quit) command()          {}

// Result is a completed backend request delivered back through Bubble Tea.
type Result interface{ result() }

// LogsFetched completes a Refresh.
type LogsFetched struct {
	Gen    uint64
	Query  string
	Result loki.Result
	Err    error
}

// ContextFetched completes a SelectEntry.
type ContextFetched struct {
	Gen    uint64
	Result loki.Result
	Err    error
}

// EntryWritten completes a WriteEntry.
type EntryWritten struct {
	Job string
	Err error
}

// TailReceived carries one follow-mode event. Closed reports that the
// session ended.
type TailReceived struct {
	Gen    uint64
	Event  loki.TailEvent
	Closed bool

	events <-chan loki.TailEvent
}

func (LogsFetched) result()    {}
func (ContextFetched) result() {}
func (EntryWritten) result()   {}
func (TailReceived) result()   {}
