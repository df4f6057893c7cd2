package dispatch

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/five82/lokctl/internal/export"
	"github.com/five82/lokctl/internal/format"
	"github.com/five82/lokctl/internal/loki"
	"github.com/five82/lokctl/internal/state"
)

// Tailer opens a live tail session. *loki.Client implements it.
type Tailer interface {
	Tail(ctx context.Context, query string, since time.Time) <-chan loki.TailEvent
}

// Config holds the dispatcher settings that come from configuration.
type Config struct {
	// DefaultQuery replaces an empty query.
	DefaultQuery string
	// ExportDir receives export files.
	ExportDir string
	// TailLookback is how far back follow mode starts when nothing is loaded.
	TailLookback time.Duration
	// BufferLimit caps the entries kept while following.
	BufferLimit int
}

// Dispatcher applies commands and results to a state.ViewState.
type Dispatcher struct {
	ctx       context.Context
	backend   loki.Backend
	tailer    Tailer
	formatter format.Formatter
	cfg       Config
	log       logrus.FieldLogger
	now       func() time.Time
	exportFn  func(dir string, now time.Time, entries []loki.LogEntry) (string, error)
	copyFn    func(text string) error

	stopTail context.CancelFunc
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithTailer enables follow mode.
func WithTailer(t Tailer) Option {
	return func(d *Dispatcher) { d.tailer = t }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// WithClock overrides the clock used for export names and follow start.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithExporter replaces the export writer.
func WithExporter(fn func(dir string, now time.Time, entries []loki.LogEntry) (string, error)) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.exportFn = fn
		}
	}
}

// WithClipboard replaces the clipboard writer.
func WithClipboard(fn func(text string) error) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.copyFn = fn
		}
	}
}

// New creates a Dispatcher. Backend calls inherit ctx.
func New(ctx context.Context, backend loki.Backend, formatter format.Formatter, cfg Config, opts ...Option) *Dispatcher {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	if cfg.BufferLimit <= 0 {
		cfg.BufferLimit = state.FollowBufferLimit
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = "."
	}
	d := &Dispatcher{
		ctx:       ctx,
		backend:   backend,
		formatter: formatter,
		cfg:       cfg,
		log:       discard,
		now:       time.Now,
		exportFn:  export.Write,
		copyFn:    clipboard.WriteAll,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetFormatter swaps the formatter, e.g. after a theme change. Call Rerender
// afterwards.
func (d *Dispatcher) SetFormatter(f format.Formatter) {
	d.formatter = f
}

// Rerender recomputes the display lines for both panes.
func (d *Dispatcher) Rerender(vs state.ViewState) state.ViewState {
	vs.LogLines = d.formatter.Lines(vs.Logs, vs.SearchTerm)
	vs.ContextLines = d.formatter.Lines(vs.Context, vs.SearchTerm)
	return vs
}

// Close stops any running follow session.
func (d *Dispatcher) Close() {
	d.stopFollow()
}

// Dispatch applies cmd to vs.
func (d *Dispatcher) Dispatch(vs state.ViewState, cmd Command) (state.ViewState, tea.Cmd) {
	switch c := cmd.(type) {
	case SetQuery:
		return d.setQuery(vs, c.Query)
	case Refresh:
		return d.refresh(vs)
	case SelectEntry:
		return d.selectEntry(vs, c.Index)
	case SetSearchTerm:
		vs.SearchTerm = c.Term
		return d.Rerender(vs), nil
	case SubmitInput:
		vs.Mode = state.Viewing
		if term, ok := strings.CutPrefix(c.Text, "/"); ok {
			return d.Dispatch(vs, SetSearchTerm{Term: term})
		}
		return d.setQuery(vs, c.Text)
	case WriteEntry:
		return d.writeEntry(vs, c)
	case ExportLogs:
		return d.exportLogs(vs), nil
	case ShowDetail:
		if c.Index >= 0 && c.Index < len(vs.Logs) {
			vs.DetailIndex = c.Index
			vs.Mode = state.ShowingDetail
		}
		return vs, nil
	case ShowHelp:
		vs.Mode = state.ShowingHelp
		return vs, nil
	case StartSearch:
		vs.Mode = state.Searching
		return vs, nil
	case StartWrite:
		vs.Mode = state.WritingEntry
		vs.FormError = ""
		return vs, nil
	case Back:
		vs.Mode = state.Viewing
		vs.FormError = ""
		return vs, nil
	case MoveCursor:
		vs.MoveCursor(c.Delta)
		return vs, nil
	case CursorTo:
		vs.SetCursor(c.Index)
		return vs, nil
	case ToggleFocus:
		if vs.Focus == state.PaneLogs {
			vs.Focus = state.PaneContext
		} else {
			vs.Focus = state.PaneLogs
		}
		return vs, nil
	case ToggleFollow:
		return d.toggleFollow(vs)
	case CopyLine:
		return d.copyLine(vs, c.Index), nil
	case Quit:
		d.stopFollow()
		return vs, tea.Quit
	}
	return vs, nil
}

// Receive applies a completed request to vs. Results from superseded
// requests leave vs unchanged.
func (d *Dispatcher) Receive(vs state.ViewState, res Result) (state.ViewState, tea.Cmd) {
	switch r := res.(type) {
	case LogsFetched:
		return d.receiveLogs(vs, r), nil
	case ContextFetched:
		return d.receiveContext(vs, r), nil
	case EntryWritten:
		return d.receiveWritten(vs, r)
	case TailReceived:
		return d.receiveTail(vs, r)
	}
	return vs, nil
}

func (d *Dispatcher) setQuery(vs state.ViewState, query string) (state.ViewState, tea.Cmd) {
	query = strings.TrimSpace(query)
	if query == "" {
		query = d.cfg.DefaultQuery
	}
	vs.Query = query

	vs, cmd := d.refresh(vs)
	if !vs.Following {
		return vs, cmd
	}
	// The refresh covers the recent past; the new session only needs what
	// arrives from now on.
	vs, tailCmd := d.startFollow(vs, d.now())
	return vs, tea.Batch(cmd, tailCmd)
}

func (d *Dispatcher) refresh(vs state.ViewState) (state.ViewState, tea.Cmd) {
	gen := vs.Begin(state.TargetLogs)
	query := vs.Query
	vs.Status = state.Status{Kind: state.StatusLoading, Text: "loading " + query}
	d.log.WithFields(logrus.Fields{"query": query, "gen": gen}).Debug("fetching logs")

	return vs, func() tea.Msg {
		res, err := d.backend.FetchLogs(d.ctx, query)
		return LogsFetched{Gen: gen, Query: query, Result: res, Err: err}
	}
}

func (d *Dispatcher) receiveLogs(vs state.ViewState, msg LogsFetched) state.ViewState {
	if !vs.Settle(state.TargetLogs, msg.Gen) {
		d.log.WithFields(logrus.Fields{"target": "logs", "gen": msg.Gen}).Debug("discarding stale response")
		return vs
	}
	if msg.Err != nil {
		d.log.WithError(msg.Err).WithField("query", msg.Query).Warn("query failed")
		vs.Status = errorStatus("query failed", msg.Err)
		return vs
	}

	vs.ReplaceLogs(msg.Result.Entries)
	vs.RecordQuery(msg.Query)
	d.logSkipped("logs", msg.Result.Skipped)
	vs.Status = state.Status{
		Kind: state.StatusSuccess,
		Text: countText(len(msg.Result.Entries), "entry", "entries") + skippedText(len(msg.Result.Skipped)),
	}
	return d.Rerender(vs)
}

func (d *Dispatcher) selectEntry(vs state.ViewState, index int) (state.ViewState, tea.Cmd) {
	if !vs.Select(index) {
		return vs, nil
	}
	entry := vs.Logs[index]
	centerNs, err := loki.TimestampNs(entry.Timestamp)
	if err != nil {
		vs.Invalidate(state.TargetContext)
		vs.Status = errorStatus("context unavailable", err)
		return vs, nil
	}

	gen := vs.Begin(state.TargetContext)
	query := vs.Query
	vs.Status = state.Status{Kind: state.StatusLoading, Text: "loading context around " + entry.Timestamp}
	d.log.WithFields(logrus.Fields{"index": index, "center_ns": centerNs, "gen": gen}).Debug("fetching context")

	return vs, func() tea.Msg {
		res, err := d.backend.FetchContext(d.ctx, query, centerNs)
		return ContextFetched{Gen: gen, Result: res, Err: err}
	}
}

func (d *Dispatcher) receiveContext(vs state.ViewState, msg ContextFetched) state.ViewState {
	if !vs.Settle(state.TargetContext, msg.Gen) {
		d.log.WithFields(logrus.Fields{"target": "context", "gen": msg.Gen}).Debug("discarding stale response")
		return vs
	}
	if msg.Err != nil {
		d.log.WithError(msg.Err).Warn("context query failed")
		vs.Status = errorStatus("context failed", msg.Err)
		return vs
	}
	// The generation is bumped on every selection and invalidated when the
	// selection is cleared, so a current result belongs to the selected
	// entry even if follow trimming has shifted its index.
	if _, ok := vs.Selected(); !ok {
		return vs
	}

	vs.ReplaceContext(msg.Result.Entries)
	d.logSkipped("context", msg.Result.Skipped)
	vs.Status = state.Status{
		Kind: state.StatusSuccess,
		Text: countText(len(msg.Result.Entries), "context entry", "context entries") + skippedText(len(msg.Result.Skipped)),
	}
	return d.Rerender(vs)
}

func (d *Dispatcher) writeEntry(vs state.ViewState, c WriteEntry) (state.ViewState, tea.Cmd) {
	if err := ValidateEntry(c.Job, c.Level, c.Message); err != nil {
		vs.Mode = state.WritingEntry
		vs.FormError = err.Error()
		return vs, nil
	}
	job := strings.TrimSpace(c.Job)
	level := strings.TrimSpace(c.Level)
	message := c.Message

	vs.FormError = ""
	vs.Status = state.Status{Kind: state.StatusLoading, Text: "writing entry"}
	d.log.WithFields(logrus.Fields{"job": job, "level": level}).Debug("writing entry")

	return vs, func() tea.Msg {
		return EntryWritten{Job: job, Err: d.backend.WriteLog(d.ctx, job, level, message)}
	}
}

func (d *Dispatcher) receiveWritten(vs state.ViewState, msg EntryWritten) (state.ViewState, tea.Cmd) {
	if msg.Err != nil {
		d.log.WithError(msg.Err).WithField("job", msg.Job).Warn("write failed")
		vs.FormError = msg.Err.Error()
		vs.Status = errorStatus("write failed", msg.Err)
		return vs, nil
	}

	vs.FormError = ""
	if vs.Mode == state.WritingEntry {
		vs.Mode = state.Viewing
	}
	vs, cmd := d.refresh(vs)
	vs.Status = state.Status{Kind: state.StatusLoading, Text: "entry written, refreshing"}
	return vs, cmd
}

func (d *Dispatcher) exportLogs(vs state.ViewState) state.ViewState {
	path, err := d.exportFn(d.cfg.ExportDir, d.now(), vs.Logs)
	if err != nil {
		d.log.WithError(err).WithField("dir", d.cfg.ExportDir).Warn("export failed")
		vs.Status = errorStatus("export failed", err)
		return vs
	}
	d.log.WithFields(logrus.Fields{"path": path, "entries": len(vs.Logs)}).Info("exported logs")
	vs.Status = state.Status{
		Kind: state.StatusSuccess,
		Text: fmt.Sprintf("exported %s to %s", countText(len(vs.Logs), "entry", "entries"), path),
	}
	return vs
}

func (d *Dispatcher) copyLine(vs state.ViewState, index int) state.ViewState {
	if index < 0 || index >= len(vs.Logs) {
		return vs
	}
	if err := d.copyFn(vs.Logs[index].Line); err != nil {
		vs.Status = errorStatus("copy failed", err)
		return vs
	}
	vs.Status = state.Status{Kind: state.StatusSuccess, Text: "copied line to clipboard"}
	return vs
}

func (d *Dispatcher) toggleFollow(vs state.ViewState) (state.ViewState, tea.Cmd) {
	if vs.Following {
		d.stopFollow()
		vs.Following = false
		vs.Invalidate(state.TargetTail)
		vs.Status = state.Status{Kind: state.StatusInfo, Text: "follow off"}
		return vs, nil
	}
	if d.tailer == nil {
		vs.Status = state.Status{Kind: state.StatusError, Text: "follow is not available"}
		return vs, nil
	}
	vs.Following = true
	return d.startFollow(vs, d.followStart(vs))
}

// followStart resumes just after the newest loaded entry, or TailLookback
// before now when nothing usable is loaded.
func (d *Dispatcher) followStart(vs state.ViewState) time.Time {
	var newest int64
	for _, e := range vs.Logs {
		if ns, err := loki.TimestampNs(e.Timestamp); err == nil && ns > newest {
			newest = ns
		}
	}
	if newest == 0 {
		return d.now().Add(-d.cfg.TailLookback)
	}
	return time.Unix(0, newest).Add(time.Millisecond)
}

func (d *Dispatcher) startFollow(vs state.ViewState, since time.Time) (state.ViewState, tea.Cmd) {
	d.stopFollow()
	ctx, cancel := context.WithCancel(d.ctx)
	d.stopTail = cancel

	gen := vs.Begin(state.TargetTail)
	events := d.tailer.Tail(ctx, vs.Query, since)
	vs.Status = state.Status{Kind: state.StatusLoading, Text: "following " + vs.Query}
	d.log.WithFields(logrus.Fields{"query": vs.Query, "since": since, "gen": gen}).Info("follow started")
	return vs, waitForTail(gen, events)
}

func (d *Dispatcher) stopFollow() {
	if d.stopTail != nil {
		d.stopTail()
		d.stopTail = nil
	}
}

func waitForTail(gen uint64, events <-chan loki.TailEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		return TailReceived{Gen: gen, Event: ev, Closed: !ok, events: events}
	}
}

func (d *Dispatcher) receiveTail(vs state.ViewState, msg TailReceived) (state.ViewState, tea.Cmd) {
	if !vs.IsCurrent(state.TargetTail, msg.Gen) {
		return vs, nil
	}
	if msg.Closed {
		vs.Settle(state.TargetTail, msg.Gen)
		vs.Following = false
		vs.Status = state.Status{Kind: state.StatusInfo, Text: "follow stopped"}
		return vs, nil
	}
	next := waitForTail(msg.Gen, msg.events)

	ev := msg.Event
	if ev.Err != nil {
		d.log.WithError(ev.Err).Warn("tail interrupted")
		vs.Status = errorStatus("follow interrupted, reconnecting", ev.Err)
		return vs, next
	}

	vs.Settle(state.TargetTail, msg.Gen)
	d.logSkipped("tail", ev.Skipped)
	if ev.Dropped > 0 {
		d.log.WithField("dropped", ev.Dropped).Warn("backend dropped tail entries")
	}

	// Format only the new rows; earlier lines are already rendered.
	trimmed := vs.AppendLogs(ev.Entries, d.cfg.BufferLimit)
	lines := d.formatter.Lines(ev.Entries, vs.SearchTerm)
	kept := vs.LogLines[min(trimmed, len(vs.LogLines)):]
	merged := make([]string, 0, len(kept)+len(lines))
	vs.LogLines = append(append(merged, kept...), lines...)

	text := "following: +" + countText(len(ev.Entries), "entry", "entries")
	if ev.Dropped > 0 {
		text += fmt.Sprintf(", %d dropped", ev.Dropped)
	}
	vs.Status = state.Status{Kind: state.StatusInfo, Text: text + skippedText(len(ev.Skipped))}
	return vs, next
}

func (d *Dispatcher) logSkipped(target string, skipped []*loki.ParseError) {
	for _, pe := range skipped {
		d.log.WithFields(logrus.Fields{"target": target, "stream": pe.Stream, "row": pe.Row}).Warn(pe.Reason)
	}
}

func errorStatus(prefix string, err error) state.Status {
	return state.Status{Kind: state.StatusError, Text: prefix + ": " + err.Error()}
}

func countText(n int, singular, plural string) string {
	if n == 1 {
		return "1 " + singular
	}
	return fmt.Sprintf("%d %s", n, plural)
}

func skippedText(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf(" (%d malformed skipped)", n)
}
