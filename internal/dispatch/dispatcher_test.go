package dispatch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lokctl/internal/export"
	"github.com/five82/lokctl/internal/format"
	"github.com/five82/lokctl/internal/loki"
	"github.com/five82/lokctl/internal/state"
)

type fakeBackend struct {
	mu       sync.Mutex
	logs     []loki.LogEntry
	logsErr  error
	queries  []string
	context  map[int64][]loki.LogEntry
	centers  []int64
	writes   []WriteEntry
	writeErr error
}

func (f *fakeBackend) FetchLogs(_ context.Context, query string) (loki.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.logsErr != nil {
		return loki.Result{}, f.logsErr
	}
	return loki.Result{Entries: f.logs}, nil
}

func (f *fakeBackend) FetchContext(_ context.Context, _ string, centerNs int64) (loki.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.centers = append(f.centers, centerNs)
	return loki.Result{Entries: f.context[centerNs]}, nil
}

func (f *fakeBackend) WriteLog(_ context.Context, job, level, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, WriteEntry{Job: job, Level: level, Message: message})
	return f.writeErr
}

func testFormatter() format.Formatter {
	return format.Formatter{Styler: format.BracketMarkers(), Layout: "15:04:05", Location: time.UTC}
}

func newTestDispatcher(b loki.Backend, opts ...Option) *Dispatcher {
	cfg := Config{DefaultQuery: `{job="varlogs"}`, TailLookback: 10 * time.Minute}
	return New(context.Background(), b, testFormatter(), cfg, opts...)
}

func result(t *testing.T, cmd tea.Cmd) Result {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a command, got nil")
	}
	msg := cmd()
	res, ok := msg.(Result)
	if !ok {
		t.Fatalf("command produced %T, want a dispatch result", msg)
	}
	return res
}

var threeEntries = []loki.LogEntry{
	{Timestamp: "2024-05-06T12:53:19.000Z", Line: "service started"},
	{Timestamp: "2024-05-06T12:53:20.123Z", Line: "ERROR: upstream timeout"},
	{Timestamp: "2024-05-06T12:53:21.000Z", Line: "request ok"},
}

func loaded(t *testing.T, d *Dispatcher, query string) state.ViewState {
	t.Helper()
	vs, cmd := d.Dispatch(state.New(""), SetQuery{Query: query})
	vs, _ = d.Receive(vs, result(t, cmd))
	return vs
}

func TestSelectEntry_LastSelectionWins(t *testing.T) {
	ns0, _ := loki.TimestampNs(threeEntries[0].Timestamp)
	ns1, _ := loki.TimestampNs(threeEntries[1].Timestamp)
	backend := &fakeBackend{
		logs: threeEntries,
		context: map[int64][]loki.LogEntry{
			ns0: {{Timestamp: threeEntries[0].Timestamp, Line: "around first"}},
			ns1: {{Timestamp: threeEntries[1].Timestamp, Line: "around second"}},
		},
	}

	for _, order := range []string{"newest first", "oldest first"} {
		t.Run(order, func(t *testing.T) {
			d := newTestDispatcher(backend)
			vs := loaded(t, d, "q")

			vs, first := d.Dispatch(vs, SelectEntry{Index: 0})
			vs, second := d.Dispatch(vs, SelectEntry{Index: 1})
			firstRes, secondRes := result(t, first), result(t, second)

			if order == "newest first" {
				vs, _ = d.Receive(vs, secondRes)
				vs, _ = d.Receive(vs, firstRes)
			} else {
				vs, _ = d.Receive(vs, firstRes)
				vs, _ = d.Receive(vs, secondRes)
			}

			if idx, ok := vs.Selected(); !ok || idx != 1 {
				t.Fatalf("Selected = %d,%v, want 1,true", idx, ok)
			}
			if len(vs.Context) != 1 || vs.Context[0].Line != "around second" {
				t.Fatalf("Context = %#v, want context of entry 1", vs.Context)
			}
			if vs.Loading(state.TargetContext) {
				t.Fatalf("context still loading after current result arrived")
			}
		})
	}
}

func TestRefresh_StaleResponseDiscarded(t *testing.T) {
	backend := &fakeBackend{logs: threeEntries}
	d := newTestDispatcher(backend)
	vs := state.New("q")

	vs, older := d.Dispatch(vs, Refresh{})
	olderRes := result(t, older)
	backend.logs = threeEntries[:1]
	vs, newer := d.Dispatch(vs, Refresh{})

	vs, _ = d.Receive(vs, result(t, newer))
	vs, _ = d.Receive(vs, olderRes)
	if len(vs.Logs) != 1 {
		t.Fatalf("len(Logs) = %d, want 1 from the newer refresh", len(vs.Logs))
	}
}

func TestQuerySelectAndHighlight_AgainstHTTPBackend(t *testing.T) {
	var (
		mu        sync.Mutex
		rangeArgs map[string]string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/loki/api/v1/query":
			_, _ = w.Write([]byte(`{"status":"success","data":{"resultType":"streams","result":[{"stream":{"job":"api"},"values":[
				["1715000000000000000","service started"],
				["1715000000123000000","ERROR: upstream timeout"],
				["1715000001000000000","request ok"]]}]}}`))
		case "/loki/api/v1/query_range":
			q := r.URL.Query()
			mu.Lock()
			rangeArgs = map[string]string{"query": q.Get("query"), "start": q.Get("start"), "end": q.Get("end")}
			mu.Unlock()
			_, _ = w.Write([]byte(`{"status":"success","data":{"resultType":"streams","result":[{"stream":{"job":"api"},"values":[
				["1715000000123000000","ERROR: upstream timeout"]]}]}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	client, err := loki.NewClient(server.URL, loki.WithContextRadius(5))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	d := newTestDispatcher(client)

	vs := loaded(t, d, `{job="api"}`)
	if len(vs.Logs) != 3 {
		t.Fatalf("len(Logs) = %d, want 3", len(vs.Logs))
	}

	vs, cmd := d.Dispatch(vs, SelectEntry{Index: 1})
	vs, _ = d.Receive(vs, result(t, cmd))

	mu.Lock()
	got := rangeArgs
	mu.Unlock()
	if got["query"] != `{job="api"}` {
		t.Fatalf("context query = %q, want {job=\"api\"}", got["query"])
	}
	if got["start"] != "1714999995123000000" || got["end"] != "1715000005123000000" {
		t.Fatalf("context window = [%s, %s], want [1714999995123000000, 1715000005123000000]", got["start"], got["end"])
	}

	vs, _ = d.Dispatch(vs, SetSearchTerm{Term: "timeout"})
	if len(vs.ContextLines) != 1 {
		t.Fatalf("len(ContextLines) = %d, want 1", len(vs.ContextLines))
	}
	line := vs.ContextLines[0]
	if !strings.HasPrefix(line, "[error]") || !strings.Contains(line, "[hl]timeout[/hl]") {
		t.Fatalf("context line = %q, want error style with highlighted term", line)
	}
	if !strings.Contains(vs.LogLines[1], "[hl]timeout[/hl]") {
		t.Fatalf("log line = %q, want highlighted term", vs.LogLines[1])
	}
}

func TestSubmitInput(t *testing.T) {
	backend := &fakeBackend{logs: threeEntries}
	d := newTestDispatcher(backend)

	vs := state.New(`{job="api"}`)
	vs.Mode = state.Searching
	vs, cmd := d.Dispatch(vs, SubmitInput{Text: "/timeout"})
	if cmd != nil {
		t.Fatalf("search term submission issued a request")
	}
	if vs.SearchTerm != "timeout" || vs.Query != `{job="api"}` {
		t.Fatalf("SearchTerm=%q Query=%q, want timeout and unchanged query", vs.SearchTerm, vs.Query)
	}
	if vs.Mode != state.Viewing {
		t.Fatalf("Mode = %v, want viewing", vs.Mode)
	}

	vs, cmd = d.Dispatch(vs, SubmitInput{Text: "   "})
	if vs.Query != `{job="varlogs"}` {
		t.Fatalf("Query = %q, want default query", vs.Query)
	}
	_ = result(t, cmd)
	if backend.queries[len(backend.queries)-1] != `{job="varlogs"}` {
		t.Fatalf("fetched %q, want default query", backend.queries[len(backend.queries)-1])
	}
}

func TestRefresh_ErrorKeepsPreviousLogs(t *testing.T) {
	backend := &fakeBackend{logs: threeEntries}
	d := newTestDispatcher(backend)
	vs := loaded(t, d, "q")

	backend.logsErr = &loki.BackendError{Status: http.StatusBadRequest, Message: "parse error"}
	vs, cmd := d.Dispatch(vs, Refresh{})
	vs, _ = d.Receive(vs, result(t, cmd))

	if len(vs.Logs) != 3 {
		t.Fatalf("len(Logs) = %d, want previous 3", len(vs.Logs))
	}
	if vs.Status.Kind != state.StatusError || !strings.Contains(vs.Status.Text, "parse error") {
		t.Fatalf("Status = %+v, want error mentioning backend message", vs.Status)
	}
}

func TestWriteEntry_ValidationStaysInForm(t *testing.T) {
	backend := &fakeBackend{}
	d := newTestDispatcher(backend)
	vs, _ := d.Dispatch(state.New("q"), StartWrite{})

	vs, cmd := d.Dispatch(vs, WriteEntry{Job: "api", Level: " ", Message: "hello"})
	if cmd != nil {
		t.Fatalf("invalid entry issued a request")
	}
	if vs.Mode != state.WritingEntry {
		t.Fatalf("Mode = %v, want writing", vs.Mode)
	}
	if vs.FormError != "level is required" {
		t.Fatalf("FormError = %q, want %q", vs.FormError, "level is required")
	}
	if len(backend.writes) != 0 {
		t.Fatalf("backend saw %d writes, want 0", len(backend.writes))
	}

	var verr *ValidationError
	if err := ValidateEntry("", "", ""); !errors.As(err, &verr) || verr.Field != "job" {
		t.Fatalf("ValidateEntry = %v, want job ValidationError", err)
	}
}

func TestWriteEntry_SuccessRefreshes(t *testing.T) {
	backend := &fakeBackend{logs: threeEntries}
	d := newTestDispatcher(backend)
	vs, _ := d.Dispatch(state.New("q"), StartWrite{})

	vs, cmd := d.Dispatch(vs, WriteEntry{Job: " api ", Level: "info", Message: "hello"})
	vs, cmd = d.Receive(vs, result(t, cmd))
	if vs.Mode != state.Viewing {
		t.Fatalf("Mode = %v, want viewing", vs.Mode)
	}
	if len(backend.writes) != 1 || backend.writes[0].Job != "api" {
		t.Fatalf("writes = %#v, want one trimmed write", backend.writes)
	}

	vs, _ = d.Receive(vs, result(t, cmd))
	if len(vs.Logs) != 3 {
		t.Fatalf("len(Logs) = %d, want refreshed 3", len(vs.Logs))
	}
}

func TestWriteEntry_FailureKeepsForm(t *testing.T) {
	backend := &fakeBackend{writeErr: &loki.BackendError{Message: "backend unreachable"}}
	d := newTestDispatcher(backend)
	vs, _ := d.Dispatch(state.New("q"), StartWrite{})

	vs, cmd := d.Dispatch(vs, WriteEntry{Job: "api", Level: "info", Message: "hello"})
	vs, next := d.Receive(vs, result(t, cmd))
	if next != nil {
		t.Fatalf("failed write triggered a refresh")
	}
	if vs.Mode != state.WritingEntry {
		t.Fatalf("Mode = %v, want writing", vs.Mode)
	}
	if vs.FormError == "" || vs.Status.Kind != state.StatusError {
		t.Fatalf("FormError=%q Status=%+v, want error surfaced", vs.FormError, vs.Status)
	}
}

func TestExportLogs_WritesFile(t *testing.T) {
	dir := t.TempDir()
	backend := &fakeBackend{logs: threeEntries}
	d := New(context.Background(), backend, testFormatter(), Config{ExportDir: dir},
		WithClock(func() time.Time { return time.UnixMilli(1715000000123) }))
	vs := loaded(t, d, "q")

	vs, _ = d.Dispatch(vs, ExportLogs{})
	if vs.Status.Kind != state.StatusSuccess {
		t.Fatalf("Status = %+v, want success", vs.Status)
	}
	path := filepath.Join(dir, "lokctl-logs-1715000000123.log")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(data) != export.Render(threeEntries) {
		t.Fatalf("export = %q, want %q", data, export.Render(threeEntries))
	}
	if !strings.Contains(vs.Status.Text, path) {
		t.Fatalf("Status = %q, want path %q", vs.Status.Text, path)
	}
}

func TestExportLogs_FailureReported(t *testing.T) {
	d := newTestDispatcher(&fakeBackend{}, WithExporter(func(string, time.Time, []loki.LogEntry) (string, error) {
		return "", errors.New("disk full")
	}))
	vs, _ := d.Dispatch(state.New("q"), ExportLogs{})
	if vs.Status.Kind != state.StatusError || !strings.Contains(vs.Status.Text, "disk full") {
		t.Fatalf("Status = %+v, want export error", vs.Status)
	}
}

func TestModesAndCursor(t *testing.T) {
	d := newTestDispatcher(&fakeBackend{logs: threeEntries})
	vs := loaded(t, d, "q")

	vs, _ = d.Dispatch(vs, ShowDetail{Index: 2})
	if vs.Mode != state.ShowingDetail || vs.DetailIndex != 2 {
		t.Fatalf("Mode=%v DetailIndex=%d, want detail of 2", vs.Mode, vs.DetailIndex)
	}
	vs, _ = d.Dispatch(vs, Back{})
	vs, _ = d.Dispatch(vs, ShowDetail{Index: 9})
	if vs.Mode != state.Viewing {
		t.Fatalf("ShowDetail out of range changed mode to %v", vs.Mode)
	}

	vs, _ = d.Dispatch(vs, CursorTo{Index: -1})
	if vs.Cursor != 2 {
		t.Fatalf("Cursor = %d, want 2", vs.Cursor)
	}
	vs, _ = d.Dispatch(vs, MoveCursor{Delta: -1})
	if vs.Cursor != 1 {
		t.Fatalf("Cursor = %d, want 1", vs.Cursor)
	}
	vs, _ = d.Dispatch(vs, ToggleFocus{})
	if vs.Focus != state.PaneContext {
		t.Fatalf("Focus = %v, want context pane", vs.Focus)
	}
	if _, cmd := d.Dispatch(vs, Quit{}); cmd == nil {
		t.Fatalf("Quit returned no command")
	}
}

func TestCopyLine(t *testing.T) {
	var copied string
	d := newTestDispatcher(&fakeBackend{logs: threeEntries}, WithClipboard(func(s string) error {
		copied = s
		return nil
	}))
	vs := loaded(t, d, "q")

	vs, _ = d.Dispatch(vs, CopyLine{Index: 1})
	if copied != "ERROR: upstream timeout" {
		t.Fatalf("copied %q, want raw line", copied)
	}
	if vs.Status.Kind != state.StatusSuccess {
		t.Fatalf("Status = %+v, want success", vs.Status)
	}
}

type fakeTailer struct {
	events chan loki.TailEvent
	query  string
	since  time.Time
	ctx    context.Context
}

func (f *fakeTailer) Tail(ctx context.Context, query string, since time.Time) <-chan loki.TailEvent {
	f.ctx, f.query, f.since = ctx, query, since
	return f.events
}

func TestToggleFollow_AppendsAndTrims(t *testing.T) {
	tailer := &fakeTailer{events: make(chan loki.TailEvent, 2)}
	backend := &fakeBackend{logs: threeEntries}
	d := New(context.Background(), backend, testFormatter(), Config{BufferLimit: 4}, WithTailer(tailer))
	vs := loaded(t, d, `{job="api"}`)

	vs, cmd := d.Dispatch(vs, ToggleFollow{})
	if !vs.Following {
		t.Fatalf("Following = false after toggle")
	}
	if want := time.Unix(0, 1715000001000000000).Add(time.Millisecond); !tailer.since.Equal(want) {
		t.Fatalf("since = %v, want %v", tailer.since, want)
	}

	tailer.events <- loki.TailEvent{Entries: []loki.LogEntry{
		{Timestamp: "2024-05-06T12:53:22.000Z", Line: "live one"},
		{Timestamp: "2024-05-06T12:53:23.000Z", Line: "live two"},
	}}
	vs, cmd = d.Receive(vs, result(t, cmd))
	if len(vs.Logs) != 4 || vs.Logs[3].Line != "live two" {
		t.Fatalf("Logs = %#v, want trimmed to 4 ending with live two", vs.Logs)
	}
	if len(vs.LogLines) != 4 || vs.LogLines[0] != "[error]12:53:20 ERROR: upstream timeout[/error]" {
		t.Fatalf("LogLines = %q, want 4 lines starting with the error entry", vs.LogLines)
	}
	if vs.LogLines[3] != "12:53:23 live two" {
		t.Fatalf("last line = %q, want %q", vs.LogLines[3], "12:53:23 live two")
	}

	vs, _ = d.Dispatch(vs, ToggleFollow{})
	if vs.Following {
		t.Fatalf("Following = true after second toggle")
	}
	if tailer.ctx.Err() == nil {
		t.Fatalf("tail context not cancelled")
	}

	// A late event from the stopped session is ignored.
	tailer.events <- loki.TailEvent{Entries: []loki.LogEntry{{Timestamp: "2024-05-06T12:53:24.000Z", Line: "late"}}}
	after, next := d.Receive(vs, result(t, cmd))
	if next != nil || len(after.Logs) != 4 {
		t.Fatalf("stale tail event applied: %d logs, next=%v", len(after.Logs), next != nil)
	}
}

func TestSelectEntry_ContextSurvivesFollowTrim(t *testing.T) {
	tailer := &fakeTailer{events: make(chan loki.TailEvent, 1)}
	backend := &fakeBackend{
		logs: threeEntries,
		context: map[int64][]loki.LogEntry{
			1715000000123000000: {{Timestamp: "2024-05-06T12:53:20.123Z", Line: "ERROR: upstream timeout"}},
		},
	}
	d := New(context.Background(), backend, testFormatter(), Config{BufferLimit: 3}, WithTailer(tailer))
	vs := loaded(t, d, `{job="api"}`)

	vs, tailCmd := d.Dispatch(vs, ToggleFollow{})
	vs, ctxCmd := d.Dispatch(vs, SelectEntry{Index: 1})

	tailer.events <- loki.TailEvent{Entries: []loki.LogEntry{{Timestamp: "2024-05-06T12:53:22.000Z", Line: "live one"}}}
	vs, _ = d.Receive(vs, result(t, tailCmd))

	idx, ok := vs.Selected()
	if !ok || idx != 0 {
		t.Fatalf("Selected() = %d, %v, want 0, true after trim", idx, ok)
	}

	vs, _ = d.Receive(vs, result(t, ctxCmd))
	if len(vs.Context) != 1 || vs.Context[0].Line != "ERROR: upstream timeout" {
		t.Fatalf("Context = %#v, want the selected entry's context", vs.Context)
	}
	if vs.Loading(state.TargetContext) {
		t.Fatalf("context still loading after its result arrived")
	}
}

func TestToggleFollow_Unavailable(t *testing.T) {
	d := newTestDispatcher(&fakeBackend{})
	vs, cmd := d.Dispatch(state.New("q"), ToggleFollow{})
	if cmd != nil || vs.Following {
		t.Fatalf("follow started without a tailer")
	}
	if vs.Status.Kind != state.StatusError {
		t.Fatalf("Status = %+v, want error", vs.Status)
	}
}

func TestTailClosedStopsFollowing(t *testing.T) {
	tailer := &fakeTailer{events: make(chan loki.TailEvent)}
	d := newTestDispatcher(&fakeBackend{}, WithTailer(tailer))
	vs, cmd := d.Dispatch(state.New("q"), ToggleFollow{})
	close(tailer.events)

	vs, next := d.Receive(vs, result(t, cmd))
	if vs.Following || next != nil {
		t.Fatalf("Following=%v next=%v, want stopped", vs.Following, next != nil)
	}
}
