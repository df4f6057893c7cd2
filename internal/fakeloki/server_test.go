package fakeloki

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/five82/lokctl/internal/loki"
)

var testNow = time.Unix(1_715_000_010, 0)

func newTestServer(t *testing.T) (*Server, *loki.Client) {
	t.Helper()
	srv := New(WithClock(func() time.Time { return testNow }))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	c, err := loki.NewClient(ts.URL, loki.WithContextRadius(5), loki.WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return srv, c
}

func pushAt(srv *Server, sec int64, job, line string) {
	srv.Store().Push(Record{Ns: sec * int64(time.Second), Labels: map[string]string{"job": job}, Line: line})
}

func TestServer_InstantQueryReturnsNewestFirst(t *testing.T) {
	t.Parallel()
	srv, c := newTestServer(t)
	pushAt(srv, 1_715_000_000, "api", "first")
	pushAt(srv, 1_715_000_001, "worker", "other job")
	pushAt(srv, 1_715_000_002, "api", "second")
	pushAt(srv, 1_715_000_020, "api", "in the future")

	res, err := c.FetchLogs(context.Background(), `{job="api"}`)
	if err != nil {
		t.Fatalf("FetchLogs returned error: %v", err)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(res.Entries))
	}
	if res.Entries[0].Line != "second" || res.Entries[1].Line != "first" {
		t.Fatalf("lines = [%q %q], want [second first]", res.Entries[0].Line, res.Entries[1].Line)
	}
	if got := res.Entries[0].Timestamp; got != "2024-05-06T12:53:22.000Z" {
		t.Fatalf("Timestamp = %q, want 2024-05-06T12:53:22.000Z", got)
	}
	if got := res.Entries[0].Labels["job"]; got != "api" {
		t.Fatalf("labels[job] = %q, want api", got)
	}
}

func TestServer_ContextWindowIsInclusive(t *testing.T) {
	t.Parallel()
	srv, c := newTestServer(t)
	for _, sec := range []int64{-6, -5, 0, 5, 6} {
		pushAt(srv, 1_715_000_000+sec, "api", "line")
	}

	center := int64(1_715_000_000) * int64(time.Second)
	res, err := c.FetchContext(context.Background(), `{job="api"}`, center)
	if err != nil {
		t.Fatalf("FetchContext returned error: %v", err)
	}
	if len(res.Entries) != 3 {
		t.Fatalf("entries = %d, want 3 inside [T-5s, T+5s]", len(res.Entries))
	}
}

func TestServer_PushThenQuery(t *testing.T) {
	t.Parallel()
	srv, c := newTestServer(t)

	if err := c.WriteLog(context.Background(), "lokctl", "info", "hello from test"); err != nil {
		t.Fatalf("WriteLog returned error: %v", err)
	}
	if srv.Store().Len() != 1 {
		t.Fatalf("store Len = %d, want 1", srv.Store().Len())
	}
	res, err := c.FetchLogs(context.Background(), `{job="lokctl", level="info"}`)
	if err != nil {
		t.Fatalf("FetchLogs returned error: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].Line != "hello from test" {
		t.Fatalf("entries = %+v, want the pushed line", res.Entries)
	}
}

func TestServer_BadQueryIsBackendError(t *testing.T) {
	t.Parallel()
	_, c := newTestServer(t)

	_, err := c.FetchLogs(context.Background(), `{job=api}`)
	var backendErr *loki.BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("error = %v, want *loki.BackendError", err)
	}
	if backendErr.Status != http.StatusBadRequest {
		t.Fatalf("Status = %d, want %d", backendErr.Status, http.StatusBadRequest)
	}
}

func TestServer_TailSendsBacklogThenLive(t *testing.T) {
	t.Parallel()
	srv, c := newTestServer(t)
	pushAt(srv, 1_715_000_000, "api", "too old")
	pushAt(srv, 1_715_000_005, "api", "backlog")
	pushAt(srv, 1_715_000_006, "worker", "not matched")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events := c.Tail(ctx, `{job="api"}`, time.Unix(1_715_000_003, 0))

	ev := <-events
	if ev.Err != nil {
		t.Fatalf("tail event error: %v", ev.Err)
	}
	if len(ev.Entries) != 1 || ev.Entries[0].Line != "backlog" {
		t.Fatalf("backlog entries = %+v, want [backlog]", ev.Entries)
	}

	pushAt(srv, 1_715_000_007, "worker", "still not matched")
	pushAt(srv, 1_715_000_008, "api", "live")

	ev = <-events
	if ev.Err != nil {
		t.Fatalf("tail event error: %v", ev.Err)
	}
	if len(ev.Entries) != 1 || ev.Entries[0].Line != "live" {
		t.Fatalf("live entries = %+v, want [live]", ev.Entries)
	}

	cancel()
	for range events {
	}
}
