package loki

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

const (
	tailBuffer      = 64
	baseTailBackoff = 2 * time.Second
	maxBackoff      = 30 * time.Second
)

// TailEvent is one delivery from a live tail session. Err is set when the
// connection failed; the session reconnects after a backoff.
type TailEvent struct {
	Entries []LogEntry
	Skipped []*ParseError
	Dropped int
	Err     error
}

// Tail streams entries for query at or after since until ctx is cancelled.
// Reconnects resume after the newest entry already delivered. The returned
// channel is closed when the session ends.
func (c *Client) Tail(ctx context.Context, query string, since time.Time) <-chan TailEvent {
	out := make(chan TailEvent, tailBuffer)
	go func() {
		defer close(out)

		startNs := since.UnixNano()
		failures := 0
		for {
			latest, err := c.tailOnce(ctx, query, startNs, out)
			if ctx.Err() != nil {
				return
			}
			if latest >= startNs {
				startNs = latest + 1
				failures = 0
			}
			if err != nil {
				select {
				case out <- TailEvent{Err: err}:
				case <-ctx.Done():
					return
				}
			}

			wait := calculateBackoff(failures, baseTailBackoff)
			failures++
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
	return out
}

// tailOnce runs a single websocket session and returns the newest row
// timestamp delivered, or startNs-1 when nothing arrived.
func (c *Client) tailOnce(ctx context.Context, query string, startNs int64, out chan<- TailEvent) (int64, error) {
	latest := startNs - 1

	values := url.Values{}
	values.Set("query", query)
	values.Set("start", strconv.FormatInt(startNs, 10))
	values.Set("limit", strconv.Itoa(c.limit))
	u := c.endpoint(tailPath, values)
	u.Scheme = websocketScheme(u.Scheme)

	header := http.Header{}
	header.Set("User-Agent", c.userAgent)
	conn, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			defer func() { _ = resp.Body.Close() }()
			return latest, &BackendError{Status: resp.StatusCode, Message: readMessage(resp.Body, u.Path), Err: err}
		}
		return latest, &BackendError{Message: fmt.Sprintf("dial tail: %v", err), Err: err}
	}
	defer func() { _ = conn.Close() }()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var frame tailFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return latest, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, io.EOF) {
				return latest, &BackendError{Message: "tail closed by server", Err: err}
			}
			return latest, &BackendError{Message: fmt.Sprintf("read tail: %v", err), Err: err}
		}

		res := flatten(frame.Streams)
		if res.latest > latest {
			latest = res.latest
		}
		if len(res.Entries) == 0 && len(res.Skipped) == 0 && len(frame.DroppedEntries) == 0 {
			continue
		}
		select {
		case out <- TailEvent{Entries: res.Entries, Skipped: res.Skipped, Dropped: len(frame.DroppedEntries)}:
		case <-ctx.Done():
			return latest, ctx.Err()
		}
	}
}

// calculateBackoff doubles base per consecutive failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for range failures {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}

func websocketScheme(scheme string) string {
	if scheme == "https" {
		return "wss"
	}
	return "ws"
}
