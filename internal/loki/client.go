package loki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Backend defines the operations lokctl issues against the log backend.
// This interface is implemented by *Client and can be used for testing.
type Backend interface {
	FetchLogs(ctx context.Context, query string) (Result, error)
	FetchContext(ctx context.Context, query string, centerNs int64) (Result, error)
	WriteLog(ctx context.Context, job, level, message string) error
}

// Ensure Client implements Backend at compile time.
var _ Backend = (*Client)(nil)

// Client talks to the Loki HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	dialer    *websocket.Dialer
	userAgent string
	limit     int
	radius    int64
	now       func() time.Time
}

const (
	defaultBaseURL   = "http://localhost:3100"
	defaultUserAgent = "lokctl/0.1"
	defaultLimit     = 200
	defaultRadius    = 5
	maxErrorBody     = 4 << 10

	queryPath      = "/loki/api/v1/query"
	queryRangePath = "/loki/api/v1/query_range"
	pushPath       = "/loki/api/v1/push"
	tailPath       = "/loki/api/v1/tail"
)

// Option customises a Client.
type Option func(*Client)

// WithLimit sets the result limit sent with every query.
func WithLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithContextRadius sets the context window radius in seconds.
func WithContextRadius(seconds int64) Option {
	return func(c *Client) {
		if seconds >= 0 {
			c.radius = seconds
		}
	}
}

// WithTimeout bounds every HTTP request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
		c.dialer.HandshakeTimeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithClock overrides the clock used for push and tail timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds a Client for the given base URL, e.g. "localhost:3100".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{},
		dialer:    &websocket.Dialer{Proxy: http.ProxyFromEnvironment},
		userAgent: defaultUserAgent,
		limit:     defaultLimit,
		radius:    defaultRadius,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalised backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Limit returns the configured result limit.
func (c *Client) Limit() int {
	return c.limit
}

// ContextRadius returns the context window radius in seconds.
func (c *Client) ContextRadius() int64 {
	return c.radius
}

// FetchLogs runs an instant query.
func (c *Client) FetchLogs(ctx context.Context, query string) (Result, error) {
	if c == nil {
		return Result{}, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	values.Set("query", query)
	values.Set("limit", strconv.Itoa(c.limit))
	return c.query(ctx, c.endpoint(queryPath, values))
}

// FetchContext runs a range query over the context window around centerNs.
func (c *Client) FetchContext(ctx context.Context, query string, centerNs int64) (Result, error) {
	if c == nil {
		return Result{}, fmt.Errorf("client is nil")
	}
	start, end, err := ContextWindow(centerNs, c.radius)
	if err != nil {
		return Result{}, err
	}
	values := url.Values{}
	values.Set("query", query)
	values.Set("start", strconv.FormatInt(start, 10))
	values.Set("end", strconv.FormatInt(end, 10))
	values.Set("limit", strconv.Itoa(c.limit))
	return c.query(ctx, c.endpoint(queryRangePath, values))
}

// WriteLog pushes one entry labelled with job and level.
func (c *Client) WriteLog(ctx context.Context, job, level, message string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	ts := strconv.FormatInt(c.now().UnixNano(), 10)
	body, err := json.Marshal(pushRequest{Streams: []pushStream{{
		Stream: map[string]string{"job": job, "level": level},
		Values: [][2]string{{ts, message}},
	}}})
	if err != nil {
		return fmt.Errorf("encode push: %w", err)
	}
	return c.doURL(ctx, http.MethodPost, c.endpoint(pushPath, nil), body, nil)
}

func (c *Client) query(ctx context.Context, u *url.URL) (Result, error) {
	var payload queryResponse
	if err := c.doURL(ctx, http.MethodGet, u, nil, &payload); err != nil {
		return Result{}, err
	}
	if rt := payload.Data.ResultType; rt != "" && rt != resultTypeStreams {
		return Result{}, fmt.Errorf("unsupported result type %q (log queries only)", rt)
	}
	return flatten(payload.Data.Result), nil
}

func (c *Client) endpoint(path string, values url.Values) *url.URL {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if values != nil {
		u.RawQuery = values.Encode()
	}
	return &u
}

func (c *Client) doURL(ctx context.Context, method string, u *url.URL, body []byte, dest any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &BackendError{Message: fmt.Sprintf("execute request: %v", err), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &BackendError{Status: resp.StatusCode, Message: readMessage(resp.Body, u.Path)}
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &BackendError{Status: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err), Err: err}
	}
	return nil
}

func readMessage(r io.Reader, path string) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		return path + " failed"
	}
	return msg
}

// flatten turns label-grouped streams into entries in response order.
func flatten(streams []stream) Result {
	var res Result
	for si, s := range streams {
		for ri, raw := range s.Values {
			entry, ns, err := parseRow(s.Stream, raw)
			if err != nil {
				res.Skipped = append(res.Skipped, &ParseError{Stream: si, Row: ri, Reason: err.Error()})
				continue
			}
			res.Entries = append(res.Entries, entry)
			if ns > res.latest {
				res.latest = ns
			}
		}
	}
	return res
}

// parseRow accepts [ts, line] and Loki 3's [ts, line, metadata].
func parseRow(labels map[string]string, raw json.RawMessage) (LogEntry, int64, error) {
	var fields []json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return LogEntry{}, 0, fmt.Errorf("row is not an array")
	}
	if len(fields) < 2 {
		return LogEntry{}, 0, fmt.Errorf("row has %d fields, want 2", len(fields))
	}
	var ts, line string
	if err := json.Unmarshal(fields[0], &ts); err != nil {
		return LogEntry{}, 0, fmt.Errorf("timestamp is not a string")
	}
	if err := json.Unmarshal(fields[1], &line); err != nil {
		return LogEntry{}, 0, fmt.Errorf("line is not a string")
	}
	ns, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return LogEntry{}, 0, fmt.Errorf("timestamp %q is not an integer", ts)
	}
	return LogEntry{Timestamp: FormatTimestamp(ns), Line: line, Labels: labels}, ns, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse base url %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
