package fakeloki

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	defaultLimit    = 100
	defaultLookback = time.Hour
	shutdownTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server serves the fake Loki API over gin.
type Server struct {
	engine *gin.Engine
	store  *Store
	log    logrus.FieldLogger
	now    func() time.Time
}

// Option customises a Server.
type Option func(*Server)

// WithStore serves an existing store.
func WithStore(st *Store) Option {
	return func(s *Server) {
		if st != nil {
			s.store = st
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the clock used for default query bounds.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a server with an empty store unless WithStore is given.
func New(opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Server{
		engine: engine,
		store:  NewStore(),
		log:    discard,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	engine.Use(s.requestLogger())
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Store returns the backing store.
func (s *Server) Store() *Store {
	return s.store
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", addr, err)
	}
	return nil
}

func (s *Server) setupRoutes() {
	api := s.engine.Group("/loki/api/v1")
	api.GET("/query", s.handleQuery)
	api.GET("/query_range", s.handleQueryRange)
	api.POST("/push", s.handlePush)
	api.GET("/tail", s.handleTail)

	s.engine.GET("/ready", func(c *gin.Context) {
		c.String(http.StatusOK, "ready")
	})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("request")
	}
}

// wireStream is the JSON shape of one stream in query and tail responses.
type wireStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

func toWire(streams []Stream) []wireStream {
	out := make([]wireStream, 0, len(streams))
	for _, st := range streams {
		ws := wireStream{Stream: st.Labels, Values: make([][2]string, 0, len(st.Records))}
		for _, r := range st.Records {
			ws.Values = append(ws.Values, [2]string{strconv.FormatInt(r.Ns, 10), r.Line})
		}
		out = append(out, ws)
	}
	return out
}

func streamsResponse(streams []Stream) gin.H {
	return gin.H{
		"status": "success",
		"data": gin.H{
			"resultType": "streams",
			"result":     toWire(streams),
		},
	}
}

func (s *Server) handleQuery(c *gin.Context) {
	sel, err := ParseSelector(c.Query("query"))
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	at, err := parseTime(c.Query("time"), s.now())
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	backward := c.DefaultQuery("direction", "backward") != "forward"

	streams := s.store.Select(sel, 0, at.UnixNano(), limit, backward)
	c.JSON(http.StatusOK, streamsResponse(streams))
}

func (s *Server) handleQueryRange(c *gin.Context) {
	sel, err := ParseSelector(c.Query("query"))
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	now := s.now()
	end, err := parseTime(c.Query("end"), now)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	start, err := parseTime(c.Query("start"), end.Add(-defaultLookback))
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	if end.Before(start) {
		c.String(http.StatusBadRequest, "end timestamp must not be before start time")
		return
	}
	backward := c.DefaultQuery("direction", "backward") != "forward"

	streams := s.store.Select(sel, start.UnixNano(), end.UnixNano(), limit, backward)
	c.JSON(http.StatusOK, streamsResponse(streams))
}

type pushBody struct {
	Streams []struct {
		Stream map[string]string `json:"stream"`
		Values [][]string        `json:"values"`
	} `json:"streams"`
}

func (s *Server) handlePush(c *gin.Context) {
	var body pushBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.String(http.StatusBadRequest, "decode push: "+err.Error())
		return
	}

	var records []Record
	for si, st := range body.Streams {
		if len(st.Stream) == 0 {
			c.String(http.StatusBadRequest, fmt.Sprintf("stream %d has no labels", si))
			return
		}
		for ri, v := range st.Values {
			if len(v) < 2 {
				c.String(http.StatusBadRequest, fmt.Sprintf("stream %d row %d: want [ts, line]", si, ri))
				return
			}
			ns, err := strconv.ParseInt(v[0], 10, 64)
			if err != nil {
				c.String(http.StatusBadRequest, fmt.Sprintf("stream %d row %d: invalid timestamp %q", si, ri, v[0]))
				return
			}
			records = append(records, Record{Ns: ns, Labels: st.Stream, Line: v[1]})
		}
	}
	for _, r := range records {
		s.store.Push(r)
	}
	s.log.WithField("entries", len(records)).Debug("push accepted")
	c.Status(http.StatusNoContent)
}

func (s *Server) handleTail(c *gin.Context) {
	sel, err := ParseSelector(c.Query("query"))
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	now := s.now()
	start, err := parseTime(c.Query("start"), now.Add(-defaultLookback))
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	// Subscribe before reading the backlog so nothing pushed in between is
	// lost; duplicates are filtered by timestamp below.
	live, unsubscribe := s.store.Subscribe()
	defer unsubscribe()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	backlog := s.store.Recent(sel, start.UnixNano(), limit)
	var latest int64
	if len(backlog) > 0 {
		latest = backlog[len(backlog)-1].Ns
		if err := conn.WriteJSON(gin.H{"streams": toWire(group(backlog))}); err != nil {
			return
		}
	}

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case r, ok := <-live:
			if !ok {
				return
			}
			if r.Ns < start.UnixNano() || (latest > 0 && r.Ns <= latest) || !sel.Matches(r.Labels, r.Line) {
				continue
			}
			frame := gin.H{"streams": toWire([]Stream{{Labels: r.Labels, Records: []Record{r}}})}
			if err := conn.WriteJSON(frame); err != nil {
				s.log.WithError(err).Debug("tail write failed")
				return
			}
		}
	}
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return n, nil
}

// parseTime accepts Unix nanoseconds or RFC 3339.
func parseTime(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	if ns, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(0, ns), nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
	}
	return t, nil
}
