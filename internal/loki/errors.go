package loki

import "fmt"

// BackendError reports a transport failure or a non-2xx response.
// Status is zero when no response was received.
type BackendError struct {
	Status  int
	Message string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Status == 0 {
		return "backend unreachable: " + e.Message
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// ParseError describes a single result row that could not be decoded.
type ParseError struct {
	Stream int
	Row    int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("stream %d row %d: %s", e.Stream, e.Row, e.Reason)
}
