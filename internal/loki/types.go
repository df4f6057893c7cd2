package loki

import "encoding/json"

const resultTypeStreams = "streams"

// LogEntry is one log line as returned by the backend.
type LogEntry struct {
	Timestamp string            `json:"timestamp" yaml:"timestamp"`
	Line      string            `json:"line" yaml:"line"`
	Labels    map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// Result is a flattened query response.
type Result struct {
	Entries []LogEntry
	Skipped []*ParseError

	latest int64 // newest row timestamp in nanoseconds, zero when empty
}

// queryResponse mirrors /query and /query_range.
type queryResponse struct {
	Status string    `json:"status"`
	Data   queryData `json:"data"`
}

type queryData struct {
	ResultType string   `json:"resultType"`
	Result     []stream `json:"result"`
}

// stream keeps rows raw so one malformed row cannot fail the whole decode.
type stream struct {
	Stream map[string]string `json:"stream"`
	Values []json.RawMessage `json:"values"`
}

// tailFrame mirrors a single websocket message from /tail.
type tailFrame struct {
	Streams        []stream       `json:"streams"`
	DroppedEntries []droppedEntry `json:"dropped_entries"`
}

type droppedEntry struct {
	Labels    map[string]string `json:"labels"`
	Timestamp string            `json:"timestamp"`
}

type pushRequest struct {
	Streams []pushStream `json:"streams"`
}

type pushStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}
