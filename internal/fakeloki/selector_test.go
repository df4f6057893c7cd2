package fakeloki

import (
	"strings"
	"testing"
)

func TestParseSelector_Matches(t *testing.T) {
	labels := map[string]string{"job": "api", "level": "error", "host": "demo-1"}

	tests := []struct {
		query string
		line  string
		want  bool
	}{
		{`{job="api"}`, "x", true},
		{`{job="worker"}`, "x", false},
		{`{ job = "api" , level != "info" }`, "x", true},
		{`{job=~"a.i"}`, "x", true},
		{`{job=~"a"}`, "x", false},
		{`{job!~"work.*", host="demo-1"}`, "x", true},
		{"{job=`api`}", "x", true},
		{`{job="api"} |= "timeout"`, "upstream timeout", true},
		{`{job="api"} |= "timeout"`, "all good", false},
		{`{job="api"} != "health"`, "GET /health", false},
		{`{job="api"} |~ "time(out)?" !~ "^GET"`, "POST timeout", true},
		{`{job="api"} |~ "time(out)?" !~ "^GET"`, "GET timeout", false},
		{`{job="a\"pi"}`, "x", false},
	}
	for _, tt := range tests {
		sel, err := ParseSelector(tt.query)
		if err != nil {
			t.Fatalf("ParseSelector(%q) returned error: %v", tt.query, err)
		}
		if got := sel.Matches(labels, tt.line); got != tt.want {
			t.Fatalf("ParseSelector(%q).Matches(%q) = %v, want %v", tt.query, tt.line, got, tt.want)
		}
	}
}

func TestParseSelector_Errors(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{``, "expected '{'"},
		{`job="api"`, "expected '{'"},
		{`{}`, "at least one matcher"},
		{`{job!="api"}`, "at least one matcher"},
		{`{job=~".*"}`, "at least one matcher"},
		{`{job="api"`, "expected ',' or '}'"},
		{`{="api"}`, "expected label name"},
		{`{job "api"}`, "expected matcher operator"},
		{`{job="api}`, "unterminated string"},
		{`{job=api}`, "expected quoted string"},
		{`{job="api" level="x"}`, "expected ',' or '}'"},
		{`{job=~"("}`, "invalid regex"},
		{`{job="api"} | json`, "expected line filter"},
	}
	for _, tt := range tests {
		_, err := ParseSelector(tt.query)
		if err == nil {
			t.Fatalf("ParseSelector(%q) returned nil error", tt.query)
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("ParseSelector(%q) error = %q, want it to contain %q", tt.query, err, tt.want)
		}
	}
}
