package fakeloki

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type matchOp string

const (
	opEq  matchOp = "="
	opNeq matchOp = "!="
	opRe  matchOp = "=~"
	opNre matchOp = "!~"
)

type labelMatcher struct {
	name  string
	op    matchOp
	value string
	re    *regexp.Regexp
}

func (m labelMatcher) matches(labels map[string]string) bool {
	v := labels[m.name]
	switch m.op {
	case opEq:
		return v == m.value
	case opNeq:
		return v != m.value
	case opRe:
		return m.re.MatchString(v)
	default:
		return !m.re.MatchString(v)
	}
}

type lineFilter struct {
	op    string
	value string
	re    *regexp.Regexp
}

func (f lineFilter) matches(line string) bool {
	switch f.op {
	case "|=":
		return strings.Contains(line, f.value)
	case "!=":
		return !strings.Contains(line, f.value)
	case "|~":
		return f.re.MatchString(line)
	default:
		return !f.re.MatchString(line)
	}
}

// Selector is a parsed log query.
type Selector struct {
	matchers []labelMatcher
	filters  []lineFilter
}

// Matches reports whether a stream with labels and the given line satisfies
// the query.
func (s Selector) Matches(labels map[string]string, line string) bool {
	for _, m := range s.matchers {
		if !m.matches(labels) {
			return false
		}
	}
	for _, f := range s.filters {
		if !f.matches(line) {
			return false
		}
	}
	return true
}

// ParseSelector parses a stream selector with optional line filters.
func ParseSelector(query string) (Selector, error) {
	p := &parser{src: strings.TrimSpace(query)}
	sel, err := p.parse()
	if err != nil {
		return Selector{}, fmt.Errorf("parse error at position %d: %w", p.pos+1, err)
	}
	return sel, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) parse() (Selector, error) {
	var sel Selector
	if !p.consume("{") {
		return sel, fmt.Errorf("expected '{'")
	}
	for {
		p.skipSpace()
		if p.consume("}") {
			break
		}
		if len(sel.matchers) > 0 && !p.consume(",") {
			return sel, fmt.Errorf("expected ',' or '}'")
		}
		m, err := p.matcher()
		if err != nil {
			return sel, err
		}
		sel.matchers = append(sel.matchers, m)
	}
	if !hasNonEmptyMatcher(sel.matchers) {
		return sel, fmt.Errorf("queries require at least one matcher that does not match the empty value")
	}

	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return sel, nil
		}
		f, err := p.filter()
		if err != nil {
			return sel, err
		}
		sel.filters = append(sel.filters, f)
	}
}

func (p *parser) matcher() (labelMatcher, error) {
	p.skipSpace()
	name := p.ident()
	if name == "" {
		return labelMatcher{}, fmt.Errorf("expected label name")
	}
	p.skipSpace()

	var m labelMatcher
	switch {
	case p.consume(string(opRe)):
		m.op = opRe
	case p.consume(string(opNre)):
		m.op = opNre
	case p.consume(string(opNeq)):
		m.op = opNeq
	case p.consume(string(opEq)):
		m.op = opEq
	default:
		return m, fmt.Errorf("expected matcher operator after %q", name)
	}
	p.skipSpace()
	value, err := p.quoted()
	if err != nil {
		return m, err
	}
	m.name = name
	m.value = value
	if m.op == opRe || m.op == opNre {
		re, err := regexp.Compile("^(?:" + value + ")$")
		if err != nil {
			return m, fmt.Errorf("invalid regex for %q: %w", name, err)
		}
		m.re = re
	}
	return m, nil
}

func (p *parser) filter() (lineFilter, error) {
	var f lineFilter
	for _, op := range []string{"|=", "!=", "|~", "!~"} {
		if p.consume(op) {
			f.op = op
			break
		}
	}
	if f.op == "" {
		return f, fmt.Errorf("expected line filter")
	}
	p.skipSpace()
	value, err := p.quoted()
	if err != nil {
		return f, err
	}
	f.value = value
	if f.op == "|~" || f.op == "!~" {
		re, err := regexp.Compile(value)
		if err != nil {
			return f, fmt.Errorf("invalid line filter regex: %w", err)
		}
		f.re = re
	}
	return f, nil
}

func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		isLetter := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isDigit := c >= '0' && c <= '9'
		if !isLetter && !(isDigit && p.pos > start) {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

// quoted reads a double-quoted or backtick string.
func (p *parser) quoted() (string, error) {
	if p.pos >= len(p.src) {
		return "", fmt.Errorf("expected quoted string")
	}
	quote := p.src[p.pos]
	if quote != '"' && quote != '`' {
		return "", fmt.Errorf("expected quoted string")
	}
	end := p.pos + 1
	for end < len(p.src) {
		if p.src[end] == '\\' && quote == '"' {
			end += 2
			continue
		}
		if p.src[end] == quote {
			break
		}
		end++
	}
	if end >= len(p.src) {
		return "", fmt.Errorf("unterminated string")
	}
	value, err := strconv.Unquote(p.src[p.pos : end+1])
	if err != nil {
		return "", fmt.Errorf("invalid string: %w", err)
	}
	p.pos = end + 1
	return value, nil
}

func (p *parser) consume(token string) bool {
	if strings.HasPrefix(p.src[p.pos:], token) {
		p.pos += len(token)
		return true
	}
	return false
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
}

func hasNonEmptyMatcher(ms []labelMatcher) bool {
	for _, m := range ms {
		switch m.op {
		case opEq:
			if m.value != "" {
				return true
			}
		case opRe:
			if !m.re.MatchString("") {
				return true
			}
		}
	}
	return false
}
