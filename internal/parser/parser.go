package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/bnema/webview-adblock/internal/models"
)

// maxLineLen bounds a single hosts line
const maxLineLen = 1 << 20

// Parser parses hosts-file subscriptions
type Parser struct {
	stats Stats
}

// Stats tracks parsing statistics
type Stats struct {
	Total       int
	Accepted    int
	Comments    int
	Skipped     int
	SkipReasons map[string]int // Aggregate breakdown of dropped lines
}

// SkipReason constants
const (
	SkipUnrecognized = "unrecognized-line"
	SkipInvalidHost  = "invalid-host"
)

// New creates a new parser
func New() *Parser {
	return &Parser{
		stats: Stats{
			SkipReasons: make(map[string]int),
		},
	}
}

// skip records a dropped line with reason
func (p *Parser) skip(reason string) {
	p.stats.Skipped++
	p.stats.SkipReasons[reason]++
}

// Stats returns parsing statistics
func (p *Parser) Stats() Stats {
	return p.stats
}

// ParseHosts reads hosts-file content and returns the accepted hosts,
// lowercased, in input order.  Malformed and over-long lines are dropped and
// only counted; only read errors are returned.
func (p *Parser) ParseHosts(r io.Reader) ([]string, error) {
	var hosts []string
	br := bufio.NewReaderSize(r, 64*1024)
	buf := make([]byte, 0, 1024)

	for {
		raw, tooLong, err := readLine(br, buf[:0])
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, err
		}
		buf = raw

		if tooLong {
			p.stats.Total++
			p.skip(SkipUnrecognized)
			continue
		}

		line := strings.TrimSpace(string(raw))
		if line == "" {
			continue
		}

		p.stats.Total++

		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			p.stats.Comments++
			continue
		}

		host, ok := ParseHostsLine(line)
		if !ok {
			p.skip(SkipUnrecognized)
			continue
		}

		host = strings.ToLower(host)
		if !IsValidHost(host) {
			p.skip(SkipInvalidHost)
			continue
		}

		p.stats.Accepted++
		hosts = append(hosts, host)
	}

	return hosts, nil
}

// readLine appends the next line of br to buf.  Lines longer than maxLineLen
// are consumed in full but reported as tooLong with no content.  io.EOF is
// returned only when no line is left.
func readLine(br *bufio.Reader, buf []byte) (line []byte, tooLong bool, err error) {
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			return buf, tooLong, err
		}

		if !tooLong {
			if len(buf)+len(chunk) > maxLineLen {
				tooLong, buf = true, buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}

		if !isPrefix {
			return buf, tooLong, nil
		}
	}
}

// ParseHostsLine extracts the domain from one line of a hosts subscription.
// It understands the AdBlock form ||domain^[$modifiers], the classic hosts
// form with a sentinel address, and bare domains.
func ParseHostsLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}

	if strings.HasPrefix(line, "||") {
		host := line[2:]
		if idx := strings.IndexAny(host, "^$"); idx != -1 {
			host = host[:idx]
		}
		host = strings.TrimSpace(host)
		return host, host != ""
	}

	fields := strings.Fields(line)
	if len(fields) >= 2 && isSentinel(fields[0]) {
		host := fields[1]
		if idx := strings.IndexByte(host, '#'); idx != -1 {
			host = host[:idx]
		}
		if host == "" || strings.EqualFold(host, "localhost") || strings.EqualFold(host, "localhost.localdomain") {
			return "", false
		}
		return host, true
	}

	if len(fields) == 1 && strings.Contains(line, ".") && !strings.Contains(line, "/") {
		return line, true
	}

	return "", false
}

// isSentinel reports whether s is an address hosts files use to null-route a
// domain
func isSentinel(s string) bool {
	switch s {
	case "0.0.0.0", "127.0.0.1", "::", "::1":
		return true
	}
	return strings.HasPrefix(s, "0.") || strings.HasPrefix(s, "127.")
}

// ParseRule classifies one line of custom-rule text.  No case normalization
// happens here.
func ParseRule(text string) (models.Rule, bool) {
	raw := text
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Rule{Kind: models.RuleKindInvalid, Raw: raw}, false
	}

	if strings.HasPrefix(text, "||") {
		host := strings.TrimSuffix(text[2:], "^")
		if host == "" {
			return models.Rule{Kind: models.RuleKindInvalid, Raw: raw}, false
		}
		return models.Rule{Kind: models.RuleKindExactHost, Raw: raw, Value: host}, true
	}

	if strings.Contains(text, "*") {
		return models.Rule{Kind: models.RuleKindWildcard, Raw: raw, Value: text}, true
	}

	host := stripScheme(text)
	if host == "" {
		return models.Rule{Kind: models.RuleKindInvalid, Raw: raw}, false
	}
	return models.Rule{Kind: models.RuleKindExactHost, Raw: raw, Value: host}, true
}

// stripScheme removes an http(s) scheme so stored hosts never carry one
func stripScheme(s string) string {
	for _, scheme := range []string{"https://", "http://"} {
		if len(s) >= len(scheme) && strings.EqualFold(s[:len(scheme)], scheme) {
			return s[len(scheme):]
		}
	}
	return s
}
