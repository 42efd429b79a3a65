// Package engine contains the rule store and the block/allow decision
// pipeline for sub-resource requests.
package engine

import (
	"log/slog"
	"maps"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/bnema/webview-adblock/internal/models"
	"github.com/bnema/webview-adblock/internal/parser"
	"github.com/bnema/webview-adblock/internal/pattern"
)

// Config contains engine settings
type Config struct {
	// Logger for bulk rule-set changes; nil discards logs
	Logger *slog.Logger

	// Enabled is the initial operating state
	Enabled bool
}

// Engine decides whether requests should be blocked.  It is safe for
// concurrent use: ShouldBlock may run alongside imports and rule edits.
type Engine struct {
	logger   *slog.Logger
	patterns *pattern.Cache
	enabled  atomic.Bool

	// mu protects the rule sets below
	mu         sync.RWMutex
	exactHosts map[string]struct{}
	wildcards  map[string]struct{}
	imported   map[string]struct{}
	sources    map[string]struct{}
}

// New creates a new engine with an empty rule set
func New(c *Config) *Engine {
	l := c.Logger
	if l == nil {
		l = slogutil.NewDiscardLogger()
	}

	e := &Engine{
		logger:     l,
		patterns:   pattern.NewCache(),
		exactHosts: make(map[string]struct{}),
		wildcards:  make(map[string]struct{}),
		imported:   make(map[string]struct{}),
		sources:    make(map[string]struct{}),
	}
	e.enabled.Store(c.Enabled)

	return e
}

// Initialize resets the exact and wildcard rule sets, repopulates them from
// the built-in defaults when useDefaults is set and from customRules, and
// compiles every wildcard pattern.  Imported hosts and sources are kept.  It
// returns the number of custom rules that were rejected.
func (e *Engine) Initialize(customRules []string, useDefaults bool) (rejected int) {
	exact := make(map[string]struct{})
	wild := make(map[string]struct{})

	var rules []string
	if useDefaults {
		rules = DefaultRules()
	}
	rules = append(rules, customRules...)

	for _, text := range rules {
		if !addParsed(text, exact, wild) {
			rejected++
		}
	}

	nExact, nWild := len(exact), len(wild)

	e.mu.Lock()
	e.exactHosts = exact
	e.wildcards = wild
	e.patterns.Clear()
	e.mu.Unlock()

	invalid := e.PrecompilePatterns()

	e.logger.Debug(
		"rules initialized",
		"exact", nExact,
		"wildcard", nWild,
		"rejected", rejected,
		"invalid_patterns", invalid,
	)

	return rejected
}

// addParsed parses text and stores it in the matching set
func addParsed(text string, exact, wild map[string]struct{}) (ok bool) {
	rule, ok := parser.ParseRule(text)
	if !ok {
		return false
	}

	switch rule.Kind {
	case models.RuleKindExactHost:
		exact[strings.ToLower(rule.Value)] = struct{}{}
	case models.RuleKindWildcard:
		wild[rule.Value] = struct{}{}
	default:
		return false
	}

	return true
}

// AddRule parses text as a custom rule and adds it.  Wildcard patterns added
// this way are compiled on their first match attempt.
func (e *Engine) AddRule(text string) (ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return addParsed(text, e.exactHosts, e.wildcards)
}

// RemoveRule parses text as a custom rule and removes it.  It returns false if
// the rule was not present.
func (e *Engine) RemoveRule(text string) (ok bool) {
	rule, ok := parser.ParseRule(text)
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var set map[string]struct{}
	key := rule.Value
	switch rule.Kind {
	case models.RuleKindExactHost:
		set, key = e.exactHosts, strings.ToLower(key)
	case models.RuleKindWildcard:
		set = e.wildcards
	default:
		return false
	}

	if _, ok = set[key]; ok {
		delete(set, key)
	}

	return ok
}

// MergeImported adds hosts to the imported set and marks every non-empty
// source enabled.  Hosts and sources are applied under one lock, so
// ShouldBlock never observes a partial merge.  It returns the number of hosts
// that were not present before.
func (e *Engine) MergeImported(hosts []string, sources ...string) (added int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, h := range hosts {
		h = strings.ToLower(h)
		if _, ok := e.imported[h]; !ok {
			e.imported[h] = struct{}{}
			added++
		}
	}

	for _, src := range sources {
		if src != "" {
			e.sources[src] = struct{}{}
		}
	}

	return added
}

// SetEnabled switches between the enabled and disabled operating states
func (e *Engine) SetEnabled(enabled bool) {
	e.enabled.Store(enabled)
}

// Enabled returns true if the engine currently blocks requests
func (e *Engine) Enabled() bool {
	return e.enabled.Load()
}

// ClearRules removes all exact-host and wildcard rules along with the pattern
// cache
func (e *Engine) ClearRules() {
	e.mu.Lock()
	defer e.mu.Unlock()

	clear(e.exactHosts)
	clear(e.wildcards)
	e.patterns.Clear()
}

// ClearHostsFileRules removes all imported hosts and enabled sources
func (e *Engine) ClearHostsFileRules() {
	e.mu.Lock()
	defer e.mu.Unlock()

	clear(e.imported)
	clear(e.sources)
}

// ClearPatternCache discards compiled patterns only; wildcard rules are
// recompiled on demand
func (e *Engine) ClearPatternCache() {
	e.patterns.Clear()
}

// PrecompilePatterns compiles every known wildcard pattern and returns the
// number of patterns that failed to compile
func (e *Engine) PrecompilePatterns() (invalid int) {
	e.mu.RLock()
	patterns := slices.Collect(maps.Keys(e.wildcards))
	e.mu.RUnlock()

	return e.patterns.Precompile(patterns)
}

// RuleCount returns the total number of exact, wildcard, and imported rules
func (e *Engine) RuleCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.exactHosts) + len(e.wildcards) + len(e.imported)
}

// Stats contains rule-set counters
type Stats struct {
	ExactHosts      int
	Wildcards       int
	ImportedHosts   int
	EnabledSources  int
	CachedPatterns  int
	PatternCompiles uint64
}

// Stats returns the current rule-set counters
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return Stats{
		ExactHosts:      len(e.exactHosts),
		Wildcards:       len(e.wildcards),
		ImportedHosts:   len(e.imported),
		EnabledSources:  len(e.sources),
		CachedPatterns:  e.patterns.Len(),
		PatternCompiles: e.patterns.Compiles(),
	}
}

// ImportedHosts returns a sorted copy of the imported hosts
func (e *Engine) ImportedHosts() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return slices.Sorted(maps.Keys(e.imported))
}

// EnabledSources returns a sorted copy of the enabled source URLs
func (e *Engine) EnabledSources() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return slices.Sorted(maps.Keys(e.sources))
}

// IsSourceEnabled returns true if sourceURL has been imported successfully
func (e *Engine) IsSourceEnabled(sourceURL string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	_, ok := e.sources[sourceURL]
	return ok
}

// Rules returns the exact-host and wildcard rules, sorted, in custom-rule
// syntax
func (e *Engine) Rules() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]string, 0, len(e.exactHosts)+len(e.wildcards))
	for h := range e.exactHosts {
		rules = append(rules, "||"+h+"^")
	}
	for p := range e.wildcards {
		rules = append(rules, p)
	}
	slices.Sort(rules)

	return rules
}

// reHostFallback extracts a host-like prefix from URLs net/url rejects
var reHostFallback = regexp.MustCompile(`^(?:https?://)?([^/]+)`)

// ShouldBlock returns true if a request to rawURL must be blocked.  It never
// fails: anything that cannot be evaluated counts as not matching.
func (e *Engine) ShouldBlock(rawURL string) bool {
	if !e.enabled.Load() {
		return false
	}

	u := strings.ToLower(rawURL)

	for _, w := range whitelist {
		if strings.Contains(u, w) {
			return false
		}
	}

	host := requestHost(u)

	e.mu.RLock()
	defer e.mu.RUnlock()

	// Exact-host rules match against the whole URL, path and query included
	for h := range e.exactHosts {
		if strings.Contains(u, h) {
			return true
		}
	}

	if host != "" && e.matchImported(host) {
		return true
	}

	for p := range e.wildcards {
		if e.patterns.Get(p).Match(u) {
			return true
		}
	}

	return false
}

// requestHost returns the host of the lowercased URL u
func requestHost(u string) string {
	if parsed, err := url.Parse(u); err == nil {
		if h := parsed.Hostname(); h != "" {
			return h
		}
	}

	m := reHostFallback.FindStringSubmatch(u)
	if m == nil {
		return ""
	}

	return m[1]
}

// matchImported checks host and each of its parent domains against the
// imported set.  e.mu must be held.
func (e *Engine) matchImported(host string) bool {
	for {
		if _, ok := e.imported[host]; ok {
			return true
		}

		i := strings.IndexByte(host, '.')
		if i == -1 {
			return false
		}
		host = host[i+1:]
	}
}
