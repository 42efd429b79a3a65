package engine

import (
	"fmt"
	"sync"
	"testing"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	return New(&Config{
		Logger:  slogutil.NewDiscardLogger(),
		Enabled: true,
	})
}

func TestEngine_ShouldBlock_defaults(t *testing.T) {
	e := newTestEngine(t)
	rejected := e.Initialize(nil, true)
	require.Zero(t, rejected)

	assert.True(t, e.ShouldBlock("http://doubleclick.net/x"))
	assert.True(t, e.ShouldBlock("HTTPS://AD.DOUBLECLICK.NET/ddm"))
	assert.True(t, e.ShouldBlock("https://cdn.example.com/pagead/show_ads.js"))
	assert.False(t, e.ShouldBlock("https://example.com/index.html"))

	e.SetEnabled(false)
	assert.False(t, e.Enabled())
	assert.False(t, e.ShouldBlock("http://doubleclick.net/x"))

	e.SetEnabled(true)
	assert.True(t, e.ShouldBlock("http://doubleclick.net/x"))
}

func TestEngine_ShouldBlock_whitelist(t *testing.T) {
	e := newTestEngine(t)
	e.Initialize([]string{"*foo*"}, true)
	e.MergeImported([]string{"googleapis.com"}, "")

	tests := []struct {
		name string
		url  string
	}{
		{name: "exact rule in query", url: "https://translate.googleapis.com/foo?host=doubleclick.net"},
		{name: "imported parent", url: "https://fonts.googleapis.com/css"},
		{name: "wildcard", url: "https://cdn.jsdelivr.net/npm/foo.js"},
		{name: "case insensitive", url: "https://FONTS.GSTATIC.COM/s/doubleclick.net"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, e.ShouldBlock(tt.url))
		})
	}
}

func TestEngine_ShouldBlock_imported(t *testing.T) {
	e := newTestEngine(t)
	added := e.MergeImported([]string{"ads.example.com"}, "")
	require.Equal(t, 1, added)

	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{name: "exact", url: "http://ads.example.com/", expected: true},
		{name: "subdomain", url: "http://x.ads.example.com/", expected: true},
		{name: "deep subdomain", url: "https://a.b.ads.example.com:8443/p", expected: true},
		{name: "suffix without dot", url: "http://notads.example.com/", expected: false},
		{name: "parent", url: "http://example.com/", expected: false},
		{name: "host in path", url: "http://other.com/ads.example.com", expected: false},
		{name: "no scheme", url: "ads.example.com/banner", expected: true},
		{name: "upper case", url: "HTTP://ADS.EXAMPLE.COM/", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, e.ShouldBlock(tt.url))
		})
	}
}

// Exact-host rules match anywhere in the URL while imported hosts only match
// the parsed host.  The asymmetry is kept on purpose; this test pins it.
func TestEngine_ShouldBlock_exactVsImportedAsymmetry(t *testing.T) {
	e := newTestEngine(t)
	require.True(t, e.AddRule("tracker.test"))
	e.MergeImported([]string{"imported.test"}, "")

	assert.True(t, e.ShouldBlock("http://site.example/?ref=tracker.test"))
	assert.False(t, e.ShouldBlock("http://site.example/?ref=imported.test"))

	assert.True(t, e.ShouldBlock("http://tracker.test/"))
	assert.True(t, e.ShouldBlock("http://imported.test/"))
}

func TestEngine_ShouldBlock_fallbackHost(t *testing.T) {
	e := newTestEngine(t)
	e.MergeImported([]string{"ads.example.com"}, "")

	// The invalid escape makes net/url reject these URLs.
	assert.True(t, e.ShouldBlock("http://ads.example.com/%zz"))
	assert.True(t, e.ShouldBlock("x.ads.example.com/%zz"))
	assert.False(t, e.ShouldBlock("http://other.example/%zz"))
}

func TestEngine_ShouldBlock_wildcard(t *testing.T) {
	e := newTestEngine(t)
	require.True(t, e.AddRule("*foo*bar*"))

	assert.True(t, e.ShouldBlock("http://x/fooXbarY"))
	assert.True(t, e.ShouldBlock("http://x/FOOxBARy"))
	assert.False(t, e.ShouldBlock("http://x/barfoo"))

	stats := e.Stats()
	assert.Equal(t, 1, stats.CachedPatterns)
	assert.EqualValues(t, 1, stats.PatternCompiles)
}

func TestEngine_ShouldBlock_invalidPattern(t *testing.T) {
	e := newTestEngine(t)
	require.True(t, e.AddRule("+broken*"))
	require.True(t, e.AddRule("(*"))

	assert.NotPanics(t, func() {
		assert.False(t, e.ShouldBlock("http://x/+broken"))
		assert.False(t, e.ShouldBlock("http://x/(y"))
	})

	// Invalid patterns are cached and never retried.
	e.ShouldBlock("http://x/again")
	assert.EqualValues(t, 2, e.Stats().PatternCompiles)

	require.True(t, e.AddRule("*good*"))
	assert.True(t, e.ShouldBlock("http://x/good"))
}

func TestEngine_Initialize_idempotent(t *testing.T) {
	custom := []string{"||custom.example^", "*tracking*pixel*", "plain.example", "+bad*"}
	probes := []string{
		"http://doubleclick.net/x",
		"http://custom.example/",
		"http://a.example/tracking/pixel.gif",
		"http://plain.example/",
		"http://example.org/",
		"https://translate.googleapis.com/doubleclick.net",
	}

	e := newTestEngine(t)

	e.Initialize(custom, true)
	firstRules := e.Rules()
	firstCount := e.RuleCount()
	var first []bool
	for _, p := range probes {
		first = append(first, e.ShouldBlock(p))
	}

	e.Initialize(custom, true)
	assert.Equal(t, firstRules, e.Rules())
	assert.Equal(t, firstCount, e.RuleCount())
	for i, p := range probes {
		assert.Equal(t, first[i], e.ShouldBlock(p), p)
	}

	assert.Equal(t, []bool{true, true, true, true, false, false}, first)
}

func TestEngine_Initialize_rejected(t *testing.T) {
	e := newTestEngine(t)

	rejected := e.Initialize([]string{"", "   ", "||^", "ok.example"}, false)
	assert.Equal(t, 3, rejected)
	assert.Equal(t, []string{"||ok.example^"}, e.Rules())
}

func TestEngine_Initialize_precompiles(t *testing.T) {
	e := newTestEngine(t)
	e.Initialize([]string{"*a*", "*b*", "(*"}, false)

	stats := e.Stats()
	assert.Equal(t, 3, stats.CachedPatterns)
	assert.EqualValues(t, 3, stats.PatternCompiles)

	e.ShouldBlock("http://x/zzz")
	assert.EqualValues(t, 3, e.Stats().PatternCompiles)
}

func TestEngine_RemoveRule(t *testing.T) {
	e := newTestEngine(t)
	require.True(t, e.AddRule("||Tracker.Example^"))
	require.True(t, e.AddRule("*beacon*"))

	assert.True(t, e.ShouldBlock("http://tracker.example/"))
	assert.True(t, e.ShouldBlock("http://x/beacon"))

	assert.True(t, e.RemoveRule("tracker.example"))
	assert.False(t, e.RemoveRule("tracker.example"))
	assert.True(t, e.RemoveRule("*beacon*"))
	assert.False(t, e.RemoveRule(""))

	assert.False(t, e.ShouldBlock("http://tracker.example/"))
	assert.False(t, e.ShouldBlock("http://x/beacon"))
	assert.Zero(t, e.RuleCount())
}

func TestEngine_RuleCount(t *testing.T) {
	e := newTestEngine(t)

	check := func(t *testing.T) {
		t.Helper()

		s := e.Stats()
		assert.Equal(t, s.ExactHosts+s.Wildcards+s.ImportedHosts, e.RuleCount())
	}

	e.Initialize(nil, true)
	check(t)

	e.AddRule("extra.example")
	e.AddRule("extra.example")
	e.AddRule("*extra*")
	check(t)

	e.MergeImported([]string{"a.example", "B.example", "a.example"}, "https://list.example/hosts")
	check(t)
	assert.Equal(t, 2, e.Stats().ImportedHosts)

	e.ClearRules()
	check(t)
	assert.Equal(t, 2, e.RuleCount())

	e.ClearHostsFileRules()
	check(t)
	assert.Zero(t, e.RuleCount())
}

func TestEngine_Clear(t *testing.T) {
	e := newTestEngine(t)
	e.Initialize([]string{"*ads*"}, false)
	e.MergeImported([]string{"ads.example.com"}, "https://list.example/hosts")

	e.ClearPatternCache()
	s := e.Stats()
	assert.Zero(t, s.CachedPatterns)
	assert.Equal(t, 1, s.Wildcards)
	assert.True(t, e.ShouldBlock("http://x/ads"))
	assert.Equal(t, 1, e.Stats().CachedPatterns)

	e.ClearRules()
	s = e.Stats()
	assert.Zero(t, s.Wildcards)
	assert.Zero(t, s.CachedPatterns)
	assert.True(t, e.IsSourceEnabled("https://list.example/hosts"))

	e.ClearHostsFileRules()
	assert.False(t, e.IsSourceEnabled("https://list.example/hosts"))
	assert.Empty(t, e.ImportedHosts())
	assert.Empty(t, e.EnabledSources())
}

func TestEngine_MergeImported(t *testing.T) {
	e := newTestEngine(t)

	added := e.MergeImported([]string{"B.example", "a.example"}, "https://one.example/hosts")
	assert.Equal(t, 2, added)

	added = e.MergeImported([]string{"a.example", "c.example"}, "https://two.example/hosts")
	assert.Equal(t, 1, added)

	assert.Equal(t, []string{"a.example", "b.example", "c.example"}, e.ImportedHosts())
	assert.Equal(t, []string{"https://one.example/hosts", "https://two.example/hosts"}, e.EnabledSources())
}

func TestEngine_MergeImported_sources(t *testing.T) {
	e := newTestEngine(t)

	added := e.MergeImported(
		[]string{"a.example"},
		"https://one.example/hosts", "", "https://two.example/hosts",
	)
	assert.Equal(t, 1, added)
	assert.Equal(t, []string{"https://one.example/hosts", "https://two.example/hosts"}, e.EnabledSources())

	added = e.MergeImported(nil)
	assert.Zero(t, added)
	assert.Len(t, e.EnabledSources(), 2)
}

func TestEngine_concurrentAccess(t *testing.T) {
	e := newTestEngine(t)
	e.Initialize(nil, true)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			hosts := make([]string, 0, 100)
			for j := range 100 {
				hosts = append(hosts, fmt.Sprintf("h%d-%d.example", i, j))
			}
			e.MergeImported(hosts, fmt.Sprintf("https://src%d.example/hosts", i))
			e.AddRule(fmt.Sprintf("*pat%d*", i))
		}()
		go func() {
			defer wg.Done()
			for range 200 {
				e.ShouldBlock("http://h1-1.example/")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, e.Stats().ImportedHosts)
	assert.Len(t, e.EnabledSources(), 8)
	assert.True(t, e.ShouldBlock("http://h7-99.example/"))
}
