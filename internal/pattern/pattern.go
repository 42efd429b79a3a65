// Package pattern compiles glob-style wildcard rules into case-insensitive
// matchers and caches the results.
package pattern

import (
	"regexp"
	"strings"
)

// Compiled is the result of compiling a wildcard pattern.  The zero value is
// Invalid: it never matches.
type Compiled struct {
	re *regexp.Regexp
}

// Invalid is the marker cached for patterns that failed to compile
var Invalid = Compiled{}

// Valid returns true if the pattern compiled successfully
func (c Compiled) Valid() bool {
	return c.re != nil
}

// Match reports whether s contains a match of the pattern.  Invalid patterns
// never match.
func (c Compiled) Match(s string) bool {
	return c.re != nil && c.re.MatchString(s)
}

// String returns the generated regular expression, or "" for Invalid
func (c Compiled) String() string {
	if c.re == nil {
		return ""
	}
	return c.re.String()
}

// globReplacer escapes dots and expands glob wildcards.  Other regex
// metacharacters pass through unescaped.
var globReplacer = strings.NewReplacer(
	".", `\.`,
	"*", ".*",
	"?", ".?",
)

// GlobToRegex converts a wildcard pattern to regular expression source
func GlobToRegex(pattern string) string {
	return globReplacer.Replace(pattern)
}

// Compile converts a wildcard pattern into a case-insensitive matcher.  A
// pattern that does not form a valid expression yields Invalid.
func Compile(pattern string) Compiled {
	re, err := regexp.Compile("(?i)" + GlobToRegex(pattern))
	if err != nil {
		return Invalid
	}
	return Compiled{re: re}
}
