package parser

import (
	"regexp"
	"strings"
)

// maxHostLen is the longest textual domain name DNS allows
const maxHostLen = 253

var reIPv4 = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)

// IsValidHost reports whether host is acceptable as a blocked domain
func IsValidHost(host string) bool {
	if host == "" || len(host) > maxHostLen {
		return false
	}

	if strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") || strings.Contains(host, "..") {
		return false
	}

	if reIPv4.MatchString(host) {
		return false
	}

	switch strings.ToLower(host) {
	case "localhost", "broadcasthost", "local":
		return false
	}

	return true
}
