package models

// RuleKind represents the class a custom rule was parsed into
type RuleKind int

const (
	RuleKindInvalid RuleKind = iota
	RuleKindExactHost
	RuleKindWildcard
)

// String implements fmt.Stringer for RuleKind
func (k RuleKind) String() string {
	switch k {
	case RuleKindExactHost:
		return "exact-host"
	case RuleKindWildcard:
		return "wildcard"
	default:
		return "invalid"
	}
}

// Rule represents a parsed custom rule
type Rule struct {
	Kind  RuleKind
	Raw   string // Original rule text
	Value string // Host for exact rules, glob pattern for wildcard rules
}

// CatalogSource describes a known public hosts subscription
type CatalogSource struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	// Descriptions holds translated descriptions keyed by language tag
	Descriptions map[string]string `json:"descriptions,omitempty"`
}

// LocalizedDescription returns the description for lang, falling back to the
// default one
func (s CatalogSource) LocalizedDescription(lang string) string {
	if d, ok := s.Descriptions[lang]; ok && d != "" {
		return d
	}
	return s.Description
}
