package rules

import (
	"regexp"
	"strings"
)

var (
	digitClass = regexp.MustCompile(`\\d\+?`)
	spaceClass = regexp.MustCompile(`\\s\+?`)
)

// Pattern is an asset match pattern reduced to plain text. Digit classes
// become gaps between literal fragments, and remaining backslashes are
// dropped. An identifier matches when the fragments occur in it in order.
type Pattern struct {
	Source    string
	Fragments []string
}

func CompilePattern(src string) Pattern {
	parts := digitClass.Split(src, -1)
	fragments := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.ReplaceAll(part, `\`, "")
		if part != "" {
			fragments = append(fragments, part)
		}
	}
	return Pattern{Source: src, Fragments: fragments}
}

// Key is the longest fragment. Stores filter on it with substring
// containment before Match refines the result.
func (p Pattern) Key() string {
	key := ""
	for _, f := range p.Fragments {
		if len(f) > len(key) {
			key = f
		}
	}
	return key
}

func (p Pattern) Match(identifier string) bool {
	rest := identifier
	for _, f := range p.Fragments {
		i := strings.Index(rest, f)
		if i < 0 {
			return false
		}
		rest = rest[i+len(f):]
	}
	return true
}

func (p Pattern) String() string {
	return p.Source
}

// plainName turns an escaped legacy service name such as `SSO\s+\(Okta\)`
// into the plain name it stood for.
func plainName(name string) string {
	return strings.ReplaceAll(spaceClass.ReplaceAllString(name, " "), `\`, "")
}
