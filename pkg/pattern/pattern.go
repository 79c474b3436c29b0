// Package pattern matches user agents and request paths against configured
// rules.
//
// A rule is one of:
//
//	facebookexternalhit/1.1   exact, case-insensitive
//	*bot*                     glob, case-insensitive; * spans any run, including /
//	~^/assets/.+\.js$         regexp, case-sensitive
//	~*iphone|ipod             regexp, case-insensitive
package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is a compiled rule. The nil Pattern matches nothing.
type Pattern struct {
	raw   string
	re    *regexp.Regexp
	parts []string // lowercased glob segments between stars; nil for exact rules
}

// Compile parses raw. Call it while loading configuration, not per request.
func Compile(raw string) (*Pattern, error) {
	if raw == "" {
		return nil, fmt.Errorf("pattern cannot be empty")
	}
	p := &Pattern{raw: raw}

	if expr, ok := strings.CutPrefix(raw, "~"); ok {
		if rest, insensitive := strings.CutPrefix(expr, "*"); insensitive {
			expr = "(?i)" + rest
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid regexp pattern %q: %w", raw, err)
		}
		p.re = re
		return p, nil
	}

	if strings.Contains(raw, "*") {
		p.parts = strings.Split(strings.ToLower(raw), "*")
	}
	return p, nil
}

// MustCompile is Compile for built-in rule tables.
func MustCompile(raw string) *Pattern {
	p, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Pattern) String() string {
	if p == nil {
		return ""
	}
	return p.raw
}

func (p *Pattern) Match(input string) bool {
	switch {
	case p == nil:
		return false
	case p.re != nil:
		return p.re.MatchString(input)
	case p.parts != nil:
		return matchGlob(strings.ToLower(input), p.parts)
	default:
		return strings.EqualFold(input, p.raw)
	}
}

// matchGlob reports whether text is parts joined by arbitrary runs. The first
// and last parts anchor the ends; the middle ones match leftmost.
func matchGlob(text string, parts []string) bool {
	first, last := parts[0], parts[len(parts)-1]
	if len(text) < len(first)+len(last) ||
		!strings.HasPrefix(text, first) || !strings.HasSuffix(text, last) {
		return false
	}
	text = text[len(first) : len(text)-len(last)]

	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(text, part)
		if idx < 0 {
			return false
		}
		text = text[idx+len(part):]
	}
	return true
}

// Set is a list of rules matched as a whole.
type Set []*Pattern

// CompileSet compiles every rule, failing on the first invalid one.
func CompileSet(raws []string) (Set, error) {
	set := make(Set, 0, len(raws))
	for _, raw := range raws {
		p, err := Compile(raw)
		if err != nil {
			return nil, err
		}
		set = append(set, p)
	}
	return set, nil
}

// MatchAny reports whether any rule matches input.
func (s Set) MatchAny(input string) bool {
	for _, p := range s {
		if p.Match(input) {
			return true
		}
	}
	return false
}
