package query

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Wildcard is the pattern boundary token in filter values.
const Wildcard = "*"

// MatchMode selects how a filter value is compared.
type MatchMode int

// Match modes, derived from asterisk position.
const (
	Exact MatchMode = iota
	Contains
	Prefix
	Suffix
)

func (m MatchMode) String() string {
	switch m {
	case Exact:
		return "exact"
	case Contains:
		return "contains"
	case Prefix:
		return "prefix"
	case Suffix:
		return "suffix"
	default:
		return fmt.Sprintf("MatchMode(%d)", int(m))
	}
}

// ValidWildcard reports whether pattern uses asterisks only as allowed:
// at most two, a single one only as first or last character, two only as
// first and last. A lone "*" and "**" are rejected.
func ValidWildcard(pattern string) bool {
	switch strings.Count(pattern, Wildcard) {
	case 0:
		return true
	case 1:
		if pattern == Wildcard {
			return false
		}
		return strings.HasPrefix(pattern, Wildcard) || strings.HasSuffix(pattern, Wildcard)
	case 2:
		if pattern == "**" {
			return false
		}
		return strings.HasPrefix(pattern, Wildcard) && strings.HasSuffix(pattern, Wildcard)
	default:
		return false
	}
}

// ModeOf derives the match mode of an already validated pattern and returns
// the pattern text with its asterisks stripped.
func ModeOf(pattern string) (MatchMode, string) {
	starts := strings.HasPrefix(pattern, Wildcard)
	ends := strings.HasSuffix(pattern, Wildcard)
	switch {
	case starts && ends && len(pattern) >= 2:
		return Contains, pattern[1 : len(pattern)-1]
	case ends:
		return Prefix, strings.TrimSuffix(pattern, Wildcard)
	case starts:
		return Suffix, strings.TrimPrefix(pattern, Wildcard)
	default:
		return Exact, pattern
	}
}

// Matcher is a compiled, case-insensitive filter pattern.
type Matcher struct {
	mode MatchMode
	text string
	g    glob.Glob
}

// Compile builds a Matcher from a validated pattern. Characters other than
// the boundary asterisks are matched literally.
func Compile(pattern string) (*Matcher, error) {
	mode, text := ModeOf(pattern)
	text = strings.ToLower(text)

	expr := glob.QuoteMeta(text)
	switch mode {
	case Contains:
		expr = Wildcard + expr + Wildcard
	case Prefix:
		expr = expr + Wildcard
	case Suffix:
		expr = Wildcard + expr
	}

	g, err := glob.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %q: %w", pattern, err)
	}
	return &Matcher{mode: mode, text: text, g: g}, nil
}

// Mode returns the match mode.
func (m *Matcher) Mode() MatchMode { return m.mode }

// Match reports whether value satisfies the pattern, ignoring case.
func (m *Matcher) Match(value string) bool {
	return m.g.Match(strings.ToLower(value))
}

// Matches compiles pattern and tests value against it. An uncompilable
// pattern matches nothing.
func Matches(value, pattern string) bool {
	m, err := Compile(pattern)
	if err != nil {
		return false
	}
	return m.Match(value)
}
