// Package invalidation implements the InvalidationController (spec
// §4.5): pattern/tag rules, dependency-graph cascades, event-triggered
// invalidation, and scheduled sweeps, all driving
// orchestrator.InvalidateByTag.
package invalidation

import (
	"regexp"
	"strings"
	"time"

	"github.com/developer-mesh/tieredcache/internal/cerrors"
)

// Conditions holds the optional qualifiers on a Rule (spec §3
// InvalidationRule "conditions: { max_age?, time_window?,
// dependencies? }"). MaxAge and TimeWindow are carried as declarative
// metadata — spec §4.5's five-step invalidate_by_pattern procedure
// doesn't reference them operationally, only pattern/tags/triggers do
// — while Dependencies feeds the rule's dependency-graph edges and,
// when Rule.Cascade is set, its cascade firing.
type Conditions struct {
	MaxAge       time.Duration
	TimeWindow   time.Duration
	Dependencies []string
}

// Rule is one pattern/tag invalidation rule (spec §4.5, data model
// in spec §3).
type Rule struct {
	ID      string
	Pattern string // a literal prefix, or "/regex/" delimited
	Tags    []string
	// Triggers is the set of entity/op names (or the wildcard
	// "data-change") that cause on_event to schedule this rule.
	Triggers []string
	// Cascade, when true, additionally invalidates every tag reachable
	// from this rule's id in the dependency graph when the rule fires
	// (spec §3 "cascade: boolean — whether dependent tags are also
	// invalidated").
	Cascade    bool
	Conditions Conditions
	Priority   int
	Enabled    bool

	compiled *regexp.Regexp // non-nil when Pattern is a regex
}

func isRegexPattern(pattern string) bool {
	return len(pattern) >= 2 && strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/")
}

func regexBody(pattern string) string { return pattern[1 : len(pattern)-1] }

// compile validates and, for regex patterns, compiles r.Pattern. Called
// once at registration time so regex rules with invalid syntax are
// rejected immediately (spec §4.5 "rules with regex patterns must
// compile").
func (r *Rule) compile() error {
	if !isRegexPattern(r.Pattern) {
		return nil
	}
	re, err := regexp.Compile(regexBody(r.Pattern))
	if err != nil {
		return cerrors.ConfigurationError("invalidation.register_rule", "invalid pattern regex: "+err.Error())
	}
	r.compiled = re
	return nil
}

func (r *Rule) hasTrigger(name string) bool {
	for _, t := range r.Triggers {
		if t == name || t == "data-change" {
			return true
		}
	}
	return false
}

// matches implements spec §4.5 step 1: substring overlap for two
// literal patterns, regex test for a regex rule against a literal
// argument (or vice versa), and source equality for two regexes.
func (r *Rule) matches(pattern string) bool {
	argIsRegex := isRegexPattern(pattern)
	switch {
	case r.compiled != nil && argIsRegex:
		return regexBody(r.Pattern) == regexBody(pattern)
	case r.compiled != nil:
		return r.compiled.MatchString(pattern)
	case argIsRegex:
		re, err := regexp.Compile(regexBody(pattern))
		if err != nil {
			return false
		}
		return re.MatchString(r.Pattern)
	default:
		return strings.Contains(r.Pattern, pattern) || strings.Contains(pattern, r.Pattern)
	}
}
