package invalidation

import "testing"

func TestRuleCompileRejectsInvalidRegex(t *testing.T) {
	r := &Rule{ID: "bad", Pattern: "/([/"}
	if err := r.compile(); err == nil {
		t.Fatalf("expected invalid regex to be rejected")
	}
}

func TestRuleMatchesRegexAgainstLiteral(t *testing.T) {
	r := &Rule{ID: "search", Pattern: "/^search:/"}
	if err := r.compile(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.matches("search:query") {
		t.Fatalf("expected rule to match literal key")
	}
	if r.matches("user:1") {
		t.Fatalf("expected rule not to match unrelated key")
	}
}

func TestRuleMatchesLiteralSubstringOverlap(t *testing.T) {
	r := &Rule{ID: "kb", Pattern: "kb:entries"}
	if !r.matches("kb:entries:1") {
		t.Fatalf("expected substring overlap to match")
	}
	if !r.matches("kb:") {
		t.Fatalf("expected reverse substring overlap to match")
	}
}

func TestRuleMatchesTwoRegexesBySourceEquality(t *testing.T) {
	r := &Rule{ID: "a", Pattern: "/expired|stale/"}
	if err := r.compile(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.matches("/expired|stale/") {
		t.Fatalf("expected identical regex sources to match")
	}
	if r.matches("/expired/") {
		t.Fatalf("expected different regex sources not to match")
	}
}

func TestRuleHasTriggerWildcard(t *testing.T) {
	r := &Rule{ID: "kb", Triggers: []string{"data-change"}}
	if !r.hasTrigger("anything") {
		t.Fatalf("expected wildcard trigger to match any name")
	}
}
