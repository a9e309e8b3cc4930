package invalidation

import "testing"

func TestDependencyGraphTransitiveDependents(t *testing.T) {
	g := NewDependencyGraph()
	if err := g.AddDependency("kb:entries", "kb:entry:1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.AddDependency("kb:entry:1", "kb:entry:1:summary"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	deps := g.Dependents("kb:entries")
	if len(deps) != 2 {
		t.Fatalf("expected 2 transitive dependents, got %d (%v)", len(deps), deps)
	}
}

func TestDependencyGraphRejectsCycle(t *testing.T) {
	g := NewDependencyGraph()
	if err := g.AddDependency("a", "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.AddDependency("b", "a"); err == nil {
		t.Fatalf("expected cycle to be rejected")
	}
}

func TestDependencyGraphRejectsSelfCycle(t *testing.T) {
	g := NewDependencyGraph()
	if err := g.AddDependency("a", "a"); err == nil {
		t.Fatalf("expected self-dependency to be rejected")
	}
}
