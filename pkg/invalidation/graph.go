package invalidation

import (
	"sync"

	"github.com/developer-mesh/tieredcache/internal/cerrors"
)

// DependencyGraph tracks parent -> dependent edges for
// invalidate_by_dependency cascades (spec §4.5, §9 "strictly acyclic").
type DependencyGraph struct {
	mu    sync.RWMutex
	edges map[string]map[string]struct{} // parent -> set of direct dependents
}

func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{edges: make(map[string]map[string]struct{})}
}

// reachable reports whether to is reachable from from by following
// parent->dependent edges (unlocked; caller holds at least a read lock).
func (g *DependencyGraph) reachable(from, to string) bool {
	if from == to {
		return true
	}
	visited := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range g.edges[cur] {
			if next == to {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// AddDependency records parent -> dependent. Rejected if dependent
// already reaches parent (would introduce a cycle).
func (g *DependencyGraph) AddDependency(parent, dependent string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.reachable(dependent, parent) {
		return cerrors.InvariantViolation("invalidation.add_dependency", "adding "+parent+" -> "+dependent+" would create a cycle")
	}
	if g.edges[parent] == nil {
		g.edges[parent] = make(map[string]struct{})
	}
	g.edges[parent][dependent] = struct{}{}
	return nil
}

// RemoveDependency removes a single parent -> dependent edge, if present.
func (g *DependencyGraph) RemoveDependency(parent, dependent string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if set, ok := g.edges[parent]; ok {
		delete(set, dependent)
	}
}

// Dependents returns the full transitive closure of entities that
// depend (directly or indirectly) on parent.
func (g *DependencyGraph) Dependents(parent string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	visited := make(map[string]struct{})
	queue := []string{parent}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range g.edges[cur] {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	return out
}
