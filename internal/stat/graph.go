package stat

import (
	"fmt"
	"sort"
)

// EntityID identifies an entity owning a stat store.
type EntityID uint32

// Dependent is the target of a dependency edge: a stat that must be
// recomputed when the edge's key changes. A local dependent lives on the
// same entity; a remote one lives on Entity and reads the changed stat
// through Alias.
type Dependent struct {
	Entity EntityID
	Path   string
	Alias  string
	Remote bool
}

// LocalDependent addresses a stat on the same entity.
func LocalDependent(path string) Dependent {
	return Dependent{Path: path}
}

// EntityDependent addresses a stat on another entity reading through alias.
func EntityDependent(entity EntityID, path, alias string) Dependent {
	return Dependent{Entity: entity, Path: path, Alias: alias, Remote: true}
}

func (d Dependent) String() string {
	if !d.Remote {
		return d.Path
	}
	return fmt.Sprintf("%d:%s@%s", d.Entity, d.Path, d.Alias)
}

func (d Dependent) less(o Dependent) bool {
	if d.Remote != o.Remote {
		return !d.Remote
	}
	if d.Entity != o.Entity {
		return d.Entity < o.Entity
	}
	if d.Path != o.Path {
		return d.Path < o.Path
	}
	return d.Alias < o.Alias
}

// Edge is a dependent together with the number of modifiers that registered it.
type Edge struct {
	Dependent
	Refs int
}

// DependencyGraph maps a stat key to the stats depending on it. Each edge is
// reference counted: every modifier referencing a variable adds one and
// removing the modifier takes it away; the edge disappears at zero.
type DependencyGraph struct {
	edges map[string]map[Dependent]int
}

func newDependencyGraph() *DependencyGraph {
	return &DependencyGraph{edges: make(map[string]map[Dependent]int)}
}

func (g *DependencyGraph) add(key string, d Dependent) {
	deps, ok := g.edges[key]
	if !ok {
		deps = make(map[Dependent]int)
		g.edges[key] = deps
	}
	deps[d]++
}

// remove decrements an edge. It reports false when no such edge exists.
func (g *DependencyGraph) remove(key string, d Dependent) bool {
	deps, ok := g.edges[key]
	if !ok {
		return false
	}
	n, ok := deps[d]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(deps, d)
		if len(deps) == 0 {
			delete(g.edges, key)
		}
		return true
	}
	deps[d] = n - 1
	return true
}

// dependents returns the dependents of key in a stable order.
func (g *DependencyGraph) dependents(key string) []Dependent {
	deps := g.edges[key]
	out := make([]Dependent, 0, len(deps))
	for d := range deps {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}

func (g *DependencyGraph) edgesOf(key string) []Edge {
	deps := g.dependents(key)
	out := make([]Edge, len(deps))
	for i, d := range deps {
		out[i] = Edge{Dependent: d, Refs: g.edges[key][d]}
	}
	return out
}

// keys returns every key with at least one edge, sorted.
func (g *DependencyGraph) keys() []string {
	out := make([]string, 0, len(g.edges))
	for k := range g.edges {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// prune drops every edge matching fn regardless of its count and returns
// how many distinct edges were removed.
func (g *DependencyGraph) prune(fn func(key string, d Dependent) bool) int {
	removed := 0
	for key, deps := range g.edges {
		for d := range deps {
			if fn(key, d) {
				delete(deps, d)
				removed++
			}
		}
		if len(deps) == 0 {
			delete(g.edges, key)
		}
	}
	return removed
}

// Len returns the number of distinct edges.
func (g *DependencyGraph) Len() int {
	n := 0
	for _, deps := range g.edges {
		n += len(deps)
	}
	return n
}
