package stat

import "log/slog"

// node is one (entity, stat key) pair visited by a sweep.
type node struct {
	entity EntityID
	path   string
}

// propagate recomputes roots and everything reachable from them.
//
// The sweep runs in two phases. The first walks the dependency edges depth
// first and records nodes in post-order; an edge back to a node still on the
// walk stack closes a cycle and is skipped. The second recomputes nodes in
// reverse post-order, so every node is computed exactly once and only after
// all of its ancestors in the sweep. Recomputing a node also refreshes the
// mirrored slots of its remote dependents.
func (a *Accessor) propagate(roots ...node) {
	visited := make(map[node]bool)
	onStack := make(map[node]bool)
	var order []node

	var visit func(n node)
	visit = func(n node) {
		if onStack[n] {
			slog.Debug("breaking dependency cycle", "entity", n.entity, "path", n.path, "err", ErrDependencyCycle)
			return
		}
		if visited[n] {
			return
		}
		visited[n] = true
		onStack[n] = true
		for _, next := range a.next(n) {
			visit(next)
		}
		onStack[n] = false
		order = append(order, n)
	}

	for _, r := range roots {
		visit(r)
	}
	for i := len(order) - 1; i >= 0; i-- {
		a.recompute(order[i])
	}
}

// next lists the nodes depending on n: explicit edges first, then the
// implicit ones derived from the stat's own shape.
func (a *Accessor) next(n node) []node {
	s, ok := a.entities[n.entity]
	if !ok {
		return nil
	}

	var out []node
	for _, d := range s.graph.dependents(n.path) {
		if !d.Remote {
			out = append(out, node{entity: n.entity, path: d.Path})
			continue
		}
		if _, ok := a.entities[d.Entity]; ok {
			out = append(out, node{entity: d.Entity, path: d.Path})
		}
	}

	p := ParsePath(n.path)
	if def, ok := s.defs[p.Name]; ok {
		for _, ip := range def.implicitDependents(p) {
			out = append(out, node{entity: n.entity, path: ip.Key()})
		}
	}
	return out
}

func (a *Accessor) recompute(n node) {
	s, ok := a.entities[n.entity]
	if !ok {
		return
	}
	v := s.refresh(ParsePath(n.path))

	for _, d := range s.graph.dependents(n.path) {
		if !d.Remote {
			continue
		}
		if target, ok := a.entities[d.Entity]; ok {
			target.cache[n.path+AliasSeparator+d.Alias] = v
		}
	}
}
