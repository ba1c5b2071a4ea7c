// Package stat implements a reactive stat graph for game entities: stat
// definitions fed by literal and formula modifiers, a per-entity value cache,
// and reference-counted dependency edges (local and cross-entity) along which
// changes propagate.
package stat

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Accessor owns the stat stores of every entity and is the only way to
// mutate them. Mutations run the propagation sweep before returning, so a
// Get after any call observes fully propagated values.
//
// Thread-safe: Get and the read-only introspection methods take a read
// lock; every mutation (including Evaluate, which writes the cache) takes
// the write lock for its whole sweep.
type Accessor struct {
	mu       sync.RWMutex
	cfg      *Config
	entities map[EntityID]*Stats
}

// NewAccessor creates an accessor. A nil config infers kinds from modifiers.
func NewAccessor(cfg *Config) *Accessor {
	if cfg == nil {
		cfg = NewConfig()
	}
	return &Accessor{
		cfg:      cfg,
		entities: make(map[EntityID]*Stats),
	}
}

// Config returns the stat-type registry used for new definitions.
func (a *Accessor) Config() *Config {
	return a.cfg
}

// InsertEntity creates an empty stat store. Inserting twice is a no-op.
func (a *Accessor) InsertEntity(id EntityID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.entities[id]; ok {
		return
	}
	a.entities[id] = newStats(id, a.cfg)
}

// HasEntity reports whether the entity has a stat store.
func (a *Accessor) HasEntity(id EntityID) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	_, ok := a.entities[id]
	return ok
}

// Entities returns every entity with a stat store, ascending.
func (a *Accessor) Entities() []EntityID {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]EntityID, 0, len(a.entities))
	for id := range a.entities {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Get reads the cache only. A missing entity or path reads 0.
func (a *Accessor) Get(id EntityID, path string) float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.entities[id]
	if !ok {
		return 0
	}
	return s.cache[ParsePath(path).String()]
}

// Evaluate recomputes exactly this stat, caches it and returns it.
// Dependents are not refreshed. An aliased path reads its mirrored slot.
func (a *Accessor) Evaluate(id EntityID, path string) (float64, error) {
	p := ParsePath(path)
	if p.Name == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStatPath, path)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.entities[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrEntityNotFound, id)
	}
	if p.Alias != "" {
		return s.cache[p.String()], nil
	}
	return s.evaluate(p), nil
}

// Snapshot copies the cache of an entity; nil when the entity is unknown.
func (a *Accessor) Snapshot(id EntityID) map[string]float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.entities[id]
	if !ok {
		return nil
	}
	return s.snapshot()
}

// Dependents lists the edges registered on an entity for a path.
func (a *Accessor) Dependents(id EntityID, path string) []Edge {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.entities[id]
	if !ok {
		return nil
	}
	return s.graph.edgesOf(ParsePath(path).Key())
}

// Source returns the entity an alias of id is bound to.
func (a *Accessor) Source(id EntityID, alias string) (EntityID, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.entities[id]
	if !ok {
		return 0, false
	}
	src, ok := s.sources[alias]
	return src, ok
}

// Kind returns the kind of a defined stat.
func (a *Accessor) Kind(id EntityID, name string) (Kind, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.entities[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrEntityNotFound, id)
	}
	def, ok := s.defs[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q on entity %d", ErrStatNotFound, name, id)
	}
	return def.Kind(), nil
}

func parseModifierPath(path string) (Path, error) {
	p := ParsePath(path)
	if p.Name == "" || p.Alias != "" {
		return p, fmt.Errorf("%w: %q", ErrInvalidStatPath, path)
	}
	return p, nil
}

func (a *Accessor) stats(id EntityID) (*Stats, error) {
	s, ok := a.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrEntityNotFound, id)
	}
	return s, nil
}

// AddModifier adds a contribution to path and propagates the change.
//
// The definition of the base name is created on first use. A modifier the
// definition cannot take (a formula on a flat stat, a non-numeric tag) is
// logged and dropped without registering anything.
func (a *Accessor) AddModifier(id EntityID, path string, m Modifier) error {
	p, err := parseModifierPath(path)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.addModifier(id, p, m)
}

func (a *Accessor) addModifier(id EntityID, p Path, m Modifier) error {
	s, err := a.stats(id)
	if err != nil {
		return err
	}

	def, exists := s.defs[p.Name]
	if !exists {
		def = newDefinition(p.Name, s.kindFor(p, m), a.cfg)
	}
	if err := def.accepts(p, m); err != nil {
		if errors.Is(err, ErrInvalidStatPath) {
			return err
		}
		slog.Warn("modifier rejected", "entity", id, "path", p.String(), "modifier", m.String(), "err", err)
		return nil
	}
	if !exists {
		s.defs[p.Name] = def
		s.adopt(def)
	}

	key := p.Key()
	if m.IsExpression() {
		a.bind(s, key, m.Expression())
		s.addExpression(key, m.Expression())
	}
	def.addModifier(p, m)

	a.propagate(node{entity: id, path: key})
	return nil
}

// RemoveModifier removes one contribution equal to m from path and
// propagates. Removing a modifier that was never added, or that the stat
// would have rejected, is a no-op. A stat left without modifiers is dropped,
// so it reads exactly as before its first modifier.
func (a *Accessor) RemoveModifier(id EntityID, path string, m Modifier) error {
	p, err := parseModifierPath(path)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.removeModifier(id, p, m)
}

func (a *Accessor) removeModifier(id EntityID, p Path, m Modifier) error {
	s, err := a.stats(id)
	if err != nil {
		return err
	}
	def, ok := s.defs[p.Name]
	if !ok {
		return fmt.Errorf("%w: %q on entity %d", ErrStatNotFound, p.Name, id)
	}
	if err := def.accepts(p, m); err != nil {
		if errors.Is(err, ErrInvalidStatPath) {
			return err
		}
		slog.Debug("modifier could not have been added", "entity", id, "path", p.String(), "modifier", m.String(), "err", err)
		return nil
	}
	if !def.removeModifier(p, m) {
		slog.Debug("modifier not present", "entity", id, "path", p.String(), "modifier", m.String())
		return nil
	}

	key := p.Key()
	if m.IsExpression() {
		s.removeExpression(key, m.Expression())
		a.unbind(s, key, m.Expression())
	}

	roots := []node{{entity: id, path: key}}
	if def.empty() {
		for _, k := range s.forget(p.Name) {
			roots = append(roots, node{entity: id, path: k})
		}
	}
	a.propagate(roots...)
	return nil
}

// Set overwrites the value of a flat stat, creating it when needed.
func (a *Accessor) Set(id EntityID, path string, v float64) error {
	p, err := parseModifierPath(path)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.stats(id)
	if err != nil {
		return err
	}
	def, ok := s.defs[p.Name]
	if !ok {
		kind := KindFlat
		if k, configured := a.cfg.KindOf(p.Name); configured {
			kind = k
		}
		def = newDefinition(p.Name, kind, a.cfg)
		if kind == KindFlat {
			s.defs[p.Name] = def
		}
	}
	if err := def.set(v); err != nil {
		return err
	}

	a.propagate(node{entity: id, path: p.Key()})
	return nil
}

// RegisterSource binds alias on id to the source entity. Every formula on
// id already reading through alias is re-linked to the new source and its
// stats are recomputed.
func (a *Accessor) RegisterSource(id EntityID, alias string, source EntityID) error {
	if alias == "" {
		return fmt.Errorf("%w: empty alias", ErrInvalidStatPath)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.stats(id)
	if err != nil {
		return err
	}
	if _, err := a.stats(source); err != nil {
		return fmt.Errorf("source %q: %w", alias, err)
	}

	old, had := s.sources[alias]
	if had && old == source {
		return nil
	}

	refs := s.aliasRefs(alias)
	if had {
		for _, r := range refs {
			a.unlink(s, old, r.local, r.vp)
		}
	}
	s.sources[alias] = source
	for _, r := range refs {
		a.link(s, source, r.local, r.vp)
	}

	a.propagate(refRoots(id, refs)...)
	return nil
}

// UnregisterSource removes an alias binding. Formulas reading through it
// keep their references and see 0 until the alias is registered again.
func (a *Accessor) UnregisterSource(id EntityID, alias string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.stats(id)
	if err != nil {
		return err
	}
	old, had := s.sources[alias]
	if !had {
		return nil
	}

	refs := s.aliasRefs(alias)
	for _, r := range refs {
		a.unlink(s, old, r.local, r.vp)
		delete(s.cache, r.vp.String())
	}
	delete(s.sources, alias)

	a.propagate(refRoots(id, refs)...)
	return nil
}

// RemoveStatEntity tears down the stat store of id. Stats on other entities
// reading from it lose their mirrored values and are recomputed; their alias
// bindings to id are dropped so a later RegisterSource re-links them.
func (a *Accessor) RemoveStatEntity(id EntityID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.stats(id)
	if err != nil {
		return err
	}

	var roots []node
	for _, key := range s.graph.keys() {
		for _, d := range s.graph.dependents(key) {
			if !d.Remote || d.Entity == id {
				continue
			}
			target, ok := a.entities[d.Entity]
			if !ok {
				continue
			}
			delete(target.cache, key+AliasSeparator+d.Alias)
			roots = append(roots, node{entity: d.Entity, path: d.Path})
		}
	}

	for _, other := range a.sortedStats() {
		if other.id == id {
			continue
		}
		for alias, src := range other.sources {
			if src == id {
				delete(other.sources, alias)
			}
		}
	}

	for _, src := range s.sources {
		if src == id {
			continue
		}
		if other, ok := a.entities[src]; ok {
			other.graph.prune(func(_ string, d Dependent) bool {
				return d.Remote && d.Entity == id
			})
		}
	}

	delete(a.entities, id)
	a.propagate(roots...)

	slog.Debug("stat entity removed", "entity", id, "dependents", len(roots))
	return nil
}

func (a *Accessor) sortedStats() []*Stats {
	out := make([]*Stats, 0, len(a.entities))
	for _, s := range a.entities {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// bind registers the edges of a formula added to key on owner. Local
// variables get a local edge; aliased ones get a mirrored slot and, when
// the alias is bound, an edge on the source entity.
func (a *Accessor) bind(owner *Stats, key string, e *Expression) {
	for _, name := range e.Variables() {
		vp := ParsePath(name)
		if vp.Name == "" {
			continue
		}
		if vp.Alias == "" {
			owner.graph.add(vp.Key(), LocalDependent(key))
			continue
		}

		owner.mirrors[vp.String()]++
		src, ok := owner.sources[vp.Alias]
		if !ok {
			slog.Debug("alias not bound yet", "entity", owner.id, "path", key,
				"variable", name, "err", ErrMissingSource)
			continue
		}
		a.link(owner, src, key, vp)
	}
}

// unbind reverses bind.
func (a *Accessor) unbind(owner *Stats, key string, e *Expression) {
	for _, name := range e.Variables() {
		vp := ParsePath(name)
		if vp.Name == "" {
			continue
		}
		if vp.Alias == "" {
			owner.graph.remove(vp.Key(), LocalDependent(key))
			continue
		}

		if src, ok := owner.sources[vp.Alias]; ok {
			a.unlink(owner, src, key, vp)
		}
		mirror := vp.String()
		owner.mirrors[mirror]--
		if owner.mirrors[mirror] <= 0 {
			delete(owner.mirrors, mirror)
			delete(owner.cache, mirror)
		}
	}
}

// link registers the foreign edge for one aliased variable and fills the
// mirrored slot with the source's current value. Both sides always exist
// together.
func (a *Accessor) link(owner *Stats, srcID EntityID, key string, vp Path) {
	src, ok := a.entities[srcID]
	if !ok {
		return
	}
	src.graph.add(vp.Key(), EntityDependent(owner.id, key, vp.Alias))
	owner.cache[vp.String()] = src.read(vp.Local())
}

func (a *Accessor) unlink(owner *Stats, srcID EntityID, key string, vp Path) {
	src, ok := a.entities[srcID]
	if !ok {
		return
	}
	src.graph.remove(vp.Key(), EntityDependent(owner.id, key, vp.Alias))
}

func refRoots(id EntityID, refs []aliasRef) []node {
	roots := make([]node, 0, len(refs))
	for _, r := range refs {
		roots = append(roots, node{entity: id, path: r.local})
	}
	return roots
}
