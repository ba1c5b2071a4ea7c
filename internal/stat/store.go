package stat

import (
	"log/slog"
	"sort"
)

// Stats is the stat store of one entity: definitions by base name, the
// evaluation cache, the dependency graph rooted at this entity's stats and
// the source aliases it reads foreign stats through.
//
// Not thread-safe on its own; the Accessor serializes access.
type Stats struct {
	id  EntityID
	cfg *Config

	defs    map[string]*Definition
	cache   map[string]float64
	graph   *DependencyGraph
	sources map[string]EntityID

	// exprs holds the formula modifiers per modified path, a multiset.
	exprs map[string][]*Expression
	// mirrors counts the references to each Path@Alias cache slot.
	mirrors map[string]int

	evaluating map[string]bool
}

func newStats(id EntityID, cfg *Config) *Stats {
	return &Stats{
		id:         id,
		cfg:        cfg,
		defs:       make(map[string]*Definition),
		cache:      make(map[string]float64),
		graph:      newDependencyGraph(),
		sources:    make(map[string]EntityID),
		exprs:      make(map[string][]*Expression),
		mirrors:    make(map[string]int),
		evaluating: make(map[string]bool),
	}
}

// ID returns the owning entity.
func (s *Stats) ID() EntityID {
	return s.id
}

// Definition returns the definition of a base stat name.
func (s *Stats) Definition(name string) (*Definition, bool) {
	d, ok := s.defs[name]
	return d, ok
}

// kindFor resolves the kind a new definition gets.
func (s *Stats) kindFor(p Path, m Modifier) Kind {
	if k, ok := s.cfg.KindOf(p.Name); ok {
		return k
	}
	return inferKind(p, m)
}

// Variable resolves a formula variable. An aliased name reads its mirrored
// slot; a local one is served from the cache or evaluated on demand.
func (s *Stats) Variable(name string) (float64, bool) {
	vp := ParsePath(name)
	if vp.Alias != "" {
		v, ok := s.cache[vp.String()]
		return v, ok
	}
	if v, ok := s.cache[vp.Key()]; ok {
		return v, true
	}
	if _, ok := s.defs[vp.Name]; !ok {
		return 0, false
	}
	return s.evaluate(vp), true
}

func (s *Stats) cacheValue(key string, v float64) {
	s.cache[key] = v
}

// evaluate recomputes p and caches the result. A re-entrant request for a
// path already being evaluated is a cycle; it reads the cached value.
func (s *Stats) evaluate(p Path) float64 {
	key := p.Key()
	def, ok := s.defs[p.Name]
	if !ok {
		return 0
	}
	if s.evaluating[key] {
		slog.Debug("breaking dependency cycle during evaluation",
			"entity", s.id, "path", key, "err", ErrDependencyCycle)
		return s.cache[key]
	}

	s.evaluating[key] = true
	v := def.evaluate(p, s)
	delete(s.evaluating, key)

	if def.cacheable(p) {
		s.cache[key] = v
	}
	return v
}

// read returns the cached value of p, evaluating it when missing.
func (s *Stats) read(p Path) float64 {
	if v, ok := s.cache[p.Key()]; ok {
		return v
	}
	return s.evaluate(p)
}

// refresh recomputes p during propagation. A path that may not be cached,
// such as an un-queried tag combination or a removed part, loses any stale
// entry instead.
func (s *Stats) refresh(p Path) float64 {
	def, ok := s.defs[p.Name]
	if !ok {
		delete(s.cache, p.Key())
		return 0
	}
	if !def.cacheable(p) {
		delete(s.cache, p.Key())
		return def.uncached(p, s)
	}
	return s.evaluate(p)
}

// adopt records as queries the paths of a new tagged definition that
// formulas already read, here or from other entities, so modifiers added
// later reach them.
func (s *Stats) adopt(def *Definition) {
	if def.kind != KindTagged {
		return
	}
	for _, key := range s.graph.keys() {
		p := ParsePath(key)
		if p.Name == def.name && p.badTag == "" {
			def.tagged.record(p)
		}
	}
}

// forget drops a definition whose modifiers are all gone, with every value
// cached for it. It returns the keys formulas read from the stat; sweeping
// them shows readers the stat as undefined again.
func (s *Stats) forget(name string) []string {
	delete(s.defs, name)
	for k := range s.cache {
		if p := ParsePath(k); p.Alias == "" && p.Name == name {
			delete(s.cache, k)
		}
	}

	var keys []string
	for _, k := range s.graph.keys() {
		if ParsePath(k).Name == name {
			keys = append(keys, k)
		}
	}
	return keys
}

func (s *Stats) addExpression(key string, e *Expression) {
	s.exprs[key] = append(s.exprs[key], e)
}

func (s *Stats) removeExpression(key string, e *Expression) {
	list := s.exprs[key]
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].Equal(e) {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(s.exprs, key)
		return
	}
	s.exprs[key] = list
}

// aliasRef is one variable of one formula read through an alias.
type aliasRef struct {
	local string
	vp    Path
}

// aliasRefs lists every variable reference through alias, one entry per
// formula modifier, in a stable order.
func (s *Stats) aliasRefs(alias string) []aliasRef {
	keys := make([]string, 0, len(s.exprs))
	for k := range s.exprs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []aliasRef
	for _, k := range keys {
		for _, e := range s.exprs[k] {
			for _, name := range e.Variables() {
				vp := ParsePath(name)
				if vp.Name != "" && vp.Alias == alias {
					out = append(out, aliasRef{local: k, vp: vp})
				}
			}
		}
	}
	return out
}

func (s *Stats) snapshot() map[string]float64 {
	out := make(map[string]float64, len(s.cache))
	for k, v := range s.cache {
		out[k] = v
	}
	return out
}
