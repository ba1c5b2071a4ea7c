package stat

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// scope is what a definition needs from its owning store while evaluating:
// variable lookup for formulas and a place to memoize part values.
type scope interface {
	VariableContext
	cacheValue(key string, v float64)
}

// Definition is the value model of one stat name on one entity. Exactly one
// of the variant fields is set, selected by kind.
type Definition struct {
	name string
	kind Kind

	flat       *Modifiable
	modifiable *Modifiable
	complex    *Complex
	tagged     *Tagged
}

func newDefinition(name string, kind Kind, cfg *Config) *Definition {
	d := &Definition{name: name, kind: kind}
	switch kind {
	case KindFlat:
		d.flat = newModifiable(Add)
	case KindModifiable:
		d.modifiable = newModifiable(cfg.Relationship(name, ""))
	case KindComplex:
		d.complex = &Complex{partSet: newPartSet(name, cfg)}
	case KindTagged:
		d.tagged = &Tagged{partSet: newPartSet(name, cfg), queries: make(map[string]Path)}
	}
	return d
}

// Kind returns the value model.
func (d *Definition) Kind() Kind {
	return d.kind
}

// Name returns the stat name the definition is keyed by.
func (d *Definition) Name() string {
	return d.name
}

// accepts validates a modifier before any dependency is registered for it,
// so that a rejected modifier leaves no edges behind.
func (d *Definition) accepts(p Path, m Modifier) error {
	if p.badTag != "" {
		return fmt.Errorf("%w: %q in %q", ErrInvalidTagFormat, p.badTag, p.Full)
	}
	switch d.kind {
	case KindFlat:
		if m.IsExpression() {
			return fmt.Errorf("flat stat %q takes literal modifiers only, got %q", d.name, m)
		}
	case KindComplex:
		if p.Part == "" {
			return fmt.Errorf("%w: complex stat %q needs a part in %q", ErrInvalidStatPath, d.name, p)
		}
	case KindTagged:
		if p.Part == "" {
			return fmt.Errorf("%w: tagged stat %q needs a part in %q", ErrInvalidStatPath, d.name, p)
		}
	}
	return nil
}

func (d *Definition) addModifier(p Path, m Modifier) {
	switch d.kind {
	case KindFlat:
		d.flat.add(m)
	case KindModifiable:
		d.modifiable.add(m)
	case KindComplex:
		d.complex.add(p, m)
	case KindTagged:
		d.tagged.add(p, m)
	}
}

func (d *Definition) removeModifier(p Path, m Modifier) bool {
	switch d.kind {
	case KindFlat:
		return d.flat.remove(m)
	case KindModifiable:
		return d.modifiable.remove(m)
	case KindComplex:
		return d.complex.remove(p, m)
	case KindTagged:
		return d.tagged.remove(p, m)
	}
	return false
}

func (d *Definition) set(v float64) error {
	if d.kind != KindFlat {
		return fmt.Errorf("%w: %q is %s", ErrNotSettable, d.name, d.kind)
	}
	d.flat.set(v)
	return nil
}

func (d *Definition) evaluate(p Path, s scope) float64 {
	if p.badTag != "" {
		slog.Debug("ignoring malformed tag", "path", p.Full, "tag", p.badTag, "err", ErrInvalidTagFormat)
		return d.identity(p)
	}
	switch d.kind {
	case KindFlat:
		return d.flat.evaluate(s)
	case KindModifiable:
		return d.modifiable.evaluate(s)
	case KindComplex:
		return d.complex.evaluate(p, s)
	case KindTagged:
		return d.tagged.evaluate(p, s)
	}
	return 0
}

// identity is the value of a path that addresses nothing: the identity of
// its part's relationship, or 0.
func (d *Definition) identity(p Path) float64 {
	switch {
	case p.Part == "":
		return 0
	case d.kind == KindComplex:
		return d.complex.relationship(p.Part).Identity()
	case d.kind == KindTagged:
		return d.tagged.relationship(p.Part).Identity()
	}
	return 0
}

// cacheable reports whether evaluating p may create a cache entry. Paths
// with a malformed tag never do, complex parts only once they exist, and
// tagged stats only cache combinations that have been queried.
func (d *Definition) cacheable(p Path) bool {
	if p.badTag != "" {
		return false
	}
	switch d.kind {
	case KindComplex:
		return p.Part == "" || d.complex.part(p.Part, false) != nil
	case KindTagged:
		return d.tagged.queried(p)
	}
	return true
}

// uncached is what a sweep reports for a path it may not cache. Un-queried
// tag combinations read 0 so the sweep never turns them into queries.
func (d *Definition) uncached(p Path, s scope) float64 {
	if d.kind == KindTagged {
		return 0
	}
	return d.evaluate(p, s)
}

// empty reports whether every modifier is gone and nothing was set, so the
// stat is indistinguishable from one never defined.
func (d *Definition) empty() bool {
	switch d.kind {
	case KindFlat:
		return d.flat.empty()
	case KindModifiable:
		return d.modifiable.empty()
	case KindComplex:
		return len(d.complex.parts) == 0
	case KindTagged:
		return len(d.tagged.parts) == 0
	}
	return false
}

// implicitDependents lists the paths of the same stat whose value is derived
// from p without any formula edge: the total of a complex stat depends on
// its parts, and tagged queries depend on the modifiers qualifying for them.
func (d *Definition) implicitDependents(p Path) []Path {
	switch d.kind {
	case KindTagged:
		return d.tagged.dependents(p)
	default:
		if p.IsBase() {
			return nil
		}
		var out []Path
		if p.HasTag && p.Part != "" {
			out = append(out, Path{Name: p.Name, Part: p.Part})
		}
		return append(out, p.Base())
	}
}

// partSet is the shared shape of complex and tagged stats: named parts,
// combined by a total formula.
type partSet struct {
	name  string
	cfg   *Config
	total *Expression
	order []string // part keys in creation order
}

func newPartSet(name string, cfg *Config) partSet {
	return partSet{name: name, cfg: cfg, total: cfg.TotalExpression(name)}
}

func partKey(part string) string {
	return strings.ToLower(part)
}

func (ps *partSet) relationship(part string) Relationship {
	return ps.cfg.Relationship(ps.name, part)
}

// combine feeds per-part values (keyed by partKey) into the total formula.
// Variables naming no part take the identity of their relationship. With no
// total configured, additive parts are summed and multiplied by the product
// of the multiplicative ones.
func (ps *partSet) combine(values map[string]float64, rels map[string]Relationship) float64 {
	if ps.total != nil {
		vars := make(Variables, len(values))
		for _, n := range ps.total.Variables() {
			if v, ok := values[partKey(n)]; ok {
				vars[n] = v
				continue
			}
			vars[n] = ps.relationship(n).Identity()
		}
		return ps.total.Evaluate(vars)
	}

	sum, product := 0.0, 1.0
	hasSum := false
	for _, key := range ps.order {
		v, ok := values[key]
		if !ok {
			continue
		}
		if rels[key] == Mul {
			product *= v
			continue
		}
		sum += v
		hasSum = true
	}
	if !hasSum {
		if len(values) == 0 {
			return 0
		}
		return product
	}
	return sum * product
}

type complexPart struct {
	name string
	acc  *Modifiable
}

// Complex is a stat made of named parts ("Added", "Increased", "More"), each
// a Modifiable, combined by a total formula.
type Complex struct {
	partSet
	parts map[string]*complexPart
}

func (c *Complex) part(name string, create bool) *complexPart {
	key := partKey(name)
	if pt, ok := c.parts[key]; ok {
		return pt
	}
	if !create {
		return nil
	}
	if c.parts == nil {
		c.parts = make(map[string]*complexPart)
	}
	pt := &complexPart{name: name, acc: newModifiable(c.relationship(name))}
	c.parts[key] = pt
	c.order = append(c.order, key)
	return pt
}

func (c *Complex) add(p Path, m Modifier) {
	c.part(p.Part, true).acc.add(m)
}

func (c *Complex) remove(p Path, m Modifier) bool {
	pt := c.part(p.Part, false)
	if pt == nil || !pt.acc.remove(m) {
		return false
	}
	if pt.acc.empty() {
		c.order = dropPart(c.parts, c.order, partKey(p.Part))
	}
	return true
}

// dropPart forgets an emptied part so it reads as never created.
func dropPart[T any](parts map[string]T, order []string, key string) []string {
	delete(parts, key)
	return slices.DeleteFunc(order, func(k string) bool { return k == key })
}

// evaluate returns one part for Name.Part. For the whole stat it evaluates
// every part, caches each under Name.Part and combines them.
func (c *Complex) evaluate(p Path, s scope) float64 {
	if p.Part != "" {
		pt := c.part(p.Part, false)
		if pt == nil {
			return c.relationship(p.Part).Identity()
		}
		return pt.acc.evaluate(s)
	}

	values := make(map[string]float64, len(c.order))
	rels := make(map[string]Relationship, len(c.order))
	for _, key := range c.order {
		pt := c.parts[key]
		v := pt.acc.evaluate(s)
		s.cacheValue(c.name+PartSeparator+pt.name, v)
		values[key] = v
		rels[key] = pt.acc.Relationship()
	}
	return c.combine(values, rels)
}

// Parts returns part names in creation order.
func (c *Complex) Parts() []string {
	out := make([]string, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.parts[key].name)
	}
	return out
}
