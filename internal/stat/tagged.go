package stat

import (
	"sort"
	"strings"
)

// allTags is the effective mask of a modifier path written without a tag.
const allTags = ^uint32(0)

type taggedPart struct {
	name  string
	rel   Relationship
	masks map[uint32]*Modifiable
}

// value combines every accumulator of the part whose mask qualifies for q,
// in ascending mask order.
func (tp *taggedPart) value(q uint32, s scope) float64 {
	masks := make([]uint32, 0, len(tp.masks))
	for m := range tp.masks {
		if Qualifies(m, q) {
			masks = append(masks, m)
		}
	}
	sort.Slice(masks, func(i, j int) bool { return masks[i] < masks[j] })

	acc := tp.rel.Identity()
	for _, m := range masks {
		acc = tp.rel.fold(acc, tp.masks[m].evaluate(s))
	}
	return acc
}

// Tagged is a complex stat whose parts hold one accumulator per tag mask.
// Modifiers live under Name.Part.Mask; queries read Name.Part.Query or
// Name.Query and combine every modifier whose mask has all query bits.
//
// Only queried combinations are remembered, so an unbounded tag space never
// materializes in the cache.
type Tagged struct {
	partSet
	parts   map[string]*taggedPart
	queries map[string]Path
}

func modifierMask(p Path) uint32 {
	if p.HasTag {
		return p.Tag
	}
	return allTags
}

func (t *Tagged) part(name string, create bool) *taggedPart {
	key := partKey(name)
	if tp, ok := t.parts[key]; ok {
		return tp
	}
	if !create {
		return nil
	}
	if t.parts == nil {
		t.parts = make(map[string]*taggedPart)
	}
	tp := &taggedPart{name: name, rel: t.relationship(name), masks: make(map[uint32]*Modifiable)}
	t.parts[key] = tp
	t.order = append(t.order, key)
	return tp
}

func (t *Tagged) add(p Path, m Modifier) {
	tp := t.part(p.Part, true)
	mask := modifierMask(p)
	acc, ok := tp.masks[mask]
	if !ok {
		acc = newModifiable(tp.rel)
		tp.masks[mask] = acc
	}
	acc.add(m)
}

func (t *Tagged) remove(p Path, m Modifier) bool {
	tp := t.part(p.Part, false)
	if tp == nil {
		return false
	}
	mask := modifierMask(p)
	acc, ok := tp.masks[mask]
	if !ok || !acc.remove(m) {
		return false
	}
	if acc.empty() {
		delete(tp.masks, mask)
	}
	if len(tp.masks) == 0 {
		t.order = dropPart(t.parts, t.order, partKey(p.Part))
	}
	return true
}

// evaluate answers a query and remembers it, so later modifier changes know
// which cached combinations to refresh.
func (t *Tagged) evaluate(p Path, s scope) float64 {
	var q uint32
	if p.HasTag {
		q = p.Tag
	}
	t.record(p)

	if p.Part != "" {
		tp := t.part(p.Part, false)
		if tp == nil {
			return t.relationship(p.Part).Identity()
		}
		return tp.value(q, s)
	}

	values := make(map[string]float64, len(t.order))
	rels := make(map[string]Relationship, len(t.order))
	for _, key := range t.order {
		tp := t.parts[key]
		values[key] = tp.value(q, s)
		rels[key] = tp.rel
	}
	return t.combine(values, rels)
}

// record remembers p as a queried combination.
func (t *Tagged) record(p Path) {
	t.queries[p.Key()] = p.Local()
}

func (t *Tagged) queried(p Path) bool {
	_, ok := t.queries[p.Key()]
	return ok
}

// dependents returns the queries a modifier on p feeds: those over the same
// part (or over every part) whose bits the modifier mask covers.
func (t *Tagged) dependents(p Path) []Path {
	if p.Part == "" || p.badTag != "" {
		return nil
	}
	mask := modifierMask(p)
	self := p.Key()

	keys := make([]string, 0, len(t.queries))
	for k := range t.queries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Path
	for _, k := range keys {
		if k == self {
			continue
		}
		q := t.queries[k]
		if q.Part != "" && !strings.EqualFold(q.Part, p.Part) {
			continue
		}
		var qmask uint32
		if q.HasTag {
			qmask = q.Tag
		}
		if Qualifies(mask, qmask) {
			out = append(out, q)
		}
	}
	return out
}

// Queries returns the remembered query paths, sorted.
func (t *Tagged) Queries() []string {
	out := make([]string, 0, len(t.queries))
	for k := range t.queries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
