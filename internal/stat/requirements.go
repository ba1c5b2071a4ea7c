package stat

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// Requirement is a boolean condition over stats, e.g.
// "Strength >= 10 && Level > 3".
type Requirement struct {
	expr *Expression
}

// NewRequirement compiles a condition. Formulas that do not yield a boolean
// are rejected.
func NewRequirement(text string) (*Requirement, error) {
	e, err := compileExpression(text, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("requirement: %w", err)
	}
	return &Requirement{expr: e}, nil
}

func (r *Requirement) String() string {
	return r.expr.Source()
}

// Met evaluates the condition. Missing variables read 0.
func (r *Requirement) Met(vars VariableContext) bool {
	return r.expr.Evaluate(vars) != 0
}

// Requirements must all hold.
type Requirements []*Requirement

// ParseRequirements compiles every condition.
func ParseRequirements(texts ...string) (Requirements, error) {
	out := make(Requirements, 0, len(texts))
	for _, t := range texts {
		r, err := NewRequirement(t)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Met checks every requirement against the cached stats of an entity.
func (rs Requirements) Met(a *Accessor, id EntityID) bool {
	return len(rs.Unmet(a, id)) == 0
}

// Unmet returns the conditions that do not hold.
func (rs Requirements) Unmet(a *Accessor, id EntityID) []string {
	view := a.View(id)
	var out []string
	for _, r := range rs {
		if !r.Met(view) {
			out = append(out, r.String())
		}
	}
	return out
}

// View returns a VariableContext reading the cache of an entity.
func (a *Accessor) View(id EntityID) VariableContext {
	return cacheView{a: a, id: id}
}

type cacheView struct {
	a  *Accessor
	id EntityID
}

func (v cacheView) Variable(name string) (float64, bool) {
	v.a.mu.RLock()
	defer v.a.mu.RUnlock()

	s, ok := v.a.entities[v.id]
	if !ok {
		return 0, false
	}
	val, ok := s.cache[ParsePath(name).String()]
	return val, ok
}
