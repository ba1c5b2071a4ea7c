package stat

// Modifiable is a single accumulator: a base value, literal contributions and
// formula contributions, folded by its relationship.
//
// Literals are kept in insertion order instead of being folded into the base
// on arrival, so removing the last added literal restores the previous value
// bit for bit.
type Modifiable struct {
	rel      Relationship
	base     float64
	literals []float64
	exprs    []*Expression
}

func newModifiable(rel Relationship) *Modifiable {
	return &Modifiable{rel: rel, base: rel.Identity()}
}

// Relationship returns how contributions combine.
func (m *Modifiable) Relationship() Relationship {
	return m.rel
}

func (m *Modifiable) add(mod Modifier) {
	if mod.IsExpression() {
		m.exprs = append(m.exprs, mod.Expression())
		return
	}
	m.literals = append(m.literals, mod.Value())
}

// remove drops the most recently added equal contribution.
func (m *Modifiable) remove(mod Modifier) bool {
	if mod.IsExpression() {
		for i := len(m.exprs) - 1; i >= 0; i-- {
			if m.exprs[i].Equal(mod.Expression()) {
				m.exprs = append(m.exprs[:i], m.exprs[i+1:]...)
				return true
			}
		}
		return false
	}
	for i := len(m.literals) - 1; i >= 0; i-- {
		if m.literals[i] == mod.Value() {
			m.literals = append(m.literals[:i], m.literals[i+1:]...)
			return true
		}
	}
	return false
}

// set overwrites the base and discards literal contributions.
func (m *Modifiable) set(v float64) {
	m.base = v
	m.literals = nil
}

func (m *Modifiable) empty() bool {
	return len(m.literals) == 0 && len(m.exprs) == 0 && m.base == m.rel.Identity()
}

func (m *Modifiable) evaluate(vars VariableContext) float64 {
	acc := m.base
	for _, v := range m.literals {
		acc = m.rel.fold(acc, v)
	}
	for _, e := range m.exprs {
		acc = m.rel.fold(acc, e.Evaluate(vars))
	}
	return acc
}

func (r Relationship) fold(acc, v float64) float64 {
	if r == Mul {
		return acc * v
	}
	return acc + v
}
