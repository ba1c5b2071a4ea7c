package stat

import (
	"fmt"
	"strconv"
	"strings"
)

// Modifier is a contribution to a stat: either a literal number or a formula.
// The zero value is the literal 0.
type Modifier struct {
	literal float64
	expr    *Expression
}

// Literal creates a literal modifier.
func Literal(v float64) Modifier {
	return Modifier{literal: v}
}

// Formula compiles text into an expression modifier.
func Formula(text string) (Modifier, error) {
	e, err := NewExpression(text)
	if err != nil {
		return Modifier{}, err
	}
	return Modifier{expr: e}, nil
}

// MustFormula is like Formula but panics on error.
func MustFormula(text string) Modifier {
	m, err := Formula(text)
	if err != nil {
		panic(err)
	}
	return m
}

// FromExpression wraps an already compiled expression.
func FromExpression(e *Expression) Modifier {
	return Modifier{expr: e}
}

// ParseModifier reads a numeric literal when possible, a formula otherwise.
func ParseModifier(text string) (Modifier, error) {
	if v, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
		return Literal(v), nil
	}
	return Formula(text)
}

// IsExpression reports whether the modifier is a formula.
func (m Modifier) IsExpression() bool {
	return m.expr != nil
}

// Value returns the literal value; 0 for formulas.
func (m Modifier) Value() float64 {
	return m.literal
}

// Expression returns the formula, nil for literals.
func (m Modifier) Expression() *Expression {
	return m.expr
}

// Equal compares literals by value and formulas by source.
func (m Modifier) Equal(other Modifier) bool {
	if m.IsExpression() != other.IsExpression() {
		return false
	}
	if m.IsExpression() {
		return m.expr.Equal(other.expr)
	}
	return m.literal == other.literal
}

func (m Modifier) String() string {
	if m.expr != nil {
		return m.expr.Source()
	}
	return strconv.FormatFloat(m.literal, 'g', -1, 64)
}

// Relationship is how the contributions of one accumulator combine.
type Relationship uint8

const (
	Add Relationship = iota
	Mul
)

func (r Relationship) String() string {
	if r == Mul {
		return "mul"
	}
	return "add"
}

// Identity is the value of an accumulator with no contributions.
func (r Relationship) Identity() float64 {
	if r == Mul {
		return 1
	}
	return 0
}

// ParseRelationship accepts "add" or "mul".
func ParseRelationship(s string) (Relationship, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "add", "sum", "":
		return Add, nil
	case "mul", "product":
		return Mul, nil
	default:
		return Add, fmt.Errorf("unknown relationship %q", s)
	}
}

// Kind selects the value model of a stat.
type Kind uint8

const (
	KindFlat Kind = iota
	KindModifiable
	KindComplex
	KindTagged
)

func (k Kind) String() string {
	switch k {
	case KindFlat:
		return "flat"
	case KindModifiable:
		return "modifiable"
	case KindComplex:
		return "complex"
	case KindTagged:
		return "tagged"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind accepts the kind names case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "flat", "simple":
		return KindFlat, nil
	case "modifiable":
		return KindModifiable, nil
	case "complex":
		return KindComplex, nil
	case "tagged":
		return KindTagged, nil
	default:
		return KindFlat, fmt.Errorf("unknown stat kind %q", s)
	}
}
