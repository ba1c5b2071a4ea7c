package stat

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// VariableContext supplies values for the variables a formula references.
type VariableContext interface {
	Variable(name string) (float64, bool)
}

// Variables is a VariableContext backed by a plain map.
type Variables map[string]float64

func (v Variables) Variable(name string) (float64, bool) {
	val, ok := v[name]
	return val, ok
}

// Expression is a compiled formula such as "Strength.Added * 0.5 + Level".
//
// Stat paths are not valid identifiers for the underlying engine (dots,
// numeric tags, '@'), so every referenced path is replaced by a placeholder
// before compilation and mapped back when the formula is evaluated.
type Expression struct {
	source  string
	program *vm.Program
	names   []string // referenced variables as written, in order of first use
	idents  []string // engine identifier per name
}

// NewExpression compiles a formula.
func NewExpression(text string) (*Expression, error) {
	return compileExpression(text)
}

// MustExpression is like NewExpression but panics on error.
// Intended for formulas known at compile time.
func MustExpression(text string) *Expression {
	e, err := NewExpression(text)
	if err != nil {
		panic(err)
	}
	return e
}

func compileExpression(text string, opts ...expr.Option) (*Expression, error) {
	source := strings.TrimSpace(text)
	if source == "" {
		return nil, fmt.Errorf("%w: empty formula", ErrExpression)
	}

	code, names := rewriteIdentifiers(source)
	idents := make([]string, len(names))
	env := make(map[string]any, len(names))
	for i := range names {
		idents[i] = placeholder(i)
		env[idents[i]] = float64(0)
	}

	options := append([]expr.Option{expr.Env(env)}, opts...)
	program, err := expr.Compile(code, options...)
	if err != nil {
		return nil, fmt.Errorf("%w: compiling %q: %v", ErrExpression, source, err)
	}

	return &Expression{
		source:  source,
		program: program,
		names:   names,
		idents:  idents,
	}, nil
}

// Source returns the formula text.
func (e *Expression) Source() string {
	return e.source
}

func (e *Expression) String() string {
	return e.source
}

// Variables returns the referenced variable names, deduplicated.
func (e *Expression) Variables() []string {
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out
}

// References reports whether the formula reads the given variable name.
func (e *Expression) References(name string) bool {
	for _, n := range e.names {
		if n == name {
			return true
		}
	}
	return false
}

// Equal compares formulas by their source text.
func (e *Expression) Equal(other *Expression) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.source == other.source
}

// Evaluate runs the formula. Variables missing from vars read as 0.0 and a
// runtime failure yields 0.0.
func (e *Expression) Evaluate(vars VariableContext) float64 {
	out, err := expr.Run(e.program, e.env(vars))
	if err != nil {
		slog.Debug("formula evaluation failed", "formula", e.source, "err", err)
		return 0
	}
	return toFloat(out)
}

func (e *Expression) env(vars VariableContext) map[string]any {
	env := make(map[string]any, len(e.names))
	for i, name := range e.names {
		var v float64
		if vars != nil {
			if val, ok := vars.Variable(name); ok {
				v = val
			}
		}
		env[e.idents[i]] = v
	}
	return env
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case uint:
		return float64(n)
	case uint64:
		return float64(n)
	case uint32:
		return float64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func placeholder(i int) string {
	return "v" + strconv.Itoa(i)
}

var engineKeywords = map[string]struct{}{
	"true": {}, "false": {}, "nil": {},
	"and": {}, "or": {}, "not": {}, "in": {},
	"matches": {}, "contains": {}, "startsWith": {}, "endsWith": {},
	"let": {}, "if": {}, "else": {},
}

// rewriteIdentifiers replaces every stat path in the formula with a
// placeholder identifier. Function names, keywords, numbers and string
// literals are kept verbatim.
func rewriteIdentifiers(source string) (string, []string) {
	rs := []rune(source)
	var out strings.Builder
	var names []string
	index := make(map[string]int)

	for i := 0; i < len(rs); {
		c := rs[i]
		switch {
		case c == '"' || c == '\'' || c == '`':
			j := i + 1
			for j < len(rs) && rs[j] != c {
				if rs[j] == '\\' {
					j++
				}
				j++
			}
			if j < len(rs) {
				j++
			}
			out.WriteString(string(rs[i:min(j, len(rs))]))
			i = j

		case unicode.IsDigit(c) || (c == '.' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			j := i
			for j < len(rs) {
				r := rs[j]
				if (r == 'e' || r == 'E') && j+1 < len(rs) && (rs[j+1] == '+' || rs[j+1] == '-') {
					j += 2
					continue
				}
				if unicode.IsDigit(r) || unicode.IsLetter(r) || r == '.' || r == '_' {
					j++
					continue
				}
				break
			}
			out.WriteString(string(rs[i:j]))
			i = j

		case unicode.IsLetter(c) || c == '_':
			j := i
			for j < len(rs) && isPathRune(rs[j]) {
				j++
			}
			token := string(rs[i:j])
			if _, kw := engineKeywords[token]; kw || followedByCall(rs, j) {
				out.WriteString(token)
				i = j
				continue
			}
			n, ok := index[token]
			if !ok {
				n = len(names)
				index[token] = n
				names = append(names, token)
			}
			out.WriteString(placeholder(n))
			i = j

		default:
			out.WriteRune(c)
			i++
		}
	}
	return out.String(), names
}

func isPathRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '@'
}

func followedByCall(rs []rune, j int) bool {
	for j < len(rs) && unicode.IsSpace(rs[j]) {
		j++
	}
	return j < len(rs) && rs[j] == '('
}
