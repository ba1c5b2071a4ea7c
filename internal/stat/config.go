package stat

import (
	"fmt"
	"regexp"
	"strings"
)

type kindPattern struct {
	re   *regexp.Regexp
	kind Kind
}

// Config is the stat-type registry consumed by stat definitions: which value
// model a stat uses, its total formula and the relationship of its parts.
//
// Build it before handing it to an Accessor; lookups are not synchronized
// with registration.
type Config struct {
	kinds         map[string]Kind
	patterns      []kindPattern
	defaultKind   Kind
	hasDefault    bool
	totals        map[string]*Expression
	relationships map[string]Relationship
	parts         map[string]Relationship
}

// NewConfig creates an empty configuration. With nothing registered, kinds
// are inferred from the first modifier a stat receives.
func NewConfig() *Config {
	return &Config{
		kinds:         make(map[string]Kind),
		totals:        make(map[string]*Expression),
		relationships: make(map[string]Relationship),
		parts:         make(map[string]Relationship),
	}
}

// RegisterStatType binds an exact stat name to a kind.
func (c *Config) RegisterStatType(name string, kind Kind) {
	c.kinds[name] = kind
}

// RegisterStatTypePattern binds every stat name matching pattern to a kind.
// Patterns are tried in registration order after exact names.
func (c *Config) RegisterStatTypePattern(pattern string, kind Kind) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("compiling stat type pattern %q: %w", pattern, err)
	}
	c.patterns = append(c.patterns, kindPattern{re: re, kind: kind})
	return nil
}

// SetDefaultKind sets the kind used when neither a name nor a pattern matches.
func (c *Config) SetDefaultKind(kind Kind) {
	c.defaultKind = kind
	c.hasDefault = true
}

// RegisterTotalExpression sets the formula combining the parts of a complex
// or tagged stat, e.g. "added * (1 + increased) * more". Part names are
// matched case-insensitively.
func (c *Config) RegisterTotalExpression(name, formula string) error {
	e, err := NewExpression(formula)
	if err != nil {
		return fmt.Errorf("total expression for %q: %w", name, err)
	}
	c.totals[name] = e
	return nil
}

// RegisterRelationship sets the relationship of "Name.Part" or of a whole
// "Name" (used by modifiable stats).
func (c *Config) RegisterRelationship(path string, rel Relationship) {
	c.relationships[path] = rel
}

// RegisterPartRelationship sets the relationship of a part name for every stat.
func (c *Config) RegisterPartRelationship(part string, rel Relationship) {
	c.parts[strings.ToLower(part)] = rel
}

// KindOf resolves the kind of a stat: exact name, then the first matching
// pattern, then the global default. ok is false when nothing is configured.
func (c *Config) KindOf(name string) (kind Kind, ok bool) {
	if k, found := c.kinds[name]; found {
		return k, true
	}
	for _, p := range c.patterns {
		if p.re.MatchString(name) {
			return p.kind, true
		}
	}
	if c.hasDefault {
		return c.defaultKind, true
	}
	return KindFlat, false
}

// TotalExpression returns the configured total formula, nil if none.
func (c *Config) TotalExpression(name string) *Expression {
	return c.totals[name]
}

// Relationship resolves how contributions to name.part combine: explicit
// "Name.Part", then the part name, then "Name", then naming convention
// (parts mentioning "more" or "less" multiply, everything else adds).
func (c *Config) Relationship(name, part string) Relationship {
	if part != "" {
		if rel, ok := c.relationships[name+PartSeparator+part]; ok {
			return rel
		}
		if rel, ok := c.parts[strings.ToLower(part)]; ok {
			return rel
		}
	}
	if rel, ok := c.relationships[name]; ok {
		return rel
	}
	return conventionalRelationship(part)
}

func conventionalRelationship(part string) Relationship {
	p := strings.ToLower(part)
	if strings.Contains(p, "more") || strings.Contains(p, "less") {
		return Mul
	}
	return Add
}

// inferKind picks a kind from the shape of the first modifier a stat gets.
func inferKind(p Path, m Modifier) Kind {
	switch {
	case p.HasTag || p.badTag != "":
		return KindTagged
	case p.Part != "":
		return KindComplex
	case m.IsExpression():
		return KindModifiable
	default:
		return KindFlat
	}
}
