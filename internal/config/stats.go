package config

import (
	"fmt"
	"sort"

	"github.com/udisondev/statgraph/internal/stat"
)

// StatsSection declares stat types. Exact names win over patterns; patterns
// are tried in file order.
type StatsSection struct {
	DefaultKind   string            `yaml:"default_kind"`
	Types         []StatType        `yaml:"types"`
	Relationships map[string]string `yaml:"relationships"` // "Life.Bonus": mul
	Parts         map[string]string `yaml:"parts"`         // "scale": mul
}

// StatType binds a name or a regex pattern to a kind and optional total.
type StatType struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Kind    string `yaml:"kind"`
	Total   string `yaml:"total"`
}

// Build converts the section into a stat.Config.
func (s StatsSection) Build() (*stat.Config, error) {
	cfg := stat.NewConfig()

	if s.DefaultKind != "" {
		k, err := stat.ParseKind(s.DefaultKind)
		if err != nil {
			return nil, fmt.Errorf("stats.default_kind: %w", err)
		}
		cfg.SetDefaultKind(k)
	}

	for i, t := range s.Types {
		if err := buildStatType(cfg, t); err != nil {
			return nil, fmt.Errorf("stats.types[%d]: %w", i, err)
		}
	}

	for _, path := range sortedKeys(s.Relationships) {
		rel, err := stat.ParseRelationship(s.Relationships[path])
		if err != nil {
			return nil, fmt.Errorf("stats.relationships[%s]: %w", path, err)
		}
		cfg.RegisterRelationship(path, rel)
	}
	for _, part := range sortedKeys(s.Parts) {
		rel, err := stat.ParseRelationship(s.Parts[part])
		if err != nil {
			return nil, fmt.Errorf("stats.parts[%s]: %w", part, err)
		}
		cfg.RegisterPartRelationship(part, rel)
	}

	return cfg, nil
}

func buildStatType(cfg *stat.Config, t StatType) error {
	if (t.Name == "") == (t.Pattern == "") {
		return fmt.Errorf("exactly one of name and pattern is required")
	}
	k, err := stat.ParseKind(t.Kind)
	if err != nil {
		return err
	}
	if t.Pattern != "" {
		return cfg.RegisterStatTypePattern(t.Pattern, k)
	}

	cfg.RegisterStatType(t.Name, k)
	if t.Total != "" {
		if err := cfg.RegisterTotalExpression(t.Name, t.Total); err != nil {
			return err
		}
	}
	return nil
}

// TagsSection declares tag groups and the policy used for modifier tags.
type TagsSection struct {
	Policy string     `yaml:"policy"`
	Groups []TagGroup `yaml:"groups"`
}

// TagGroup is a primary type with its subtypes and named unions of them.
type TagGroup struct {
	Name       string      `yaml:"name"`
	Tags       []string    `yaml:"tags"`
	Composites []Composite `yaml:"composites"`
}

// Composite names a union of tags of the same group.
type Composite struct {
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
}

// Build registers every group in file order, so bit assignment is stable.
func (s TagsSection) Build() (*stat.TagRegistry, stat.BitPolicy, error) {
	policy, err := stat.ParseBitPolicy(s.Policy)
	if err != nil {
		return nil, policy, fmt.Errorf("tags.policy: %w", err)
	}

	reg := stat.NewTagRegistry()
	for _, g := range s.Groups {
		reg.RegisterPrimaryType(g.Name)
		for _, tag := range g.Tags {
			if _, err := reg.RegisterSubtype(g.Name, tag); err != nil {
				return nil, policy, fmt.Errorf("tags group %q: %w", g.Name, err)
			}
		}
		for _, c := range g.Composites {
			if _, err := reg.RegisterComposite(g.Name, c.Name, c.Members...); err != nil {
				return nil, policy, fmt.Errorf("tags group %q: %w", g.Name, err)
			}
		}
	}
	return reg, policy, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
