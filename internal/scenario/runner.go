package scenario

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/udisondev/statgraph/internal/config"
	"github.com/udisondev/statgraph/internal/stat"
	"github.com/udisondev/statgraph/internal/world"
)

// Env is the stat configuration a scenario runs against.
type Env struct {
	Config *stat.Config
	Tags   *stat.TagRegistry
	Policy stat.BitPolicy

	// Sets are stored modifier sets; a scenario set of the same name wins.
	Sets map[string]*stat.ModifierSet
}

// NewEnv builds an Env from configuration sections.
func NewEnv(stats config.StatsSection, tags config.TagsSection) (Env, error) {
	cfg, err := stats.Build()
	if err != nil {
		return Env{}, err
	}
	reg, policy, err := tags.Build()
	if err != nil {
		return Env{}, err
	}
	return Env{Config: cfg, Tags: reg, Policy: policy}, nil
}

// Line is one reported observation.
type Line struct {
	Step   int
	Op     string
	Entity string
	Path   string
	Value  float64
	Note   string
}

// Report collects the observations of a run in step order.
type Report struct {
	Name  string
	Lines []Line
}

// Render writes the report as aligned text.
func (r *Report) Render(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "scenario: %s\n", r.Name); err != nil {
		return err
	}
	for _, l := range r.Lines {
		line := fmt.Sprintf("%3d %-8s %-8s %-24s %s", l.Step, l.Op, l.Entity, l.Path, formatValue(l.Value))
		if l.Note != "" {
			line += "  " + l.Note
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	return nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

type runner struct {
	env   Env
	world *world.World
	stats *stat.Accessor
	sets  map[string]*stat.ModifierSet
	rep   *Report
}

// With returns env with the sections embedded in sc applied over it.
func (e Env) With(sc *Scenario) (Env, error) {
	if sc.Stats != nil {
		cfg, err := sc.Stats.Build()
		if err != nil {
			return e, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		e.Config = cfg
	}
	if sc.Tags != nil {
		reg, policy, err := sc.Tags.Build()
		if err != nil {
			return e, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		e.Tags, e.Policy = reg, policy
	}
	if e.Tags == nil {
		e.Tags = stat.NewTagRegistry()
	}
	return e, nil
}

// ModifierSets resolves the tags of every scenario set into masks. Sets are
// returned sorted by name.
func (e Env) ModifierSets(sets map[string][]SetItem) ([]*stat.ModifierSet, error) {
	names := make([]string, 0, len(sets))
	for n := range sets {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]*stat.ModifierSet, 0, len(names))
	for _, n := range names {
		ms := stat.NewModifierSet(n)
		for _, it := range sets[n] {
			path, err := e.modifierPath(it.Path, it.Tags)
			if err != nil {
				return nil, fmt.Errorf("set %q: %w", n, err)
			}
			if err := ms.AddText(path, it.Value); err != nil {
				return nil, fmt.Errorf("set %q: %w", n, err)
			}
		}
		out = append(out, ms)
	}
	return out, nil
}

// Run executes a scenario. Sections embedded in the scenario replace the
// corresponding part of env.
func Run(sc *Scenario, env Env) (*Report, error) {
	env, err := env.With(sc)
	if err != nil {
		return nil, err
	}

	acc := stat.NewAccessor(env.Config)
	r := &runner{
		env:   env,
		world: world.New(acc),
		stats: acc,
		sets:  make(map[string]*stat.ModifierSet, len(env.Sets)+len(sc.Sets)),
		rep:   &Report{Name: sc.Name},
	}
	for n, ms := range env.Sets {
		r.sets[n] = ms
	}

	for _, e := range sc.Entities {
		kind, err := parseEntityKind(e.Kind)
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", e.Name, err)
		}
		if _, err := r.world.Spawn(kind, e.Name); err != nil {
			return nil, err
		}
	}

	sets, err := env.ModifierSets(sc.Sets)
	if err != nil {
		return nil, err
	}
	for _, ms := range sets {
		r.sets[ms.Name] = ms
	}

	for i, step := range sc.Steps {
		if err := r.step(i+1, step); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
	}

	slog.Debug("scenario finished", "name", sc.Name, "steps", len(sc.Steps), "lines", len(r.rep.Lines))
	return r.rep, nil
}

func parseEntityKind(s string) (world.EntityKind, error) {
	switch strings.ToLower(s) {
	case "", "character":
		return world.KindCharacter, nil
	case "creature":
		return world.KindCreature, nil
	case "item":
		return world.KindItem, nil
	default:
		return 0, fmt.Errorf("unknown entity kind %q", s)
	}
}

// modifierPath appends the effective modifier mask of tags to path.
func (e Env) modifierPath(path string, tags []string) (string, error) {
	if len(tags) == 0 {
		return path, nil
	}
	mask, err := e.Tags.ModifierMask(e.Policy, tags...)
	if err != nil {
		return "", err
	}
	p := stat.ParsePath(path)
	return stat.TaggedPath(p.Name, p.Part, mask), nil
}

// queryPath appends the fully specified query mask of tags to path.
func (e Env) queryPath(path string, tags []string) (string, error) {
	if len(tags) == 0 {
		return path, nil
	}
	mask, err := e.Tags.QueryMask(tags...)
	if err != nil {
		return "", err
	}
	p := stat.ParsePath(path)
	return stat.TaggedPath(p.Name, p.Part, mask), nil
}

func (r *runner) step(n int, s Step) error {
	switch s.Op {
	case "add", "remove":
		id, err := r.world.Lookup(s.Entity)
		if err != nil {
			return err
		}
		path, err := r.env.modifierPath(s.Path, s.Tags)
		if err != nil {
			return err
		}
		m, err := stat.ParseModifier(s.Value)
		if err != nil {
			return err
		}
		if s.Op == "add" {
			return r.stats.AddModifier(id, path, m)
		}
		return r.stats.RemoveModifier(id, path, m)

	case "set":
		id, err := r.world.Lookup(s.Entity)
		if err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s.Value, 64)
		if err != nil {
			return fmt.Errorf("set value %q: %w", s.Value, err)
		}
		return r.stats.Set(id, s.Path, v)

	case "link":
		return r.world.Link(s.Entity, s.Alias, s.Source)

	case "unlink":
		return r.world.Unlink(s.Entity, s.Alias)

	case "despawn":
		return r.world.Despawn(s.Entity)

	case "apply", "revert":
		id, err := r.world.Lookup(s.Entity)
		if err != nil {
			return err
		}
		ms, ok := r.sets[s.Set]
		if !ok {
			return fmt.Errorf("unknown modifier set %q", s.Set)
		}
		if s.Op == "apply" {
			return r.stats.ApplyModifierSet(id, ms)
		}
		return r.stats.RemoveModifierSet(id, ms)

	case "get", "evaluate":
		id, err := r.world.Lookup(s.Entity)
		if err != nil {
			return err
		}
		path, err := r.env.queryPath(s.Path, s.Tags)
		if err != nil {
			return err
		}
		v := r.stats.Get(id, path)
		if s.Op == "evaluate" {
			if v, err = r.stats.Evaluate(id, path); err != nil {
				return err
			}
		}
		r.record(Line{Step: n, Op: s.Op, Entity: s.Entity, Path: path, Value: v})
		return nil

	case "require":
		id, err := r.world.Lookup(s.Entity)
		if err != nil {
			return err
		}
		reqs, err := stat.ParseRequirements(s.Conditions...)
		if err != nil {
			return err
		}
		note := "met"
		if unmet := reqs.Unmet(r.stats, id); len(unmet) > 0 {
			note = "unmet: " + strings.Join(unmet, "; ")
		}
		r.record(Line{Step: n, Op: s.Op, Entity: s.Entity, Path: strings.Join(s.Conditions, " && "), Note: note})
		return nil

	case "snapshot":
		id, err := r.world.Lookup(s.Entity)
		if err != nil {
			return err
		}
		snap := r.stats.Snapshot(id)
		keys := make([]string, 0, len(snap))
		for k := range snap {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			r.record(Line{Step: n, Op: s.Op, Entity: s.Entity, Path: k, Value: snap[k]})
		}
		return nil

	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
}

func (r *runner) record(l Line) {
	r.rep.Lines = append(r.rep.Lines, l)
}
