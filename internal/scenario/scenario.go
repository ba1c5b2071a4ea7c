// Package scenario runs scripted stat scenarios: entities, links, modifiers
// and queries described in YAML, producing a deterministic report.
package scenario

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/udisondev/statgraph/internal/config"
)

// Scenario is a scripted sequence of stat operations.
type Scenario struct {
	Name string `yaml:"name"`

	// Stats and Tags override the application catalog when present.
	Stats *config.StatsSection `yaml:"stats"`
	Tags  *config.TagsSection  `yaml:"tags"`

	Entities []EntitySpec         `yaml:"entities"`
	Sets     map[string][]SetItem `yaml:"sets"`
	Steps    []Step               `yaml:"steps"`
}

// EntitySpec spawns an entity before the first step.
type EntitySpec struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"` // character, creature or item
}

// SetItem is one entry of a named modifier set.
type SetItem struct {
	Path  string   `yaml:"path"`
	Value string   `yaml:"value"`
	Tags  []string `yaml:"tags"`
}

// Step is one operation. Op selects which fields are used:
//
//	add, remove   entity path value [tags]
//	set           entity path value
//	link          entity alias source
//	unlink        entity alias
//	despawn       entity
//	apply, revert entity set
//	get, evaluate entity path [tags]
//	require       entity conditions
//	snapshot      entity
type Step struct {
	Op         string   `yaml:"op"`
	Entity     string   `yaml:"entity"`
	Path       string   `yaml:"path"`
	Value      string   `yaml:"value"`
	Tags       []string `yaml:"tags"`
	Alias      string   `yaml:"alias"`
	Source     string   `yaml:"source"`
	Set        string   `yaml:"set"`
	Conditions []string `yaml:"conditions"`
}

// Parse decodes a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("parsing scenario %q: no steps", sc.Name)
	}
	return &sc, nil
}

// Load reads a scenario from any location the storage layer understands:
// a local path, file://, mem:// or a remote object store URL.
func Load(ctx context.Context, location string) (*Scenario, error) {
	URL := location
	if !strings.Contains(location, "://") {
		abs, err := filepath.Abs(location)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", location, err)
		}
		URL = abs
	}

	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", location, err)
	}
	return Parse(data)
}
