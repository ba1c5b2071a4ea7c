package scenario

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"

	"github.com/udisondev/statgraph/internal/config"
	"github.com/udisondev/statgraph/internal/stat"
)

func runGolden(t *testing.T, name string) {
	t.Helper()

	sc, err := Load(context.Background(), filepath.Join("testdata", name+".yaml"))
	require.NoError(t, err)

	rep, err := Run(sc, Env{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, rep.Render(&buf))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, buf.Bytes())
}

func TestGolden_CrossEntity(t *testing.T) {
	runGolden(t, "cross_entity")
}

func TestGolden_Tagged(t *testing.T) {
	runGolden(t, "tagged")
}

func TestParse_NoSteps(t *testing.T) {
	_, err := Parse([]byte("name: empty\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("steps: [unclosed"))
	assert.Error(t, err)
}

func TestLoad_Memory(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	URL := "mem://localhost/scenarios/flat.yaml"
	doc := `
name: flat
entities:
  - name: hero
steps:
  - {op: set, entity: hero, path: Gold, value: "12.5"}
  - {op: get, entity: hero, path: Gold}
`
	require.NoError(t, fs.Upload(ctx, URL, 0o644, strings.NewReader(doc)))

	sc, err := Load(ctx, URL)
	require.NoError(t, err)
	assert.Equal(t, "flat", sc.Name)
	require.Len(t, sc.Steps, 2)

	rep, err := Run(sc, Env{})
	require.NoError(t, err)
	require.Len(t, rep.Lines, 1)
	assert.Equal(t, 12.5, rep.Lines[0].Value)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unknown op",
			doc:  "entities: [{name: hero}]\nsteps: [{op: fly, entity: hero}]",
			want: `unknown op "fly"`,
		},
		{
			name: "unknown entity",
			doc:  "steps: [{op: get, entity: ghost, path: Life}]",
			want: "step 1 (get)",
		},
		{
			name: "unknown set",
			doc:  "entities: [{name: hero}]\nsteps: [{op: apply, entity: hero, set: nope}]",
			want: `unknown modifier set "nope"`,
		},
		{
			name: "unknown tag",
			doc:  "entities: [{name: hero}]\nsteps: [{op: get, entity: hero, path: Damage, tags: [fire]}]",
			want: "fire",
		},
		{
			name: "bad entity kind",
			doc:  "entities: [{name: hero, kind: dragon}]\nsteps: [{op: snapshot, entity: hero}]",
			want: `unknown entity kind "dragon"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := Parse([]byte(tt.doc))
			require.NoError(t, err)
			_, err = Run(sc, Env{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_EnvFromConfig(t *testing.T) {
	app := config.DefaultApp()
	app.Stats.Types = []config.StatType{{Name: "Armor", Kind: "modifiable"}}
	env, err := NewEnv(app.Stats, app.Tags)
	require.NoError(t, err)

	sc, err := Parse([]byte(`
name: env
entities: [{name: hero}]
steps:
  - {op: add, entity: hero, path: Armor, value: "4"}
  - {op: add, entity: hero, path: Armor, value: "6"}
  - {op: remove, entity: hero, path: Armor, value: "4"}
  - {op: get, entity: hero, path: Armor}
  - {op: require, entity: hero, conditions: ["Armor == 6"]}
`))
	require.NoError(t, err)

	rep, err := Run(sc, env)
	require.NoError(t, err)
	require.Len(t, rep.Lines, 2)
	assert.Equal(t, 6.0, rep.Lines[0].Value)
	assert.Equal(t, "met", rep.Lines[1].Note)
}

func TestReport_Render(t *testing.T) {
	rep := &Report{Name: "x", Lines: []Line{
		{Step: 1, Op: "get", Entity: "hero", Path: "Life", Value: 1.5},
		{Step: 12, Op: "require", Entity: "hero", Path: "Life > 1", Note: "met"},
	}}
	var buf bytes.Buffer
	require.NoError(t, rep.Render(&buf))

	want := "scenario: x\n" +
		"  1 get      hero     Life                     1.5000\n" +
		" 12 require  hero     Life > 1                 0.0000  met\n"
	assert.Equal(t, want, buf.String())
}

func TestRun_StoredSets(t *testing.T) {
	stored := stat.NewModifierSet("ring")
	stored.Add("Power", stat.Literal(3))
	env := Env{Sets: map[string]*stat.ModifierSet{"ring": stored}}

	sc, err := Parse([]byte(`
entities: [{name: hero}]
steps:
  - {op: apply, entity: hero, set: ring}
  - {op: get, entity: hero, path: Power}
  - {op: revert, entity: hero, set: ring}
  - {op: get, entity: hero, path: Power}
`))
	require.NoError(t, err)

	rep, err := Run(sc, env)
	require.NoError(t, err)
	require.Len(t, rep.Lines, 2)
	assert.Equal(t, 3.0, rep.Lines[0].Value)
	assert.Equal(t, 0.0, rep.Lines[1].Value)
}

func TestEnv_ModifierSets(t *testing.T) {
	env, err := Env{}.With(&Scenario{Tags: &config.TagsSection{Groups: []config.TagGroup{
		{Name: "damage", Tags: []string{"fire", "cold"}},
	}}})
	require.NoError(t, err)

	sets, err := env.ModifierSets(map[string][]SetItem{
		"b": {{Path: "Damage.Added", Value: "5", Tags: []string{"fire"}}},
		"a": {{Path: "Life", Value: "Strength * 2"}},
	})
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "a", sets[0].Name)
	assert.Equal(t, "Life", sets[0].Entries[0].Path)
	assert.Equal(t, "Damage.Added.4294967293", sets[1].Entries[0].Path)
}
