package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{
		{"run"}, {"migrate"}, {"catalog", "import"}, {"sets", "import"}, {"sets", "list"}, {"sets", "delete"},
	} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "command %v should exist", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	cfg := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, cfg)
	assert.Equal(t, "", cfg.DefValue)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	err := WrapExitError(ExitCommandError, "loading", errors.New("boom"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "loading: boom", err.Error())
}

const scenarioDoc = `
name: cli
entities:
  - name: hero
steps:
  - {op: add, entity: hero, path: Strength, value: "10"}
  - {op: add, entity: hero, path: Power, value: "Strength * 2"}
  - {op: get, entity: hero, path: Power}
`

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cli.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenarioDoc), 0o644))

	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"run", "--config", filepath.Join(dir, "absent.yaml"), path})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "scenario: cli\n  3 get      hero     Power                    20.0000\n", out.String())
}

func TestRunCommand_MissingScenario(t *testing.T) {
	dir := t.TempDir()
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--config", filepath.Join(dir, "absent.yaml"), filepath.Join(dir, "nope.yaml")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
