package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmigrate/tmig/migration"
)

func TestNewRootCommand_HasPhaseSubcommands(t *testing.T) {
	root := NewRootCommand()

	names := make(map[string]bool)
	for _, command := range root.Commands() {
		names[command.Name()] = true
	}

	for _, phase := range migration.Phases() {
		assert.True(t, names[phase], "missing subcommand %s", phase)
	}
	assert.True(t, names["version"])
}

func TestVersionCommand(t *testing.T) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "tmig ")
}

func TestPhaseCommand_MissingConfigFails(t *testing.T) {
	root := NewRootCommand()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"analyze", "--config", "does-not-exist.yaml"})

	assert.Error(t, root.Execute())
}

func TestValidationError_ExitCode(t *testing.T) {
	err := &validationError{phase: migration.PhaseExtract}
	assert.Contains(t, err.Error(), "extract")
}
