package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command with args after restoring every flag
// to its default, since rootCmd and its flag values are package globals.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func TestRootCommand(t *testing.T) {
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "floorpose", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.Same(t, rootCmd, GetRootCommand())
}

func TestRootCommandHelp(t *testing.T) {
	output, err := executeCommand(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, output, "flat surface")
	assert.Contains(t, output, "Available Commands:")
	assert.Contains(t, output, "Usage:")
}

func TestRootCommandVersion(t *testing.T) {
	output, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, output, "floorpose version")
	assert.Contains(t, output, "commit")
}

func TestRootCommandSubcommands(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, sub := range rootCmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, expected := range []string{"pose", "rectify", "batch", "serve", "config", "bench"} {
		assert.Contains(t, names, expected, "Expected subcommand '%s' not found", expected)
	}
}

func TestRootCommandInvalidFlag(t *testing.T) {
	output, err := executeCommand(t, "--invalid-flag")
	require.Error(t, err)
	assert.Contains(t, output, "unknown flag")
}

func TestRootCommandNoArgs(t *testing.T) {
	output, err := executeCommand(t)
	require.NoError(t, err)
	assert.Contains(t, output, "Usage:")
}

func TestGetConfigDefaults(t *testing.T) {
	_, err := executeCommand(t, "config", "paths")
	require.NoError(t, err)

	cfg := GetConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 1.2, cfg.Pose.FallbackScale, 1e-12)
	assert.NotNil(t, GetConfigLoader())
}

func TestEnvironmentOverridesConfig(t *testing.T) {
	t.Setenv("FLOORPOSE_OUTPUT_FORMAT", "json")
	_, err := executeCommand(t, "config", "paths")
	require.NoError(t, err)
	assert.Equal(t, "json", GetConfig().Output.Format)
}

func TestInvalidEnvironmentConfigFails(t *testing.T) {
	t.Setenv("FLOORPOSE_LOG_LEVEL", "chatty")
	_, err := executeCommand(t, "config", "paths")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading configuration")
}
