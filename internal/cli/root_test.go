package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scenecore/internal/config"
)

// lampSpec is a small scene: a button whose touch starts a clock that
// fades a material.
const lampSpec = `package scenes

scene: Lamp: {
	nodes: {
		Button: type: "TouchSensor"
		Clock: {
			type: "TimeSensor"
			fields: cycleInterval: 2
		}
		Fader: {
			type: "ScalarInterpolator"
			fields: {
				key: [0, 1]
				keyValue: [0, 1]
			}
		}
		Mat: type: "Material"
	}
	routes: [
		"Button.touchTime TO Clock.set_startTime",
		"Clock.fraction_changed TO Fader.set_fraction",
		"Fader.value_changed TO Mat.set_transparency",
	]
}
`

// feedbackSpec routes two materials into each other.
const feedbackSpec = `package scenes

scene: Loop: {
	nodes: {
		A: type: "Material"
		B: type: "Material"
	}
	routes: [
		"A.transparency_changed TO B.set_transparency",
		"B.transparency_changed TO A.set_transparency",
	]
}
`

// writeSpecs writes files into a fresh temp directory and returns it.
func writeSpecs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// executeCommand runs the root command with args and returns stdout.
// Log output goes to stderr, which the caller may ignore.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "scenecore", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"compile", "validate", "run", "test", "trace"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommandGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestRootCommandInvalidFormat(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"lamp.cue": lampSpec})

	_, _, err := executeCommand(t, "--format", "xml", "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestRootCommandMissingConfig(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"lamp.cue": lampSpec})

	_, _, err := executeCommand(t, "--config", filepath.Join(dir, "missing.yaml"), "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
}

func noEnv(string) (string, bool) { return "", false }

func TestSetupLoadsConfigFile(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"scenecore.yaml": `
engine:
  max_steps: 50
  loop_breaking: true
log:
  level: warn
  format: json
store:
  path: trace.db
`})

	opts := &RootOptions{Format: "text", ConfigPath: filepath.Join(dir, "scenecore.yaml"), LookupEnv: noEnv}
	require.NoError(t, opts.setup(&bytes.Buffer{}))

	require.NotNil(t, opts.Config)
	assert.Equal(t, 50, opts.Config.Engine.MaxSteps)
	assert.True(t, opts.Config.Engine.LoopBreaking)
	assert.Equal(t, config.LogLevelWarn, opts.Config.Log.Level)
	assert.Equal(t, config.LogFormatJSON, opts.Config.Log.Format)
	assert.Equal(t, "trace.db", opts.Config.Store.Path)
	assert.NotNil(t, opts.Logger)
}

func TestSetupEnvOverridesFile(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"scenecore.yaml": "engine:\n  max_steps: 50\n"})
	env := map[string]string{"SCENECORE_MAX_STEPS": "7"}

	opts := &RootOptions{
		Format:     "text",
		ConfigPath: filepath.Join(dir, "scenecore.yaml"),
		LookupEnv: func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		},
	}
	require.NoError(t, opts.setup(&bytes.Buffer{}))
	assert.Equal(t, 7, opts.Config.Engine.MaxSteps)
}

func TestSetupRejectsInvalidConfig(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"scenecore.yaml": "clock:\n  rate: -1\n"})

	opts := &RootOptions{Format: "text", ConfigPath: filepath.Join(dir, "scenecore.yaml"), LookupEnv: noEnv}
	err := opts.setup(&bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Nil(t, opts.Config)
}

func TestSetupWithoutConfigUsesDefaults(t *testing.T) {
	opts := &RootOptions{Format: "json", LookupEnv: noEnv}
	require.NoError(t, opts.setup(&bytes.Buffer{}))
	assert.Equal(t, config.Default(), opts.Config)
}

func TestRootOptionsFallbacks(t *testing.T) {
	opts := &RootOptions{}
	assert.Equal(t, config.Default(), opts.cfg())
	assert.NotNil(t, opts.log())
}

func TestNewLogger(t *testing.T) {
	t.Run("json at warn", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := newLogger(buf, config.LogConfig{Level: config.LogLevelWarn, Format: config.LogFormatJSON}, false)

		logger.Info("hidden")
		logger.Warn("shown", "node", "Mat")

		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, `"msg":"shown"`)
		assert.Contains(t, out, `"node":"Mat"`)
	})

	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := newLogger(buf, config.LogConfig{Level: config.LogLevelInfo, Format: config.LogFormatText}, false)

		logger.Debug("hidden")
		logger.Info("shown")

		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "msg=shown")
	})

	t.Run("verbose forces debug", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := newLogger(buf, config.LogConfig{Level: config.LogLevelError, Format: config.LogFormatText}, true)

		logger.Debug("details")
		assert.Contains(t, buf.String(), "msg=details")
	})
}

func TestNewRegistryHasBuiltins(t *testing.T) {
	reg, err := newRegistry()
	require.NoError(t, err)
	for _, kind := range []string{"Material", "TimeSensor", "TouchSensor", "Group"} {
		_, ok := reg.Kind(kind)
		assert.True(t, ok, kind)
	}
}

func TestExecuteUnknownCommand(t *testing.T) {
	_, _, err := executeCommand(t, "frobnicate")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unknown command"))
	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr))
}
