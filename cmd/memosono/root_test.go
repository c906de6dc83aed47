package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func effectiveConfig(t *testing.T, args ...string) map[string]any {
	t.Helper()
	out, err := execute(t, append([]string{"config"}, args...)...)
	require.NoError(t, err)
	var settings map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &settings))
	return settings
}

func section(t *testing.T, settings map[string]any, name string) map[string]any {
	t.Helper()
	s, ok := settings[name].(map[string]any)
	require.True(t, ok, "missing section %s", name)
	return s
}

func TestConfigCmd_Defaults(t *testing.T) {
	settings := effectiveConfig(t)
	assert.Equal(t, "info", section(t, settings, "logging")["level"])
	assert.Equal(t, "memosono", section(t, settings, "activity")["room"])
}

func TestConfigCmd_FlagsOverride(t *testing.T) {
	settings := effectiveConfig(t, "--log-level", "debug", "--room", "lounge", "--grid_size", "6")
	assert.Equal(t, "debug", section(t, settings, "logging")["level"])
	assert.Equal(t, "lounge", section(t, settings, "activity")["room"])
	assert.EqualValues(t, 6, section(t, settings, "activity")["grid_size"])
}

func TestSimulateCmd_AcceptsSnakeCaseFlags(t *testing.T) {
	out, err := execute(t, "simulate", "--provide_tubes", "--log_level", "warn", "--timeout", "5s")
	require.NoError(t, err)
	assert.Contains(t, out, "active")
}

func TestConfigCmd_EnvOverride(t *testing.T) {
	t.Setenv("MEMOSONO_ACTIVITY_ROOM", "from-env")
	settings := effectiveConfig(t)
	assert.Equal(t, "from-env", section(t, settings, "activity")["room"])
}

func TestConfigCmd_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memosono.yaml")
	require.NoError(t, os.WriteFile(path, []byte("activity:\n  title: From File\n"), 0o600))
	settings := effectiveConfig(t, "--config", path)
	assert.Equal(t, "From File", section(t, settings, "activity")["title"])
}

func TestConfigCmd_InvalidRejected(t *testing.T) {
	_, err := execute(t, "config", "--grid-size", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "activity.grid_size")
}

func TestSimulateCmd_Runs(t *testing.T) {
	out, err := execute(t, "simulate", "--joiners", "2", "--timeout", "5s", "--log-level", "warn")
	require.NoError(t, err)
	assert.Contains(t, out, "sharer")
	assert.Contains(t, out, "joiner-2")
	assert.Contains(t, out, "initiator")
	assert.Contains(t, out, "active")
}

func TestSimulateCmd_BadFixture(t *testing.T) {
	_, err := execute(t, "simulate", "--fixture", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
