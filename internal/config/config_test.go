package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func validConfig() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Activity: ActivityConfig{
			Service:  "org.fredektop.Telepathy.Tube.Memosono",
			Title:    "Memosono",
			Room:     "memosono",
			GridSize: 4,
		},
		Session: SessionConfig{
			CallTimeout: 5 * time.Second,
		},
		Network: NetworkConfig{
			ChannelSpecificHandles: true,
		},
		Simulation: SimulationConfig{
			Joiners: 1,
			Timeout: 10 * time.Second,
		},
	}
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestDefaultsAreValid(t *testing.T) {
	cfg, err := LoadFromViper(NewViper())
	require.NoError(t, err)
	assert.Equal(t, "org.fredektop.Telepathy.Tube.Memosono", cfg.Activity.Service)
	assert.Equal(t, 4, cfg.Activity.GridSize)
	assert.Equal(t, 5*time.Second, cfg.Session.CallTimeout)
	assert.True(t, cfg.Network.ChannelSpecificHandles)
	assert.False(t, cfg.Network.ProvideTubes)
	assert.Equal(t, 1, cfg.Simulation.Joiners)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	err := os.WriteFile(path, []byte(`
logging:
  level: debug
  format: console
activity:
  room: lounge
  grid_size: 6
session:
  call_timeout: 2s
network:
  fixture: fixtures/three.yaml
  channel_specific_handles: false
  provide_tubes: true
simulation:
  joiners: 3
  timeout: 30s
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "lounge", cfg.Activity.Room)
	assert.Equal(t, 6, cfg.Activity.GridSize)
	assert.Equal(t, "org.fredektop.Telepathy.Tube.Memosono", cfg.Activity.Service, "default kept")
	assert.Equal(t, 2*time.Second, cfg.Session.CallTimeout)
	assert.Equal(t, "fixtures/three.yaml", cfg.Network.Fixture)
	assert.False(t, cfg.Network.ChannelSpecificHandles)
	assert.True(t, cfg.Network.ProvideTubes)
	assert.Equal(t, 3, cfg.Simulation.Joiners)
	assert.Equal(t, 30*time.Second, cfg.Simulation.Timeout)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MEMOSONO_ACTIVITY_ROOM", "from-env")
	t.Setenv("MEMOSONO_SIMULATION_JOINERS", "4")

	cfg, err := LoadFromViper(NewViper())
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Activity.Room)
	assert.Equal(t, 4, cfg.Simulation.Joiners)
}

func TestLoadInvalidPath(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestValidateLoggingLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), "level %q should be valid", level)
	}
	cfg := validConfig()
	cfg.Logging.Level = "trace"
	assert.Error(t, cfg.Validate())
}

func TestValidateLoggingFormat(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		cfg := validConfig()
		cfg.Logging.Format = format
		assert.NoError(t, cfg.Validate(), "format %q should be valid", format)
	}
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestValidateActivityServiceEmpty(t *testing.T) {
	cfg := validConfig()
	cfg.Activity.Service = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "activity.service")
}

func TestValidateActivityRoomEmpty(t *testing.T) {
	cfg := validConfig()
	cfg.Activity.Room = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateCallTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Session.CallTimeout = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateSimulation(t *testing.T) {
	cfg := validConfig()
	cfg.Simulation.Joiners = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Simulation.Timeout = -time.Second
	assert.Error(t, cfg.Validate())
}

func TestValidateReportsAllViolations(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "loud"
	cfg.Activity.Service = ""
	cfg.Session.CallTimeout = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
	assert.Contains(t, err.Error(), "activity.service")
	assert.Contains(t, err.Error(), "session.call_timeout")
}

// Property-based tests

func TestPropertyEvenGridSizesAccepted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := 2 * rapid.IntRange(1, 32).Draw(t, "half")
		cfg := validConfig()
		cfg.Activity.GridSize = size
		if err := cfg.Validate(); err != nil {
			t.Fatalf("grid size %d rejected: %v", size, err)
		}
	})
}

func TestPropertyOddOrTinyGridSizesRejected(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.OneOf(
			rapid.IntRange(-10, 1),
			rapid.Map(rapid.IntRange(1, 32), func(n int) int { return 2*n + 1 }),
		).Draw(t, "size")
		cfg := validConfig()
		cfg.Activity.GridSize = size
		if cfg.Validate() == nil {
			t.Fatalf("grid size %d accepted", size)
		}
	})
}
