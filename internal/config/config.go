// Package config provides Viper-based configuration loading for memosono.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable override, e.g.
// MEMOSONO_LOGGING_LEVEL.
const EnvPrefix = "MEMOSONO"

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// ActivityConfig describes the shared activity and its wire protocol.
type ActivityConfig struct {
	// Service is the tunnel service name peers match offers on. Changing it
	// makes the activity incompatible with peers using the old name.
	Service string `mapstructure:"service"`
	// Title is shown to participants.
	Title string `mapstructure:"title"`
	// Room names the room a shared activity lives in.
	Room string `mapstructure:"room"`
	// GridSize is the side length of the board.
	GridSize int `mapstructure:"grid_size"`
}

// SessionConfig holds session coordinator settings.
type SessionConfig struct {
	// CallTimeout bounds each call the coordinator makes on the presence network.
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// NetworkConfig configures the local presence network.
type NetworkConfig struct {
	// Fixture is an optional YAML file describing the network. When set it
	// overrides the other network settings.
	Fixture string `mapstructure:"fixture"`
	// ChannelSpecificHandles makes room members visible only through
	// channel-specific handles.
	ChannelSpecificHandles bool `mapstructure:"channel_specific_handles"`
	// ProvideTubes opens a tubes channel together with each text channel.
	ProvideTubes bool `mapstructure:"provide_tubes"`
}

// SimulationConfig controls the simulate command.
type SimulationConfig struct {
	// Joiners is the number of participants joining the sharer.
	Joiners int `mapstructure:"joiners"`
	// Timeout bounds the whole simulation.
	Timeout time.Duration `mapstructure:"timeout"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Activity   ActivityConfig   `mapstructure:"activity"`
	Session    SessionConfig    `mapstructure:"session"`
	Network    NetworkConfig    `mapstructure:"network"`
	Simulation SimulationConfig `mapstructure:"simulation"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateActivity(c.Activity); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Session.CallTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("session.call_timeout must be positive, got %s", c.Session.CallTimeout))
	}
	if err := validateSimulation(c.Simulation); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateActivity(a ActivityConfig) error {
	var errs []string
	if a.Service == "" {
		errs = append(errs, "activity.service must not be empty")
	}
	if a.Room == "" {
		errs = append(errs, "activity.room must not be empty")
	}
	if a.GridSize < 2 || (a.GridSize*a.GridSize)%2 != 0 {
		errs = append(errs, fmt.Sprintf("activity.grid_size must be >= 2 with an even tile count, got %d", a.GridSize))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	if s.Joiners < 1 {
		errs = append(errs, fmt.Sprintf("simulation.joiners must be >= 1, got %d", s.Joiners))
	}
	if s.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("simulation.timeout must be positive, got %s", s.Timeout))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// NewViper returns a Viper instance with defaults and MEMOSONO_ environment
// overrides applied.
//
// Postcondition: Every key of Config has a default.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := NewViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("activity.service", "org.fredektop.Telepathy.Tube.Memosono")
	v.SetDefault("activity.title", "Memosono")
	v.SetDefault("activity.room", "memosono")
	v.SetDefault("activity.grid_size", 4)

	v.SetDefault("session.call_timeout", "5s")

	v.SetDefault("network.fixture", "")
	v.SetDefault("network.channel_specific_handles", true)
	v.SetDefault("network.provide_tubes", false)

	v.SetDefault("simulation.joiners", 1)
	v.SetDefault("simulation.timeout", "10s")
}
