package local

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// yamlFixtureFile is the top-level YAML structure for network fixtures.
type yamlFixtureFile struct {
	Network yamlNetwork `yaml:"network"`
}

type yamlNetwork struct {
	Room                   string            `yaml:"room"`
	ChannelSpecificHandles *bool             `yaml:"channel_specific_handles"`
	ProvideTubes           bool              `yaml:"provide_tubes"`
	Participants           []yamlParticipant `yaml:"participants"`
}

type yamlParticipant struct {
	Nick string `yaml:"nick"`
	Key  string `yaml:"key"`
}

// ParticipantSpec describes one participant of a fixture. The first
// participant of a fixture shares the room; the rest join it.
type ParticipantSpec struct {
	Nick string
	Key  string
}

// Fixture describes a simulated presence network.
type Fixture struct {
	Room         string
	Options      Options
	Participants []ParticipantSpec
}

// Validate checks fixture invariants.
//
// Postcondition: Returns nil if the fixture is usable, or an error describing all violations.
func (f Fixture) Validate() error {
	var errs []string
	if f.Room == "" {
		errs = append(errs, "network.room must not be empty")
	}
	if len(f.Participants) < 1 {
		errs = append(errs, "network.participants must list at least one participant")
	}
	seen := make(map[string]bool, len(f.Participants))
	for i, p := range f.Participants {
		if p.Nick == "" {
			errs = append(errs, fmt.Sprintf("network.participants[%d].nick must not be empty", i))
			continue
		}
		if seen[p.Nick] {
			errs = append(errs, fmt.Sprintf("network.participants[%d].nick %q is duplicated", i, p.Nick))
		}
		seen[p.Nick] = true
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// LoadFixtureFromFile reads and validates a fixture YAML file.
//
// Precondition: path must point to a valid YAML fixture file.
// Postcondition: Returns a validated Fixture or a non-nil error.
func LoadFixtureFromFile(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("reading fixture file %s: %w", path, err)
	}
	return LoadFixtureFromBytes(data)
}

// LoadFixtureFromBytes parses and validates a fixture from YAML bytes.
// Channel-specific handles default to enabled, matching multi-user chat rooms.
//
// Postcondition: Returns a validated Fixture or a non-nil error.
func LoadFixtureFromBytes(data []byte) (Fixture, error) {
	var file yamlFixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Fixture{}, fmt.Errorf("parsing fixture YAML: %w", err)
	}

	f := Fixture{
		Room: file.Network.Room,
		Options: Options{
			ChannelSpecificHandles: true,
			ProvideTubes:           file.Network.ProvideTubes,
		},
	}
	if file.Network.ChannelSpecificHandles != nil {
		f.Options.ChannelSpecificHandles = *file.Network.ChannelSpecificHandles
	}
	for _, p := range file.Network.Participants {
		f.Participants = append(f.Participants, ParticipantSpec{Nick: p.Nick, Key: p.Key})
	}

	if err := f.Validate(); err != nil {
		return Fixture{}, fmt.Errorf("validating fixture: %w", err)
	}
	return f, nil
}

// Build creates a Network for the fixture and registers its participants.
//
// Precondition: f must be valid; logger must be non-nil.
// Postcondition: Returns the network and one connection per participant, in fixture order.
func (f Fixture) Build(logger *zap.Logger) (*Network, []*Connection, error) {
	n := NewNetwork(logger, f.Options)
	conns := make([]*Connection, 0, len(f.Participants))
	for _, p := range f.Participants {
		c, err := n.AddParticipant(p.Nick, p.Key)
		if err != nil {
			n.Close()
			return nil, nil, fmt.Errorf("adding participant %q: %w", p.Nick, err)
		}
		conns = append(conns, c)
	}
	return n, conns, nil
}
