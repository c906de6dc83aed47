// Package discovery locates the room backing a shared activity and the
// channels the session layer needs on it.
package discovery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/memosono/internal/presence"
)

// Reason classifies a discovery failure.
type Reason int

const (
	// ReasonNoRoom means no channel of the activity targets a room.
	ReasonNoRoom Reason = iota + 1
	// ReasonNoTextChannel means the room has no text channel with group membership.
	ReasonNoTextChannel
	// ReasonSubstrate means a channel could not be inspected.
	ReasonSubstrate
)

func (r Reason) String() string {
	switch r {
	case ReasonNoRoom:
		return "no room"
	case ReasonNoTextChannel:
		return "no text channel"
	case ReasonSubstrate:
		return "substrate error"
	default:
		return "unknown"
	}
}

// Error is returned by Discover. It is unrecoverable for the current share or
// join attempt.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("channel discovery failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("channel discovery failed: %s", e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same Reason, so callers can test with
// errors.Is(err, &discovery.Error{Reason: discovery.ReasonNoRoom}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Reason == e.Reason
}

// ChannelSet holds the channels discovered for one room. Group and Tubes are
// the capabilities of Text and TubesChannel, queried once at discovery.
type ChannelSet struct {
	Room     presence.Handle
	RoomName string

	Text  presence.Channel
	Group presence.Group

	// TubesChannel and Tubes are nil until a tubes channel exists.
	TubesChannel presence.Channel
	Tubes        presence.Tubes
}

// HasTubes reports whether a tubes channel has been bound.
func (s *ChannelSet) HasTubes() bool {
	return s.Tubes != nil
}

// BindTubes records ch as the set's tubes channel.
//
// Precondition: ch must target s.Room.
// Postcondition: Returns an error if ch lacks the tubes capability.
func (s *ChannelSet) BindTubes(ch presence.Channel) error {
	tubes, ok := ch.Tubes()
	if !ok {
		return fmt.Errorf("channel %s has no tubes capability", ch.Path())
	}
	s.TubesChannel = ch
	s.Tubes = tubes
	return nil
}

// Discoverer classifies the channels of a shared activity.
type Discoverer struct {
	conn   presence.Connection
	logger *zap.Logger
}

// NewDiscoverer creates a Discoverer opening channels on conn.
//
// Precondition: conn and logger must be non-nil.
func NewDiscoverer(conn presence.Connection, logger *zap.Logger) *Discoverer {
	return &Discoverer{conn: conn, logger: logger}
}

// Discover returns the ChannelSet for the first room found among paths.
// Room-typed channels targeting a different room than the first are ignored.
//
// Postcondition: Returns a ChannelSet with Room, Text, and Group set, or an *Error.
func (d *Discoverer) Discover(ctx context.Context, paths []presence.ChannelPath) (*ChannelSet, error) {
	var set *ChannelSet

	for _, path := range paths {
		ch, err := d.conn.Channel(path)
		if err != nil {
			return nil, &Error{Reason: ReasonSubstrate, Err: fmt.Errorf("opening channel %s: %w", path, err)}
		}
		ht, h, err := ch.Handle(ctx)
		if err != nil {
			return nil, &Error{Reason: ReasonSubstrate, Err: fmt.Errorf("getting handle of %s: %w", path, err)}
		}
		if ht != presence.HandleTypeRoom {
			continue
		}

		if set == nil {
			set = &ChannelSet{Room: h}
			name, err := d.conn.InspectHandle(ctx, ht, h)
			if err != nil {
				d.logger.Warn("inspecting room handle", zap.Uint32("room", uint32(h)), zap.Error(err))
			}
			set.RoomName = name
			d.logger.Debug("found room",
				zap.Uint32("room", uint32(h)),
				zap.String("name", name),
			)
		} else if h != set.Room {
			d.logger.Debug("ignoring channel of another room",
				zap.String("path", string(path)),
				zap.Uint32("room", uint32(h)),
			)
			continue
		}

		ct, err := ch.Type(ctx)
		if err != nil {
			return nil, &Error{Reason: ReasonSubstrate, Err: fmt.Errorf("getting type of %s: %w", path, err)}
		}
		switch ct {
		case presence.ChannelTypeTubes:
			if set.Tubes != nil {
				continue
			}
			if err := set.BindTubes(ch); err != nil {
				d.logger.Warn("skipping tubes channel", zap.String("path", string(path)), zap.Error(err))
				continue
			}
			d.logger.Debug("found tubes channel", zap.String("path", string(path)))
		case presence.ChannelTypeText:
			if set.Text != nil {
				continue
			}
			group, ok := ch.Group()
			if !ok {
				d.logger.Warn("text channel has no group capability", zap.String("path", string(path)))
				continue
			}
			set.Text = ch
			set.Group = group
			d.logger.Debug("found text channel", zap.String("path", string(path)))
		}
	}

	if set == nil {
		return nil, &Error{Reason: ReasonNoRoom}
	}
	if set.Text == nil {
		return nil, &Error{Reason: ReasonNoTextChannel}
	}
	return set, nil
}
