// Package activity defines the boundary between the session layer and the
// hosting shell: the shell reports shared-activity state and channels, raises
// lifecycle events through a Listener, and displays diagnostics through an
// InfoPanel.
package activity

import (
	"github.com/cory-johannsen/memosono/internal/presence"
)

// Shell is the hosting shell's view of the shared activity.
type Shell interface {
	// LaunchedAsGuest reports whether the activity was launched to join an
	// existing shared activity. It never changes after launch.
	LaunchedAsGuest() bool
	// HasSharedActivity reports whether the activity was launched to join an
	// existing shared activity, or has since been shared.
	HasSharedActivity() bool
	// IsShared reports whether the local participant is already in the shared activity.
	IsShared() bool
	// JoinedParticipants returns everyone else currently in the shared activity.
	JoinedParticipants() []presence.Identity
	// Channels returns the connection and channels backing the shared activity.
	Channels() (presence.ChannelList, error)
}

// Listener receives shell lifecycle events.
type Listener interface {
	ActivityShared()
	ActivityJoined()
	ParticipantJoined(id presence.Identity)
	ParticipantLeft(id presence.Identity)
}

// InfoPanel displays a one-line status message to the local participant.
type InfoPanel interface {
	Show(message string)
}
