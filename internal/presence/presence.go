//go:generate go run go.uber.org/mock/mockgen -source=presence.go -destination=../mocks/mock_presence.go -package=mocks

// Package presence defines the presence/transport substrate the session layer
// orchestrates: connections, room channels and their capabilities (group
// membership and tubes), and the directory that maps handles to stable
// participant identities.
//
// Implementations must be safe for concurrent use. Notifications (new tubes,
// tube state changes, tube deliveries, list replies) may arrive on any
// goroutine; callers serialize them themselves.
package presence

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by a Directory when no identity is known for a handle.
var ErrNotFound = errors.New("presence: not found")

// Handle is an opaque integer naming a contact, room, or channel-specific
// group member. The zero Handle is never valid.
type Handle uint32

// HandleType classifies what a Handle names.
type HandleType int

const (
	HandleTypeNone HandleType = iota
	HandleTypeContact
	HandleTypeRoom
)

func (t HandleType) String() string {
	switch t {
	case HandleTypeContact:
		return "contact"
	case HandleTypeRoom:
		return "room"
	default:
		return "none"
	}
}

// ChannelType classifies a channel.
type ChannelType string

const (
	ChannelTypeText  ChannelType = "text"
	ChannelTypeTubes ChannelType = "tubes"
)

// ChannelPath addresses a channel on a connection.
type ChannelPath string

// ChannelList is what the hosting shell reports for a shared activity: the
// bus name and object path of the connection plus the channels it holds.
type ChannelList struct {
	BusName  string
	ConnPath string
	Paths    []ChannelPath
}

// GroupFlags describes group behaviour.
type GroupFlags uint32

const (
	// GroupFlagChannelSpecificHandles means member handles are only valid
	// within the group and must be mapped to their owners.
	GroupFlagChannelSpecificHandles GroupFlags = 1 << 11
)

// Has reports whether every bit of f is set.
func (g GroupFlags) Has(f GroupFlags) bool {
	return g&f == f
}

// Identity is a stable participant identity as known to the presence
// directory. Key is unique per participant across sessions.
type Identity struct {
	Key  string
	Nick string
}

func (i Identity) String() string {
	if i.Nick == "" {
		return i.Key
	}
	return fmt.Sprintf("%s (%s)", i.Nick, i.Key)
}

// Connection is one participant's link to the presence network.
type Connection interface {
	// Name is the bus name identifying the connection to the directory.
	Name() string
	// Path is the object path identifying the connection to the directory.
	Path() string
	// SelfHandle returns the contact handle of the local participant.
	SelfHandle(ctx context.Context) (Handle, error)
	// InspectHandle returns the human-readable name of a handle.
	InspectHandle(ctx context.Context, t HandleType, h Handle) (string, error)
	// Channel opens an existing channel by path.
	Channel(path ChannelPath) (Channel, error)
	// RequestChannel creates or returns a channel of the given type targeting h.
	RequestChannel(ctx context.Context, ct ChannelType, t HandleType, h Handle, suppressHandler bool) (Channel, error)
}

// Channel is a handle on one channel of a connection. Capability queries
// return (nil, false) when the channel does not implement the capability.
type Channel interface {
	Path() ChannelPath
	Handle(ctx context.Context) (HandleType, Handle, error)
	Type(ctx context.Context) (ChannelType, error)
	Group() (Group, bool)
	Tubes() (Tubes, bool)
}

// Group exposes membership of a channel.
type Group interface {
	SelfHandle(ctx context.Context) (Handle, error)
	Flags(ctx context.Context) (GroupFlags, error)
	// HandleOwners maps channel-specific handles to their owners' contact
	// handles. A zero owner means the mapping is unknown.
	HandleOwners(ctx context.Context, handles []Handle) ([]Handle, error)
}

// Directory maps a contact handle on a connection to a stable Identity.
type Directory interface {
	LookupByHandle(ctx context.Context, connName, connPath string, h Handle) (Identity, error)
}
