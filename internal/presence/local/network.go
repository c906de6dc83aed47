// Package local implements the presence substrate in memory: a single
// process hosts every participant's connection, the rooms they share, and the
// tubes negotiated on those rooms. Notifications are delivered asynchronously
// on one dispatcher goroutine per connection, in the order they were raised.
package local

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/memosono/internal/presence"
)

var (
	// ErrInvalidHandle is returned when a handle is not known to the network.
	ErrInvalidHandle = errors.New("invalid handle")
	// ErrNotMember is returned for room operations by a connection outside the room.
	ErrNotMember = errors.New("not a member of the room")
	// ErrClosed is returned by operations on a closed connection.
	ErrClosed = errors.New("connection closed")
)

// Options configures room behaviour for a Network.
type Options struct {
	// ChannelSpecificHandles makes every room allocate group-local member
	// handles that must be mapped back to contact handles.
	ChannelSpecificHandles bool
	// ProvideTubes opens a tubes channel alongside the text channel when a
	// connection joins a room.
	ProvideTubes bool
}

// Network is an in-memory presence network. All methods are safe for
// concurrent use.
type Network struct {
	logger *zap.Logger
	opts   Options

	mu         sync.Mutex
	nextHandle presence.Handle
	contacts   map[presence.Handle]*Connection
	conns      map[string]*Connection // path → connection
	rooms      map[string]*room       // name → room
	byHandle   map[presence.Handle]*room
}

// NewNetwork creates an empty Network.
//
// Precondition: logger must be non-nil.
func NewNetwork(logger *zap.Logger, opts Options) *Network {
	return &Network{
		logger:     logger.Named("local"),
		opts:       opts,
		nextHandle: 1,
		contacts:   make(map[presence.Handle]*Connection),
		conns:      make(map[string]*Connection),
		rooms:      make(map[string]*room),
		byHandle:   make(map[presence.Handle]*room),
	}
}

// AddParticipant registers a participant and opens its connection. An empty
// key is replaced with a random UUID.
//
// Precondition: nick must be non-empty and unique within the network.
// Postcondition: Returns an open Connection, or an error on a duplicate nick.
func (n *Network) AddParticipant(nick, key string) (*Connection, error) {
	if nick == "" {
		return nil, errors.New("participant nick must not be empty")
	}
	if key == "" {
		key = uuid.NewString()
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	path := "/org/memosono/Local/" + nick
	if _, exists := n.conns[path]; exists {
		return nil, fmt.Errorf("participant %q already registered", nick)
	}

	c := newConnection(n, "org.memosono.Local."+nick, path, n.allocLocked(), presence.Identity{Key: key, Nick: nick})
	n.conns[path] = c
	n.contacts[c.self] = c

	n.logger.Debug("participant added",
		zap.String("nick", nick),
		zap.String("key", key),
		zap.Uint32("handle", uint32(c.self)),
	)
	return c, nil
}

// LookupByHandle implements presence.Directory for contact handles of this network.
func (n *Network) LookupByHandle(_ context.Context, connName, connPath string, h presence.Handle) (presence.Identity, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	c, ok := n.conns[connPath]
	if !ok || c.name != connName {
		return presence.Identity{}, fmt.Errorf("connection %s %s: %w", connName, connPath, presence.ErrNotFound)
	}
	owner, ok := n.contacts[h]
	if !ok {
		return presence.Identity{}, fmt.Errorf("handle %d: %w", h, presence.ErrNotFound)
	}
	return owner.identity, nil
}

// Close closes every connection.
func (n *Network) Close() {
	n.mu.Lock()
	conns := make([]*Connection, 0, len(n.conns))
	for _, c := range n.conns {
		conns = append(conns, c)
	}
	n.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

func (n *Network) allocLocked() presence.Handle {
	h := n.nextHandle
	n.nextHandle++
	return h
}

// joinLocked adds c to the named room, creating it on first use.
func (n *Network) joinLocked(c *Connection, name string) *room {
	r, ok := n.rooms[name]
	if !ok {
		r = newRoom(name, n.allocLocked(), n.opts.ChannelSpecificHandles)
		n.rooms[name] = r
		n.byHandle[r.handle] = r
		n.logger.Debug("room created", zap.String("room", name), zap.Uint32("handle", uint32(r.handle)))
	}
	if _, member := r.members[c]; member {
		return r
	}

	memberHandle := c.self
	if r.csHandles {
		memberHandle = n.allocLocked()
		r.owners[memberHandle] = c.self
	}
	r.members[c] = memberHandle
	r.order = append(r.order, c)

	c.openChannelLocked(r, presence.ChannelTypeText)
	if n.opts.ProvideTubes {
		c.openChannelLocked(r, presence.ChannelTypeTubes)
	}

	for _, other := range r.order {
		if other == c {
			continue
		}
		other.notifyParticipantLocked(r, c.identity, true)
	}
	n.logger.Debug("room joined",
		zap.String("room", name),
		zap.String("nick", c.identity.Nick),
		zap.Uint32("member_handle", uint32(memberHandle)),
	)
	return r
}

func (n *Network) leaveLocked(c *Connection, r *room) {
	if _, member := r.members[c]; !member {
		return
	}
	delete(r.members, c)
	for i, m := range r.order {
		if m == c {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	for _, t := range r.tubes {
		delete(t.receivers, c)
		delete(t.open, c)
		delete(t.backlog, c)
		delete(t.detached, c)
	}
	c.closeChannelsLocked(r)

	for _, other := range r.order {
		other.notifyParticipantLocked(r, c.identity, false)
	}
}

type room struct {
	name      string
	handle    presence.Handle
	csHandles bool

	members map[*Connection]presence.Handle // connection → group handle
	order   []*Connection
	owners  map[presence.Handle]presence.Handle // channel-specific → contact

	nextTube presence.TubeID
	tubes    map[presence.TubeID]*tube
	tubeSeq  []presence.TubeID
}

func newRoom(name string, h presence.Handle, csHandles bool) *room {
	return &room{
		name:      name,
		handle:    h,
		csHandles: csHandles,
		members:   make(map[*Connection]presence.Handle),
		owners:    make(map[presence.Handle]presence.Handle),
		nextTube:  1,
		tubes:     make(map[presence.TubeID]*tube),
	}
}

type tube struct {
	info      presence.TubeInfo
	offerer   *Connection
	open      map[*Connection]bool
	receivers map[*Connection]func(presence.Delivery)
	// backlog holds deliveries for open members that have not connected yet.
	backlog map[*Connection][]presence.Delivery
	// detached members closed their endpoint and receive nothing further.
	detached map[*Connection]bool
}

// stateFor returns the tube state as seen by c.
func (t *tube) stateFor(c *Connection) presence.TubeState {
	switch {
	case t.open[c]:
		return presence.TubeStateOpen
	case t.offerer == c:
		return presence.TubeStateRemotePending
	default:
		return presence.TubeStateLocalPending
	}
}

func (t *tube) infoFor(c *Connection) presence.TubeInfo {
	info := t.info
	info.State = t.stateFor(c)
	return info
}
