package local

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/memosono/internal/mailbox"
	"github.com/cory-johannsen/memosono/internal/presence"
)

// Connection is one participant's link to a Network. It implements
// presence.Connection.
type Connection struct {
	net      *Network
	name     string
	path     string
	self     presence.Handle
	identity presence.Identity

	dispatch *mailbox.Mailbox[func()]

	// Guarded by net.mu.
	channels     map[presence.ChannelPath]*channel
	channelOrder []presence.ChannelPath
	activities   []*Activity
	closed       bool
}

func newConnection(n *Network, name, path string, self presence.Handle, id presence.Identity) *Connection {
	c := &Connection{
		net:      n,
		name:     name,
		path:     path,
		self:     self,
		identity: id,
		dispatch: mailbox.New[func()](),
		channels: make(map[presence.ChannelPath]*channel),
	}
	go c.run()
	return c
}

func (c *Connection) run() {
	for fn := range c.dispatch.Events() {
		fn()
	}
}

// post queues fn on the connection's dispatcher.
func (c *Connection) post(fn func()) {
	if err := c.dispatch.Push(fn); err != nil {
		c.net.logger.Debug("dropping notification",
			zap.String("nick", c.identity.Nick),
			zap.Error(err),
		)
	}
}

// Name implements presence.Connection.
func (c *Connection) Name() string { return c.name }

// Path implements presence.Connection.
func (c *Connection) Path() string { return c.path }

// Identity returns the participant identity registered for this connection.
func (c *Connection) Identity() presence.Identity { return c.identity }

// SelfHandle implements presence.Connection.
func (c *Connection) SelfHandle(context.Context) (presence.Handle, error) {
	return c.self, nil
}

// InspectHandle implements presence.Connection.
func (c *Connection) InspectHandle(_ context.Context, t presence.HandleType, h presence.Handle) (string, error) {
	c.net.mu.Lock()
	defer c.net.mu.Unlock()

	switch t {
	case presence.HandleTypeContact:
		if owner, ok := c.net.contacts[h]; ok {
			return owner.identity.Nick, nil
		}
	case presence.HandleTypeRoom:
		if r, ok := c.net.byHandle[h]; ok {
			return r.name, nil
		}
	}
	return "", fmt.Errorf("%s handle %d: %w", t, h, ErrInvalidHandle)
}

// Channel implements presence.Connection.
func (c *Connection) Channel(path presence.ChannelPath) (presence.Channel, error) {
	c.net.mu.Lock()
	defer c.net.mu.Unlock()

	ch, ok := c.channels[path]
	if !ok {
		return nil, fmt.Errorf("no channel at %s", path)
	}
	return ch, nil
}

// RequestChannel implements presence.Connection. Only room-targeted channels
// are supported.
func (c *Connection) RequestChannel(_ context.Context, ct presence.ChannelType, t presence.HandleType, h presence.Handle, _ bool) (presence.Channel, error) {
	c.net.mu.Lock()
	defer c.net.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if t != presence.HandleTypeRoom {
		return nil, fmt.Errorf("requesting %s channel for %s handle: unsupported target", ct, t)
	}
	r, ok := c.net.byHandle[h]
	if !ok {
		return nil, fmt.Errorf("room handle %d: %w", h, ErrInvalidHandle)
	}
	if _, member := r.members[c]; !member {
		return nil, fmt.Errorf("room %q: %w", r.name, ErrNotMember)
	}
	return c.openChannelLocked(r, ct), nil
}

// Close leaves every room and stops the dispatcher. It is idempotent.
func (c *Connection) Close() error {
	c.net.mu.Lock()
	if c.closed {
		c.net.mu.Unlock()
		return nil
	}
	c.closed = true
	for _, r := range c.net.rooms {
		c.net.leaveLocked(c, r)
	}
	c.net.mu.Unlock()

	return c.dispatch.Close()
}

func (c *Connection) openChannelLocked(r *room, ct presence.ChannelType) *channel {
	path := presence.ChannelPath(fmt.Sprintf("%s/channel/%s/%s", c.path, r.name, ct))
	if ch, ok := c.channels[path]; ok {
		return ch
	}
	ch := newChannel(c, r, path, ct)
	c.channels[path] = ch
	c.channelOrder = append(c.channelOrder, path)
	return ch
}

func (c *Connection) closeChannelsLocked(r *room) {
	kept := c.channelOrder[:0]
	for _, path := range c.channelOrder {
		if ch := c.channels[path]; ch.room == r {
			delete(c.channels, path)
			continue
		}
		kept = append(kept, path)
	}
	c.channelOrder = kept
}

// channelPathsLocked returns the paths of c's channels in r in creation order.
func (c *Connection) channelPathsLocked(r *room) []presence.ChannelPath {
	var paths []presence.ChannelPath
	for _, path := range c.channelOrder {
		if c.channels[path].room == r {
			paths = append(paths, path)
		}
	}
	return paths
}

func (c *Connection) tubesChannelLocked(r *room) *channel {
	for _, path := range c.channelOrder {
		if ch := c.channels[path]; ch.room == r && ch.ctype == presence.ChannelTypeTubes {
			return ch
		}
	}
	return nil
}

func (c *Connection) notifyParticipantLocked(r *room, id presence.Identity, joined bool) {
	for _, a := range c.activities {
		if a.roomName != r.name {
			continue
		}
		listeners := a.listenersLocked()
		c.post(func() {
			for _, l := range listeners {
				if joined {
					l.ParticipantJoined(id)
				} else {
					l.ParticipantLeft(id)
				}
			}
		})
	}
}
