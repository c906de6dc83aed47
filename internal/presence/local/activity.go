package local

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/cory-johannsen/memosono/internal/activity"
	"github.com/cory-johannsen/memosono/internal/presence"
)

// Activity is a hosting shell backed by a Network. A host activity becomes
// shared with Share; a guest activity is launched against an existing room and
// enters it with Join. It implements activity.Shell.
type Activity struct {
	conn     *Connection
	roomName string
	guest    bool

	// Guarded by conn.net.mu.
	shared    bool
	listeners []activity.Listener
}

// HostActivity creates an activity that will share the named room.
func (c *Connection) HostActivity(roomName string) *Activity {
	return c.newActivity(roomName, false)
}

// GuestActivity creates an activity launched to join the named room.
func (c *Connection) GuestActivity(roomName string) *Activity {
	return c.newActivity(roomName, true)
}

func (c *Connection) newActivity(roomName string, guest bool) *Activity {
	a := &Activity{conn: c, roomName: roomName, guest: guest}
	c.net.mu.Lock()
	c.activities = append(c.activities, a)
	c.net.mu.Unlock()
	return a
}

// Subscribe registers l for lifecycle events.
func (a *Activity) Subscribe(l activity.Listener) {
	a.conn.net.mu.Lock()
	defer a.conn.net.mu.Unlock()
	a.listeners = append(a.listeners, l)
}

func (a *Activity) listenersLocked() []activity.Listener {
	return append([]activity.Listener(nil), a.listeners...)
}

// Share enters the room as its creator and raises ActivityShared.
//
// Precondition: a must be a host activity.
// Postcondition: The connection holds a text channel for the room.
func (a *Activity) Share() error {
	if a.guest {
		return errors.New("a guest activity cannot be shared")
	}
	return a.enter(func(l activity.Listener) { l.ActivityShared() })
}

// Join enters an existing room and raises ActivityJoined.
//
// Precondition: a must be a guest activity.
func (a *Activity) Join() error {
	if !a.guest {
		return errors.New("a host activity cannot be joined")
	}
	return a.enter(func(l activity.Listener) { l.ActivityJoined() })
}

func (a *Activity) enter(raise func(activity.Listener)) error {
	n := a.conn.net
	n.mu.Lock()
	defer n.mu.Unlock()

	if a.conn.closed {
		return ErrClosed
	}
	if a.guest {
		if _, exists := n.rooms[a.roomName]; !exists {
			return fmt.Errorf("no shared activity in room %q", a.roomName)
		}
	}
	n.joinLocked(a.conn, a.roomName)
	a.shared = true

	listeners := a.listenersLocked()
	a.conn.post(func() {
		for _, l := range listeners {
			raise(l)
		}
	})
	return nil
}

// Leave exits the room. Remaining members receive ParticipantLeft.
func (a *Activity) Leave() {
	n := a.conn.net
	n.mu.Lock()
	defer n.mu.Unlock()

	if r, ok := n.rooms[a.roomName]; ok {
		n.leaveLocked(a.conn, r)
	}
	a.shared = false
}

// LaunchedAsGuest implements activity.Shell.
func (a *Activity) LaunchedAsGuest() bool { return a.guest }

// HasSharedActivity implements activity.Shell.
func (a *Activity) HasSharedActivity() bool {
	a.conn.net.mu.Lock()
	defer a.conn.net.mu.Unlock()
	return a.guest || a.shared
}

// IsShared implements activity.Shell.
func (a *Activity) IsShared() bool {
	a.conn.net.mu.Lock()
	defer a.conn.net.mu.Unlock()
	return a.shared
}

// JoinedParticipants implements activity.Shell.
func (a *Activity) JoinedParticipants() []presence.Identity {
	n := a.conn.net
	n.mu.Lock()
	defer n.mu.Unlock()

	r, ok := n.rooms[a.roomName]
	if !ok {
		return nil
	}
	return lo.FilterMap(r.order, func(m *Connection, _ int) (presence.Identity, bool) {
		return m.identity, m != a.conn
	})
}

// Channels implements activity.Shell.
func (a *Activity) Channels() (presence.ChannelList, error) {
	n := a.conn.net
	n.mu.Lock()
	defer n.mu.Unlock()

	list := presence.ChannelList{BusName: a.conn.name, ConnPath: a.conn.path}
	if !a.shared {
		return list, fmt.Errorf("activity in room %q is not shared", a.roomName)
	}
	if r, ok := n.rooms[a.roomName]; ok {
		list.Paths = a.conn.channelPathsLocked(r)
	}
	return list, nil
}
