package testutil

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/memosono/internal/discovery"
	"github.com/cory-johannsen/memosono/internal/presence/local"
)

// RoomName is the room shared by SharedRoom.
const RoomName = "memosono-test"

// Participant is one member of a local test network with its activity.
type Participant struct {
	Conn     *local.Connection
	Activity *local.Activity
}

// NewNetwork creates a local presence network closed at test cleanup.
//
// Postcondition: Returns an empty, open Network.
func NewNetwork(t *testing.T, opts local.Options) *local.Network {
	t.Helper()
	n := local.NewNetwork(zaptest.NewLogger(t), opts)
	t.Cleanup(n.Close)
	return n
}

// AddParticipant adds nick to n with key "key-<nick>" or fails the test.
func AddParticipant(t *testing.T, n *local.Network, nick string) *local.Connection {
	t.Helper()
	c, err := n.AddParticipant(nick, "key-"+nick)
	if err != nil {
		t.Fatalf("adding participant %s: %v", nick, err)
	}
	return c
}

// SharedRoom builds a network where nicks[0] shares RoomName and every other
// nick joins it, in order.
//
// Precondition: len(nicks) >= 1.
// Postcondition: Every returned Activity is in the room.
func SharedRoom(t *testing.T, opts local.Options, nicks ...string) (*local.Network, []Participant) {
	t.Helper()
	n := NewNetwork(t, opts)
	ps := make([]Participant, 0, len(nicks))
	for i, nick := range nicks {
		c := AddParticipant(t, n, nick)
		p := Participant{Conn: c}
		if i == 0 {
			p.Activity = c.HostActivity(RoomName)
			if err := p.Activity.Share(); err != nil {
				t.Fatalf("sharing %s: %v", RoomName, err)
			}
		} else {
			p.Activity = c.GuestActivity(RoomName)
			if err := p.Activity.Join(); err != nil {
				t.Fatalf("%s joining %s: %v", nick, RoomName, err)
			}
		}
		ps = append(ps, p)
	}
	return n, ps
}

// Discover runs channel discovery for p's activity or fails the test.
func Discover(t *testing.T, p Participant) *discovery.ChannelSet {
	t.Helper()
	list, err := p.Activity.Channels()
	if err != nil {
		t.Fatalf("listing channels: %v", err)
	}
	set, err := discovery.NewDiscoverer(p.Conn, zaptest.NewLogger(t)).Discover(context.Background(), list.Paths)
	if err != nil {
		t.Fatalf("discovering channels: %v", err)
	}
	return set
}

// Receive waits up to timeout for a value on ch.
func Receive[T any](t *testing.T, ch <-chan T, timeout time.Duration) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return v
	case <-time.After(timeout):
		t.Fatalf("nothing received within %s", timeout)
	}
	var zero T
	return zero
}
