package local

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/memosono/internal/presence"
)

type recordingListener struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingListener) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingListener) ActivityShared() { r.add("shared") }
func (r *recordingListener) ActivityJoined() { r.add("joined") }
func (r *recordingListener) ParticipantJoined(id presence.Identity) { r.add("+" + id.Nick) }
func (r *recordingListener) ParticipantLeft(id presence.Identity) { r.add("-" + id.Nick) }

func (r *recordingListener) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func newPair(t *testing.T, opts Options) (*Network, *Connection, *Connection) {
	t.Helper()
	n := NewNetwork(zaptest.NewLogger(t), opts)
	t.Cleanup(n.Close)
	alice, err := n.AddParticipant("alice", "key-alice")
	require.NoError(t, err)
	bob, err := n.AddParticipant("bob", "key-bob")
	require.NoError(t, err)
	return n, alice, bob
}

func channelOfType(t *testing.T, c *Connection, list presence.ChannelList, ct presence.ChannelType) presence.Channel {
	t.Helper()
	for _, p := range list.Paths {
		ch, err := c.Channel(p)
		require.NoError(t, err)
		got, err := ch.Type(context.Background())
		require.NoError(t, err)
		if got == ct {
			return ch
		}
	}
	t.Fatalf("no %s channel in %v", ct, list.Paths)
	return nil
}

func TestNetwork_AddParticipantDuplicate(t *testing.T) {
	n := NewNetwork(zaptest.NewLogger(t), Options{})
	defer n.Close()
	_, err := n.AddParticipant("alice", "")
	require.NoError(t, err)
	_, err = n.AddParticipant("alice", "")
	assert.Error(t, err)
}

func TestNetwork_AddParticipantGeneratesKey(t *testing.T) {
	n := NewNetwork(zaptest.NewLogger(t), Options{})
	defer n.Close()
	c, err := n.AddParticipant("alice", "")
	require.NoError(t, err)
	assert.NotEmpty(t, c.Identity().Key)
}

func TestActivity_ShareAndJoin(t *testing.T) {
	_, alice, bob := newPair(t, Options{ChannelSpecificHandles: true})

	host := alice.HostActivity("memosono")
	hostEvents := &recordingListener{}
	host.Subscribe(hostEvents)
	assert.False(t, host.HasSharedActivity())
	assert.False(t, host.LaunchedAsGuest())

	guest := bob.GuestActivity("memosono")
	guestEvents := &recordingListener{}
	guest.Subscribe(guestEvents)
	assert.True(t, guest.HasSharedActivity())
	assert.True(t, guest.LaunchedAsGuest())
	assert.False(t, guest.IsShared())

	require.Error(t, guest.Join(), "room does not exist before sharing")
	require.NoError(t, host.Share())
	assert.True(t, host.HasSharedActivity())
	assert.False(t, host.LaunchedAsGuest(), "sharing does not change the launch mode")
	require.NoError(t, guest.Join())

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"shared", "+bob"}, hostEvents.snapshot())
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"joined"}, guestEvents.snapshot())
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []presence.Identity{{Key: "key-bob", Nick: "bob"}}, host.JoinedParticipants())
	assert.Equal(t, []presence.Identity{{Key: "key-alice", Nick: "alice"}}, guest.JoinedParticipants())

	guest.Leave()
	assert.Eventually(t, func() bool {
		events := hostEvents.snapshot()
		return len(events) == 3 && events[2] == "-bob"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestActivity_ChannelsRequireShare(t *testing.T) {
	_, alice, _ := newPair(t, Options{})
	host := alice.HostActivity("memosono")
	_, err := host.Channels()
	assert.Error(t, err)

	require.NoError(t, host.Share())
	list, err := host.Channels()
	require.NoError(t, err)
	assert.Equal(t, alice.Name(), list.BusName)
	assert.Equal(t, alice.Path(), list.ConnPath)
	require.Len(t, list.Paths, 1)
}

func TestActivity_ProvideTubes(t *testing.T) {
	_, alice, _ := newPair(t, Options{ProvideTubes: true})
	host := alice.HostActivity("memosono")
	require.NoError(t, host.Share())
	list, err := host.Channels()
	require.NoError(t, err)
	assert.Len(t, list.Paths, 2)
	ch := channelOfType(t, alice, list, presence.ChannelTypeTubes)
	_, ok := ch.Tubes()
	assert.True(t, ok)
	_, ok = ch.Group()
	assert.False(t, ok)
}

func TestGroup_ChannelSpecificHandles(t *testing.T) {
	ctx := context.Background()
	n, alice, bob := newPair(t, Options{ChannelSpecificHandles: true})
	require.NoError(t, alice.HostActivity("memosono").Share())
	guest := bob.GuestActivity("memosono")
	require.NoError(t, guest.Join())

	list, err := guest.Channels()
	require.NoError(t, err)
	text := channelOfType(t, bob, list, presence.ChannelTypeText)
	g, ok := text.Group()
	require.True(t, ok)

	flags, err := g.Flags(ctx)
	require.NoError(t, err)
	assert.True(t, flags.Has(presence.GroupFlagChannelSpecificHandles))

	csh, err := g.SelfHandle(ctx)
	require.NoError(t, err)
	self, err := bob.SelfHandle(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, self, csh)

	owners, err := g.HandleOwners(ctx, []presence.Handle{csh})
	require.NoError(t, err)
	assert.Equal(t, []presence.Handle{self}, owners)

	_, err = g.HandleOwners(ctx, []presence.Handle{9999})
	assert.ErrorIs(t, err, ErrInvalidHandle)

	id, err := n.LookupByHandle(ctx, bob.Name(), bob.Path(), self)
	require.NoError(t, err)
	assert.Equal(t, "bob", id.Nick)
}

func TestGroup_PlainHandles(t *testing.T) {
	ctx := context.Background()
	_, alice, _ := newPair(t, Options{})
	host := alice.HostActivity("memosono")
	require.NoError(t, host.Share())
	list, err := host.Channels()
	require.NoError(t, err)
	g, ok := channelOfType(t, alice, list, presence.ChannelTypeText).Group()
	require.True(t, ok)

	flags, err := g.Flags(ctx)
	require.NoError(t, err)
	assert.False(t, flags.Has(presence.GroupFlagChannelSpecificHandles))

	csh, err := g.SelfHandle(ctx)
	require.NoError(t, err)
	self, err := alice.SelfHandle(ctx)
	require.NoError(t, err)
	assert.Equal(t, self, csh)
}

func TestDirectory_NotFound(t *testing.T) {
	n, alice, _ := newPair(t, Options{})
	_, err := n.LookupByHandle(context.Background(), alice.Name(), alice.Path(), 4242)
	assert.ErrorIs(t, err, presence.ErrNotFound)

	_, err = n.LookupByHandle(context.Background(), "bogus", alice.Path(), 1)
	assert.ErrorIs(t, err, presence.ErrNotFound)
}

func TestConnection_InspectHandle(t *testing.T) {
	ctx := context.Background()
	_, alice, _ := newPair(t, Options{})
	host := alice.HostActivity("memosono")
	require.NoError(t, host.Share())
	list, err := host.Channels()
	require.NoError(t, err)
	ch, err := alice.Channel(list.Paths[0])
	require.NoError(t, err)
	ht, room, err := ch.Handle(ctx)
	require.NoError(t, err)
	assert.Equal(t, presence.HandleTypeRoom, ht)

	name, err := alice.InspectHandle(ctx, presence.HandleTypeRoom, room)
	require.NoError(t, err)
	assert.Equal(t, "memosono", name)

	_, err = alice.InspectHandle(ctx, presence.HandleTypeRoom, 4242)
	assert.ErrorIs(t, err, ErrInvalidHandle)
}

type tubesFixture struct {
	aliceTubes presence.Tubes
	bobTubes   presence.Tubes
}

func openTubes(t *testing.T, opts Options) (*Connection, *Connection, tubesFixture) {
	t.Helper()
	ctx := context.Background()
	_, alice, bob := newPair(t, opts)
	host := alice.HostActivity("memosono")
	require.NoError(t, host.Share())
	guest := bob.GuestActivity("memosono")
	require.NoError(t, guest.Join())

	tubesFor := func(c *Connection, a *Activity) presence.Tubes {
		list, err := a.Channels()
		require.NoError(t, err)
		text := channelOfType(t, c, list, presence.ChannelTypeText)
		_, room, err := text.Handle(ctx)
		require.NoError(t, err)
		ch, err := c.RequestChannel(ctx, presence.ChannelTypeTubes, presence.HandleTypeRoom, room, true)
		require.NoError(t, err)
		tb, ok := ch.Tubes()
		require.True(t, ok)
		return tb
	}
	return alice, bob, tubesFixture{aliceTubes: tubesFor(alice, host), bobTubes: tubesFor(bob, guest)}
}

func TestTubes_OfferNotifiesAndAcceptOpens(t *testing.T) {
	ctx := context.Background()
	_, _, f := openTubes(t, Options{ChannelSpecificHandles: true})

	offers := make(chan presence.TubeInfo, 4)
	f.bobTubes.OnNewTube(func(info presence.TubeInfo) { offers <- info })
	own := make(chan presence.TubeInfo, 4)
	f.aliceTubes.OnNewTube(func(info presence.TubeInfo) { own <- info })
	states := make(chan presence.TubeState, 4)
	f.aliceTubes.OnTubeStateChanged(func(_ presence.TubeID, s presence.TubeState) { states <- s })

	id, err := f.aliceTubes.OfferTube(ctx, presence.TubeTypeDBus, "org.example.Game", map[string]any{})
	require.NoError(t, err)

	select {
	case info := <-offers:
		assert.Equal(t, id, info.ID)
		assert.Equal(t, presence.TubeStateLocalPending, info.State)
		assert.Equal(t, "org.example.Game", info.Service)
	case <-time.After(2 * time.Second):
		t.Fatal("no new tube notification")
	}
	select {
	case info := <-own:
		assert.Equal(t, presence.TubeStateRemotePending, info.State)
	case <-time.After(2 * time.Second):
		t.Fatal("offerer not notified")
	}

	require.Error(t, f.aliceTubes.AcceptTube(ctx, id), "offerer cannot accept own tube")
	require.NoError(t, f.bobTubes.AcceptTube(ctx, id))
	select {
	case s := <-states:
		assert.Equal(t, presence.TubeStateOpen, s)
	case <-time.After(2 * time.Second):
		t.Fatal("offerer not told the tube opened")
	}
}

func TestTubes_ListTubes(t *testing.T) {
	ctx := context.Background()
	_, _, f := openTubes(t, Options{})
	id, err := f.aliceTubes.OfferTube(ctx, presence.TubeTypeDBus, "svc", nil)
	require.NoError(t, err)

	replies := make(chan presence.ListTubesResult, 1)
	f.bobTubes.ListTubes(func(r presence.ListTubesResult) { replies <- r })
	select {
	case r := <-replies:
		require.NoError(t, r.Err)
		require.Len(t, r.Tubes, 1)
		assert.Equal(t, id, r.Tubes[0].ID)
		assert.Equal(t, presence.TubeStateLocalPending, r.Tubes[0].State)
	case <-time.After(2 * time.Second):
		t.Fatal("no list reply")
	}
}

func TestTubes_ConnectRequiresOpen(t *testing.T) {
	ctx := context.Background()
	_, _, f := openTubes(t, Options{})
	id, err := f.aliceTubes.OfferTube(ctx, presence.TubeTypeDBus, "svc", nil)
	require.NoError(t, err)
	_, err = f.bobTubes.Connect(ctx, id, func(presence.Delivery) {})
	assert.Error(t, err)
}

func TestTubes_SendPreservesOrder(t *testing.T) {
	ctx := context.Background()
	_, _, f := openTubes(t, Options{ChannelSpecificHandles: true})
	id, err := f.aliceTubes.OfferTube(ctx, presence.TubeTypeDBus, "svc", nil)
	require.NoError(t, err)
	require.NoError(t, f.bobTubes.AcceptTube(ctx, id))

	got := make(chan presence.Delivery, 128)
	_, err = f.bobTubes.Connect(ctx, id, func(d presence.Delivery) { got <- d })
	require.NoError(t, err)
	var aliceEnd presence.TubeEndpoint
	require.Eventually(t, func() bool {
		aliceEnd, err = f.aliceTubes.Connect(ctx, id, func(presence.Delivery) {})
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	for i := 0; i < 100; i++ {
		require.NoError(t, aliceEnd.Send([]byte{byte(i)}))
	}
	for i := 0; i < 100; i++ {
		select {
		case d := <-got:
			assert.Equal(t, []byte{byte(i)}, d.Payload)
		case <-time.After(2 * time.Second):
			t.Fatalf("delivery %d missing", i)
		}
	}

	require.NoError(t, aliceEnd.Close())
	assert.Error(t, aliceEnd.Send([]byte("late")))
}

func TestTubes_BacklogDeliveredOnConnect(t *testing.T) {
	ctx := context.Background()
	_, _, f := openTubes(t, Options{})
	id, err := f.aliceTubes.OfferTube(ctx, presence.TubeTypeDBus, "svc", nil)
	require.NoError(t, err)
	require.NoError(t, f.bobTubes.AcceptTube(ctx, id))

	bobEnd, err := f.bobTubes.Connect(ctx, id, func(presence.Delivery) {})
	require.NoError(t, err)
	require.NoError(t, bobEnd.Send([]byte("early-1")))
	require.NoError(t, bobEnd.Send([]byte("early-2")))

	got := make(chan presence.Delivery, 4)
	require.Eventually(t, func() bool {
		_, err = f.aliceTubes.Connect(ctx, id, func(d presence.Delivery) { got <- d })
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	for _, want := range []string{"early-1", "early-2"} {
		select {
		case d := <-got:
			assert.Equal(t, want, string(d.Payload))
		case <-time.After(2 * time.Second):
			t.Fatalf("%s not delivered", want)
		}
	}
}
