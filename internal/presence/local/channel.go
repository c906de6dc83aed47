package local

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"go.uber.org/zap"

	"github.com/cory-johannsen/memosono/internal/presence"
)

// channel is one connection's view of a room channel.
type channel struct {
	conn  *Connection
	room  *room
	path  presence.ChannelPath
	ctype presence.ChannelType

	// Guarded by conn.net.mu.
	nextSub   int
	newTube   map[int]func(presence.TubeInfo)
	tubeState map[int]func(presence.TubeID, presence.TubeState)
}

func newChannel(c *Connection, r *room, path presence.ChannelPath, ct presence.ChannelType) *channel {
	return &channel{
		conn:      c,
		room:      r,
		path:      path,
		ctype:     ct,
		newTube:   make(map[int]func(presence.TubeInfo)),
		tubeState: make(map[int]func(presence.TubeID, presence.TubeState)),
	}
}

func (ch *channel) Path() presence.ChannelPath { return ch.path }

func (ch *channel) Handle(context.Context) (presence.HandleType, presence.Handle, error) {
	return presence.HandleTypeRoom, ch.room.handle, nil
}

func (ch *channel) Type(context.Context) (presence.ChannelType, error) {
	return ch.ctype, nil
}

func (ch *channel) Group() (presence.Group, bool) {
	if ch.ctype != presence.ChannelTypeText {
		return nil, false
	}
	return group{ch}, true
}

func (ch *channel) Tubes() (presence.Tubes, bool) {
	if ch.ctype != presence.ChannelTypeTubes {
		return nil, false
	}
	return tubes{ch}, true
}

// group implements presence.Group over a text channel.
type group struct{ *channel }

func (g group) SelfHandle(context.Context) (presence.Handle, error) {
	n := g.conn.net
	n.mu.Lock()
	defer n.mu.Unlock()

	h, ok := g.room.members[g.conn]
	if !ok {
		return 0, fmt.Errorf("room %q: %w", g.room.name, ErrNotMember)
	}
	return h, nil
}

func (g group) Flags(context.Context) (presence.GroupFlags, error) {
	if g.room.csHandles {
		return presence.GroupFlagChannelSpecificHandles, nil
	}
	return 0, nil
}

func (g group) HandleOwners(_ context.Context, handles []presence.Handle) ([]presence.Handle, error) {
	n := g.conn.net
	n.mu.Lock()
	defer n.mu.Unlock()

	owners := make([]presence.Handle, len(handles))
	for i, h := range handles {
		if !g.room.csHandles {
			owners[i] = h
			continue
		}
		owner, ok := g.room.owners[h]
		if !ok {
			return nil, fmt.Errorf("room %q handle %d: %w", g.room.name, h, ErrInvalidHandle)
		}
		owners[i] = owner
	}
	return owners, nil
}

// tubes implements presence.Tubes over a tubes channel.
type tubes struct{ *channel }

func (t tubes) OfferTube(_ context.Context, tt presence.TubeType, service string, params map[string]any) (presence.TubeID, error) {
	n := t.conn.net
	n.mu.Lock()
	defer n.mu.Unlock()

	initiator, ok := t.room.members[t.conn]
	if !ok {
		return 0, fmt.Errorf("room %q: %w", t.room.name, ErrNotMember)
	}

	id := t.room.nextTube
	t.room.nextTube++
	tb := &tube{
		info: presence.TubeInfo{
			ID:        id,
			Initiator: initiator,
			Type:      tt,
			Service:   service,
			Params:    maps.Clone(params),
		},
		offerer:   t.conn,
		open:      make(map[*Connection]bool),
		receivers: make(map[*Connection]func(presence.Delivery)),
		backlog:   make(map[*Connection][]presence.Delivery),
		detached:  make(map[*Connection]bool),
	}
	t.room.tubes[id] = tb
	t.room.tubeSeq = append(t.room.tubeSeq, id)

	for _, m := range t.room.order {
		ch := m.tubesChannelLocked(t.room)
		if ch == nil {
			continue
		}
		info := tb.infoFor(m)
		subs := snapshot(ch.newTube)
		m.post(func() {
			for _, fn := range subs {
				fn(info)
			}
		})
	}

	n.logger.Debug("tube offered",
		zap.String("room", t.room.name),
		zap.Uint32("tube", uint32(id)),
		zap.String("service", service),
		zap.Stringer("type", tt),
	)
	return id, nil
}

func (t tubes) AcceptTube(_ context.Context, id presence.TubeID) error {
	n := t.conn.net
	n.mu.Lock()
	defer n.mu.Unlock()

	tb, ok := t.room.tubes[id]
	if !ok {
		return fmt.Errorf("tube %d: %w", id, ErrInvalidHandle)
	}
	if tb.offerer == t.conn {
		return fmt.Errorf("tube %d: cannot accept own offer", id)
	}
	if tb.open[t.conn] {
		return nil
	}

	tb.open[t.conn] = true
	t.notifyStateLocked(t.conn, id, presence.TubeStateOpen)
	if !tb.open[tb.offerer] {
		tb.open[tb.offerer] = true
		t.notifyStateLocked(tb.offerer, id, presence.TubeStateOpen)
	}
	return nil
}

func (t tubes) notifyStateLocked(c *Connection, id presence.TubeID, state presence.TubeState) {
	ch := c.tubesChannelLocked(t.room)
	if ch == nil {
		return
	}
	subs := snapshot(ch.tubeState)
	c.post(func() {
		for _, fn := range subs {
			fn(id, state)
		}
	})
}

func (t tubes) ListTubes(fn func(presence.ListTubesResult)) {
	n := t.conn.net
	n.mu.Lock()
	var result presence.ListTubesResult
	if _, member := t.room.members[t.conn]; !member {
		result.Err = fmt.Errorf("listing tubes in room %q: %w", t.room.name, ErrNotMember)
	} else {
		result.Tubes = make([]presence.TubeInfo, 0, len(t.room.tubeSeq))
		for _, id := range t.room.tubeSeq {
			result.Tubes = append(result.Tubes, t.room.tubes[id].infoFor(t.conn))
		}
	}
	n.mu.Unlock()

	if err := t.conn.dispatch.Push(func() { fn(result) }); err != nil {
		go fn(presence.ListTubesResult{Err: fmt.Errorf("listing tubes: %w", ErrClosed)})
	}
}

func (t tubes) OnNewTube(fn func(presence.TubeInfo)) func() {
	n := t.conn.net
	n.mu.Lock()
	defer n.mu.Unlock()

	id := t.nextSub
	t.nextSub++
	t.newTube[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(t.newTube, id)
	}
}

func (t tubes) OnTubeStateChanged(fn func(presence.TubeID, presence.TubeState)) func() {
	n := t.conn.net
	n.mu.Lock()
	defer n.mu.Unlock()

	id := t.nextSub
	t.nextSub++
	t.tubeState[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(t.tubeState, id)
	}
}

func (t tubes) Connect(_ context.Context, id presence.TubeID, recv func(presence.Delivery)) (presence.TubeEndpoint, error) {
	n := t.conn.net
	n.mu.Lock()
	defer n.mu.Unlock()

	tb, ok := t.room.tubes[id]
	if !ok {
		return nil, fmt.Errorf("tube %d: %w", id, ErrInvalidHandle)
	}
	if !tb.open[t.conn] {
		return nil, fmt.Errorf("tube %d is %s, not open", id, tb.stateFor(t.conn))
	}
	tb.receivers[t.conn] = recv
	delete(tb.detached, t.conn)
	if queued := tb.backlog[t.conn]; len(queued) > 0 {
		delete(tb.backlog, t.conn)
		t.conn.post(func() {
			for _, d := range queued {
				recv(d)
			}
		})
	}
	return &endpoint{conn: t.conn, room: t.room, tube: tb}, nil
}

// endpoint is a connection's attachment to an open tube.
type endpoint struct {
	conn   *Connection
	room   *room
	tube   *tube
	closed bool
}

var errEndpointClosed = errors.New("tube endpoint closed")

// Send fans payload out to every other open member. Deliveries are queued
// under the network lock so each recipient sees one sender's messages in send
// order. Members that have not connected yet get them on Connect.
func (e *endpoint) Send(payload []byte) error {
	n := e.conn.net
	n.mu.Lock()
	defer n.mu.Unlock()

	if e.closed {
		return errEndpointClosed
	}
	sender, ok := e.room.members[e.conn]
	if !ok {
		return fmt.Errorf("room %q: %w", e.room.name, ErrNotMember)
	}
	for m, open := range e.tube.open {
		if m == e.conn || !open || e.tube.detached[m] {
			continue
		}
		d := presence.Delivery{Sender: sender, Payload: append([]byte(nil), payload...)}
		recv, connected := e.tube.receivers[m]
		if !connected {
			e.tube.backlog[m] = append(e.tube.backlog[m], d)
			continue
		}
		m.post(func() { recv(d) })
	}
	return nil
}

func (e *endpoint) Close() error {
	n := e.conn.net
	n.mu.Lock()
	defer n.mu.Unlock()

	if !e.closed {
		e.closed = true
		delete(e.tube.receivers, e.conn)
		e.tube.detached[e.conn] = true
	}
	return nil
}

func snapshot[F any](subs map[int]F) []F {
	out := make([]F, 0, len(subs))
	for _, fn := range subs {
		out = append(out, fn)
	}
	return out
}
