// Package session coordinates establishing a shared game session: it reacts
// to the hosting shell's lifecycle events, discovers the room's channels,
// negotiates the tunnel, maintains the roster, and hands the tunnel to the
// game engine exactly once.
//
// All state is owned by a single event loop (Coordinator.Run). Shell and
// substrate callbacks only queue events, so they never block and may arrive
// on any goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/memosono/internal/activity"
	"github.com/cory-johannsen/memosono/internal/discovery"
	"github.com/cory-johannsen/memosono/internal/game"
	"github.com/cory-johannsen/memosono/internal/identity"
	"github.com/cory-johannsen/memosono/internal/mailbox"
	"github.com/cory-johannsen/memosono/internal/observability"
	"github.com/cory-johannsen/memosono/internal/presence"
	"github.com/cory-johannsen/memosono/internal/roster"
	"github.com/cory-johannsen/memosono/internal/tunnel"
)

// Messages shown on the InfoPanel.
const (
	MsgShareToPlay      = "To play, share!"
	MsgWaitingForPlayer = "Waiting for another player..."
	MsgNoRoom           = "Could not find the shared room."
	MsgNoTextChannel    = "The shared room has no text channel."
	MsgSetupFailed      = "Could not set up the shared activity."
	MsgTunnelFailed     = "Could not connect to the other players."
	MsgEngineFailed     = "Could not start the game."
)

// Options configures a Coordinator.
type Options struct {
	// Service is the tunnel service name. Defaults to tunnel.DefaultService.
	Service string
	// GridSize is the board's side length. Defaults to game.DefaultGridSize.
	GridSize int
	// CallTimeout bounds each presence network call. Defaults to 5s.
	CallTimeout time.Duration
}

// Deps are the collaborators of a Coordinator.
type Deps struct {
	Conn      presence.Connection
	Directory presence.Directory
	Shell     activity.Shell
	InfoPanel activity.InfoPanel
	Roster    *roster.Roster
	Factory   game.Factory
	Logger    *zap.Logger
}

// Coordinator is the session state machine. It implements activity.Listener
// and tunnel.Sink.
type Coordinator struct {
	id     uuid.UUID
	deps   Deps
	opts   Options
	logger *zap.Logger
	events *mailbox.Mailbox[event]

	// Owned by the loop goroutine.
	local    presence.Identity
	set      *discovery.ChannelSet
	neg      *tunnel.Negotiator
	resolver *identity.Resolver
	offers   map[presence.TubeID]tunnel.Offer
	engine   game.Engine

	mu          sync.RWMutex
	state       State
	role        Role
	room        presence.Handle
	conn        *tunnel.Conn
	transitions []func(Transition)
}

var (
	_ activity.Listener = (*Coordinator)(nil)
	_ tunnel.Sink       = (*Coordinator)(nil)
)

// NewCoordinator creates an idle Coordinator. Subscribe it to the shell, call
// Start, and run its loop with Run. Events are queued until Run is called; no
// goroutine is started before then.
//
// Precondition: every field of deps must be non-nil.
// Postcondition: State() is StateIdle.
func NewCoordinator(deps Deps, opts Options) *Coordinator {
	if opts.Service == "" {
		opts.Service = tunnel.DefaultService
	}
	if opts.GridSize == 0 {
		opts.GridSize = game.DefaultGridSize
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 5 * time.Second
	}
	id := uuid.New()
	return &Coordinator{
		id:     id,
		deps:   deps,
		opts:   opts,
		logger: observability.SessionLogger(deps.Logger, "session", id),
		events: mailbox.New[event](),
		offers: make(map[presence.TubeID]tunnel.Offer),
	}
}

// ID returns the session ID tagging this coordinator's log entries.
func (c *Coordinator) ID() uuid.UUID { return c.id }

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Role returns whether the local participant initiated the session.
func (c *Coordinator) Role() Role {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.role
}

// Room returns the room handle, or 0 before discovery.
func (c *Coordinator) Room() presence.Handle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.room
}

// Tunnel returns the established tunnel, or nil before StateActive.
func (c *Coordinator) Tunnel() tunnel.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil {
		return nil
	}
	return c.conn
}

// OnTransition registers fn to be called on the loop goroutine after every
// state change. fn must not block.
func (c *Coordinator) OnTransition(fn func(Transition)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transitions = append(c.transitions, fn)
}

// Start queues attaching the local participant to the activity, with the
// launch mode read at call time. A guest that is already in the shared
// activity proceeds straight to joining.
func (c *Coordinator) Start() {
	c.post(attachEvent{guest: c.deps.Shell.LaunchedAsGuest()})
}

// ActivityShared implements activity.Listener.
func (c *Coordinator) ActivityShared() { c.post(sharedEvent{}) }

// ActivityJoined implements activity.Listener.
func (c *Coordinator) ActivityJoined() { c.post(joinedEvent{}) }

// ParticipantJoined implements activity.Listener.
func (c *Coordinator) ParticipantJoined(id presence.Identity) {
	c.post(participantJoinedEvent{id: id})
}

// ParticipantLeft implements activity.Listener.
func (c *Coordinator) ParticipantLeft(id presence.Identity) {
	c.post(participantLeftEvent{id: id})
}

// TunnelOffered implements tunnel.Sink.
func (c *Coordinator) TunnelOffered(o tunnel.Offer) { c.post(offerEvent{offer: o}) }

// TunnelStateChanged implements tunnel.Sink.
func (c *Coordinator) TunnelStateChanged(id presence.TubeID, state presence.TubeState) {
	c.post(tubeStateEvent{id: id, state: state})
}

// TunnelListFailed implements tunnel.Sink.
func (c *Coordinator) TunnelListFailed(err error) { c.post(listFailedEvent{err: err}) }

func (c *Coordinator) post(ev event) {
	if err := c.events.Push(ev); err != nil {
		c.logger.Debug("dropping event after teardown", zap.String("event", ev.name()))
	}
}

// Run processes events until ctx is done, then tears the session down:
// subscriptions are dropped, the engine is closed, and so is the tunnel.
// Events raised after Run returns are dropped.
//
// Precondition: Run must be called at most once.
func (c *Coordinator) Run(ctx context.Context) error {
	defer c.teardown()

	events := c.events.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.dispatch(ctx, ev)
		}
	}
}

func (c *Coordinator) teardown() {
	_ = c.events.Close()
	if c.engine != nil {
		if err := c.engine.Close(); err != nil {
			c.logger.Warn("closing engine", zap.Error(err))
		}
	}
	if c.neg != nil {
		if err := c.neg.Close(); err != nil {
			c.logger.Warn("closing tunnel", zap.Error(err))
		}
	}
	c.logger.Debug("session torn down", zap.Stringer("state", c.State()))
}

func (c *Coordinator) dispatch(ctx context.Context, ev event) {
	c.logger.Debug("event", zap.String("event", ev.name()), zap.Stringer("state", c.State()))

	switch ev := ev.(type) {
	case attachEvent:
		c.handleAttach(ctx, ev.guest)
	case sharedEvent:
		c.handleShared(ctx)
	case joinedEvent:
		c.handleJoined(ctx)
	case participantJoinedEvent:
		c.handleParticipantJoined(ev.id)
	case participantLeftEvent:
		c.handleParticipantLeft(ev.id)
	case offerEvent:
		c.handleOffer(ctx, ev.offer)
	case tubeStateEvent:
		c.handleTubeState(ctx, ev.id, ev.state)
	case listFailedEvent:
		c.handleListFailed(ev.err)
	}
}

// handleAttach adds the local participant to the roster: a host as the
// player, a guest as a watcher. A guest that is already in the shared activity
// runs the joined path in the same loop turn, so a joined event queued
// meanwhile finds the session past Idle.
func (c *Coordinator) handleAttach(ctx context.Context, guest bool) {
	local, err := c.localIdentity(ctx)
	if err != nil {
		c.logger.Warn("looking up local identity", zap.Error(err))
	}

	if !guest {
		if err == nil {
			c.deps.Roster.AddPlayer(local)
		}
		if c.State() == StateIdle {
			c.deps.InfoPanel.Show(MsgShareToPlay)
		}
		return
	}

	if err == nil {
		c.deps.Roster.AddWatcher(local)
	}
	if c.deps.Shell.IsShared() {
		c.logger.Info("already in the shared activity")
		c.handleJoined(ctx)
	}
}

func (c *Coordinator) handleShared(ctx context.Context) {
	if st := c.State(); st != StateIdle {
		c.logger.Debug("ignoring activity-shared", zap.Stringer("state", st))
		return
	}
	c.setRole(RoleInitiator)
	c.transition(StateSharing)
	c.seedRoster()

	if !c.bindChannels(ctx) {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()
	offer, err := c.neg.Offer(callCtx, c.set)
	if err != nil {
		c.abort(MsgTunnelFailed, err)
		return
	}
	c.offers[offer.ID] = offer
	c.deps.InfoPanel.Show(MsgWaitingForPlayer)
	c.transition(StateTunnelPending)
}

func (c *Coordinator) handleJoined(ctx context.Context) {
	if c.engine != nil {
		c.logger.Debug("ignoring activity-joined: game already running")
		return
	}
	if st := c.State(); st != StateIdle {
		c.logger.Debug("ignoring activity-joined", zap.Stringer("state", st))
		return
	}
	c.setRole(RoleJoiner)
	c.transition(StateJoining)
	c.seedRoster()

	if !c.bindChannels(ctx) {
		return
	}
	c.neg.List(c.set, c)
	c.transition(StateTunnelPending)
}

// bindChannels discovers the room's channels, makes sure a tubes channel
// exists, and subscribes to it.
//
// Postcondition: Returns true in StateChannelsBound, or false in StateAborted.
func (c *Coordinator) bindChannels(ctx context.Context) bool {
	list, err := c.deps.Shell.Channels()
	if err != nil {
		c.abort(MsgSetupFailed, fmt.Errorf("listing activity channels: %w", err))
		return false
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	set, err := discovery.NewDiscoverer(c.deps.Conn, c.logger.Named("discovery")).Discover(callCtx, list.Paths)
	if err != nil {
		c.abort(diagnostic(err), err)
		return false
	}
	c.logger.Info("room found",
		zap.Uint32("room", uint32(set.Room)),
		zap.String("room_name", set.RoomName),
		zap.Bool("has_tubes", set.HasTubes()),
	)

	c.set = set
	c.resolver = identity.NewResolver(c.deps.Conn, set.Group, c.deps.Directory, c.logger.Named("identity"))
	c.neg = tunnel.NewNegotiator(c.deps.Conn, c.opts.Service, c.logger.Named("tunnel"))
	c.mu.Lock()
	c.room = set.Room
	c.mu.Unlock()

	if err := c.neg.EnsureTubes(callCtx, set); err != nil {
		c.abort(MsgTunnelFailed, err)
		return false
	}
	if err := c.neg.Watch(callCtx, set, c); err != nil {
		c.abort(MsgTunnelFailed, err)
		return false
	}
	c.transition(StateChannelsBound)
	return true
}

func (c *Coordinator) seedRoster() {
	for _, id := range c.deps.Shell.JoinedParticipants() {
		c.deps.Roster.AddWatcher(id)
	}
}

func (c *Coordinator) handleParticipantJoined(id presence.Identity) {
	if c.State() == StateIdle {
		c.logger.Debug("ignoring participant-joined before share or join", zap.Stringer("participant", id))
		return
	}
	if c.deps.Roster.AddWatcher(id) {
		c.logger.Info("participant joined", zap.Stringer("participant", id))
	}
}

func (c *Coordinator) handleParticipantLeft(id presence.Identity) {
	if c.State() == StateIdle {
		c.logger.Debug("ignoring participant-left before share or join", zap.Stringer("participant", id))
		return
	}
	if c.deps.Roster.RemoveWatcher(id) {
		c.logger.Info("participant left", zap.Stringer("participant", id))
	}
}

func (c *Coordinator) handleOffer(ctx context.Context, o tunnel.Offer) {
	st := c.State()
	if st.settled() {
		c.logger.Debug("dropping stale tunnel offer", zap.Uint32("tube", uint32(o.ID)), zap.Stringer("state", st))
		return
	}
	if c.neg == nil || !c.neg.Matches(o) {
		c.logger.Debug("ignoring tunnel offer",
			zap.Uint32("tube", uint32(o.ID)),
			zap.String("service", o.Service),
			zap.Stringer("type", o.Type),
		)
		return
	}

	switch {
	case o.Local && o.State == presence.TubeStateOpen:
		c.activate(ctx, o)
	case o.Local:
		c.offers[o.ID] = o
		c.logger.Debug("own tunnel offer pending", zap.Uint32("tube", uint32(o.ID)))
	case o.State == presence.TubeStateLocalPending, o.State == presence.TubeStateOpen:
		c.activate(ctx, o)
	default:
		c.logger.Debug("ignoring tunnel offer", zap.Uint32("tube", uint32(o.ID)), zap.Stringer("tube_state", o.State))
	}
}

func (c *Coordinator) handleTubeState(ctx context.Context, id presence.TubeID, state presence.TubeState) {
	st := c.State()
	if st.settled() {
		c.logger.Debug("dropping stale tunnel state change", zap.Uint32("tube", uint32(id)), zap.Stringer("state", st))
		return
	}
	c.logger.Debug("tunnel state changed", zap.Uint32("tube", uint32(id)), zap.Stringer("tube_state", state))
	if state != presence.TubeStateOpen {
		return
	}
	o, ours := c.offers[id]
	if !ours {
		return
	}
	o.State = state
	c.activate(ctx, o)
}

func (c *Coordinator) handleListFailed(err error) {
	if st := c.State(); st.settled() {
		c.logger.Debug("dropping stale tunnel list failure", zap.Error(err))
		return
	}
	c.logger.Warn("listing tunnels failed; still waiting for new offers", zap.Error(err))
}

// activate binds the tunnel for o and constructs the engine.
//
// Postcondition: The session is in StateActive with a running engine, or StateAborted.
func (c *Coordinator) activate(ctx context.Context, o tunnel.Offer) {
	if c.State() == StateChannelsBound {
		c.transition(StateTunnelPending)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	local, err := c.localIdentity(callCtx)
	if err != nil {
		c.abort(MsgEngineFailed, err)
		return
	}

	conn, err := c.neg.Accept(callCtx, c.set, o)
	if errors.Is(err, tunnel.ErrAlreadyBound) {
		c.logger.Debug("tunnel already bound", zap.Uint32("tube", uint32(o.ID)))
		return
	}
	if err != nil {
		c.abort(MsgTunnelFailed, err)
		return
	}

	board, err := game.NewBoard(c.opts.GridSize)
	if err != nil {
		c.abort(MsgEngineFailed, err)
		return
	}
	engine, err := c.deps.Factory(game.Params{
		Channel:       conn,
		Board:         board,
		Initiating:    c.Role() == RoleInitiator,
		Roster:        c.deps.Roster,
		InfoPanel:     c.deps.InfoPanel,
		LocalIdentity: local,
		ResolveHandle: c.resolver.Resolve,
		Host:          c.deps.Shell,
		Logger:        c.logger,
	})
	if err != nil {
		_ = conn.Close()
		c.abort(MsgEngineFailed, fmt.Errorf("constructing engine: %w", err))
		return
	}
	c.engine = engine

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.transition(StateActive)
}

// abort reports msg once and moves the session to StateAborted.
func (c *Coordinator) abort(msg string, err error) {
	st := c.State()
	if st.settled() {
		return
	}
	c.logger.Error("session setup failed", zap.Stringer("state", st), zap.Error(err))
	c.deps.InfoPanel.Show(msg)
	c.transition(StateAborted)
}

func (c *Coordinator) transition(to State) {
	c.mu.Lock()
	from := c.state
	c.state = to
	hooks := slices.Clone(c.transitions)
	c.mu.Unlock()

	c.logger.Info("session state changed", zap.Stringer("from", from), zap.Stringer("to", to))
	for _, fn := range hooks {
		fn(Transition{From: from, To: to})
	}
}

func (c *Coordinator) setRole(r Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.role == RoleUnknown {
		c.role = r
	}
}

func (c *Coordinator) localIdentity(ctx context.Context) (presence.Identity, error) {
	if c.local.Key != "" {
		return c.local, nil
	}
	h, err := c.deps.Conn.SelfHandle(ctx)
	if err != nil {
		return presence.Identity{}, fmt.Errorf("getting self handle: %w", err)
	}
	id, err := c.deps.Directory.LookupByHandle(ctx, c.deps.Conn.Name(), c.deps.Conn.Path(), h)
	if err != nil {
		return presence.Identity{}, fmt.Errorf("looking up self handle %d: %w", h, err)
	}
	c.local = id
	return id, nil
}

func diagnostic(err error) string {
	switch {
	case errors.Is(err, &discovery.Error{Reason: discovery.ReasonNoRoom}):
		return MsgNoRoom
	case errors.Is(err, &discovery.Error{Reason: discovery.ReasonNoTextChannel}):
		return MsgNoTextChannel
	default:
		return MsgSetupFailed
	}
}
