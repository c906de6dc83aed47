// Package simulation runs a complete memosono session on the local presence
// network: one participant shares the activity, the rest join it, and every
// participant runs the probe engine over the negotiated tunnel.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/google/wire"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/cory-johannsen/memosono/internal/activity"
	"github.com/cory-johannsen/memosono/internal/config"
	"github.com/cory-johannsen/memosono/internal/game"
	"github.com/cory-johannsen/memosono/internal/game/probe"
	"github.com/cory-johannsen/memosono/internal/observability"
	"github.com/cory-johannsen/memosono/internal/presence"
	"github.com/cory-johannsen/memosono/internal/presence/local"
	"github.com/cory-johannsen/memosono/internal/roster"
	"github.com/cory-johannsen/memosono/internal/server"
	"github.com/cory-johannsen/memosono/internal/session"
)

// ProviderSet builds a Simulation from a Config and a logger.
var ProviderSet = wire.NewSet(ProvideFixture, ProvideNetwork, New)

// ErrAborted is returned when a participant's session aborts.
var ErrAborted = errors.New("session aborted")

// ProvideFixture returns the network described by cfg.Network.Fixture, or a
// synthetic one with a sharer and cfg.Simulation.Joiners joiners. Missing
// participant keys are filled with random UUIDs.
//
// Postcondition: Returns a valid Fixture or a non-nil error.
func ProvideFixture(cfg config.Config) (local.Fixture, error) {
	var f local.Fixture
	if cfg.Network.Fixture != "" {
		loaded, err := local.LoadFixtureFromFile(cfg.Network.Fixture)
		if err != nil {
			return local.Fixture{}, err
		}
		f = loaded
	} else {
		f = local.Fixture{
			Room: cfg.Activity.Room,
			Options: local.Options{
				ChannelSpecificHandles: cfg.Network.ChannelSpecificHandles,
				ProvideTubes:           cfg.Network.ProvideTubes,
			},
			Participants: []local.ParticipantSpec{{Nick: "sharer"}},
		}
		for i := 1; i <= cfg.Simulation.Joiners; i++ {
			f.Participants = append(f.Participants, local.ParticipantSpec{Nick: fmt.Sprintf("joiner-%d", i)})
		}
	}
	for i := range f.Participants {
		if f.Participants[i].Key == "" {
			f.Participants[i].Key = uuid.NewString()
		}
	}
	if err := f.Validate(); err != nil {
		return local.Fixture{}, fmt.Errorf("validating fixture: %w", err)
	}
	return f, nil
}

// Network is a built fixture.
type Network struct {
	*local.Network
	Room  string
	Conns []*local.Connection
}

// ProvideNetwork builds the fixture's network. The returned cleanup closes it.
func ProvideNetwork(f local.Fixture, logger *zap.Logger) (*Network, func(), error) {
	n, conns, err := f.Build(logger)
	if err != nil {
		return nil, nil, fmt.Errorf("building network: %w", err)
	}
	return &Network{Network: n, Room: f.Room, Conns: conns}, n.Close, nil
}

// Participant is one simulated member of the session.
type Participant struct {
	Nick        string
	Sharer      bool
	Conn        *local.Connection
	Activity    *local.Activity
	Coordinator *session.Coordinator
	Roster      *roster.Roster
	Panel       *activity.LogPanel

	settleOnce sync.Once
	settled    chan struct{}

	mu     sync.Mutex
	engine *probe.Engine
}

func (p *Participant) newEngine(params game.Params) (game.Engine, error) {
	e, err := probe.New(params)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.engine = e.(*probe.Engine)
	p.mu.Unlock()
	return e, nil
}

// Engine returns the participant's probe engine, or nil before the session is active.
func (p *Participant) Engine() *probe.Engine {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine
}

func (p *Participant) observe(tr session.Transition) {
	if tr.To == session.StateActive || tr.To == session.StateAborted {
		p.settleOnce.Do(func() { close(p.settled) })
	}
}

// Simulation drives a shared session across every participant of a Network.
type Simulation struct {
	cfg          config.Config
	net          *Network
	logger       *zap.Logger
	participants []*Participant
	lifecycle    []server.Option
}

// New wires one coordinator per connection. The first connection shares the
// room; the rest join it.
//
// Precondition: net must hold at least one connection.
func New(cfg config.Config, net *Network, logger *zap.Logger) *Simulation {
	s := &Simulation{cfg: cfg, net: net, logger: logger.Named("simulation")}
	for i, conn := range net.Conns {
		nick := conn.Identity().Nick
		plog := observability.ParticipantLogger(logger, nick)
		p := &Participant{
			Nick:    nick,
			Sharer:  i == 0,
			Conn:    conn,
			Roster:  roster.New(),
			Panel:   activity.NewLogPanel(plog),
			settled: make(chan struct{}),
		}
		if p.Sharer {
			p.Activity = conn.HostActivity(net.Room)
		} else {
			p.Activity = conn.GuestActivity(net.Room)
		}
		p.Coordinator = session.NewCoordinator(session.Deps{
			Conn:      conn,
			Directory: net.Network,
			Shell:     p.Activity,
			InfoPanel: p.Panel,
			Roster:    p.Roster,
			Factory:   p.newEngine,
			Logger:    plog,
		}, session.Options{
			Service:     cfg.Activity.Service,
			GridSize:    cfg.Activity.GridSize,
			CallTimeout: cfg.Session.CallTimeout,
		})
		p.Coordinator.OnTransition(p.observe)
		p.Activity.Subscribe(p.Coordinator)
		s.participants = append(s.participants, p)
	}
	return s
}

// WithLifecycleOptions customizes the lifecycle that runs the participants.
func (s *Simulation) WithLifecycleOptions(opts ...server.Option) *Simulation {
	s.lifecycle = append(s.lifecycle, opts...)
	return s
}

// Participants returns the participants in fixture order.
func (s *Simulation) Participants() []*Participant {
	return s.participants
}

// Run starts every session, shares and joins the room, and waits until every
// engine has heard from all of its peers and knows the board.
//
// Postcondition: Returns a report of every participant. The error is non-nil
// if a session aborted or cfg.Simulation.Timeout elapsed first.
func (s *Simulation) Run(ctx context.Context) (Report, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Simulation.Timeout)
	defer cancel()
	runCtx, finish := context.WithCancel(ctx)
	defer finish()

	lc := server.NewLifecycle(s.logger, s.lifecycle...)
	for _, p := range s.participants {
		lc.Add("session/"+p.Nick, server.ServiceFunc(p.Coordinator.Run))
	}
	lc.Add("drive", server.ServiceFunc(s.drive))
	lc.Add("monitor", server.ServiceFunc(func(ctx context.Context) error {
		if err := s.await(ctx); err != nil {
			return err
		}
		s.logger.Info("every participant is ready", zap.Int("participants", len(s.participants)))
		finish()
		return nil
	}))

	err := lc.Run(runCtx)
	report := s.Report()
	if err != nil {
		return report, err
	}
	if ctx.Err() != nil {
		return report, fmt.Errorf("simulation did not finish within %s: %w", s.cfg.Simulation.Timeout, ctx.Err())
	}
	return report, nil
}

// drive attaches every coordinator, then shares the room and joins it.
func (s *Simulation) drive(context.Context) error {
	for _, p := range s.participants {
		p.Coordinator.Start()
	}
	for _, p := range s.participants {
		var err error
		if p.Sharer {
			err = p.Activity.Share()
		} else {
			err = p.Activity.Join()
		}
		if err != nil {
			return fmt.Errorf("%s entering room %q: %w", p.Nick, s.net.Room, err)
		}
		s.logger.Debug("entered room", zap.String("nick", p.Nick), zap.Bool("sharer", p.Sharer))
	}
	return nil
}

func (s *Simulation) await(ctx context.Context) error {
	peers := len(s.participants) - 1
	for _, p := range s.participants {
		select {
		case <-p.settled:
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", p.Nick, ctx.Err())
		}
		if p.Coordinator.State() != session.StateActive {
			return fmt.Errorf("%s: %w: %s", p.Nick, ErrAborted, p.Panel.Current())
		}
		if err := p.Engine().WaitReady(ctx, peers); err != nil {
			return fmt.Errorf("waiting for %s to hear %d peers: %w", p.Nick, peers, err)
		}
	}
	return nil
}

// ParticipantReport summarizes one participant after a run.
type ParticipantReport struct {
	Nick   string
	Role   session.Role
	State  session.State
	Peers  []string
	Roster []roster.Entry
	Status string
}

// Report summarizes a run.
type Report struct {
	Room         string
	Participants []ParticipantReport
}

// Report returns the current state of every participant.
func (s *Simulation) Report() Report {
	return Report{
		Room: s.net.Room,
		Participants: lo.Map(s.participants, func(p *Participant, _ int) ParticipantReport {
			r := ParticipantReport{
				Nick:   p.Nick,
				Role:   p.Coordinator.Role(),
				State:  p.Coordinator.State(),
				Roster: p.Roster.Snapshot(),
				Status: p.Panel.Current(),
			}
			if e := p.Engine(); e != nil {
				r.Peers = lo.Map(e.Peers(), func(id presence.Identity, _ int) string { return id.Nick })
				slices.Sort(r.Peers)
			}
			return r
		}),
	}
}
