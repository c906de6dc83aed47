// Package tunnel negotiates the single reliable, ordered message tunnel a
// session hands to the game engine.
package tunnel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/memosono/internal/discovery"
	"github.com/cory-johannsen/memosono/internal/presence"
)

// DefaultService is the wire service name peers use to recognise each other's
// tunnel offers. It must stay stable across versions.
const DefaultService = "org.fredektop.Telepathy.Tube.Memosono"

// ErrAlreadyBound is returned by Accept once a tunnel has been bound.
var ErrAlreadyBound = errors.New("tunnel already bound")

// Offer is a tunnel offer seen on the room's tubes channel.
type Offer struct {
	ID        presence.TubeID
	Service   string
	Initiator presence.Handle
	Type      presence.TubeType
	// Local is true when this participant made the offer.
	Local bool
	State presence.TubeState
}

// Sink receives tunnel notifications. Implementations must not block.
type Sink interface {
	TunnelOffered(o Offer)
	TunnelStateChanged(id presence.TubeID, state presence.TubeState)
	TunnelListFailed(err error)
}

// Negotiator establishes the tunnel on one room. It binds at most one Conn.
type Negotiator struct {
	conn    presence.Connection
	service string
	logger  *zap.Logger

	mu     sync.Mutex
	self   presence.Handle
	bound  *Conn
	cancel []func()
}

// NewNegotiator creates a Negotiator matching offers for service.
//
// Precondition: conn and logger must be non-nil; service must be non-empty.
func NewNegotiator(conn presence.Connection, service string, logger *zap.Logger) *Negotiator {
	return &Negotiator{
		conn:    conn,
		service: service,
		logger:  logger,
	}
}

// Service returns the service name offers are matched against.
func (n *Negotiator) Service() string {
	return n.service
}

// EnsureTubes requests the room's tubes channel when set has none.
//
// Postcondition: set.HasTubes() is true, or an error is returned.
func (n *Negotiator) EnsureTubes(ctx context.Context, set *discovery.ChannelSet) error {
	if set.HasTubes() {
		return nil
	}
	n.logger.Debug("requesting tubes channel", zap.Uint32("room", uint32(set.Room)))
	ch, err := n.conn.RequestChannel(ctx, presence.ChannelTypeTubes, presence.HandleTypeRoom, set.Room, true)
	if err != nil {
		return fmt.Errorf("requesting tubes channel for room %d: %w", set.Room, err)
	}
	if err := set.BindTubes(ch); err != nil {
		return fmt.Errorf("binding tubes channel: %w", err)
	}
	return nil
}

// Watch subscribes sink to new offers and state changes on the tubes channel.
//
// Precondition: set.HasTubes() must be true.
// Postcondition: Subscriptions stay active until Close.
func (n *Negotiator) Watch(ctx context.Context, set *discovery.ChannelSet, sink Sink) error {
	self, err := set.Group.SelfHandle(ctx)
	if err != nil {
		return fmt.Errorf("getting group self handle: %w", err)
	}

	n.mu.Lock()
	n.self = self
	n.mu.Unlock()

	cancelNew := set.Tubes.OnNewTube(func(info presence.TubeInfo) {
		sink.TunnelOffered(n.offerFrom(info))
	})
	cancelState := set.Tubes.OnTubeStateChanged(sink.TunnelStateChanged)

	n.mu.Lock()
	n.cancel = append(n.cancel, cancelNew, cancelState)
	n.mu.Unlock()
	return nil
}

// Offer publishes a tunnel offer for the configured service.
//
// Precondition: set.HasTubes() must be true.
// Postcondition: Returns the local offer in the RemotePending state.
func (n *Negotiator) Offer(ctx context.Context, set *discovery.ChannelSet) (Offer, error) {
	id, err := set.Tubes.OfferTube(ctx, presence.TubeTypeDBus, n.service, map[string]any{})
	if err != nil {
		return Offer{}, fmt.Errorf("offering tunnel: %w", err)
	}

	n.mu.Lock()
	self := n.self
	n.mu.Unlock()

	n.logger.Info("tunnel offered",
		zap.Uint32("tube", uint32(id)),
		zap.String("service", n.service),
	)
	return Offer{
		ID:        id,
		Service:   n.service,
		Initiator: self,
		Type:      presence.TubeTypeDBus,
		Local:     true,
		State:     presence.TubeStateRemotePending,
	}, nil
}

// List asynchronously enumerates the offers already on the channel. Each
// listed offer is delivered to sink as if newly offered; a failure is
// delivered as TunnelListFailed.
//
// Precondition: Watch must have been called for set.
func (n *Negotiator) List(set *discovery.ChannelSet, sink Sink) {
	set.Tubes.ListTubes(func(r presence.ListTubesResult) {
		if r.Err != nil {
			sink.TunnelListFailed(r.Err)
			return
		}
		for _, info := range r.Tubes {
			sink.TunnelOffered(n.offerFrom(info))
		}
	})
}

// Matches reports whether o carries this session's service.
func (n *Negotiator) Matches(o Offer) bool {
	return o.Type == presence.TubeTypeDBus && o.Service == n.service
}

// Accept binds the tunnel for o, accepting it first when it is pending
// locally.
//
// Precondition: Matches(o) must be true.
// Postcondition: Returns the bound Conn, or ErrAlreadyBound if a Conn was
// bound before; the earlier Conn is left unchanged.
func (n *Negotiator) Accept(ctx context.Context, set *discovery.ChannelSet, o Offer) (*Conn, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.bound != nil {
		return nil, ErrAlreadyBound
	}
	if o.State == presence.TubeStateLocalPending {
		if err := set.Tubes.AcceptTube(ctx, o.ID); err != nil {
			return nil, fmt.Errorf("accepting tube %d: %w", o.ID, err)
		}
		n.logger.Debug("tube accepted", zap.Uint32("tube", uint32(o.ID)))
	}

	c := newConn(o.ID, n.self, set.Group)
	ep, err := set.Tubes.Connect(ctx, o.ID, c.deliver)
	if err != nil {
		c.inbox.Close()
		return nil, fmt.Errorf("connecting tube %d: %w", o.ID, err)
	}
	c.endpoint = ep
	n.bound = c

	n.logger.Info("tunnel bound",
		zap.Uint32("tube", uint32(o.ID)),
		zap.Bool("local", o.Local),
	)
	return c, nil
}

// Conn returns the bound tunnel, or nil.
func (n *Negotiator) Conn() *Conn {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.bound
}

// Close drops every subscription and closes the bound tunnel.
func (n *Negotiator) Close() error {
	n.mu.Lock()
	cancel := n.cancel
	n.cancel = nil
	bound := n.bound
	n.mu.Unlock()

	for _, fn := range cancel {
		fn()
	}
	if bound != nil {
		return bound.Close()
	}
	return nil
}

func (n *Negotiator) offerFrom(info presence.TubeInfo) Offer {
	n.mu.Lock()
	self := n.self
	n.mu.Unlock()

	return Offer{
		ID:        info.ID,
		Service:   info.Service,
		Initiator: info.Initiator,
		Type:      info.Type,
		Local:     info.State == presence.TubeStateRemotePending || (self != 0 && info.Initiator == self),
		State:     info.State,
	}
}
