// Package probe is a minimal engine that proves a session works end to end:
// every participant announces itself over the tunnel, the initiator deals the
// board, and each received message is attributed to a resolved identity.
package probe

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/memosono/internal/game"
	"github.com/cory-johannsen/memosono/internal/identity"
	"github.com/cory-johannsen/memosono/internal/presence"
	"github.com/cory-johannsen/memosono/internal/tunnel"
)

const (
	kindHello = "hello"
	kindDeal  = "deal"
)

// Engine is the probe game engine.
type Engine struct {
	p      game.Params
	logger *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	peers   map[string]presence.Identity
	dealt   bool
	changed chan struct{}
}

var _ game.Engine = (*Engine)(nil)

// New is a game.Factory. It starts the engine's receive loop and greets the
// other participants.
//
// Precondition: p.Channel, p.Board, p.Roster, p.InfoPanel, p.ResolveHandle, and p.Logger must be non-nil.
// Postcondition: Returns a running Engine, or an error if the greeting could not be sent.
func New(p game.Params) (game.Engine, error) {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		p:       p,
		logger:  p.Logger.Named("probe"),
		cancel:  cancel,
		done:    make(chan struct{}),
		peers:   make(map[string]presence.Identity),
		changed: make(chan struct{}),
	}

	if p.Initiating {
		p.Board.Shuffle(game.NewCryptoSource())
		e.dealt = true
	}
	if err := e.send(kindHello, nil); err != nil {
		cancel()
		return nil, fmt.Errorf("greeting peers: %w", err)
	}
	if p.Initiating {
		if err := e.sendDeal(); err != nil {
			cancel()
			return nil, err
		}
	} else {
		p.InfoPanel.Show("Waiting for the board...")
	}

	go e.run(ctx)
	return e, nil
}

// Peers returns the identities heard from so far.
func (e *Engine) Peers() []presence.Identity {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]presence.Identity, 0, len(e.peers))
	for _, id := range e.peers {
		out = append(out, id)
	}
	return out
}

// Dealt reports whether the board layout is known.
func (e *Engine) Dealt() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dealt
}

// WaitReady blocks until n peers have been heard from and the board is dealt.
//
// Postcondition: Returns ctx.Err() if ctx ends first.
func (e *Engine) WaitReady(ctx context.Context, n int) error {
	for {
		e.mu.Lock()
		ready := len(e.peers) >= n && e.dealt
		changed := e.changed
		e.mu.Unlock()
		if ready {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops the receive loop.
func (e *Engine) Close() error {
	e.cancel()
	<-e.done
	return nil
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)
	msgs := e.p.Channel.Messages()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				e.logger.Debug("tunnel closed")
				return
			}
			e.handle(ctx, m)
		}
	}
}

func (e *Engine) handle(ctx context.Context, m tunnel.Message) {
	sender, err := e.p.ResolveHandle(ctx, m.Sender)
	if err != nil {
		if errors.Is(err, identity.ErrResolution) {
			e.logger.Warn("dropping message from unresolved sender", zap.Uint32("handle", uint32(m.Sender)), zap.Error(err))
			return
		}
		e.logger.Error("resolving sender", zap.Error(err))
		return
	}

	var msg structpb.Struct
	if err := proto.Unmarshal(m.Payload, &msg); err != nil {
		e.logger.Warn("dropping malformed message", zap.Stringer("sender", sender), zap.Error(err))
		return
	}
	kind := msg.GetFields()["kind"].GetStringValue()
	e.logger.Debug("message received", zap.String("kind", kind), zap.Stringer("sender", sender))

	switch kind {
	case kindHello:
		e.p.InfoPanel.Show(fmt.Sprintf("%s joined the game", sender.Nick))
		first := e.addPeer(sender)
		switch {
		case e.p.Initiating:
			if err := e.sendDeal(); err != nil {
				e.logger.Error("dealing board", zap.Error(err))
			}
		case first:
			// Late joiners missed our greeting.
			if err := e.send(kindHello, nil); err != nil {
				e.logger.Error("greeting peer", zap.Stringer("peer", sender), zap.Error(err))
			}
		}
	case kindDeal:
		e.addPeer(sender)
		if e.p.Initiating {
			return
		}
		values := msg.GetFields()["tiles"].GetListValue().GetValues()
		tiles := make([]int, len(values))
		for i, v := range values {
			tiles[i] = int(v.GetNumberValue())
		}
		if err := e.p.Board.Deal(tiles); err != nil {
			e.logger.Warn("rejecting board layout", zap.Stringer("sender", sender), zap.Error(err))
			return
		}
		if !e.Dealt() {
			e.p.InfoPanel.Show(fmt.Sprintf("Board dealt by %s", sender.Nick))
		}
		e.mu.Lock()
		e.dealt = true
		e.notifyLocked()
		e.mu.Unlock()
	default:
		e.logger.Debug("ignoring message", zap.String("kind", kind))
	}
}

// addPeer reports whether id was heard from for the first time.
func (e *Engine) addPeer(id presence.Identity) bool {
	e.p.Roster.AddPlayer(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, seen := e.peers[id.Key]; seen {
		return false
	}
	e.peers[id.Key] = id
	e.notifyLocked()
	return true
}

func (e *Engine) notifyLocked() {
	close(e.changed)
	e.changed = make(chan struct{})
}

func (e *Engine) sendDeal() error {
	tiles := e.p.Board.Tiles()
	values := make([]any, len(tiles))
	for i, t := range tiles {
		values[i] = t
	}
	if err := e.send(kindDeal, map[string]any{"size": e.p.Board.Size(), "tiles": values}); err != nil {
		return fmt.Errorf("dealing board: %w", err)
	}
	return nil
}

func (e *Engine) send(kind string, fields map[string]any) error {
	m := map[string]any{
		"kind": kind,
		"nick": e.p.LocalIdentity.Nick,
		"key":  e.p.LocalIdentity.Key,
	}
	for k, v := range fields {
		m[k] = v
	}
	msg, err := structpb.NewStruct(m)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", kind, err)
	}
	payload, err := proto.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", kind, err)
	}
	return e.p.Channel.Send(payload)
}
