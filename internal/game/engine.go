// Package game is the boundary between the session layer and a game engine.
// The engine is constructed exactly once per session, when the tunnel to the
// other participants becomes active.
package game

import (
	"context"

	"go.uber.org/zap"

	"github.com/cory-johannsen/memosono/internal/activity"
	"github.com/cory-johannsen/memosono/internal/presence"
	"github.com/cory-johannsen/memosono/internal/roster"
	"github.com/cory-johannsen/memosono/internal/tunnel"
)

// ResolveFunc maps a sender handle on the tunnel to a stable identity.
type ResolveFunc func(ctx context.Context, h presence.Handle) (presence.Identity, error)

// Params is everything an engine receives at construction.
type Params struct {
	// Channel is the established tunnel.
	Channel tunnel.Channel
	Board   *Board
	// Initiating is true for the participant that shared the activity.
	Initiating    bool
	Roster        *roster.Roster
	InfoPanel     activity.InfoPanel
	LocalIdentity presence.Identity
	ResolveHandle ResolveFunc
	Host          activity.Shell
	Logger        *zap.Logger
}

// Engine is a running game.
type Engine interface {
	// Close stops the engine. It does not close the Channel.
	Close() error
}

// Factory constructs an Engine.
type Factory func(Params) (Engine, error)
