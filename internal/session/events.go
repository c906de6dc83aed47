package session

import (
	"github.com/cory-johannsen/memosono/internal/presence"
	"github.com/cory-johannsen/memosono/internal/tunnel"
)

// event is one input to the coordinator loop.
type event interface {
	name() string
}

type attachEvent struct{ guest bool }

type sharedEvent struct{}

type joinedEvent struct{}

type participantJoinedEvent struct{ id presence.Identity }

type participantLeftEvent struct{ id presence.Identity }

type offerEvent struct{ offer tunnel.Offer }

type tubeStateEvent struct {
	id    presence.TubeID
	state presence.TubeState
}

type listFailedEvent struct{ err error }

func (attachEvent) name() string { return "attach" }
func (sharedEvent) name() string { return "activity-shared" }
func (joinedEvent) name() string { return "activity-joined" }
func (participantJoinedEvent) name() string { return "participant-joined" }
func (participantLeftEvent) name() string { return "participant-left" }
func (offerEvent) name() string { return "tunnel-offered" }
func (tubeStateEvent) name() string { return "tunnel-state-changed" }
func (listFailedEvent) name() string { return "tunnel-list-failed" }
