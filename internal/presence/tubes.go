package presence

import "context"

// TubeID identifies a tube within one tubes channel.
type TubeID uint32

// TubeType is the kind of payload a tube carries.
type TubeType int

const (
	TubeTypeDBus TubeType = iota
	TubeTypeStream
)

func (t TubeType) String() string {
	if t == TubeTypeStream {
		return "stream"
	}
	return "dbus"
}

// TubeState is the state of a tube as seen by the local participant.
type TubeState int

const (
	// TubeStateLocalPending is an offer waiting for the local participant to accept it.
	TubeStateLocalPending TubeState = iota
	// TubeStateRemotePending is a local offer nobody has accepted yet.
	TubeStateRemotePending
	// TubeStateOpen is usable.
	TubeStateOpen
)

func (s TubeState) String() string {
	switch s {
	case TubeStateLocalPending:
		return "local-pending"
	case TubeStateRemotePending:
		return "remote-pending"
	case TubeStateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// TubeInfo describes a tube offered on a tubes channel.
type TubeInfo struct {
	ID        TubeID
	Initiator Handle
	Type      TubeType
	Service   string
	Params    map[string]any
	State     TubeState
}

// ListTubesResult is the reply to an asynchronous ListTubes call. Exactly one
// of Tubes or Err is meaningful.
type ListTubesResult struct {
	Tubes []TubeInfo
	Err   error
}

// Delivery is one message received on an open tube. Sender is the sender's
// handle in the enclosing room's group.
type Delivery struct {
	Sender  Handle
	Payload []byte
}

// TubeEndpoint is the local end of an open tube.
type TubeEndpoint interface {
	Send(payload []byte) error
	Close() error
}

// Tubes is the tubes capability of a room channel.
type Tubes interface {
	OfferTube(ctx context.Context, t TubeType, service string, params map[string]any) (TubeID, error)
	AcceptTube(ctx context.Context, id TubeID) error
	// ListTubes enumerates the tubes currently on the channel. The reply is
	// delivered exactly once to fn, possibly on another goroutine.
	ListTubes(fn func(ListTubesResult))
	// OnNewTube subscribes to tube offers. The returned func unsubscribes.
	OnNewTube(fn func(TubeInfo)) (cancel func())
	// OnTubeStateChanged subscribes to state changes of known tubes.
	OnTubeStateChanged(fn func(TubeID, TubeState)) (cancel func())
	// Connect attaches to an open tube. recv is called in send order for
	// each sender.
	Connect(ctx context.Context, id TubeID, recv func(Delivery)) (TubeEndpoint, error)
}
