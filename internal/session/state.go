package session

// State is a step of session establishment.
type State int

const (
	StateIdle State = iota
	StateSharing
	StateJoining
	StateChannelsBound
	StateTunnelPending
	StateActive
	// StateAborted is terminal. It is reachable from every state except Active.
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSharing:
		return "sharing"
	case StateJoining:
		return "joining"
	case StateChannelsBound:
		return "channels-bound"
	case StateTunnelPending:
		return "tunnel-pending"
	case StateActive:
		return "active"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// settled reports whether tunnel events can no longer change the session.
func (s State) settled() bool {
	return s == StateActive || s == StateAborted
}

// Role records whether the local participant started the session. It is set
// exactly once.
type Role int

const (
	RoleUnknown Role = iota
	// RoleInitiator shared the activity and offered the tunnel.
	RoleInitiator
	// RoleJoiner joined a shared activity and accepted the tunnel.
	RoleJoiner
)

func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleJoiner:
		return "joiner"
	default:
		return "unknown"
	}
}

// Transition is one state change.
type Transition struct {
	From State
	To   State
}
