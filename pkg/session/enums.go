// Package session implements the per-connection Seif protocol engine.
//
// Each transport connection is bound to exactly one Session. The session
// drives the two-record handshake, parses inbound records, dispatches
// application messages, serialises outbound records through a single FIFO
// queue, matches acknowledgements to pending sends in order, honours
// redirects, and tears everything down on the first failure.
//
// All state mutations for one session are serialised internally; the
// public API is safe to call from any goroutine. State never crosses
// between sessions.
package session

// Role identifies which side of the handshake the local peer plays.
type Role int

const (
	// RoleUnknown is an uninitialized role.
	RoleUnknown Role = iota

	// RoleInitiator opens the connection and sends the Hello record.
	RoleInitiator

	// RoleReceiver accepts the connection and answers with AuthHello.
	RoleReceiver
)

// String returns a human-readable name for the role.
func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleReceiver:
		return "receiver"
	default:
		return "unknown"
	}
}

// IsValid returns true if the role is a defined value.
func (r Role) IsValid() bool {
	return r == RoleInitiator || r == RoleReceiver
}

// Phase is the connection's position in the protocol state machine.
type Phase int

const (
	// PhaseAwaitingHello is the receiver's state before the Hello arrives.
	PhaseAwaitingHello Phase = iota

	// PhaseAwaitingAuthHello is the initiator's state after sending Hello.
	PhaseAwaitingAuthHello

	// PhaseOpen is the established state; application records flow.
	PhaseOpen

	// PhaseClosed is terminal. No further traffic is processed once it is
	// entered; the only callbacks that still fire are the ones reporting
	// the teardown itself (OnClose, and OnRedirect after a redirect).
	PhaseClosed
)

// String returns a human-readable name for the phase.
func (p Phase) String() string {
	switch p {
	case PhaseAwaitingHello:
		return "awaiting-hello"
	case PhaseAwaitingAuthHello:
		return "awaiting-auth-hello"
	case PhaseOpen:
		return "open"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}
