// Package transport defines the byte-stream contract the Seif engine
// consumes, and provides TCP, WebSocket and in-memory pipe adapters.
//
// A transport delivers opaque chunks in order with no framing of its own;
// the record codec does all framing. Reliability, re-ordering and
// reconnection are the transport's problem (TCP and WebSocket both
// qualify), never the engine's.
package transport

// Conn is one open byte-stream connection.
type Conn interface {
	// Send writes a chunk to the peer. Best-effort: failures surface
	// through the OnClose callback rather than the return value where the
	// underlying transport reports them asynchronously.
	Send(data []byte) error

	// Close tears the connection down. After Close returns no further
	// callback fires for this connection.
	Close() error

	// RemoteAddr describes the peer for logging.
	RemoteAddr() string
}

// Callbacks are the event hooks a connection owner supplies.
//
// Contract: OnOpen fires once, before any OnReceive; OnReceive delivers
// chunks in order; OnClose fires at most once, with a nil error for an
// orderly close and a non-nil error for a failure.
type Callbacks struct {
	OnOpen    func(Conn)
	OnReceive func(Conn, []byte)
	OnClose   func(Conn, error)
}

// Dialer opens outbound connections.
type Dialer interface {
	Dial(address string, cb Callbacks) (Conn, error)
}

// Listener is a started listening endpoint.
type Listener interface {
	// Addr is the bound address, useful when listening on ":0".
	Addr() string

	// Stop closes the endpoint and every accepted connection. After Stop
	// returns no further callback fires.
	Stop() error
}

// ListenerFactory opens listening endpoints.
type ListenerFactory interface {
	Listen(address string, cb Callbacks) (Listener, error)
}

// readBufferSize is the chunk size for stream reads.
const readBufferSize = 32 * 1024
