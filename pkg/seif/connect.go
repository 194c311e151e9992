package seif

import (
	"errors"
	"sync"

	"github.com/pion/logging"

	"github.com/backkem/seif/pkg/crypto"
	"github.com/backkem/seif/pkg/record"
	"github.com/backkem/seif/pkg/session"
	"github.com/backkem/seif/pkg/transport"
)

// Façade errors.
var (
	// ErrMissingDialer is returned when Connect is configured without a
	// transport dialer.
	ErrMissingDialer = errors.New("seif: missing dialer")

	// ErrMissingListener is returned when Listen is configured without a
	// transport listener factory.
	ErrMissingListener = errors.New("seif: missing listener factory")
)

// ConnectConfig configures an outbound connection.
type ConnectConfig struct {
	// KeyPair is our static P-521 key pair. Required.
	KeyPair *crypto.KeyPair

	// Dialer opens the transport connection. Required.
	Dialer transport.Dialer

	// Address is opaque to the engine and forwarded to the dialer.
	Address string

	// RemotePublicKey is the expected peer identity, raw 133 bytes.
	// Required.
	RemotePublicKey []byte

	// HelloValue travels sealed to the peer; it sees it on open.
	HelloValue any

	// ConnectionInfo travels in the clear on the wire.
	ConnectionInfo any

	// OnOpen fires when the handshake completes, on the initial
	// connection and again after every honoured redirect.
	OnOpen func(*Conn)

	// OnMessage fires for every inbound application message, in wire
	// order.
	OnMessage func(*Conn, record.Message)

	// OnClose fires at most once per connection with the teardown reason;
	// nil for an orderly remote close. redirect is non-nil exactly when
	// the close was caused by a Redirect record, and describes where the
	// engine reconnects.
	OnClose func(conn *Conn, reason error, redirect *session.Redirect)

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory

	// IVLimit overrides the IV counter bound. Zero means the default.
	IVLimit uint64
}

// Client is the handle returned by Connect.
type Client struct {
	cfg ConnectConfig
	log logging.LeveledLogger

	mu     sync.Mutex
	sess   *session.Session
	closed bool
}

// Connect dials cfg.Address, performs the handshake as initiator, and
// delivers events through the configured callbacks. The returned Client
// cancels everything when closed, even mid-handshake.
func Connect(cfg ConnectConfig) (*Client, error) {
	if cfg.Dialer == nil {
		return nil, ErrMissingDialer
	}

	c := &Client{cfg: cfg}
	if cfg.LoggerFactory != nil {
		c.log = cfg.LoggerFactory.NewLogger("seif")
	}

	if err := c.dial(cfg.Address, cfg.RemotePublicKey, cfg.ConnectionInfo); err != nil {
		return nil, err
	}
	return c, nil
}

// Close cancels the connection. Pending sends fail with reason and no
// further callback fires.
func (c *Client) Close(reason error) {
	c.mu.Lock()
	c.closed = true
	sess := c.sess
	c.mu.Unlock()

	if sess != nil {
		sess.Close(reason)
	}
}

// dial opens one transport connection and binds a fresh initiator session
// to it. Used for the first connection and again on redirect.
func (c *Client) dial(address string, remoteKey []byte, connectionInfo any) error {
	remotePub, err := crypto.ImportPublicKey(remoteKey)
	if err != nil {
		return err
	}

	conn := &Conn{}
	sess, err := session.New(session.Config{
		Role:            session.RoleInitiator,
		KeyPair:         c.cfg.KeyPair,
		RemotePublicKey: remotePub,
		HelloValue:      c.cfg.HelloValue,
		ConnectionInfo:  connectionInfo,
		LoggerFactory:   c.cfg.LoggerFactory,
		IVLimit:         c.cfg.IVLimit,
		Callbacks: session.Callbacks{
			OnOpen: func(*session.Session) {
				if c.cfg.OnOpen != nil {
					c.cfg.OnOpen(conn)
				}
			},
			OnMessage: func(_ *session.Session, msg record.Message) {
				if c.cfg.OnMessage != nil {
					c.cfg.OnMessage(conn, msg)
				}
			},
			OnClose: func(_ *session.Session, reason error) {
				// A redirect teardown is reported from OnRedirect below,
				// where the new coordinates are known.
				if errors.Is(reason, session.ErrRedirected) {
					return
				}
				if c.cfg.OnClose != nil {
					c.cfg.OnClose(conn, reason, nil)
				}
			},
			OnRedirect: func(_ *session.Session, red *session.Redirect) {
				if c.cfg.OnClose != nil {
					c.cfg.OnClose(conn, session.ErrRedirected, red)
				}
				c.redial(red)
			},
		},
	})
	if err != nil {
		return err
	}
	conn.sess = sess

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return session.ErrClosed
	}
	c.sess = sess
	c.mu.Unlock()

	_, err = c.cfg.Dialer.Dial(address, transport.Callbacks{
		OnOpen: func(tc transport.Conn) {
			// Start sends the Hello; its failure surfaces through the
			// session's own teardown path.
			if err := sess.Start(tc); err != nil && c.log != nil {
				c.log.Warnf("hello failed: %v", err)
			}
		},
		OnReceive: func(_ transport.Conn, data []byte) {
			sess.HandleReceive(data)
		},
		OnClose: func(_ transport.Conn, err error) {
			sess.HandleTransportClose(err)
		},
	})
	if err != nil {
		sess.Close(err)
		return err
	}
	return nil
}

// redial honours a redirect by establishing a follow-up connection
// against the new peer, carrying the redirect context as connection info.
// Pending sends of the old session have already failed; they are not
// replayed.
func (c *Client) redial(red *session.Redirect) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}

	if c.log != nil {
		c.log.Infof("following redirect to %s", red.Address)
	}

	if err := c.dial(red.Address, red.PublicKey, red.Context); err != nil {
		if c.cfg.OnClose != nil {
			c.cfg.OnClose(nil, err, nil)
		}
	}
}
