package transport

import (
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pion/logging"
)

// WebSocket provides stream transport over WebSocket connections. Each
// record chunk travels as one binary message. It implements both Dialer
// and ListenerFactory.
type WebSocket struct {
	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Dial connects to a ws:// or wss:// URL.
func (w *WebSocket) Dial(address string, cb Callbacks) (Conn, error) {
	raw, _, err := websocket.DefaultDialer.Dial(address, nil)
	if err != nil {
		return nil, err
	}

	c := newWSConn(raw, cb, w.logger())
	c.start()
	return c, nil
}

// Listen serves a WebSocket endpoint on the given host:port, upgrading
// every request.
func (w *WebSocket) Listen(address string, cb Callbacks) (Listener, error) {
	netListener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}

	l := &wsListener{
		netListener: netListener,
		cb:          cb,
		log:         w.logger(),
	}
	l.server = &http.Server{Handler: http.HandlerFunc(l.serveWS)}
	go l.server.Serve(netListener)
	return l, nil
}

func (w *WebSocket) logger() logging.LeveledLogger {
	if w.LoggerFactory == nil {
		return nil
	}
	return w.LoggerFactory.NewLogger("transport-ws")
}

// wsListener upgrades inbound HTTP requests to WebSocket connections.
type wsListener struct {
	netListener net.Listener
	server      *http.Server
	cb          Callbacks
	log         logging.LeveledLogger
	upgrader    websocket.Upgrader

	mu     sync.Mutex
	conns  map[*wsConn]struct{}
	closed bool
}

func (l *wsListener) Addr() string {
	return l.netListener.Addr().String()
}

func (l *wsListener) Stop() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	conns := make([]*wsConn, 0, len(l.conns))
	for c := range l.conns {
		conns = append(conns, c)
	}
	l.mu.Unlock()

	err := l.server.Close()
	for _, c := range conns {
		c.Close()
	}
	return err
}

func (l *wsListener) serveWS(rw http.ResponseWriter, r *http.Request) {
	raw, err := l.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		if l.log != nil {
			l.log.Warnf("upgrade failed: %v", err)
		}
		return
	}

	c := newWSConn(raw, l.cb, l.log)
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		raw.Close()
		return
	}
	if l.conns == nil {
		l.conns = make(map[*wsConn]struct{})
	}
	l.conns[c] = struct{}{}
	l.mu.Unlock()

	c.onFinished = func() {
		l.mu.Lock()
		delete(l.conns, c)
		l.mu.Unlock()
	}
	c.start()
}

// wsConn adapts a websocket.Conn to the Conn contract.
type wsConn struct {
	raw        *websocket.Conn
	cb         Callbacks
	log        logging.LeveledLogger
	onFinished func()

	writeMu sync.Mutex // gorilla allows one concurrent writer

	mu       sync.Mutex
	closed   bool
	suppress bool
}

func newWSConn(raw *websocket.Conn, cb Callbacks, log logging.LeveledLogger) *wsConn {
	return &wsConn{raw: raw, cb: cb, log: log}
}

func (c *wsConn) start() {
	if c.cb.OnOpen != nil {
		c.cb.OnOpen(c)
	}
	go c.readLoop()
}

func (c *wsConn) Send(data []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.raw.WriteMessage(websocket.BinaryMessage, data)
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.suppress = true
	c.mu.Unlock()

	c.writeMu.Lock()
	c.raw.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	return c.raw.Close()
}

func (c *wsConn) RemoteAddr() string {
	return c.raw.RemoteAddr().String()
}

func (c *wsConn) readLoop() {
	defer func() {
		if c.onFinished != nil {
			c.onFinished()
		}
	}()

	for {
		kind, data, err := c.raw.ReadMessage()
		if err != nil {
			c.finish(err)
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}

		c.mu.Lock()
		suppressed := c.suppress
		c.mu.Unlock()
		if suppressed {
			return
		}
		if c.cb.OnReceive != nil {
			c.cb.OnReceive(c, data)
		}
	}
}

func (c *wsConn) finish(err error) {
	c.mu.Lock()
	if c.suppress {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.suppress = true
	c.mu.Unlock()

	c.raw.Close()

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		err = nil // orderly close by peer
	}
	if c.log != nil && err != nil {
		c.log.Debugf("connection %s failed: %v", c.RemoteAddr(), err)
	}
	if c.cb.OnClose != nil {
		c.cb.OnClose(c, err)
	}
}
