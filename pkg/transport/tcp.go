package transport

import (
	"io"
	"net"
	"sync"

	"github.com/pion/logging"
)

// TCP provides stream transport over TCP sockets. It implements both
// Dialer and ListenerFactory.
type TCP struct {
	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Dial opens a TCP connection to address and starts its read loop.
// OnOpen fires before Dial returns.
func (t *TCP) Dial(address string, cb Callbacks) (Conn, error) {
	raw, err := net.Dial("tcp", address)
	if err != nil {
		return nil, err
	}

	c := newStreamConn(raw, cb, t.logger("transport-tcp"))
	c.start()
	return c, nil
}

// Listen binds a TCP listener on address. Each accepted connection gets
// the shared callbacks; OnOpen fires from the accept goroutine.
func (t *TCP) Listen(address string, cb Callbacks) (Listener, error) {
	raw, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}

	l := &tcpListener{
		listener: raw,
		cb:       cb,
		log:      t.logger("transport-tcp"),
		closeCh:  make(chan struct{}),
	}
	l.wg.Add(1)
	go l.acceptLoop()
	return l, nil
}

func (t *TCP) logger(scope string) logging.LeveledLogger {
	if t.LoggerFactory == nil {
		return nil
	}
	return t.LoggerFactory.NewLogger(scope)
}

// tcpListener accepts connections until stopped.
type tcpListener struct {
	listener net.Listener
	cb       Callbacks
	log      logging.LeveledLogger
	closeCh  chan struct{}
	wg       sync.WaitGroup

	mu     sync.Mutex
	conns  map[*streamConn]struct{}
	closed bool
}

func (l *tcpListener) Addr() string {
	return l.listener.Addr().String()
}

func (l *tcpListener) Stop() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	conns := make([]*streamConn, 0, len(l.conns))
	for c := range l.conns {
		conns = append(conns, c)
	}
	l.mu.Unlock()

	close(l.closeCh)
	err := l.listener.Close()
	for _, c := range conns {
		c.Close()
	}
	l.wg.Wait()
	return err
}

func (l *tcpListener) acceptLoop() {
	defer l.wg.Done()

	for {
		raw, err := l.listener.Accept()
		if err != nil {
			select {
			case <-l.closeCh:
				return
			default:
			}
			if l.log != nil {
				l.log.Warnf("accept failed: %v", err)
			}
			return
		}

		c := newStreamConn(raw, l.cb, l.log)
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			raw.Close()
			return
		}
		if l.conns == nil {
			l.conns = make(map[*streamConn]struct{})
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
}

// streamConn adapts a net.Conn-like stream to the Conn contract. Shared
// by the TCP and pipe transports.
type streamConn struct {
	raw        net.Conn
	cb         Callbacks
	log        logging.LeveledLogger
	onFinished func()

	mu       sync.Mutex
	closed   bool
	suppress bool // local Close: no further callbacks
}

func newStreamConn(raw net.Conn, cb Callbacks, log logging.LeveledLogger) *streamConn {
	return &streamConn{raw: raw, cb: cb, log: log}
}

func (c *streamConn) start() {
	if c.cb.OnOpen != nil {
		c.cb.OnOpen(c)
	}
	go c.readLoop()
}

func (c *streamConn) Send(data []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	_, err := c.raw.Write(data)
	return err
}

func (c *streamConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.suppress = true
	c.mu.Unlock()

	return c.raw.Close()
}

func (c *streamConn) RemoteAddr() string {
	return c.raw.RemoteAddr().String()
}

func (c *streamConn) readLoop() {
	defer func() {
		if c.onFinished != nil {
			c.onFinished()
		}
	}()

	buf := make([]byte, readBufferSize)
	for {
		n, err := c.raw.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if !c.deliver(chunk) {
				return
			}
		}
		if err != nil {
			c.finish(err)
			return
		}
	}
}

// deliver hands a chunk to OnReceive unless the connection was closed
// locally. Returns false when delivery must stop.
func (c *streamConn) deliver(chunk []byte) bool {
	c.mu.Lock()
	suppressed := c.suppress
	c.mu.Unlock()
	if suppressed {
		return false
	}
	if c.cb.OnReceive != nil {
		c.cb.OnReceive(c, chunk)
	}
	return true
}

// finish marks the connection closed by the peer or a failure and fires
// OnClose unless a local Close already suppressed callbacks.
func (c *streamConn) finish(err error) {
	c.mu.Lock()
	if c.suppress {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.suppress = true
	c.mu.Unlock()

	c.raw.Close()

	if err == io.EOF {
		err = nil // orderly close by peer
	}
	if c.log != nil && err != nil {
		c.log.Debugf("connection %s failed: %v", c.RemoteAddr(), err)
	}
	if c.cb.OnClose != nil {
		c.cb.OnClose(c, err)
	}
}
