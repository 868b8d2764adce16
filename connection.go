package msgnet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotConnected indicates an operation that needs a live session.
	ErrNotConnected = errors.New("connection is not connected")

	// ErrAlreadyConnected indicates a connect on a connection that is not idle.
	ErrAlreadyConnected = errors.New("connection is already in use")

	// ErrNoAddresses indicates there was nothing to dial.
	ErrNoAddresses = errors.New("no addresses to connect to")

	// ErrNoSocket indicates a server-side connect without an accepted socket.
	ErrNoSocket = errors.New("connection has no socket")
)

// State is the lifecycle stage of a Connection.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Owner tells which kind of endpoint a Connection belongs to.
type Owner uint8

const (
	OwnerServer Owner = iota
	OwnerClient
)

func (o Owner) String() string {
	if o == OwnerServer {
		return "server"
	}
	return "client"
}

// Connection owns one socket. While connected it runs a read loop that turns
// frames into OwnedMessages on the owner's inbound queue, and a write loop
// that drains its outbound queue onto the socket one frame at a time.
//
// Both loops run on the owner's errgroup. A goroutine blocked in a read or
// write keeps the Connection reachable until the operation completes.
//
// Reads have no deadline unless IdleTimeout is set: a silent peer keeps the
// read loop parked until the socket is closed.
type Connection[T ID] struct {
	owner    Owner
	group    *errgroup.Group
	config   *ConnConfig
	inbound  *TSQueue[OwnedMessage[T]]
	outbound *TSQueue[Message[T]]

	id    atomic.Uint32
	state atomic.Int32
	down  atomic.Bool // set by the first teardown of a session.

	mu      sync.Mutex // guards conn, writing and onClose.
	conn    net.Conn
	writing bool
	onClose func(*Connection[T])
}

// NewConnection creates a connection owned by an endpoint. conn is the
// accepted socket on the server side and nil on the client side. Goroutines
// are started on group; inbound receives every decoded frame.
func NewConnection[T ID](
	owner Owner,
	group *errgroup.Group,
	conn net.Conn,
	inbound *TSQueue[OwnedMessage[T]],
	config *ConnConfig,
) *Connection[T] {
	if config == nil {
		config = DefaultConnConfig()
	} else {
		config.applyDefaults()
	}

	return &Connection[T]{
		owner:    owner,
		group:    group,
		config:   config,
		inbound:  inbound,
		outbound: NewTSQueue[Message[T]](),
		conn:     conn,
	}
}

// SetCloseHandler registers fn to run once each time a live session ends,
// after the state has returned to StateDisconnected.
func (c *Connection[T]) SetCloseHandler(fn func(*Connection[T])) {
	c.mu.Lock()
	c.onClose = fn
	c.mu.Unlock()
}

// ID returns the identifier assigned by the server, or 0. It is 0 for nil.
func (c *Connection[T]) ID() uint32 {
	if c == nil {
		return 0
	}
	return c.id.Load()
}

// Owner returns the kind of endpoint that owns c.
func (c *Connection[T]) Owner() Owner {
	return c.owner
}

// State returns the current lifecycle stage.
func (c *Connection[T]) State() State {
	if c == nil {
		return StateDisconnected
	}
	return State(c.state.Load())
}

// IsConnected reports whether c has a live session. It is false for nil.
func (c *Connection[T]) IsConnected() bool {
	return c.State() == StateConnected
}

// RemoteAddr returns the peer address, or "" without a socket.
func (c *Connection[T]) RemoteAddr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ""
	}
	return c.conn.RemoteAddr().String()
}

// ConnectToServer dials addrs in order and starts the session on the first
// that answers. On failure the connection returns to StateDisconnected and the
// dial errors are returned.
func (c *Connection[T]) ConnectToServer(ctx context.Context, addrs []string) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return ErrAlreadyConnected
	}
	if len(addrs) == 0 {
		c.state.Store(int32(StateDisconnected))
		return ErrNoAddresses
	}

	d := net.Dialer{KeepAlive: c.config.KeepAliveInterval}
	errs := make([]error, 0, len(addrs))
	for _, addr := range addrs {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.start(conn)
		c.config.Logger.Infof("connected to %s", addr)

		return nil
	}

	c.state.Store(int32(StateDisconnected))

	return fmt.Errorf("connecting to server: %w", errors.Join(errs...))
}

// ConnectToClient starts the session on the accepted socket and records the
// identifier the server assigned to it.
func (c *Connection[T]) ConnectToClient(id uint32) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNoSocket
	}
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return ErrAlreadyConnected
	}
	c.id.Store(id)
	c.start(conn)

	return nil
}

func (c *Connection[T]) start(conn net.Conn) {
	if tcpConn, ok := conn.(*net.TCPConn); ok && c.config.KeepAliveInterval > 0 {
		_ = tcpConn.SetKeepAlive(true)
		_ = tcpConn.SetKeepAlivePeriod(c.config.KeepAliveInterval)
	}

	c.mu.Lock()
	c.conn = conn
	c.writing = false
	c.mu.Unlock()

	c.down.Store(false)
	c.state.Store(int32(StateConnected))
	c.group.Go(func() error {
		return c.readLoop(conn)
	})
}

// Disconnect closes the socket of a live session. The pending read then fails
// and the read loop completes the teardown, so the state passes through
// StateDisconnecting before reaching StateDisconnected. It is a no-op on a
// connection that is not connected.
func (c *Connection[T]) Disconnect() {
	if !c.state.CompareAndSwap(int32(StateConnected), int32(StateDisconnecting)) {
		return
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		c.config.Logger.Warnf("[%d] close error: %v", c.ID(), err)
	}
}

// Close closes the socket regardless of state. Servers use it to drop sockets
// that were refused before a session started.
func (c *Connection[T]) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Send queues a copy of msg and starts the write loop if it is idle. Frames
// reach the wire in the order Send was called.
func (c *Connection[T]) Send(msg *Message[T]) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	m := msg.Clone()
	m.sync()

	c.mu.Lock()
	c.outbound.PushBack(m)
	idle := !c.writing
	c.writing = true
	conn := c.conn
	c.mu.Unlock()

	if idle {
		c.group.Go(func() error {
			return c.writeLoop(conn)
		})
	}

	return nil
}

func (c *Connection[T]) readLoop(conn net.Conn) error {
	for {
		if c.config.IdleTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(c.config.IdleTimeout)); err != nil {
				return c.fail(err)
			}
		}

		msg, err := ReadMessage[T](conn, c.config.MaxMessageSize)
		if err != nil {
			return c.fail(err)
		}

		c.inbound.PushBack(NewOwnedMessage(c, msg))
	}
}

func (c *Connection[T]) writeLoop(conn net.Conn) error {
	for {
		c.mu.Lock()
		m, err := c.outbound.PopFront()
		if err != nil {
			c.writing = false
			c.mu.Unlock()
			return nil
		}
		c.mu.Unlock()

		if c.config.WriteTimeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
				c.abandonWrites()
				return c.fail(err)
			}
		}

		if err := WriteMessage(conn, &m); err != nil {
			c.abandonWrites()
			return c.fail(err)
		}
	}
}

func (c *Connection[T]) abandonWrites() {
	c.mu.Lock()
	c.outbound.Clear()
	c.writing = false
	c.mu.Unlock()
}

// fail tears the session down after an I/O error. Errors caused by an orderly
// close are not reported to the errgroup.
func (c *Connection[T]) fail(err error) error {
	c.teardown(err)
	if isClosedErr(err) {
		return nil
	}
	return fmt.Errorf("connection %d: %w", c.ID(), err)
}

func (c *Connection[T]) teardown(cause error) {
	if !c.down.CompareAndSwap(false, true) {
		return
	}
	c.state.Store(int32(StateDisconnecting))

	c.mu.Lock()
	conn := c.conn
	onClose := c.onClose
	c.mu.Unlock()

	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		c.config.Logger.Warnf("[%d] close error: %v", c.ID(), err)
	}
	if isClosedErr(cause) {
		c.config.Logger.Infof("[%d] %s connection closed", c.ID(), c.owner)
	} else {
		c.config.Logger.Warnf("[%d] %s connection dropped: %v", c.ID(), c.owner, cause)
	}

	c.state.Store(int32(StateDisconnected))
	if onClose != nil {
		onClose(c)
	}
}

func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}
