package server

import (
	"context"
	"errors"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/andrei-cloud/msgnet"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrHandlerRequired indicates NewServer was called without a handler.
	ErrHandlerRequired = errors.New("handler is required")

	// ErrServerStarted indicates Start on a running server.
	ErrServerStarted = errors.New("server already started")

	// ErrServerNotStarted indicates Stop on a server that is not running.
	ErrServerNotStarted = errors.New("server not started")
)

// firstClientID is the identifier given to the first admitted connection.
const firstClientID = 10000

// acceptRetryDelay is the pause after a failed Accept before the next one.
const acceptRetryDelay = 10 * time.Millisecond

// Server accepts connections, collects their messages in one inbound queue
// and dispatches them to its Handler when the application calls Update.
type Server[T msgnet.ID] struct {
	address  string                                  // network address to listen on.
	config   *ServerConfig                           // server configuration options.
	handler  Handler[T]                              // receives connect, disconnect and message events.
	incoming *msgnet.TSQueue[msgnet.OwnedMessage[T]] // messages from every connection.

	mu       sync.Mutex              // guards the fields below.
	listener net.Listener            // TCP listener for incoming connections.
	group    *errgroup.Group         // runs the accept loop and connection I/O.
	conns    []*msgnet.Connection[T] // admitted connections in admission order.
	nextID   uint32                  // identifier for the next admitted connection.
	running  bool                    // between Start and Stop.
}

func NewServer[T msgnet.ID](address string, handler Handler[T], config *ServerConfig) (*Server[T], error) {
	if handler == nil {
		return nil, ErrHandlerRequired
	}
	if config == nil {
		config = &ServerConfig{}
	}
	config.applyDefaults()

	return &Server[T]{
		address:  address,
		config:   config,
		handler:  handler,
		incoming: msgnet.NewTSQueue[msgnet.OwnedMessage[T]](),
		nextID:   firstClientID,
	}, nil
}

// Start binds the listener and begins accepting connections in the
// background. A bind failure is returned and leaves the server stopped.
func (s *Server[T]) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrServerStarted
	}

	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		s.logf("[SERVER] listen error: %v", err)
		return err
	}
	if s.config.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.config.MaxConns)
	}

	s.listener = ln
	s.group = &errgroup.Group{}
	s.running = true
	s.group.Go(func() error {
		return s.acceptLoop(ln)
	})
	s.logf("[SERVER] started on %s", ln.Addr())

	return nil
}

// Stop closes the listener, disconnects every connection, reports each one to
// OnClientDisconnect and waits for the I/O goroutines to finish, at most
// ShutdownTimeout.
func (s *Server[T]) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrServerNotStarted
	}
	s.running = false
	ln := s.listener
	group := s.group
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()

	err := ln.Close()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		s.logf("[SERVER] listener close error: %v", err)
	} else {
		err = nil
	}

	for _, c := range conns {
		c.Disconnect()
		s.handler.OnClientDisconnect(c)
	}

	done := make(chan error, 1)
	go func() {
		done <- group.Wait()
	}()

	select {
	case werr := <-done:
		if werr != nil {
			s.logf("[SERVER] connection error: %v", werr)
		}
	case <-time.After(s.config.ShutdownTimeout):
		s.logf("[SERVER] timeout waiting for connections to close")
	}

	s.logf("[SERVER] stopped")

	return err
}

// Addr returns the listener address, or nil when the server is not running.
func (s *Server[T]) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil || !s.running {
		return nil
	}
	return s.listener.Addr()
}

// Count returns the number of admitted connections.
func (s *Server[T]) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Connections returns a snapshot of the admitted connections.
func (s *Server[T]) Connections() []*msgnet.Connection[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.conns)
}

// Incoming returns the shared inbound queue.
func (s *Server[T]) Incoming() *msgnet.TSQueue[msgnet.OwnedMessage[T]] {
	return s.incoming
}

func (s *Server[T]) acceptLoop(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logf("[SERVER] new connection error: %v", err)
			time.Sleep(acceptRetryDelay)

			continue
		}

		s.handleNewConnection(conn)
	}
}

func (s *Server[T]) handleNewConnection(conn net.Conn) {
	s.logf("[SERVER] new connection: %s", conn.RemoteAddr())

	s.mu.Lock()
	group := s.group
	s.mu.Unlock()

	c := msgnet.NewConnection(msgnet.OwnerServer, group, conn, s.incoming, s.config.connConfig())
	if !s.handler.OnClientConnect(c) {
		s.logf("[-----] connection denied")
		if err := c.Close(); err != nil {
			s.logf("connection close error: %v", err)
		}

		return
	}

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		_ = c.Close()
		s.handler.OnClientDisconnect(c)

		return
	}
	id := s.nextID
	s.nextID++

	// The session starts before c joins the live set, so sweeps never see a
	// registered connection that is not yet connected. A session that ends
	// at once blocks in connectionClosed until mu is released.
	c.SetCloseHandler(s.connectionClosed)
	if err := c.ConnectToClient(id); err != nil {
		s.mu.Unlock()
		s.logf("[%d] connection start error: %v", id, err)
		_ = c.Close()
		s.handler.OnClientDisconnect(c)

		return
	}
	s.conns = append(s.conns, c)
	s.mu.Unlock()

	s.logf("[%d] connection approved", id)
}

// connectionClosed runs on the connection's I/O goroutine when its session ends.
func (s *Server[T]) connectionClosed(c *msgnet.Connection[T]) {
	s.forget(c)
}

// forget removes c from the live set and reports it to OnClientDisconnect.
// Only the first call for a connection reports it.
func (s *Server[T]) forget(c *msgnet.Connection[T]) {
	s.mu.Lock()
	i := slices.Index(s.conns, c)
	if i >= 0 {
		s.conns = slices.Delete(s.conns, i, i+1)
	}
	s.mu.Unlock()

	if i >= 0 {
		s.logf("[%d] client removed", c.ID())
		s.handler.OnClientDisconnect(c)
	}
}

// MessageClient sends msg to one connection. A connection found disconnected
// is reported to OnClientDisconnect and removed instead.
func (s *Server[T]) MessageClient(c *msgnet.Connection[T], msg *msgnet.Message[T]) {
	if c == nil {
		return
	}
	if c.IsConnected() {
		if err := c.Send(msg); err == nil {
			return
		}
	}
	s.forget(c)
}

// MessageAllClients sends msg to every connection except ignore, which may be
// nil. Connections found disconnected during the sweep are removed together
// once it is over.
func (s *Server[T]) MessageAllClients(msg *msgnet.Message[T], ignore *msgnet.Connection[T]) {
	var dead []*msgnet.Connection[T]
	for _, c := range s.Connections() {
		if c.IsConnected() {
			if c == ignore {
				continue
			}
			if err := c.Send(msg); err == nil {
				continue
			}
		}
		dead = append(dead, c)
	}

	if len(dead) == 0 {
		return
	}

	s.mu.Lock()
	removed := make([]*msgnet.Connection[T], 0, len(dead))
	s.conns = slices.DeleteFunc(s.conns, func(c *msgnet.Connection[T]) bool {
		if slices.Contains(dead, c) {
			removed = append(removed, c)
			return true
		}
		return false
	})
	s.mu.Unlock()

	for _, c := range removed {
		s.logf("[%d] client removed", c.ID())
		s.handler.OnClientDisconnect(c)
	}
}

// Update dispatches up to maxMessages queued messages to OnMessage on the
// calling goroutine and returns how many it dispatched. A negative maxMessages
// drains the queue. The connection passed to OnMessage is nil when the origin
// has already been released.
func (s *Server[T]) Update(maxMessages int) int {
	n := 0
	for maxMessages < 0 || n < maxMessages {
		om, err := s.incoming.PopFront()
		if err != nil {
			break
		}
		msg := om.Msg
		s.handler.OnMessage(om.Remote(), &msg)
		n++
	}

	return n
}

// UpdateContext waits until a message is queued or ctx is done, then behaves
// like Update.
func (s *Server[T]) UpdateContext(ctx context.Context, maxMessages int) (int, error) {
	if err := s.incoming.Wait(ctx); err != nil {
		return 0, err
	}

	return s.Update(maxMessages), nil
}

func (s *Server[T]) logf(format string, v ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Printf(format, v...)
	}
}
