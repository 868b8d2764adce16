package msgnet

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Client drives one connection to one server. Messages from the server are
// queued on Incoming; the client never dispatches them itself.
type Client[T ID] struct {
	mu       sync.Mutex
	config   *ConnConfig
	resolver *net.Resolver
	group    *errgroup.Group
	conn     *Connection[T]
	incoming *TSQueue[OwnedMessage[T]]
}

// NewClient creates a disconnected client.
func NewClient[T ID](opts ...Option) *Client[T] {
	config := &ConnConfig{}
	for _, opt := range opts {
		opt(config)
	}
	config.applyDefaults()

	return &Client[T]{
		config:   config,
		resolver: net.DefaultResolver,
		incoming: NewTSQueue[OwnedMessage[T]](),
	}
}

// Connect resolves host and connects to it on port. Failures are returned and
// not retried.
func (cl *Client[T]) Connect(ctx context.Context, host string, port uint16) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.conn != nil {
		if cl.conn.IsConnected() {
			return ErrAlreadyConnected
		}
		cl.release()
	}

	ips, err := cl.resolver.LookupHost(ctx, host)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", host, err)
	}
	addrs := make([]string, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, net.JoinHostPort(ip, strconv.Itoa(int(port))))
	}

	group := &errgroup.Group{}
	conn := NewConnection(OwnerClient, group, nil, cl.incoming, cl.config)
	if err := conn.ConnectToServer(ctx, addrs); err != nil {
		cl.config.Logger.Errorf("client connect to %s:%d failed: %v", host, port, err)
		return err
	}

	cl.group = group
	cl.conn = conn

	return nil
}

// Disconnect ends the session, waits for its goroutines and releases the
// connection. It is safe to call on a disconnected client.
func (cl *Client[T]) Disconnect() {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.release()
}

// release must be called with mu held.
func (cl *Client[T]) release() {
	if cl.conn == nil {
		return
	}
	cl.conn.Disconnect()
	if err := cl.group.Wait(); err != nil {
		cl.config.Logger.Warnf("client connection ended with error: %v", err)
	}
	cl.conn = nil
	cl.group = nil
}

// Close disconnects the client.
func (cl *Client[T]) Close() error {
	cl.Disconnect()
	return nil
}

// IsConnected reports whether the client has a live connection.
func (cl *Client[T]) IsConnected() bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.conn.IsConnected()
}

// Send queues msg for the server. It returns ErrNotConnected, and sends
// nothing, when the client is not connected.
func (cl *Client[T]) Send(msg *Message[T]) error {
	cl.mu.Lock()
	conn := cl.conn
	cl.mu.Unlock()
	if !conn.IsConnected() {
		return ErrNotConnected
	}
	return conn.Send(msg)
}

// Incoming returns the queue of messages received from the server.
func (cl *Client[T]) Incoming() *TSQueue[OwnedMessage[T]] {
	return cl.incoming
}
