package msgnet_test

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// timeoutError implements net.Error with Timeout() returning true.
type timeoutError struct{}

func (e *timeoutError) Error() string   { return "timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return false }

// faultConn is a net.Conn whose reads block until closed or until a read
// error is injected, and whose writes fail once writeErr is set.
type faultConn struct {
	closed   atomic.Bool
	done     chan struct{}
	once     sync.Once
	readErr  chan error
	writeErr atomic.Pointer[error]
	written  atomic.Int64

	readDeadlines  atomic.Int32
	writeDeadlines atomic.Int32
}

func newFaultConn() *faultConn {
	return &faultConn{
		done:    make(chan struct{}),
		readErr: make(chan error, 1),
	}
}

// failRead makes the pending or next read return err.
func (f *faultConn) failRead(err error) {
	f.readErr <- err
}

// failWrites makes every following write return err.
func (f *faultConn) failWrites(err error) {
	f.writeErr.Store(&err)
}

func (f *faultConn) Read(b []byte) (int, error) {
	select {
	case err := <-f.readErr:
		return 0, err
	case <-f.done:
		return 0, io.EOF
	}
}

func (f *faultConn) Write(b []byte) (int, error) {
	if f.closed.Load() {
		return 0, net.ErrClosed
	}
	if err := f.writeErr.Load(); err != nil {
		return 0, *err
	}
	f.written.Add(int64(len(b)))
	return len(b), nil
}

func (f *faultConn) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return net.ErrClosed
	}
	f.once.Do(func() { close(f.done) })
	return nil
}

func (f *faultConn) SetDeadline(t time.Time) error {
	return errors.Join(f.SetReadDeadline(t), f.SetWriteDeadline(t))
}

func (f *faultConn) SetReadDeadline(time.Time) error {
	f.readDeadlines.Add(1)
	return nil
}

func (f *faultConn) SetWriteDeadline(time.Time) error {
	f.writeDeadlines.Add(1)
	return nil
}

func (f *faultConn) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

func (f *faultConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8080}
}
