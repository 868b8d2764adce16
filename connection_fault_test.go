package msgnet_test

import (
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andrei-cloud/msgnet"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func faultConnection(t *testing.T, config *msgnet.ConnConfig) (*msgnet.Connection[uint16], *faultConn, *errgroup.Group) {
	t.Helper()

	fc := newFaultConn()
	t.Cleanup(func() { _ = fc.Close() })

	group := &errgroup.Group{}
	inbound := msgnet.NewTSQueue[msgnet.OwnedMessage[uint16]]()
	c := msgnet.NewConnection(msgnet.OwnerServer, group, fc, inbound, config)

	return c, fc, group
}

func TestConnectionIdleTimeout(t *testing.T) {
	t.Parallel()

	c, fc, group := faultConnection(t, &msgnet.ConnConfig{IdleTimeout: 50 * time.Millisecond})

	var closed atomic.Int32
	c.SetCloseHandler(func(*msgnet.Connection[uint16]) { closed.Add(1) })
	require.NoError(t, c.ConnectToClient(1))

	fc.failRead(&timeoutError{})

	err := group.Wait()
	require.Error(t, err)
	var ne net.Error
	require.ErrorAs(t, err, &ne)
	require.True(t, ne.Timeout())

	require.Equal(t, msgnet.StateDisconnected, c.State())
	require.Equal(t, int32(1), closed.Load())
	require.GreaterOrEqual(t, fc.readDeadlines.Load(), int32(1))
	require.True(t, fc.closed.Load())
}

func TestConnectionNoReadDeadlineByDefault(t *testing.T) {
	t.Parallel()

	c, fc, group := faultConnection(t, nil)
	require.NoError(t, c.ConnectToClient(1))

	c.Disconnect()
	require.NoError(t, group.Wait())
	require.Zero(t, fc.readDeadlines.Load())
}

func TestConnectionWriteFailure(t *testing.T) {
	t.Parallel()

	errBroken := errors.New("broken pipe")
	c, fc, group := faultConnection(t, nil)

	var closed atomic.Int32
	c.SetCloseHandler(func(*msgnet.Connection[uint16]) { closed.Add(1) })
	require.NoError(t, c.ConnectToClient(1))

	fc.failWrites(errBroken)
	m := msgnet.NewMessage(uint16(3))
	msgnet.Push(m, uint64(1))
	require.NoError(t, c.Send(m))

	require.ErrorIs(t, group.Wait(), errBroken)
	require.Equal(t, msgnet.StateDisconnected, c.State())
	require.Equal(t, int32(1), closed.Load())
	require.GreaterOrEqual(t, fc.writeDeadlines.Load(), int32(1))
	require.ErrorIs(t, c.Send(m), msgnet.ErrNotConnected)
}

func TestConnectionWriteTimeoutDisabled(t *testing.T) {
	t.Parallel()

	c, fc, group := faultConnection(t, &msgnet.ConnConfig{WriteTimeout: -1})
	require.NoError(t, c.ConnectToClient(1))

	m := msgnet.NewMessage(uint16(3))
	msgnet.Push(m, uint64(1))
	require.NoError(t, c.Send(m))

	want := int64(m.Size())
	require.Eventually(t, func() bool { return fc.written.Load() == want }, time.Second, 5*time.Millisecond)
	require.Zero(t, fc.writeDeadlines.Load())

	c.Disconnect()
	require.NoError(t, group.Wait())
}
