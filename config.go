package msgnet

import "time"

const (
	DefaultWriteTimeout      = 5 * time.Second  // default per-frame write deadline.
	DefaultIdleTimeout       = 0 * time.Second  // default idle timeout disables read deadlines.
	DefaultMaxMessageSize    = 16 << 20         // default largest accepted body, 16MB.
	DefaultKeepAliveInterval = 30 * time.Second // default TCP keepalive period.
)

// ConnConfig contains configuration options for a connection.
type ConnConfig struct {
	// WriteTimeout bounds each frame write. Negative disables the deadline.
	WriteTimeout time.Duration
	// IdleTimeout closes a connection that receives nothing for this long.
	// Zero (the default) leaves reads pending until the peer sends or the
	// socket is closed.
	IdleTimeout time.Duration
	// MaxMessageSize is the largest body accepted from the peer. A larger
	// header disconnects the connection.
	MaxMessageSize uint32
	// KeepAliveInterval is the TCP keepalive period. Negative disables keepalive.
	KeepAliveInterval time.Duration
	// Logger receives connection events. Default is NoopLogger.
	Logger Logger
}

// DefaultConnConfig returns the default connection configuration.
func DefaultConnConfig() *ConnConfig {
	c := &ConnConfig{}
	c.applyDefaults()
	return c
}

func (c *ConnConfig) applyDefaults() {
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}

	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}

	if c.KeepAliveInterval == 0 {
		c.KeepAliveInterval = DefaultKeepAliveInterval
	}

	if c.Logger == nil {
		c.Logger = &NoopLogger{}
	}
}

// Option configures a Client.
type Option func(*ConnConfig)

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(c *ConnConfig) { c.Logger = l }
}

// WithWriteTimeout sets the per-frame write deadline.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *ConnConfig) { c.WriteTimeout = d }
}

// WithIdleTimeout enables read deadlines.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *ConnConfig) { c.IdleTimeout = d }
}

// WithMaxMessageSize caps the accepted body length.
func WithMaxMessageSize(n uint32) Option {
	return func(c *ConnConfig) { c.MaxMessageSize = n }
}

// WithKeepAlive sets the TCP keepalive period.
func WithKeepAlive(d time.Duration) Option {
	return func(c *ConnConfig) { c.KeepAliveInterval = d }
}
