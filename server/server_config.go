package server

import (
	"time"

	"github.com/andrei-cloud/msgnet"
)

const (
	DefaultWriteTimeout      = msgnet.DefaultWriteTimeout      // default write timeout duration.
	DefaultIdleTimeout       = msgnet.DefaultIdleTimeout       // default idle timeout disables idle closure.
	DefaultMaxMessageSize    = msgnet.DefaultMaxMessageSize    // default largest accepted body.
	DefaultMaxConns          = 0                               // default max connections means no limit.
	DefaultShutdownTimeout   = 5 * time.Second                 // default shutdown timeout duration.
	DefaultKeepAliveInterval = msgnet.DefaultKeepAliveInterval // default TCP keepalive period.
)

type ServerConfig struct {
	WriteTimeout      time.Duration // maximum duration for one frame write.
	IdleTimeout       time.Duration // duration a connection can remain idle, 0 disables.
	MaxMessageSize    uint32        // largest body accepted from a client.
	MaxConns          int           // maximum concurrent connections allowed.
	ShutdownTimeout   time.Duration // grace period for shutdown wait.
	KeepAliveInterval time.Duration // interval for TCP keepalive probes.
	Logger            msgnet.Logger // optional logger for server events.
}

func (c *ServerConfig) applyDefaults() {
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}

	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}

	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}

	if c.KeepAliveInterval == 0 {
		c.KeepAliveInterval = DefaultKeepAliveInterval
	}
}

// connConfig derives the settings every accepted connection runs with.
func (c *ServerConfig) connConfig() *msgnet.ConnConfig {
	return &msgnet.ConnConfig{
		WriteTimeout:      c.WriteTimeout,
		IdleTimeout:       c.IdleTimeout,
		MaxMessageSize:    c.MaxMessageSize,
		KeepAliveInterval: c.KeepAliveInterval,
		Logger:            c.Logger,
	}
}
