package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/andrei-cloud/msgnet"
	"github.com/andrei-cloud/msgnet/server"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type msgType uint32

const (
	msgPing msgType = iota + 1
	msgPong
)

// zerologAdapter satisfies msgnet.Logger.
type zerologAdapter struct {
	l zerolog.Logger
}

func (z *zerologAdapter) Print(v ...any)                 { z.l.Info().Msg(fmt.Sprint(v...)) }
func (z *zerologAdapter) Printf(format string, v ...any) { z.l.Info().Msgf(format, v...) }
func (z *zerologAdapter) Infof(format string, v ...any)  { z.l.Info().Msgf(format, v...) }
func (z *zerologAdapter) Warnf(format string, v ...any)  { z.l.Warn().Msgf(format, v...) }
func (z *zerologAdapter) Errorf(format string, v ...any) { z.l.Error().Msgf(format, v...) }

// pingServer answers every ping with a pong carrying the same payload.
type pingServer struct {
	srv *server.Server[msgType]
	log zerolog.Logger
}

func (p *pingServer) OnClientConnect(c *msgnet.Connection[msgType]) bool {
	p.log.Info().Str("remote", c.RemoteAddr()).Msg("client connecting")
	return true
}

func (p *pingServer) OnClientDisconnect(c *msgnet.Connection[msgType]) {
	p.log.Info().Uint32("id", c.ID()).Msg("client gone")
}

func (p *pingServer) OnMessage(c *msgnet.Connection[msgType], m *msgnet.Message[msgType]) {
	if m.Header.ID != msgPing {
		p.log.Warn().Stringer("msg", m).Msg("unexpected message")
		return
	}
	m.Header.ID = msgPong
	p.srv.MessageClient(c, m)
}

func runServer(ctx context.Context, addr string, logger zerolog.Logger) error {
	h := &pingServer{log: logger}
	srv, err := server.NewServer[msgType](addr, h, &server.ServerConfig{
		Logger: &zerologAdapter{l: logger},
	})
	if err != nil {
		return err
	}
	h.srv = srv

	if err := srv.Start(); err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}
	defer func() {
		if err := srv.Stop(); err != nil {
			logger.Error().Err(err).Msg("stopping server")
		}
	}()

	for {
		if _, err := srv.UpdateContext(ctx, -1); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

func runClient(ctx context.Context, host string, port uint16, messages int, logger zerolog.Logger) error {
	client := msgnet.NewClient[msgType](msgnet.WithLogger(&zerologAdapter{l: logger}))
	if err := client.Connect(ctx, host, port); err != nil {
		return err
	}
	defer client.Disconnect()

	for i := range messages {
		m := msgnet.NewMessage(msgPing)
		msgnet.Push(m, time.Now().UnixNano())
		msgnet.Push(m, uint32(i))
		if err := client.Send(m); err != nil {
			return err
		}

		if err := client.Incoming().Wait(ctx); err != nil {
			return err
		}
		om, err := client.Incoming().PopFront()
		if err != nil {
			return err
		}
		seq, err := msgnet.Pop[uint32](&om.Msg)
		if err != nil {
			return err
		}
		sent, err := msgnet.Pop[int64](&om.Msg)
		if err != nil {
			return err
		}
		logger.Debug().
			Uint32("seq", seq).
			Dur("rtt", time.Since(time.Unix(0, sent))).
			Msg("pong")
	}

	return nil
}

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	mode := flag.String("mode", "server", "server or client")
	addr := flag.String("addr", "127.0.0.1:3456", "listen or connect address")
	clients := flag.Int("clients", 4, "concurrent clients in client mode")
	messages := flag.Int("messages", 1000, "pings per client in client mode")
	debug := flag.Bool("debug", false, "log every pong")
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch *mode {
	case "server":
		err = runServer(ctx, *addr, logger)
	case "client":
		err = runClients(ctx, *addr, *clients, *messages, logger)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		logger.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}

func runClients(ctx context.Context, addr string, clients, messages int, logger zerolog.Logger) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", portStr, err)
	}

	wg, ctx := errgroup.WithContext(ctx)
	wg.SetLimit(clients)
	start := time.Now()
	for i := range clients {
		wg.Go(func() error {
			return runClient(ctx, host, uint16(port), messages, logger.With().Int("client", i).Logger())
		})
	}

	if err := wg.Wait(); err != nil {
		return err
	}
	logger.Info().
		Int("clients", clients).
		Int("messages", clients*messages).
		Dur("elapsed", time.Since(start)).
		Msg("finished")

	return nil
}
