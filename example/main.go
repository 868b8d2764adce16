// Package main provides an example of using the msgnet library.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/andrei-cloud/msgnet"
	"github.com/andrei-cloud/msgnet/server"
)

// CustomMsgTypes enumerates the messages of the demo protocol.
type CustomMsgTypes uint32

const (
	ServerAccept CustomMsgTypes = iota
	ServerDeny
	ServerPing
	MessageAll
	ServerMessage
)

// loggerWrapper adapts the standard log.Logger to satisfy msgnet.Logger interface.
type loggerWrapper struct {
	*log.Logger
}

func (lw *loggerWrapper) Infof(format string, v ...any) {
	lw.Printf(format, v...)
}

func (lw *loggerWrapper) Warnf(format string, v ...any) {
	lw.Printf("[WARN] "+format, v...)
}

func (lw *loggerWrapper) Errorf(format string, v ...any) {
	lw.Printf("[ERROR] "+format, v...)
}

// customServer admits every client, echoes pings and relays broadcasts.
type customServer struct {
	server.BaseHandler[CustomMsgTypes]
	srv *server.Server[CustomMsgTypes]
}

func (s *customServer) OnClientConnect(c *msgnet.Connection[CustomMsgTypes]) bool {
	return true
}

func (s *customServer) OnMessage(c *msgnet.Connection[CustomMsgTypes], m *msgnet.Message[CustomMsgTypes]) {
	if c == nil {
		// sender already gone.
		return
	}

	switch m.Header.ID {
	case ServerPing:
		log.Printf("[%d] server ping", c.ID())
		s.srv.MessageClient(c, m)

	case MessageAll:
		log.Printf("[%d] message all", c.ID())
		out := msgnet.NewMessage(ServerMessage)
		msgnet.Push(out, c.ID())
		s.srv.MessageAllClients(out, c)
	}
}

// pingServer sends a timestamped ping through cl.
func pingServer(cl *msgnet.Client[CustomMsgTypes]) error {
	m := msgnet.NewMessage(ServerPing)
	msgnet.Push(m, time.Now().UnixNano())

	return cl.Send(m)
}

// messageAll asks the server to notify every other client.
func messageAll(cl *msgnet.Client[CustomMsgTypes]) error {
	return cl.Send(msgnet.NewMessage(MessageAll))
}

// drain prints what arrived at cl within the wait window.
func drain(ctx context.Context, name string, cl *msgnet.Client[CustomMsgTypes]) {
	for {
		if err := cl.Incoming().Wait(ctx); err != nil {
			return
		}
		om, err := cl.Incoming().PopFront()
		if err != nil {
			continue
		}

		switch om.Msg.Header.ID {
		case ServerPing:
			sent, err := msgnet.Pop[int64](&om.Msg)
			if err != nil {
				log.Printf("%s: bad ping: %v", name, err)
				continue
			}
			log.Printf("%s: ping %v", name, time.Since(time.Unix(0, sent)))

		case ServerMessage:
			from, err := msgnet.Pop[uint32](&om.Msg)
			if err != nil {
				log.Printf("%s: bad message: %v", name, err)
				continue
			}
			log.Printf("%s: hello from [%d]", name, from)
		}
	}
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	handler := &customServer{}
	srv, err := server.NewServer[CustomMsgTypes]("127.0.0.1:60000", handler, &server.ServerConfig{
		Logger: &loggerWrapper{Logger: log.New(os.Stdout, "SERVER: ", log.LstdFlags|log.Lmicroseconds)},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	handler.srv = srv

	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "server failed to start: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := srv.Stop(); err != nil {
			log.Printf("error stopping server: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// the application drives dispatch.
	go func() {
		for {
			if _, err := srv.UpdateContext(ctx, -1); err != nil {
				return
			}
		}
	}()

	alice := msgnet.NewClient[CustomMsgTypes]()
	bob := msgnet.NewClient[CustomMsgTypes]()
	for _, cl := range []*msgnet.Client[CustomMsgTypes]{alice, bob} {
		if err := cl.Connect(ctx, "127.0.0.1", 60000); err != nil {
			log.Printf("client connect failed: %v", err)
			return
		}
		defer cl.Disconnect()
	}

	go drain(ctx, "alice", alice)
	go drain(ctx, "bob", bob)

	if err := pingServer(alice); err != nil {
		log.Printf("alice ping: %v", err)
	}
	if err := messageAll(bob); err != nil {
		log.Printf("bob message all: %v", err)
	}

	<-ctx.Done()
}
