package server

import "github.com/andrei-cloud/msgnet"

// Handler receives server events. OnClientConnect is the admission check for
// every accepted socket: returning false closes it before any message is read.
// OnClientDisconnect runs exactly once for every admitted connection, before
// the server forgets it. OnMessage runs on the goroutine that calls Update.
type Handler[T msgnet.ID] interface {
	OnClientConnect(conn *msgnet.Connection[T]) bool
	OnClientDisconnect(conn *msgnet.Connection[T])
	OnMessage(conn *msgnet.Connection[T], msg *msgnet.Message[T])
}

// BaseHandler refuses every connection and ignores every event. Embed it to
// override only the hooks you need.
type BaseHandler[T msgnet.ID] struct{}

func (BaseHandler[T]) OnClientConnect(*msgnet.Connection[T]) bool          { return false }
func (BaseHandler[T]) OnClientDisconnect(*msgnet.Connection[T])            {}
func (BaseHandler[T]) OnMessage(*msgnet.Connection[T], *msgnet.Message[T]) {}

// HandlerFuncs is an adapter to allow the use of ordinary functions as a
// Handler. Nil fields behave like BaseHandler.
type HandlerFuncs[T msgnet.ID] struct {
	Connect    func(conn *msgnet.Connection[T]) bool
	Disconnect func(conn *msgnet.Connection[T])
	Message    func(conn *msgnet.Connection[T], msg *msgnet.Message[T])
}

// OnClientConnect calls h.Connect, refusing the connection when it is nil.
func (h HandlerFuncs[T]) OnClientConnect(c *msgnet.Connection[T]) bool {
	if h.Connect == nil {
		return false
	}
	return h.Connect(c)
}

// OnClientDisconnect calls h.Disconnect.
func (h HandlerFuncs[T]) OnClientDisconnect(c *msgnet.Connection[T]) {
	if h.Disconnect != nil {
		h.Disconnect(c)
	}
}

// OnMessage calls h.Message.
func (h HandlerFuncs[T]) OnMessage(c *msgnet.Connection[T], msg *msgnet.Message[T]) {
	if h.Message != nil {
		h.Message(c, msg)
	}
}
