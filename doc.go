// Package msgnet provides asynchronous, typed message exchange over TCP
// between one server and many clients.
//
// Features:
//   - Message framing: every frame is a fixed header (application id and a
//     uint32 body size, little-endian) followed by the body. Push and Pop move
//     fixed-size values in and out of the body in stack order.
//   - Queues: TSQueue is a mutex-guarded deque shared between I/O goroutines
//     and the application.
//   - Connection: owns one socket and runs its read and write loops on the
//     owning endpoint's errgroup. Frames are written in the order they were
//     sent, one at a time.
//   - Client: NewClient resolves and dials a server and exposes the inbound
//     queue. The application pops and handles messages itself.
//   - Server: server.NewServer accepts clients, calls a Handler for admission
//     and disconnect, and dispatches queued messages when the application
//     calls Update.
//
// Basic Client Example:
//
//	client := msgnet.NewClient[MsgType]()
//	if err := client.Connect(ctx, "localhost", 60000); err != nil {
//	    // handle error
//	}
//	defer client.Disconnect()
//	m := msgnet.NewMessage(MsgPing)
//	msgnet.Push(m, time.Now().UnixNano())
//	if err := client.Send(m); err != nil {
//	    // handle error
//	}
//
// Basic Server Example:
//
//	srv, err := server.NewServer[MsgType](":60000", handler, nil)
//	if err != nil {
//	    // handle error
//	}
//	if err := srv.Start(); err != nil {
//	    // handle error
//	}
//	defer srv.Stop()
//	for {
//	    srv.Update(-1)
//	}
package msgnet
