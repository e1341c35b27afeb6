// Package mio is a completion based asynchronous I/O runtime for TCP and
// UDP sockets and random access files.
//
// The runtime is built from two kinds of execution context. A Reactor owns
// one platform I/O service (io_uring on Linux, a completion port on
// Windows), runs posted tasks and timers on a single loop thread, and
// drains kernel completions between them. A Pool runs posted tasks and
// timers on worker threads and carries no I/O service.
//
// Socket and file wrappers reach the service of the current context:
//
//	reactor, _ := mio.NewReactor()
//	go func() { _ = reactor.Run() }()
//	...
//	ln, _ := mio.ListenTCP("tcp", "127.0.0.1:0")
//	conn, _ := ln.Accept()
//	n, err := conn.Receive(buf)
//
// Each I/O operation suspends the calling goroutine on a resume token and
// is resumed exactly once when the service dispatches its completion.
package mio
