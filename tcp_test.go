//go:build linux

package mio_test

import (
	"bytes"
	"syscall"
	"testing"
	"time"

	"github.com/brickingsoft/mio"
	"github.com/brickingsoft/mio/pkg/aio"
)

// echo: the server receives until end of stream, sends everything back and
// closes; the client sends, half-closes and reads until end of stream.
func TestTCPEcho(t *testing.T) {
	r, stop := startReactor(t)
	defer stop()
	_ = r

	ln, lnErr := mio.ListenTCP("tcp", "127.0.0.1:0")
	if lnErr != nil {
		t.Fatal(lnErr)
	}
	defer ln.Close()

	serverDone := make(chan error, 1)
	go func() {
		conn, acceptErr := ln.Accept()
		if acceptErr != nil {
			serverDone <- acceptErr
			return
		}
		defer conn.Close()
		var received bytes.Buffer
		buf := make([]byte, 16)
		for {
			n, recvErr := conn.Receive(buf)
			if recvErr != nil {
				if aio.IsEOF(recvErr) {
					break
				}
				serverDone <- recvErr
				return
			}
			received.Write(buf[:n])
		}
		out := received.Bytes()
		for len(out) > 0 {
			n, sendErr := conn.Send(out)
			if sendErr != nil {
				serverDone <- sendErr
				return
			}
			out = out[n:]
		}
		serverDone <- nil
	}()

	conn, dialErr := mio.DialTCP("tcp", ln.Addr().String())
	if dialErr != nil {
		t.Fatal(dialErr)
	}
	defer conn.Close()

	msg := []byte("hello")
	for sent := msg; len(sent) > 0; {
		n, sendErr := conn.Send(sent)
		if sendErr != nil {
			t.Fatal(sendErr)
		}
		sent = sent[n:]
	}
	if err := conn.CloseWrite(); err != nil {
		t.Fatal(err)
	}

	var echoed bytes.Buffer
	buf := make([]byte, 16)
	for {
		n, recvErr := conn.Receive(buf)
		if recvErr != nil {
			if aio.IsEOF(recvErr) {
				break
			}
			t.Fatal(recvErr)
		}
		echoed.Write(buf[:n])
	}
	if !bytes.Equal(echoed.Bytes(), msg) {
		t.Error("echo mismatch:", echoed.String())
	}
	if err := <-serverDone; err != nil {
		t.Error("server failed:", err)
	}
}

// cancel-by-timeout: a receive with no peer data is cancelled by a timer;
// a later receive with data present succeeds.
func TestTCPCancelByTimeout(t *testing.T) {
	r, stop := startReactor(t)
	defer stop()

	ln, lnErr := mio.ListenTCP("tcp", "127.0.0.1:0")
	if lnErr != nil {
		t.Fatal(lnErr)
	}
	defer ln.Close()

	accepted := make(chan *mio.TCPConn, 1)
	go func() {
		conn, acceptErr := ln.Accept()
		if acceptErr != nil {
			accepted <- nil
			return
		}
		accepted <- conn
	}()

	conn, dialErr := mio.DialTCP("tcp", ln.Addr().String())
	if dialErr != nil {
		t.Fatal(dialErr)
	}
	defer conn.Close()
	peer := <-accepted
	if peer == nil {
		t.Fatal("accept failed")
	}
	defer peer.Close()

	id := r.SetTimeout(50*time.Millisecond, func() {
		conn.Cancel()
	})
	buf := make([]byte, 8)
	n, recvErr := conn.Receive(buf)
	r.Clear(id)
	if !aio.IsCancelled(recvErr) {
		t.Fatal("receive was not cancelled:", n, recvErr)
	}

	if _, sendErr := peer.Send([]byte("x")); sendErr != nil {
		t.Fatal(sendErr)
	}
	n, recvErr = conn.Receive(buf)
	if recvErr != nil {
		t.Fatal("receive after cancel failed:", recvErr)
	}
	if n != 1 || buf[0] != 'x' {
		t.Error("unexpected payload:", n, buf[:n])
	}
}

func TestTCPSendCallback(t *testing.T) {
	r, stop := startReactor(t)
	defer stop()
	_ = r

	ln, lnErr := mio.ListenTCP("tcp", "127.0.0.1:0")
	if lnErr != nil {
		t.Fatal(lnErr)
	}
	defer ln.Close()

	accepted := make(chan *mio.TCPConn, 1)
	go func() {
		conn, acceptErr := ln.Accept()
		if acceptErr != nil {
			accepted <- nil
			return
		}
		accepted <- conn
	}()

	conn, dialErr := mio.DialTCP("tcp", ln.Addr().String())
	if dialErr != nil {
		t.Fatal(dialErr)
	}
	defer conn.Close()
	peer := <-accepted
	if peer == nil {
		t.Fatal("accept failed")
	}
	defer peer.Close()

	type result struct {
		n   int
		err error
	}
	sent := make(chan result, 1)
	conn.SendCallback([]byte("hi"), func(err error, n int) {
		sent <- result{n: n, err: err}
	})

	buf := make([]byte, 8)
	n, recvErr := peer.Receive(buf)
	if recvErr != nil {
		t.Fatal(recvErr)
	}
	if n != 2 || string(buf[:n]) != "hi" {
		t.Error("unexpected payload:", n, string(buf[:n]))
	}
	select {
	case res := <-sent:
		if res.err != nil || res.n != 2 {
			t.Error("unexpected send completion:", res.n, res.err)
		}
	case <-time.After(time.Second):
		t.Error("send callback never ran")
	}
}

func TestTCPGetOptionSized(t *testing.T) {
	r, stop := startReactor(t)
	defer stop()
	_ = r

	ln, lnErr := mio.ListenTCP("tcp", "127.0.0.1:0")
	if lnErr != nil {
		t.Fatal(lnErr)
	}
	defer ln.Close()

	accepted := make(chan struct{})
	go func() {
		if conn, acceptErr := ln.Accept(); acceptErr == nil {
			defer conn.Close()
			<-accepted
		}
	}()
	defer close(accepted)

	conn, dialErr := mio.DialTCP("tcp", ln.Addr().String())
	if dialErr != nil {
		t.Fatal(dialErr)
	}
	defer conn.Close()

	// SO_RCVBUF is an int option: the returned view must be int sized, not
	// a fixed copy
	value, optErr := conn.GetOption(syscall.SOL_SOCKET, syscall.SO_RCVBUF)
	if optErr != nil {
		t.Fatal(optErr)
	}
	if len(value) != 4 && len(value) != 8 {
		t.Error("option value not sized to the kernel length:", len(value))
	}
}
