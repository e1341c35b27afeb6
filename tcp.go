package mio

import (
	"net"
	"syscall"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/mio/pkg/aio"
)

// TCPListener accepts stream connections through the service of the
// context it was opened under.
type TCPListener struct {
	ctx     ExecutionContext
	handle  int
	network string
	laddr   net.Addr
	closed  bool
}

// ListenTCP binds and listens on address under the current context.
func ListenTCP(network string, address string) (*TCPListener, error) {
	ctx, ctxErr := Current()
	if ctxErr != nil {
		return nil, ctxErr
	}
	service := ctx.Service()
	if service == nil {
		return nil, errors.From(ErrNoService, errors.WithWrap(aio.ErrInvalidArgument))
	}
	addr, family, ipv6only, resolveErr := aio.ResolveAddr(network, address)
	if resolveErr != nil {
		return nil, resolveErr
	}
	handle, sockErr := aio.NewSocket(family, syscall.SOCK_STREAM, syscall.IPPROTO_TCP)
	if sockErr != nil {
		return nil, sockErr
	}
	if err := aio.SetSockOptInt(handle, syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
		_ = aio.CloseSocket(handle)
		return nil, err
	}
	if family == syscall.AF_INET6 {
		v6only := 0
		if ipv6only {
			v6only = 1
		}
		if err := aio.SetSockOptInt(handle, syscall.IPPROTO_IPV6, syscall.IPV6_V6ONLY, v6only); err != nil {
			_ = aio.CloseSocket(handle)
			return nil, err
		}
	}
	if err := aio.Bind(handle, aio.AddrToSockaddr(addr)); err != nil {
		_ = aio.CloseSocket(handle)
		return nil, err
	}
	if err := aio.Listen(handle, syscall.SOMAXCONN); err != nil {
		_ = aio.CloseSocket(handle)
		return nil, err
	}
	if err := service.Relate(handle); err != nil {
		_ = aio.CloseSocket(handle)
		return nil, err
	}
	laddr, socknameErr := aio.Sockname(handle, network)
	if socknameErr != nil {
		laddr = addr
	}
	return &TCPListener{
		ctx:     ctx,
		handle:  handle,
		network: network,
		laddr:   laddr,
	}, nil
}

// Accept suspends until one connection arrives. The returned connection is
// already registered with the service.
func (l *TCPListener) Accept() (*TCPConn, error) {
	op := &aio.Operation{Handle: l.handle}
	handle, err := submitAwait(l.ctx, op, l.ctx.Service().Accept)
	if err != nil {
		return nil, err
	}
	raddr, raddrErr := aio.RawToAddr(l.network, &op.Rsa)
	if raddrErr != nil {
		raddr = nil
	}
	laddr, _ := aio.Sockname(handle, l.network)
	return &TCPConn{
		ctx:     l.ctx,
		handle:  handle,
		network: l.network,
		laddr:   laddr,
		raddr:   raddr,
	}, nil
}

// Addr reports the bound address.
func (l *TCPListener) Addr() net.Addr {
	return l.laddr
}

// Cancel requests cancellation of pending accepts; they complete with
// ErrCancelled.
func (l *TCPListener) Cancel() {
	l.ctx.Service().Cancel(l.handle)
}

// Close cancels pending accepts and releases the handle. Double close is a
// no-op.
func (l *TCPListener) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	l.ctx.Service().Cancel(l.handle)
	err := aio.CloseSocket(l.handle)
	l.handle = aio.InvalidHandle
	return err
}

// TCPConn is a connected stream socket driven through the service of the
// context it was opened under. It is owned by one goroutine at a time.
type TCPConn struct {
	ctx     ExecutionContext
	handle  int
	network string
	laddr   net.Addr
	raddr   net.Addr
	closed  bool
}

// DialTCP connects to address under the current context, suspending until
// the connect completes.
func DialTCP(network string, address string) (*TCPConn, error) {
	ctx, ctxErr := Current()
	if ctxErr != nil {
		return nil, ctxErr
	}
	service := ctx.Service()
	if service == nil {
		return nil, errors.From(ErrNoService, errors.WithWrap(aio.ErrInvalidArgument))
	}
	raddr, family, _, resolveErr := aio.ResolveAddr(network, address)
	if resolveErr != nil {
		return nil, resolveErr
	}
	handle, sockErr := aio.NewSocket(family, syscall.SOCK_STREAM, syscall.IPPROTO_TCP)
	if sockErr != nil {
		return nil, sockErr
	}
	if err := aio.BindWildcard(handle, family); err != nil {
		_ = aio.CloseSocket(handle)
		return nil, err
	}
	if err := service.Relate(handle); err != nil {
		_ = aio.CloseSocket(handle)
		return nil, err
	}
	op := &aio.Operation{Handle: handle}
	if err := op.SetRemoteAddr(aio.AddrToSockaddr(raddr)); err != nil {
		_ = aio.CloseSocket(handle)
		return nil, err
	}
	if _, err := submitAwait(ctx, op, service.Connect); err != nil {
		_ = aio.CloseSocket(handle)
		return nil, err
	}
	laddr, _ := aio.Sockname(handle, network)
	return &TCPConn{
		ctx:     ctx,
		handle:  handle,
		network: network,
		laddr:   laddr,
		raddr:   raddr,
	}, nil
}

// Receive suspends until data arrives and reports the byte count, which
// may be short. End of stream is reported as ErrEOF.
func (c *TCPConn) Receive(b []byte) (int, error) {
	op := &aio.Operation{Handle: c.handle, B: b}
	n, err := submitAwait(c.ctx, op, c.ctx.Service().Receive)
	if err != nil {
		return 0, err
	}
	if n == 0 && len(b) > 0 {
		return 0, aio.ErrEOF
	}
	return n, nil
}

// Send suspends until the kernel takes the data and reports the byte
// count, which may be short.
func (c *TCPConn) Send(b []byte) (int, error) {
	op := &aio.Operation{Handle: c.handle, B: b}
	return submitAwait(c.ctx, op, c.ctx.Service().Send)
}

// SendCallback submits a send and returns immediately; cb is invoked
// exactly once, on the polling thread, with the completion error and byte
// count. The buffer must stay valid until cb runs.
func (c *TCPConn) SendCallback(b []byte, cb func(err error, n int)) {
	op := &aio.Operation{
		Handle: c.handle,
		B:      b,
		Hook:   CallbackHook,
		User:   cb,
	}
	c.ctx.Service().Send(op)
}

// CloseWrite half-closes the sending side; the peer observes end of
// stream.
func (c *TCPConn) CloseWrite() error {
	return aio.Shutdown(c.handle, aio.ShutdownWrite)
}

// CloseRead half-closes the receiving side.
func (c *TCPConn) CloseRead() error {
	return aio.Shutdown(c.handle, aio.ShutdownRead)
}

// Cancel requests best effort cancellation of the connection's outstanding
// operations; they complete with ErrCancelled. The connection stays
// usable. Timeouts compose from this:
//
//	id := ctx.SetTimeout(50*time.Millisecond, func() { conn.Cancel() })
//	n, err := conn.Receive(buf)
//	ctx.Clear(id)
func (c *TCPConn) Cancel() {
	c.ctx.Service().Cancel(c.handle)
}

// SetOption writes a socket option value.
func (c *TCPConn) SetOption(level int, opt int, value []byte) error {
	return aio.SetSockOptBytes(c.handle, level, opt, value)
}

// GetOption reads a socket option value, sized to the length the kernel
// returned.
func (c *TCPConn) GetOption(level int, opt int) ([]byte, error) {
	return aio.GetSockOptBytes(c.handle, level, opt)
}

// LocalAddr reports the local address.
func (c *TCPConn) LocalAddr() net.Addr {
	return c.laddr
}

// RemoteAddr reports the peer address.
func (c *TCPConn) RemoteAddr() net.Addr {
	return c.raddr
}

// Close cancels outstanding operations and releases the handle. Double
// close is a no-op.
func (c *TCPConn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.ctx.Service().Cancel(c.handle)
	err := aio.CloseSocket(c.handle)
	c.handle = aio.InvalidHandle
	return err
}
