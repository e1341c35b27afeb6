package mio

import (
	"net"
	"syscall"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/mio/pkg/aio"
)

// UDPConn is a datagram socket driven through the service of the context
// it was opened under.
type UDPConn struct {
	ctx     ExecutionContext
	handle  int
	network string
	laddr   net.Addr
	closed  bool
}

// ListenUDP binds a datagram socket on address under the current context.
func ListenUDP(network string, address string) (*UDPConn, error) {
	ctx, ctxErr := Current()
	if ctxErr != nil {
		return nil, ctxErr
	}
	service := ctx.Service()
	if service == nil {
		return nil, errors.From(ErrNoService, errors.WithWrap(aio.ErrInvalidArgument))
	}
	addr, family, _, resolveErr := aio.ResolveAddr(network, address)
	if resolveErr != nil {
		return nil, resolveErr
	}
	handle, sockErr := aio.NewSocket(family, syscall.SOCK_DGRAM, syscall.IPPROTO_UDP)
	if sockErr != nil {
		return nil, sockErr
	}
	if err := aio.Bind(handle, aio.AddrToSockaddr(addr)); err != nil {
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
	return &UDPConn{
		ctx:     ctx,
		handle:  handle,
		network: network,
		laddr:   laddr,
	}, nil
}

// SendTo suspends until the datagram is handed to the kernel and reports
// the byte count.
func (c *UDPConn) SendTo(b []byte, addr net.Addr) (int, error) {
	sa := aio.AddrToSockaddr(addr)
	if sa == nil {
		return 0, errors.From(aio.ErrInvalidArgument, errors.WithWrap(errors.New("invalid remote address")))
	}
	op := &aio.Operation{Handle: c.handle, B: b}
	if err := op.SetRemoteAddr(sa); err != nil {
		return 0, err
	}
	return submitAwait(c.ctx, op, c.ctx.Service().SendTo)
}

// ReceiveFrom suspends until one datagram arrives and reports its byte
// count and source endpoint.
func (c *UDPConn) ReceiveFrom(b []byte) (int, net.Addr, error) {
	op := &aio.Operation{Handle: c.handle, B: b}
	n, err := submitAwait(c.ctx, op, c.ctx.Service().ReceiveFrom)
	if err != nil {
		return 0, nil, err
	}
	from, fromErr := aio.RawToAddr(c.network, &op.Rsa)
	if fromErr != nil {
		return n, nil, nil
	}
	return n, from, nil
}

// Cancel requests best effort cancellation of outstanding operations; they
// complete with ErrCancelled.
func (c *UDPConn) Cancel() {
	c.ctx.Service().Cancel(c.handle)
}

// SetOption writes a socket option value.
func (c *UDPConn) SetOption(level int, opt int, value []byte) error {
	return aio.SetSockOptBytes(c.handle, level, opt, value)
}

// GetOption reads a socket option value, sized to the length the kernel
// returned.
func (c *UDPConn) GetOption(level int, opt int) ([]byte, error) {
	return aio.GetSockOptBytes(c.handle, level, opt)
}

// LocalAddr reports the bound address.
func (c *UDPConn) LocalAddr() net.Addr {
	return c.laddr
}

// Close cancels outstanding operations and releases the handle. Double
// close is a no-op.
func (c *UDPConn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.ctx.Service().Cancel(c.handle)
	err := aio.CloseSocket(c.handle)
	c.handle = aio.InvalidHandle
	return err
}
