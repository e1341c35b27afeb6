//go:build windows

package aio

import (
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"github.com/brickingsoft/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

const (
	wakeKey = uintptr(0xEE)
)

var wsaStartupOnce sync.Once

func wsaStartup() {
	wsaStartupOnce.Do(func() {
		var data windows.WSAData
		_ = windows.WSAStartup(uint32(0x202), &data)
	})
}

// Service owns one I/O completion port. Submissions are safe from any
// goroutine; Poll must be called by the one thread that owns the service,
// normally a reactor loop.
type Service struct {
	port     windows.Handle
	inflight *inflightTable
	related  sync.Map
	closed   atomic.Bool
}

// NewService creates the completion port. maxInflight is a soft cap kept
// for parity with the Linux backend; completion ports do not need sizing.
func NewService(opts ...Option) (*Service, error) {
	_ = resolveOptions(opts)
	wsaStartup()
	port, createErr := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0)
	if createErr != nil {
		return nil, sysErr("setup", createErr)
	}
	s := &Service{
		port:     port,
		inflight: newInflightTable(),
	}
	Logger().Debug("aio: service started")
	return s, nil
}

// Relate associates a handle with the completion port. Idempotent per
// handle.
func (s *Service) Relate(handle int) error {
	if handle < 0 {
		return invalidErr("relate", "invalid handle")
	}
	if _, related := s.related.LoadOrStore(handle, struct{}{}); related {
		return nil
	}
	if _, err := windows.CreateIoCompletionPort(windows.Handle(handle), s.port, 0, 0); err != nil {
		s.related.Delete(handle)
		return sysErr("relate", err)
	}
	return nil
}

// Accept submits an asynchronous accept on op.Handle. On completion
// op.Result holds the accepted handle, already associated with the port,
// and op.Rsa/op.RsaLen hold the peer address.
func (s *Service) Accept(op *Operation) {
	op.kind = opAccept
	if !s.admit(op) {
		return
	}
	family, familyErr := socketFamily(op.Handle)
	if familyErr != nil {
		s.failSubmit(op, familyErr)
		return
	}
	sock, sockErr := newSocketHandle(family, syscall.SOCK_STREAM, syscall.IPPROTO_TCP)
	if sockErr != nil {
		s.failSubmit(op, sockErr)
		return
	}
	op.accepted = sock
	s.inflight.add(op)
	rsaLen := uint32(unsafe.Sizeof(op.acceptBuf[0]))
	acceptErr := syscall.AcceptEx(
		syscall.Handle(op.Handle), sock,
		(*byte)(unsafe.Pointer(&op.acceptBuf[0])), 0,
		rsaLen, rsaLen,
		&op.qty, &op.overlapped,
	)
	if acceptErr != nil && !errors.Is(acceptErr, syscall.ERROR_IO_PENDING) {
		s.inflight.remove(op)
		_ = syscall.Closesocket(sock)
		op.accepted = syscall.InvalidHandle
		s.failSubmit(op, mapSysErr(acceptErr))
	}
}

// Connect submits an asynchronous connect of op.Handle to the address in
// op.Rsa/op.RsaLen. ConnectEx requires a bound socket; the handle must
// have been bound, if only to the wildcard address, before submission.
func (s *Service) Connect(op *Operation) {
	op.kind = opConnect
	if !s.admit(op) {
		return
	}
	sa, saErr := RawToSockaddr(&op.Rsa)
	if saErr != nil {
		s.failSubmit(op, saErr)
		return
	}
	s.inflight.add(op)
	connectErr := syscall.ConnectEx(syscall.Handle(op.Handle), sa, nil, 0, nil, &op.overlapped)
	if connectErr != nil && !errors.Is(connectErr, syscall.ERROR_IO_PENDING) {
		s.inflight.remove(op)
		s.failSubmit(op, mapSysErr(connectErr))
	}
}

// Send submits a stream send. op.Result on completion is the byte count
// actually transferred, possibly short.
func (s *Service) Send(op *Operation) {
	op.kind = opSend
	if !s.admit(op) {
		return
	}
	op.packWSABuf()
	s.inflight.add(op)
	sendErr := syscall.WSASend(syscall.Handle(op.Handle), &op.wsabuf, 1, &op.qty, 0, &op.overlapped, nil)
	if sendErr != nil && !errors.Is(sendErr, syscall.ERROR_IO_PENDING) {
		s.inflight.remove(op)
		s.failSubmit(op, mapSysErr(sendErr))
	}
}

// Receive submits a stream receive. A completion with zero bytes and nil
// error is end of stream.
func (s *Service) Receive(op *Operation) {
	op.kind = opReceive
	if !s.admit(op) {
		return
	}
	op.packWSABuf()
	op.flags = 0
	s.inflight.add(op)
	recvErr := syscall.WSARecv(syscall.Handle(op.Handle), &op.wsabuf, 1, &op.qty, &op.flags, &op.overlapped, nil)
	if recvErr != nil && !errors.Is(recvErr, syscall.ERROR_IO_PENDING) {
		s.inflight.remove(op)
		s.failSubmit(op, mapSysErr(recvErr))
	}
}

// SendTo submits a datagram send to the address in op.Rsa/op.RsaLen.
func (s *Service) SendTo(op *Operation) {
	op.kind = opSendTo
	if !s.admit(op) {
		return
	}
	sa, saErr := RawToSockaddr(&op.Rsa)
	if saErr != nil {
		s.failSubmit(op, saErr)
		return
	}
	op.packWSABuf()
	s.inflight.add(op)
	sendErr := syscall.WSASendto(syscall.Handle(op.Handle), &op.wsabuf, 1, &op.qty, 0, sa, &op.overlapped, nil)
	if sendErr != nil && !errors.Is(sendErr, syscall.ERROR_IO_PENDING) {
		s.inflight.remove(op)
		s.failSubmit(op, mapSysErr(sendErr))
	}
}

// ReceiveFrom submits a datagram receive; op.Rsa/op.RsaLen are filled with
// the source address on completion.
func (s *Service) ReceiveFrom(op *Operation) {
	op.kind = opReceiveFrom
	if !s.admit(op) {
		return
	}
	op.packWSABuf()
	op.flags = 0
	op.RsaLen = MaxRemoteAddrLen
	s.inflight.add(op)
	recvErr := syscall.WSARecvFrom(syscall.Handle(op.Handle), &op.wsabuf, 1, &op.qty, &op.flags, &op.Rsa, &op.RsaLen, &op.overlapped, nil)
	if recvErr != nil && !errors.Is(recvErr, syscall.ERROR_IO_PENDING) {
		s.inflight.remove(op)
		s.failSubmit(op, mapSysErr(recvErr))
	}
}

// ReadAt submits a file read at the explicit offset in op.Offset.
func (s *Service) ReadAt(op *Operation) {
	op.kind = opReadAt
	if op.Offset < 0 {
		s.failSubmit(op, invalidErr("read_at", "negative offset"))
		return
	}
	if !s.admit(op) {
		return
	}
	op.overlapped.Offset = uint32(op.Offset)
	op.overlapped.OffsetHigh = uint32(op.Offset >> 32)
	s.inflight.add(op)
	readErr := syscall.ReadFile(syscall.Handle(op.Handle), op.B, &op.qty, &op.overlapped)
	if readErr != nil && !errors.Is(readErr, syscall.ERROR_IO_PENDING) {
		s.inflight.remove(op)
		s.failSubmit(op, mapSysErr(readErr))
	}
}

// WriteAt submits a file write at the explicit offset in op.Offset.
func (s *Service) WriteAt(op *Operation) {
	op.kind = opWriteAt
	if op.Offset < 0 {
		s.failSubmit(op, invalidErr("write_at", "negative offset"))
		return
	}
	if !s.admit(op) {
		return
	}
	op.overlapped.Offset = uint32(op.Offset)
	op.overlapped.OffsetHigh = uint32(op.Offset >> 32)
	s.inflight.add(op)
	writeErr := syscall.WriteFile(syscall.Handle(op.Handle), op.B, &op.qty, &op.overlapped)
	if writeErr != nil && !errors.Is(writeErr, syscall.ERROR_IO_PENDING) {
		s.inflight.remove(op)
		s.failSubmit(op, mapSysErr(writeErr))
	}
}

// SyncAll flushes op.Handle. FlushFileBuffers has no overlapped form, so
// the flush runs synchronously and the hook is invoked before return.
func (s *Service) SyncAll(op *Operation) {
	op.kind = opSyncAll
	if !s.admit(op) {
		return
	}
	if err := windows.FlushFileBuffers(windows.Handle(op.Handle)); err != nil {
		op.complete(mapSysErr(err))
		return
	}
	op.Result = 0
	op.complete(nil)
}

// SyncData is SyncAll on Windows; the platform offers no metadata-light
// flush.
func (s *Service) SyncData(op *Operation) {
	s.SyncAll(op)
}

// Cancel requests best effort cancellation of every outstanding operation
// on handle. Cancelled operations complete through their hooks with
// ErrCancelled, unless the kernel raced them to a natural result.
func (s *Service) Cancel(handle int) {
	if len(s.inflight.snapshot(handle)) == 0 {
		return
	}
	cancelErr := syscall.CancelIoEx(syscall.Handle(handle), nil)
	if cancelErr != nil && !errors.Is(cancelErr, windows.ERROR_NOT_FOUND) {
		Logger().Debug("aio: cancel failed", zap.Int("handle", handle), zap.Error(cancelErr))
	}
}

// Notify unblocks a Poll in progress without an I/O completion. Safe from
// any goroutine.
func (s *Service) Notify() {
	_ = windows.PostQueuedCompletionStatus(s.port, 0, wakeKey, nil)
}

// Poll blocks until at least one completion is observed, the timeout
// elapses, or a wake-up is posted, then dispatches every immediately
// available completion. A negative timeout blocks indefinitely. Hooks run
// on the calling thread.
func (s *Service) Poll(timeout time.Duration) error {
	millis := uint32(windows.INFINITE)
	if timeout >= 0 {
		millis = uint32(timeout.Milliseconds())
	}
	dispatched := false
	for {
		var qty uint32
		var key uintptr
		var overlapped *windows.Overlapped
		dequeueErr := windows.GetQueuedCompletionStatus(s.port, &qty, &key, &overlapped, millis)
		if overlapped == nil {
			if dequeueErr != nil {
				if errno, ok := dequeueErr.(syscall.Errno); ok && errno == windows.WAIT_TIMEOUT {
					return nil
				}
				if key == wakeKey || dispatched {
					return nil
				}
				Logger().Error("aio: poll failed", zap.Error(dequeueErr))
				return sysErr("poll", dequeueErr)
			}
			if key == wakeKey {
				// wake-up posted; drain whatever else is immediately ready
				millis = 0
				dispatched = true
				continue
			}
			return nil
		}
		op := (*Operation)(unsafe.Pointer(overlapped))
		s.inflight.remove(op)
		s.dispatch(op, int(qty), dequeueErr)
		dispatched = true
		millis = 0
	}
}

// Inflight reports the number of submitted but uncompleted operations.
func (s *Service) Inflight() int {
	return s.inflight.size()
}

// Close cancels everything still in flight, drains the completion port
// until every hook has run, then releases it.
func (s *Service) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, handle := range s.inflight.handles() {
		s.Cancel(handle)
	}
	for s.inflight.size() > 0 {
		if err := s.Poll(10 * time.Millisecond); err != nil {
			break
		}
	}
	closeErr := windows.CloseHandle(s.port)
	Logger().Debug("aio: service closed")
	if closeErr != nil {
		return sysErr("close", closeErr)
	}
	return nil
}

// admit validates the record and rejects submissions on a closed service,
// completing inline so the one-hook-per-submit rule holds.
func (s *Service) admit(op *Operation) bool {
	if op.Hook == nil {
		op.Err = invalidErr(op.kind.String(), "missing completion hook")
		return false
	}
	if s.closed.Load() {
		s.failSubmit(op, invalidErr(op.kind.String(), "service is closed"))
		return false
	}
	return true
}

// failSubmit completes a rejected submission inline: the hook observes the
// failure before the submit call returns, keeping one hook per submit.
func (s *Service) failSubmit(op *Operation, err error) {
	op.Result = 0
	op.complete(err)
}

// dispatch finishes a drained completion: per-kind post-processing, then
// the hook.
func (s *Service) dispatch(op *Operation, qty int, dequeueErr error) {
	var err error
	if dequeueErr != nil {
		err = mapSysErr(dequeueErr)
	}
	switch op.kind {
	case opAccept:
		sock := op.accepted
		op.accepted = syscall.InvalidHandle
		if err == nil {
			err = s.finishAccept(op, sock)
		}
		if err != nil {
			_ = syscall.Closesocket(sock)
			op.Result = 0
		}
	case opConnect:
		if err == nil {
			err = s.finishConnect(op)
		}
		op.Result = 0
	default:
		if err == nil {
			op.Result = qty
		} else {
			op.Result = 0
		}
	}
	op.complete(err)
}

func (s *Service) finishAccept(op *Operation, sock syscall.Handle) error {
	lnFd := syscall.Handle(op.Handle)
	updateErr := syscall.Setsockopt(
		sock,
		windows.SOL_SOCKET, windows.SO_UPDATE_ACCEPT_CONTEXT,
		(*byte)(unsafe.Pointer(&lnFd)),
		int32(unsafe.Sizeof(lnFd)),
	)
	if updateErr != nil {
		return mapSysErr(updateErr)
	}
	rsa, rsaErr := syscall.Getpeername(sock)
	if rsaErr != nil {
		return mapSysErr(rsaErr)
	}
	name, nameLen, rawErr := SockaddrToRaw(rsa)
	if rawErr != nil {
		return rawErr
	}
	op.Rsa = *name
	op.RsaLen = nameLen
	if relateErr := s.Relate(int(sock)); relateErr != nil {
		return relateErr
	}
	op.Result = int(sock)
	return nil
}

func (s *Service) finishConnect(op *Operation) error {
	updateErr := syscall.Setsockopt(
		syscall.Handle(op.Handle),
		windows.SOL_SOCKET, windows.SO_UPDATE_CONNECT_CONTEXT,
		nil, 0,
	)
	if updateErr != nil {
		return mapSysErr(updateErr)
	}
	return nil
}

func (op *Operation) packWSABuf() {
	op.wsabuf = syscall.WSABuf{}
	if len(op.B) > 0 {
		op.wsabuf.Buf = &op.B[0]
		op.wsabuf.Len = uint32(len(op.B))
	}
}
