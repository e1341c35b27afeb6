//go:build linux

package aio

import (
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/mio/pkg/kernel"
	"github.com/pawelgaczynski/giouring"
	"go.uber.org/zap"
)

const (
	minRingEntries = 64
	maxRingEntries = 32768

	submitMaxRetries = 10

	// IORING_FSYNC_DATASYNC
	fsyncDatasync uint32 = 1 << 0
)

// Service owns one io_uring instance. Submissions are safe from any
// goroutine; Poll must be called by the one thread that owns the service,
// normally a reactor loop.
type Service struct {
	ring        *giouring.Ring
	sqMu        sync.Mutex
	cq          []*giouring.CompletionQueueEvent
	inflight    *inflightTable
	wake        *Operation
	wakePending atomic.Bool
	closed      atomic.Bool
}

// NewService sets up the completion ring. maxInflight is a soft cap used to
// size the submission and completion queues.
func NewService(opts ...Option) (*Service, error) {
	if !kernel.Enable(5, 1) {
		return nil, sysErr("setup", errors.New("kernel version must be >= 5.1 for io_uring"))
	}
	options := resolveOptions(opts)
	entries := roundupPow2(options.MaxInflight)
	if entries < minRingEntries {
		entries = minRingEntries
	}
	if entries > maxRingEntries {
		entries = maxRingEntries
	}
	ring, ringErr := giouring.CreateRing(uint32(entries))
	if ringErr != nil {
		return nil, sysErr("setup", ringErr)
	}
	s := &Service{
		ring:     ring,
		cq:       make([]*giouring.CompletionQueueEvent, entries),
		inflight: newInflightTable(),
		wake:     &Operation{kind: opNop},
	}
	Logger().Debug("aio: service started", zap.Int("entries", entries))
	return s, nil
}

// Relate registers a handle with the completion facility. io_uring needs no
// explicit registration, so this only validates the handle.
func (s *Service) Relate(handle int) error {
	if handle < 0 {
		return invalidErr("relate", "invalid handle")
	}
	return nil
}

// Accept submits an asynchronous accept on op.Handle. On completion
// op.Result holds the accepted handle, already usable with this service,
// and op.Rsa/op.RsaLen hold the peer address.
func (s *Service) Accept(op *Operation) {
	op.kind = opAccept
	s.submit(op)
}

// Connect submits an asynchronous connect of op.Handle to the address in
// op.Rsa/op.RsaLen.
func (s *Service) Connect(op *Operation) {
	op.kind = opConnect
	if op.RsaLen == 0 {
		s.failSubmit(op, invalidErr("connect", "missing remote address"))
		return
	}
	s.submit(op)
}

// Send submits a stream send. op.Result on completion is the byte count
// actually transferred, possibly short.
func (s *Service) Send(op *Operation) {
	op.kind = opSend
	s.submit(op)
}

// Receive submits a stream receive. A completion with zero bytes and nil
// error is end of stream.
func (s *Service) Receive(op *Operation) {
	op.kind = opReceive
	s.submit(op)
}

// SendTo submits a datagram send to the address in op.Rsa/op.RsaLen.
func (s *Service) SendTo(op *Operation) {
	op.kind = opSendTo
	if op.RsaLen == 0 {
		s.failSubmit(op, invalidErr("send_to", "missing remote address"))
		return
	}
	s.submit(op)
}

// ReceiveFrom submits a datagram receive; op.Rsa/op.RsaLen are filled with
// the source address on completion.
func (s *Service) ReceiveFrom(op *Operation) {
	op.kind = opReceiveFrom
	s.submit(op)
}

// ReadAt submits a file read at the explicit offset in op.Offset.
func (s *Service) ReadAt(op *Operation) {
	op.kind = opReadAt
	if op.Offset < 0 {
		s.failSubmit(op, invalidErr("read_at", "negative offset"))
		return
	}
	s.submit(op)
}

// WriteAt submits a file write at the explicit offset in op.Offset.
func (s *Service) WriteAt(op *Operation) {
	op.kind = opWriteAt
	if op.Offset < 0 {
		s.failSubmit(op, invalidErr("write_at", "negative offset"))
		return
	}
	s.submit(op)
}

// SyncAll submits an fsync of op.Handle.
func (s *Service) SyncAll(op *Operation) {
	op.kind = opSyncAll
	s.submit(op)
}

// SyncData submits an fdatasync of op.Handle.
func (s *Service) SyncData(op *Operation) {
	op.kind = opSyncData
	s.submit(op)
}

// Cancel requests best effort cancellation of every outstanding operation
// on handle. Cancelled operations complete through their hooks with
// ErrCancelled, unless the kernel raced them to a natural result.
func (s *Service) Cancel(handle int) {
	ops := s.inflight.snapshot(handle)
	if len(ops) == 0 {
		return
	}
	s.sqMu.Lock()
	for _, op := range ops {
		sqe := s.getSQE()
		if sqe == nil {
			break
		}
		sqe.PrepareCancel64(uint64(uintptr(unsafe.Pointer(op))), 0)
		sqe.SetData(nil)
	}
	s.flushSQ()
	s.sqMu.Unlock()
}

// Notify unblocks a Poll in progress without an I/O completion. Safe from
// any goroutine.
func (s *Service) Notify() {
	if !s.wakePending.CompareAndSwap(false, true) {
		return
	}
	s.sqMu.Lock()
	sqe := s.getSQE()
	if sqe == nil {
		s.sqMu.Unlock()
		s.wakePending.Store(false)
		return
	}
	sqe.PrepareNop()
	sqe.SetData(unsafe.Pointer(s.wake))
	s.flushSQ()
	s.sqMu.Unlock()
}

// Poll blocks until at least one completion is observed, the timeout
// elapses, or a wake-up is posted, then dispatches every immediately
// available completion. A negative timeout blocks indefinitely. Hooks run
// on the calling thread.
func (s *Service) Poll(timeout time.Duration) error {
	var ts *syscall.Timespec
	if timeout >= 0 {
		t := syscall.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}
	if _, waitErr := s.ring.WaitCQEs(1, ts, nil); waitErr != nil {
		if !errors.Is(waitErr, syscall.ETIME) && !errors.Is(waitErr, syscall.EAGAIN) && !errors.Is(waitErr, syscall.EINTR) {
			Logger().Error("aio: poll failed", zap.Error(waitErr))
			return sysErr("poll", waitErr)
		}
	}
	s.drain()
	return nil
}

// Inflight reports the number of submitted but uncompleted operations.
func (s *Service) Inflight() int {
	return s.inflight.size()
}

// Close cancels everything still in flight, drains the completion queue
// until every hook has run, then releases the ring.
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
	s.ring.QueueExit()
	Logger().Debug("aio: service closed")
	return nil
}

func (s *Service) submit(op *Operation) {
	if op.Hook == nil {
		op.Err = invalidErr(op.kind.String(), "missing completion hook")
		return
	}
	if s.closed.Load() {
		s.failSubmit(op, invalidErr(op.kind.String(), "service is closed"))
		return
	}
	s.sqMu.Lock()
	sqe := s.getSQE()
	if sqe == nil {
		s.sqMu.Unlock()
		s.failSubmit(op, opErr(op.kind.String(), ErrWouldBlock))
		return
	}
	s.prep(sqe, op)
	sqe.SetData(unsafe.Pointer(op))
	s.inflight.add(op)
	s.flushSQ()
	s.sqMu.Unlock()
}

// failSubmit completes a rejected submission inline: the hook observes the
// failure before the submit call returns, keeping one hook per submit.
func (s *Service) failSubmit(op *Operation, err error) {
	op.Result = 0
	op.complete(err)
}

// getSQE is called with sqMu held.
func (s *Service) getSQE() *giouring.SubmissionQueueEntry {
	sqe := s.ring.GetSQE()
	if sqe == nil {
		_, _ = s.ring.Submit()
		sqe = s.ring.GetSQE()
	}
	return sqe
}

// flushSQ is called with sqMu held. Retries transient submit errors;
// anything left queued becomes visible at the next submit or poll.
func (s *Service) flushSQ() {
	for i := 0; i < submitMaxRetries; i++ {
		_, submitErr := s.ring.Submit()
		if submitErr == nil {
			return
		}
		if errors.Is(submitErr, syscall.EAGAIN) || errors.Is(submitErr, syscall.EINTR) || errors.Is(submitErr, syscall.EBUSY) {
			continue
		}
		Logger().Error("aio: submit failed", zap.Error(submitErr))
		return
	}
}

func (s *Service) prep(sqe *giouring.SubmissionQueueEntry, op *Operation) {
	switch op.kind {
	case opAccept:
		op.RsaLen = MaxRemoteAddrLen
		sqe.PrepareAccept(
			op.Handle,
			uintptr(unsafe.Pointer(&op.Rsa)),
			uint64(uintptr(unsafe.Pointer(&op.RsaLen))),
			0,
		)
	case opConnect:
		sqe.PrepareConnect(op.Handle, (*syscall.Sockaddr)(unsafe.Pointer(&op.Rsa)), uint64(op.RsaLen))
	case opReceive:
		sqe.PrepareRecv(op.Handle, uintptr(unsafe.Pointer(unsafe.SliceData(op.B))), uint32(len(op.B)), 0)
	case opSend:
		sqe.PrepareSend(op.Handle, uintptr(unsafe.Pointer(unsafe.SliceData(op.B))), uint32(len(op.B)), 0)
	case opReceiveFrom:
		op.packMsg(uint32(MaxRemoteAddrLen))
		sqe.PrepareRecvMsg(op.Handle, &op.msg, 0)
	case opSendTo:
		op.packMsg(uint32(op.RsaLen))
		sqe.PrepareSendMsg(op.Handle, &op.msg, 0)
	case opReadAt:
		sqe.PrepareRead(op.Handle, uintptr(unsafe.Pointer(unsafe.SliceData(op.B))), uint32(len(op.B)), uint64(op.Offset))
	case opWriteAt:
		sqe.PrepareWrite(op.Handle, uintptr(unsafe.Pointer(unsafe.SliceData(op.B))), uint32(len(op.B)), uint64(op.Offset))
	case opSyncAll:
		sqe.PrepareFsync(op.Handle, 0)
	case opSyncData:
		sqe.PrepareFsync(op.Handle, fsyncDatasync)
	default:
		sqe.PrepareNop()
	}
}

func (s *Service) drain() {
	for {
		completed := s.ring.PeekBatchCQE(s.cq)
		if completed == 0 {
			return
		}
		for i := uint32(0); i < completed; i++ {
			cqe := s.cq[i]
			s.cq[i] = nil
			if cqe.UserData == 0 {
				// cancel acknowledgements carry no owner
				continue
			}
			op := (*Operation)(unsafe.Pointer(uintptr(cqe.UserData)))
			if op == s.wake {
				s.wakePending.Store(false)
				continue
			}
			s.inflight.remove(op)
			var err error
			if cqe.Res < 0 {
				op.Result = 0
				err = MapErrno(syscall.Errno(-cqe.Res))
			} else {
				op.Result = int(cqe.Res)
				if op.kind == opReceiveFrom {
					op.RsaLen = int32(op.msg.Namelen)
				}
			}
			op.complete(err)
		}
		s.ring.CQAdvance(completed)
	}
}

// packMsg fills the record's msghdr for sendmsg/recvmsg, pointing the name
// and iovec at storage inside the record so they stay pinned with it.
func (op *Operation) packMsg(nameLen uint32) {
	op.msg = syscall.Msghdr{}
	op.msg.Name = (*byte)(unsafe.Pointer(&op.Rsa))
	op.msg.Namelen = nameLen
	op.iov = syscall.Iovec{}
	if len(op.B) > 0 {
		op.iov.Base = unsafe.SliceData(op.B)
		op.iov.Len = uint64(len(op.B))
	}
	op.msg.Iov = &op.iov
	op.msg.Iovlen = 1
}

func roundupPow2(n int) int {
	v := 1
	for v < n {
		v <<= 1
	}
	return v
}
