//go:build linux

package aio

import (
	"syscall"
)

// Operation is the request record handed to the service. The submitter owns
// it until submit; the service and kernel own it while the operation is in
// flight; the completion hook owns it while running. The buffer named by B
// must stay valid for the whole flight.
type Operation struct {
	// Handle is the target descriptor.
	Handle int
	// B names the caller owned byte region read or written by the kernel.
	B []byte
	// Rsa and RsaLen carry the remote sockaddr for connect, send_to and,
	// on completion, accept and receive_from.
	Rsa    syscall.RawSockaddrAny
	RsaLen int32
	// Offset is the explicit file position for read_at and write_at.
	Offset int64
	// Result is the transferred byte count, or the accepted handle.
	Result int
	// Err is the portable completion error, nil on success.
	Err error
	// Hook is invoked once after Result and Err are set.
	Hook CompletionHook
	// User is carried verbatim to the hook.
	User any

	kind opKind
	iov  syscall.Iovec
	msg  syscall.Msghdr
}

// Reset clears the record for reuse. It must not be called while the
// operation is in flight.
func (op *Operation) Reset() {
	op.Handle = InvalidHandle
	op.B = nil
	op.Rsa = syscall.RawSockaddrAny{}
	op.RsaLen = 0
	op.Offset = 0
	op.Result = 0
	op.Err = nil
	op.Hook = nil
	op.User = nil
	op.kind = opNop
	op.iov = syscall.Iovec{}
	op.msg = syscall.Msghdr{}
}
