//go:build windows

package aio

import (
	"syscall"
)

// Operation is the request record handed to the service. The submitter owns
// it until submit; the service and kernel own it while the operation is in
// flight; the completion hook owns it while running. The buffer named by B
// must stay valid for the whole flight.
//
// The overlapped must stay the first field: the drain loop recovers the
// Operation from the OVERLAPPED pointer the completion port reports.
type Operation struct {
	overlapped syscall.Overlapped

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

	kind     opKind
	wsabuf   syscall.WSABuf
	qty      uint32
	flags    uint32
	accepted syscall.Handle
	// AcceptEx writes local and remote sockaddrs here.
	acceptBuf [2]rawSockaddrPadded
}

type rawSockaddrPadded struct {
	rsa syscall.RawSockaddrAny
	pad [16]byte
}

// Reset clears the record for reuse. It must not be called while the
// operation is in flight.
func (op *Operation) Reset() {
	op.overlapped = syscall.Overlapped{}
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
	op.wsabuf = syscall.WSABuf{}
	op.qty = 0
	op.flags = 0
	op.accepted = syscall.InvalidHandle
}
