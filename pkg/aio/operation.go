package aio

import (
	"syscall"
)

// CompletionHook is invoked by the service exactly once per submitted
// Operation, on the thread that drained the completion, after Result and
// Err have been written into the record.
type CompletionHook func(err error, op *Operation, user any)

// MaxRemoteAddrLen is the size of the sockaddr storage carried by an
// Operation, large enough for IPv6.
const MaxRemoteAddrLen = int32(syscall.SizeofSockaddrAny)

type opKind int

const (
	opNop opKind = iota
	opAccept
	opConnect
	opReceive
	opSend
	opReceiveFrom
	opSendTo
	opReadAt
	opWriteAt
	opSyncAll
	opSyncData
)

func (kind opKind) String() string {
	switch kind {
	case opAccept:
		return "accept"
	case opConnect:
		return "connect"
	case opReceive:
		return "receive"
	case opSend:
		return "send"
	case opReceiveFrom:
		return "receive_from"
	case opSendTo:
		return "send_to"
	case opReadAt:
		return "read_at"
	case opWriteAt:
		return "write_at"
	case opSyncAll:
		return "sync_all"
	case opSyncData:
		return "sync_data"
	default:
		return "nop"
	}
}

// SetRemoteAddr stores addr into the record's sockaddr storage for submit
// paths that send to or connect to a remote peer.
func (op *Operation) SetRemoteAddr(sa syscall.Sockaddr) error {
	name, nameLen, err := SockaddrToRaw(sa)
	if err != nil {
		return err
	}
	op.Rsa = *name
	op.RsaLen = nameLen
	return nil
}

// RemoteSockaddr decodes the record's sockaddr storage, filled by accept
// and receive_from completions.
func (op *Operation) RemoteSockaddr() (syscall.Sockaddr, error) {
	return RawToSockaddr(&op.Rsa)
}

func (op *Operation) complete(err error) {
	op.Err = err
	if hook := op.Hook; hook != nil {
		hook(err, op, op.User)
	}
}
