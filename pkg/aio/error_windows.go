//go:build windows

package aio

import (
	"os"
	"syscall"

	"github.com/brickingsoft/errors"
	"golang.org/x/sys/windows"
)

// MapErrno translates a platform error number into the portable taxonomy.
// Cancellations raised by the service's cancel operation always map to
// ErrCancelled.
func MapErrno(errno syscall.Errno) error {
	switch errno {
	case 0:
		return nil
	case windows.ERROR_OPERATION_ABORTED, windows.WSAECANCELLED:
		return ErrCancelled
	case windows.WSAEWOULDBLOCK:
		return ErrWouldBlock
	case windows.WSAECONNREFUSED:
		return ErrConnectionRefused
	case windows.WSAECONNRESET, windows.ERROR_NETNAME_DELETED:
		return ErrConnectionReset
	case windows.ERROR_HANDLE_EOF:
		return ErrEOF
	case windows.WSAETIMEDOUT, windows.ERROR_SEM_TIMEOUT:
		return ErrTimedOut
	case windows.ERROR_INVALID_PARAMETER, windows.WSAENOTSOCK, windows.ERROR_INVALID_HANDLE:
		return errors.From(ErrInvalidArgument, errors.WithWrap(errno))
	default:
		return errors.From(ErrSystem, errors.WithWrap(os.NewSyscallError("iocp", errno)))
	}
}

func mapSysErr(err error) error {
	if err == nil {
		return nil
	}
	if errno, ok := err.(syscall.Errno); ok {
		return MapErrno(errno)
	}
	return errors.From(ErrSystem, errors.WithWrap(err))
}
