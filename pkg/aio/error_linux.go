//go:build linux

package aio

import (
	"os"
	"syscall"

	"github.com/brickingsoft/errors"
)

// MapErrno translates a platform error number into the portable taxonomy.
// Cancellations raised by the service's cancel operation always map to
// ErrCancelled.
func MapErrno(errno syscall.Errno) error {
	switch errno {
	case 0:
		return nil
	case syscall.ECANCELED:
		return ErrCancelled
	case syscall.EAGAIN:
		return ErrWouldBlock
	case syscall.ECONNREFUSED:
		return ErrConnectionRefused
	case syscall.ECONNRESET, syscall.EPIPE:
		return ErrConnectionReset
	case syscall.ETIMEDOUT:
		return ErrTimedOut
	case syscall.EINVAL, syscall.EBADF, syscall.ENOTSOCK:
		return errors.From(ErrInvalidArgument, errors.WithWrap(errno))
	default:
		return errors.From(ErrSystem, errors.WithWrap(os.NewSyscallError("io_uring", errno)))
	}
}
