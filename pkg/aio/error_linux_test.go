//go:build linux

package aio_test

import (
	"syscall"
	"testing"

	"github.com/brickingsoft/mio/pkg/aio"
)

func TestMapErrno(t *testing.T) {
	for _, c := range []struct {
		errno syscall.Errno
		check func(error) bool
		name  string
	}{
		{syscall.ECANCELED, aio.IsCancelled, "cancelled"},
		{syscall.EAGAIN, aio.IsWouldBlock, "would_block"},
		{syscall.ECONNREFUSED, aio.IsConnectionRefused, "connection_refused"},
		{syscall.ECONNRESET, aio.IsConnectionReset, "connection_reset"},
		{syscall.EPIPE, aio.IsConnectionReset, "connection_reset"},
		{syscall.ETIMEDOUT, aio.IsTimedOut, "timed_out"},
		{syscall.EINVAL, aio.IsInvalidArgument, "invalid_argument"},
		{syscall.ENOSPC, aio.IsSystem, "system"},
	} {
		if err := aio.MapErrno(c.errno); !c.check(err) {
			t.Error("errno", c.errno, "did not map to", c.name, ":", err)
		}
	}
	if err := aio.MapErrno(0); err != nil {
		t.Error("zero errno mapped to", err)
	}
}
