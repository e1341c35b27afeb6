//go:build linux

package aio

import (
	"net"
	"os"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// NewSocket opens a socket handle for the given family. The handle is
// close-on-exec; io_uring drives it asynchronously regardless of its
// blocking mode.
func NewSocket(family int, sotype int, proto int) (int, error) {
	fd, err := unix.Socket(family, sotype|unix.SOCK_CLOEXEC, proto)
	if err != nil {
		return InvalidHandle, sysErr("socket", os.NewSyscallError("socket", err))
	}
	return fd, nil
}

func Bind(handle int, sa syscall.Sockaddr) error {
	if err := syscall.Bind(handle, sa); err != nil {
		return sysErr("bind", os.NewSyscallError("bind", err))
	}
	return nil
}

// BindWildcard exists for parity with the Windows backend, where ConnectEx
// needs a bound socket. io_uring connect needs no prior bind.
func BindWildcard(handle int, family int) error {
	return nil
}

func Listen(handle int, backlog int) error {
	if err := syscall.Listen(handle, backlog); err != nil {
		return sysErr("listen", os.NewSyscallError("listen", err))
	}
	return nil
}

func Shutdown(handle int, how int) error {
	var sysHow int
	switch how {
	case ShutdownRead:
		sysHow = unix.SHUT_RD
	case ShutdownWrite:
		sysHow = unix.SHUT_WR
	default:
		sysHow = unix.SHUT_RDWR
	}
	if err := syscall.Shutdown(handle, sysHow); err != nil {
		return sysErr("shutdown", os.NewSyscallError("shutdown", err))
	}
	return nil
}

// CloseSocket releases a socket handle. Closing an already closed handle
// reports nothing.
func CloseSocket(handle int) error {
	if handle == InvalidHandle {
		return nil
	}
	if err := syscall.Close(handle); err != nil && err != syscall.EBADF {
		return sysErr("close", os.NewSyscallError("close", err))
	}
	return nil
}

// CloseFile releases a file handle.
func CloseFile(handle int) error {
	return CloseSocket(handle)
}

func Sockname(handle int, network string) (addr net.Addr, err error) {
	sa, saErr := syscall.Getsockname(handle)
	if saErr != nil {
		err = sysErr("getsockname", os.NewSyscallError("getsockname", saErr))
		return
	}
	addr = SockaddrToAddr(network, sa)
	return
}

func SetSockOptInt(handle int, level int, opt int, value int) error {
	if err := syscall.SetsockoptInt(handle, level, opt, value); err != nil {
		return sysErr("setsockopt", os.NewSyscallError("setsockopt", err))
	}
	return nil
}

// SetSockOptBytes writes a raw option value.
func SetSockOptBytes(handle int, level int, opt int, value []byte) error {
	if err := unix.SetsockoptString(handle, level, opt, string(value)); err != nil {
		return sysErr("setsockopt", os.NewSyscallError("setsockopt", err))
	}
	return nil
}

// GetSockOptBytes reads a raw option value, sized to the length the kernel
// actually returned.
func GetSockOptBytes(handle int, level int, opt int) ([]byte, error) {
	buf := make([]byte, 256)
	vallen := uint32(len(buf))
	_, _, errno := unix.Syscall6(
		unix.SYS_GETSOCKOPT,
		uintptr(handle), uintptr(level), uintptr(opt),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&vallen)), 0,
	)
	if errno != 0 {
		return nil, sysErr("getsockopt", os.NewSyscallError("getsockopt", errno))
	}
	return buf[:vallen], nil
}

// OpenFile opens path for random access I/O through the service.
func OpenFile(path string, mode OpenMode, perm uint32) (int, error) {
	flags := unix.O_CLOEXEC
	switch {
	case mode&ReadWrite != 0:
		flags |= unix.O_RDWR
	case mode&WriteOnly != 0:
		flags |= unix.O_WRONLY
	default:
		flags |= unix.O_RDONLY
	}
	if mode&Create != 0 {
		flags |= unix.O_CREAT
	}
	if mode&Truncate != 0 {
		flags |= unix.O_TRUNC
	}
	if mode&Append != 0 {
		flags |= unix.O_APPEND
	}
	fd, err := unix.Open(path, flags, perm)
	if err != nil {
		return InvalidHandle, sysErr("open", os.NewSyscallError("open", err))
	}
	return fd, nil
}
