//go:build windows

package aio

import (
	"net"
	"os"
	"syscall"

	"golang.org/x/sys/windows"
)

func newSocketHandle(family int, sotype int, proto int) (syscall.Handle, error) {
	wsaStartup()
	sock, err := windows.WSASocket(int32(family), int32(sotype), int32(proto), nil, 0, windows.WSA_FLAG_OVERLAPPED|windows.WSA_FLAG_NO_HANDLE_INHERIT)
	if err != nil {
		return syscall.InvalidHandle, sysErr("socket", os.NewSyscallError("wsasocket", err))
	}
	return syscall.Handle(sock), nil
}

func socketFamily(handle int) (int, error) {
	sa, err := syscall.Getsockname(syscall.Handle(handle))
	if err != nil {
		return 0, sysErr("getsockname", os.NewSyscallError("getsockname", err))
	}
	if _, ok := sa.(*syscall.SockaddrInet6); ok {
		return syscall.AF_INET6, nil
	}
	return syscall.AF_INET, nil
}

// NewSocket opens an overlapped socket handle for the given family.
func NewSocket(family int, sotype int, proto int) (int, error) {
	sock, err := newSocketHandle(family, sotype, proto)
	if err != nil {
		return InvalidHandle, err
	}
	return int(sock), nil
}

func Bind(handle int, sa syscall.Sockaddr) error {
	if err := syscall.Bind(syscall.Handle(handle), sa); err != nil {
		return sysErr("bind", os.NewSyscallError("bind", err))
	}
	return nil
}

// BindWildcard binds an unbound socket to the wildcard address, which
// ConnectEx requires before a connect submission. An already bound socket
// is left alone.
func BindWildcard(handle int, family int) error {
	var sa syscall.Sockaddr
	if family == syscall.AF_INET6 {
		sa = &syscall.SockaddrInet6{}
	} else {
		sa = &syscall.SockaddrInet4{}
	}
	if err := syscall.Bind(syscall.Handle(handle), sa); err != nil && err != syscall.WSAEINVAL {
		return sysErr("bind", os.NewSyscallError("bind", err))
	}
	return nil
}

func Listen(handle int, backlog int) error {
	if err := syscall.Listen(syscall.Handle(handle), backlog); err != nil {
		return sysErr("listen", os.NewSyscallError("listen", err))
	}
	return nil
}

func Shutdown(handle int, how int) error {
	var sysHow int
	switch how {
	case ShutdownRead:
		sysHow = syscall.SHUT_RD
	case ShutdownWrite:
		sysHow = syscall.SHUT_WR
	default:
		sysHow = syscall.SHUT_RDWR
	}
	if err := syscall.Shutdown(syscall.Handle(handle), sysHow); err != nil {
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
	if err := syscall.Closesocket(syscall.Handle(handle)); err != nil && err != syscall.WSAENOTSOCK {
		return sysErr("close", os.NewSyscallError("closesocket", err))
	}
	return nil
}

// CloseFile releases a file handle.
func CloseFile(handle int) error {
	if handle == InvalidHandle {
		return nil
	}
	if err := windows.CloseHandle(windows.Handle(handle)); err != nil {
		return sysErr("close", os.NewSyscallError("closehandle", err))
	}
	return nil
}

func Sockname(handle int, network string) (addr net.Addr, err error) {
	sa, saErr := syscall.Getsockname(syscall.Handle(handle))
	if saErr != nil {
		err = sysErr("getsockname", os.NewSyscallError("getsockname", saErr))
		return
	}
	addr = SockaddrToAddr(network, sa)
	return
}

func SetSockOptInt(handle int, level int, opt int, value int) error {
	if err := syscall.SetsockoptInt(syscall.Handle(handle), level, opt, value); err != nil {
		return sysErr("setsockopt", os.NewSyscallError("setsockopt", err))
	}
	return nil
}

// SetSockOptBytes writes a raw option value.
func SetSockOptBytes(handle int, level int, opt int, value []byte) error {
	if len(value) == 0 {
		return invalidErr("setsockopt", "empty option value")
	}
	if err := syscall.Setsockopt(syscall.Handle(handle), int32(level), int32(opt), &value[0], int32(len(value))); err != nil {
		return sysErr("setsockopt", os.NewSyscallError("setsockopt", err))
	}
	return nil
}

// GetSockOptBytes reads a raw option value, sized to the length the kernel
// actually returned.
func GetSockOptBytes(handle int, level int, opt int) ([]byte, error) {
	buf := make([]byte, 256)
	vallen := int32(len(buf))
	if err := syscall.Getsockopt(syscall.Handle(handle), int32(level), int32(opt), &buf[0], &vallen); err != nil {
		return nil, sysErr("getsockopt", os.NewSyscallError("getsockopt", err))
	}
	return buf[:vallen], nil
}

// OpenFile opens path for overlapped random access I/O through the
// service.
func OpenFile(path string, mode OpenMode, perm uint32) (int, error) {
	var access uint32
	switch {
	case mode&ReadWrite != 0:
		access = windows.GENERIC_READ | windows.GENERIC_WRITE
	case mode&WriteOnly != 0:
		access = windows.GENERIC_WRITE
	default:
		access = windows.GENERIC_READ
	}
	var disposition uint32
	switch {
	case mode&Create != 0 && mode&Truncate != 0:
		disposition = windows.CREATE_ALWAYS
	case mode&Create != 0:
		disposition = windows.OPEN_ALWAYS
	case mode&Truncate != 0:
		disposition = windows.TRUNCATE_EXISTING
	default:
		disposition = windows.OPEN_EXISTING
	}
	pathPtr, pathErr := windows.UTF16PtrFromString(path)
	if pathErr != nil {
		return InvalidHandle, invalidErr("open", pathErr.Error())
	}
	handle, err := windows.CreateFile(
		pathPtr,
		access,
		windows.FILE_SHARE_READ,
		nil,
		disposition,
		windows.FILE_ATTRIBUTE_NORMAL|windows.FILE_FLAG_OVERLAPPED,
		0,
	)
	if err != nil {
		return InvalidHandle, sysErr("open", os.NewSyscallError("createfile", err))
	}
	return int(handle), nil
}
