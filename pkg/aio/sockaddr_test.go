package aio_test

import (
	"net"
	"syscall"
	"testing"

	"github.com/brickingsoft/mio/pkg/aio"
)

func TestResolveAddr(t *testing.T) {
	addr, family, _, err := aio.ResolveAddr("tcp", "127.0.0.1:8080")
	if err != nil {
		t.Fatal(err)
	}
	if family != syscall.AF_INET {
		t.Error("family is not AF_INET:", family)
	}
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok || tcpAddr.Port != 8080 {
		t.Error("unexpected addr:", addr)
	}

	_, family, ipv6only, err := aio.ResolveAddr("udp6", "[::1]:9000")
	if err != nil {
		t.Fatal(err)
	}
	if family != syscall.AF_INET6 {
		t.Error("family is not AF_INET6:", family)
	}
	if !ipv6only {
		t.Error("udp6 is not ipv6only")
	}

	if _, _, _, err = aio.ResolveAddr("unix", "/tmp/sock"); !aio.IsInvalidArgument(err) {
		t.Error("unsupported network did not report invalid argument:", err)
	}
}

func TestSockaddrRawRoundTrip(t *testing.T) {
	sa := &syscall.SockaddrInet4{Port: 4242, Addr: [4]byte{127, 0, 0, 1}}
	raw, rawLen, err := aio.SockaddrToRaw(sa)
	if err != nil {
		t.Fatal(err)
	}
	if rawLen == 0 {
		t.Fatal("raw length is zero")
	}
	back, err := aio.RawToSockaddr(raw)
	if err != nil {
		t.Fatal(err)
	}
	sa4, ok := back.(*syscall.SockaddrInet4)
	if !ok {
		t.Fatal("round trip changed family")
	}
	if sa4.Port != 4242 || sa4.Addr != sa.Addr {
		t.Error("round trip changed value:", sa4)
	}
}

func TestSockaddrRawRoundTripV6(t *testing.T) {
	sa := &syscall.SockaddrInet6{Port: 4242}
	sa.Addr[15] = 1
	raw, _, err := aio.SockaddrToRaw(sa)
	if err != nil {
		t.Fatal(err)
	}
	back, err := aio.RawToSockaddr(raw)
	if err != nil {
		t.Fatal(err)
	}
	sa6, ok := back.(*syscall.SockaddrInet6)
	if !ok {
		t.Fatal("round trip changed family")
	}
	if sa6.Port != 4242 || sa6.Addr != sa.Addr {
		t.Error("round trip changed value:", sa6)
	}
}

func TestAddrSockaddrRoundTrip(t *testing.T) {
	addr := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 7), Port: 53}
	sa := aio.AddrToSockaddr(addr)
	back := aio.SockaddrToAddr("udp", sa)
	udpAddr, ok := back.(*net.UDPAddr)
	if !ok {
		t.Fatal("round trip changed type:", back)
	}
	if !udpAddr.IP.Equal(addr.IP) || udpAddr.Port != addr.Port {
		t.Error("round trip changed value:", udpAddr)
	}
}
