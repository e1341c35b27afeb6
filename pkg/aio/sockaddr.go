package aio

import (
	"net"
	"strings"
	"syscall"
	"unsafe"

	"github.com/brickingsoft/errors"
)

// ResolveAddr parses a tcp or udp address into a net.Addr plus the socket
// family to open for it.
func ResolveAddr(network string, address string) (v net.Addr, family int, ipv6only bool, err error) {
	address = strings.TrimSpace(address)
	ipv6only = strings.HasSuffix(network, "6")
	switch network {
	case "tcp", "tcp4", "tcp6":
		a, resolveErr := net.ResolveTCPAddr(network, address)
		if resolveErr != nil {
			err = invalidErr("resolve", resolveErr.Error())
			return
		}
		if !ipv6only && a.AddrPort().Addr().Is4In6() {
			a.IP = a.IP.To4()
		}
		family, err = ipFamily(a.IP, &a.IP)
		v = a
	case "udp", "udp4", "udp6":
		a, resolveErr := net.ResolveUDPAddr(network, address)
		if resolveErr != nil {
			err = invalidErr("resolve", resolveErr.Error())
			return
		}
		if !ipv6only && a.AddrPort().Addr().Is4In6() {
			a.IP = a.IP.To4()
		}
		family, err = ipFamily(a.IP, &a.IP)
		v = a
	default:
		err = invalidErr("resolve", "invalid network "+network)
	}
	return
}

func ipFamily(ip net.IP, out *net.IP) (int, error) {
	switch len(ip) {
	case net.IPv4len:
		return syscall.AF_INET, nil
	case net.IPv6len:
		return syscall.AF_INET6, nil
	case 0:
		*out = net.IPv4zero.To4()
		return syscall.AF_INET, nil
	default:
		return 0, invalidErr("resolve", "invalid ip length")
	}
}

// AddrToSockaddr converts a tcp or udp net.Addr into a syscall sockaddr.
func AddrToSockaddr(addr net.Addr) (sa syscall.Sockaddr) {
	var ip net.IP
	var port int
	var zone string
	switch a := addr.(type) {
	case *net.TCPAddr:
		ip, port, zone = a.IP, a.Port, a.Zone
	case *net.UDPAddr:
		ip, port, zone = a.IP, a.Port, a.Zone
	default:
		return nil
	}
	if ip4 := ip.To4(); ip4 != nil {
		sa4 := &syscall.SockaddrInet4{Port: port}
		copy(sa4.Addr[:], ip4)
		return sa4
	}
	sa6 := &syscall.SockaddrInet6{Port: port}
	if ip16 := ip.To16(); ip16 != nil {
		copy(sa6.Addr[:], ip16)
	}
	if zone != "" {
		if ifi, ifiErr := net.InterfaceByName(zone); ifiErr == nil {
			sa6.ZoneId = uint32(ifi.Index)
		}
	}
	return sa6
}

// SockaddrToAddr converts a syscall sockaddr into the net.Addr shape named
// by network.
func SockaddrToAddr(network string, sa syscall.Sockaddr) (addr net.Addr) {
	var ip net.IP
	var port int
	var zone string
	switch a := sa.(type) {
	case *syscall.SockaddrInet4:
		ip = append(net.IP{}, a.Addr[:]...)
		port = a.Port
	case *syscall.SockaddrInet6:
		ip = append(net.IP{}, a.Addr[:]...)
		port = a.Port
		if a.ZoneId != 0 {
			if ifi, err := net.InterfaceByIndex(int(a.ZoneId)); err == nil {
				zone = ifi.Name
			}
		}
	default:
		return nil
	}
	switch {
	case strings.HasPrefix(network, "tcp"):
		addr = &net.TCPAddr{IP: ip, Port: port, Zone: zone}
	case strings.HasPrefix(network, "udp"):
		addr = &net.UDPAddr{IP: ip, Port: port, Zone: zone}
	default:
		addr = &net.IPAddr{IP: ip, Zone: zone}
	}
	return
}

// SockaddrToRaw packs a sockaddr into kernel wire form.
func SockaddrToRaw(sa syscall.Sockaddr) (name *syscall.RawSockaddrAny, nameLen int32, err error) {
	switch s := sa.(type) {
	case *syscall.SockaddrInet4:
		name = &syscall.RawSockaddrAny{}
		raw := (*syscall.RawSockaddrInet4)(unsafe.Pointer(name))
		raw.Family = syscall.AF_INET
		p := (*[2]byte)(unsafe.Pointer(&raw.Port))
		p[0] = byte(s.Port >> 8)
		p[1] = byte(s.Port)
		raw.Addr = s.Addr
		nameLen = int32(unsafe.Sizeof(*raw))
		return
	case *syscall.SockaddrInet6:
		name = &syscall.RawSockaddrAny{}
		raw := (*syscall.RawSockaddrInet6)(unsafe.Pointer(name))
		raw.Family = syscall.AF_INET6
		p := (*[2]byte)(unsafe.Pointer(&raw.Port))
		p[0] = byte(s.Port >> 8)
		p[1] = byte(s.Port)
		raw.Scope_id = s.ZoneId
		raw.Addr = s.Addr
		nameLen = int32(unsafe.Sizeof(*raw))
		return
	default:
		err = errors.From(ErrInvalidArgument, errors.WithWrap(errors.New("invalid sockaddr type")))
		return
	}
}

// RawToSockaddr unpacks kernel wire form into a sockaddr.
func RawToSockaddr(rsa *syscall.RawSockaddrAny) (sa syscall.Sockaddr, err error) {
	switch rsa.Addr.Family {
	case syscall.AF_INET:
		raw := (*syscall.RawSockaddrInet4)(unsafe.Pointer(rsa))
		p := (*[2]byte)(unsafe.Pointer(&raw.Port))
		sa4 := &syscall.SockaddrInet4{Port: int(p[0])<<8 + int(p[1])}
		sa4.Addr = raw.Addr
		sa = sa4
		return
	case syscall.AF_INET6:
		raw := (*syscall.RawSockaddrInet6)(unsafe.Pointer(rsa))
		p := (*[2]byte)(unsafe.Pointer(&raw.Port))
		sa6 := &syscall.SockaddrInet6{Port: int(p[0])<<8 + int(p[1]), ZoneId: raw.Scope_id}
		sa6.Addr = raw.Addr
		sa = sa6
		return
	default:
		err = errors.From(ErrInvalidArgument, errors.WithWrap(errors.New("invalid sockaddr family")))
		return
	}
}

// RawToAddr decodes kernel wire form straight into a net.Addr.
func RawToAddr(network string, rsa *syscall.RawSockaddrAny) (net.Addr, error) {
	sa, err := RawToSockaddr(rsa)
	if err != nil {
		return nil, err
	}
	return SockaddrToAddr(network, sa), nil
}
