package discovery

import (
	"fmt"
	"net"
)

// NetworkAddress is a local IPv4 address a listener binds to.
type NetworkAddress struct {
	IP net.IP

	// Interface is used to pin outgoing multicast. It may be nil.
	Interface *net.Interface
}

// InterfaceLister enumerates the local addresses discovery searches from.
type InterfaceLister interface {
	Addresses() ([]NetworkAddress, error)
}

// SystemInterfaces lists the IPv4 addresses of every interface that is up
// and not a loopback.
type SystemInterfaces struct{}

func (SystemInterfaces) Addresses() ([]NetworkAddress, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	var out []NetworkAddress
	for i := range ifaces {
		iface := &ifaces[i]
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, ip := range usableIPv4(iface.Flags, addrs) {
			out = append(out, NetworkAddress{IP: ip, Interface: iface})
		}
	}
	return out, nil
}

// StaticAddresses is a fixed address list, e.g. from a --bind flag.
type StaticAddresses []net.IP

func (s StaticAddresses) Addresses() ([]NetworkAddress, error) {
	out := make([]NetworkAddress, 0, len(s))
	for _, ip := range s {
		if ip4 := ip.To4(); ip4 != nil {
			out = append(out, NetworkAddress{IP: ip4})
		}
	}
	return out, nil
}

func usableIPv4(flags net.Flags, addrs []net.Addr) []net.IP {
	if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
		return nil
	}
	var out []net.IP
	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip4 := ip.To4(); ip4 != nil && !ip4.IsLoopback() {
			out = append(out, ip4)
		}
	}
	return out
}
