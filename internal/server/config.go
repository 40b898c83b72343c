package server

import (
	"fmt"
	"net"
)

// pickIP selects the first up, non-loopback IPv4 address on the host, used
// to compute an advertised address when none is configured explicitly.
func pickIP() (net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	for _, iface := range ifaces {
		if (iface.Flags&net.FlagUp) == 0 || (iface.Flags&net.FlagLoopback) != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() {
				continue
			}
			if ip = ip.To4(); ip != nil {
				return ip, nil
			}
		}
	}
	return nil, fmt.Errorf("no suitable network interface found")
}

// Listen binds a TCP listener to bind:port and computes the address this
// node should advertise to peers: host:port if host is given, otherwise
// the bound port paired with an auto-detected IPv4 address.
func Listen(bind, host string, port int) (net.Listener, string, error) {
	if bind == "" {
		bind = "0.0.0.0"
	}
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", bind, port))
	if err != nil {
		return nil, "", err
	}
	actualPort := ln.Addr().(*net.TCPAddr).Port

	if host == "" {
		ip, err := pickIP()
		if err != nil {
			ln.Close()
			return nil, "", err
		}
		host = ip.String()
	}
	return ln, fmt.Sprintf("%s:%d", host, actualPort), nil
}
