package configtypes

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ParseListenAddress accepts ":8080", "8080" and "127.0.0.1:8080".
func ParseListenAddress(listen string) (host string, port int, err error) {
	if listen == "" {
		return "", 0, fmt.Errorf("listen address is empty")
	}

	portStr := listen
	if strings.Contains(listen, ":") {
		host, portStr, err = net.SplitHostPort(listen)
		if err != nil {
			return "", 0, fmt.Errorf("invalid listen address %q: %w", listen, err)
		}
	}

	port, err = strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in listen address %q", listen)
	}
	return host, port, nil
}

// ValidateListenAddress checks the format and the port range.
func ValidateListenAddress(listen string) error {
	_, port, err := ParseListenAddress(listen)
	if err != nil {
		return err
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// CanonicalListen rewrites listen into the host:port form net.Listen takes.
// Unparseable input comes back unchanged for validation to report.
func CanonicalListen(listen string) string {
	host, port, err := ParseListenAddress(listen)
	if err != nil {
		return listen
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// SamePort reports whether two listen addresses would bind the same port.
func SamePort(a, b string) bool {
	_, pa, errA := ParseListenAddress(a)
	_, pb, errB := ParseListenAddress(b)
	return errA == nil && errB == nil && pa == pb
}
