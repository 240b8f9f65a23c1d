package credential

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultPort is the standard SNMP agent port.
const DefaultPort uint16 = 161

// ErrInvalidAddress is returned for device addresses that cannot be parsed.
// It is the only hard failure of the resolver.
var ErrInvalidAddress = errors.New("invalid device address")

// Address identifies one SNMP agent. String() is the key of all per-device
// state.
type Address struct {
	Host string
	Port uint16
}

// ParseAddress accepts "host", "host:port", "[v6]:port" and bare IPv6
// literals. The port defaults to 161.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}

	host, port := s, DefaultPort
	if h, p, err := net.SplitHostPort(s); err == nil {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil || n == 0 {
			return Address{}, fmt.Errorf("%w: bad port in %q", ErrInvalidAddress, s)
		}
		host, port = h, uint16(n)
	}

	if ip := net.ParseIP(host); ip != nil {
		return Address{Host: ip.String(), Port: port}, nil
	}
	if !validHostname(host) {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return Address{Host: strings.ToLower(host), Port: port}, nil
}

// String returns host:port in canonical form.
func (a Address) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}

func validHostname(h string) bool {
	if h == "" || len(h) > 253 {
		return false
	}
	for _, label := range strings.Split(strings.TrimSuffix(h, "."), ".") {
		if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, c := range label {
			switch {
			case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			default:
				return false
			}
		}
	}
	return true
}
