package assets

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"syscall"
	"time"
)

var ErrForbiddenAddress = errors.New("asset host is on a denied network")

// DefaultDeniedNetworks are never dialled for user supplied image URLs.
var DefaultDeniedNetworks = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("::/128"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// ParseNetworks reads a comma separated CIDR list.
func ParseNetworks(list string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, raw := range strings.Split(list, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		p, err := netip.ParsePrefix(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid network %q: %w", raw, err)
		}
		out = append(out, p.Masked())
	}
	return out, nil
}

// deniedAddress checks the address actually being dialled, after DNS
// resolution, so a public name pointing at a private address is refused too.
func deniedAddress(denied []netip.Prefix) func(network, address string, _ syscall.RawConn) error {
	return func(network, address string, _ syscall.RawConn) error {
		ap, err := netip.ParseAddrPort(address)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrForbiddenAddress, address)
		}
		ip := ap.Addr().WithZone("").Unmap()
		if ip.IsUnspecified() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsMulticast() {
			return fmt.Errorf("%w: %s", ErrForbiddenAddress, ip)
		}
		for _, p := range denied {
			if p.Contains(ip) {
				return fmt.Errorf("%w: %s", ErrForbiddenAddress, ip)
			}
		}
		return nil
	}
}

// guardedTransport dials only addresses outside denied. Proxies are not used,
// since the proxy address is all the dialer would get to see.
func guardedTransport(denied []netip.Prefix) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   deniedAddress(denied),
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = nil
	t.DialContext = dialer.DialContext
	return t
}
