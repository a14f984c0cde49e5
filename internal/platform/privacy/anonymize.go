// Package privacy keeps client addresses out of logs and metrics labels.
package privacy

import (
	"fmt"
	"net/netip"
)

// AnonymizeIP truncates an address to its network prefix before it is logged:
// IPv4 keeps the /24 ("203.0.113.47" -> "203.0.113.0"), IPv6 keeps the /48
// ("2001:db8:85a3::8a2e:370:7334" -> "2001:0db8:85a3::").
//
// Empty input and the limiter's "unknown" placeholder both map to "unknown";
// anything unparseable maps to "invalid".
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap()

	if addr.Is4() {
		b := addr.As4()
		return fmt.Sprintf("%d.%d.%d.0", b[0], b[1], b[2])
	}

	b := addr.As16()
	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x::", b[0], b[1], b[2], b[3], b[4], b[5])
}
