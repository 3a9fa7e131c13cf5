// Package target provides IPv4 address generation and filtering for
// probe runs. Addresses come from one of three sources: random
// generation across the public IPv4 space, CIDR block expansion, or a
// file of explicit addresses. Random generation rejects anything the
// public address filter excludes; explicit CIDR and file sources are
// taken as given.
package target

import "net/netip"

// IsPublic reports whether addr is a publicly routable IPv4 address.
// Private ranges, loopback, link-local, CGNAT, documentation blocks,
// and multicast or reserved space are all rejected.
func IsPublic(addr netip.Addr) bool {
	addr = addr.Unmap()
	if !addr.Is4() {
		return false
	}

	octets := addr.As4()
	a, b := octets[0], octets[1]

	switch {
	case a == 10:
		return false
	case a == 100 && b >= 64 && b <= 127:
		return false
	case a == 127:
		return false
	case a == 169 && b == 254:
		return false
	case a == 172 && b >= 16 && b <= 31:
		return false
	case a == 192 && b == 0 && octets[2] == 2:
		return false
	case a == 192 && b == 168:
		return false
	case a == 198 && b == 51 && octets[2] == 100:
		return false
	case a == 203 && b == 0 && octets[2] == 113:
		return false
	case a >= 224:
		return false
	}
	return true
}
