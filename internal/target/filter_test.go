package target

import (
	"net/netip"
	"testing"
)

func TestIsPublic(t *testing.T) {
	tests := []struct {
		name   string
		addr   string
		public bool
	}{
		{"rfc1918 10/8", "10.0.0.1", false},
		{"rfc1918 10/8 upper", "10.255.255.254", false},
		{"cgnat lower bound", "100.64.0.1", false},
		{"cgnat upper bound", "100.127.255.254", false},
		{"just below cgnat", "100.63.255.254", true},
		{"just above cgnat", "100.128.0.1", true},
		{"loopback", "127.0.0.1", false},
		{"link local", "169.254.10.20", false},
		{"not link local", "169.253.10.20", true},
		{"rfc1918 172.16/12 lower", "172.16.0.1", false},
		{"rfc1918 172.16/12 upper", "172.31.255.254", false},
		{"just below 172.16/12", "172.15.255.254", true},
		{"just above 172.16/12", "172.32.0.1", true},
		{"rfc1918 192.168/16", "192.168.1.1", false},
		{"documentation test-net-1", "192.0.2.55", false},
		{"documentation test-net-2", "198.51.100.200", false},
		{"documentation test-net-3", "203.0.113.7", false},
		{"multicast", "224.0.0.1", false},
		{"reserved high", "240.0.0.1", false},
		{"broadcast", "255.255.255.255", false},
		{"google dns", "8.8.8.8", true},
		{"cloudflare dns", "1.1.1.1", true},
		{"ordinary public", "93.184.216.34", true},
		{"just below multicast", "223.255.255.254", true},
		{"adjacent to test-net-1", "192.0.3.1", true},
		{"192.167 is public", "192.167.1.1", true},
		{"192.169 is public", "192.169.1.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr := netip.MustParseAddr(tt.addr)
			if got := IsPublic(addr); got != tt.public {
				t.Errorf("IsPublic(%s) = %v, want %v", tt.addr, got, tt.public)
			}
		})
	}
}

func TestIsPublicRejectsNonIPv4(t *testing.T) {
	if IsPublic(netip.MustParseAddr("2001:db8::1")) {
		t.Error("IPv6 address should never be public for probing purposes")
	}

	// 4-in-6 mapped addresses are unmapped before classification
	mapped := netip.MustParseAddr("::ffff:8.8.8.8")
	if !IsPublic(mapped) {
		t.Error("mapped IPv4 address should classify like its IPv4 form")
	}
}
