// Package probe implements the per-address reachability check. A
// probe tries each configured port in order with an even share of the
// per-address timeout budget, stops at the first successful TCP
// handshake, and otherwise classifies the failure.
package probe

import (
	"fmt"
	"strconv"
	"strings"
)

const maxPort = 65535

// ParsePortSpec parses a comma-separated port specification into an
// ordered port list. Single ports and inclusive ranges are accepted
// (e.g. "80,443,8000-8010"). Ports keep their written order and
// duplicates keep their first position, since probe attempts run in
// configured order.
func ParsePortSpec(spec string) ([]uint16, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("port specification is empty")
	}

	var ports []uint16
	seen := make(map[uint16]bool)

	add := func(p uint16) {
		if !seen[p] {
			seen[p] = true
			ports = append(ports, p)
		}
	}

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := parsePort(lo)
			if err != nil {
				return nil, fmt.Errorf("invalid range start %q: %w", lo, err)
			}
			end, err := parsePort(hi)
			if err != nil {
				return nil, fmt.Errorf("invalid range end %q: %w", hi, err)
			}
			if start > end {
				return nil, fmt.Errorf("invalid range %q: start exceeds end", part)
			}
			for p := int(start); p <= int(end); p++ {
				add(uint16(p))
			}
			continue
		}

		p, err := parsePort(part)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q: %w", part, err)
		}
		add(p)
	}

	if len(ports) == 0 {
		return nil, fmt.Errorf("port specification %q contains no ports", spec)
	}
	return ports, nil
}

func parsePort(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if n < 1 || n > maxPort {
		return 0, fmt.Errorf("out of range 1-%d", maxPort)
	}
	return uint16(n), nil
}
