package target

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math/rand"
	"net/netip"
	"os"
	"strings"

	apperrors "github.com/pulsenet/pulsenet/internal/errors"
	"github.com/pulsenet/pulsenet/internal/logging"
)

// Source produces the finite set of candidate addresses for a run.
// Sources materialize their full address list up front so the total
// count is known before probing starts.
type Source interface {
	// Name identifies the source in logs and metrics.
	Name() string

	// Addresses returns the materialized candidate list.
	Addresses() ([]netip.Addr, error)
}

// RandomSource generates uniformly random public IPv4 addresses by
// rejection sampling against the public address filter.
type RandomSource struct {
	count  int
	logger *logging.Logger
}

// NewRandomSource creates a source producing count random public addresses.
func NewRandomSource(count int) *RandomSource {
	return &RandomSource{
		count:  count,
		logger: logging.Default().WithComponent("source"),
	}
}

// Name returns the source identifier.
func (s *RandomSource) Name() string { return "random" }

// Addresses generates exactly s.count public addresses. Rejected
// candidates are resampled; the public address space dwarfs the
// excluded ranges, so the loop terminates quickly in practice.
func (s *RandomSource) Addresses() ([]netip.Addr, error) {
	if s.count <= 0 {
		return nil, apperrors.NewSourceError(apperrors.CodeSourceEmpty, "address count must be positive")
	}

	addrs := make([]netip.Addr, 0, s.count)
	attempts := 0
	for len(addrs) < s.count {
		attempts++
		var octets [4]byte
		binary.BigEndian.PutUint32(octets[:], rand.Uint32())
		addr := netip.AddrFrom4(octets)
		if IsPublic(addr) {
			addrs = append(addrs, addr)
		}
	}

	s.logger.InfoSource("generated random addresses", s.Name(),
		"count", len(addrs),
		"attempts", attempts)
	return addrs, nil
}

// CIDRSource expands a list of CIDR blocks into their usable host
// addresses. Network and broadcast addresses are excluded, and the
// combined list is shuffled so probing does not sweep adjacent
// addresses in order.
type CIDRSource struct {
	blocks []string
	logger *logging.Logger
}

// NewCIDRSource creates a source from a list of CIDR blocks.
func NewCIDRSource(blocks []string) *CIDRSource {
	return &CIDRSource{
		blocks: blocks,
		logger: logging.Default().WithComponent("source"),
	}
}

// Name returns the source identifier.
func (s *CIDRSource) Name() string { return "cidr" }

// Addresses expands every block and returns the shuffled union.
// Malformed blocks are skipped with a warning rather than aborting
// the run.
func (s *CIDRSource) Addresses() ([]netip.Addr, error) {
	var addrs []netip.Addr
	for _, block := range s.blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		prefix, err := netip.ParsePrefix(block)
		if err != nil || !prefix.Addr().Is4() {
			s.logger.Warn("skipping malformed CIDR block", "block", block)
			continue
		}

		addrs = append(addrs, expandPrefix(prefix)...)
	}

	if len(addrs) == 0 {
		return nil, apperrors.NewSourceError(apperrors.CodeSourceEmpty,
			fmt.Sprintf("no usable host addresses in %d CIDR block(s)", len(s.blocks)))
	}

	shuffle(addrs)
	s.logger.InfoSource("expanded CIDR blocks", s.Name(),
		"blocks", len(s.blocks),
		"addresses", len(addrs))
	return addrs, nil
}

// expandPrefix returns the usable host addresses of an IPv4 prefix.
// The network and broadcast addresses are excluded, except in /31 and
// /32 prefixes, which have no such addresses and expand to every
// address they cover.
func expandPrefix(prefix netip.Prefix) []netip.Addr {
	prefix = prefix.Masked()
	bits := prefix.Bits()

	network := binary.BigEndian.Uint32(addrBytes(prefix.Addr()))
	size := uint64(1) << (32 - bits)

	first, last := network, network+uint32(size-1)
	if bits < 31 {
		first, last = network+1, last-1
	}

	hosts := make([]netip.Addr, 0, uint64(last-first)+1)
	for ip := first; ; ip++ {
		var octets [4]byte
		binary.BigEndian.PutUint32(octets[:], ip)
		hosts = append(hosts, netip.AddrFrom4(octets))
		if ip == last {
			break
		}
	}
	return hosts
}

func addrBytes(addr netip.Addr) []byte {
	octets := addr.As4()
	return octets[:]
}

// FileSource reads newline-delimited addresses from a file. Lines
// that do not parse as IPv4 addresses are skipped silently; the
// surviving list is shuffled.
type FileSource struct {
	path   string
	logger *logging.Logger
}

// NewFileSource creates a source reading addresses from path.
func NewFileSource(path string) *FileSource {
	return &FileSource{
		path:   path,
		logger: logging.Default().WithComponent("source"),
	}
}

// Name returns the source identifier.
func (s *FileSource) Name() string { return "file" }

// Addresses reads and parses the target file. A missing or unreadable
// file is fatal; individual malformed lines are not.
func (s *FileSource) Addresses() ([]netip.Addr, error) {
	file, err := os.Open(s.path)
	if err != nil {
		serr := apperrors.WrapSourceError(apperrors.CodeFileNotFound, "failed to open target file", err)
		serr.Source = s.path
		return nil, serr
	}
	defer func() { _ = file.Close() }()

	var addrs []netip.Addr
	skipped := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		addr, err := netip.ParseAddr(line)
		if err != nil || !addr.Is4() {
			skipped++
			continue
		}
		addrs = append(addrs, addr)
	}
	if err := scanner.Err(); err != nil {
		serr := apperrors.WrapSourceError(apperrors.CodeSourceParse, "failed to read target file", err)
		serr.Source = s.path
		return nil, serr
	}

	if len(addrs) == 0 {
		serr := apperrors.NewSourceError(apperrors.CodeSourceEmpty, "target file contains no parseable addresses")
		serr.Source = s.path
		return nil, serr
	}

	shuffle(addrs)
	s.logger.InfoSource("loaded target file", s.Name(),
		"path", s.path,
		"addresses", len(addrs),
		"skipped", skipped)
	return addrs, nil
}

func shuffle(addrs []netip.Addr) {
	rand.Shuffle(len(addrs), func(i, j int) {
		addrs[i], addrs[j] = addrs[j], addrs[i]
	})
}
