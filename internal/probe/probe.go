package probe

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/netip"
	"strconv"
	"syscall"
	"time"

	"github.com/pulsenet/pulsenet/internal/logging"
	"github.com/pulsenet/pulsenet/internal/metrics"
)

// Reason classifies why an address produced no successful connection.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonTimeout     Reason = "timeout"
	ReasonRefused     Reason = "refused"
	ReasonUnreachable Reason = "unreachable"
)

// Outcome is the result of probing a single address. Exactly one
// Outcome is produced per address per run.
type Outcome struct {
	Addr    netip.Addr
	Hit     bool
	Port    uint16
	Latency time.Duration
	Reason  Reason
}

// DialFunc opens a connection. It matches net.Dialer.DialContext so a
// real dialer drops in directly and tests can substitute their own.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Config holds probe settings shared across all addresses in a run.
type Config struct {
	// Ports to attempt, in order.
	Ports []uint16

	// Timeout is the total budget per address, split evenly
	// across the ports.
	Timeout time.Duration

	// Simulate replaces real connections with randomized
	// outcomes for exercising the orchestration path.
	Simulate bool

	// Dial overrides the connection function. Nil means a
	// standard TCP dialer.
	Dial DialFunc
}

// Prober performs reachability checks against single addresses.
type Prober struct {
	ports    []uint16
	perPort  time.Duration
	simulate bool
	dial     DialFunc
	logger   *logging.Logger
	hitRate  float64
}

// simulated probe timing and hit probability
const (
	simHitRate  = 0.05
	simSleepMin = 10 * time.Millisecond
	simSleepMax = 100 * time.Millisecond
	simLatMin   = 5 * time.Millisecond
	simLatMax   = 50 * time.Millisecond
)

// New creates a Prober from cfg. The per-port timeout is the total
// budget divided by the number of ports.
func New(cfg Config) *Prober {
	perPort := cfg.Timeout
	if n := len(cfg.Ports); n > 1 {
		perPort = cfg.Timeout / time.Duration(n)
	}

	dial := cfg.Dial
	if dial == nil {
		dialer := &net.Dialer{}
		dial = dialer.DialContext
	}

	return &Prober{
		ports:    cfg.Ports,
		perPort:  perPort,
		simulate: cfg.Simulate,
		dial:     dial,
		logger:   logging.Default().WithComponent("probe"),
		hitRate:  simHitRate,
	}
}

// Ports returns the configured port order.
func (p *Prober) Ports() []uint16 { return p.ports }

// PerPortTimeout returns the budget slice given to each port attempt.
func (p *Prober) PerPortTimeout() time.Duration { return p.perPort }

// Check probes one address across the configured ports. The first
// port to complete a handshake wins and short-circuits the rest;
// latency is measured from the start of the whole probe, not the
// winning attempt. When every port fails the reason reflects the
// first failure classification seen, except that an early timeout
// yields to a more specific refusal or unreachable signal observed on
// a later port.
func (p *Prober) Check(ctx context.Context, addr netip.Addr) Outcome {
	if p.simulate {
		return p.simulateCheck(ctx, addr)
	}

	start := time.Now()
	reason := ReasonNone

	for _, port := range p.ports {
		select {
		case <-ctx.Done():
			reason = mergeReason(reason, ReasonTimeout)
			return p.miss(addr, reason, time.Since(start))
		default:
		}

		attemptCtx, cancel := context.WithTimeout(ctx, p.perPort)
		conn, err := p.dial(attemptCtx, "tcp", net.JoinHostPort(addr.String(), strconv.Itoa(int(port))))
		cancel()

		if err == nil {
			_ = conn.Close()
			latency := time.Since(start)
			metrics.IncrementPortsProbed("open")
			metrics.IncrementProbesTotal("hit")
			metrics.IncrementHitsTotal(strconv.Itoa(int(port)))
			metrics.RecordProbeDuration("hit", latency)
			p.logger.Debug("probe hit",
				"target", addr.String(),
				"port", port,
				"latency_ms", latency.Milliseconds())
			return Outcome{Addr: addr, Hit: true, Port: port, Latency: latency}
		}

		portReason := classify(err)
		metrics.IncrementPortsProbed(string(portReason))
		reason = mergeReason(reason, portReason)
	}

	return p.miss(addr, reason, time.Since(start))
}

func (p *Prober) miss(addr netip.Addr, reason Reason, elapsed time.Duration) Outcome {
	if reason == ReasonNone {
		reason = ReasonTimeout
	}
	metrics.IncrementProbesTotal("miss")
	metrics.IncrementProbeErrors(string(reason))
	metrics.RecordProbeDuration("miss", elapsed)
	return Outcome{Addr: addr, Reason: reason}
}

// simulateCheck manufactures an outcome without touching the network.
// It sleeps a short random duration so the orchestration path sees
// realistic scheduling, then reports a hit with small probability.
func (p *Prober) simulateCheck(ctx context.Context, addr netip.Addr) Outcome {
	sleep := simSleepMin + time.Duration(rand.Int63n(int64(simSleepMax-simSleepMin)))
	timer := time.NewTimer(sleep)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return p.miss(addr, ReasonTimeout, 0)
	case <-timer.C:
	}

	if rand.Float64() < p.hitRate {
		port := p.ports[rand.Intn(len(p.ports))]
		latency := simLatMin + time.Duration(rand.Int63n(int64(simLatMax-simLatMin)))
		metrics.IncrementProbesTotal("hit")
		metrics.IncrementHitsTotal(strconv.Itoa(int(port)))
		return Outcome{Addr: addr, Hit: true, Port: port, Latency: latency}
	}
	return p.miss(addr, ReasonTimeout, sleep)
}

// mergeReason folds a new failure classification into the reason
// recorded so far. The first category seen wins, except a timeout,
// which a later refusal or unreachable signal may upgrade. A later
// timeout never overwrites anything.
func mergeReason(prev, next Reason) Reason {
	switch {
	case prev == ReasonNone:
		return next
	case prev == ReasonTimeout && next != ReasonTimeout && next != ReasonNone:
		return next
	default:
		return prev
	}
}

// classify maps a dial error to a miss reason. Deadline expiry on
// either the context or the socket is a timeout, an explicit RST on
// connect is a refusal, and anything else counts as unreachable.
func classify(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ReasonRefused
	}
	return ReasonUnreachable
}
