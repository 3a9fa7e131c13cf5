// Package report accumulates probe outcomes into run statistics and
// fans hits out to the configured sinks and the UI.
package report

import (
	"net/netip"
	"time"

	"github.com/pulsenet/pulsenet/internal/logging"
	"github.com/pulsenet/pulsenet/internal/probe"
)

// RunStats accumulates counters over one run. It is owned by the
// single Aggregator consuming the outcome stream, so no locking is
// needed.
type RunStats struct {
	Total       uint64
	Hits        uint64
	Timeouts    uint64
	Refused     uint64
	Unreachable uint64

	// TotalLatency sums hit latencies only.
	TotalLatency time.Duration
}

// MeanLatency returns the average hit latency, or zero when there
// were no hits.
func (s *RunStats) MeanLatency() time.Duration {
	if s.Hits == 0 {
		return 0
	}
	return s.TotalLatency / time.Duration(s.Hits)
}

// Misses returns the total miss count across all reasons.
func (s *RunStats) Misses() uint64 {
	return s.Timeouts + s.Refused + s.Unreachable
}

// HitEvent is the structured record of one reachable host, forwarded
// to sinks and the UI.
type HitEvent struct {
	Timestamp time.Time
	Addr      netip.Addr
	Port      uint16
	Latency   time.Duration
}

// Sink receives hit events for persistence.
type Sink interface {
	WriteHit(event HitEvent) error
	Close() error
}

// UI receives live hit events and the final stats snapshot. Misses
// are counted but never displayed.
type UI interface {
	Hit(event HitEvent)
	Summary(stats RunStats, elapsed time.Duration)
}

// Aggregator is the single consumer of the outcome stream.
type Aggregator struct {
	sinks  []Sink
	ui     UI
	stats  RunStats
	logger *logging.Logger
}

// NewAggregator creates an aggregator forwarding hits to ui and every
// sink. A nil ui disables UI forwarding.
func NewAggregator(ui UI, sinks ...Sink) *Aggregator {
	return &Aggregator{
		sinks:  sinks,
		ui:     ui,
		logger: logging.Default().WithComponent("report"),
	}
}

// Consume drains the outcome stream, updating counters and forwarding
// hits. It returns the final stats once the stream closes. Every
// outcome is counted exactly once; sink write failures are logged but
// never drop the count.
func (a *Aggregator) Consume(results <-chan probe.Outcome) RunStats {
	for outcome := range results {
		a.stats.Total++

		if outcome.Hit {
			a.stats.Hits++
			a.stats.TotalLatency += outcome.Latency

			event := HitEvent{
				Timestamp: time.Now(),
				Addr:      outcome.Addr,
				Port:      outcome.Port,
				Latency:   outcome.Latency,
			}
			for _, sink := range a.sinks {
				if err := sink.WriteHit(event); err != nil {
					a.logger.ErrorSink("failed to record hit", err,
						"target", outcome.Addr.String())
				}
			}
			if a.ui != nil {
				a.ui.Hit(event)
			}
			continue
		}

		switch outcome.Reason {
		case probe.ReasonRefused:
			a.stats.Refused++
		case probe.ReasonUnreachable:
			a.stats.Unreachable++
		default:
			a.stats.Timeouts++
		}
	}

	return a.stats
}

// Stats returns the current snapshot. Only meaningful once Consume
// has returned.
func (a *Aggregator) Stats() RunStats {
	return a.stats
}
