// Package engine drives probes over a materialized address list under
// two independent limits: a token bucket capping probe starts per
// second and a counting permit pool capping concurrent connection
// attempts. Outcomes stream out in completion order.
package engine

import (
	"context"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/pulsenet/pulsenet/internal/logging"
	"github.com/pulsenet/pulsenet/internal/metrics"
	"github.com/pulsenet/pulsenet/internal/probe"
)

// DefaultMaxInFlight bounds how many probe tasks may exist at once at
// the scheduler level. It is deliberately larger than any sensible
// worker count; it only keeps the goroutine population in check over
// large address lists.
const DefaultMaxInFlight = 2048

// Checker is the per-address probe operation the engine drives.
type Checker interface {
	Check(ctx context.Context, addr netip.Addr) probe.Outcome
}

// Config holds engine limits.
type Config struct {
	// Workers is the size of the concurrency permit pool.
	Workers int

	// Rate is the maximum number of probe starts per second.
	Rate int

	// MaxInFlight caps spawned probe tasks. Zero means
	// DefaultMaxInFlight.
	MaxInFlight int
}

// Engine dispatches probes and streams their outcomes.
type Engine struct {
	checker     Checker
	limiter     *rate.Limiter
	permits     *semaphore.Weighted
	maxInFlight int
	inFlight    atomic.Int64
	logger      *logging.Logger
}

// New creates an engine around checker with the given limits.
func New(checker Checker, cfg Config) *Engine {
	maxInFlight := cfg.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}

	return &Engine{
		checker:     checker,
		limiter:     rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Rate),
		permits:     semaphore.NewWeighted(int64(cfg.Workers)),
		maxInFlight: maxInFlight,
		logger:      logging.Default().WithComponent("engine"),
	}
}

// InFlight returns the number of probes currently holding a permit.
func (e *Engine) InFlight() int64 {
	return e.inFlight.Load()
}

// Run probes every address and returns a channel of outcomes in
// completion order. The channel closes once every address has either
// produced an outcome or been abandoned due to context cancellation.
// Each task waits on the rate limiter before taking a permit, so
// slow probes never stall admission of faster ones.
func (e *Engine) Run(ctx context.Context, addrs []netip.Addr) <-chan probe.Outcome {
	results := make(chan probe.Outcome, e.maxInFlight)

	go func() {
		defer close(results)
		start := time.Now()

		e.logger.InfoEngine("run started",
			"addresses", len(addrs),
			"max_in_flight", e.maxInFlight)

		var wg sync.WaitGroup
		fanout := make(chan struct{}, e.maxInFlight)

	dispatch:
		for _, addr := range addrs {
			select {
			case <-ctx.Done():
				break dispatch
			case fanout <- struct{}{}:
			}

			wg.Add(1)
			go func(addr netip.Addr) {
				defer wg.Done()
				defer func() { <-fanout }()
				e.runOne(ctx, addr, results)
			}(addr)
		}

		wg.Wait()
		elapsed := time.Since(start)
		metrics.RecordRunDuration(elapsed)
		e.logger.InfoEngine("run finished",
			"addresses", len(addrs),
			"elapsed", elapsed.Round(time.Millisecond).String())
	}()

	return results
}

// runOne takes a rate token and a permit, probes one address, and
// reports the outcome. Cancellation while waiting on either limit
// abandons the address without emitting anything.
func (e *Engine) runOne(ctx context.Context, addr netip.Addr, results chan<- probe.Outcome) {
	if !e.limiter.Allow() {
		metrics.IncrementRateWaits()
		if err := e.limiter.Wait(ctx); err != nil {
			return
		}
	}

	if err := e.permits.Acquire(ctx, 1); err != nil {
		return
	}
	e.inFlight.Add(1)
	metrics.IncrementDispatched()
	metrics.SetInFlight(int(e.inFlight.Load()))

	outcome := e.checker.Check(ctx, addr)

	e.inFlight.Add(-1)
	metrics.SetInFlight(int(e.inFlight.Load()))
	e.permits.Release(1)

	select {
	case results <- outcome:
	case <-ctx.Done():
	}
}
