// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"sync"
	"time"
)

// BreakerState is one of the three circuit-breaker states.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrOverloaded is returned when a proxy's in-flight request count is at
// its configured limit and the request is rejected outright rather than
// queued.
type ErrOverloaded struct{}

func (ErrOverloaded) Error() string { return "proxy overloaded: too many in-flight requests" }

// ErrCircuitOpen is returned when the circuit breaker is open and a
// request is short-circuited without reaching the auxiliary process.
type ErrCircuitOpen struct{}

func (ErrCircuitOpen) Error() string { return "circuit breaker open" }

// outcome is one entry in the breaker's rolling window.
type outcome struct {
	at    time.Time
	isErr bool
}

// Breaker combines backpressure (a bounded in-flight counter) with a
// rolling-window circuit breaker. A single probe is allowed through while
// half-open; its outcome decides whether the breaker closes or reopens.
type Breaker struct {
	mu sync.Mutex

	maxInFlight int
	inFlight    int

	window     time.Duration
	threshold  float64
	cooldown   time.Duration
	history    []outcome
	state      BreakerState
	openedAt   time.Time
	probeInUse bool

	metrics *ProxyMetrics
}

// BreakerConfig configures a Breaker. Window is the rolling lookback
// period used to compute the error ratio; Threshold is the error ratio
// (0..1) that trips Closed to Open; Cooldown is how long the breaker stays
// Open before allowing a single HalfOpen probe.
type BreakerConfig struct {
	MaxInFlight int
	Window      time.Duration
	Threshold   float64
	Cooldown    time.Duration
}

// NewBreaker returns a Breaker in the Closed state.
func NewBreaker(cfg BreakerConfig, metrics *ProxyMetrics) *Breaker {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 32
	}
	if cfg.Window <= 0 {
		cfg.Window = 30 * time.Second
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 10 * time.Second
	}
	return &Breaker{
		maxInFlight: cfg.MaxInFlight,
		window:      cfg.Window,
		threshold:   cfg.Threshold,
		cooldown:    cfg.Cooldown,
		state:       BreakerClosed,
		metrics:     metrics,
	}
}

// Admit decides whether a new request may proceed. On success the caller
// must eventually call Release, passing whether the request failed, to
// release the in-flight slot and record the outcome.
func (b *Breaker) Admit(now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if now.Sub(b.openedAt) < b.cooldown {
			return ErrCircuitOpen{}
		}
		b.state = BreakerHalfOpen
		b.probeInUse = false
		fallthrough
	case BreakerHalfOpen:
		if b.probeInUse {
			return ErrCircuitOpen{}
		}
		b.probeInUse = true
	}

	if b.inFlight >= b.maxInFlight {
		if b.state == BreakerHalfOpen {
			b.probeInUse = false
		}
		return ErrOverloaded{}
	}
	b.inFlight++
	if b.metrics != nil {
		b.metrics.RequestStarted()
	}
	return nil
}

// Release records a completed request's outcome and releases its
// in-flight slot.
func (b *Breaker) Release(now time.Time, isErr bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.inFlight--
	if b.metrics != nil {
		if isErr {
			b.metrics.RequestError()
		} else {
			b.metrics.RequestCompleted()
		}
	}

	wasProbe := b.state == BreakerHalfOpen
	if wasProbe {
		b.probeInUse = false
		if isErr {
			b.trip(now)
			return
		}
		b.state = BreakerClosed
		b.history = nil
		return
	}

	b.history = append(b.history, outcome{at: now, isErr: isErr})
	b.history = pruneOutcomes(b.history, now, b.window)

	if b.state == BreakerClosed && errorRatio(b.history) >= b.threshold && len(b.history) > 0 {
		b.trip(now)
	}
}

func (b *Breaker) trip(now time.Time) {
	b.state = BreakerOpen
	b.openedAt = now
	b.history = nil
	if b.metrics != nil {
		b.metrics.CircuitBreakerTripped()
	}
}

// State reports the breaker's current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func pruneOutcomes(history []outcome, now time.Time, window time.Duration) []outcome {
	cutoff := now.Add(-window)
	kept := history[:0]
	for _, o := range history {
		if o.at.After(cutoff) {
			kept = append(kept, o)
		}
	}
	return kept
}

func errorRatio(history []outcome) float64 {
	if len(history) == 0 {
		return 0
	}
	errs := 0
	for _, o := range history {
		if o.isErr {
			errs++
		}
	}
	return float64(errs) / float64(len(history))
}
