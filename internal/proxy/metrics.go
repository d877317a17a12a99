// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package proxy implements the shared-subprocess proxy pool: one
// supervised auxiliary process (e.g. a Model-Context-Protocol server) is
// reused by many sibling agent sessions through a per-auxiliary local
// socket proxy that rewrites request ids to prevent client collisions.
package proxy

import "sync/atomic"

// PoolMetrics tracks pool-wide counters across every proxy.
type PoolMetrics struct {
	TotalRequests atomic.Uint64
	TotalErrors   atomic.Uint64
	ActiveClients atomic.Uint32
	ActiveProxies atomic.Uint32
}

func (m *PoolMetrics) IncrementRequests() { m.TotalRequests.Add(1) }
func (m *PoolMetrics) IncrementErrors()   { m.TotalErrors.Add(1) }
func (m *PoolMetrics) SetActiveClients(n uint32) { m.ActiveClients.Store(n) }
func (m *PoolMetrics) SetActiveProxies(n uint32) { m.ActiveProxies.Store(n) }

// ProxyMetrics tracks per-proxy counters.
type ProxyMetrics struct {
	RequestsInFlight    atomic.Int32
	RequestsTotal       atomic.Uint64
	ErrorsTotal         atomic.Uint64
	CircuitBreakerTrips atomic.Uint64
}

func (m *ProxyMetrics) RequestStarted() {
	m.RequestsInFlight.Add(1)
	m.RequestsTotal.Add(1)
}

func (m *ProxyMetrics) RequestCompleted() {
	m.RequestsInFlight.Add(-1)
}

func (m *ProxyMetrics) RequestError() {
	m.RequestsInFlight.Add(-1)
	m.ErrorsTotal.Add(1)
}

func (m *ProxyMetrics) CircuitBreakerTripped() {
	m.CircuitBreakerTrips.Add(1)
}
