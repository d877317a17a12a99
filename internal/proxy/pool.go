// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"context"
	"fmt"
	"sync"
)

// Pool manages the set of named proxies, one per distinct auxiliary
// command, shared across sibling agent sessions.
type Pool struct {
	mu      sync.Mutex
	proxies map[string]*Proxy
	metrics *PoolMetrics
}

// NewPool returns an empty Pool.
func NewPool() *Pool {
	return &Pool{
		proxies: make(map[string]*Proxy),
		metrics: &PoolMetrics{},
	}
}

// Metrics returns the pool-wide counters.
func (p *Pool) Metrics() *PoolMetrics { return p.metrics }

// Ensure returns the proxy named cfg.Name, starting it if this is the
// first request for that name. Subsequent calls with the same name reuse
// the running proxy regardless of cfg's contents.
func (p *Pool) Ensure(ctx context.Context, cfg Config) (*Proxy, error) {
	p.mu.Lock()
	if existing, ok := p.proxies[cfg.Name]; ok {
		p.mu.Unlock()
		return existing, nil
	}
	p.mu.Unlock()

	proxy := New(cfg)
	if err := proxy.Start(ctx); err != nil {
		return nil, fmt.Errorf("pool: start proxy %q: %w", cfg.Name, err)
	}

	p.mu.Lock()
	p.proxies[cfg.Name] = proxy
	p.metrics.SetActiveProxies(uint32(len(p.proxies)))
	p.mu.Unlock()

	return proxy, nil
}

// Get returns the named proxy, if running.
func (p *Pool) Get(name string) (*Proxy, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	proxy, ok := p.proxies[name]
	return proxy, ok
}

// Remove stops and removes the named proxy. It is a no-op if no such
// proxy is running.
func (p *Pool) Remove(ctx context.Context, name string) error {
	p.mu.Lock()
	proxy, ok := p.proxies[name]
	if ok {
		delete(p.proxies, name)
		p.metrics.SetActiveProxies(uint32(len(p.proxies)))
	}
	p.mu.Unlock()

	if !ok {
		return nil
	}
	return proxy.Stop(ctx)
}

// Names lists the currently running proxies.
func (p *Pool) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.proxies))
	for name := range p.proxies {
		names = append(names, name)
	}
	return names
}

// Shutdown stops every proxy in the pool.
func (p *Pool) Shutdown(ctx context.Context) {
	p.mu.Lock()
	proxies := make([]*Proxy, 0, len(p.proxies))
	for _, proxy := range p.proxies {
		proxies = append(proxies, proxy)
	}
	p.proxies = make(map[string]*Proxy)
	p.mu.Unlock()

	for _, proxy := range proxies {
		_ = proxy.Stop(ctx)
	}
}
