// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"
)

// Config configures one named Proxy.
type Config struct {
	Name        string
	Command     []string
	WorkDir     string
	Env         map[string]string
	SocketPath  string
	IdleTimeout time.Duration
	Restart     RestartPolicy
	Breaker     BreakerConfig
}

// Proxy ties a supervised auxiliary process to a local Unix socket that
// many clients can connect to concurrently, multiplexing their requests
// through the auxiliary's single stdio-based JSON protocol.
type Proxy struct {
	cfg        Config
	supervisor *ProcessSupervisor
	router     *Router
	breaker    *Breaker
	metrics    *ProxyMetrics

	listener net.Listener

	mu      sync.Mutex
	clients map[string]*client
	healthy bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a Proxy for cfg, not yet started.
func New(cfg Config) *Proxy {
	metrics := &ProxyMetrics{}
	breakerCfg := cfg.Breaker
	p := &Proxy{
		cfg:        cfg,
		supervisor: NewProcessSupervisor(cfg.Name, cfg.Command, cfg.WorkDir, cfg.Env, cfg.Restart),
		router:     NewRouter(),
		breaker:    NewBreaker(breakerCfg, metrics),
		metrics:    metrics,
		clients:    make(map[string]*client),
	}
	p.supervisor.OnExit(p.handleAuxExit)
	return p
}

// Start spawns the auxiliary process, begins forwarding its stdout, and
// opens the Unix socket listener clients connect to.
func (p *Proxy) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	if err := p.supervisor.Start(runCtx); err != nil {
		cancel()
		return err
	}
	p.setHealthy(true)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.pumpAuxOutput(runCtx)
	}()

	_ = os.Remove(p.cfg.SocketPath)
	ln, err := net.Listen("unix", p.cfg.SocketPath)
	if err != nil {
		cancel()
		return fmt.Errorf("proxy %q: listen on %s: %w", p.cfg.Name, p.cfg.SocketPath, err)
	}
	p.listener = ln

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.acceptLoop(runCtx)
	}()

	return nil
}

// Stop cancels all tasks, closes the socket, and stops the auxiliary
// process (TERM then KILL after a grace period).
func (p *Proxy) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	if p.listener != nil {
		_ = p.listener.Close()
	}
	p.mu.Lock()
	for _, c := range p.clients {
		_ = c.conn.Close()
	}
	p.clients = make(map[string]*client)
	p.mu.Unlock()

	p.wg.Wait()
	return p.supervisor.Stop(ctx)
}

// Metrics returns the proxy's atomic counters.
func (p *Proxy) Metrics() *ProxyMetrics { return p.metrics }

// BreakerState reports the circuit breaker's current state.
func (p *Proxy) BreakerState() BreakerState { return p.breaker.State() }

// Healthy reports whether the proxy is usable: it was marked healthy when
// the auxiliary started, has not since been marked unhealthy by an
// auxiliary exit, and the supervisor reports the process alive. No
// heartbeat is exchanged with the auxiliary.
func (p *Proxy) Healthy() bool {
	p.mu.Lock()
	healthy := p.healthy
	p.mu.Unlock()
	return healthy && p.supervisor.Alive()
}

func (p *Proxy) setHealthy(v bool) {
	p.mu.Lock()
	p.healthy = v
	p.mu.Unlock()
}

func (p *Proxy) acceptLoop(ctx context.Context) {
	for {
		conn, err := p.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				log.Printf("proxy %q: accept: %v", p.cfg.Name, err)
				return
			}
		}

		c := newClient(conn, p.cfg.IdleTimeout, p.forwardToAuxiliary, p.removeClient)
		p.mu.Lock()
		p.clients[c.id] = c
		p.mu.Unlock()

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			if err := c.run(ctx, p.router); err != nil && ctx.Err() == nil {
				log.Printf("proxy %q: client %s disconnected: %v", p.cfg.Name, c.id, err)
			}
		}()
	}
}

func (p *Proxy) removeClient(id string) {
	p.mu.Lock()
	delete(p.clients, id)
	p.mu.Unlock()
}

// forwardToAuxiliary admits a rewritten client request through the
// breaker and writes it to the auxiliary's stdin.
func (p *Proxy) forwardToAuxiliary(line []byte) error {
	now := time.Now()
	if err := p.breaker.Admit(now); err != nil {
		return err
	}

	stdin := p.supervisor.Stdin()
	if stdin == nil {
		p.breaker.Release(now, true)
		return fmt.Errorf("proxy %q: auxiliary not running", p.cfg.Name)
	}

	_, err := stdin.Write(append(line, '\n'))
	p.breaker.Release(time.Now(), err != nil)
	return err
}

// pumpAuxOutput reads line-delimited JSON from the auxiliary's stdout,
// rewrites response ids back to their originating client, and delivers
// them. Frames without a known pending id are either dropped (late
// response) or, if they carry no id at all, broadcast to every connected
// client as a notification.
func (p *Proxy) pumpAuxOutput(ctx context.Context) {
	stdout := p.supervisor.Stdout()
	for stdout == nil {
		select {
		case <-ctx.Done():
			return
		case <-time.After(50 * time.Millisecond):
			stdout = p.supervisor.Stdout()
		}
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		rewritten, reply, ok, err := p.router.RewriteInbound(line)
		if err != nil {
			log.Printf("proxy %q: malformed auxiliary frame: %v", p.cfg.Name, err)
			continue
		}
		if !ok {
			if rewritten != nil {
				p.broadcast(rewritten)
			}
			continue
		}
		reply <- rewritten
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		log.Printf("proxy %q: auxiliary stdout read error: %v", p.cfg.Name, err)
	}
}

func (p *Proxy) broadcast(line []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.clients {
		c.deliver(line)
	}
}

// handleAuxExit is the process supervisor's exit callback for exits not
// requested through Stop: it marks the proxy unhealthy and trips the
// breaker open, and on a crash, budget permitting, schedules a restart.
func (p *Proxy) handleAuxExit(exitCode int, crashed bool) {
	p.setHealthy(false)
	p.breaker.mu.Lock()
	p.breaker.trip(time.Now())
	p.breaker.mu.Unlock()
	if !crashed {
		return
	}

	ok, delay := p.supervisor.ShouldRestart(time.Now())
	if !ok {
		log.Printf("proxy %q: auxiliary poisoned after repeated crashes (exit %d)", p.cfg.Name, exitCode)
		return
	}

	log.Printf("proxy %q: auxiliary crashed (exit %d), restarting in %s", p.cfg.Name, exitCode, delay)
	time.AfterFunc(delay, func() {
		if p.cancel == nil {
			return
		}
		ctx := context.Background()
		if err := p.supervisor.Start(ctx); err != nil {
			log.Printf("proxy %q: restart failed: %v", p.cfg.Name, err)
			return
		}
		p.setHealthy(true)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.pumpAuxOutput(ctx)
		}()
	})
}
