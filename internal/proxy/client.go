// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultIdleTimeout disconnects a client that sends nothing for this
// long.
const DefaultIdleTimeout = 5 * time.Minute

// client is one connected client's task set: a reader (client -> router
// -> auxiliary) and a writer (auxiliary -> router -> client), torn down
// together on any error or idle timeout.
type client struct {
	id      string
	conn    net.Conn
	reply   chan []byte
	idle    time.Duration
	onAux   func(line []byte) error // forward a rewritten request line to the auxiliary
	onClose func(clientID string)
}

func newClient(conn net.Conn, idle time.Duration, onAux func([]byte) error, onClose func(string)) *client {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &client{
		id:      uuid.NewString(),
		conn:    conn,
		reply:   make(chan []byte, 64),
		idle:    idle,
		onAux:   onAux,
		onClose: onClose,
	}
}

// run drives the client's reader and writer tasks until either ends or
// ctx is cancelled, then closes the connection and reports the client's
// departure via onClose.
func (c *client) run(ctx context.Context, router *Router) error {
	defer c.onClose(c.id)
	defer c.conn.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return c.readLoop(gctx, router) })
	g.Go(func() error { return c.writeLoop(gctx) })

	err := g.Wait()
	purged := router.PurgeClient(c.id)
	if purged > 0 {
		log.Printf("proxy: purged %d pending request(s) for disconnected client %s", purged, c.id)
	}
	return err
}

func (c *client) readLoop(ctx context.Context, router *Router) error {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	for {
		if deadline, ok := ctx.Deadline(); ok {
			_ = c.conn.SetReadDeadline(deadline)
		} else {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.idle))
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("client %s read: %w", c.id, err)
			}
			return nil // EOF: clean disconnect
		}

		line := append([]byte(nil), scanner.Bytes()...)
		rewritten, err := router.RewriteOutbound(c.id, line, c.reply)
		if err != nil {
			log.Printf("proxy: client %s sent malformed frame: %v", c.id, err)
			continue
		}
		if err := c.onAux(rewritten); err != nil {
			return fmt.Errorf("forward to auxiliary: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

func (c *client) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-c.reply:
			if !ok {
				return nil
			}
			if _, err := c.conn.Write(append(line, '\n')); err != nil {
				return fmt.Errorf("client %s write: %w", c.id, err)
			}
		}
	}
}

// deliver enqueues a line for the client's writer task. Non-blocking: when
// the client's reply channel is full the line is dropped rather than
// stalling the whole proxy; the client stays connected.
func (c *client) deliver(line []byte) {
	select {
	case c.reply <- line:
	default:
		log.Printf("proxy: client %s reply buffer full, dropping response", c.id)
	}
}
