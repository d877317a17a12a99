// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// frame is the subset of a proxy protocol line this package inspects: a
// top-level "id" field, left untouched otherwise. Frames without an id are
// notifications and are forwarded untouched.
type frame struct {
	ID json.RawMessage `json:"id,omitempty"`
}

// pendingRequest is what the router remembers between rewriting a
// client's outbound id and seeing the auxiliary's matching response.
type pendingRequest struct {
	clientID  string
	originalID json.RawMessage
	replyTo   chan<- []byte
}

// Router rewrites the "id" field of every client request to a
// collision-free proxy id before forwarding it to the auxiliary, and
// rewrites it back on the matching response. It is the single piece of
// shared mutable state inside a Proxy.
type Router struct {
	mu      sync.Mutex
	pending map[string]pendingRequest // proxy_id -> pending request
	byClient map[string]map[string]struct{} // client_id -> set of proxy_id
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	return &Router{
		pending:  make(map[string]pendingRequest),
		byClient: make(map[string]map[string]struct{}),
	}
}

// RewriteOutbound parses line as a protocol frame. If it carries an id,
// RewriteOutbound allocates a fresh proxy id, records the mapping back to
// clientID/reply, and returns the line with its id field replaced. Frames
// without an id are returned unchanged (the caller forwards them as-is).
func (r *Router) RewriteOutbound(clientID string, line []byte, reply chan<- []byte) ([]byte, error) {
	var f frame
	if err := json.Unmarshal(line, &f); err != nil {
		return nil, fmt.Errorf("decode client frame: %w", err)
	}
	if len(f.ID) == 0 || bytes.Equal(f.ID, []byte("null")) {
		return line, nil
	}

	proxyID := uuid.NewString()

	r.mu.Lock()
	r.pending[proxyID] = pendingRequest{clientID: clientID, originalID: f.ID, replyTo: reply}
	set, ok := r.byClient[clientID]
	if !ok {
		set = make(map[string]struct{})
		r.byClient[clientID] = set
	}
	set[proxyID] = struct{}{}
	r.mu.Unlock()

	return replaceID(line, proxyID)
}

// RewriteInbound parses an auxiliary response line. If it carries an id
// matching a pending request, it rewrites the id back to the client's
// original value, returns the rewritten line and the reply channel to
// deliver it on, and removes the mapping. If the id is unknown (a late
// response after client disconnect, or a notification) ok is false and
// the caller should drop it (notifications: broadcast instead, per
// protocol convention, handled by the caller).
func (r *Router) RewriteInbound(line []byte) (rewritten []byte, reply chan<- []byte, ok bool, err error) {
	var f frame
	if err := json.Unmarshal(line, &f); err != nil {
		return nil, nil, false, fmt.Errorf("decode auxiliary frame: %w", err)
	}
	if len(f.ID) == 0 || bytes.Equal(f.ID, []byte("null")) {
		return line, nil, false, nil
	}

	var proxyID string
	if err := json.Unmarshal(f.ID, &proxyID); err != nil {
		return nil, nil, false, nil
	}

	r.mu.Lock()
	pr, found := r.pending[proxyID]
	if found {
		delete(r.pending, proxyID)
		if set, ok := r.byClient[pr.clientID]; ok {
			delete(set, proxyID)
			if len(set) == 0 {
				delete(r.byClient, pr.clientID)
			}
		}
	}
	r.mu.Unlock()

	if !found {
		return nil, nil, false, nil
	}

	rewritten, err = replaceID(line, pr.originalID)
	if err != nil {
		return nil, nil, false, err
	}
	return rewritten, pr.replyTo, true, nil
}

// PurgeClient drops every pending mapping belonging to clientID. Called on
// client disconnect so late auxiliary responses for that client are
// dropped rather than delivered to a closed connection.
func (r *Router) PurgeClient(clientID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.byClient[clientID]
	if !ok {
		return 0
	}
	for proxyID := range set {
		delete(r.pending, proxyID)
	}
	delete(r.byClient, clientID)
	return len(set)
}

// PendingCount reports the number of in-flight proxy ids, for tests and
// metrics.
func (r *Router) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func replaceID(line []byte, rawID interface{}) ([]byte, error) {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(line, &generic); err != nil {
		return nil, fmt.Errorf("decode frame for id replacement: %w", err)
	}
	idBytes, ok := rawID.(json.RawMessage)
	if !ok {
		encoded, err := json.Marshal(rawID)
		if err != nil {
			return nil, fmt.Errorf("encode replacement id: %w", err)
		}
		idBytes = encoded
	}
	generic["id"] = idBytes
	return json.Marshal(generic)
}
