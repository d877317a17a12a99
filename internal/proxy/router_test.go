// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"encoding/json"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_RewriteOutboundAssignsFreshID(t *testing.T) {
	r := NewRouter()
	reply := make(chan []byte, 1)

	rewritten, err := r.RewriteOutbound("client-a", []byte(`{"id":1,"method":"ping"}`), reply)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rewritten, &decoded))
	assert.NotEqual(t, float64(1), decoded["id"])
	assert.Equal(t, "ping", decoded["method"])
	assert.Equal(t, 1, r.PendingCount())
}

func TestRouter_NotificationPassesThroughUnchanged(t *testing.T) {
	r := NewRouter()
	line := []byte(`{"method":"notify","params":{}}`)
	rewritten, err := r.RewriteOutbound("client-a", line, make(chan []byte, 1))
	require.NoError(t, err)
	assert.Equal(t, line, rewritten)
	assert.Equal(t, 0, r.PendingCount())
}

func TestRouter_RewriteInboundRestoresOriginalIDAndRoutesToOwner(t *testing.T) {
	r := NewRouter()
	replyA := make(chan []byte, 1)
	replyB := make(chan []byte, 1)

	rewrittenA, err := r.RewriteOutbound("client-a", []byte(`{"id":1}`), replyA)
	require.NoError(t, err)
	rewrittenB, err := r.RewriteOutbound("client-b", []byte(`{"id":1}`), replyB)
	require.NoError(t, err)

	var decodedA, decodedB map[string]interface{}
	require.NoError(t, json.Unmarshal(rewrittenA, &decodedA))
	require.NoError(t, json.Unmarshal(rewrittenB, &decodedB))
	proxyIDA := decodedA["id"].(string)
	proxyIDB := decodedB["id"].(string)
	require.NotEqual(t, proxyIDA, proxyIDB)

	auxResponseA := []byte(`{"id":"` + proxyIDA + `","ok":true}`)
	rewritten, reply, ok, err := r.RewriteInbound(auxResponseA)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, (chan<- []byte)(replyA), reply)

	var back map[string]interface{}
	require.NoError(t, json.Unmarshal(rewritten, &back))
	assert.Equal(t, float64(1), back["id"])

	assert.Equal(t, 1, r.PendingCount())
}

func TestRouter_LateResponseAfterPurgeIsDropped(t *testing.T) {
	r := NewRouter()
	reply := make(chan []byte, 1)

	rewritten, err := r.RewriteOutbound("client-a", []byte(`{"id":1}`), reply)
	require.NoError(t, err)

	purged := r.PurgeClient("client-a")
	assert.Equal(t, 1, purged)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rewritten, &decoded))
	proxyID := decoded["id"].(string)

	_, _, ok, err := r.RewriteInbound([]byte(`{"id":"` + proxyID + `"}`))
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestRouter_ConcurrentClientsSameClientSideIDAreIsolated is property (P5):
// K clients sending identical client-chosen ids concurrently each get back
// exactly their own response, never another client's.
func TestRouter_ConcurrentClientsSameClientSideIDAreIsolated(t *testing.T) {
	const clients = 8
	r := NewRouter()

	replies := make([]chan []byte, clients)
	proxyIDs := make([]string, clients)

	var wg sync.WaitGroup
	var mu sync.Mutex
	for i := 0; i < clients; i++ {
		i := i
		replies[i] = make(chan []byte, 1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			rewritten, err := r.RewriteOutbound(clientName(i), []byte(`{"id":1}`), replies[i])
			require.NoError(t, err)
			var decoded map[string]interface{}
			require.NoError(t, json.Unmarshal(rewritten, &decoded))
			mu.Lock()
			proxyIDs[i] = decoded["id"].(string)
			mu.Unlock()
		}()
	}
	wg.Wait()

	seen := make(map[string]bool, clients)
	for _, id := range proxyIDs {
		require.False(t, seen[id], "proxy ids must be unique across clients")
		seen[id] = true
	}

	wg = sync.WaitGroup{}
	for i := 0; i < clients; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			auxResponse := []byte(`{"id":"` + proxyIDs[i] + `","client":` + itoa(i) + `}`)
			rewritten, reply, ok, err := r.RewriteInbound(auxResponse)
			require.NoError(t, err)
			require.True(t, ok)
			reply <- rewritten
		}()
	}
	wg.Wait()

	for i := 0; i < clients; i++ {
		select {
		case got := <-replies[i]:
			var decoded map[string]interface{}
			require.NoError(t, json.Unmarshal(got, &decoded))
			assert.Equal(t, float64(1), decoded["id"])
			assert.Equal(t, float64(i), decoded["client"])
		default:
			t.Fatalf("client %d received no response", i)
		}
	}
}

func clientName(i int) string { return "client-" + strconv.Itoa(i) }

func itoa(i int) string { return strconv.Itoa(i) }
