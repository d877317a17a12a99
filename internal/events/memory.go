// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrBusClosed is returned when operating on a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// ErrSubscriptionNotFound is returned when unsubscribing with invalid ID.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// MemoryBusConfig configures the memory event bus.
type MemoryBusConfig struct {
	HistoryMaxEvents int
	HistoryMaxAge    time.Duration
}

// MemoryEventBus fans published events out to topic-pattern subscribers
// and records them in a bounded history ring. Delivery order to a single
// subscriber matches publication order; subscribers never observe an
// event published after the bus closed.
type MemoryEventBus struct {
	mu           sync.Mutex
	subscribers  []*subscriber
	history      *EventHistory
	nextSubID    uint64
	defaultScope string
	closed       bool
	wg           sync.WaitGroup
}

// subscriber is one registration: a topic pattern plus a delivery
// strategy. Synchronous subscribers run inline on the publisher's
// goroutine; asynchronous ones own a buffered queue drained by a
// goroutine created in SubscribeAsync.
type subscriber struct {
	id      SubscriptionID
	pattern string
	deliver func(Event)
	stop    func() // nil for synchronous subscribers
}

// NewMemoryEventBus creates a new in-memory event bus.
func NewMemoryEventBus(cfg MemoryBusConfig) *MemoryEventBus {
	return &MemoryEventBus{
		history: NewEventHistory(EventHistoryConfig{
			MaxEvents: cfg.HistoryMaxEvents,
			MaxAge:    cfg.HistoryMaxAge,
		}),
	}
}

// SetDefaultScope sets the scope label stamped onto events published
// without one, typically the active workspace's name.
func (bus *MemoryEventBus) SetDefaultScope(scope string) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.defaultScope = scope
}

// Publish stamps the event's identity fields, records it in history, and
// delivers it to every subscriber whose pattern matches its type.
func (bus *MemoryEventBus) Publish(ctx context.Context, event Event) error {
	bus.mu.Lock()
	if bus.closed {
		bus.mu.Unlock()
		return ErrBusClosed
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Version == "" {
		event.Version = "1.0"
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Scope == "" {
		event.Scope = bus.defaultScope
	}
	matched := make([]*subscriber, 0, len(bus.subscribers))
	for _, s := range bus.subscribers {
		if matchTopic(s.pattern, event.Type) {
			matched = append(matched, s)
		}
	}
	bus.mu.Unlock()

	bus.history.Add(event)
	for _, s := range matched {
		s.deliver(event)
	}
	return nil
}

// Subscribe registers a synchronous handler for events matching pattern.
// The handler runs on the publisher's goroutine; a panic inside it is
// contained and logged rather than unwinding the publisher.
func (bus *MemoryEventBus) Subscribe(pattern string, handler EventHandler) (SubscriptionID, error) {
	return bus.add(pattern, func(event Event) {
		invoke(handler, event)
	}, nil)
}

// SubscribeAsync registers a handler fed from a buffered queue drained by
// its own goroutine. When the queue is full the newest event is dropped
// with a log line, so a stalled subscriber can never block a publisher.
func (bus *MemoryEventBus) SubscribeAsync(pattern string, handler EventHandler, bufferSize int) (SubscriptionID, error) {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	queue := make(chan Event, bufferSize)
	done := make(chan struct{})

	bus.wg.Add(1)
	go func() {
		defer bus.wg.Done()
		for {
			select {
			case <-done:
				return
			case event := <-queue:
				invoke(handler, event)
			}
		}
	}()

	var stopOnce sync.Once
	stop := func() {
		stopOnce.Do(func() { close(done) })
	}

	id, err := bus.add(pattern, func(event Event) {
		select {
		case queue <- event:
		default:
			log.Printf("events: dropped %s - async subscriber queue full", event.Type)
		}
	}, stop)
	if err != nil {
		stop()
		return "", err
	}
	return id, nil
}

func (bus *MemoryEventBus) add(pattern string, deliver func(Event), stop func()) (SubscriptionID, error) {
	if pattern == "" {
		return "", errors.New("empty subscription pattern")
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if bus.closed {
		return "", ErrBusClosed
	}
	bus.nextSubID++
	id := SubscriptionID(fmt.Sprintf("sub-%d", bus.nextSubID))
	bus.subscribers = append(bus.subscribers, &subscriber{
		id:      id,
		pattern: pattern,
		deliver: deliver,
		stop:    stop,
	})
	return id, nil
}

// Unsubscribe removes a subscription and stops its delivery goroutine,
// if it has one.
func (bus *MemoryEventBus) Unsubscribe(id SubscriptionID) error {
	bus.mu.Lock()
	var removed *subscriber
	for i, s := range bus.subscribers {
		if s.id == id {
			removed = s
			bus.subscribers = append(bus.subscribers[:i], bus.subscribers[i+1:]...)
			break
		}
	}
	bus.mu.Unlock()

	if removed == nil {
		return ErrSubscriptionNotFound
	}
	if removed.stop != nil {
		removed.stop()
	}
	return nil
}

// History retrieves past events matching filter.
func (bus *MemoryEventBus) History(filter EventFilter) ([]Event, error) {
	return bus.history.Query(filter)
}

// Close shuts down the event bus: subsequent publishes and subscribes
// fail with ErrBusClosed, async delivery goroutines are stopped and
// waited for, and the history is released.
func (bus *MemoryEventBus) Close() error {
	bus.mu.Lock()
	if bus.closed {
		bus.mu.Unlock()
		return nil
	}
	bus.closed = true
	subs := bus.subscribers
	bus.subscribers = nil
	bus.mu.Unlock()

	for _, s := range subs {
		if s.stop != nil {
			s.stop()
		}
	}
	bus.wg.Wait()
	return bus.history.Close()
}

// invoke runs handler with panic containment: one misbehaving subscriber
// must not take down the publisher or a delivery goroutine.
func invoke(handler EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("events: handler panic for %s: %v", event.Type, r)
		}
	}()
	handler(context.Background(), event)
}
