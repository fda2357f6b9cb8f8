// ABOUTME: In-process broadcast transport for tests and local wiring
// ABOUTME: Self-delivering bus mirroring the hub relay semantics
package dispatch

import "sync"

// MemoryBus is an in-process broadcast transport. Every endpoint's
// broadcast is delivered synchronously to every endpoint on the bus,
// the sender included, matching the hub's relay semantics.
type MemoryBus struct {
	mu        sync.Mutex
	endpoints []*MemoryEndpoint
}

// NewMemoryBus creates an empty bus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Endpoint attaches a new transport endpoint for the given participant
func (b *MemoryBus) Endpoint(participantID string) *MemoryEndpoint {
	b.mu.Lock()
	defer b.mu.Unlock()

	ep := &MemoryEndpoint{bus: b, id: participantID}
	b.endpoints = append(b.endpoints, ep)
	return ep
}

func (b *MemoryBus) deliver(origin, channel string, payload []byte) {
	b.mu.Lock()
	endpoints := make([]*MemoryEndpoint, len(b.endpoints))
	copy(endpoints, b.endpoints)
	b.mu.Unlock()

	for _, ep := range endpoints {
		ep.receive(origin, channel, payload)
	}
}

// MemoryEndpoint is one participant's view of the bus
type MemoryEndpoint struct {
	bus *MemoryBus
	id  string

	mu       sync.Mutex
	handlers map[string][]func(origin string, payload []byte)
}

// Broadcast sends the payload to every endpoint on the bus
func (e *MemoryEndpoint) Broadcast(channel string, payload []byte) error {
	e.bus.deliver(e.id, channel, payload)
	return nil
}

// Subscribe registers a handler for the named channel
func (e *MemoryEndpoint) Subscribe(channel string, handler func(origin string, payload []byte)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handlers == nil {
		e.handlers = make(map[string][]func(origin string, payload []byte))
	}
	e.handlers[channel] = append(e.handlers[channel], handler)
}

func (e *MemoryEndpoint) receive(origin, channel string, payload []byte) {
	e.mu.Lock()
	handlers := append([]func(origin string, payload []byte){}, e.handlers[channel]...)
	e.mu.Unlock()

	for _, h := range handlers {
		h(origin, payload)
	}
}
