// ABOUTME: Client-local single-slot playback state machine
// ABOUTME: Executes play/stop commands with replace-on-play semantics
package playback

import (
	"fmt"
	"log"
	"sync"
)

// State of the playback slot
type State int

const (
	StateIdle State = iota
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// Handle is an active playback resource. Stop is idempotent and
// releases the resource; Done is closed when playback ends for any
// reason, natural completion included.
type Handle interface {
	Stop()
	Done() <-chan struct{}
}

// Acquirer creates playback resources from asset locations. Acquiring
// may fail (bad location, decode error, device denied); the controller
// treats that as a local, non-fatal condition.
type Acquirer interface {
	Acquire(location string, volume float64) (Handle, error)
}

// Controller holds at most one active playback handle. A new play
// replaces the slot, never queues; stop on an idle slot is a no-op.
type Controller struct {
	acquirer Acquirer

	mu         sync.Mutex
	state      State
	handle     Handle
	generation int
}

// NewController creates an idle controller over the given acquirer
func NewController(acquirer Acquirer) *Controller {
	return &Controller{acquirer: acquirer}
}

// State returns the current slot state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Play acquires a new resource and starts it, interrupting and
// releasing any resource already in the slot. On acquisition failure
// the slot is left idle and the error is returned for local reporting
// only; it never travels back to the commanding process.
func (c *Controller) Play(location string, volume float64) error {
	c.mu.Lock()
	prev := c.handle
	c.handle = nil
	c.state = StateIdle
	c.generation++
	c.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}

	handle, err := c.acquirer.Acquire(location, volume)
	if err != nil {
		return fmt.Errorf("failed to acquire playback resource: %w", err)
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.handle = handle
	c.state = StatePlaying
	c.mu.Unlock()

	go c.watch(handle, gen)
	return nil
}

// Stop releases the active resource if any. Returns true when
// something was actually playing, so callers can decide whether the
// stop deserves a notification.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	prev := c.handle
	c.handle = nil
	c.state = StateIdle
	c.generation++
	c.mu.Unlock()

	if prev == nil {
		return false
	}
	prev.Stop()
	return true
}

// watch returns the slot to idle on natural completion. A stale
// handle that finishes after being replaced must not disturb the slot.
func (c *Controller) watch(handle Handle, gen int) {
	<-handle.Done()

	c.mu.Lock()
	if c.generation == gen {
		c.handle = nil
		c.state = StateIdle
		log.Printf("Playback finished, slot idle")
	}
	c.mu.Unlock()
}
