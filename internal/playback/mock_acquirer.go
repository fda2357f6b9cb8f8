// ABOUTME: Mock playback acquirer and handle for tests
// ABOUTME: Tracks acquisition, release, and simulated completion
package playback

import (
	"fmt"
	"sync"
)

// MockAcquirer records acquisitions and hands out controllable handles
type MockAcquirer struct {
	mu      sync.Mutex
	handles []*MockHandle
	failErr error
}

// NewMockAcquirer creates a mock acquirer
func NewMockAcquirer() *MockAcquirer {
	return &MockAcquirer{}
}

// FailWith makes subsequent acquisitions fail with err (nil to clear)
func (m *MockAcquirer) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// Acquire returns a new mock handle, or the configured failure
func (m *MockAcquirer) Acquire(location string, volume float64) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return nil, fmt.Errorf("mock acquire %s: %w", location, m.failErr)
	}

	h := &MockHandle{
		Location: location,
		Volume:   volume,
		done:     make(chan struct{}),
	}
	m.handles = append(m.handles, h)
	return h, nil
}

// Handles returns every handle acquired so far
func (m *MockAcquirer) Handles() []*MockHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*MockHandle, len(m.handles))
	copy(out, m.handles)
	return out
}

// MockHandle is a controllable playback resource
type MockHandle struct {
	Location string
	Volume   float64

	mu      sync.Mutex
	stopped bool
	once    sync.Once
	done    chan struct{}
}

// Stop releases the handle
func (h *MockHandle) Stop() {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
	h.once.Do(func() { close(h.done) })
}

// Done reports completion or release
func (h *MockHandle) Done() <-chan struct{} {
	return h.done
}

// Complete simulates the resource running to natural completion
func (h *MockHandle) Complete() {
	h.once.Do(func() { close(h.done) })
}

// Stopped reports whether Stop was called
func (h *MockHandle) Stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}
