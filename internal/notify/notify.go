// ABOUTME: User-visible notification collaborator
// ABOUTME: Non-blocking info/warn/error feedback for non-fatal conditions
package notify

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Notifier delivers non-blocking, user-visible feedback. Every
// non-fatal condition in the dispatch subsystem ends up here rather
// than propagating across process boundaries.
type Notifier interface {
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// LogNotifier renders notifications through charmbracelet/log
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier creates a notifier over the given logger. A nil
// logger uses the package default.
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Info(format string, args ...interface{}) {
	n.logger.Info(fmt.Sprintf(format, args...))
}

func (n *LogNotifier) Warn(format string, args ...interface{}) {
	n.logger.Warn(fmt.Sprintf(format, args...))
}

func (n *LogNotifier) Error(format string, args ...interface{}) {
	n.logger.Error(fmt.Sprintf(format, args...))
}

// Memory records notifications for inspection in tests
type Memory struct {
	mu     sync.Mutex
	Infos  []string
	Warns  []string
	Errors []string
}

// NewMemory creates an empty recording notifier
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Info(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Infos = append(m.Infos, fmt.Sprintf(format, args...))
}

func (m *Memory) Warn(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Warns = append(m.Warns, fmt.Sprintf(format, args...))
}

func (m *Memory) Error(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors = append(m.Errors, fmt.Sprintf(format, args...))
}
