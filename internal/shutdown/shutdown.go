package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmmcquay/othello-dataset/internal/logging"
)

// DefaultTimeout bounds a signal-triggered shutdown.
const DefaultTimeout = 10 * time.Second

type component struct {
	name string
	fn   func(context.Context) error
}

// Manager runs cleanup functions once, in reverse order of registration.
type Manager struct {
	logger       logging.ContextLogger
	components   []component
	mu           sync.Mutex
	done         chan struct{}
	shutdownOnce sync.Once
	err          error
}

// NewManager creates a new shutdown manager.
func NewManager(logger logging.ContextLogger) *Manager {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Manager{
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Register adds a cleanup function. Functions are called in reverse order of
// registration (LIFO), one at a time.
func (m *Manager) Register(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component{name: name, fn: fn})
}

// HandleSignals cancels the caller's context and shuts down on SIGINT or
// SIGTERM. The returned function stops listening.
func (m *Manager) HandleSignals(cancel context.CancelFunc) (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	quit := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			m.logger.Info("Received shutdown signal", "signal", sig.String())
			if cancel != nil {
				cancel()
			}
			_ = m.Shutdown(DefaultTimeout)
		case <-quit:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(quit)
		})
	}
}

// Shutdown runs every registered function with a context bounded by timeout.
// Only the first call does any work; later calls return the same error.
func (m *Manager) Shutdown(timeout time.Duration) error {
	m.shutdownOnce.Do(func() {
		defer close(m.done)

		m.mu.Lock()
		components := make([]component, len(m.components))
		copy(components, m.components)
		m.mu.Unlock()

		m.logger.Info("Starting shutdown", "components", len(components), "timeout", timeout)
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var errs []error
		for i := len(components) - 1; i >= 0; i-- {
			c := components[i]
			start := time.Now()
			if err := c.fn(ctx); err != nil {
				m.logger.Error("Failed to shutdown component",
					"component", c.name,
					"error", err,
					"elapsed", time.Since(start))
				errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
				continue
			}
			m.logger.Debug("Component shutdown complete",
				"component", c.name,
				"elapsed", time.Since(start))
		}

		m.err = errors.Join(errs...)
		if m.err != nil {
			m.logger.Error("Shutdown completed with errors", "errors", len(errs))
		} else {
			m.logger.Info("Shutdown completed")
		}
	})
	<-m.done
	return m.err
}

// Done returns a channel that's closed when shutdown is complete.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}
