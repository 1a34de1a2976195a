// Package shutdown runs the cleanup hooks of a brandgen process when it is
// asked to stop.
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

	"brandgen/internal/pkg/logger"
)

// Manager handles graceful shutdown of services.
type Manager struct {
	log      *logger.Logger
	timeout  time.Duration
	handlers []Handler
	mu       sync.Mutex
	done     chan struct{}
	once     sync.Once
	err      error
}

// Handler is a function that performs cleanup during shutdown.
type Handler struct {
	Name    string
	Cleanup func(ctx context.Context) error
}

// NewManager creates a new shutdown manager.
func NewManager(log *logger.Logger, timeout time.Duration) *Manager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Manager{
		log:     log.WithComponent("shutdown"),
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// Register adds a cleanup handler. Handlers run in reverse registration order,
// so the HTTP server registered last stops before the stores it uses.
func (m *Manager) Register(name string, cleanup func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, Handler{Name: name, Cleanup: cleanup})
	m.log.Debug("registered shutdown handler", "name", name)
}

// RegisterSimple adds a simple cleanup handler without context.
func (m *Manager) RegisterSimple(name string, cleanup func()) {
	m.Register(name, func(ctx context.Context) error {
		cleanup()
		return nil
	})
}

// Wait blocks until SIGINT or SIGTERM, then runs cleanup.
func (m *Manager) Wait() error {
	return m.WaitWithContext(context.Background())
}

// WaitWithContext blocks until a signal arrives or ctx ends, then runs cleanup.
func (m *Manager) WaitWithContext(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()
	if ctx.Err() != nil {
		m.log.Info("context canceled, initiating shutdown")
	} else {
		m.log.Info("shutdown signal received")
	}
	return m.Shutdown()
}

// Shutdown runs all cleanup handlers once, sequentially and in LIFO order,
// sharing a single deadline. Later calls return the first result.
func (m *Manager) Shutdown() error {
	m.once.Do(func() {
		defer close(m.done)

		m.mu.Lock()
		handlers := make([]Handler, len(m.handlers))
		copy(handlers, m.handlers)
		m.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		m.log.Info("starting graceful shutdown", "handlers", len(handlers), "timeout", m.timeout.String())

		var errs []error
		for i := len(handlers) - 1; i >= 0; i-- {
			h := handlers[i]
			if ctx.Err() != nil {
				m.log.Warn("shutdown timeout exceeded, skipping handler", "name", h.Name)
				errs = append(errs, fmt.Errorf("%s: %w", h.Name, ctx.Err()))
				continue
			}

			start := time.Now()
			if err := runHandler(ctx, h); err != nil {
				m.log.Error("shutdown handler failed",
					"name", h.Name,
					"error", err.Error(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
				errs = append(errs, fmt.Errorf("%s: %w", h.Name, err))
				continue
			}
			m.log.Debug("shutdown handler completed",
				"name", h.Name,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}

		m.err = errors.Join(errs...)
		if m.err == nil {
			m.log.Info("graceful shutdown completed")
		}
	})
	return m.err
}

// runHandler stops waiting on a handler that ignores ctx once the deadline passes.
func runHandler(ctx context.Context, h Handler) error {
	res := make(chan error, 1)
	go func() { res <- h.Cleanup(ctx) }()

	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel that is closed when shutdown is complete.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Context returns a context that is canceled once shutdown completes.
func (m *Manager) Context() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-m.done
		cancel()
	}()
	return ctx
}
