// Package shutdown turns SIGINT/SIGTERM into context cancellation and runs
// registered cleanup in order.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"juliaform/core"
)

// Manager owns the process context.
//
//	m := shutdown.NewManager(logger)
//	m.Register("webui", 10, srv.Shutdown)
//	m.Start()
//	<-m.Context().Done()
//	m.Shutdown()
type Manager struct {
	logger   *zap.Logger
	timeout  time.Duration
	registry *Registry
	signals  *SignalCounter
	sigChan  chan os.Signal

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	started  bool
	shutdown bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout bounds the whole cleanup sequence. Default 15s.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// WithForceExit replaces the action taken on a second signal.
func WithForceExit(fn func()) Option {
	return func(m *Manager) { m.signals = NewSignalCounter(2, fn) }
}

func NewManager(logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		logger:   logger.Named("shutdown"),
		timeout:  15 * time.Second,
		registry: NewRegistry(),
		sigChan:  make(chan os.Signal, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
	m.signals = NewSignalCounter(2, func() {
		m.logger.Warn("second signal, exiting immediately")
		os.Exit(core.ExitCodeSIGINT)
	})
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Context is cancelled on the first signal or on Trigger.
func (m *Manager) Context() context.Context { return m.ctx }

// Register adds a cleanup function; see Registry.Register.
func (m *Manager) Register(name string, priority int, fn Func) {
	m.registry.Register(name, priority, fn)
}

// Start listens for SIGINT and SIGTERM. Calling it again is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range m.sigChan {
			m.handleSignal(sig)
		}
	}()
}

func (m *Manager) handleSignal(sig os.Signal) {
	if m.signals.Increment() == 1 {
		m.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		m.cancel()
	}
}

// Trigger cancels the context as if a signal had arrived.
func (m *Manager) Trigger() { m.cancel() }

// Interrupted reports whether shutdown was started by a signal.
func (m *Manager) Interrupted() bool { return m.signals.Count() > 0 }

// Shutdown cancels the context and runs the registered cleanup once.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	started := m.started
	m.mu.Unlock()

	m.cancel()
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.logger.Info("running cleanup", zap.Strings("handlers", m.registry.Names()))
	errs := m.registry.Run(ctx)
	for _, err := range errs {
		m.logger.Error("cleanup failed", zap.Error(err))
	}

	if started {
		signal.Stop(m.sigChan)
		close(m.sigChan)
	}
	m.logger.Info("shutdown complete", zap.Duration("elapsed", time.Since(start)), zap.Int("errors", len(errs)))
	return errors.Join(errs...)
}
