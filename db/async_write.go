package db

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultQueueSize is the number of renders the Writer buffers.
const DefaultQueueSize = 100

// Writer stores renders from a background goroutine so that request paths
// never wait on the disk.
type Writer struct {
	queue   chan Render
	store   func(context.Context, Render) (int64, error)
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	started bool
	stopped bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewWriter creates a Writer that inserts into d. queueSize below 1 means
// DefaultQueueSize.
func NewWriter(d *Database, queueSize int, logger *zap.Logger) *Writer {
	return newWriter(d.InsertRender, queueSize, logger)
}

func newWriter(store func(context.Context, Render) (int64, error), queueSize int, logger *zap.Logger) *Writer {
	if queueSize < 1 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		queue:   make(chan Render, queueSize),
		store:   store,
		logger:  logger.Named("history"),
		timeout: 5 * time.Second,
		done:    make(chan struct{}),
	}
}

// Start launches the background goroutine. Later calls do nothing.
func (w *Writer) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true
	w.wg.Add(1)
	go w.loop()
}

// Enqueue queues r without blocking. It returns false when the queue is full
// or the Writer has stopped.
func (w *Writer) Enqueue(r Render) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return false
	}
	select {
	case w.queue <- r:
		return true
	default:
		w.logger.Warn("history queue full, render dropped", zap.String("request_id", r.RequestID))
		return false
	}
}

// Pending returns the number of queued renders.
func (w *Writer) Pending() int { return len(w.queue) }

// Stop stores what is queued and waits for the goroutine, or for ctx.
func (w *Writer) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	started := w.started
	close(w.done)
	w.mu.Unlock()

	if !started {
		w.drain()
		return nil
	}

	finished := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) loop() {
	defer w.wg.Done()
	for {
		select {
		case r := <-w.queue:
			w.write(r)
		case <-w.done:
			w.drain()
			return
		}
	}
}

func (w *Writer) drain() {
	for {
		select {
		case r := <-w.queue:
			w.write(r)
		default:
			return
		}
	}
}

func (w *Writer) write(r Render) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if _, err := w.store(ctx, r); err != nil {
		w.logger.Error("storing render failed", zap.String("request_id", r.RequestID), zap.Error(err))
	}
}
