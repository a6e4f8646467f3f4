package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/laundrypro/server/pkg/logger"
)

// Task is a unit of deferred work. Payload is JSON so tasks survive a move
// to an external broker without changing producers.
type Task struct {
	Operation string          `json:"operation"`
	Payload   json.RawMessage `json:"payload"`
}

// Handler processes one task payload.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Queue accepts deferred work. Handlers run outside the request path.
type Queue interface {
	Enqueue(ctx context.Context, operation string, payload any) error
	Close() error
}

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("queue: closed")

// Memory is an in-process Queue backed by a buffered channel and a pool of
// worker goroutines.
type Memory struct {
	tasks    chan Task
	handlers map[string]Handler

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	cancel context.CancelFunc
	log    *zap.Logger
}

// MemoryOption customises a Memory queue.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	workers int
	buffer  int
}

// WithWorkers sets the number of worker goroutines.
func WithWorkers(n int) MemoryOption {
	return func(cfg *memoryConfig) {
		if n > 0 {
			cfg.workers = n
		}
	}
}

// WithBuffer sets the channel buffer size.
func WithBuffer(n int) MemoryOption {
	return func(cfg *memoryConfig) {
		if n > 0 {
			cfg.buffer = n
		}
	}
}

// NewMemory starts an in-process queue. Handlers map operation names to the
// functions that execute them; tasks with an unregistered operation are
// dropped with a log entry.
func NewMemory(handlers map[string]Handler, opts ...MemoryOption) *Memory {
	cfg := memoryConfig{workers: 2, buffer: 256}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Memory{
		tasks:    make(chan Task, cfg.buffer),
		handlers: handlers,
		cancel:   cancel,
		log:      logger.WithModule("queue"),
	}

	for i := 0; i < cfg.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	return q
}

// Enqueue marshals the payload and hands the task to a worker. It blocks
// only when the buffer is full, and honours context cancellation while
// waiting.
func (q *Memory) Enqueue(ctx context.Context, operation string, payload any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("queue: marshal payload: %w", err)
	}

	// The read lock spans the send so Close cannot close the channel between
	// the closed check and the send.
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}

	select {
	case q.tasks <- Task{Operation: operation, Payload: data}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks, drains the buffer and waits for workers to
// finish.
func (q *Memory) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	q.wg.Wait()
	q.cancel()
	return nil
}

func (q *Memory) worker(ctx context.Context) {
	defer q.wg.Done()

	for task := range q.tasks {
		handler, ok := q.handlers[task.Operation]
		if !ok {
			q.log.Warn("no handler registered for operation", zap.String("operation", task.Operation))
			continue
		}
		if err := handler(ctx, task.Payload); err != nil {
			q.log.Error("task failed",
				zap.String("operation", task.Operation),
				zap.Error(err))
		}
	}
}
