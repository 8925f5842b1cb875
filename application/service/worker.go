package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/codeowl/codeowl/domain/task"
	"github.com/codeowl/codeowl/internal/config"
)

// Handler executes a specific task operation.
type Handler interface {
	Execute(ctx context.Context, payload map[string]any) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, payload map[string]any) error

// Execute implements Handler.
func (f HandlerFunc) Execute(ctx context.Context, payload map[string]any) error {
	return f(ctx, payload)
}

// Registry manages task handlers for different operations.
type Registry struct {
	handlers map[task.Operation]Handler
	mu       sync.RWMutex
}

// NewRegistry creates a new handler registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[task.Operation]Handler),
	}
}

// Register registers a handler for an operation.
func (r *Registry) Register(operation task.Operation, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[operation] = handler
}

// Handler returns the handler for an operation.
func (r *Registry) Handler(operation task.Operation) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[operation]
	return handler, ok
}

// Operations returns all registered operations.
func (r *Registry) Operations() []task.Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ops := make([]task.Operation, 0, len(r.handlers))
	for op := range r.handlers {
		ops = append(ops, op)
	}
	return ops
}

// WorkerPool processes tasks from the queue with a fixed number of
// concurrent workers. Failed tasks are re-enqueued with exponential
// backoff and dropped after the attempt budget is spent.
type WorkerPool struct {
	store       task.Store
	registry    *Registry
	logger      *slog.Logger
	concurrency int
	pollPeriod  time.Duration
	maxAttempts int
	retryDelay  time.Duration
	retryFactor float64
	now         func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// WorkerPoolOption is a functional option for WorkerPool.
type WorkerPoolOption func(*WorkerPool)

// WithConcurrency sets the number of workers.
func WithConcurrency(n int) WorkerPoolOption {
	return func(w *WorkerPool) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

// WithPollPeriod sets the poll period for checking new tasks.
func WithPollPeriod(d time.Duration) WorkerPoolOption {
	return func(w *WorkerPool) { w.pollPeriod = d }
}

// WithMaxAttempts sets the per-task attempt budget.
func WithMaxAttempts(n int) WorkerPoolOption {
	return func(w *WorkerPool) { w.maxAttempts = n }
}

// WithRetryBackoff sets the base delay and multiplier for retries.
func WithRetryBackoff(delay time.Duration, factor float64) WorkerPoolOption {
	return func(w *WorkerPool) {
		w.retryDelay = delay
		w.retryFactor = factor
	}
}

// NewWorkerPool creates a worker pool over the task store.
func NewWorkerPool(store task.Store, registry *Registry, logger *slog.Logger, opts ...WorkerPoolOption) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	w := &WorkerPool{
		store:       store,
		registry:    registry,
		logger:      logger,
		concurrency: config.DefaultWorkerCount,
		pollPeriod:  time.Second,
		maxAttempts: config.DefaultTaskMaxAttempts,
		retryDelay:  config.DefaultTaskRetryDelay,
		retryFactor: config.DefaultTaskRetryFactor,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins processing tasks from the queue.
// Workers run in goroutines and are stopped with Stop().
func (w *WorkerPool) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ctx, w.cancel = context.WithCancel(ctx)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func(worker int) {
			defer w.wg.Done()
			w.run(ctx, worker)
		}(i)
	}

	w.logger.Info("worker pool started", slog.Int("concurrency", w.concurrency))
}

// Stop gracefully shuts down the pool. It waits for in-flight tasks to
// complete before returning.
func (w *WorkerPool) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
	w.logger.Info("worker pool stopped")
}

func (w *WorkerPool) run(ctx context.Context, worker int) {
	ticker := time.NewTicker(w.pollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.processNext(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				w.logger.Error("error processing task",
					slog.Int("worker", worker),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// ProcessNext claims and runs one ready task. Exposed for synchronous
// draining in tests and CLI tooling.
func (w *WorkerPool) ProcessNext(ctx context.Context) (bool, error) {
	t, found, err := w.store.Dequeue(ctx, w.registry.Operations()...)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return true, w.processTask(ctx, t)
}

func (w *WorkerPool) processNext(ctx context.Context) error {
	_, err := w.ProcessNext(ctx)
	return err
}

func (w *WorkerPool) processTask(ctx context.Context, t task.Task) error {
	start := w.now()

	w.logger.Info("processing task",
		slog.String("operation", t.Operation().String()),
		slog.String("dedup_key", t.DedupKey()),
		slog.Int("attempt", t.Attempts()+1),
	)

	h, ok := w.registry.Handler(t.Operation())
	if !ok {
		// Dequeue already removed it; dropping keeps the queue moving.
		w.logger.Error("no handler for operation",
			slog.String("operation", t.Operation().String()),
		)
		return nil
	}

	if err := w.executeWithRecovery(ctx, h, t); err != nil {
		return w.handleFailure(ctx, t, err)
	}

	w.logger.Info("task completed",
		slog.String("operation", t.Operation().String()),
		slog.String("dedup_key", t.DedupKey()),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// handleFailure re-enqueues the task with backoff, or drops it once the
// attempt budget is spent.
func (w *WorkerPool) handleFailure(ctx context.Context, t task.Task, taskErr error) error {
	attempt := t.Attempts() + 1

	w.logger.Error("task execution failed",
		slog.String("operation", t.Operation().String()),
		slog.String("dedup_key", t.DedupKey()),
		slog.Int("attempt", attempt),
		slog.String("error", taskErr.Error()),
	)

	if attempt >= w.maxAttempts {
		w.logger.Error("task dropped after exhausting attempts",
			slog.String("operation", t.Operation().String()),
			slog.String("dedup_key", t.DedupKey()),
			slog.Int("attempts", attempt),
		)
		return nil
	}

	delay := time.Duration(float64(w.retryDelay) * math.Pow(w.retryFactor, float64(attempt-1)))
	retry := t.WithRetry(w.now().Add(delay))
	if _, err := w.store.Save(ctx, retry); err != nil {
		return fmt.Errorf("re-enqueue failed task: %w", err)
	}

	w.logger.Info("task scheduled for retry",
		slog.String("dedup_key", t.DedupKey()),
		slog.Duration("delay", delay),
	)
	return nil
}

func (w *WorkerPool) executeWithRecovery(ctx context.Context, h Handler, t task.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Execute(ctx, t.Payload())
}
