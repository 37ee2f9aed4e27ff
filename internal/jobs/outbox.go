package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/scrapify/scrapify-backend/internal/models"
	"github.com/scrapify/scrapify-backend/internal/storage"
)

const (
	retryBaseDelay = 10 * time.Second
	retryMaxDelay  = 30 * time.Minute
	taskTimeout    = 2 * time.Minute
)

// TaskHandler executes one outbox task. Returning an error wrapped with
// backoff.Permanent fails the task without further retries.
type TaskHandler func(ctx context.Context, payload models.TaskPayload) error

// WorkerDeps enumerates the collaborators of OutboxWorker
type WorkerDeps struct {
	Store        storage.Store
	Handlers     map[string]TaskHandler
	PollInterval time.Duration
	MaxAttempts  int
	BatchSize    int
	Logger       *zap.Logger
	Clock        func() time.Time
}

// OutboxWorker runs side-effect tasks recorded alongside booking writes
type OutboxWorker struct {
	store        storage.Store
	handlers     map[string]TaskHandler
	pollInterval time.Duration
	maxAttempts  int
	batchSize    int
	log          *zap.Logger
	now          func() time.Time

	kick chan struct{}

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewOutboxWorker creates a worker; call Start to begin polling.
func NewOutboxWorker(deps WorkerDeps) *OutboxWorker {
	w := &OutboxWorker{
		store:        deps.Store,
		handlers:     deps.Handlers,
		pollInterval: deps.PollInterval,
		maxAttempts:  deps.MaxAttempts,
		batchSize:    deps.BatchSize,
		log:          deps.Logger,
		now:          deps.Clock,
		kick:         make(chan struct{}, 1),
	}
	if w.handlers == nil {
		w.handlers = make(map[string]TaskHandler)
	}
	if w.pollInterval <= 0 {
		w.pollInterval = 5 * time.Second
	}
	if w.maxAttempts <= 0 {
		w.maxAttempts = 5
	}
	if w.batchSize <= 0 {
		w.batchSize = 20
	}
	if w.log == nil {
		w.log = zap.NewNop()
	}
	if w.now == nil {
		w.now = time.Now
	}
	return w
}

// Handle registers h for tasks of kind. Call it before Start.
func (w *OutboxWorker) Handle(kind string, h TaskHandler) {
	w.handlers[kind] = h
}

// Start begins the polling loop in the background
func (w *OutboxWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		w.log.Warn("outbox worker already running")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	w.running = true
	w.cancel = cancel
	w.done = make(chan struct{})

	w.log.Info("outbox worker started",
		zap.Duration("poll_interval", w.pollInterval),
		zap.Int("max_attempts", w.maxAttempts))
	go w.loop(ctx, w.done)
}

// Stop halts the loop and waits for the in-flight batch to finish
func (w *OutboxWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done
	w.log.Info("outbox worker stopped")
}

// Kick wakes the loop without waiting for the next poll.
func (w *OutboxWorker) Kick() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

func (w *OutboxWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.log.Error("outbox poll failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-w.kick:
		}
	}
}

// RunOnce claims and executes due tasks until none remain, returning how
// many were processed.
func (w *OutboxWorker) RunOnce(ctx context.Context) (int, error) {
	processed := 0
	for ctx.Err() == nil {
		tasks, err := w.store.ClaimDueTasks(ctx, w.now(), w.batchSize)
		if err != nil {
			return processed, fmt.Errorf("claim tasks: %w", err)
		}
		for _, t := range tasks {
			w.process(ctx, t)
			processed++
		}
		if len(tasks) < w.batchSize {
			break
		}
	}
	return processed, nil
}

func (w *OutboxWorker) process(ctx context.Context, task *models.OutboxTask) {
	log := w.log.With(
		zap.Uint("task_id", task.ID),
		zap.String("kind", task.Kind),
		zap.Int("attempt", task.Attempts))

	err := w.execute(ctx, task)
	if err == nil {
		if err := w.store.CompleteTask(ctx, task.ID, w.now()); err != nil {
			log.Error("failed to mark task done", zap.Error(err))
			return
		}
		log.Debug("task done")
		return
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) || task.Attempts >= w.maxAttempts {
		if ferr := w.store.FailTask(ctx, task.ID, err.Error()); ferr != nil {
			log.Error("failed to mark task failed", zap.Error(ferr))
		}
		log.Error("task failed permanently", zap.Error(err))
		return
	}

	next := w.now().Add(RetryDelay(task.Attempts))
	if rerr := w.store.RescheduleTask(ctx, task.ID, err.Error(), next); rerr != nil {
		log.Error("failed to reschedule task", zap.Error(rerr))
	}
	log.Warn("task failed, will retry", zap.Time("next_attempt_at", next), zap.Error(err))
}

func (w *OutboxWorker) execute(ctx context.Context, task *models.OutboxTask) (err error) {
	handler, ok := w.handlers[task.Kind]
	if !ok {
		return backoff.Permanent(fmt.Errorf("no handler for task kind %q", task.Kind))
	}
	payload, err := task.DecodePayload()
	if err != nil {
		return backoff.Permanent(fmt.Errorf("decode payload: %w", err))
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task handler panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()
	return handler(ctx, payload)
}

// RetryDelay is the wait before retrying a task that failed on its
// attempt-th try: 10s doubling per attempt, capped at 30m.
func RetryDelay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryBaseDelay
	b.MaxInterval = retryMaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	delay := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		delay = b.NextBackOff()
	}
	return delay
}
