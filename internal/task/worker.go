package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

type Outcome string

const (
	Succeeded Outcome = "succeeded"
	Retrying  Outcome = "retrying"
	Failed    Outcome = "failed"
)

// Result describes how one attempt of a task ended.
type Result struct {
	Outcome   Outcome
	Value     any
	Err       error
	Countdown time.Duration
}

type Worker struct {
	broker      Broker
	policy      RetryPolicy
	concurrency int
	logger      *slog.Logger

	mu          sync.RWMutex
	definitions map[string]Definition
}

func NewWorker(broker Broker, policy RetryPolicy, concurrency int, logger *slog.Logger) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Worker{
		broker:      broker,
		policy:      policy,
		concurrency: concurrency,
		logger:      logger.With("component", "worker"),
		definitions: make(map[string]Definition),
	}
}

func (w *Worker) Register(defs ...Definition) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, d := range defs {
		w.definitions[d.Name] = d
	}
}

func (w *Worker) definition(name string) (Definition, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	d, ok := w.definitions[name]
	return d, ok
}

// Run consumes deliveries until ctx is done. Each delivery is acknowledged
// only after its attempt was handled, so a crash leads to redelivery.
func (w *Worker) Run(ctx context.Context) error {
	deliveries, err := w.broker.Consume(ctx)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	w.logger.Info("worker started", "concurrency", w.concurrency)

	var (
		wg     sync.WaitGroup
		closed atomic.Bool
	)
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						closed.Store(true)
						return
					}
					w.handle(ctx, d)
				}
			}
		}()
	}
	wg.Wait()

	w.logger.Info("worker stopped")

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if closed.Load() {
		return errors.New("delivery channel closed")
	}
	return nil
}

func (w *Worker) handle(ctx context.Context, d Delivery) {
	t := d.Task()
	if _, err := w.Execute(ctx, t); err != nil {
		w.logger.Warn("requeueing task", "task", t.Name, "task_id", t.ID, "error", err)
		if nerr := d.Nack(true); nerr != nil {
			w.logger.Error("failed to nack task", "task_id", t.ID, "error", nerr)
		}
		return
	}
	if err := d.Ack(); err != nil {
		w.logger.Error("failed to ack task", "task_id", t.ID, "error", err)
	}
}

// Execute runs one attempt of t and applies the retry policy to its outcome.
// A non-nil error means the attempt could not be settled (the retry could not
// be scheduled or ctx ended) and the delivery must be requeued.
func (w *Worker) Execute(ctx context.Context, t Task) (Result, error) {
	log := w.logger.With("task", t.Name, "task_id", t.ID, "args", t.Args)

	def, ok := w.definition(t.Name)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownTask, t.Name)
		log.Error("task failed", "retry_count", t.Retries, "error", err)
		return Result{Outcome: Failed, Err: err}, nil
	}

	start := time.Now()
	value, err := w.run(ctx, def, t)
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	if err == nil {
		log.Info("task succeeded",
			"retry_count", t.Retries,
			"result", value,
			"elapsed", time.Since(start),
		)
		return Result{Outcome: Succeeded, Value: value}, nil
	}

	if errors.Is(err, ErrTimeLimitExceeded) {
		log.Error("task time limit exceeded",
			"retry_count", t.Retries,
			"time_limit", def.TimeLimit,
		)
	}

	if t.Retries >= w.policy.MaxRetries {
		log.Error("task failed",
			"retry_count", t.Retries,
			"max_retries", w.policy.MaxRetries,
			"error", err,
		)
		return Result{Outcome: Failed, Err: err}, nil
	}

	countdown := w.policy.Countdown(t.Retries)
	log.Warn("retrying task",
		"retry_count", t.Retries,
		"max_retries", w.policy.MaxRetries,
		"retry_eta", countdown,
		"error", err,
	)

	next := t
	next.Retries++
	next.SentAt = time.Now().UTC()
	if perr := w.broker.Publish(ctx, next, countdown); perr != nil {
		return Result{Outcome: Failed, Err: err}, fmt.Errorf("schedule retry: %w", perr)
	}

	return Result{Outcome: Retrying, Err: err, Countdown: countdown}, nil
}

type runOutcome struct {
	value any
	err   error
}

func (w *Worker) run(ctx context.Context, def Definition, t Task) (any, error) {
	if def.TimeLimit <= 0 {
		return safeRun(ctx, def.Run, t.Args)
	}

	soft := def.SoftTimeLimit
	if soft <= 0 || soft > def.TimeLimit {
		soft = def.TimeLimit
	}

	runCtx, cancel := context.WithTimeout(ctx, soft)
	defer cancel()

	done := make(chan runOutcome, 1)
	go func() {
		v, err := safeRun(runCtx, def.Run, t.Args)
		done <- runOutcome{value: v, err: err}
	}()

	timer := time.NewTimer(def.TimeLimit)
	defer timer.Stop()

	select {
	case o := <-done:
		if o.err != nil && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrTimeLimitExceeded, o.err)
		}
		return o.value, o.err
	case <-timer.C:
		// The handler goroutine is left running with runCtx cancelled by the
		// deferred cancel. Handlers must check ctx before committing work.
		return nil, fmt.Errorf("%w after %s", ErrTimeLimitExceeded, def.TimeLimit)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func safeRun(ctx context.Context, fn Func, args []string) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx, args)
}
