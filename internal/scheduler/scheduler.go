// Package scheduler periodically enqueues a task, like a beat process.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, name string, args ...string) (string, error)
}

type Scheduler struct {
	tasks    Enqueuer
	taskName string
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(tasks Enqueuer, taskName string, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		tasks:    tasks,
		taskName: taskName,
		interval: interval,
		logger:   logger.With("component", "scheduler", "task", taskName),
	}
}

// Start enqueues the task immediately and then once per interval until ctx
// is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.enqueue(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.enqueue(ctx)
		}
	}
}

func (s *Scheduler) enqueue(ctx context.Context) {
	enqueueCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	id, err := s.tasks.Enqueue(enqueueCtx, s.taskName)
	if err != nil {
		s.logger.Error("enqueue failed", "error", err)
		return
	}
	s.logger.Debug("task enqueued", "task_id", id)
}
