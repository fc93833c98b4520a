// Package task runs named units of work from a broker with late
// acknowledgement, hard time limits and exponential retry.
package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTimeLimitExceeded is returned when a task outlives its hard time limit.
	ErrTimeLimitExceeded = errors.New("task time limit exceeded")
	// ErrUnknownTask is returned for deliveries naming no registered task.
	ErrUnknownTask = errors.New("unknown task")
)

// Task is the message exchanged through the broker.
type Task struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Args    []string  `json:"args"`
	Retries int       `json:"retries"`
	SentAt  time.Time `json:"sent_at"`
}

// Func is the body of a task. The returned value is only logged.
type Func func(ctx context.Context, args []string) (any, error)

// Definition binds a task name to its body and limits. Run receives a
// context that expires after SoftTimeLimit (TimeLimit when unset); the worker
// stops waiting for it after TimeLimit.
type Definition struct {
	Name          string
	Run           Func
	SoftTimeLimit time.Duration
	TimeLimit     time.Duration
}

type Publisher interface {
	// Publish makes t available to consumers once delay has elapsed.
	Publish(ctx context.Context, t Task, delay time.Duration) error
}

type Delivery interface {
	Task() Task
	Ack() error
	Nack(requeue bool) error
}

type Broker interface {
	Publisher
	Consume(ctx context.Context) (<-chan Delivery, error)
}

// Client enqueues tasks.
type Client struct {
	publisher Publisher
}

func NewClient(publisher Publisher) *Client {
	return &Client{publisher: publisher}
}

// Enqueue schedules the named task for immediate execution and returns its id.
func (c *Client) Enqueue(ctx context.Context, name string, args ...string) (string, error) {
	t := Task{
		ID:     uuid.NewString(),
		Name:   name,
		Args:   args,
		SentAt: time.Now().UTC(),
	}
	if err := c.publisher.Publish(ctx, t, 0); err != nil {
		return "", fmt.Errorf("enqueue %s: %w", name, err)
	}
	return t.ID, nil
}
